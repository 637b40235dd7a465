package plugsdk

import (
	"context"
	"errors"
	"net/http"

	"github.com/imroc/req/v3"
	"github.com/openmined/plugsync/internal/version"
)

// PlugSDK is the client for the agents API: content upload and plug attach.
type PlugSDK struct {
	client *req.Client
	config *Config
	Files  *FilesAPI
	Plugs  *PlugsAPI
}

// New creates a new PlugSDK client
func New(config *Config) (*PlugSDK, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client := req.C().
		SetBaseURL(config.BaseURL).
		SetTimeout(config.RequestTimeout).
		SetUserAgent(version.UserAgent()).
		SetCommonHeader(HeaderPlugVersion, version.Version).
		SetCommonRetryCount(config.RetryCount).
		SetCommonRetryFixedInterval(config.RetryInterval).
		SetCommonRetryCondition(shouldRetry).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal)

	return &PlugSDK{
		client: client,
		config: config,
		Files:  newFilesAPI(client, config),
		Plugs:  newPlugsAPI(client, config),
	}, nil
}

// UploadContent stores the content and returns the content ref.
func (s *PlugSDK) UploadContent(ctx context.Context, token, name, content string) (string, error) {
	return s.Files.Upload(ctx, token, name, content)
}

// AttachReference points a plug at contentRef, creating the plug when existingRef is empty.
func (s *PlugSDK) AttachReference(ctx context.Context, token, name, contentRef, existingRef string) (string, error) {
	return s.Plugs.Attach(ctx, token, name, contentRef, existingRef)
}

// Close releases idle connections
func (s *PlugSDK) Close() {
	s.client.GetClient().CloseIdleConnections()
}

func shouldRetry(resp *req.Response, err error) bool {
	if err != nil {
		// the per-call deadline has passed, another attempt cannot succeed
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	if resp == nil || resp.Response == nil {
		return false
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError
}
