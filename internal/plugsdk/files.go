package plugsdk

import (
	"context"

	"github.com/imroc/req/v3"
)

type FilesAPI struct {
	client *req.Client
	config *Config
}

func newFilesAPI(client *req.Client, config *Config) *FilesAPI {
	return &FilesAPI{
		client: client,
		config: config,
	}
}

// Upload sends the file content and returns the content ref named by the response id.
// A repeated upload only leaves an unreferenced blob behind, so it may be retried.
func (f *FilesAPI) Upload(ctx context.Context, token, name, content string) (string, error) {
	const op = "upload content"

	if token == "" {
		return "", &RemoteError{Op: op, Err: ErrNoToken}
	}

	ctx, cancel := context.WithTimeout(ctx, f.config.RequestTimeout)
	defer cancel()

	var apiResp IDResponse
	resp, err := f.client.R().
		SetContext(ctx).
		SetBearerAuthToken(token).
		SetBody(&UploadFileRequest{
			Name:    name,
			Content: content,
		}).
		SetSuccessResult(&apiResp).
		Post(agentsFiles)

	if err := handleAPIError(resp, err, op); err != nil {
		return "", err
	}

	return requireID(&apiResp, resp, op)
}

// requireID rejects a successful response that does not carry an id.
func requireID(apiResp *IDResponse, resp *req.Response, op string) (string, error) {
	if apiResp.ID == "" {
		return "", &RemoteError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Bytes()),
			Err:        ErrMissingID,
		}
	}
	return apiResp.ID, nil
}
