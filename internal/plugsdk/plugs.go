package plugsdk

import (
	"context"

	"github.com/imroc/req/v3"
)

type PlugsAPI struct {
	client *req.Client
	config *Config
}

func newPlugsAPI(client *req.Client, config *Config) *PlugsAPI {
	return &PlugsAPI{
		client: client,
		config: config,
	}
}

// Attach updates the plug existingRef to point at contentRef, or creates a new plug
// named name when existingRef is empty. It returns the plug id.
func (p *PlugsAPI) Attach(ctx context.Context, token, name, contentRef, existingRef string) (string, error) {
	if existingRef != "" {
		return p.Update(ctx, token, existingRef, contentRef)
	}
	return p.Create(ctx, token, name, contentRef)
}

// Create mints a new plug. It is never retried: a lost response followed by a
// retry would leave two plugs for the same file.
func (p *PlugsAPI) Create(ctx context.Context, token, name, contentRef string) (string, error) {
	const op = "create plug"

	if err := checkArgs(op, token, contentRef); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.RequestTimeout)
	defer cancel()

	var apiResp IDResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBearerAuthToken(token).
		SetRetryCount(0).
		SetBody(&CreatePlugRequest{
			Name:   name,
			FileID: contentRef,
		}).
		SetSuccessResult(&apiResp).
		Post(agentsPlugs)

	if err := handleAPIError(resp, err, op); err != nil {
		return "", err
	}

	return requireID(&apiResp, resp, op)
}

// Update points an existing plug at new content.
func (p *PlugsAPI) Update(ctx context.Context, token, plugID, contentRef string) (string, error) {
	const op = "update plug"

	if err := checkArgs(op, token, contentRef); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.RequestTimeout)
	defer cancel()

	var apiResp IDResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBearerAuthToken(token).
		SetPathParam("plugId", plugID).
		SetBody(&UpdatePlugRequest{
			FileID: contentRef,
		}).
		SetSuccessResult(&apiResp).
		Put(agentsPlug)

	if err := handleAPIError(resp, err, op); err != nil {
		return "", err
	}

	return requireID(&apiResp, resp, op)
}

func checkArgs(op, token, contentRef string) error {
	if token == "" {
		return &RemoteError{Op: op, Err: ErrNoToken}
	}
	if contentRef == "" {
		return &RemoteError{Op: op, Err: ErrEmptyRefArg}
	}
	return nil
}
