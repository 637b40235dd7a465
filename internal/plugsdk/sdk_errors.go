package plugsdk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/imroc/req/v3"
)

var (
	// sdk common
	ErrNoBaseURL      = errors.New("sdk: base url missing")
	ErrInvalidBaseURL = errors.New("sdk: invalid base url")
	ErrNoToken        = errors.New("sdk: bearer token missing")

	// responses
	ErrMissingID   = errors.New("sdk: response has no id")
	ErrEmptyRefArg = errors.New("sdk: content ref missing")
)

const maxErrorBody = 512

// RemoteError is returned for every failed call against the remote service.
// StatusCode is zero when no response was received.
type RemoteError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	var b strings.Builder
	b.WriteString("remote ")
	b.WriteString(e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Timeout reports whether the call was cut off by the per-call deadline.
func (e *RemoteError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// IsRemoteError checks if err is a RemoteError or wraps one.
func IsRemoteError(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

type apiErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// handleAPIError turns a transport error or a non-2xx response into a RemoteError.
func handleAPIError(resp *req.Response, requestErr error, op string) error {
	if requestErr != nil {
		remoteErr := &RemoteError{Op: op, Err: requestErr}
		if resp != nil && resp.Response != nil {
			remoteErr.StatusCode = resp.StatusCode
		}
		return remoteErr
	}

	if !resp.IsSuccessState() {
		return &RemoteError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Bytes()),
		}
	}

	return nil
}

func errorMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var apiErr apiErrorBody
	if err := jsonUnmarshal(body, &apiErr); err == nil {
		for _, msg := range []string{apiErr.Error, apiErr.Message, apiErr.Detail} {
			if msg != "" {
				return msg
			}
		}
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody] + "..."
	}
	return msg
}
