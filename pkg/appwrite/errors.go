package appwrite

import (
	"fmt"
	"net/http"

	"github.com/georgemblack/snapgram/pkg/errs"
	"github.com/go-resty/resty/v2"
)

// platformError is the error body returned by the platform.
type platformError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Type    string `json:"type"`
}

// kindForStatus maps an HTTP status to a failure kind. Timeouts, throttling and server
// errors are recoverable; other client errors are not.
func kindForStatus(status int) errs.Kind {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return errs.Validation
	case http.StatusUnauthorized, http.StatusForbidden:
		return errs.NotAuthenticated
	case http.StatusNotFound:
		return errs.NotFound
	case http.StatusConflict, http.StatusPreconditionFailed:
		return errs.Conflict
	default:
		return errs.RemoteUnavailable
	}
}

func classify(op string, resp *resty.Response) error {
	msg := http.StatusText(resp.StatusCode())
	if pe, ok := resp.Error().(*platformError); ok && pe.Message != "" {
		msg = pe.Message
		if pe.Type != "" {
			msg = fmt.Sprintf("%s (%s)", pe.Message, pe.Type)
		}
	}
	return errs.New(kindForStatus(resp.StatusCode()), op, "HTTP %d: %s", resp.StatusCode(), msg)
}
