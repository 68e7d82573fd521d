package elastic

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sha1n/docindex/internal/domain"
)

// Operation names used in engine errors.
const (
	opPing        = "ping"
	opIndexExists = "indices.exists"
	opCreateIndex = "indices.create"
	opBulk        = "bulk"
	opSearch      = "search"
)

const (
	indexNotFoundType         = "index_not_found_exception"
	resourceAlreadyExistsType = "resource_already_exists_exception"
)

// errorBody is the error envelope returned by Elasticsearch.
type errorBody struct {
	Error  errorCause `json:"error"`
	Status int        `json:"status"`
}

type errorCause struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// readError decodes an error response. Bodies that are not JSON error
// envelopes yield a cause with only the HTTP status text. A body that cannot
// be read in full keeps what was read and names the read failure.
func readError(statusCode int, body io.Reader) errorCause {
	data, readErr := io.ReadAll(body)
	if readErr != nil {
		reason := "failed to read error body: " + readErr.Error()
		if len(data) > 0 {
			reason += ": " + string(data)
		}
		return errorCause{Type: http.StatusText(statusCode), Reason: reason}
	}

	var eb errorBody
	if err := json.Unmarshal(data, &eb); err == nil && eb.Error.Type != "" {
		return eb.Error
	}

	return errorCause{Type: http.StatusText(statusCode), Reason: string(data)}
}

// responseError maps an error response to a typed engine error.
func responseError(op string, statusCode int, cause errorCause) error {
	if statusCode == http.StatusNotFound || cause.Type == indexNotFoundType {
		return domain.NewEngineError(op, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, cause.Reason))
	}
	if statusCode == http.StatusBadRequest {
		return domain.NewEngineError(op, fmt.Errorf("%w: %s: %s", domain.ErrValidation, cause.Type, cause.Reason))
	}
	return domain.NewEngineError(op, fmt.Errorf("%w: status %d: %s: %s", domain.ErrUnexpectedResponse, statusCode, cause.Type, cause.Reason))
}

// connectivityError wraps a transport failure.
func connectivityError(op string, err error) error {
	return domain.NewEngineError(op, fmt.Errorf("%w: %w", domain.ErrConnectivity, err))
}

func closeBody(body io.ReadCloser) {
	if body != nil {
		_ = body.Close()
	}
}
