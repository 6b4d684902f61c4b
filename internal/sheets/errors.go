package sheets

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"

	pkgerrors "github.com/angelmondragon/gearshed-backend/pkg/errors"
)

type gatewayError struct {
	op    string
	cause error
}

func (e *gatewayError) Error() string {
	return fmt.Sprintf("sheets %s: %v", e.op, e.cause)
}

func (e *gatewayError) Unwrap() error {
	return e.cause
}

// GatewayError wraps a failed spreadsheet call. The result maps to
// DEPENDENCY_ERROR; callers decide whether stale local data is acceptable.
func GatewayError(op string, cause error) error {
	if cause == nil {
		cause = errors.New("unknown failure")
	}
	err := pkgerrors.Wrap(pkgerrors.CodeDependency, &gatewayError{op: op, cause: cause}, "spreadsheet unavailable")
	var apiErr *googleapi.Error
	if errors.As(cause, &apiErr) {
		err = err.WithDetails(map[string]any{"operation": op, "status": apiErr.Code})
	} else {
		err = err.WithDetails(map[string]any{"operation": op})
	}
	return err
}

// IsGatewayError reports whether err came from the spreadsheet.
func IsGatewayError(err error) bool {
	var gerr *gatewayError
	return errors.As(err, &gerr)
}

// IsNotFoundStatus reports whether the remote answered 404 (unknown
// spreadsheet or tab).
func IsNotFoundStatus(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
