package asset

import (
	"errors"
	"net/http"
)

var (
	ErrBadRequest      = errors.New("bad asset locator")
	ErrUnsupportedType = errors.New("unsupported asset type")
	ErrForbidden       = errors.New("asset path is outside of the allowed directories")
	ErrNotFound        = errors.New("asset not found")
	ErrIO              = errors.New("asset read failed")
)

// StatusCode maps a resolver error onto an HTTP status.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}
