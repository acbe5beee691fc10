package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/rryowa/authsession/internal/service"
	"github.com/rryowa/authsession/internal/util"
)

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		reason string
	}{
		{
			name:   "validation",
			err:    &service.ValidationError{Fields: map[string]string{"email": "email is invalid"}},
			status: http.StatusUnprocessableEntity,
			reason: "validation failed",
		},
		{
			name:   "expired access token hides jwt cause",
			err:    fmt.Errorf("%w: %w", service.ErrInvalidOrExpiredAccessToken, errors.New("token is expired")),
			status: http.StatusUnauthorized,
			reason: service.ErrInvalidOrExpiredAccessToken.Error(),
		},
		{
			name:   "denylisted",
			err:    service.ErrAccessTokenDenylisted,
			status: http.StatusUnauthorized,
			reason: service.ErrAccessTokenDenylisted.Error(),
		},
		{
			name:   "refresh",
			err:    service.ErrInvalidOrExpiredRefreshToken,
			status: http.StatusUnauthorized,
			reason: service.ErrInvalidOrExpiredRefreshToken.Error(),
		},
		{
			name:   "distinct credentials",
			err:    service.ErrUnknownUser,
			status: http.StatusUnauthorized,
			reason: service.ErrUnknownUser.Error(),
		},
		{
			name:   "storage",
			err:    fmt.Errorf("find: %w: %w", service.ErrStorageUnavailable, errors.New("dial tcp")),
			status: http.StatusServiceUnavailable,
			reason: "service temporarily unavailable",
		},
		{
			name:   "response error",
			err:    util.NewResponseError(http.StatusBadRequest, "invalid request body"),
			status: http.StatusBadRequest,
			reason: "invalid request body",
		},
		{
			name:   "echo error",
			err:    echo.NewHTTPError(http.StatusNotFound, "Not Found"),
			status: http.StatusNotFound,
			reason: "Not Found",
		},
		{
			name:   "unknown",
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
			reason: "internal server error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := errorResponse(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.reason, body.Reason)
		})
	}
}
