package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rryowa/authsession/internal/models"
	"github.com/rryowa/authsession/internal/service"
	"github.com/rryowa/authsession/internal/util"
)

func ErrorHandler(log *zap.SugaredLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := errorResponse(err)
		switch {
		case status >= http.StatusInternalServerError:
			log.Errorw("request failed", "error", err, "uri", c.Request().RequestURI, "status", status)
		case status == http.StatusUnauthorized:
			log.Debugw("request unauthorized", "error", err, "uri", c.Request().RequestURI)
		}

		if err := c.JSON(status, body); err != nil {
			log.Errorw("failed to write json response", "error", err)
		}
	}
}

func errorResponse(err error) (int, models.ErrorResponse) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return http.StatusUnprocessableEntity, models.ErrorResponse{Reason: "validation failed", Errors: verr.Fields}
	}

	if reason, ok := unauthorizedReason(err); ok {
		return http.StatusUnauthorized, models.ErrorResponse{Reason: reason}
	}

	if errors.Is(err, service.ErrStorageUnavailable) {
		return http.StatusServiceUnavailable, models.ErrorResponse{Reason: "service temporarily unavailable"}
	}

	var respErr util.ResponseError
	if errors.As(err, &respErr) {
		return respErr.Status, models.ErrorResponse{Reason: respErr.Msg}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, models.ErrorResponse{Reason: fmt.Sprint(he.Message)}
	}

	return http.StatusInternalServerError, models.ErrorResponse{Reason: "internal server error"}
}

// unauthorizedReason never exposes the jwt parser's cause.
func unauthorizedReason(err error) (string, bool) {
	switch {
	case errors.Is(err, service.ErrAccessTokenDenylisted):
		return service.ErrAccessTokenDenylisted.Error(), true
	case errors.Is(err, service.ErrInvalidOrExpiredAccessToken):
		return service.ErrInvalidOrExpiredAccessToken.Error(), true
	case errors.Is(err, service.ErrInvalidOrExpiredRefreshToken):
		return service.ErrInvalidOrExpiredRefreshToken.Error(), true
	case errors.Is(err, service.ErrInvalidCredentials):
		return err.Error(), true
	}
	return "", false
}
