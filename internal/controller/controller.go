package controller

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rryowa/authsession/internal/models"
	"github.com/rryowa/authsession/internal/service"
	"github.com/rryowa/authsession/internal/util"
)

type Controller struct {
	zapLogger   *zap.SugaredLogger
	authService *service.AuthService
	purger      *service.PurgeWorker
}

var _ ServerInterface = (*Controller)(nil)

func NewController(logger *zap.SugaredLogger, authService *service.AuthService, purger *service.PurgeWorker) *Controller {
	return &Controller{
		zapLogger:   logger,
		authService: authService,
		purger:      purger,
	}
}

// (GET /api/ping).
func (c *Controller) CheckServer(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, "ok")
}

// (POST /api/auth/register).
func (c *Controller) Register(ctx echo.Context) error {
	var req models.RegisterRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest()
	}

	user, pair, err := c.authService.Register(ctx.Request().Context(), req, clientMeta(ctx))
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusCreated, models.AuthResponse{
		User:      models.NewUserResponse(user),
		TokenPair: *pair,
	})
}

// (POST /api/auth/login).
func (c *Controller) Login(ctx echo.Context) error {
	var req models.LoginRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest()
	}

	user, pair, err := c.authService.Login(ctx.Request().Context(), req, clientMeta(ctx))
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, models.AuthResponse{
		User:      models.NewUserResponse(user),
		TokenPair: *pair,
	})
}

// (POST /api/auth/refresh).
func (c *Controller) Refresh(ctx echo.Context) error {
	var req models.RefreshRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest()
	}

	pair, err := c.authService.Refresh(ctx.Request().Context(), req, clientMeta(ctx))
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, pair)
}

// (GET /api/auth/me).
func (c *Controller) Me(ctx echo.Context) error {
	claims, err := claimsFromContext(ctx)
	if err != nil {
		return err
	}
	userID, err := claims.UserIDInt()
	if err != nil {
		return err
	}

	user, err := c.authService.Me(ctx.Request().Context(), userID)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, models.ProfileResponse{
		UserResponse: models.NewUserResponse(user),
		CreatedAt:    user.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// (POST /api/auth/logout).
func (c *Controller) Logout(ctx echo.Context) error {
	claims, err := claimsFromContext(ctx)
	if err != nil {
		return err
	}

	var req models.LogoutRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest()
	}

	if err := c.authService.Logout(ctx.Request().Context(), claims, req.RefreshToken); err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, models.MessageResponse{Message: "logged out"})
}

// (POST /api/auth/logout-all).
func (c *Controller) LogoutAll(ctx echo.Context) error {
	claims, err := claimsFromContext(ctx)
	if err != nil {
		return err
	}

	n, err := c.authService.LogoutAll(ctx.Request().Context(), claims)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, models.LogoutAllResponse{
		Message: "logged out from all devices",
		Revoked: n,
	})
}

// (POST /api/auth/change-password).
func (c *Controller) ChangePassword(ctx echo.Context) error {
	claims, err := claimsFromContext(ctx)
	if err != nil {
		return err
	}

	var req models.ChangePasswordRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest()
	}

	n, err := c.authService.ChangePassword(ctx.Request().Context(), claims, req)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, models.LogoutAllResponse{
		Message: "password changed, please log in again",
		Revoked: n,
	})
}

// (POST /api/admin/refresh-tokens/purge).
func (c *Controller) PurgeRefreshTokens(ctx echo.Context) error {
	n, err := c.purger.PurgeOnce(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, models.PurgeResponse{Purged: n})
}

func clientMeta(ctx echo.Context) models.ClientMeta {
	return models.ClientMeta{
		IPAddress: ctx.RealIP(),
		UserAgent: ctx.Request().UserAgent(),
	}
}

func claimsFromContext(ctx echo.Context) (*service.AccessClaims, error) {
	claims, ok := ctx.Get(models.MwClaimsKey).(*service.AccessClaims)
	if !ok || claims == nil {
		return nil, service.ErrInvalidOrExpiredAccessToken
	}
	return claims, nil
}

func badRequest() error {
	return util.NewResponseError(http.StatusBadRequest, "invalid request body")
}
