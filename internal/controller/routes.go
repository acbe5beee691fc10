package controller

import (
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
)

//go:embed openapi/openapi.yaml
var openapiSpec []byte

// GetSwagger loads the embedded OpenAPI document used by the request validator.
func GetSwagger() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	swagger, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi spec: %w", err)
	}
	if err := swagger.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("validate openapi spec: %w", err)
	}
	return swagger, nil
}

type ServerInterface interface {
	// (GET /api/ping)
	CheckServer(ctx echo.Context) error
	// (POST /api/auth/register)
	Register(ctx echo.Context) error
	// (POST /api/auth/login)
	Login(ctx echo.Context) error
	// (POST /api/auth/refresh)
	Refresh(ctx echo.Context) error
	// (GET /api/auth/me)
	Me(ctx echo.Context) error
	// (POST /api/auth/logout)
	Logout(ctx echo.Context) error
	// (POST /api/auth/logout-all)
	LogoutAll(ctx echo.Context) error
	// (POST /api/auth/change-password)
	ChangePassword(ctx echo.Context) error
	// (POST /api/admin/refresh-tokens/purge)
	PurgeRefreshTokens(ctx echo.Context) error
}

// RegisterHandlers mounts the routes on g, which is expected to be the /api
// group. bearer guards the authenticated routes, admin the admin ones.
func RegisterHandlers(g *echo.Group, si ServerInterface, bearer, admin echo.MiddlewareFunc) {
	g.GET("/ping", si.CheckServer)

	auth := g.Group("/auth")
	auth.POST("/register", si.Register)
	auth.POST("/login", si.Login)
	auth.POST("/refresh", si.Refresh)
	auth.GET("/me", si.Me, bearer)
	auth.POST("/logout", si.Logout, bearer)
	auth.POST("/logout-all", si.LogoutAll, bearer)
	auth.POST("/change-password", si.ChangePassword, bearer)

	g.POST("/admin/refresh-tokens/purge", si.PurgeRefreshTokens, admin)
}
