package main

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rryowa/authsession/internal/service"
	"github.com/rryowa/authsession/internal/util"
)

const listenAddr = ":9090"

// Development sink for security event webhooks: logs every event it receives.
func main() {
	logger := util.NewZapLogger()
	defer func() { _ = logger.Sync() }()

	e := echo.New()
	e.HideBanner = true

	e.POST("/", func(c echo.Context) error {
		var event service.SecurityEvent
		if err := c.Bind(&event); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Error parsing JSON")
		}

		logger.Infow("Received webhook",
			"type", event.Type,
			"user_id", event.UserID,
			"ip", event.IPAddress,
			"previous_ip", event.PreviousIP,
			"user_agent", event.UserAgent,
			"revoked", event.Revoked,
			"occurred_at", event.OccurredAt,
		)

		return c.String(http.StatusOK, "Webhook received!")
	})

	logger.Infof("Webhook receiver listening on %s", listenAddr)
	if err := e.Start(listenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
