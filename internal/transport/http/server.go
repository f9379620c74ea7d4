package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xiaot623/switchboard/internal/transport/ws"
)

// NewServer creates and configures the public HTTP server: the transfer
// control surface plus the operator WebSocket endpoint.
func NewServer(h *Handler, wsServer *ws.Server) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	h.RegisterRoutes(e)
	e.GET("/ws/operator", wsServer.HandleOperator)

	return e
}
