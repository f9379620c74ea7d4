package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/switchboard/internal/domain"
)

// StartCall starts an automated-agent session for a new call. The media
// layer invokes this when a caller enters a room.
func (h *Handler) StartCall(c echo.Context) error {
	var req domain.StartCallRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.CallID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "call_id is required"})
	}

	if _, err := h.worker.StartCall(c.Request().Context(), req.CallID); err != nil {
		if errors.Is(err, domain.ErrDuplicateCall) {
			return c.JSON(http.StatusConflict, map[string]string{"error": "call already active"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to start call"})
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"call_id": req.CallID,
	})
}

// CallUtterance feeds one transcribed caller utterance to the agent and
// returns its reply. The speech transport normally drives this.
func (h *Handler) CallUtterance(c echo.Context) error {
	callID := c.Param("call_id")

	var req domain.UtteranceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	ctrl := h.worker.Get(callID)
	if ctrl == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown call"})
	}

	reply := ctrl.HandleUtterance(c.Request().Context(), req.Text)
	return c.JSON(http.StatusOK, domain.UtteranceResponse{Reply: reply})
}
