// Package http provides the switchboard's HTTP control surface.
package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/switchboard/internal/archive"
	"github.com/xiaot623/switchboard/internal/config"
	"github.com/xiaot623/switchboard/internal/coordinator"
	"github.com/xiaot623/switchboard/internal/directory"
	"github.com/xiaot623/switchboard/internal/domain"
	"github.com/xiaot623/switchboard/internal/ledger"
	"github.com/xiaot623/switchboard/internal/registry"
	"github.com/xiaot623/switchboard/internal/token"
	"github.com/xiaot623/switchboard/internal/worker"
)

const historyLimit = 100

// Handler handles HTTP requests.
type Handler struct {
	coord  *coordinator.Coordinator
	reg    *registry.Registry
	ledger *ledger.Ledger
	dir    *directory.Directory
	arch   *archive.SQLiteArchive
	issuer *token.Issuer
	worker *worker.Worker
	cfg    *config.Config
}

// NewHandler creates a new handler. arch may be nil (memory-only mode).
func NewHandler(coord *coordinator.Coordinator, reg *registry.Registry, led *ledger.Ledger, dir *directory.Directory, arch *archive.SQLiteArchive, issuer *token.Issuer, wrk *worker.Worker, cfg *config.Config) *Handler {
	return &Handler{
		coord:  coord,
		reg:    reg,
		ledger: led,
		dir:    dir,
		arch:   arch,
		issuer: issuer,
		worker: wrk,
		cfg:    cfg,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Root)
	e.GET("/transfers", h.ListTransfers)
	e.GET("/transfers/history", h.TransferHistory)
	e.POST("/transfers", h.CreateTransfer)
	e.POST("/transfers/:transfer_id/accept", h.AcceptTransfer)
	e.POST("/transfers/:transfer_id/complete", h.CompleteTransfer)

	e.POST("/calls", h.StartCall)
	e.POST("/calls/:call_id/utterance", h.CallUtterance)

	e.GET("/health", h.Health)
}

// Root returns a status summary for the dashboard.
func (h *Handler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":            "running",
		"message":           "Switchboard call center backend",
		"operators_online":  h.dir.Count(),
		"pending_transfers": len(h.ledger.ListPending()),
		"active_calls":      h.reg.Count(),
	})
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// ListTransfers returns all pending transfers.
func (h *Handler) ListTransfers(c echo.Context) error {
	pending := h.ledger.ListPending()
	if pending == nil {
		pending = []domain.TransferRequest{}
	}
	return c.JSON(http.StatusOK, domain.ListTransfersResponse{
		Transfers: pending,
		Count:     len(pending),
	})
}

// TransferHistory returns archived transfers, newest first. Without an
// archive the history is empty.
func (h *Handler) TransferHistory(c echo.Context) error {
	transfers := []domain.TransferRequest{}
	if h.arch != nil {
		archived, err := h.arch.ListTransfers(c.Request().Context(), historyLimit)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to read archive"})
		}
		if archived != nil {
			transfers = archived
		}
	}
	return c.JSON(http.StatusOK, domain.ListTransfersResponse{
		Transfers: transfers,
		Count:     len(transfers),
	})
}

// CreateTransfer creates a new transfer request for a call.
func (h *Handler) CreateTransfer(c echo.Context) error {
	var req domain.CreateTransferRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.CallID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "call_id is required"})
	}
	if req.Reason == "" {
		req.Reason = "Customer request"
	}

	transfer, err := h.coord.RequestEscalation(c.Request().Context(), req.CallID, req.Reason)
	switch {
	case errors.Is(err, domain.ErrUnknownCall):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown call"})
	case errors.Is(err, domain.ErrAlreadyTransferring):
		return c.JSON(http.StatusConflict, map[string]string{"error": "transfer already in progress"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create transfer"})
	}

	return c.JSON(http.StatusCreated, domain.CreateTransferResponse{
		Success:  true,
		Transfer: transfer,
	})
}

// AcceptTransfer resolves an operator's claim and issues room-scoped
// join credentials. Exactly one operator can win a given transfer.
func (h *Handler) AcceptTransfer(c echo.Context) error {
	transferID := c.Param("transfer_id")

	var req domain.AcceptTransferRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.OperatorName == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "operator_name is required"})
	}

	transfer, _, err := h.coord.Claim(c.Request().Context(), transferID, req.OperatorName)
	sessionGone := false
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Transfer not found"})
	case errors.Is(err, domain.ErrAlreadyHandled):
		return c.JSON(http.StatusConflict, map[string]string{"error": "Transfer already handled"})
	case errors.Is(err, domain.ErrSessionGone):
		// The claim stands; the operator still gets credentials in case
		// the caller is waiting alone in the room.
		sessionGone = true
	case err != nil:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to accept transfer"})
	}

	jwt, err := h.issuer.OperatorToken(transfer.CallID, req.OperatorName)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to issue credentials"})
	}

	return c.JSON(http.StatusOK, domain.AcceptTransferResponse{
		Success:     true,
		Token:       jwt,
		RoomName:    transfer.CallID,
		MediaURL:    h.cfg.MediaURL,
		CallerInfo:  transfer,
		SessionGone: sessionGone,
	})
}

// CompleteTransfer marks a transfer completed. Idempotent: it succeeds
// regardless of prior state.
func (h *Handler) CompleteTransfer(c echo.Context) error {
	h.coord.EndTransfer(c.Request().Context(), c.Param("transfer_id"))
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}
