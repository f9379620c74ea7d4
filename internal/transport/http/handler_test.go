package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/switchboard/internal/adapter/engine"
	"github.com/xiaot623/switchboard/internal/adapter/media"
	"github.com/xiaot623/switchboard/internal/config"
	"github.com/xiaot623/switchboard/internal/coordinator"
	"github.com/xiaot623/switchboard/internal/directory"
	"github.com/xiaot623/switchboard/internal/domain"
	"github.com/xiaot623/switchboard/internal/ledger"
	"github.com/xiaot623/switchboard/internal/registry"
	"github.com/xiaot623/switchboard/internal/token"
	handler "github.com/xiaot623/switchboard/internal/transport/http"
	"github.com/xiaot623/switchboard/internal/worker"
)

type fakeSession struct {
	callID       string
	mu           sync.Mutex
	transferring bool
	disengaged   bool
}

func (f *fakeSession) CallID() string { return f.callID }

func (f *fakeSession) BeginTransfer() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transferring {
		return false
	}
	f.transferring = true
	return true
}

func (f *fakeSession) SignalDisengage() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disengaged = true
}

type fixture struct {
	h   *handler.Handler
	e   *echo.Echo
	reg *registry.Registry
	led *ledger.Ledger
	wrk *worker.Worker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := &config.Config{
		MediaURL:       "wss://media.example.com",
		MediaAPIKey:    "api-key",
		MediaAPISecret: "api-secret",
		TokenTTL:       time.Hour,
	}
	reg := registry.New()
	led := ledger.New(reg, nil)
	dir := directory.New()
	coord := coordinator.New(reg, led, dir)
	issuer := token.NewIssuer(cfg.MediaAPIKey, cfg.MediaAPISecret, cfg.TokenTTL)
	wrk := worker.New(media.NewSimProvider(), engine.NewScripted(), reg, coord, nil)

	return &fixture{
		h:   handler.NewHandler(coord, reg, led, dir, nil, issuer, wrk, cfg),
		e:   echo.New(),
		reg: reg,
		led: led,
		wrk: wrk,
	}
}

func (f *fixture) request(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return rec, f.e.NewContext(req, rec)
}

func TestListTransfersEmpty(t *testing.T) {
	f := newFixture(t)

	rec, c := f.request(t, http.MethodGet, "/transfers", nil)
	require.NoError(t, f.h.ListTransfers(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp domain.ListTransfersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Count)
	assert.NotNil(t, resp.Transfers)
}

func TestCreateTransfer(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.reg.Register(&fakeSession{callID: "room-1"}))

	rec, c := f.request(t, http.MethodPost, "/transfers", domain.CreateTransferRequest{
		CallID: "room-1",
		Reason: "wants human",
	})
	require.NoError(t, f.h.CreateTransfer(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp domain.CreateTransferResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Transfer)
	assert.Equal(t, "room-1", resp.Transfer.CallID)
	assert.Equal(t, domain.TransferStatusPending, resp.Transfer.Status)
}

func TestCreateTransferUnknownCall(t *testing.T) {
	f := newFixture(t)

	rec, c := f.request(t, http.MethodPost, "/transfers", domain.CreateTransferRequest{
		CallID: "room-ghost",
	})
	require.NoError(t, f.h.CreateTransfer(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestCreateTransferDuplicate(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.reg.Register(&fakeSession{callID: "room-1"}))

	rec, c := f.request(t, http.MethodPost, "/transfers", domain.CreateTransferRequest{CallID: "room-1"})
	require.NoError(t, f.h.CreateTransfer(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, c = f.request(t, http.MethodPost, "/transfers", domain.CreateTransferRequest{CallID: "room-1"})
	require.NoError(t, f.h.CreateTransfer(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func (f *fixture) createPendingTransfer(t *testing.T, callID string) string {
	t.Helper()
	require.NoError(t, f.reg.Register(&fakeSession{callID: callID}))

	rec, c := f.request(t, http.MethodPost, "/transfers", domain.CreateTransferRequest{CallID: callID})
	require.NoError(t, f.h.CreateTransfer(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp domain.CreateTransferResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Transfer.ID
}

func (f *fixture) accept(t *testing.T, transferID, operator string) *httptest.ResponseRecorder {
	t.Helper()

	rec, c := f.request(t, http.MethodPost, "/transfers/"+transferID+"/accept", domain.AcceptTransferRequest{
		OperatorName: operator,
	})
	c.SetPath("/transfers/:transfer_id/accept")
	c.SetParamNames("transfer_id")
	c.SetParamValues(transferID)
	require.NoError(t, f.h.AcceptTransfer(c))
	return rec
}

func TestAcceptTransfer(t *testing.T) {
	f := newFixture(t)
	id := f.createPendingTransfer(t, "room-1")

	rec := f.accept(t, id, "alice")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp domain.AcceptTransferResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "room-1", resp.RoomName)
	assert.Equal(t, "wss://media.example.com", resp.MediaURL)
	require.NotNil(t, resp.CallerInfo)
	assert.Equal(t, "alice", resp.CallerInfo.Operator)
	assert.False(t, resp.SessionGone)
}

func TestAcceptTransferRaceLoser(t *testing.T) {
	f := newFixture(t)
	id := f.createPendingTransfer(t, "room-1")

	rec := f.accept(t, id, "alice")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.accept(t, id, "bob")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already handled")
}

func TestAcceptTransferNotFound(t *testing.T) {
	f := newFixture(t)

	rec := f.accept(t, "tr_bogus", "alice")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not found")
}

func TestAcceptTransferSessionGone(t *testing.T) {
	f := newFixture(t)
	id := f.createPendingTransfer(t, "room-1")

	// Call ends between escalation and claim.
	f.reg.Unregister("room-1")

	rec := f.accept(t, id, "alice")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp domain.AcceptTransferResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Token)
	assert.True(t, resp.SessionGone)
}

func TestCompleteTransferIdempotent(t *testing.T) {
	f := newFixture(t)
	id := f.createPendingTransfer(t, "room-1")

	for i := 0; i < 2; i++ {
		rec, c := f.request(t, http.MethodPost, "/transfers/"+id+"/complete", nil)
		c.SetPath("/transfers/:transfer_id/complete")
		c.SetParamNames("transfer_id")
		c.SetParamValues(id)
		require.NoError(t, f.h.CompleteTransfer(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "true")
	}

	found := f.led.FindByID(id)
	require.NotNil(t, found)
	assert.Equal(t, domain.TransferStatusCompleted, found.Status)
}

func TestRootStatus(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.reg.Register(&fakeSession{callID: "room-1"}))

	rec, c := f.request(t, http.MethodGet, "/", nil)
	require.NoError(t, f.h.Root(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "running", resp["status"])
	assert.Equal(t, float64(1), resp["active_calls"])
	assert.Equal(t, float64(0), resp["pending_transfers"])
}
