// Package domain defines the core domain models for the switchboard.
package domain

import "time"

// TransferStatus represents the lifecycle status of a transfer request.
type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "pending"
	TransferStatusAccepted  TransferStatus = "accepted"
	TransferStatusCompleted TransferStatus = "completed"
)

// TransferRequest represents one hand-off attempt from the automated
// agent to a human operator. Identity is immutable; status fields are
// mutated only by the ledger.
type TransferRequest struct {
	ID          string         `json:"id"`
	CallID      string         `json:"call_id"`
	Reason      string         `json:"reason"`
	Status      TransferStatus `json:"status"`
	Operator    string         `json:"operator,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	AcceptedAt  *time.Time     `json:"accepted_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// LogEntry is a single line of a call's conversation log.
type LogEntry struct {
	Role    string    `json:"role"` // caller, assistant, system
	Content string    `json:"content"`
	Ts      time.Time `json:"ts"`
}

// CreateTransferRequest is the body of POST /transfers.
type CreateTransferRequest struct {
	CallID string `json:"call_id"`
	Reason string `json:"reason"`
}

// CreateTransferResponse is the response of POST /transfers.
type CreateTransferResponse struct {
	Success  bool             `json:"success"`
	Transfer *TransferRequest `json:"transfer"`
}

// AcceptTransferRequest is the body of POST /transfers/:transfer_id/accept.
type AcceptTransferRequest struct {
	OperatorName string `json:"operator_name"`
}

// AcceptTransferResponse is the response of a successful accept. Token is
// a room-scoped join credential for the media server.
type AcceptTransferResponse struct {
	Success     bool             `json:"success"`
	Token       string           `json:"token"`
	RoomName    string           `json:"room_name"`
	MediaURL    string           `json:"media_url"`
	CallerInfo  *TransferRequest `json:"caller_info"`
	SessionGone bool             `json:"session_gone,omitempty"`
}

// StartCallRequest is the body of POST /calls, sent by the media layer
// when a caller enters a room.
type StartCallRequest struct {
	CallID string `json:"call_id"`
}

// UtteranceRequest is the body of POST /calls/:call_id/utterance.
type UtteranceRequest struct {
	Text string `json:"text"`
}

// UtteranceResponse carries the agent's spoken reply.
type UtteranceResponse struct {
	Reply string `json:"reply"`
}

// ListTransfersResponse is the response of GET /transfers.
type ListTransfersResponse struct {
	Transfers []TransferRequest `json:"transfers"`
	Count     int               `json:"count"`
}
