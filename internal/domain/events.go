package domain

// Event types pushed to operator channels.
const (
	EventTypeConnected        = "connected"
	EventTypeIncomingCall     = "incoming_call"
	EventTypeTransferAccepted = "transfer_accepted"
)

// ConnectedEvent is sent to an operator channel right after it connects.
type ConnectedEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// IncomingCallEvent announces a new pending transfer to all operators.
type IncomingCallEvent struct {
	Type     string           `json:"type"`
	Transfer *TransferRequest `json:"transfer"`
}

// TransferAcceptedEvent tells the remaining operators a transfer was
// claimed. Carries the ID only, not the full request.
type TransferAcceptedEvent struct {
	Type       string `json:"type"`
	TransferID string `json:"transfer_id"`
}
