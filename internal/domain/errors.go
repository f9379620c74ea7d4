package domain

import "errors"

// Error taxonomy for switchboard operations. Store-level failures are
// returned as these sentinels and mapped to responses at the transport
// boundary; none of them is fatal to the process.
var (
	// ErrUnknownCall is returned when an operation references a call ID
	// that is not present in the session registry.
	ErrUnknownCall = errors.New("unknown call")

	// ErrDuplicateCall is returned on a registry collision. This should
	// not occur under correct call ID generation and is logged as a
	// logic fault.
	ErrDuplicateCall = errors.New("duplicate call id")

	// ErrAlreadyTransferring is returned when escalation is requested
	// twice for the same call. The agent keeps handling the call.
	ErrAlreadyTransferring = errors.New("transfer already in progress")

	// ErrNotFound is returned when a transfer ID is unknown to the ledger.
	ErrNotFound = errors.New("transfer not found")

	// ErrAlreadyHandled is returned to claim race losers and on stale IDs.
	ErrAlreadyHandled = errors.New("transfer already handled")

	// ErrSessionGone signals that a claim succeeded on the ledger but the
	// underlying call session has already been torn down. Soft warning;
	// the ledger transition stands.
	ErrSessionGone = errors.New("call session gone")

	// ErrCollaboratorFailure wraps transport-level failures from external
	// collaborators (media server, engine). Recoverable.
	ErrCollaboratorFailure = errors.New("collaborator failure")
)
