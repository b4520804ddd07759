package feed

import "github.com/google/uuid"

// TxID is a client-generated idempotency token. It is created once per
// logical submission and reused across network retries of that same
// submission, so the server can deduplicate repeated deliveries.
type TxID string

// NewTxID returns a process-unique token with negligible collision
// probability. No network round trip, no error conditions.
func NewTxID() TxID {
	return TxID(uuid.NewString())
}
