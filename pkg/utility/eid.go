package utility

import (
	"github.com/google/uuid"
)

// ExecutionID identifies one pipeline run. Trades and equity points persisted
// by a run are keyed by it.
type ExecutionID = uuid.UUID

// NewExecutionID returns a time ordered UUIDv7, so ids sort by run start.
func NewExecutionID() ExecutionID {
	return uuid.Must(uuid.NewV7())
}
