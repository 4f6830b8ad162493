package services

import (
	"time"

	"workitems/domain/core/valueobjects"
)

// SystemClock is the production ports.Clock, backed by time.Now.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// UUIDGenerator is the production ports.IDGenerator, backed by
// github.com/google/uuid via domain/core/valueobjects.
type UUIDGenerator struct{}

// NewWorkItemID generates a new work item identifier.
func (UUIDGenerator) NewWorkItemID() string {
	return valueobjects.NewWorkItemID().String()
}

// NewActionID generates a new action identifier.
func (UUIDGenerator) NewActionID() string {
	return valueobjects.NewActionID().String()
}
