package valueobjects

import "github.com/google/uuid"

// WorkItemID is the immutable identity of a work item.
type WorkItemID uuid.UUID

// NewWorkItemID generates a new random work item identifier.
func NewWorkItemID() WorkItemID {
	return WorkItemID(uuid.New())
}

// ParseWorkItemID parses a canonical UUID string into a WorkItemID.
func ParseWorkItemID(s string) (WorkItemID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return WorkItemID{}, err
	}
	return WorkItemID(id), nil
}

// String returns the canonical lowercase-hyphenated representation.
func (id WorkItemID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether the id is the zero value (unset).
func (id WorkItemID) IsZero() bool {
	return uuid.UUID(id) == uuid.Nil
}

// Equals compares two work item identifiers.
func (id WorkItemID) Equals(other WorkItemID) bool {
	return uuid.UUID(id) == uuid.UUID(other)
}

// ActionID is the identity of an action-history entry.
type ActionID uuid.UUID

// NewActionID generates a new random action identifier.
func NewActionID() ActionID {
	return ActionID(uuid.New())
}

// ParseActionID parses a canonical UUID string into an ActionID.
func ParseActionID(s string) (ActionID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ActionID{}, err
	}
	return ActionID(id), nil
}

// String returns the canonical lowercase-hyphenated representation.
func (id ActionID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether the id is the zero value (unset).
func (id ActionID) IsZero() bool {
	return uuid.UUID(id) == uuid.Nil
}
