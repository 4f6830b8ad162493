package entities

import "time"

// Action type constants. UndoAction and RedoAction are themselves ordinary
// actions recorded in the history, but per the spec's state machine they are
// never targets of further undo.
const (
	ActionAddWorkItem          = "ADD_WORK_ITEM"
	ActionUpdateWorkItemPrefix = "UPDATE_WORK_ITEM_" // + field name, e.g. _NAME
	ActionAddDependencies      = "ADD_DEPENDENCIES"
	ActionDeleteDependencies   = "DELETE_DEPENDENCIES"
	ActionMoveItem             = "MOVE_WORK_ITEM"
	ActionDeleteWorkItems      = "DELETE_WORK_ITEMS"
	ActionPromoteToProject     = "PROMOTE_TO_PROJECT"
	ActionImportProject        = "IMPORT_PROJECT"
	ActionUndo                 = "UNDO_ACTION"
	ActionRedo                 = "REDO_ACTION"
)

// IsUndoOrRedo reports whether an action type is one of the two meta-actions
// that record the effect of undoing/redoing another action. They are never
// themselves undoable.
func IsUndoOrRedo(actionType string) bool {
	return actionType == ActionUndo || actionType == ActionRedo
}

// ActionHistory is a single append-only, compensable mutation record.
type ActionHistory struct {
	ActionID         string
	ActionType       string
	Timestamp        time.Time
	Description      string
	IsUndone         bool
	UndoneAtActionID *string
}

// StepType classifies how a single undo step reverses part of a mutation.
type StepType string

const (
	StepInsert StepType = "INSERT"
	StepUpdate StepType = "UPDATE"
	StepDelete StepType = "DELETE"
)

// UndoStep is one ordered, table-scoped compensating operation belonging to
// an ActionHistory entry. OldData/NewData carry JSON row snapshots:
//   - INSERT: NewData only (undo deletes the row; redo re-inserts it).
//   - DELETE: OldData only (undo re-inserts the row; redo deletes it).
//   - UPDATE: both OldData and NewData (undo restores OldData columns).
type UndoStep struct {
	ActionID  string
	StepOrder int
	StepType  StepType
	TableName string
	RecordID  string
	OldData   []byte
	NewData   []byte
}

// Table name constants used across undo steps and repositories.
const (
	TableWorkItems           = "work_items"
	TableWorkItemDependencies = "work_item_dependencies"
)
