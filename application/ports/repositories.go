// Package ports declares the interfaces the application layer depends on,
// satisfied by infrastructure/persistence/postgres. Keeping these as
// interfaces lets domain services be exercised against a fake in unit tests
// without a live database, mirroring the teacher's application/ports
// abstraction over its DynamoDB repositories.
package ports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"workitems/domain/core/entities"
	"workitems/infrastructure/persistence/postgres"
)

// Querier is the transaction-or-pool handle every repository method takes.
// It is an alias for postgres.Querier (not a fresh interface) so that
// *postgres.WorkItemRepository and *postgres.ActionHistoryRepository, whose
// methods are declared against postgres.Querier, satisfy the interfaces
// below without an adapter layer.
type Querier = postgres.Querier

// WorkItemFilter narrows list(filter) per spec §4.3.7/§6.1.
type WorkItemFilter = postgres.WorkItemFilter

// WorkItemRepository is the typed CRUD + query surface for work_items.
type WorkItemRepository interface {
	Create(ctx context.Context, q Querier, w *entities.WorkItem) error
	FindByID(ctx context.Context, q Querier, id string, includeInactive bool) (*entities.WorkItem, error)
	List(ctx context.Context, q Querier, filter WorkItemFilter) ([]*entities.WorkItem, error)
	FindChildren(ctx context.Context, q Querier, parentID string, includeInactive bool) ([]*entities.WorkItem, error)
	FindDescendants(ctx context.Context, q Querier, rootID string, maxDepth int, includeInactive bool) ([]*entities.WorkItem, error)
	UpdateFields(ctx context.Context, q Querier, id string, patch map[string]interface{}) error
	SoftDeleteSubtree(ctx context.Context, q Querier, rootID string) ([]string, error)
	Restore(ctx context.Context, q Querier, ids []string) error
}

// DependencyRepository is the work_item_dependencies subcomponent.
type DependencyRepository interface {
	UpsertActive(ctx context.Context, q Querier, from, to string, depType entities.DependencyType) error
	Deactivate(ctx context.Context, q Querier, from, to string) error
	Find(ctx context.Context, q Querier, from, to string) (*entities.Dependency, error)
	FindOutgoing(ctx context.Context, q Querier, id string, includeInactive bool) ([]*entities.Dependency, error)
	FindIncoming(ctx context.Context, q Querier, id string, includeInactive bool) ([]*entities.Dependency, error)
	WouldCreateCycle(ctx context.Context, q Querier, from, to string) (bool, error)
}

// ActionHistoryRepository is the typed CRUD surface for action_history and
// undo_steps.
type ActionHistoryRepository interface {
	CreateAction(ctx context.Context, q Querier, a *entities.ActionHistory) error
	AppendStep(ctx context.Context, q Querier, step *entities.UndoStep) error
	FindActionByID(ctx context.Context, q Querier, id string) (*entities.ActionHistory, error)
	StepsFor(ctx context.Context, q Querier, actionID string) ([]*entities.UndoStep, error)
	ListRecentActions(ctx context.Context, q Querier, limit int, afterTimestamp, beforeTimestamp *time.Time) ([]*entities.ActionHistory, error)
	FindLastUndoable(ctx context.Context, q Querier) (*entities.ActionHistory, error)
	FindLastRedoable(ctx context.Context, q Querier) (*entities.ActionHistory, error)
	LockTail(ctx context.Context, q Querier) error
	MarkUndone(ctx context.Context, q Querier, actionID, byActionID string) error
	ClearUndone(ctx context.Context, q Querier, actionID string) error
}

// Tx is an in-flight transaction: both a Querier repositories accept and the
// handle to commit or roll it back. Aliased to pgx.Tx (rather than a fresh
// interface) so postgres.UnitOfWork.Begin's return type matches exactly.
type Tx = pgx.Tx

// UnitOfWork begins a transaction scoped to one orchestrator operation, per
// the begin-tx template of spec §4.3. serializable selects
// pgx.Serializable isolation, required for undo_last_action/redo_last_undo
// by spec §5.
type UnitOfWork interface {
	Begin(ctx context.Context, serializable bool) (Tx, error)
}

// Clock supplies the current time, injected so tests can control it instead
// of services calling time.Now() directly, per spec §9's "domain services
// share a common orchestrator context (transaction, clock, id generator)".
type Clock interface {
	Now() time.Time
}

// IDGenerator supplies new identifiers, injected for the same reason as Clock.
type IDGenerator interface {
	NewWorkItemID() string
	NewActionID() string
}
