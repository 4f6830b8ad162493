package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"workitems/domain/core/entities"
)

// ActionHistoryRepository is the typed CRUD surface for action_history and
// its child undo_steps, per spec §4.2.
type ActionHistoryRepository struct{}

// NewActionHistoryRepository constructs the repository.
func NewActionHistoryRepository() *ActionHistoryRepository {
	return &ActionHistoryRepository{}
}

// CreateAction inserts a new ActionHistory row and returns it with its
// generated id/timestamp populated by the caller before insert (the clock
// and id generator are owned by the orchestrator, per spec §9's "domain
// services share a common orchestrator context" direction).
func (r *ActionHistoryRepository) CreateAction(ctx context.Context, q Querier, a *entities.ActionHistory) error {
	_, err := q.Exec(ctx, `
		INSERT INTO action_history (action_id, action_type, timestamp, description, is_undone, undone_at_action_id)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ActionID, a.ActionType, a.Timestamp, a.Description, a.IsUndone, a.UndoneAtActionID)
	if err != nil {
		return fmt.Errorf("insert action: %w", err)
	}
	return nil
}

// AppendStep inserts one ordered undo step belonging to an action.
func (r *ActionHistoryRepository) AppendStep(ctx context.Context, q Querier, step *entities.UndoStep) error {
	_, err := q.Exec(ctx, `
		INSERT INTO undo_steps (action_id, step_order, step_type, table_name, record_id, old_data, new_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		step.ActionID, step.StepOrder, step.StepType, step.TableName, step.RecordID, step.OldData, step.NewData)
	if err != nil {
		return fmt.Errorf("insert undo step: %w", err)
	}
	return nil
}

func scanAction(row pgx.Row) (*entities.ActionHistory, error) {
	var a entities.ActionHistory
	err := row.Scan(&a.ActionID, &a.ActionType, &a.Timestamp, &a.Description, &a.IsUndone, &a.UndoneAtActionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan action: %w", err)
	}
	return &a, nil
}

const actionColumns = `action_id, action_type, timestamp, description, is_undone, undone_at_action_id`

// FindActionByID loads a single action-history row.
func (r *ActionHistoryRepository) FindActionByID(ctx context.Context, q Querier, id string) (*entities.ActionHistory, error) {
	return scanAction(q.QueryRow(ctx, `SELECT `+actionColumns+` FROM action_history WHERE action_id = $1`, id))
}

// StepsFor returns the ordered undo steps belonging to an action.
func (r *ActionHistoryRepository) StepsFor(ctx context.Context, q Querier, actionID string) ([]*entities.UndoStep, error) {
	rows, err := q.Query(ctx, `
		SELECT action_id, step_order, step_type, table_name, record_id, old_data, new_data
		FROM undo_steps WHERE action_id = $1 ORDER BY step_order ASC`, actionID)
	if err != nil {
		return nil, fmt.Errorf("query undo steps: %w", err)
	}
	defer rows.Close()

	var out []*entities.UndoStep
	for rows.Next() {
		var s entities.UndoStep
		if err := rows.Scan(&s.ActionID, &s.StepOrder, &s.StepType, &s.TableName, &s.RecordID, &s.OldData, &s.NewData); err != nil {
			return nil, fmt.Errorf("scan undo step: %w", err)
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate undo steps: %w", err)
	}
	return out, nil
}

// ListRecentActions implements list_history (spec §4.3.8): reads newest
// first, bounded by limit, optionally scoped to [afterTimestamp, beforeTimestamp].
func (r *ActionHistoryRepository) ListRecentActions(ctx context.Context, q Querier, limit int, afterTimestamp, beforeTimestamp *time.Time) ([]*entities.ActionHistory, error) {
	sql := `SELECT ` + actionColumns + ` FROM action_history WHERE true`
	args := make([]interface{}, 0, 3)
	n := 0
	next := func(v interface{}) string {
		n++
		args = append(args, v)
		return fmt.Sprintf("$%d", n)
	}
	if afterTimestamp != nil {
		sql += ` AND timestamp >= ` + next(*afterTimestamp)
	}
	if beforeTimestamp != nil {
		sql += ` AND timestamp <= ` + next(*beforeTimestamp)
	}
	sql += ` ORDER BY timestamp DESC LIMIT ` + next(limit)

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	var out []*entities.ActionHistory
	for rows.Next() {
		var a entities.ActionHistory
		if err := rows.Scan(&a.ActionID, &a.ActionType, &a.Timestamp, &a.Description, &a.IsUndone, &a.UndoneAtActionID); err != nil {
			return nil, fmt.Errorf("scan action row: %w", err)
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actions: %w", err)
	}
	return out, nil
}

// FindLastUndoable returns the most recent action with is_undone=false whose
// type is not UNDO_ACTION/REDO_ACTION, or ErrNotFound if there is none.
func (r *ActionHistoryRepository) FindLastUndoable(ctx context.Context, q Querier) (*entities.ActionHistory, error) {
	return scanAction(q.QueryRow(ctx, `
		SELECT `+actionColumns+` FROM action_history
		WHERE is_undone = false AND action_type NOT IN ($1, $2)
		ORDER BY timestamp DESC LIMIT 1`,
		entities.ActionUndo, entities.ActionRedo))
}

// FindLastRedoable returns the most recent UNDO_ACTION, but only when it is
// both the tail of the history (the single newest row overall) and its
// target is still is_undone=true. This is what keeps repeated redo calls,
// or a redo after any intervening mutation, reporting ErrNotFound instead
// of replaying a stale UNDO_ACTION: a redo or a new action always becomes
// the new tail with a different type, so the EXISTS/tail checks fail.
func (r *ActionHistoryRepository) FindLastRedoable(ctx context.Context, q Querier) (*entities.ActionHistory, error) {
	return scanAction(q.QueryRow(ctx, `
		WITH tail AS (
			SELECT `+actionColumns+` FROM action_history ORDER BY timestamp DESC LIMIT 1
		)
		SELECT tail.action_id, tail.action_type, tail.timestamp, tail.description,
			tail.is_undone, tail.undone_at_action_id
		FROM tail
		WHERE tail.action_type = $1
		AND EXISTS (
			SELECT 1 FROM action_history orig
			WHERE orig.undone_at_action_id = tail.action_id AND orig.is_undone = true
		)`, entities.ActionUndo))
}

// LockTail acquires a row lock on the most recent action, used by undo/redo
// under serializable isolation as the belt-and-braces advisory read spec §5
// calls for ("serializable, or explicit lock on the history table").
func (r *ActionHistoryRepository) LockTail(ctx context.Context, q Querier) error {
	_, err := q.Exec(ctx, `SELECT action_id FROM action_history ORDER BY timestamp DESC LIMIT 1 FOR UPDATE`)
	if err != nil {
		return fmt.Errorf("lock history tail: %w", err)
	}
	return nil
}

// MarkUndone flips is_undone=true on actionID and links it to the UNDO_ACTION
// that reverted it.
func (r *ActionHistoryRepository) MarkUndone(ctx context.Context, q Querier, actionID, byActionID string) error {
	_, err := q.Exec(ctx, `UPDATE action_history SET is_undone = true, undone_at_action_id = $2 WHERE action_id = $1`, actionID, byActionID)
	if err != nil {
		return fmt.Errorf("mark undone: %w", err)
	}
	return nil
}

// ClearUndone flips is_undone=false and clears the link, used by redo to
// restore the original action to ACTIVE.
func (r *ActionHistoryRepository) ClearUndone(ctx context.Context, q Querier, actionID string) error {
	_, err := q.Exec(ctx, `UPDATE action_history SET is_undone = false, undone_at_action_id = NULL WHERE action_id = $1`, actionID)
	if err != nil {
		return fmt.Errorf("clear undone: %w", err)
	}
	return nil
}
