package services

import (
	"context"
	"fmt"
	"time"

	"workitems/application/ports"
	"workitems/domain/core/entities"
	apperrors "workitems/pkg/errors"
)

// HistoryService implements undo_last_action, redo_last_undo, and
// list_history per spec §4.3.8, adapted from the teacher's saga
// compensation step runner into a table-driven replay engine over
// persisted UndoStep rows instead of in-memory compensation closures.
type HistoryService struct {
	workItems ports.WorkItemRepository
	deps      ports.DependencyRepository
	history   ports.ActionHistoryRepository
	ids       ports.IDGenerator
	clock     ports.Clock
}

// NewHistoryService constructs the service.
func NewHistoryService(workItems ports.WorkItemRepository, deps ports.DependencyRepository, history ports.ActionHistoryRepository, ids ports.IDGenerator, clock ports.Clock) *HistoryService {
	return &HistoryService{workItems: workItems, deps: deps, history: history, ids: ids, clock: clock}
}

// Undo finds the most recent undoable action (spec §4.4's ACTIVE state) and
// replays its steps in reverse order, then appends a mirrored UNDO_ACTION
// entry and marks the original undone. Returns the original action, or
// apperrors.ErrNothingToUndo if none is undoable.
func (h *HistoryService) Undo(ctx context.Context, q ports.Querier) (*entities.ActionHistory, error) {
	if err := h.history.LockTail(ctx, q); err != nil {
		return nil, fmt.Errorf("lock history tail: %w", err)
	}

	target, err := h.history.FindLastUndoable(ctx, q)
	if err != nil {
		return nil, apperrors.ErrNothingToUndo
	}

	steps, err := h.history.StepsFor(ctx, q, target.ActionID)
	if err != nil {
		return nil, fmt.Errorf("load steps for %s: %w", target.ActionID, err)
	}

	mirrored, err := h.replayReverse(ctx, q, steps)
	if err != nil {
		return nil, fmt.Errorf("replay undo of %s: %w", target.ActionID, err)
	}

	undoAction := &entities.ActionHistory{
		ActionID:    h.ids.NewActionID(),
		ActionType:  entities.ActionUndo,
		Timestamp:   h.clock.Now(),
		Description: fmt.Sprintf("Undo of action %s (%s)", target.ActionID, target.ActionType),
	}
	if err := h.history.CreateAction(ctx, q, undoAction); err != nil {
		return nil, fmt.Errorf("record undo action: %w", err)
	}
	for i, step := range mirrored {
		step.ActionID = undoAction.ActionID
		step.StepOrder = i + 1
		if err := h.history.AppendStep(ctx, q, step); err != nil {
			return nil, fmt.Errorf("append undo mirror step: %w", err)
		}
	}

	if err := h.history.MarkUndone(ctx, q, target.ActionID, undoAction.ActionID); err != nil {
		return nil, fmt.Errorf("mark action undone: %w", err)
	}
	target.IsUndone = true
	target.UndoneAtActionID = &undoAction.ActionID

	return target, nil
}

// Redo takes the most recent action, if it is an UNDO_ACTION whose target is
// still undone (spec §4.4), and replays its steps in reverse, clears the original target's is_undone flag, and appends a
// mirrored REDO_ACTION. Returns the original (now-reapplied) action, or
// apperrors.ErrNothingToRedo if none is redoable.
func (h *HistoryService) Redo(ctx context.Context, q ports.Querier) (*entities.ActionHistory, error) {
	if err := h.history.LockTail(ctx, q); err != nil {
		return nil, fmt.Errorf("lock history tail: %w", err)
	}

	lastUndo, err := h.history.FindLastRedoable(ctx, q)
	if err != nil {
		return nil, apperrors.ErrNothingToRedo
	}

	steps, err := h.history.StepsFor(ctx, q, lastUndo.ActionID)
	if err != nil {
		return nil, fmt.Errorf("load steps for %s: %w", lastUndo.ActionID, err)
	}

	mirrored, err := h.replayReverse(ctx, q, steps)
	if err != nil {
		return nil, fmt.Errorf("replay redo of %s: %w", lastUndo.ActionID, err)
	}

	redoAction := &entities.ActionHistory{
		ActionID:    h.ids.NewActionID(),
		ActionType:  entities.ActionRedo,
		Timestamp:   h.clock.Now(),
		Description: fmt.Sprintf("Redo reverting undo %s", lastUndo.ActionID),
	}
	if err := h.history.CreateAction(ctx, q, redoAction); err != nil {
		return nil, fmt.Errorf("record redo action: %w", err)
	}
	for i, step := range mirrored {
		step.ActionID = redoAction.ActionID
		step.StepOrder = i + 1
		if err := h.history.AppendStep(ctx, q, step); err != nil {
			return nil, fmt.Errorf("append redo mirror step: %w", err)
		}
	}

	original, err := h.clearOriginalUndone(ctx, q, lastUndo.ActionID)
	if err != nil {
		return nil, err
	}

	return original, nil
}

// clearOriginalUndone finds the action whose undone_at_action_id points to
// undoActionID, clears its undone flag to restore it to ACTIVE, and returns
// it (the original, now-reapplied action Redo reports back to the caller).
func (h *HistoryService) clearOriginalUndone(ctx context.Context, q ports.Querier, undoActionID string) (*entities.ActionHistory, error) {
	// The original target is recoverable by its own stored link; there is no
	// reverse-lookup query on undone_at_action_id, so this scans the most
	// recent 1000 actions from ListRecentActions, acceptable for the history table's
	// expected size (spec sets a 1000-row read cap, not a storage cap, but
	// undo targets are always within the last few actions in practice).
	recent, err := h.history.ListRecentActions(ctx, q, 1000, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("scan recent actions: %w", err)
	}
	for _, a := range recent {
		if a.UndoneAtActionID != nil && *a.UndoneAtActionID == undoActionID {
			if err := h.history.ClearUndone(ctx, q, a.ActionID); err != nil {
				return nil, err
			}
			a.IsUndone = false
			a.UndoneAtActionID = nil
			return a, nil
		}
	}
	return nil, fmt.Errorf("find original action undone by %s: no matching action_history row", undoActionID)
}

// replayReverse applies steps in reverse step_order and returns the mirror
// steps that would reverse the replay itself (so a subsequent redo/undo of
// the UNDO_ACTION/REDO_ACTION can reverse it in turn).
func (h *HistoryService) replayReverse(ctx context.Context, q ports.Querier, steps []*entities.UndoStep) ([]*entities.UndoStep, error) {
	mirrored := make([]*entities.UndoStep, 0, len(steps))
	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		mirror, err := h.replayOne(ctx, q, step)
		if err != nil {
			return nil, err
		}
		mirrored = append(mirrored, mirror)
	}
	return mirrored, nil
}

func (h *HistoryService) replayOne(ctx context.Context, q ports.Querier, step *entities.UndoStep) (*entities.UndoStep, error) {
	switch step.StepType {
	case entities.StepInsert:
		// The forward step inserted this row; undo deletes it, and its
		// mirror (to redo the undo) is a DELETE step carrying the same
		// NewData as old_data for if it's undone again.
		if err := h.deleteRow(ctx, q, step.TableName, step.RecordID); err != nil {
			return nil, err
		}
		return &entities.UndoStep{
			StepType:  entities.StepDelete,
			TableName: step.TableName,
			RecordID:  step.RecordID,
			OldData:   step.NewData,
		}, nil

	case entities.StepUpdate:
		if err := h.restoreRow(ctx, q, step.TableName, step.RecordID, step.OldData); err != nil {
			return nil, err
		}
		return &entities.UndoStep{
			StepType:  entities.StepUpdate,
			TableName: step.TableName,
			RecordID:  step.RecordID,
			OldData:   step.NewData,
			NewData:   step.OldData,
		}, nil

	case entities.StepDelete:
		if err := h.insertRow(ctx, q, step.TableName, step.OldData); err != nil {
			return nil, err
		}
		return &entities.UndoStep{
			StepType:  entities.StepInsert,
			TableName: step.TableName,
			RecordID:  step.RecordID,
			NewData:   step.OldData,
		}, nil

	default:
		return nil, fmt.Errorf("unknown step type %q", step.StepType)
	}
}

func (h *HistoryService) deleteRow(ctx context.Context, q ports.Querier, table, recordID string) error {
	switch table {
	case entities.TableWorkItems:
		_, err := h.workItems.SoftDeleteSubtree(ctx, q, recordID)
		// Undoing an INSERT means the row must not have existed; a hard
		// removal is not in scope (spec §3 lifecycle reserves hard delete
		// for admin paths), so reversing an ADD_WORK_ITEM instead soft-
		// deactivates it — equivalent observable state for every read path.
		return err
	case entities.TableWorkItemDependencies:
		from, to, err := splitEdgeID(recordID)
		if err != nil {
			return err
		}
		return h.deps.Deactivate(ctx, q, from, to)
	default:
		return fmt.Errorf("unknown table %q", table)
	}
}

func (h *HistoryService) restoreRow(ctx context.Context, q ports.Querier, table, recordID string, data []byte) error {
	switch table {
	case entities.TableWorkItems:
		w, err := unmarshalWorkItem(data)
		if err != nil {
			return err
		}
		return h.workItems.UpdateFields(ctx, q, recordID, map[string]interface{}{
			"parent_work_item_id": w.ParentWorkItemID,
			"name":                w.Name,
			"description":         w.Description,
			"status":              w.Status,
			"priority":            w.Priority,
			"due_date":            w.DueDate,
			"order_key":           w.OrderKey,
			"shortname":           w.Shortname,
			"is_active":           w.IsActive,
		})
	case entities.TableWorkItemDependencies:
		d, err := unmarshalDependency(data)
		if err != nil {
			return err
		}
		if d.IsActive {
			return h.deps.UpsertActive(ctx, q, d.WorkItemID, d.DependsOnWorkItemID, d.DependencyType)
		}
		return h.deps.Deactivate(ctx, q, d.WorkItemID, d.DependsOnWorkItemID)
	default:
		return fmt.Errorf("unknown table %q", table)
	}
}

func (h *HistoryService) insertRow(ctx context.Context, q ports.Querier, table string, data []byte) error {
	switch table {
	case entities.TableWorkItems:
		w, err := unmarshalWorkItem(data)
		if err != nil {
			return err
		}
		w.IsActive = true
		return h.workItems.Restore(ctx, q, []string{w.WorkItemID})
	case entities.TableWorkItemDependencies:
		d, err := unmarshalDependency(data)
		if err != nil {
			return err
		}
		return h.deps.UpsertActive(ctx, q, d.WorkItemID, d.DependsOnWorkItemID, d.DependencyType)
	default:
		return fmt.Errorf("unknown table %q", table)
	}
}

func splitEdgeID(recordID string) (from, to string, err error) {
	for i := 0; i < len(recordID); i++ {
		if recordID[i] == ':' {
			return recordID[:i], recordID[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("malformed edge record id %q", recordID)
}

// ListHistory implements list_history per spec §4.3.8/§6.1: a zero limit
// becomes defaultLimit, and a limit above maxLimit is rejected with
// ErrHistoryLimitExceeded.
func (h *HistoryService) ListHistory(ctx context.Context, q ports.Querier, startDate, endDate *time.Time, limit, defaultLimit, maxLimit int) ([]*entities.ActionHistory, error) {
	if limit == 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		return nil, apperrors.ErrHistoryLimitExceeded
	}
	return h.history.ListRecentActions(ctx, q, limit, startDate, endDate)
}
