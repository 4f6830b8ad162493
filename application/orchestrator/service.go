// Package orchestrator exposes WorkItemService, the single facade spec
// §4.3 calls for: one type owning transaction boundaries and history
// recording, fanning out to the one-service-per-mutation-family layer in
// application/services. It plays the role the teacher's CommandBus/QueryBus
// pair plays, collapsed to a facade per the spec's explicit direction.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"workitems/application/ports"
	"workitems/application/services"
	"workitems/domain/core/entities"
	"workitems/domain/limits"
	apperrors "workitems/pkg/errors"
)

// Notifier is the external, best-effort post-commit observer spec §4.3's
// template calls for. A no-op implementation is used when no transport is
// wired; interfaces/http's SSE façade (out of scope for this core) would
// implement this to push change notifications to subscribers.
type Notifier interface {
	Notify(ctx context.Context, event string, payload interface{})
}

// NoopNotifier drops every notification; the default when nothing else is wired.
type NoopNotifier struct{}

// Notify does nothing.
func (NoopNotifier) Notify(context.Context, string, interface{}) {}

// Service is WorkItemService: the operation surface spec §6.1 names.
type Service struct {
	uow     ports.UnitOfWork
	history ports.ActionHistoryRepository
	ids     ports.IDGenerator
	clock   ports.Clock
	limits  limits.WorkItemLimits
	logger  *zap.Logger
	notify  Notifier

	add        *services.AddService
	fieldUpd   *services.FieldUpdateService
	depUpd     *services.DependencyUpdateService
	posUpd     *services.PositionUpdateService
	del        *services.DeleteService
	promote    *services.PromoteService
	hist       *services.HistoryService
	reading    *services.ReadingService
	importExp  *services.ImportExportService
	deps       ports.DependencyRepository
}

// New wires the orchestrator from its dependencies. Every mutating
// operation runs through uow; reading operations run in a non-serializable
// transaction from the same uow, committed once the read completes.
func New(
	uow ports.UnitOfWork,
	workItems ports.WorkItemRepository,
	deps ports.DependencyRepository,
	history ports.ActionHistoryRepository,
	ids ports.IDGenerator,
	clock ports.Clock,
	lim limits.WorkItemLimits,
	logger *zap.Logger,
	notify Notifier,
) *Service {
	shortnames := services.NewShortnameService(workItems, lim.MaxShortnameLength)
	if notify == nil {
		notify = NoopNotifier{}
	}
	return &Service{
		uow:       uow,
		history:   history,
		ids:       ids,
		clock:     clock,
		limits:    lim,
		logger:    logger,
		notify:    notify,
		deps:      deps,
		add:       services.NewAddService(workItems, shortnames, ids, clock),
		fieldUpd:  services.NewFieldUpdateService(workItems, shortnames, clock),
		depUpd:    services.NewDependencyUpdateService(workItems, deps),
		posUpd:    services.NewPositionUpdateService(workItems, clock),
		del:       services.NewDeleteService(workItems, deps),
		promote:   services.NewPromoteService(workItems, deps, clock),
		hist:      services.NewHistoryService(workItems, deps, history, ids, clock),
		reading:   services.NewReadingService(workItems, deps),
		importExp: services.NewImportExportService(workItems, deps, shortnames, ids, clock, lim.MaxImportDocumentBytes),
	}
}

// withTx runs fn inside a transaction, rolling back on any error and
// committing otherwise, matching spec §4.3's begin/validate/mutate/commit
// template. serializable selects the isolation level undo/redo require.
func (s *Service) withTx(ctx context.Context, serializable bool, fn func(ctx context.Context, q ports.Querier) error) error {
	tx, err := s.uow.Begin(ctx, serializable)
	if err != nil {
		return apperrors.NewDomainError(apperrors.DomainInfrastructureError, "TX_BEGIN_FAILED", "failed to begin transaction").WithCause(err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return apperrors.NewDomainError(apperrors.DomainInfrastructureError, "TX_COMMIT_FAILED", "failed to commit transaction").WithCause(err)
	}
	return nil
}

// recordAction persists one ActionHistory row plus its ordered undo steps
// inside the same transaction as the mutation that produced them.
func (s *Service) recordAction(ctx context.Context, q ports.Querier, actionType, description string, steps []*entities.UndoStep) error {
	action := &entities.ActionHistory{
		ActionID:    s.ids.NewActionID(),
		ActionType:  actionType,
		Timestamp:   s.clock.Now(),
		Description: description,
	}
	if err := s.history.CreateAction(ctx, q, action); err != nil {
		return fmt.Errorf("record action: %w", err)
	}
	for i, step := range steps {
		step.ActionID = action.ActionID
		step.StepOrder = i + 1
		if err := s.history.AppendStep(ctx, q, step); err != nil {
			return fmt.Errorf("record undo step: %w", err)
		}
	}
	return nil
}

// AddWorkItem implements add_work_item.
func (s *Service) AddWorkItem(ctx context.Context, in services.AddInput) (*entities.WorkItem, error) {
	var result *entities.WorkItem
	err := s.withTx(ctx, false, func(ctx context.Context, q ports.Querier) error {
		w, steps, err := s.add.Execute(ctx, q, s.deps, in)
		if err != nil {
			return err
		}
		if err := s.recordAction(ctx, q, entities.ActionAddWorkItem, fmt.Sprintf("Added work item %q", w.Name), steps); err != nil {
			return err
		}
		result = w
		return nil
	})
	if err != nil {
		return nil, s.logAndWrap(err, "add_work_item")
	}
	s.notify.Notify(ctx, "work_item.added", result)
	return result, nil
}

// SetField implements set_name/set_description/set_status/set_priority/set_due_date.
func (s *Service) SetField(ctx context.Context, id, field string, value interface{}) (*entities.WorkItem, error) {
	var result *entities.WorkItem
	err := s.withTx(ctx, false, func(ctx context.Context, q ports.Querier) error {
		w, steps, actionType, err := s.fieldUpd.Execute(ctx, q, id, field, value)
		if err != nil {
			return err
		}
		if err := s.recordAction(ctx, q, actionType, fmt.Sprintf("Updated %s on %s", field, id), steps); err != nil {
			return err
		}
		result = w
		return nil
	})
	if err != nil {
		return nil, s.logAndWrap(err, "set_field")
	}
	s.notify.Notify(ctx, "work_item.updated", result)
	return result, nil
}

// AddDependencies implements add_dependencies.
func (s *Service) AddDependencies(ctx context.Context, id string, edges []services.DependencyInput) error {
	err := s.withTx(ctx, false, func(ctx context.Context, q ports.Querier) error {
		steps, err := s.depUpd.AddEdges(ctx, q, id, edges)
		if err != nil {
			return err
		}
		return s.recordAction(ctx, q, entities.ActionAddDependencies, fmt.Sprintf("Added dependencies on %s", id), steps)
	})
	if err != nil {
		return s.logAndWrap(err, "add_dependencies")
	}
	s.notify.Notify(ctx, "dependencies.added", id)
	return nil
}

// DeleteDependencies implements delete_dependencies.
func (s *Service) DeleteDependencies(ctx context.Context, id string, dependsOnIDs []string) error {
	err := s.withTx(ctx, false, func(ctx context.Context, q ports.Querier) error {
		steps, err := s.depUpd.DeleteEdges(ctx, q, id, dependsOnIDs)
		if err != nil {
			return err
		}
		return s.recordAction(ctx, q, entities.ActionDeleteDependencies, fmt.Sprintf("Removed dependencies on %s", id), steps)
	})
	if err != nil {
		return s.logAndWrap(err, "delete_dependencies")
	}
	s.notify.Notify(ctx, "dependencies.deleted", id)
	return nil
}

// MoveItemBefore implements move_item_before.
func (s *Service) MoveItemBefore(ctx context.Context, targetID, anchorID string) (*entities.WorkItem, error) {
	return s.move(ctx, "move_item_before", func(ctx context.Context, q ports.Querier) (*entities.WorkItem, []*entities.UndoStep, error) {
		return s.posUpd.MoveBefore(ctx, q, targetID, anchorID)
	})
}

// MoveItemAfter implements move_item_after.
func (s *Service) MoveItemAfter(ctx context.Context, targetID, anchorID string) (*entities.WorkItem, error) {
	return s.move(ctx, "move_item_after", func(ctx context.Context, q ports.Querier) (*entities.WorkItem, []*entities.UndoStep, error) {
		return s.posUpd.MoveAfter(ctx, q, targetID, anchorID)
	})
}

// MoveItemToStart implements move_item_to_start.
func (s *Service) MoveItemToStart(ctx context.Context, targetID string) (*entities.WorkItem, error) {
	return s.move(ctx, "move_item_to_start", func(ctx context.Context, q ports.Querier) (*entities.WorkItem, []*entities.UndoStep, error) {
		return s.posUpd.MoveToStart(ctx, q, targetID)
	})
}

// MoveItemToEnd implements move_item_to_end.
func (s *Service) MoveItemToEnd(ctx context.Context, targetID string) (*entities.WorkItem, error) {
	return s.move(ctx, "move_item_to_end", func(ctx context.Context, q ports.Querier) (*entities.WorkItem, []*entities.UndoStep, error) {
		return s.posUpd.MoveToEnd(ctx, q, targetID)
	})
}

func (s *Service) move(ctx context.Context, opName string, fn func(ctx context.Context, q ports.Querier) (*entities.WorkItem, []*entities.UndoStep, error)) (*entities.WorkItem, error) {
	var result *entities.WorkItem
	err := s.withTx(ctx, false, func(ctx context.Context, q ports.Querier) error {
		w, steps, err := fn(ctx, q)
		if err != nil {
			return err
		}
		if err := s.recordAction(ctx, q, entities.ActionMoveItem, fmt.Sprintf("Moved work item %s", w.WorkItemID), steps); err != nil {
			return err
		}
		result = w
		return nil
	})
	if err != nil {
		return nil, s.logAndWrap(err, opName)
	}
	s.notify.Notify(ctx, "work_item.moved", result)
	return result, nil
}

// DeleteWorkItems implements delete_work_items.
func (s *Service) DeleteWorkItems(ctx context.Context, ids []string) (int, error) {
	var count int
	err := s.withTx(ctx, false, func(ctx context.Context, q ports.Querier) error {
		n, steps, err := s.del.Execute(ctx, q, ids, 1, s.limits.MaxDeleteBatch)
		if err != nil {
			return err
		}
		if err := s.recordAction(ctx, q, entities.ActionDeleteWorkItems, fmt.Sprintf("Deleted %d work item(s)", n), steps); err != nil {
			return err
		}
		count = n
		return nil
	})
	if err != nil {
		return 0, s.logAndWrap(err, "delete_work_items")
	}
	s.notify.Notify(ctx, "work_items.deleted", ids)
	return count, nil
}

// PromoteToProject implements promote_to_project.
func (s *Service) PromoteToProject(ctx context.Context, id string) (*entities.WorkItem, error) {
	var result *entities.WorkItem
	err := s.withTx(ctx, false, func(ctx context.Context, q ports.Querier) error {
		w, steps, err := s.promote.Execute(ctx, q, id)
		if err != nil {
			return err
		}
		if err := s.recordAction(ctx, q, entities.ActionPromoteToProject, fmt.Sprintf("Promoted %s to a project", id), steps); err != nil {
			return err
		}
		result = w
		return nil
	})
	if err != nil {
		return nil, s.logAndWrap(err, "promote_to_project")
	}
	s.notify.Notify(ctx, "work_item.promoted", result)
	return result, nil
}

// GetDetails implements get_details.
func (s *Service) GetDetails(ctx context.Context, id string) (*services.WorkItemDetails, error) {
	var result *services.WorkItemDetails
	err := s.withTx(ctx, false, func(ctx context.Context, q ports.Querier) error {
		details, err := s.reading.GetDetails(ctx, q, id)
		if err != nil {
			return err
		}
		result = details
		return nil
	})
	if err != nil {
		return nil, s.logAndWrap(err, "get_details")
	}
	return result, nil
}

// ListWorkItems implements list_work_items.
func (s *Service) ListWorkItems(ctx context.Context, filter ports.WorkItemFilter) ([]*entities.WorkItem, error) {
	var result []*entities.WorkItem
	err := s.withTx(ctx, false, func(ctx context.Context, q ports.Querier) error {
		items, err := s.reading.ListWorkItems(ctx, q, filter)
		if err != nil {
			return err
		}
		result = items
		return nil
	})
	if err != nil {
		return nil, s.logAndWrap(err, "list_work_items")
	}
	return result, nil
}

// GetFullTree implements get_full_tree.
func (s *Service) GetFullTree(ctx context.Context, rootID string, includeInactiveItems, includeInactiveDeps bool, maxDepth int) (*services.TreeNode, error) {
	var result *services.TreeNode
	err := s.withTx(ctx, false, func(ctx context.Context, q ports.Querier) error {
		tree, err := s.reading.GetFullTree(ctx, q, rootID, includeInactiveItems, includeInactiveDeps, maxDepth, s.limits.MaxTreeDepth)
		if err != nil {
			return err
		}
		result = tree
		return nil
	})
	if err != nil {
		return nil, s.logAndWrap(err, "get_full_tree")
	}
	return result, nil
}

// ExportProject implements export_project.
func (s *Service) ExportProject(ctx context.Context, id string) ([]byte, error) {
	var result []byte
	err := s.withTx(ctx, false, func(ctx context.Context, q ports.Querier) error {
		doc, err := s.importExp.Export(ctx, q, id)
		if err != nil {
			return err
		}
		result = doc
		return nil
	})
	if err != nil {
		return nil, s.logAndWrap(err, "export_project")
	}
	return result, nil
}

// ImportProject implements import_project.
func (s *Service) ImportProject(ctx context.Context, doc []byte, newName *string) (*entities.WorkItem, error) {
	var result *entities.WorkItem
	err := s.withTx(ctx, false, func(ctx context.Context, q ports.Querier) error {
		w, steps, err := s.importExp.Import(ctx, q, doc, newName)
		if err != nil {
			return err
		}
		if err := s.recordAction(ctx, q, entities.ActionImportProject, fmt.Sprintf("Imported project %q", w.Name), steps); err != nil {
			return err
		}
		result = w
		return nil
	})
	if err != nil {
		return nil, s.logAndWrap(err, "import_project")
	}
	s.notify.Notify(ctx, "project.imported", result)
	return result, nil
}

// UndoLastAction implements undo_last_action, run at Serializable isolation
// per spec §5.
func (s *Service) UndoLastAction(ctx context.Context) (*entities.ActionHistory, error) {
	var result *entities.ActionHistory
	err := s.withTx(ctx, true, func(ctx context.Context, q ports.Querier) error {
		a, err := s.hist.Undo(ctx, q)
		if err != nil {
			return err
		}
		result = a
		return nil
	})
	if err != nil {
		if err == apperrors.ErrNothingToUndo {
			return nil, nil
		}
		return nil, s.logAndWrap(err, "undo_last_action")
	}
	s.notify.Notify(ctx, "action.undone", result)
	return result, nil
}

// RedoLastUndo implements redo_last_undo, run at Serializable isolation per
// spec §5.
func (s *Service) RedoLastUndo(ctx context.Context) (*entities.ActionHistory, error) {
	var result *entities.ActionHistory
	err := s.withTx(ctx, true, func(ctx context.Context, q ports.Querier) error {
		a, err := s.hist.Redo(ctx, q)
		if err != nil {
			return err
		}
		result = a
		return nil
	})
	if err != nil {
		if err == apperrors.ErrNothingToRedo {
			return nil, nil
		}
		return nil, s.logAndWrap(err, "redo_last_undo")
	}
	s.notify.Notify(ctx, "action.redone", result)
	return result, nil
}

// ListHistory implements list_history.
func (s *Service) ListHistory(ctx context.Context, startDate, endDate *time.Time, limit int) ([]*entities.ActionHistory, error) {
	var result []*entities.ActionHistory
	err := s.withTx(ctx, false, func(ctx context.Context, q ports.Querier) error {
		actions, err := s.hist.ListHistory(ctx, q, startDate, endDate, limit, s.limits.DefaultHistoryLimit, s.limits.MaxHistoryLimit)
		if err != nil {
			return err
		}
		result = actions
		return nil
	})
	if err != nil {
		return nil, s.logAndWrap(err, "list_history")
	}
	return result, nil
}

// logAndWrap logs internal errors with full context per spec §7's policy
// ("internal errors... logged with full context") and passes validation/
// not-found errors through untouched so external callers see the precise
// domain error.
func (s *Service) logAndWrap(err error, operation string) error {
	if _, ok := err.(*apperrors.DomainError); ok {
		return err
	}
	s.logger.Error("operation failed",
		zap.String("operation", operation),
		zap.Error(err),
	)
	return apperrors.NewDomainError(apperrors.DomainInfrastructureError, "INTERNAL_ERROR", "an internal error occurred").WithCause(err)
}
