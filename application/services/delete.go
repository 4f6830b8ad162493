package services

import (
	"context"
	"fmt"

	"workitems/application/ports"
	"workitems/domain/core/entities"
	apperrors "workitems/pkg/errors"
)

// DeleteService implements delete_work_items (soft delete) per spec §4.3.5.
type DeleteService struct {
	workItems ports.WorkItemRepository
	deps      ports.DependencyRepository
}

// NewDeleteService constructs the service.
func NewDeleteService(workItems ports.WorkItemRepository, deps ports.DependencyRepository) *DeleteService {
	return &DeleteService{workItems: workItems, deps: deps}
}

// Execute soft-deletes each listed id's active descendant subtree (and the
// dependency edges touching removed items), returning the affected count
// and the undo steps needed to restore the exact prior active set:
// dependencies before items, items deepest-first, per spec §4.3.5.
func (s *DeleteService) Execute(ctx context.Context, q ports.Querier, ids []string, minBatch, maxBatch int) (int, []*entities.UndoStep, error) {
	if len(ids) < minBatch {
		return 0, nil, apperrors.ErrEmptyIDList
	}
	if len(ids) > maxBatch {
		return 0, nil, apperrors.ErrTooManyIDs
	}

	affectedItems := map[string]*entities.WorkItem{}
	var orderedItemIDs []string
	for _, id := range ids {
		deleted, err := s.workItems.SoftDeleteSubtree(ctx, q, id)
		if err != nil {
			return 0, nil, fmt.Errorf("soft delete subtree %s: %w", id, err)
		}
		for _, deletedID := range deleted {
			if _, seen := affectedItems[deletedID]; seen {
				continue
			}
			// Row is already soft-deleted at this point; re-read to capture
			// the post-mutation snapshot for the undo step's new_data. The
			// matching old_data (is_active=true) is rebuilt below where the
			// update step is actually assembled.
			row, err := s.workItems.FindByID(ctx, q, deletedID, true)
			if err != nil {
				return 0, nil, fmt.Errorf("reload deleted row %s: %w", deletedID, err)
			}
			affectedItems[deletedID] = row
			orderedItemIDs = append(orderedItemIDs, deletedID)
		}
	}

	var steps []*entities.UndoStep
	order := 1

	// Dependency edges touching any removed item are recorded first, so undo
	// (which replays steps in reverse) restores the items before the edges
	// that reference them.
	for _, id := range orderedItemIDs {
		for _, dep := range s.touchingEdges(ctx, q, id) {
			if !dep.IsActive {
				continue
			}
			oldSnapshot := dep.Clone()
			if err := s.deps.Deactivate(ctx, q, dep.WorkItemID, dep.DependsOnWorkItemID); err != nil {
				return 0, nil, fmt.Errorf("deactivate touching edge: %w", err)
			}
			newSnapshot := oldSnapshot
			newSnapshot.IsActive = false
			steps = append(steps, &entities.UndoStep{
				StepOrder: order,
				StepType:  entities.StepUpdate,
				TableName: entities.TableWorkItemDependencies,
				RecordID:  dep.WorkItemID + ":" + dep.DependsOnWorkItemID,
				OldData:   snapshotDependency(&oldSnapshot),
				NewData:   snapshotDependency(&newSnapshot),
			})
			order++
		}
	}

	// Items deepest-first: orderedItemIDs holds each root's subtree in the
	// deepest-first order SoftDeleteSubtree returns (root last), with roots
	// concatenated in input order and ids already seen skipped, so undo
	// (replaying in reverse) restores each root before its descendants.
	for _, id := range orderedItemIDs {
		row := affectedItems[id]
		after := row.Clone()
		before := row.Clone()
		before.IsActive = true
		steps = append(steps, &entities.UndoStep{
			StepOrder: order,
			StepType:  entities.StepUpdate,
			TableName: entities.TableWorkItems,
			RecordID:  id,
			OldData:   snapshotWorkItem(before),
			NewData:   snapshotWorkItem(after),
		})
		order++
	}

	return len(orderedItemIDs), steps, nil
}

func (s *DeleteService) touchingEdges(ctx context.Context, q ports.Querier, id string) []*entities.Dependency {
	out, err := s.deps.FindOutgoing(ctx, q, id, false)
	if err != nil {
		return nil
	}
	incoming, err := s.deps.FindIncoming(ctx, q, id, false)
	if err == nil {
		out = append(out, incoming...)
	}
	return out
}
