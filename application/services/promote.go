package services

import (
	"context"
	"fmt"

	"workitems/application/ports"
	"workitems/domain/core/entities"
	apperrors "workitems/pkg/errors"
)

// PromoteService implements promote_to_project per spec §4.3.6.
type PromoteService struct {
	workItems ports.WorkItemRepository
	deps      ports.DependencyRepository
	clock     ports.Clock
}

// NewPromoteService constructs the service.
func NewPromoteService(workItems ports.WorkItemRepository, deps ports.DependencyRepository, clock ports.Clock) *PromoteService {
	return &PromoteService{workItems: workItems, deps: deps, clock: clock}
}

// Execute detaches target from its parent, making it a root project, and
// leaves a `linked` dependency edge from the prior parent to it so readers
// can still find it in its original position (spec §4.3.7's "(L)" suffix
// rendering).
func (s *PromoteService) Execute(ctx context.Context, q ports.Querier, targetID string) (*entities.WorkItem, []*entities.UndoStep, error) {
	target, err := s.workItems.FindByID(ctx, q, targetID, false)
	if err != nil {
		return nil, nil, apperrors.ErrWorkItemNotFound
	}
	if target.ParentWorkItemID == nil {
		return nil, nil, apperrors.ErrAlreadyRoot
	}
	priorParent := *target.ParentWorkItemID

	roots, err := s.workItems.List(ctx, q, ports.WorkItemFilter{RootsOnly: true})
	if err != nil {
		return nil, nil, fmt.Errorf("list roots: %w", err)
	}
	newKey, err := keyAtEnd(roots)
	if err != nil {
		return nil, nil, fmt.Errorf("compute root order key: %w", err)
	}

	before := target.Clone()
	target.ParentWorkItemID = nil
	target.OrderKey = newKey
	target.UpdatedAt = s.clock.Now()
	if err := s.workItems.UpdateFields(ctx, q, targetID, map[string]interface{}{
		"parent_work_item_id": nil,
		"order_key":           newKey,
	}); err != nil {
		return nil, nil, fmt.Errorf("detach from parent: %w", err)
	}

	steps := []*entities.UndoStep{{
		StepOrder: 1,
		StepType:  entities.StepUpdate,
		TableName: entities.TableWorkItems,
		RecordID:  targetID,
		OldData:   snapshotWorkItem(before),
		NewData:   snapshotWorkItem(target),
	}}

	existing, err := s.deps.Find(ctx, q, priorParent, targetID)
	stepType := entities.StepInsert
	var oldEdgeData []byte
	if err == nil && existing != nil {
		stepType = entities.StepUpdate
		oldEdgeData = snapshotDependency(existing)
	}
	if err := s.deps.UpsertActive(ctx, q, priorParent, targetID, entities.DependencyLinked); err != nil {
		return nil, nil, fmt.Errorf("link to prior parent: %w", err)
	}
	steps = append(steps, &entities.UndoStep{
		StepOrder: 2,
		StepType:  stepType,
		TableName: entities.TableWorkItemDependencies,
		RecordID:  priorParent + ":" + targetID,
		OldData:   oldEdgeData,
		NewData: snapshotDependency(&entities.Dependency{
			WorkItemID:          priorParent,
			DependsOnWorkItemID: targetID,
			DependencyType:      entities.DependencyLinked,
			IsActive:            true,
		}),
	})

	return target, steps, nil
}
