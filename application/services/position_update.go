package services

import (
	"context"
	"fmt"

	"workitems/application/ports"
	"workitems/domain/core/entities"
	"workitems/domain/ordering"
	apperrors "workitems/pkg/errors"
)

// PositionUpdateService implements move_item_before/after/to_start/to_end
// per spec §4.3.4.
type PositionUpdateService struct {
	workItems ports.WorkItemRepository
	clock     ports.Clock
}

// NewPositionUpdateService constructs the service.
func NewPositionUpdateService(workItems ports.WorkItemRepository, clock ports.Clock) *PositionUpdateService {
	return &PositionUpdateService{workItems: workItems, clock: clock}
}

// MoveBefore repositions target immediately before anchor among their shared
// siblings.
func (s *PositionUpdateService) MoveBefore(ctx context.Context, q ports.Querier, targetID, anchorID string) (*entities.WorkItem, []*entities.UndoStep, error) {
	return s.move(ctx, q, targetID, func(siblings []*entities.WorkItem, target *entities.WorkItem) (string, error) {
		return keyBeforeID(siblingsExcluding(siblings, target.WorkItemID), anchorID)
	}, anchorID)
}

// MoveAfter repositions target immediately after anchor among their shared
// siblings.
func (s *PositionUpdateService) MoveAfter(ctx context.Context, q ports.Querier, targetID, anchorID string) (*entities.WorkItem, []*entities.UndoStep, error) {
	return s.move(ctx, q, targetID, func(siblings []*entities.WorkItem, target *entities.WorkItem) (string, error) {
		return keyAfterID(siblingsExcluding(siblings, target.WorkItemID), anchorID)
	}, anchorID)
}

// MoveToStart repositions target before all of its siblings.
func (s *PositionUpdateService) MoveToStart(ctx context.Context, q ports.Querier, targetID string) (*entities.WorkItem, []*entities.UndoStep, error) {
	return s.move(ctx, q, targetID, func(siblings []*entities.WorkItem, target *entities.WorkItem) (string, error) {
		return keyAtStart(siblingsExcluding(siblings, target.WorkItemID))
	}, "")
}

// MoveToEnd repositions target after all of its siblings.
func (s *PositionUpdateService) MoveToEnd(ctx context.Context, q ports.Querier, targetID string) (*entities.WorkItem, []*entities.UndoStep, error) {
	return s.move(ctx, q, targetID, func(siblings []*entities.WorkItem, target *entities.WorkItem) (string, error) {
		return keyAtEnd(siblingsExcluding(siblings, target.WorkItemID))
	}, "")
}

func (s *PositionUpdateService) move(
	ctx context.Context, q ports.Querier, targetID string,
	computeKey func([]*entities.WorkItem, *entities.WorkItem) (string, error),
	anchorID string,
) (*entities.WorkItem, []*entities.UndoStep, error) {
	target, err := s.workItems.FindByID(ctx, q, targetID, false)
	if err != nil {
		return nil, nil, apperrors.ErrWorkItemNotFound
	}

	if anchorID != "" {
		anchor, err := s.workItems.FindByID(ctx, q, anchorID, false)
		if err != nil {
			return nil, nil, apperrors.ErrWorkItemNotFound
		}
		if !sameParentID(target.ParentWorkItemID, anchor.ParentWorkItemID) {
			return nil, nil, apperrors.ErrCrossParentMove
		}
	}

	siblings, err := s.siblingsOf(ctx, q, target.ParentWorkItemID)
	if err != nil {
		return nil, nil, err
	}

	newKey, err := computeKey(siblings, target)
	if err != nil {
		return nil, nil, err
	}
	if _, err := ordering.Between(newKey, ""); err != nil {
		return nil, nil, fmt.Errorf("order key %q not finite: %w", newKey, err)
	}

	before := target.Clone()
	target.OrderKey = newKey
	target.UpdatedAt = s.clock.Now()
	if err := s.workItems.UpdateFields(ctx, q, targetID, map[string]interface{}{
		"order_key": newKey,
	}); err != nil {
		return nil, nil, fmt.Errorf("update order key: %w", err)
	}

	step := &entities.UndoStep{
		StepOrder: 1,
		StepType:  entities.StepUpdate,
		TableName: entities.TableWorkItems,
		RecordID:  targetID,
		OldData:   snapshotWorkItem(before),
		NewData:   snapshotWorkItem(target),
	}
	return target, []*entities.UndoStep{step}, nil
}

func (s *PositionUpdateService) siblingsOf(ctx context.Context, q ports.Querier, parentID *string) ([]*entities.WorkItem, error) {
	if parentID == nil {
		return s.workItems.List(ctx, q, ports.WorkItemFilter{RootsOnly: true})
	}
	return s.workItems.FindChildren(ctx, q, *parentID, false)
}

func siblingsExcluding(siblings []*entities.WorkItem, excludeID string) []*entities.WorkItem {
	out := make([]*entities.WorkItem, 0, len(siblings))
	for _, s := range siblings {
		if s.WorkItemID != excludeID {
			out = append(out, s)
		}
	}
	return out
}

func sameParentID(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
