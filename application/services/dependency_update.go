package services

import (
	"context"
	"fmt"

	"workitems/application/ports"
	"workitems/domain/core/entities"
	apperrors "workitems/pkg/errors"
)

// DependencyUpdateService implements add_dependencies and
// delete_dependencies per spec §4.3.3.
type DependencyUpdateService struct {
	workItems ports.WorkItemRepository
	deps      ports.DependencyRepository
}

// NewDependencyUpdateService constructs the service.
func NewDependencyUpdateService(workItems ports.WorkItemRepository, deps ports.DependencyRepository) *DependencyUpdateService {
	return &DependencyUpdateService{workItems: workItems, deps: deps}
}

// AddEdges upserts (insert or reactivate/retype) each requested edge out of
// id, enforcing the self-dependency ban and the finish-to-start acyclicity
// invariant.
func (s *DependencyUpdateService) AddEdges(ctx context.Context, q ports.Querier, id string, edges []DependencyInput) ([]*entities.UndoStep, error) {
	if _, err := s.workItems.FindByID(ctx, q, id, false); err != nil {
		return nil, apperrors.ErrWorkItemNotFound
	}

	var steps []*entities.UndoStep
	order := 1
	for _, e := range edges {
		if e.DependsOn == id {
			return nil, apperrors.ErrSelfDependency
		}
		if !entities.ValidDependencyType(e.Type) {
			return nil, apperrors.ErrInvalidDependencyType
		}
		if _, err := s.workItems.FindByID(ctx, q, e.DependsOn, false); err != nil {
			return nil, apperrors.ErrDependencyNotFound
		}
		if e.Type == entities.DependencyFinishToStart {
			cyclic, err := s.deps.WouldCreateCycle(ctx, q, id, e.DependsOn)
			if err != nil {
				return nil, fmt.Errorf("check cycle: %w", err)
			}
			if cyclic {
				return nil, apperrors.ErrDependencyCycle
			}
		}

		existing, err := s.deps.Find(ctx, q, id, e.DependsOn)
		var oldData []byte
		stepType := entities.StepInsert
		if err == nil && existing != nil {
			oldData = snapshotDependency(existing)
			stepType = entities.StepUpdate
		}

		if err := s.deps.UpsertActive(ctx, q, id, e.DependsOn, e.Type); err != nil {
			return nil, fmt.Errorf("upsert dependency: %w", err)
		}

		steps = append(steps, &entities.UndoStep{
			StepOrder: order,
			StepType:  stepType,
			TableName: entities.TableWorkItemDependencies,
			RecordID:  id + ":" + e.DependsOn,
			OldData:   oldData,
			NewData: snapshotDependency(&entities.Dependency{
				WorkItemID:          id,
				DependsOnWorkItemID: e.DependsOn,
				DependencyType:      e.Type,
				IsActive:            true,
			}),
		})
		order++
	}
	return steps, nil
}

// DeleteEdges deactivates each listed currently-active edge out of id.
// Missing or already-inactive edges fail validation with a precise list,
// per spec §4.3.3.
func (s *DependencyUpdateService) DeleteEdges(ctx context.Context, q ports.Querier, id string, dependsOnIDs []string) ([]*entities.UndoStep, error) {
	var missing []string
	resolved := make([]*entities.Dependency, 0, len(dependsOnIDs))
	for _, dependsOn := range dependsOnIDs {
		dep, err := s.deps.Find(ctx, q, id, dependsOn)
		if err != nil || dep == nil || !dep.IsActive {
			missing = append(missing, dependsOn)
			continue
		}
		resolved = append(resolved, dep)
	}
	if len(missing) > 0 {
		return nil, apperrors.NewDomainError(
			apperrors.DomainValidationError,
			"DEPENDENCY_NOT_FOUND",
			"The requested dependency edge does not exist or is already inactive",
		).WithDetail("missing", missing)
	}

	steps := make([]*entities.UndoStep, 0, len(resolved))
	for i, dep := range resolved {
		oldSnapshot := dep.Clone()
		if err := s.deps.Deactivate(ctx, q, dep.WorkItemID, dep.DependsOnWorkItemID); err != nil {
			return nil, fmt.Errorf("deactivate dependency: %w", err)
		}
		newSnapshot := oldSnapshot
		newSnapshot.IsActive = false
		steps = append(steps, &entities.UndoStep{
			StepOrder: i + 1,
			StepType:  entities.StepUpdate,
			TableName: entities.TableWorkItemDependencies,
			RecordID:  dep.WorkItemID + ":" + dep.DependsOnWorkItemID,
			OldData:   snapshotDependency(&oldSnapshot),
			NewData:   snapshotDependency(&newSnapshot),
		})
	}
	return steps, nil
}
