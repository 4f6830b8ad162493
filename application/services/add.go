package services

import (
	"context"
	"fmt"
	"time"

	"workitems/application/ports"
	"workitems/domain/core/entities"
	"workitems/domain/ordering"
	apperrors "workitems/pkg/errors"
	"workitems/pkg/utils"
)

// AddInput is the shape add_work_item accepts, per spec §4.3.1/§6.1.
type AddInput struct {
	ParentID     *string                  `json:"parent_id"`
	Name         string                   `json:"name" validate:"required,max=255"`
	Description  *string                  `json:"description" validate:"omitempty,max=1024"`
	Status       *entities.Status         `json:"status"`
	Priority     *entities.Priority       `json:"priority"`
	DueDate      *time.Time               `json:"due_date"`
	Dependencies []DependencyInput        `json:"dependencies" validate:"omitempty,dive"`
	Position     *PositionInput           `json:"position"`
}

// DependencyInput is one requested edge, e.g. from add_dependencies.
type DependencyInput struct {
	DependsOn string                  `json:"depends_on"`
	Type      entities.DependencyType `json:"dependency_type"`
}

// PositionInput resolves a target sibling position: exactly one of Anchor
// fields or Enum should be set; AddService defaults to "end" when nil.
type PositionInput struct {
	InsertAfter  *string `json:"insert_after"`
	InsertBefore *string `json:"insert_before"`
	Enum         *string `json:"enum"` // "start" or "end"
}

// AddService implements add_work_item.
type AddService struct {
	workItems  ports.WorkItemRepository
	shortnames *ShortnameService
	ids        ports.IDGenerator
	clock      ports.Clock
}

// NewAddService constructs the service.
func NewAddService(workItems ports.WorkItemRepository, shortnames *ShortnameService, ids ports.IDGenerator, clock ports.Clock) *AddService {
	return &AddService{workItems: workItems, shortnames: shortnames, ids: ids, clock: clock}
}

// Execute validates input, resolves position and shortname, inserts the new
// work item and its dependency edges, and returns the created item plus the
// undo steps that exactly reverse the insert.
func (s *AddService) Execute(ctx context.Context, q ports.Querier, deps ports.DependencyRepository, in AddInput) (*entities.WorkItem, []*entities.UndoStep, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, nil, apperrors.NewDomainError(apperrors.DomainValidationError, "INVALID_INPUT", err.Error())
	}
	if err := validateName(in.Name); err != nil {
		return nil, nil, err
	}
	if in.Description != nil {
		if err := validateDescription(*in.Description); err != nil {
			return nil, nil, err
		}
	}

	if in.ParentID != nil {
		parent, err := s.workItems.FindByID(ctx, q, *in.ParentID, false)
		if err != nil {
			return nil, nil, apperrors.ErrParentNotFound
		}
		if parent == nil {
			return nil, nil, apperrors.ErrParentNotFound
		}
	}

	orderKey, err := s.resolvePosition(ctx, q, in.ParentID, in.Position)
	if err != nil {
		return nil, nil, err
	}

	shortname, err := s.shortnames.Unique(ctx, q, in.ParentID, in.Name)
	if err != nil {
		return nil, nil, fmt.Errorf("derive shortname: %w", err)
	}

	now := s.clock.Now()
	w := &entities.WorkItem{
		WorkItemID:       s.ids.NewWorkItemID(),
		ParentWorkItemID: in.ParentID,
		Name:             in.Name,
		Description:      in.Description,
		Status:           ValidStatusOrDefault(in.Status),
		Priority:         ValidPriorityOrDefault(in.Priority),
		DueDate:          in.DueDate,
		OrderKey:         orderKey,
		Shortname:        shortname,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if w.Status != "" && !entities.ValidStatus(w.Status) {
		return nil, nil, apperrors.ErrInvalidStatus
	}
	if w.Priority != "" && !entities.ValidPriority(w.Priority) {
		return nil, nil, apperrors.ErrInvalidPriority
	}

	if err := s.workItems.Create(ctx, q, w); err != nil {
		return nil, nil, fmt.Errorf("create work item: %w", err)
	}

	steps := []*entities.UndoStep{{
		StepOrder: 1,
		StepType:  entities.StepInsert,
		TableName: entities.TableWorkItems,
		RecordID:  w.WorkItemID,
		NewData:   snapshotWorkItem(w),
	}}

	order := 2
	for _, d := range in.Dependencies {
		if d.DependsOn == w.WorkItemID {
			return nil, nil, apperrors.ErrSelfDependency
		}
		if !entities.ValidDependencyType(d.Type) {
			return nil, nil, apperrors.ErrInvalidDependencyType
		}
		target, err := s.workItems.FindByID(ctx, q, d.DependsOn, false)
		if err != nil || target == nil {
			return nil, nil, apperrors.ErrDependencyNotFound
		}
		if d.Type == entities.DependencyFinishToStart {
			cyclic, err := deps.WouldCreateCycle(ctx, q, w.WorkItemID, d.DependsOn)
			if err != nil {
				return nil, nil, fmt.Errorf("check cycle: %w", err)
			}
			if cyclic {
				return nil, nil, apperrors.ErrDependencyCycle
			}
		}
		if err := deps.UpsertActive(ctx, q, w.WorkItemID, d.DependsOn, d.Type); err != nil {
			return nil, nil, fmt.Errorf("insert dependency: %w", err)
		}
		steps = append(steps, &entities.UndoStep{
			StepOrder: order,
			StepType:  entities.StepInsert,
			TableName: entities.TableWorkItemDependencies,
			RecordID:  w.WorkItemID + ":" + d.DependsOn,
			NewData: snapshotDependency(&entities.Dependency{
				WorkItemID:          w.WorkItemID,
				DependsOnWorkItemID: d.DependsOn,
				DependencyType:      d.Type,
				IsActive:            true,
			}),
		})
		order++
	}

	return w, steps, nil
}

func (s *AddService) resolvePosition(ctx context.Context, q ports.Querier, parentID *string, pos *PositionInput) (string, error) {
	parent := parentIDOrEmpty(parentID)
	siblings, err := s.siblingsOf(ctx, q, parentID)
	if err != nil {
		return "", err
	}
	_ = parent

	if pos == nil || (pos.InsertAfter == nil && pos.InsertBefore == nil && pos.Enum == nil) {
		return keyAtEnd(siblings)
	}
	if pos.InsertAfter != nil {
		return keyAfterID(siblings, *pos.InsertAfter)
	}
	if pos.InsertBefore != nil {
		return keyBeforeID(siblings, *pos.InsertBefore)
	}
	if pos.Enum != nil && *pos.Enum == "start" {
		return keyAtStart(siblings)
	}
	return keyAtEnd(siblings)
}

func (s *AddService) siblingsOf(ctx context.Context, q ports.Querier, parentID *string) ([]*entities.WorkItem, error) {
	if parentID == nil {
		return s.workItems.List(ctx, q, ports.WorkItemFilter{RootsOnly: true})
	}
	return s.workItems.FindChildren(ctx, q, *parentID, false)
}

func keyAtEnd(siblings []*entities.WorkItem) (string, error) {
	if len(siblings) == 0 {
		return ordering.Between("", "")
	}
	return ordering.Between(siblings[len(siblings)-1].OrderKey, "")
}

func keyAtStart(siblings []*entities.WorkItem) (string, error) {
	if len(siblings) == 0 {
		return ordering.Between("", "")
	}
	return ordering.Between("", siblings[0].OrderKey)
}

func keyAfterID(siblings []*entities.WorkItem, id string) (string, error) {
	for i, sib := range siblings {
		if sib.WorkItemID == id {
			var after string
			if i+1 < len(siblings) {
				after = siblings[i+1].OrderKey
			}
			return ordering.Between(sib.OrderKey, after)
		}
	}
	return "", apperrors.ErrWorkItemNotFound
}

func keyBeforeID(siblings []*entities.WorkItem, id string) (string, error) {
	for i, sib := range siblings {
		if sib.WorkItemID == id {
			var before string
			if i > 0 {
				before = siblings[i-1].OrderKey
			}
			return ordering.Between(before, sib.OrderKey)
		}
	}
	return "", apperrors.ErrWorkItemNotFound
}

func validateName(name string) error {
	if err := utils.ValidateRequired(name, "name"); err != nil {
		return apperrors.ErrNameRequired
	}
	if err := utils.ValidateStringLength(name, 1, entities.MaxNameLength); err != nil {
		return apperrors.ErrNameTooLong
	}
	return nil
}

func validateDescription(desc string) error {
	if err := utils.ValidateStringLength(desc, 0, entities.MaxDescriptionLength); err != nil {
		return apperrors.ErrDescriptionTooLong
	}
	return nil
}
