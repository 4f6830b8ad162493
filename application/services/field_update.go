package services

import (
	"context"
	"fmt"
	"time"

	"workitems/application/ports"
	"workitems/domain/core/entities"
	apperrors "workitems/pkg/errors"
)

// Field names accepted by FieldUpdateService.Execute, matching the
// UPDATE_WORK_ITEM_<FIELD> action-type suffix spec §4.3.2 names.
const (
	FieldName        = "NAME"
	FieldDescription = "DESCRIPTION"
	FieldStatus      = "STATUS"
	FieldPriority    = "PRIORITY"
	FieldDueDate     = "DUE_DATE"
)

// FieldUpdateService implements set_name/set_description/set_status/
// set_priority/set_due_date, all sharing the read-patch-write-snapshot shape
// spec §4.3.2 describes.
type FieldUpdateService struct {
	workItems  ports.WorkItemRepository
	shortnames *ShortnameService
	clock      ports.Clock
}

// NewFieldUpdateService constructs the service.
func NewFieldUpdateService(workItems ports.WorkItemRepository, shortnames *ShortnameService, clock ports.Clock) *FieldUpdateService {
	return &FieldUpdateService{workItems: workItems, shortnames: shortnames, clock: clock}
}

// Execute loads id's current row, applies value to field, and returns the
// updated item plus the single UPDATE undo step spec §4.3.2 calls for.
// value's concrete type must match field: string for NAME/DESCRIPTION,
// entities.Status for STATUS, entities.Priority for PRIORITY, *time.Time
// for DUE_DATE (nil clears it).
func (s *FieldUpdateService) Execute(ctx context.Context, q ports.Querier, id, field string, value interface{}) (*entities.WorkItem, []*entities.UndoStep, string, error) {
	current, err := s.workItems.FindByID(ctx, q, id, false)
	if err != nil {
		return nil, nil, "", apperrors.ErrWorkItemNotFound
	}
	before := current.Clone()

	patch := map[string]interface{}{}
	switch field {
	case FieldName:
		name, _ := value.(string)
		if err := validateName(name); err != nil {
			return nil, nil, "", err
		}
		shortname, err := s.shortnames.Unique(ctx, q, current.ParentWorkItemID, name)
		if err != nil {
			return nil, nil, "", fmt.Errorf("derive shortname: %w", err)
		}
		current.Name = name
		current.Shortname = shortname
		patch["name"] = name
		patch["shortname"] = shortname
	case FieldDescription:
		desc, _ := value.(string)
		if err := validateDescription(desc); err != nil {
			return nil, nil, "", err
		}
		current.Description = &desc
		patch["description"] = desc
	case FieldStatus:
		status, _ := value.(entities.Status)
		if !entities.ValidStatus(status) {
			return nil, nil, "", apperrors.ErrInvalidStatus
		}
		current.Status = status
		patch["status"] = status
	case FieldPriority:
		priority, _ := value.(entities.Priority)
		if !entities.ValidPriority(priority) {
			return nil, nil, "", apperrors.ErrInvalidPriority
		}
		current.Priority = priority
		patch["priority"] = priority
	case FieldDueDate:
		due, _ := value.(*time.Time)
		current.DueDate = due
		patch["due_date"] = current.DueDate
	default:
		return nil, nil, "", fmt.Errorf("unknown field %q", field)
	}
	current.UpdatedAt = s.clock.Now()
	patch["updated_at"] = current.UpdatedAt

	if err := s.workItems.UpdateFields(ctx, q, id, patch); err != nil {
		return nil, nil, "", fmt.Errorf("update field %s: %w", field, err)
	}

	step := &entities.UndoStep{
		StepOrder: 1,
		StepType:  entities.StepUpdate,
		TableName: entities.TableWorkItems,
		RecordID:  id,
		OldData:   snapshotWorkItem(before),
		NewData:   snapshotWorkItem(current),
	}
	actionType := entities.ActionUpdateWorkItemPrefix + field
	return current, []*entities.UndoStep{step}, actionType, nil
}
