package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"workitems/application/ports"
	"workitems/domain/core/entities"
	apperrors "workitems/pkg/errors"
)

// ExportedItem is one node of an exported subtree document, per spec
// §4.3.9/§6.4.
type ExportedItem struct {
	LocalID      string                `json:"local_id"`
	ParentLocal  *string               `json:"parent_local_id,omitempty"`
	Name         string                `json:"name"`
	Description  *string               `json:"description,omitempty"`
	Status       entities.Status       `json:"status"`
	Priority     entities.Priority     `json:"priority"`
	DueDate      *time.Time            `json:"due_date,omitempty"`
	OrderKey     string                `json:"order_key"`
	Dependencies []ExportedDependency  `json:"dependencies,omitempty"`
}

// ExportedDependency references another item by its document-local id, so
// the document is self-contained and re-importable under fresh identities.
type ExportedDependency struct {
	DependsOnLocal string                  `json:"depends_on_local_id"`
	Type           entities.DependencyType `json:"dependency_type"`
}

// ExportDocument is the root of an export_project / import_project payload.
type ExportDocument struct {
	Name  string         `json:"name"`
	Items []ExportedItem `json:"items"`
}

// ImportExportService implements export_project and import_project per
// spec §4.3.9.
type ImportExportService struct {
	workItems  ports.WorkItemRepository
	deps       ports.DependencyRepository
	shortnames *ShortnameService
	ids        ports.IDGenerator
	clock      ports.Clock
	maxBytes   int
}

// NewImportExportService constructs the service.
func NewImportExportService(workItems ports.WorkItemRepository, deps ports.DependencyRepository, shortnames *ShortnameService, ids ports.IDGenerator, clock ports.Clock, maxBytes int) *ImportExportService {
	return &ImportExportService{workItems: workItems, deps: deps, shortnames: shortnames, ids: ids, clock: clock, maxBytes: maxBytes}
}

// Export produces a JSON document of rootID and its active descendant
// subtree, scoping dependencies to edges with both endpoints inside the
// subtree (spec §4.3.9: "dependencies pointing outside the subtree are
// omitted").
func (s *ImportExportService) Export(ctx context.Context, q ports.Querier, rootID string) ([]byte, error) {
	root, err := s.workItems.FindByID(ctx, q, rootID, false)
	if err != nil {
		return nil, apperrors.ErrWorkItemNotFound
	}
	descendants, err := s.workItems.FindDescendants(ctx, q, rootID, 1<<30, false)
	if err != nil {
		return nil, fmt.Errorf("load descendants: %w", err)
	}

	all := append([]*entities.WorkItem{root}, descendants...)
	localID := make(map[string]string, len(all))
	for i, w := range all {
		localID[w.WorkItemID] = fmt.Sprintf("n%d", i+1)
	}

	doc := ExportDocument{Name: root.Name, Items: make([]ExportedItem, 0, len(all))}
	for _, w := range all {
		item := ExportedItem{
			LocalID:     localID[w.WorkItemID],
			Name:        w.Name,
			Description: w.Description,
			Status:      w.Status,
			Priority:    w.Priority,
			DueDate:     w.DueDate,
			OrderKey:    w.OrderKey,
		}
		if w.ParentWorkItemID != nil {
			if parentLocal, ok := localID[*w.ParentWorkItemID]; ok {
				item.ParentLocal = &parentLocal
			}
		}

		outgoing, err := s.deps.FindOutgoing(ctx, q, w.WorkItemID, false)
		if err != nil {
			return nil, fmt.Errorf("load dependencies of %s: %w", w.WorkItemID, err)
		}
		for _, dep := range outgoing {
			targetLocal, inSubtree := localID[dep.DependsOnWorkItemID]
			if !inSubtree {
				continue
			}
			item.Dependencies = append(item.Dependencies, ExportedDependency{
				DependsOnLocal: targetLocal,
				Type:           dep.DependencyType,
			})
		}
		doc.Items = append(doc.Items, item)
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal export document: %w", err)
	}
	return out, nil
}

// Import creates the subtree described by raw within the caller's
// transaction, preserving relative order and internal dependencies, and
// returns the new root plus the undo steps covering every inserted row.
func (s *ImportExportService) Import(ctx context.Context, q ports.Querier, raw []byte, newName *string) (*entities.WorkItem, []*entities.UndoStep, error) {
	if len(raw) > s.maxBytes {
		return nil, nil, apperrors.ErrImportTooLarge
	}

	var doc ExportDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, apperrors.ErrImportSchema
	}
	if len(doc.Items) == 0 {
		return nil, nil, apperrors.ErrImportSchema
	}
	for _, item := range doc.Items {
		if item.LocalID == "" || item.Name == "" {
			return nil, nil, apperrors.ErrImportSchema
		}
	}

	realID := make(map[string]string, len(doc.Items))
	now := s.clock.Now()
	var rootItem *entities.WorkItem
	var steps []*entities.UndoStep
	order := 1

	for _, item := range doc.Items {
		realID[item.LocalID] = s.ids.NewWorkItemID()
	}

	for _, item := range doc.Items {
		name := item.Name
		var parentID *string
		if item.ParentLocal != nil {
			if real, ok := realID[*item.ParentLocal]; ok {
				parentID = &real
			}
		} else if newName != nil {
			name = *newName
		}

		shortname, err := s.shortnames.Unique(ctx, q, parentID, name)
		if err != nil {
			return nil, nil, fmt.Errorf("derive shortname: %w", err)
		}

		w := &entities.WorkItem{
			WorkItemID:       realID[item.LocalID],
			ParentWorkItemID: parentID,
			Name:             name,
			Description:      item.Description,
			Status:           item.Status,
			Priority:         item.Priority,
			DueDate:          item.DueDate,
			OrderKey:         item.OrderKey,
			Shortname:        shortname,
			IsActive:         true,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if w.Status == "" {
			w.Status = entities.StatusTodo
		}
		if w.Priority == "" {
			w.Priority = entities.PriorityMedium
		}
		if err := s.workItems.Create(ctx, q, w); err != nil {
			return nil, nil, fmt.Errorf("create imported item: %w", err)
		}
		steps = append(steps, &entities.UndoStep{
			StepOrder: order,
			StepType:  entities.StepInsert,
			TableName: entities.TableWorkItems,
			RecordID:  w.WorkItemID,
			NewData:   snapshotWorkItem(w),
		})
		order++

		if parentID == nil {
			rootItem = w
		}
	}

	for _, item := range doc.Items {
		fromID := realID[item.LocalID]
		for _, dep := range item.Dependencies {
			toID, ok := realID[dep.DependsOnLocal]
			if !ok {
				continue
			}
			if err := s.deps.UpsertActive(ctx, q, fromID, toID, dep.Type); err != nil {
				return nil, nil, fmt.Errorf("create imported dependency: %w", err)
			}
			steps = append(steps, &entities.UndoStep{
				StepOrder: order,
				StepType:  entities.StepInsert,
				TableName: entities.TableWorkItemDependencies,
				RecordID:  fromID + ":" + toID,
				NewData: snapshotDependency(&entities.Dependency{
					WorkItemID:          fromID,
					DependsOnWorkItemID: toID,
					DependencyType:      dep.Type,
					IsActive:            true,
				}),
			})
			order++
		}
	}

	if rootItem == nil {
		return nil, nil, apperrors.ErrImportSchema
	}
	return rootItem, steps, nil
}
