// Package registry implements the name-keyed operation dispatch table spec
// §6.1 calls for, adapted from the teacher's CommandBus/QueryBus reflection
// dispatch (application/commands/bus, application/queries/bus): instead of
// registering a handler per reflect.Type, each of the fixed operation names
// spec §6.1 lists maps to one closure over orchestrator.Service, taking and
// returning JSON so a single HTTP or CLI entrypoint can drive every
// operation uniformly.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"workitems/application/orchestrator"
	"workitems/application/ports"
	"workitems/application/services"
	"workitems/domain/core/entities"
)

// Operation is one named, JSON-in/JSON-out entry in the registry.
type Operation func(ctx context.Context, params json.RawMessage) (interface{}, error)

// Registry is the name -> Operation dispatch table.
type Registry struct {
	ops map[string]Operation
}

// ErrUnknownOperation is returned by Execute for an unregistered name.
type ErrUnknownOperation string

func (e ErrUnknownOperation) Error() string {
	return fmt.Sprintf("unknown operation %q", string(e))
}

// Execute looks up name and runs it with params, the JSON body of the
// request. It is the single call site every transport (HTTP handler, CLI
// command) funnels through.
func (r *Registry) Execute(ctx context.Context, name string, params json.RawMessage) (interface{}, error) {
	op, ok := r.ops[name]
	if !ok {
		return nil, ErrUnknownOperation(name)
	}
	return op(ctx, params)
}

// Names lists every registered operation, for introspection/help output.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	return names
}

func decode(params json.RawMessage, v interface{}) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return fmt.Errorf("decode params: %w", err)
	}
	return nil
}

// New builds the registry of every operation spec §6.1 names, bound to svc.
func New(svc *orchestrator.Service) *Registry {
	r := &Registry{ops: make(map[string]Operation)}

	r.ops["add_work_item"] = func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		var in services.AddInput
		if err := decode(params, &in); err != nil {
			return nil, err
		}
		return svc.AddWorkItem(ctx, in)
	}

	for name, field := range map[string]string{
		"set_name":        services.FieldName,
		"set_description": services.FieldDescription,
		"set_status":      services.FieldStatus,
		"set_priority":    services.FieldPriority,
		"set_due_date":    services.FieldDueDate,
	} {
		field := field
		r.ops[name] = func(ctx context.Context, params json.RawMessage) (interface{}, error) {
			var req struct {
				ID    string          `json:"id"`
				Value json.RawMessage `json:"value"`
			}
			if err := decode(params, &req); err != nil {
				return nil, err
			}
			value, err := decodeFieldValue(field, req.Value)
			if err != nil {
				return nil, err
			}
			return svc.SetField(ctx, req.ID, field, value)
		}
	}

	r.ops["add_dependencies"] = func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		var req struct {
			ID           string                     `json:"id"`
			Dependencies []services.DependencyInput `json:"dependencies"`
		}
		if err := decode(params, &req); err != nil {
			return nil, err
		}
		return nil, svc.AddDependencies(ctx, req.ID, req.Dependencies)
	}

	r.ops["delete_dependencies"] = func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		var req struct {
			ID           string   `json:"id"`
			DependsOnIDs []string `json:"depends_on_ids"`
		}
		if err := decode(params, &req); err != nil {
			return nil, err
		}
		return nil, svc.DeleteDependencies(ctx, req.ID, req.DependsOnIDs)
	}

	r.ops["move_item_before"] = func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		var req struct {
			ID       string `json:"id"`
			AnchorID string `json:"anchor_id"`
		}
		if err := decode(params, &req); err != nil {
			return nil, err
		}
		return svc.MoveItemBefore(ctx, req.ID, req.AnchorID)
	}

	r.ops["move_item_after"] = func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		var req struct {
			ID       string `json:"id"`
			AnchorID string `json:"anchor_id"`
		}
		if err := decode(params, &req); err != nil {
			return nil, err
		}
		return svc.MoveItemAfter(ctx, req.ID, req.AnchorID)
	}

	r.ops["move_item_to_start"] = func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		var req struct {
			ID string `json:"id"`
		}
		if err := decode(params, &req); err != nil {
			return nil, err
		}
		return svc.MoveItemToStart(ctx, req.ID)
	}

	r.ops["move_item_to_end"] = func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		var req struct {
			ID string `json:"id"`
		}
		if err := decode(params, &req); err != nil {
			return nil, err
		}
		return svc.MoveItemToEnd(ctx, req.ID)
	}

	r.ops["delete_work_items"] = func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		var req struct {
			IDs []string `json:"ids"`
		}
		if err := decode(params, &req); err != nil {
			return nil, err
		}
		count, err := svc.DeleteWorkItems(ctx, req.IDs)
		if err != nil {
			return nil, err
		}
		return struct {
			DeletedCount int `json:"deleted_count"`
		}{count}, nil
	}

	r.ops["promote_to_project"] = func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		var req struct {
			ID string `json:"id"`
		}
		if err := decode(params, &req); err != nil {
			return nil, err
		}
		return svc.PromoteToProject(ctx, req.ID)
	}

	r.ops["get_details"] = func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		var req struct {
			ID string `json:"id"`
		}
		if err := decode(params, &req); err != nil {
			return nil, err
		}
		return svc.GetDetails(ctx, req.ID)
	}

	r.ops["list_work_items"] = func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		var req struct {
			ParentID        *string `json:"parent_id"`
			RootsOnly       bool    `json:"roots_only"`
			Status          *string `json:"status"`
			IncludeInactive bool    `json:"include_inactive"`
		}
		if err := decode(params, &req); err != nil {
			return nil, err
		}
		filter := ports.WorkItemFilter{
			ParentID:        req.ParentID,
			RootsOnly:       req.RootsOnly,
			IncludeInactive: req.IncludeInactive,
		}
		if req.Status != nil {
			st := stringToStatus(*req.Status)
			filter.Status = &st
		}
		return svc.ListWorkItems(ctx, filter)
	}

	r.ops["get_full_tree"] = func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		var req struct {
			RootID               string `json:"root_id"`
			IncludeInactiveItems bool   `json:"include_inactive_items"`
			IncludeInactiveDeps  bool   `json:"include_inactive_dependencies"`
			MaxDepth             int    `json:"max_depth"`
		}
		if err := decode(params, &req); err != nil {
			return nil, err
		}
		return svc.GetFullTree(ctx, req.RootID, req.IncludeInactiveItems, req.IncludeInactiveDeps, req.MaxDepth)
	}

	r.ops["export_project"] = func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		var req struct {
			ID string `json:"id"`
		}
		if err := decode(params, &req); err != nil {
			return nil, err
		}
		doc, err := svc.ExportProject(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		return json.RawMessage(doc), nil
	}

	r.ops["import_project"] = func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		var req struct {
			Document json.RawMessage `json:"document"`
			NewName  *string         `json:"new_name"`
		}
		if err := decode(params, &req); err != nil {
			return nil, err
		}
		return svc.ImportProject(ctx, req.Document, req.NewName)
	}

	r.ops["undo_last_action"] = func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
		return svc.UndoLastAction(ctx)
	}

	r.ops["redo_last_undo"] = func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
		return svc.RedoLastUndo(ctx)
	}

	r.ops["list_history"] = func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		var req struct {
			StartDate *time.Time `json:"start_date"`
			EndDate   *time.Time `json:"end_date"`
			Limit     int        `json:"limit"`
		}
		if err := decode(params, &req); err != nil {
			return nil, err
		}
		return svc.ListHistory(ctx, req.StartDate, req.EndDate, req.Limit)
	}

	return r
}

// decodeFieldValue unmarshals a set_* operation's raw JSON value into the
// concrete type FieldUpdateService.Execute expects for field, per the
// mapping documented on FieldUpdateService.Execute.
func decodeFieldValue(field string, raw json.RawMessage) (interface{}, error) {
	switch field {
	case services.FieldName, services.FieldDescription:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode %s value: %w", field, err)
		}
		return s, nil
	case services.FieldStatus:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode %s value: %w", field, err)
		}
		return entities.Status(s), nil
	case services.FieldPriority:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode %s value: %w", field, err)
		}
		return entities.Priority(s), nil
	case services.FieldDueDate:
		if len(raw) == 0 || string(raw) == "null" {
			return (*time.Time)(nil), nil
		}
		var t time.Time
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("decode %s value: %w", field, err)
		}
		return &t, nil
	default:
		return nil, fmt.Errorf("unknown field %q", field)
	}
}

func stringToStatus(s string) entities.Status {
	return entities.Status(s)
}
