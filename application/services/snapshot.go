// Package services holds one file per mutation family (add, field-update,
// dependency-update, position-update, delete, promote, history, reading,
// utils), each a thin struct over the repositories it needs, per spec §2's
// "domain services" layer. Adapted from the teacher's
// application/commands/handlers one-handler-per-command-type layout,
// collapsed here into one service per family rather than one per operation
// since several operations (set_name/set_description/...) share identical
// shape.
package services

import (
	"encoding/json"
	"fmt"

	"workitems/domain/core/entities"
)

// snapshotWorkItem marshals a work item row to the JSON shape undo_steps
// stores in old_data/new_data.
func snapshotWorkItem(w *entities.WorkItem) []byte {
	if w == nil {
		return nil
	}
	b, err := json.Marshal(w)
	if err != nil {
		// WorkItem contains no unmarshalable fields (strings, pointers to
		// strings/time.Time); a marshal failure here would be a programming
		// error, not a runtime condition to recover from.
		panic(fmt.Sprintf("snapshot work item: %v", err))
	}
	return b
}

// snapshotDependency marshals a dependency edge row.
func snapshotDependency(d *entities.Dependency) []byte {
	b, err := json.Marshal(d)
	if err != nil {
		panic(fmt.Sprintf("snapshot dependency: %v", err))
	}
	return b
}

// unmarshalWorkItem reverses snapshotWorkItem, used by the undo/redo replay
// engine to reconstruct a row from its JSON snapshot.
func unmarshalWorkItem(data []byte) (*entities.WorkItem, error) {
	var w entities.WorkItem
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal work item snapshot: %w", err)
	}
	return &w, nil
}

// unmarshalDependency reverses snapshotDependency.
func unmarshalDependency(data []byte) (*entities.Dependency, error) {
	var d entities.Dependency
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("unmarshal dependency snapshot: %w", err)
	}
	return &d, nil
}
