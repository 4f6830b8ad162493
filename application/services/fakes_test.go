package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"workitems/application/ports"
	"workitems/domain/core/entities"
)

// fakeWorkItemRepo is an in-memory ports.WorkItemRepository, grounded on the
// teacher's internal/repository/mocks.MockRepository map-backed style.
// It ignores the Querier argument entirely since nothing here touches SQL.
type fakeWorkItemRepo struct {
	items map[string]*entities.WorkItem
}

func newFakeWorkItemRepo() *fakeWorkItemRepo {
	return &fakeWorkItemRepo{items: make(map[string]*entities.WorkItem)}
}

func (r *fakeWorkItemRepo) put(w *entities.WorkItem) {
	r.items[w.WorkItemID] = w.Clone()
}

func (r *fakeWorkItemRepo) Create(ctx context.Context, q ports.Querier, w *entities.WorkItem) error {
	if _, exists := r.items[w.WorkItemID]; exists {
		return fmt.Errorf("duplicate id %s", w.WorkItemID)
	}
	r.put(w)
	return nil
}

func (r *fakeWorkItemRepo) FindByID(ctx context.Context, q ports.Querier, id string, includeInactive bool) (*entities.WorkItem, error) {
	w, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("not found: %s", id)
	}
	if !w.IsActive && !includeInactive {
		return nil, fmt.Errorf("not found: %s", id)
	}
	return w.Clone(), nil
}

func (r *fakeWorkItemRepo) List(ctx context.Context, q ports.Querier, filter ports.WorkItemFilter) ([]*entities.WorkItem, error) {
	var out []*entities.WorkItem
	for _, w := range r.items {
		if !w.IsActive && !filter.IncludeInactive {
			continue
		}
		if filter.RootsOnly && w.ParentWorkItemID != nil {
			continue
		}
		if !filter.RootsOnly && filter.ParentID != nil {
			if w.ParentWorkItemID == nil || *w.ParentWorkItemID != *filter.ParentID {
				continue
			}
		}
		if filter.Status != nil && w.Status != *filter.Status {
			continue
		}
		out = append(out, w.Clone())
	}
	sortByOrderKey(out)
	return out, nil
}

func (r *fakeWorkItemRepo) FindChildren(ctx context.Context, q ports.Querier, parentID string, includeInactive bool) ([]*entities.WorkItem, error) {
	var out []*entities.WorkItem
	for _, w := range r.items {
		if w.ParentWorkItemID == nil || *w.ParentWorkItemID != parentID {
			continue
		}
		if !w.IsActive && !includeInactive {
			continue
		}
		out = append(out, w.Clone())
	}
	sortByOrderKey(out)
	return out, nil
}

func (r *fakeWorkItemRepo) FindDescendants(ctx context.Context, q ports.Querier, rootID string, maxDepth int, includeInactive bool) ([]*entities.WorkItem, error) {
	var out []*entities.WorkItem
	frontier := []string{rootID}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, parentID := range frontier {
			children, _ := r.FindChildren(ctx, q, parentID, includeInactive)
			for _, c := range children {
				out = append(out, c)
				next = append(next, c.WorkItemID)
			}
		}
		frontier = next
	}
	return out, nil
}

func (r *fakeWorkItemRepo) UpdateFields(ctx context.Context, q ports.Querier, id string, patch map[string]interface{}) error {
	w, ok := r.items[id]
	if !ok {
		return fmt.Errorf("not found: %s", id)
	}
	for k, v := range patch {
		switch k {
		case "name":
			w.Name = v.(string)
		case "description":
			if s, ok := v.(string); ok {
				w.Description = &s
			} else {
				w.Description = nil
			}
		case "status":
			w.Status = v.(entities.Status)
		case "priority":
			w.Priority = v.(entities.Priority)
		case "due_date":
			if t, ok := v.(*time.Time); ok {
				w.DueDate = t
			} else {
				w.DueDate = nil
			}
		case "order_key":
			w.OrderKey = v.(string)
		case "shortname":
			w.Shortname = v.(string)
		case "is_active":
			w.IsActive = v.(bool)
		case "parent_work_item_id":
			if s, ok := v.(*string); ok {
				w.ParentWorkItemID = s
			} else {
				w.ParentWorkItemID = nil
			}
		case "updated_at":
			w.UpdatedAt = v.(time.Time)
		}
	}
	return nil
}

func (r *fakeWorkItemRepo) SoftDeleteSubtree(ctx context.Context, q ports.Querier, rootID string) ([]string, error) {
	root, ok := r.items[rootID]
	if !ok || !root.IsActive {
		return nil, nil
	}
	var affected []string
	var walk func(id string)
	walk = func(id string) {
		w := r.items[id]
		if w == nil || !w.IsActive {
			return
		}
		for _, child := range r.items {
			if child.ParentWorkItemID != nil && *child.ParentWorkItemID == id {
				walk(child.WorkItemID)
			}
		}
		w.IsActive = false
		affected = append(affected, id)
	}
	walk(rootID)
	return affected, nil
}

func (r *fakeWorkItemRepo) Restore(ctx context.Context, q ports.Querier, ids []string) error {
	for _, id := range ids {
		if w, ok := r.items[id]; ok {
			w.IsActive = true
		}
	}
	return nil
}

func sortByOrderKey(items []*entities.WorkItem) {
	sort.Slice(items, func(i, j int) bool { return items[i].OrderKey < items[j].OrderKey })
}

// fakeDependencyRepo is an in-memory ports.DependencyRepository.
type fakeDependencyRepo struct {
	edges map[string]*entities.Dependency // "from:to" -> edge
}

func newFakeDependencyRepo() *fakeDependencyRepo {
	return &fakeDependencyRepo{edges: make(map[string]*entities.Dependency)}
}

func edgeKey(from, to string) string { return from + ":" + to }

func (r *fakeDependencyRepo) UpsertActive(ctx context.Context, q ports.Querier, from, to string, depType entities.DependencyType) error {
	r.edges[edgeKey(from, to)] = &entities.Dependency{WorkItemID: from, DependsOnWorkItemID: to, DependencyType: depType, IsActive: true}
	return nil
}

func (r *fakeDependencyRepo) Deactivate(ctx context.Context, q ports.Querier, from, to string) error {
	if e, ok := r.edges[edgeKey(from, to)]; ok {
		e.IsActive = false
	}
	return nil
}

func (r *fakeDependencyRepo) Find(ctx context.Context, q ports.Querier, from, to string) (*entities.Dependency, error) {
	e, ok := r.edges[edgeKey(from, to)]
	if !ok {
		return nil, nil
	}
	clone := e.Clone()
	return &clone, nil
}

func (r *fakeDependencyRepo) FindOutgoing(ctx context.Context, q ports.Querier, id string, includeInactive bool) ([]*entities.Dependency, error) {
	var out []*entities.Dependency
	for _, e := range r.edges {
		if e.WorkItemID != id {
			continue
		}
		if !e.IsActive && !includeInactive {
			continue
		}
		clone := e.Clone()
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeDependencyRepo) FindIncoming(ctx context.Context, q ports.Querier, id string, includeInactive bool) ([]*entities.Dependency, error) {
	var out []*entities.Dependency
	for _, e := range r.edges {
		if e.DependsOnWorkItemID != id {
			continue
		}
		if !e.IsActive && !includeInactive {
			continue
		}
		clone := e.Clone()
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeDependencyRepo) WouldCreateCycle(ctx context.Context, q ports.Querier, from, to string) (bool, error) {
	// from -> to would cycle if to can already reach from via active
	// finish-to-start edges.
	visited := map[string]bool{}
	var reaches func(cur, target string) bool
	reaches = func(cur, target string) bool {
		if cur == target {
			return true
		}
		if visited[cur] {
			return false
		}
		visited[cur] = true
		for _, e := range r.edges {
			if e.WorkItemID == cur && e.IsActive && e.DependencyType == entities.DependencyFinishToStart {
				if reaches(e.DependsOnWorkItemID, target) {
					return true
				}
			}
		}
		return false
	}
	return reaches(to, from), nil
}

// fakeActionHistoryRepo is an in-memory ports.ActionHistoryRepository.
type fakeActionHistoryRepo struct {
	actions []*entities.ActionHistory
	steps   map[string][]*entities.UndoStep
}

func newFakeActionHistoryRepo() *fakeActionHistoryRepo {
	return &fakeActionHistoryRepo{steps: make(map[string][]*entities.UndoStep)}
}

func (r *fakeActionHistoryRepo) CreateAction(ctx context.Context, q ports.Querier, a *entities.ActionHistory) error {
	clone := *a
	r.actions = append(r.actions, &clone)
	return nil
}

func (r *fakeActionHistoryRepo) AppendStep(ctx context.Context, q ports.Querier, step *entities.UndoStep) error {
	clone := *step
	r.steps[step.ActionID] = append(r.steps[step.ActionID], &clone)
	return nil
}

func (r *fakeActionHistoryRepo) FindActionByID(ctx context.Context, q ports.Querier, id string) (*entities.ActionHistory, error) {
	for _, a := range r.actions {
		if a.ActionID == id {
			clone := *a
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("action not found: %s", id)
}

func (r *fakeActionHistoryRepo) StepsFor(ctx context.Context, q ports.Querier, actionID string) ([]*entities.UndoStep, error) {
	return r.steps[actionID], nil
}

func (r *fakeActionHistoryRepo) ListRecentActions(ctx context.Context, q ports.Querier, limit int, after, before *time.Time) ([]*entities.ActionHistory, error) {
	var out []*entities.ActionHistory
	for i := len(r.actions) - 1; i >= 0 && len(out) < limit; i-- {
		a := r.actions[i]
		if after != nil && a.Timestamp.Before(*after) {
			continue
		}
		if before != nil && a.Timestamp.After(*before) {
			continue
		}
		clone := *a
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeActionHistoryRepo) FindLastUndoable(ctx context.Context, q ports.Querier) (*entities.ActionHistory, error) {
	for i := len(r.actions) - 1; i >= 0; i-- {
		a := r.actions[i]
		if a.IsUndone || entities.IsUndoOrRedo(a.ActionType) {
			continue
		}
		clone := *a
		return &clone, nil
	}
	return nil, fmt.Errorf("nothing to undo")
}

func (r *fakeActionHistoryRepo) FindLastRedoable(ctx context.Context, q ports.Querier) (*entities.ActionHistory, error) {
	if len(r.actions) == 0 {
		return nil, fmt.Errorf("nothing to redo")
	}
	tail := r.actions[len(r.actions)-1]
	if tail.ActionType != entities.ActionUndo {
		return nil, fmt.Errorf("nothing to redo")
	}
	for _, a := range r.actions {
		if a.UndoneAtActionID != nil && *a.UndoneAtActionID == tail.ActionID && a.IsUndone {
			clone := *tail
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("nothing to redo")
}

func (r *fakeActionHistoryRepo) LockTail(ctx context.Context, q ports.Querier) error { return nil }

func (r *fakeActionHistoryRepo) MarkUndone(ctx context.Context, q ports.Querier, actionID, byActionID string) error {
	for _, a := range r.actions {
		if a.ActionID == actionID {
			a.IsUndone = true
			id := byActionID
			a.UndoneAtActionID = &id
		}
	}
	return nil
}

func (r *fakeActionHistoryRepo) ClearUndone(ctx context.Context, q ports.Querier, actionID string) error {
	for _, a := range r.actions {
		if a.ActionID == actionID {
			a.IsUndone = false
			a.UndoneAtActionID = nil
		}
	}
	return nil
}

// fakeClock is a controllable ports.Clock.
type fakeClock struct{ now time.Time }

func newFakeClock() *fakeClock { return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)} }

func (c *fakeClock) Now() time.Time { return c.now }

// fakeIDGenerator is a deterministic, sequential ports.IDGenerator.
type fakeIDGenerator struct {
	workItemSeq int
	actionSeq   int
}

func (g *fakeIDGenerator) NewWorkItemID() string {
	g.workItemSeq++
	return fmt.Sprintf("wi-%d", g.workItemSeq)
}

func (g *fakeIDGenerator) NewActionID() string {
	g.actionSeq++
	return fmt.Sprintf("ac-%d", g.actionSeq)
}
