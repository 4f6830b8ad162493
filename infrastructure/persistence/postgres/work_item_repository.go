package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"workitems/domain/core/entities"
)

// ErrNotFound is returned by a single-row lookup that finds nothing. The
// application layer maps it to the domain NotFound error kind; repositories
// never import pkg/errors so they stay free of HTTP/RPC concerns.
var ErrNotFound = errors.New("postgres: record not found")

// WorkItemFilter narrows list(filter) per spec §4.3.7/§6.1. A nil pointer
// field means "no constraint on that column".
type WorkItemFilter struct {
	ParentID       *string
	RootsOnly      bool
	Status         *entities.Status
	IncludeInactive bool
}

// WorkItemRepository is the typed CRUD + query surface for work_items,
// holding DependencyRepository in its Dependencies field as the
// subcomponent spec §4.2 calls for. Every method takes a Querier: the
// orchestrator's begin-tx template passes an in-flight transaction on both
// read and mutating paths, while the repository tests pass the pool.
type WorkItemRepository struct {
	Dependencies *DependencyRepository
}

// NewWorkItemRepository constructs the repository pairing.
func NewWorkItemRepository() *WorkItemRepository {
	return &WorkItemRepository{Dependencies: &DependencyRepository{}}
}

const workItemColumns = `work_item_id, parent_work_item_id, name, description, status, priority,
	due_date, order_key, shortname, is_active, created_at, updated_at`

func scanWorkItem(row pgx.Row) (*entities.WorkItem, error) {
	var w entities.WorkItem
	err := row.Scan(
		&w.WorkItemID, &w.ParentWorkItemID, &w.Name, &w.Description, &w.Status, &w.Priority,
		&w.DueDate, &w.OrderKey, &w.Shortname, &w.IsActive, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan work item: %w", err)
	}
	return &w, nil
}

// Create inserts a new work item row.
func (r *WorkItemRepository) Create(ctx context.Context, q Querier, w *entities.WorkItem) error {
	_, err := q.Exec(ctx, `
		INSERT INTO work_items (`+workItemColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		w.WorkItemID, w.ParentWorkItemID, w.Name, w.Description, w.Status, w.Priority,
		w.DueDate, w.OrderKey, w.Shortname, w.IsActive, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert work item: %w", err)
	}
	return nil
}

// FindByID loads one work item by id. When includeInactive is false, a
// soft-deleted row is reported as not found.
func (r *WorkItemRepository) FindByID(ctx context.Context, q Querier, id string, includeInactive bool) (*entities.WorkItem, error) {
	sql := `SELECT ` + workItemColumns + ` FROM work_items WHERE work_item_id = $1`
	if !includeInactive {
		sql += ` AND is_active = true`
	}
	return scanWorkItem(q.QueryRow(ctx, sql, id))
}

// List surfaces work items matching filter, ordered by the numeric value of
// order_key within each parent for stable sibling display.
func (r *WorkItemRepository) List(ctx context.Context, q Querier, filter WorkItemFilter) ([]*entities.WorkItem, error) {
	sql := `SELECT ` + workItemColumns + ` FROM work_items WHERE true`
	args := make([]interface{}, 0, 4)
	n := 0
	next := func(v interface{}) string {
		n++
		args = append(args, v)
		return fmt.Sprintf("$%d", n)
	}

	if filter.RootsOnly {
		sql += ` AND parent_work_item_id IS NULL`
	} else if filter.ParentID != nil {
		sql += ` AND parent_work_item_id = ` + next(*filter.ParentID)
	}
	if filter.Status != nil {
		sql += ` AND status = ` + next(*filter.Status)
	}
	if !filter.IncludeInactive {
		sql += ` AND is_active = true`
	}
	sql += ` ORDER BY order_key::numeric ASC`

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list work items: %w", err)
	}
	defer rows.Close()
	return collectWorkItems(rows)
}

// FindChildren returns the direct children of parentID, ordered by the
// numeric value of order_key.
func (r *WorkItemRepository) FindChildren(ctx context.Context, q Querier, parentID string, includeInactive bool) ([]*entities.WorkItem, error) {
	sql := `SELECT ` + workItemColumns + ` FROM work_items WHERE parent_work_item_id = $1`
	if !includeInactive {
		sql += ` AND is_active = true`
	}
	sql += ` ORDER BY order_key::numeric ASC`
	rows, err := q.Query(ctx, sql, parentID)
	if err != nil {
		return nil, fmt.Errorf("find children: %w", err)
	}
	defer rows.Close()
	return collectWorkItems(rows)
}

// FindDescendants walks the subtree rooted at rootID breadth-first, bounded
// by maxDepth (rootID itself is depth 0 and is not included in the result).
func (r *WorkItemRepository) FindDescendants(ctx context.Context, q Querier, rootID string, maxDepth int, includeInactive bool) ([]*entities.WorkItem, error) {
	var out []*entities.WorkItem
	frontier := []string{rootID}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, parentID := range frontier {
			children, err := r.FindChildren(ctx, q, parentID, includeInactive)
			if err != nil {
				return nil, err
			}
			for _, c := range children {
				out = append(out, c)
				next = append(next, c.WorkItemID)
			}
		}
		frontier = next
	}
	return out, nil
}

// UpdateFields applies an arbitrary column patch by name. Callers (domain
// services) build patch from the exact set of columns their operation
// changes, keeping the SQL generic while the undo snapshot logic stays in
// the service layer where old/new row capture happens. updated_at is set to
// now() unless the patch supplies it.
func (r *WorkItemRepository) UpdateFields(ctx context.Context, q Querier, id string, patch map[string]interface{}) error {
	if len(patch) == 0 {
		return nil
	}
	sql := `UPDATE work_items SET `
	args := make([]interface{}, 0, len(patch)+1)
	n := 0
	first := true
	for col, val := range patch {
		if !first {
			sql += `, `
		}
		first = false
		n++
		sql += fmt.Sprintf("%s = $%d", col, n)
		args = append(args, val)
	}
	if _, ok := patch["updated_at"]; !ok {
		sql += `, updated_at = now()`
	}
	n++
	sql += fmt.Sprintf(" WHERE work_item_id = $%d", n)
	args = append(args, id)

	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("update work item fields: %w", err)
	}
	return nil
}

// SoftDeleteSubtree flips is_active=false on rootID and every active
// descendant, returning the ids affected in deepest-first order so the
// caller can build undo steps in the sequence spec §4.3.5 requires. A
// missing or already-inactive rootID affects nothing and yields no ids.
func (r *WorkItemRepository) SoftDeleteSubtree(ctx context.Context, q Querier, rootID string) ([]string, error) {
	if _, err := r.FindByID(ctx, q, rootID, false); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	descendants, err := r.FindDescendants(ctx, q, rootID, 1<<30, false)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(descendants)+1)
	for _, d := range descendants {
		ids = append(ids, d.WorkItemID)
	}
	ids = append(ids, rootID)
	// deepest-first: FindDescendants is breadth-first, so reverse it; rootID
	// (shallowest) stays last.
	for i, j := 0, len(ids)-2; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}

	for _, id := range ids {
		if _, err := q.Exec(ctx, `UPDATE work_items SET is_active = false, updated_at = now() WHERE work_item_id = $1 AND is_active = true`, id); err != nil {
			return nil, fmt.Errorf("soft delete %s: %w", id, err)
		}
	}
	return ids, nil
}

// Restore flips is_active=true on exactly the listed ids, used by the undo
// replay engine to reverse a soft delete.
func (r *WorkItemRepository) Restore(ctx context.Context, q Querier, ids []string) error {
	for _, id := range ids {
		if _, err := q.Exec(ctx, `UPDATE work_items SET is_active = true, updated_at = now() WHERE work_item_id = $1`, id); err != nil {
			return fmt.Errorf("restore %s: %w", id, err)
		}
	}
	return nil
}

func collectWorkItems(rows pgx.Rows) ([]*entities.WorkItem, error) {
	var out []*entities.WorkItem
	for rows.Next() {
		var w entities.WorkItem
		if err := rows.Scan(
			&w.WorkItemID, &w.ParentWorkItemID, &w.Name, &w.Description, &w.Status, &w.Priority,
			&w.DueDate, &w.OrderKey, &w.Shortname, &w.IsActive, &w.CreatedAt, &w.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan work item row: %w", err)
		}
		out = append(out, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate work items: %w", err)
	}
	return out, nil
}

// DependencyRepository is the work_item_dependencies subcomponent of
// WorkItemRepository, per spec §4.2.
type DependencyRepository struct{}

// UpsertActive inserts a new edge or reactivates/retypes an existing one,
// implementing the one silently-recovered error kind spec §7 names:
// "dependency upsert reactivates an inactive edge instead of failing on
// duplicate".
func (d *DependencyRepository) UpsertActive(ctx context.Context, q Querier, from, to string, depType entities.DependencyType) error {
	_, err := q.Exec(ctx, `
		INSERT INTO work_item_dependencies (work_item_id, depends_on_work_item_id, dependency_type, is_active)
		VALUES ($1, $2, $3, true)
		ON CONFLICT (work_item_id, depends_on_work_item_id)
		DO UPDATE SET dependency_type = EXCLUDED.dependency_type, is_active = true`,
		from, to, depType)
	if err != nil {
		return fmt.Errorf("upsert dependency: %w", err)
	}
	return nil
}

// Deactivate flips is_active=false on one edge.
func (d *DependencyRepository) Deactivate(ctx context.Context, q Querier, from, to string) error {
	_, err := q.Exec(ctx, `
		UPDATE work_item_dependencies SET is_active = false
		WHERE work_item_id = $1 AND depends_on_work_item_id = $2`, from, to)
	if err != nil {
		return fmt.Errorf("deactivate dependency: %w", err)
	}
	return nil
}

// Find looks up one edge regardless of active state, used to decide between
// insert and reactivate/retype in UpsertActive's caller.
func (d *DependencyRepository) Find(ctx context.Context, q Querier, from, to string) (*entities.Dependency, error) {
	row := q.QueryRow(ctx, `
		SELECT work_item_id, depends_on_work_item_id, dependency_type, is_active
		FROM work_item_dependencies WHERE work_item_id = $1 AND depends_on_work_item_id = $2`, from, to)
	var dep entities.Dependency
	if err := row.Scan(&dep.WorkItemID, &dep.DependsOnWorkItemID, &dep.DependencyType, &dep.IsActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find dependency: %w", err)
	}
	return &dep, nil
}

// FindOutgoing returns edges where id is the dependent (id depends on ...).
func (d *DependencyRepository) FindOutgoing(ctx context.Context, q Querier, id string, includeInactive bool) ([]*entities.Dependency, error) {
	return d.query(ctx, q, `work_item_id = $1`, id, includeInactive)
}

// FindIncoming returns edges where id is depended upon.
func (d *DependencyRepository) FindIncoming(ctx context.Context, q Querier, id string, includeInactive bool) ([]*entities.Dependency, error) {
	return d.query(ctx, q, `depends_on_work_item_id = $1`, id, includeInactive)
}

func (d *DependencyRepository) query(ctx context.Context, q Querier, whereCol string, id string, includeInactive bool) ([]*entities.Dependency, error) {
	sql := `SELECT work_item_id, depends_on_work_item_id, dependency_type, is_active
		FROM work_item_dependencies WHERE ` + whereCol
	if !includeInactive {
		sql += ` AND is_active = true`
	}
	rows, err := q.Query(ctx, sql, id)
	if err != nil {
		return nil, fmt.Errorf("query dependencies: %w", err)
	}
	defer rows.Close()

	var out []*entities.Dependency
	for rows.Next() {
		var dep entities.Dependency
		if err := rows.Scan(&dep.WorkItemID, &dep.DependsOnWorkItemID, &dep.DependencyType, &dep.IsActive); err != nil {
			return nil, fmt.Errorf("scan dependency: %w", err)
		}
		out = append(out, &dep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dependencies: %w", err)
	}
	return out, nil
}

// WouldCreateCycle reports whether adding an active finish-to-start edge
// from→to would close a cycle in the active finish-to-start subgraph. It
// walks forward from to looking for a path back to from, matching spec
// §3 invariant 3 and §4.3.3's cycle guard.
func (d *DependencyRepository) WouldCreateCycle(ctx context.Context, q Querier, from, to string) (bool, error) {
	if from == to {
		return true, nil
	}
	visited := map[string]bool{to: true}
	frontier := []string{to}
	for len(frontier) > 0 {
		var next []string
		for _, node := range frontier {
			edges, err := d.FindOutgoing(ctx, q, node, false)
			if err != nil {
				return false, err
			}
			for _, e := range edges {
				if e.DependencyType != entities.DependencyFinishToStart {
					continue
				}
				if e.DependsOnWorkItemID == from {
					return true, nil
				}
				if !visited[e.DependsOnWorkItemID] {
					visited[e.DependsOnWorkItemID] = true
					next = append(next, e.DependsOnWorkItemID)
				}
			}
		}
		frontier = next
	}
	return false, nil
}
