package services

import (
	"context"
	"encoding/json"
	"fmt"

	"workitems/application/ports"
	"workitems/domain/core/entities"
	apperrors "workitems/pkg/errors"
)

// WorkItemDetails is the get_details result per spec §4.3.7.
type WorkItemDetails struct {
	Item     *entities.WorkItem
	Children []*entities.WorkItem
	Outgoing []*entities.Dependency
	Incoming []*entities.Dependency
}

// TreeNode is one node of get_full_tree's recursive descent, carrying the
// "linked" rendering rule from spec §4.3.6/§4.3.7: a promoted subtree is
// still shown under its original parent, every node name suffixed "(L)".
type TreeNode struct {
	Item     *entities.WorkItem
	Linked   bool
	Children []*TreeNode
}

// ReadingService implements get_details, list_work_items, and
// get_full_tree per spec §4.3.7.
type ReadingService struct {
	workItems ports.WorkItemRepository
	deps      ports.DependencyRepository
}

// NewReadingService constructs the service.
func NewReadingService(workItems ports.WorkItemRepository, deps ports.DependencyRepository) *ReadingService {
	return &ReadingService{workItems: workItems, deps: deps}
}

// GetDetails loads id, its direct active children, and its active
// dependency edges in both directions.
func (s *ReadingService) GetDetails(ctx context.Context, q ports.Querier, id string) (*WorkItemDetails, error) {
	item, err := s.workItems.FindByID(ctx, q, id, false)
	if err != nil {
		return nil, apperrors.ErrWorkItemNotFound
	}
	children, err := s.workItems.FindChildren(ctx, q, id, false)
	if err != nil {
		return nil, fmt.Errorf("load children: %w", err)
	}
	outgoing, err := s.deps.FindOutgoing(ctx, q, id, false)
	if err != nil {
		return nil, fmt.Errorf("load outgoing deps: %w", err)
	}
	incoming, err := s.deps.FindIncoming(ctx, q, id, false)
	if err != nil {
		return nil, fmt.Errorf("load incoming deps: %w", err)
	}
	return &WorkItemDetails{Item: item, Children: children, Outgoing: outgoing, Incoming: incoming}, nil
}

// ListWorkItems implements list_work_items(filter).
func (s *ReadingService) ListWorkItems(ctx context.Context, q ports.Querier, filter ports.WorkItemFilter) ([]*entities.WorkItem, error) {
	return s.workItems.List(ctx, q, filter)
}

// GetFullTree recursively descends from rootID, bounded by maxDepth (capped
// at maxDepthCap), rendering promoted (linked) subtrees under their
// original parent per spec §4.3.6/§4.3.7. Depth-bounding also terminates
// any cycle introduced purely through `linked` edges.
func (s *ReadingService) GetFullTree(ctx context.Context, q ports.Querier, rootID string, includeInactiveItems, includeInactiveDeps bool, maxDepth, maxDepthCap int) (*TreeNode, error) {
	if maxDepth <= 0 {
		maxDepth = 10
	}
	if maxDepth > maxDepthCap {
		return nil, fmt.Errorf("max_depth %d exceeds cap %d", maxDepth, maxDepthCap)
	}

	root, err := s.workItems.FindByID(ctx, q, rootID, includeInactiveItems)
	if err != nil {
		return nil, apperrors.ErrWorkItemNotFound
	}
	return s.buildNode(ctx, q, root, false, includeInactiveItems, includeInactiveDeps, maxDepth)
}

func (s *ReadingService) buildNode(ctx context.Context, q ports.Querier, item *entities.WorkItem, linked bool, includeInactiveItems, includeInactiveDeps bool, depthRemaining int) (*TreeNode, error) {
	node := &TreeNode{Item: item, Linked: linked}
	if depthRemaining <= 0 {
		return node, nil
	}

	children, err := s.workItems.FindChildren(ctx, q, item.WorkItemID, includeInactiveItems)
	if err != nil {
		return nil, fmt.Errorf("load children of %s: %w", item.WorkItemID, err)
	}
	for _, child := range children {
		childNode, err := s.buildNode(ctx, q, child, linked, includeInactiveItems, includeInactiveDeps, depthRemaining-1)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, childNode)
	}

	// Promoted subtrees: an active `linked` dependency from item to some
	// other root represents a prior child now promoted to a project. It is
	// still rendered here, name-suffixed, with its own descent marked linked
	// so the caller can apply the "(L)" suffix at every level.
	outgoing, err := s.deps.FindOutgoing(ctx, q, item.WorkItemID, includeInactiveDeps)
	if err != nil {
		return nil, fmt.Errorf("load linked edges of %s: %w", item.WorkItemID, err)
	}
	for _, dep := range outgoing {
		if dep.DependencyType != entities.DependencyLinked {
			continue
		}
		promoted, err := s.workItems.FindByID(ctx, q, dep.DependsOnWorkItemID, includeInactiveItems)
		if err != nil {
			continue
		}
		linkedNode, err := s.buildNode(ctx, q, promoted, true, includeInactiveItems, includeInactiveDeps, depthRemaining-1)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, linkedNode)
	}

	return node, nil
}

// DisplayName renders a tree node's name, appending the linked-reference
// suffix per spec §4.3.7.
func (n *TreeNode) DisplayName() string {
	if n.Linked {
		return n.Item.Name + " (L)"
	}
	return n.Item.Name
}

// MarshalJSON renders Item.Name as DisplayName() so a promoted subtree's
// "(L)" suffix (spec §4.3.6/§4.3.7) reaches get_full_tree's JSON output
// instead of staying an in-process-only rendering rule.
func (n *TreeNode) MarshalJSON() ([]byte, error) {
	type renderedItem struct {
		*entities.WorkItem
		Name string
	}
	return json.Marshal(struct {
		Item     renderedItem `json:"Item"`
		Linked   bool         `json:"Linked"`
		Children []*TreeNode  `json:"Children"`
	}{
		Item:     renderedItem{WorkItem: n.Item, Name: n.DisplayName()},
		Linked:   n.Linked,
		Children: n.Children,
	})
}
