package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "workitems/pkg/errors"
)

func TestReadingService_GetDetails(t *testing.T) {
	workItems := newFakeWorkItemRepo()
	parentID := "wi-parent"
	seedItem(t, workItems, "wi-parent", "Parent", nil)
	seedItem(t, workItems, "wi-child", "Child", &parentID)
	deps := newFakeDependencyRepo()
	require.NoError(t, deps.UpsertActive(context.Background(), nil, "wi-child", "wi-parent", "finish-to-start"))

	svc := NewReadingService(workItems, deps)
	details, err := svc.GetDetails(context.Background(), nil, "wi-parent")

	require.NoError(t, err)
	assert.Equal(t, "wi-parent", details.Item.WorkItemID)
	require.Len(t, details.Children, 1)
	assert.Equal(t, "wi-child", details.Children[0].WorkItemID)
	assert.Len(t, details.Incoming, 1)
}

func TestReadingService_GetDetails_NotFound(t *testing.T) {
	workItems := newFakeWorkItemRepo()
	deps := newFakeDependencyRepo()
	svc := NewReadingService(workItems, deps)

	_, err := svc.GetDetails(context.Background(), nil, "missing")

	assert.ErrorIs(t, err, apperrors.ErrWorkItemNotFound)
}

func TestReadingService_GetFullTree_RendersLinkedSubtree(t *testing.T) {
	workItems := newFakeWorkItemRepo()
	seedItem(t, workItems, "wi-root", "Root", nil)
	seedItem(t, workItems, "wi-promoted", "Promoted", nil)
	deps := newFakeDependencyRepo()
	require.NoError(t, deps.UpsertActive(context.Background(), nil, "wi-root", "wi-promoted", "linked"))

	svc := NewReadingService(workItems, deps)
	tree, err := svc.GetFullTree(context.Background(), nil, "wi-root", false, false, 5, 10)

	require.NoError(t, err)
	require.Len(t, tree.Children, 1)
	assert.True(t, tree.Children[0].Linked)
	assert.Equal(t, "Promoted (L)", tree.Children[0].DisplayName())

	raw, err := json.Marshal(tree)
	require.NoError(t, err)
	var decoded struct {
		Children []struct {
			Item struct {
				Name string `json:"Name"`
			} `json:"Item"`
		} `json:"Children"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded.Children, 1)
	assert.Equal(t, "Promoted (L)", decoded.Children[0].Item.Name)
}

func TestReadingService_GetFullTree_RejectsDepthAboveCap(t *testing.T) {
	workItems := newFakeWorkItemRepo()
	seedItem(t, workItems, "wi-root", "Root", nil)
	deps := newFakeDependencyRepo()
	svc := NewReadingService(workItems, deps)

	_, err := svc.GetFullTree(context.Background(), nil, "wi-root", false, false, 50, 10)

	require.Error(t, err)
}
