package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "workitems/pkg/errors"
)

func TestDeleteService_Execute_SoftDeletesSubtreeAndEdges(t *testing.T) {
	workItems := newFakeWorkItemRepo()
	parent := "wi-parent"
	seedItem(t, workItems, "wi-parent", "Parent", nil)
	seedItem(t, workItems, "wi-child", "Child", &parent)
	deps := newFakeDependencyRepo()
	require.NoError(t, deps.UpsertActive(context.Background(), nil, "wi-child", "wi-parent", "linked"))

	svc := NewDeleteService(workItems, deps)
	count, steps, err := svc.Execute(context.Background(), nil, []string{"wi-parent"}, 1, 100)

	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NotEmpty(t, steps)

	reloaded, err := workItems.FindByID(context.Background(), nil, "wi-child", true)
	require.NoError(t, err)
	assert.False(t, reloaded.IsActive)
}

func TestDeleteService_Execute_RejectsEmptyList(t *testing.T) {
	workItems := newFakeWorkItemRepo()
	deps := newFakeDependencyRepo()
	svc := NewDeleteService(workItems, deps)

	_, _, err := svc.Execute(context.Background(), nil, nil, 1, 100)

	assert.ErrorIs(t, err, apperrors.ErrEmptyIDList)
}

func TestDeleteService_Execute_RejectsTooManyIDs(t *testing.T) {
	workItems := newFakeWorkItemRepo()
	deps := newFakeDependencyRepo()
	svc := NewDeleteService(workItems, deps)

	_, _, err := svc.Execute(context.Background(), nil, []string{"a", "b", "c"}, 1, 2)

	assert.ErrorIs(t, err, apperrors.ErrTooManyIDs)
}
