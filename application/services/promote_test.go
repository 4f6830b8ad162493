package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workitems/domain/core/entities"
	apperrors "workitems/pkg/errors"
)

func TestPromoteService_Execute_DetachesAndLinksBack(t *testing.T) {
	workItems := newFakeWorkItemRepo()
	parentID := "wi-parent"
	seedItem(t, workItems, "wi-parent", "Parent", nil)
	seedItem(t, workItems, "wi-child", "Child", &parentID)
	deps := newFakeDependencyRepo()
	svc := NewPromoteService(workItems, deps, newFakeClock())

	promoted, steps, err := svc.Execute(context.Background(), nil, "wi-child")

	require.NoError(t, err)
	assert.True(t, promoted.IsRoot())
	require.Len(t, steps, 2)

	link, err := deps.Find(context.Background(), nil, "wi-parent", "wi-child")
	require.NoError(t, err)
	require.NotNil(t, link)
	assert.Equal(t, entities.DependencyLinked, link.DependencyType)
	assert.True(t, link.IsActive)
}

func TestPromoteService_Execute_RejectsAlreadyRoot(t *testing.T) {
	workItems := newFakeWorkItemRepo()
	seedItem(t, workItems, "wi-root", "Root", nil)
	deps := newFakeDependencyRepo()
	svc := NewPromoteService(workItems, deps, newFakeClock())

	_, _, err := svc.Execute(context.Background(), nil, "wi-root")

	assert.ErrorIs(t, err, apperrors.ErrAlreadyRoot)
}
