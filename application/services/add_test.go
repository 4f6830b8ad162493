package services

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workitems/domain/core/entities"
	apperrors "workitems/pkg/errors"
)

func newAddService() (*AddService, *fakeWorkItemRepo, *fakeDependencyRepo) {
	workItems := newFakeWorkItemRepo()
	deps := newFakeDependencyRepo()
	shortnames := NewShortnameService(workItems, entities.MaxShortnameLength)
	svc := NewAddService(workItems, shortnames, &fakeIDGenerator{}, newFakeClock())
	return svc, workItems, deps
}

func TestAddService_Execute_RootItem(t *testing.T) {
	svc, _, deps := newAddService()

	w, steps, err := svc.Execute(context.Background(), nil, deps, AddInput{Name: "Launch rocket"})

	require.NoError(t, err)
	assert.Equal(t, "Launch rocket", w.Name)
	assert.True(t, w.IsRoot())
	assert.Equal(t, entities.StatusTodo, w.Status)
	assert.Equal(t, entities.PriorityMedium, w.Priority)
	assert.Equal(t, "launch-rocket", w.Shortname)
	require.Len(t, steps, 1)
	assert.Equal(t, entities.StepInsert, steps[0].StepType)
	assert.Equal(t, entities.TableWorkItems, steps[0].TableName)
}

func TestAddService_Execute_ChildRequiresExistingParent(t *testing.T) {
	svc, _, deps := newAddService()
	missing := "does-not-exist"

	_, _, err := svc.Execute(context.Background(), nil, deps, AddInput{Name: "Sub task", ParentID: &missing})

	assert.ErrorIs(t, err, apperrors.ErrParentNotFound)
}

func TestAddService_Execute_DuplicateNameGetsDisambiguatedShortname(t *testing.T) {
	svc, _, deps := newAddService()
	ctx := context.Background()

	first, _, err := svc.Execute(ctx, nil, deps, AddInput{Name: "Task"})
	require.NoError(t, err)
	second, _, err := svc.Execute(ctx, nil, deps, AddInput{Name: "Task"})
	require.NoError(t, err)

	assert.Equal(t, "task", first.Shortname)
	assert.Equal(t, "task-2", second.Shortname)
}

func TestAddService_Execute_EmptyNameRejected(t *testing.T) {
	svc, _, deps := newAddService()

	_, _, err := svc.Execute(context.Background(), nil, deps, AddInput{Name: ""})

	require.Error(t, err)
}

func TestAddService_Execute_MissingDependencyRejected(t *testing.T) {
	svc, workItems, deps := newAddService()
	// Self-dependency is exercised via DependencyUpdateService; here we
	// confirm a dependency on a nonexistent item fails closed.
	_ = workItems
	_, _, err := svc.Execute(context.Background(), nil, deps, AddInput{
		Name:         "Task",
		Dependencies: []DependencyInput{{DependsOn: "ghost", Type: entities.DependencyFinishToStart}},
	})

	assert.ErrorIs(t, err, apperrors.ErrDependencyNotFound)
}

func TestAddService_Execute_PositionAtStart(t *testing.T) {
	svc, _, deps := newAddService()
	ctx := context.Background()

	first, _, err := svc.Execute(ctx, nil, deps, AddInput{Name: "First"})
	require.NoError(t, err)

	start := "start"
	second, _, err := svc.Execute(ctx, nil, deps, AddInput{Name: "Second", Position: &PositionInput{Enum: &start}})
	require.NoError(t, err)

	secondKey, err := strconv.ParseFloat(second.OrderKey, 64)
	require.NoError(t, err)
	firstKey, err := strconv.ParseFloat(first.OrderKey, 64)
	require.NoError(t, err)
	assert.Less(t, secondKey, firstKey)
}
