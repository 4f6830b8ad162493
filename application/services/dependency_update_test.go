package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workitems/domain/core/entities"
	apperrors "workitems/pkg/errors"
)

func TestDependencyUpdateService_AddEdges_RejectsSelfDependency(t *testing.T) {
	workItems := newFakeWorkItemRepo()
	seedItem(t, workItems, "wi-1", "A", nil)
	deps := newFakeDependencyRepo()
	svc := NewDependencyUpdateService(workItems, deps)

	_, err := svc.AddEdges(context.Background(), nil, "wi-1", []DependencyInput{
		{DependsOn: "wi-1", Type: entities.DependencyFinishToStart},
	})

	assert.ErrorIs(t, err, apperrors.ErrSelfDependency)
}

func TestDependencyUpdateService_AddEdges_RejectsCycle(t *testing.T) {
	workItems := newFakeWorkItemRepo()
	seedItem(t, workItems, "wi-1", "A", nil)
	seedItem(t, workItems, "wi-2", "B", nil)
	deps := newFakeDependencyRepo()
	svc := NewDependencyUpdateService(workItems, deps)
	ctx := context.Background()

	_, err := svc.AddEdges(ctx, nil, "wi-1", []DependencyInput{{DependsOn: "wi-2", Type: entities.DependencyFinishToStart}})
	require.NoError(t, err)

	_, err = svc.AddEdges(ctx, nil, "wi-2", []DependencyInput{{DependsOn: "wi-1", Type: entities.DependencyFinishToStart}})
	assert.ErrorIs(t, err, apperrors.ErrDependencyCycle)
}

func TestDependencyUpdateService_DeleteEdges_ReportsMissing(t *testing.T) {
	workItems := newFakeWorkItemRepo()
	seedItem(t, workItems, "wi-1", "A", nil)
	deps := newFakeDependencyRepo()
	svc := NewDependencyUpdateService(workItems, deps)

	_, err := svc.DeleteEdges(context.Background(), nil, "wi-1", []string{"wi-2"})

	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "DEPENDENCY_NOT_FOUND", domainErr.Code)
	assert.Equal(t, []string{"wi-2"}, domainErr.Details["missing"])
}

func TestDependencyUpdateService_AddThenDeleteEdge(t *testing.T) {
	workItems := newFakeWorkItemRepo()
	seedItem(t, workItems, "wi-1", "A", nil)
	seedItem(t, workItems, "wi-2", "B", nil)
	deps := newFakeDependencyRepo()
	svc := NewDependencyUpdateService(workItems, deps)
	ctx := context.Background()

	steps, err := svc.AddEdges(ctx, nil, "wi-1", []DependencyInput{{DependsOn: "wi-2", Type: entities.DependencyLinked}})
	require.NoError(t, err)
	assert.Len(t, steps, 1)

	steps, err = svc.DeleteEdges(ctx, nil, "wi-1", []string{"wi-2"})
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, entities.StepUpdate, steps[0].StepType)
}
