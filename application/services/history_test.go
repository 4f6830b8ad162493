package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workitems/domain/core/entities"
	apperrors "workitems/pkg/errors"
)

func newHistoryFixture() (*HistoryService, *fakeWorkItemRepo, *fakeDependencyRepo, *fakeActionHistoryRepo, *fakeIDGenerator) {
	workItems := newFakeWorkItemRepo()
	deps := newFakeDependencyRepo()
	history := newFakeActionHistoryRepo()
	ids := &fakeIDGenerator{}
	svc := NewHistoryService(workItems, deps, history, ids, newFakeClock())
	return svc, workItems, deps, history, ids
}

func TestHistoryService_Undo_ReversesAnInsert(t *testing.T) {
	svc, workItems, _, history, ids := newHistoryFixture()
	ctx := context.Background()

	w := &entities.WorkItem{WorkItemID: "wi-1", Name: "Task", Status: entities.StatusTodo, Priority: entities.PriorityMedium, OrderKey: "1000", Shortname: "task", IsActive: true}
	require.NoError(t, workItems.Create(ctx, nil, w))

	action := &entities.ActionHistory{ActionID: ids.NewActionID(), ActionType: entities.ActionAddWorkItem}
	require.NoError(t, history.CreateAction(ctx, nil, action))
	require.NoError(t, history.AppendStep(ctx, nil, &entities.UndoStep{
		ActionID: action.ActionID, StepOrder: 1, StepType: entities.StepInsert,
		TableName: entities.TableWorkItems, RecordID: "wi-1", NewData: snapshotWorkItem(w),
	}))

	undone, err := svc.Undo(ctx, nil)

	require.NoError(t, err)
	assert.Equal(t, action.ActionID, undone.ActionID)

	reloaded, err := workItems.FindByID(ctx, nil, "wi-1", true)
	require.NoError(t, err)
	assert.False(t, reloaded.IsActive)
}

func TestHistoryService_Undo_NothingToUndo(t *testing.T) {
	svc, _, _, _, _ := newHistoryFixture()

	_, err := svc.Undo(context.Background(), nil)

	assert.ErrorIs(t, err, apperrors.ErrNothingToUndo)
}

func TestHistoryService_UndoThenRedo_RestoresItem(t *testing.T) {
	svc, workItems, _, history, ids := newHistoryFixture()
	ctx := context.Background()

	w := &entities.WorkItem{WorkItemID: "wi-1", Name: "Task", Status: entities.StatusTodo, Priority: entities.PriorityMedium, OrderKey: "1000", Shortname: "task", IsActive: true}
	require.NoError(t, workItems.Create(ctx, nil, w))
	action := &entities.ActionHistory{ActionID: ids.NewActionID(), ActionType: entities.ActionAddWorkItem}
	require.NoError(t, history.CreateAction(ctx, nil, action))
	require.NoError(t, history.AppendStep(ctx, nil, &entities.UndoStep{
		ActionID: action.ActionID, StepOrder: 1, StepType: entities.StepInsert,
		TableName: entities.TableWorkItems, RecordID: "wi-1", NewData: snapshotWorkItem(w),
	}))

	_, err := svc.Undo(ctx, nil)
	require.NoError(t, err)

	redone, err := svc.Redo(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, action.ActionID, redone.ActionID)
	assert.False(t, redone.IsUndone)

	reloaded, err := workItems.FindByID(ctx, nil, "wi-1", false)
	require.NoError(t, err)
	assert.True(t, reloaded.IsActive)

	originalAction, err := history.FindActionByID(ctx, nil, action.ActionID)
	require.NoError(t, err)
	assert.False(t, originalAction.IsUndone)
}

func TestHistoryService_Redo_CalledTwiceInARowFindsNothingTheSecondTime(t *testing.T) {
	svc, workItems, _, history, ids := newHistoryFixture()
	ctx := context.Background()

	w := &entities.WorkItem{WorkItemID: "wi-1", Name: "Task", Status: entities.StatusTodo, Priority: entities.PriorityMedium, OrderKey: "1000", Shortname: "task", IsActive: true}
	require.NoError(t, workItems.Create(ctx, nil, w))
	action := &entities.ActionHistory{ActionID: ids.NewActionID(), ActionType: entities.ActionAddWorkItem}
	require.NoError(t, history.CreateAction(ctx, nil, action))
	require.NoError(t, history.AppendStep(ctx, nil, &entities.UndoStep{
		ActionID: action.ActionID, StepOrder: 1, StepType: entities.StepInsert,
		TableName: entities.TableWorkItems, RecordID: "wi-1", NewData: snapshotWorkItem(w),
	}))

	_, err := svc.Undo(ctx, nil)
	require.NoError(t, err)

	_, err = svc.Redo(ctx, nil)
	require.NoError(t, err)

	_, err = svc.Redo(ctx, nil)
	assert.ErrorIs(t, err, apperrors.ErrNothingToRedo)
}

func TestHistoryService_Redo_AfterInterveningMutationFindsNothing(t *testing.T) {
	svc, workItems, _, history, ids := newHistoryFixture()
	ctx := context.Background()

	w := &entities.WorkItem{WorkItemID: "wi-1", Name: "Task", Status: entities.StatusTodo, Priority: entities.PriorityMedium, OrderKey: "1000", Shortname: "task", IsActive: true}
	require.NoError(t, workItems.Create(ctx, nil, w))
	action := &entities.ActionHistory{ActionID: ids.NewActionID(), ActionType: entities.ActionAddWorkItem}
	require.NoError(t, history.CreateAction(ctx, nil, action))
	require.NoError(t, history.AppendStep(ctx, nil, &entities.UndoStep{
		ActionID: action.ActionID, StepOrder: 1, StepType: entities.StepInsert,
		TableName: entities.TableWorkItems, RecordID: "wi-1", NewData: snapshotWorkItem(w),
	}))

	_, err := svc.Undo(ctx, nil)
	require.NoError(t, err)

	unrelated := &entities.ActionHistory{ActionID: ids.NewActionID(), ActionType: entities.ActionAddWorkItem}
	require.NoError(t, history.CreateAction(ctx, nil, unrelated))

	_, err = svc.Redo(ctx, nil)
	assert.ErrorIs(t, err, apperrors.ErrNothingToRedo)
}

func TestHistoryService_Redo_NothingToRedo(t *testing.T) {
	svc, _, _, _, _ := newHistoryFixture()

	_, err := svc.Redo(context.Background(), nil)

	assert.ErrorIs(t, err, apperrors.ErrNothingToRedo)
}

func TestHistoryService_ListHistory_RejectsLimitAboveMax(t *testing.T) {
	svc, _, _, _, _ := newHistoryFixture()

	_, err := svc.ListHistory(context.Background(), nil, nil, nil, 5000, 100, 1000)

	assert.ErrorIs(t, err, apperrors.ErrHistoryLimitExceeded)
}

func TestHistoryService_ListHistory_DefaultsLimit(t *testing.T) {
	svc, _, _, history, ids := newHistoryFixture()
	ctx := context.Background()
	require.NoError(t, history.CreateAction(ctx, nil, &entities.ActionHistory{ActionID: ids.NewActionID(), ActionType: entities.ActionAddWorkItem}))

	actions, err := svc.ListHistory(ctx, nil, nil, nil, 0, 100, 1000)

	require.NoError(t, err)
	assert.Len(t, actions, 1)
}
