package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/ukydev/initinere/internal/errors"
	"github.com/ukydev/initinere/internal/models"
)

func TestSafetyCheckService_CreateDefaultsToTemplate(t *testing.T) {
	h := newHarness(t)
	userID := newUserID()

	check, err := h.checks.Create(context.Background(), userID, nil)
	require.NoError(t, err)

	assert.Equal(t, models.SafetyCheckPending, check.Status)
	assert.Equal(t, h.checks.Template(), check.Items)
	assert.Nil(t, check.TripID)
	assert.Nil(t, check.PassedAt)
	assert.Equal(t, testNow, check.CreatedAt)
}

func TestSafetyCheckService_CreateRejectedDuringTrip(t *testing.T) {
	h := newHarness(t)
	userID := newUserID()
	h.startTrip(t, userID, 0, 0)

	_, err := h.checks.Create(context.Background(), userID, nil)
	assert.ErrorIs(t, err, apperrors.ErrPrecondition)
}

func TestSafetyCheckService_ApproveLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := newUserID()

	items := []models.ChecklistItem{
		{Name: "brakes", Checked: true},
		{Name: "lights", Checked: false},
	}
	check, err := h.checks.Create(ctx, userID, items)
	require.NoError(t, err)
	id := check.ID.Hex()

	_, err = h.checks.Approve(ctx, id, userID)
	require.ErrorIs(t, err, apperrors.ErrIncomplete)
	assert.Contains(t, err.Error(), "1 of 2 items are unchecked")

	current, err := h.checks.Get(ctx, id, userID)
	require.NoError(t, err)
	assert.Equal(t, models.SafetyCheckPending, current.Status)

	h.clock.Advance(time.Minute)
	_, err = h.checks.UpdateItems(ctx, id, userID, checkedItems("brakes", "lights"))
	require.NoError(t, err)

	passed, err := h.checks.Approve(ctx, id, userID)
	require.NoError(t, err)
	assert.Equal(t, models.SafetyCheckPassed, passed.Status)
	require.NotNil(t, passed.PassedAt)
	assert.Equal(t, testNow.Add(time.Minute), *passed.PassedAt)

	_, err = h.checks.Approve(ctx, id, userID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	_, err = h.checks.UpdateItems(ctx, id, userID, checkedItems("brakes"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	latest, err := h.checks.LatestPassed(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, check.ID, latest.ID)
}

func TestSafetyCheckService_Reject(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := newUserID()

	check, err := h.checks.Create(ctx, userID, nil)
	require.NoError(t, err)

	failed, err := h.checks.Reject(ctx, check.ID.Hex(), userID)
	require.NoError(t, err)
	assert.Equal(t, models.SafetyCheckFailed, failed.Status)
	assert.Nil(t, failed.PassedAt)

	_, err = h.checks.Approve(ctx, check.ID.Hex(), userID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	latest, err := h.checks.LatestPassed(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestSafetyCheckService_UpdateItemsValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := newUserID()

	check, err := h.checks.Create(ctx, userID, nil)
	require.NoError(t, err)

	_, err = h.checks.UpdateItems(ctx, check.ID.Hex(), userID, nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = h.checks.UpdateItems(ctx, "bogus", userID, checkedItems("brakes"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestSafetyCheckService_OtherUsersChecksAreNotFound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := newUserID()

	check, err := h.checks.Create(ctx, owner, checkedItems("brakes"))
	require.NoError(t, err)

	_, err = h.checks.Get(ctx, check.ID.Hex(), newUserID())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = h.checks.Approve(ctx, check.ID.Hex(), newUserID())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSafetyCheckService_CurrentIsNewest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := newUserID()

	current, err := h.checks.Current(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, current)

	_, err = h.checks.Create(ctx, userID, nil)
	require.NoError(t, err)
	h.clock.Advance(time.Second)
	second, err := h.checks.Create(ctx, userID, nil)
	require.NoError(t, err)

	current, err = h.checks.Current(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, second.ID, current.ID)
}
