package sarthi_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/safar/kavach-store/internal/memstore"
	"github.com/safar/kavach-store/internal/models"
	"github.com/safar/kavach-store/internal/sarthi"
	"github.com/safar/kavach-store/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func setupService(t *testing.T) (*sarthi.Service, *testClock) {
	t.Helper()

	clock := &testClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	n := 0
	svc := sarthi.NewService(memstore.NewConsult(),
		sarthi.WithClock(clock.Now),
		sarthi.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
	)

	ctx := context.Background()
	_, err := svc.AddExpert(ctx, models.Expert{ID: "exp-1", Name: "Anita", Specialization: "Vedic astrology"})
	require.NoError(t, err)
	_, err = svc.AddExpert(ctx, models.Expert{ID: "exp-2", Name: "Rahul", Specialization: "Career"})
	require.NoError(t, err)
	return svc, clock
}

func TestRequestLifecycle(t *testing.T) {
	svc, clock := setupService(t)
	ctx := context.Background()

	r, err := svc.CreateRequest(ctx, "cust-1", "Career feels stuck", "career")
	require.NoError(t, err)
	assert.Equal(t, models.SarthiUnassigned, r.Status)

	r, err = svc.AssignExpert(ctx, r.ID, "exp-1")
	require.NoError(t, err)
	assert.Equal(t, models.SarthiAssigned, r.Status)

	r, err = svc.AssignExpert(ctx, r.ID, "exp-2")
	require.NoError(t, err)
	assert.Equal(t, "exp-2", r.ExpertID)

	at := clock.now.Add(48 * time.Hour)
	r, err = svc.Schedule(ctx, r.ID, at)
	require.NoError(t, err)
	assert.Equal(t, models.SarthiScheduled, r.Status)
	require.NotNil(t, r.ScheduledAt)
	assert.True(t, r.ScheduledAt.Equal(at))

	later := at.Add(24 * time.Hour)
	r, err = svc.Schedule(ctx, r.ID, later)
	require.NoError(t, err)
	assert.True(t, r.ScheduledAt.Equal(later))

	r, err = svc.Complete(ctx, r.ID, "Suggested a 40 day routine")
	require.NoError(t, err)
	assert.Equal(t, models.SarthiCompleted, r.Status)
	assert.Equal(t, "Suggested a 40 day routine", r.Notes)

	_, err = svc.Cancel(ctx, r.ID)
	var te *workflow.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "completed", te.From)
}

func TestScheduleRequiresAssignment(t *testing.T) {
	svc, clock := setupService(t)
	ctx := context.Background()

	r, err := svc.CreateRequest(ctx, "cust-1", "Sleep trouble", "health")
	require.NoError(t, err)

	_, err = svc.Schedule(ctx, r.ID, clock.now.Add(time.Hour))
	assert.ErrorIs(t, err, workflow.ErrIllegalTransition)

	_, err = svc.Schedule(ctx, r.ID, clock.now.Add(-time.Hour))
	assert.ErrorIs(t, err, sarthi.ErrInvalidInput)

	got, err := svc.GetRequest(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SarthiUnassigned, got.Status)
}

func TestAssignRejectsInactiveExpert(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.DeactivateExpert(ctx, "exp-1")
	require.NoError(t, err)

	r, err := svc.CreateRequest(ctx, "cust-1", "Marriage delay", "relationships")
	require.NoError(t, err)

	_, err = svc.AssignExpert(ctx, r.ID, "exp-1")
	assert.ErrorIs(t, err, sarthi.ErrExpertInactive)

	_, err = svc.AssignExpert(ctx, r.ID, "missing")
	assert.ErrorIs(t, err, sarthi.ErrExpertNotFound)

	active, err := svc.ListExperts(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "exp-2", active[0].ID)
}

func TestCancelFromEveryOpenState(t *testing.T) {
	svc, clock := setupService(t)
	ctx := context.Background()

	open := []func(id string) error{
		func(string) error { return nil },
		func(id string) error {
			_, err := svc.AssignExpert(ctx, id, "exp-1")
			return err
		},
		func(id string) error {
			if _, err := svc.AssignExpert(ctx, id, "exp-1"); err != nil {
				return err
			}
			_, err := svc.Schedule(ctx, id, clock.now.Add(time.Hour))
			return err
		},
	}

	for i, prepare := range open {
		r, err := svc.CreateRequest(ctx, "cust-1", fmt.Sprintf("problem %d", i), "misc")
		require.NoError(t, err)
		require.NoError(t, prepare(r.ID))

		cancelled, err := svc.Cancel(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SarthiCancelled, cancelled.Status)
	}
}

func TestListRequestsFilter(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.CreateRequest(ctx, "cust-1", "Job change", "career")
	require.NoError(t, err)
	r2, err := svc.CreateRequest(ctx, "cust-2", "Family conflict", "relationships")
	require.NoError(t, err)
	_, err = svc.AssignExpert(ctx, r2.ID, "exp-1")
	require.NoError(t, err)

	got, err := svc.ListRequests(ctx, sarthi.RequestFilter{Search: "FAMILY"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, r2.ID, got[0].ID)

	got, err = svc.ListRequests(ctx, sarthi.RequestFilter{Status: models.SarthiUnassigned})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "cust-1", got[0].Customer)

	_, err = svc.GetRequest(ctx, "missing")
	assert.True(t, errors.Is(err, sarthi.ErrRequestNotFound))
}

func TestCreateRequestValidation(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.CreateRequest(context.Background(), "cust-1", "   ", "career")
	assert.ErrorIs(t, err, sarthi.ErrInvalidInput)
}
