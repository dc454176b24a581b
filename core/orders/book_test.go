package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/acodispatch/core/model"
)

func TestSplitOverCapacity(t *testing.T) {
	parent := model.Order{ID: "7", CreatedAt: 10, Deadline: 300, Destination: model.Cell{X: 3, Y: 4}, Volume: 40}
	parts, err := Split(parent, 25)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Equal(t, 25.0, parts[0].Volume)
	assert.Equal(t, 15.0, parts[1].Volume)
	for _, p := range parts {
		assert.Equal(t, "7", p.ParentID)
		assert.Equal(t, 300, p.Deadline)
		assert.Equal(t, 10, p.CreatedAt)
		assert.Equal(t, parent.Destination, p.Destination)
	}
	assert.Equal(t, "7-1", parts[0].ID)
}

func TestSplitVolumesSumToParent(t *testing.T) {
	for _, vol := range []float64{1, 25, 26, 50, 51, 99.5, 130} {
		parts, err := Split(model.Order{ID: "x", Volume: vol}, 25)
		require.NoError(t, err)
		sum := 0.0
		for _, p := range parts {
			assert.LessOrEqual(t, p.Volume, 25.0)
			assert.Greater(t, p.Volume, 0.0)
			sum += p.Volume
		}
		assert.Equal(t, vol, sum, "volume %v", vol)
	}
}

func TestSplitRejectsInvalid(t *testing.T) {
	_, err := Split(model.Order{ID: "1", Volume: 0}, 25)
	assert.Error(t, err)
	_, err = Split(model.Order{ID: "1", Volume: 5}, 0)
	assert.Error(t, err)
}

func TestIntakeRejections(t *testing.T) {
	b := NewBook(240)
	rej := b.Intake([]model.Order{
		{ID: "ok", CreatedAt: 0, Deadline: 300, Volume: 5},
		{ID: "short", CreatedAt: 0, Deadline: 100, Volume: 5},
		{ID: "empty", CreatedAt: 0, Deadline: 300, Volume: 0},
		{ID: "ok", CreatedAt: 0, Deadline: 300, Volume: 5},
	}, 25)
	require.Len(t, rej, 3)
	assert.Equal(t, "short", rej[0].OrderID)
	assert.Equal(t, "empty", rej[1].OrderID)
	assert.Equal(t, "duplicate order id", rej[2].Reason)

	o, err := b.Get("short")
	require.NoError(t, err)
	assert.Equal(t, model.OrderDiscarded, o.Status)
	assert.NotEmpty(t, o.Reason)
	assert.Equal(t, 1, b.Queued())
}

func TestActivateByCreationMinute(t *testing.T) {
	b := NewBook(0)
	b.Intake([]model.Order{
		{ID: "late", CreatedAt: 20, Deadline: 400, Volume: 5},
		{ID: "early", CreatedAt: 5, Deadline: 400, Volume: 40},
	}, 25)

	assert.Empty(t, b.Activate(4))
	got := b.Activate(5)
	require.Len(t, got, 2)
	assert.Equal(t, "early-1", got[0].ID)
	assert.Len(t, b.Open(), 2)

	got = b.Activate(25)
	require.Len(t, got, 1)
	assert.Equal(t, "late", got[0].ID)
	p, ok := b.Parent("early")
	require.True(t, ok)
	assert.Equal(t, 40.0, p.Volume)
}

func TestTransitionLifecycle(t *testing.T) {
	b := NewBook(0)
	b.Intake([]model.Order{{ID: "1", CreatedAt: 0, Deadline: 100, Volume: 5}}, 25)
	o, err := b.Get("1")
	require.NoError(t, err)

	require.ErrorIs(t, b.Transition(o, model.OrderDelivered), ErrInvalidTransition)
	require.NoError(t, b.Transition(o, model.OrderScheduled))
	o.VehicleID = "TA01"
	require.NoError(t, b.Transition(o, model.OrderPending))
	assert.Empty(t, o.VehicleID)
	require.NoError(t, b.Transition(o, model.OrderScheduled))
	require.NoError(t, b.Transition(o, model.OrderDelivered))
	assert.ErrorIs(t, b.Transition(o, model.OrderPending), ErrTerminal)
	assert.ErrorIs(t, b.Discard(o, "late"), ErrTerminal)

	_, err = b.Get("nope")
	assert.ErrorIs(t, err, ErrUnknownOrder)
}

func TestOverdue(t *testing.T) {
	b := NewBook(0)
	b.Intake([]model.Order{
		{ID: "a", CreatedAt: 0, Deadline: 10, Volume: 5},
		{ID: "b", CreatedAt: 0, Deadline: 20, Volume: 5},
	}, 25)
	b.Activate(0)
	assert.Empty(t, b.Overdue(10))
	over := b.Overdue(11)
	require.Len(t, over, 1)
	assert.Equal(t, "a", over[0].ID)

	require.NoError(t, b.Discard(over[0], "deadline"))
	assert.Empty(t, b.Overdue(11))
	assert.Equal(t, 1, b.Counts()[model.OrderDiscarded])
}
