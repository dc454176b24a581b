package mqtt

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/acodispatch/core/factory"
	coremetrics "github.com/kilianp07/acodispatch/core/metrics"
	coremqtt "github.com/kilianp07/acodispatch/core/mqtt"
)

type sent struct {
	topic    string
	payload  []byte
	retained bool
}

type fakePublisher struct {
	msgs []sent
	fail map[string]bool
}

func (f *fakePublisher) Publish(topic string, payload []byte, retained bool) error {
	f.msgs = append(f.msgs, sent{topic, payload, retained})
	if f.fail[topic] {
		return errors.New("broker down")
	}
	return nil
}

func TestStatePublisherSnapshot(t *testing.T) {
	fp := &fakePublisher{fail: map[string]bool{"sim/vehicles/TA01/state": true}}
	sp := NewStatePublisher(fp, Config{TopicPrefix: "sim"})

	snap := coremetrics.Snapshot{
		Minute: 30,
		Vehicles: []coremetrics.VehicleState{
			{ID: "TA01", Status: "delivering"},
			{ID: "TB01", Status: "available"},
		},
	}
	err := sp.RecordSnapshot(snap)
	require.Error(t, err)

	require.Len(t, fp.msgs, 3)
	assert.Equal(t, "sim/snapshot", fp.msgs[0].topic)
	assert.Equal(t, "sim/vehicles/TA01/state", fp.msgs[1].topic)
	assert.Equal(t, "sim/vehicles/TB01/state", fp.msgs[2].topic)
	for _, m := range fp.msgs {
		assert.True(t, m.retained, m.topic)
	}

	var got coremetrics.Snapshot
	require.NoError(t, json.Unmarshal(fp.msgs[0].payload, &got))
	assert.Equal(t, 30, got.Minute)
	assert.Len(t, got.Vehicles, 2)
}

func TestStatePublisherEvents(t *testing.T) {
	fp := &fakePublisher{}
	sp := NewStatePublisher(fp, Config{})

	require.NoError(t, sp.RecordDelivery(coremetrics.DeliveryRecord{OrderID: "o1", VehicleID: "TA01", Minute: 12}))
	require.NoError(t, sp.RecordReplan(coremetrics.ReplanRecord{Minute: 3, Assigned: 2}))
	require.NoError(t, sp.RecordBreakdown(coremetrics.BreakdownRecord{VehicleID: "TD02", Severity: "T2"}))

	require.Len(t, fp.msgs, 3)
	assert.Equal(t, "acodispatch/deliveries", fp.msgs[0].topic)
	assert.Equal(t, "acodispatch/replans", fp.msgs[1].topic)
	assert.Equal(t, "acodispatch/breakdowns", fp.msgs[2].topic)
	for _, m := range fp.msgs {
		assert.False(t, m.retained, m.topic)
	}
	assert.Contains(t, string(fp.msgs[0].payload), `"o1"`)
}

func TestPublishWithoutConnection(t *testing.T) {
	var p PahoClient
	assert.ErrorIs(t, p.Publish("t", nil, false), coremqtt.ErrNotConnected)
}

func TestMQTTSinkRegistered(t *testing.T) {
	mc := &mockClient{}
	useMock(t, mc)
	sink, err := coremetrics.NewMetricsSink([]factory.ModuleConfig{{
		Type: "mqtt",
		Conf: map[string]any{"broker": "tcp://localhost:1883", "topic_prefix": "fleet", "max_retries": "1"},
	}})
	require.NoError(t, err)
	sp, ok := sink.(*StatePublisher)
	require.True(t, ok)
	require.NoError(t, sp.RecordDelivery(coremetrics.DeliveryRecord{OrderID: "o9"}))
	require.Len(t, mc.published, 1)
	assert.Equal(t, "fleet/deliveries", mc.published[0].topic)
	require.NoError(t, sp.Close())
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(topic string, payload []byte, retained bool) error {
	args := m.Called(topic, payload, retained)
	return args.Error(0)
}

func (m *mockPublisher) Disconnect() { m.Called() }

func TestStatePublisherBreakdownAndClose(t *testing.T) {
	mp := &mockPublisher{}
	mp.On("Publish", "acodispatch/breakdowns", mock.Anything, false).Return(nil).Once()
	mp.On("Disconnect").Return().Once()

	sp := NewStatePublisher(mp, Config{})
	require.NoError(t, sp.RecordBreakdown(coremetrics.BreakdownRecord{VehicleID: "TD04", Shift: "T3", Severity: "T2", Minute: 1000, Until: 1060}))
	require.NoError(t, sp.Close())

	mp.AssertExpectations(t)
	payload := mp.Calls[0].Arguments.Get(1).([]byte)
	var rec coremetrics.BreakdownRecord
	require.NoError(t, json.Unmarshal(payload, &rec))
	assert.Equal(t, 1060, rec.Until)
}
