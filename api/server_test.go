package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/acodispatch/api/vehicles"
	"github.com/kilianp07/acodispatch/core/dispatch"
	"github.com/kilianp07/acodispatch/core/dispatch/journal"
	"github.com/kilianp07/acodispatch/core/fleet"
	"github.com/kilianp07/acodispatch/core/metrics"
	"github.com/kilianp07/acodispatch/core/model"
	"github.com/kilianp07/acodispatch/core/orders"
	"github.com/kilianp07/acodispatch/core/resupply"
)

func newScheduler(t *testing.T, store journal.Store) *dispatch.Scheduler {
	t.Helper()
	reg, err := fleet.NewRegistry([]model.VehicleClass{{Code: "TB", Count: 2, Capacity: 15, TareKg: 5000, FuelCapacity: 25}}, model.Cell{})
	require.NoError(t, err)
	book := orders.NewBook(0)
	require.Empty(t, book.Intake([]model.Order{{ID: "o1", Deadline: 200, Destination: model.Cell{X: 4, Y: 2}, Volume: 3}}, reg.MaxCapacity()))
	net, err := resupply.NewNetwork(model.Cell{}, nil, 0)
	require.NoError(t, err)
	sim := &dispatch.SimContext{Grid: model.Grid{Width: 10, Height: 10}, Fleet: reg, Orders: book, Resupply: net}
	opts := []dispatch.Option{}
	if store != nil {
		opts = append(opts, dispatch.WithJournal(store))
	}
	s, err := dispatch.New(sim, dispatch.Config{HorizonMinutes: 100}, opts...)
	require.NoError(t, err)
	require.NoError(t, s.Step())
	return s
}

func get(t *testing.T, srv *httptest.Server, path string, out any) int {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestMux(t *testing.T) {
	store, err := journal.NewJSONLStore(filepath.Join(t.TempDir(), "replans.jsonl"))
	require.NoError(t, err)
	sched := newScheduler(t, store)
	srv := httptest.NewServer(NewMux(sched, store, ""))
	defer srv.Close()

	var vs []model.Vehicle
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/vehicles?status=delivering", &vs))
	require.Len(t, vs, 1)

	var v vehicles.View
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/vehicles/"+vs[0].ID, &v))
	assert.Equal(t, model.VehicleDelivering, v.Status)
	assert.Equal(t, []string{"o1"}, v.Route)

	var snap metrics.Snapshot
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/snapshot", &snap))
	assert.Equal(t, 1, snap.Minute)
	assert.Equal(t, 1, snap.Scheduled)

	var rep dispatch.Report
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/report", &rep))
	assert.Equal(t, sched.RunID(), rep.RunID)

	var recs []journal.Record
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/replans?order_id=o1", &recs))
	assert.Len(t, recs, 1)
}

func TestMuxWithoutJournal(t *testing.T) {
	srv := httptest.NewServer(NewMux(newScheduler(t, nil), nil, ""))
	defer srv.Close()
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/replans", nil))
}

func TestServeStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "127.0.0.1:0", http.NewServeMux()) }()
	cancel()
	assert.NoError(t, <-done)
}
