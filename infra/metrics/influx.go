package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/acodispatch/core/metrics"
	"github.com/kilianp07/acodispatch/infra/logger"
)

// InfluxSink writes simulation records to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordSnapshot writes one point per vehicle and tank plus an order summary.
func (s *InfluxSink) RecordSnapshot(snap coremetrics.Snapshot) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(snap.Vehicles)+len(snap.Tanks)+1)
	for _, v := range snap.Vehicles {
		points = append(points, write.NewPointWithMeasurement("vehicle_state").
			AddTag("run_id", snap.RunID).
			AddTag("vehicle_id", v.ID).
			AddTag("class", v.Class).
			AddTag("status", v.Status).
			AddField("minute", snap.Minute).
			AddField("x", v.X).
			AddField("y", v.Y).
			AddField("cargo", round3(v.Cargo)).
			AddField("fuel", round3(v.Fuel)).
			AddField("fuel_used", round3(v.FuelUsed)).
			AddField("distance", v.Distance).
			AddField("route_len", v.RouteLen).
			AddField("broken_down", v.BrokenDown).
			SetTime(snap.Time))
	}
	for _, t := range snap.Tanks {
		points = append(points, write.NewPointWithMeasurement("tank_state").
			AddTag("run_id", snap.RunID).
			AddTag("tank_id", t.ID).
			AddField("minute", snap.Minute).
			AddField("available", round3(t.Available)).
			AddField("capacity", round3(t.Capacity)).
			SetTime(snap.Time))
	}
	points = append(points, write.NewPointWithMeasurement("orders_state").
		AddTag("run_id", snap.RunID).
		AddField("minute", snap.Minute).
		AddField("pending", snap.Pending).
		AddField("scheduled", snap.Scheduled).
		AddField("delivered", snap.Delivered).
		AddField("discarded", snap.Discarded).
		AddField("blocked_edges", snap.BlockedEdges).
		SetTime(snap.Time))
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordDelivery writes a delivery point.
func (s *InfluxSink) RecordDelivery(rec coremetrics.DeliveryRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("delivery").
		AddTag("run_id", rec.RunID).
		AddTag("vehicle_id", rec.VehicleID).
		AddTag("order_id", rec.OrderID)
	if rec.ParentID != "" {
		p = p.AddTag("parent_id", rec.ParentID)
	}
	p = p.AddField("minute", rec.Minute).
		AddField("deadline", rec.Deadline).
		AddField("slack", rec.Slack).
		AddField("volume", round3(rec.Volume)).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordReplan writes an optimisation round.
func (s *InfluxSink) RecordReplan(rec coremetrics.ReplanRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("replan").
		AddTag("run_id", rec.RunID).
		AddField("minute", rec.Minute).
		AddField("candidates", rec.Candidates).
		AddField("assigned", rec.Assigned).
		AddField("vehicles", rec.Vehicles).
		AddField("cost", round3(rec.Cost)).
		AddField("duration_ms", round3(rec.Duration.Seconds()*1000)).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordBreakdown writes a breakdown.
func (s *InfluxSink) RecordBreakdown(rec coremetrics.BreakdownRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("breakdown").
		AddTag("run_id", rec.RunID).
		AddTag("vehicle_id", rec.VehicleID).
		AddTag("shift", rec.Shift).
		AddTag("severity", rec.Severity).
		AddField("minute", rec.Minute).
		AddField("until", rec.Until).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
