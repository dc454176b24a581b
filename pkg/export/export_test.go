package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/acodispatch/core/dispatch"
	"github.com/kilianp07/acodispatch/core/metrics"
)

func sampleReport() dispatch.Report {
	return dispatch.Report{
		RunID:     "run-1",
		Minutes:   120,
		Delivered: 2,
		AvgSlack:  40,
		Deliveries: []metrics.DeliveryRecord{
			{OrderID: "o1", VehicleID: "TA01", Minute: 30, Deadline: 90, Slack: 60, Volume: 2.5},
			{OrderID: "o2-1", ParentID: "o2", VehicleID: "TD03", Minute: 80, Deadline: 100, Slack: 20, Volume: 5},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleReport()))
	want := "order_id,vehicle_id,minute,deadline,slack,volume,parent_id\n" +
		"o1,TA01,30,90,60,2.5,\n" +
		"o2-1,TD03,80,100,20,5,o2\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleReport()))
	var got dispatch.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Len(t, got.Deliveries, 2)
	assert.InDelta(t, 40, got.AvgSlack, 1e-9)
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"report.json", "report.CSV"} {
		path := filepath.Join(dir, name)
		require.NoError(t, WriteFile(path, sampleReport()))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "TD03")
	}
	assert.Error(t, WriteFile(filepath.Join(dir, "report.xml"), sampleReport()))
}
