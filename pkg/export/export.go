// Package export writes run reports for offline analysis.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kilianp07/acodispatch/core/dispatch"
)

var deliveryHeader = []string{"order_id", "vehicle_id", "minute", "deadline", "slack", "volume", "parent_id"}

// WriteJSON encodes the whole report, deliveries included.
func WriteJSON(w io.Writer, rep dispatch.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// WriteCSV writes one row per delivery.
func WriteCSV(w io.Writer, rep dispatch.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(deliveryHeader); err != nil {
		return err
	}
	for _, d := range rep.Deliveries {
		row := []string{
			d.OrderID,
			d.VehicleID,
			strconv.Itoa(d.Minute),
			strconv.Itoa(d.Deadline),
			strconv.Itoa(d.Slack),
			strconv.FormatFloat(d.Volume, 'f', -1, 64),
			d.ParentID,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile picks the format from the extension of path: .json or .csv.
func WriteFile(path string, rep dispatch.Report) (err error) {
	var write func(io.Writer, dispatch.Report) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		write = WriteJSON
	case ".csv":
		write = WriteCSV
	default:
		return fmt.Errorf("unsupported report format: %s", filepath.Ext(path))
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f, rep)
}
