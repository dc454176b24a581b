package scenario

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// The plain-text formats hold one entry per line:
//
//	orders:     01d00h24m:16,13,c-198,3m3,4h
//	blockages:  01d00h31m-01d21h35m:15,10,30,10,30,18
//	breakdowns: T1_TA01_T2
//
// Blank lines and lines starting with # are skipped.

// ReadOrders parses the order line format. Lines are numbered from 1 in
// errors and ids default to o<line>.
func ReadOrders(r io.Reader) ([]OrderDef, error) {
	var out []OrderDef
	err := eachLine(r, func(n int, line string) error {
		stamp, rest, ok := strings.Cut(line, ":")
		if !ok {
			return fmt.Errorf("missing ':'")
		}
		created, err := ParseMinute(stamp)
		if err != nil {
			return err
		}
		f := splitFields(rest)
		if len(f) != 5 {
			return fmt.Errorf("want x,y,customer,volume,lead; got %d fields", len(f))
		}
		x, err := strconv.Atoi(f[0])
		if err != nil {
			return fmt.Errorf("x: %w", err)
		}
		y, err := strconv.Atoi(f[1])
		if err != nil {
			return fmt.Errorf("y: %w", err)
		}
		vol, err := strconv.ParseFloat(strings.TrimSuffix(f[3], "m3"), 64)
		if err != nil {
			return fmt.Errorf("volume: %w", err)
		}
		lead, err := ParseMinute(f[4])
		if err != nil {
			return err
		}
		out = append(out, OrderDef{
			ID:       fmt.Sprintf("o%d", n),
			Created:  created,
			X:        x,
			Y:        y,
			Volume:   vol,
			Lead:     lead,
			Customer: f[2],
		})
		return nil
	})
	return out, err
}

// ReadBlockages parses the blockage line format.
func ReadBlockages(r io.Reader) ([]BlockageDef, error) {
	var out []BlockageDef
	err := eachLine(r, func(_ int, line string) error {
		window, coords, ok := strings.Cut(line, ":")
		if !ok {
			return fmt.Errorf("missing ':'")
		}
		from, to, ok := strings.Cut(window, "-")
		if !ok {
			return fmt.Errorf("missing '-' in time window")
		}
		start, err := ParseMinute(from)
		if err != nil {
			return err
		}
		end, err := ParseMinute(to)
		if err != nil {
			return err
		}
		f := splitFields(coords)
		if len(f) == 0 || len(f)%2 != 0 {
			return fmt.Errorf("coordinates must come in pairs")
		}
		b := BlockageDef{Start: start, End: end}
		for i := 0; i < len(f); i += 2 {
			x, err := strconv.Atoi(f[i])
			if err != nil {
				return err
			}
			y, err := strconv.Atoi(f[i+1])
			if err != nil {
				return err
			}
			b.Points = append(b.Points, [2]int{x, y})
		}
		out = append(out, b)
		return nil
	})
	return out, err
}

// ReadBreakdowns parses the breakdown line format shift_vehicle_severity.
func ReadBreakdowns(r io.Reader) ([]BreakdownDef, error) {
	var out []BreakdownDef
	err := eachLine(r, func(_ int, line string) error {
		parts := strings.Split(line, "_")
		if len(parts) != 3 {
			return fmt.Errorf("want shift_vehicle_severity")
		}
		out = append(out, BreakdownDef{Shift: parts[0], Vehicle: parts[1], Severity: parts[2]})
		return nil
	})
	return out, err
}

func eachLine(r io.Reader, fn func(n int, line string) error) error {
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := fn(n, line); err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
	}
	return sc.Err()
}

func splitFields(s string) []string {
	f := strings.Split(s, ",")
	for i := range f {
		f[i] = strings.TrimSpace(f[i])
	}
	return f
}
