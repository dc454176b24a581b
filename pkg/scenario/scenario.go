// Package scenario reads the inputs of a run: timed orders, road blockages
// and the per-shift breakdown schedule.
package scenario

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/acodispatch/core/model"
)

// OrderDef is one customer request.
type OrderDef struct {
	ID      string  `yaml:"id"`
	Created Minute  `yaml:"created"`
	X       int     `yaml:"x"`
	Y       int     `yaml:"y"`
	Volume  float64 `yaml:"volume"`
	// Lead is the allowed time after creation. Deadline wins when both are set.
	Lead     Minute `yaml:"lead,omitempty"`
	Deadline Minute `yaml:"deadline,omitempty"`
	Customer string `yaml:"customer,omitempty"`
}

// ToModel converts the definition into an order.
func (o OrderDef) ToModel() model.Order {
	deadline := int(o.Deadline)
	if deadline == 0 {
		deadline = int(o.Created + o.Lead)
	}
	return model.Order{
		ID:          o.ID,
		CreatedAt:   int(o.Created),
		Deadline:    deadline,
		Destination: model.Cell{X: o.X, Y: o.Y},
		Volume:      o.Volume,
	}
}

// BlockageDef closes a polyline during [Start, End).
type BlockageDef struct {
	Start  Minute   `yaml:"start"`
	End    Minute   `yaml:"end"`
	Points [][2]int `yaml:"points"`
}

// ToModel converts the definition into a blockage.
func (b BlockageDef) ToModel() model.Blockage {
	bl := model.Blockage{Start: int(b.Start), End: int(b.End)}
	for _, p := range b.Points {
		bl.Polyline = append(bl.Polyline, model.Cell{X: p[0], Y: p[1]})
	}
	return bl
}

// BreakdownDef schedules an incident for a vehicle during a shift.
type BreakdownDef struct {
	Shift    string `yaml:"shift"`
	Vehicle  string `yaml:"vehicle"`
	Severity string `yaml:"severity"`
}

// Files points at inputs kept in the plain-text line formats. Relative paths
// are resolved against the scenario file.
type Files struct {
	Orders     string `yaml:"orders,omitempty"`
	Blockages  string `yaml:"blockages,omitempty"`
	Breakdowns string `yaml:"breakdowns,omitempty"`
}

type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Orders      []OrderDef     `yaml:"orders"`
	Blockages   []BlockageDef  `yaml:"blockages,omitempty"`
	Breakdowns  []BreakdownDef `yaml:"breakdowns,omitempty"`
	Files       Files          `yaml:"files,omitempty"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	sc.assignIDs()
	if err := sc.readFiles(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &sc, nil
}

func (s *Scenario) assignIDs() {
	for i := range s.Orders {
		if s.Orders[i].ID == "" {
			s.Orders[i].ID = fmt.Sprintf("o%d", i+1)
		}
	}
}

func (s *Scenario) readFiles(dir string) error {
	if err := readFile(dir, s.Files.Orders, ReadOrders, &s.Orders); err != nil {
		return fmt.Errorf("orders: %w", err)
	}
	if err := readFile(dir, s.Files.Blockages, ReadBlockages, &s.Blockages); err != nil {
		return fmt.Errorf("blockages: %w", err)
	}
	if err := readFile(dir, s.Files.Breakdowns, ReadBreakdowns, &s.Breakdowns); err != nil {
		return fmt.Errorf("breakdowns: %w", err)
	}
	return nil
}

func readFile[T any](dir, name string, read func(io.Reader) ([]T, error), dst *[]T) error {
	if name == "" {
		return nil
	}
	if !filepath.IsAbs(name) {
		name = filepath.Join(dir, name)
	}
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	defs, err := read(f)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = append(*dst, defs...)
	return nil
}

// Validate checks the shape of every entry. Business rules such as minimum
// lead time are applied at intake.
func (s *Scenario) Validate() error {
	seen := make(map[string]bool)
	for _, o := range s.Orders {
		if seen[o.ID] {
			return fmt.Errorf("duplicate order id %s", o.ID)
		}
		seen[o.ID] = true
	}
	for i, b := range s.Blockages {
		if b.End <= b.Start {
			return fmt.Errorf("blockage %d: end must be after start", i)
		}
		if len(b.Points) == 0 {
			return fmt.Errorf("blockage %d: no points", i)
		}
	}
	for _, b := range s.Breakdowns {
		switch model.Shift(b.Shift) {
		case model.ShiftT1, model.ShiftT2, model.ShiftT3:
		default:
			return fmt.Errorf("breakdown %s: unknown shift %q", b.Vehicle, b.Shift)
		}
		if _, err := model.ParseSeverity(b.Severity); err != nil {
			return fmt.Errorf("breakdown %s: %w", b.Vehicle, err)
		}
	}
	return nil
}

// ModelOrders returns the orders in file order.
func (s *Scenario) ModelOrders() []model.Order {
	out := make([]model.Order, 0, len(s.Orders))
	for _, o := range s.Orders {
		out = append(out, o.ToModel())
	}
	return out
}

// ModelBlockages returns the blockages in file order.
func (s *Scenario) ModelBlockages() []model.Blockage {
	out := make([]model.Blockage, 0, len(s.Blockages))
	for _, b := range s.Blockages {
		out = append(out, b.ToModel())
	}
	return out
}

// Schedule returns the breakdown schedule. Validate must have passed.
func (s *Scenario) Schedule() model.BreakdownSchedule {
	sched := make(model.BreakdownSchedule)
	for _, b := range s.Breakdowns {
		sched.Add(model.Shift(b.Shift), b.Vehicle, model.Severity(b.Severity))
	}
	return sched
}
