package kitchenstock

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed mapping.yaml
var defaultMapping []byte

type DispatchRule struct {
	ItemCode string `yaml:"item_code"`
	DishCode string `yaml:"dish_code"`
}

// Mapping ties raw item codes to the dish codes their consumption is read
// from. It is loaded once and never changes at runtime.
type Mapping struct {
	DispatchRule DispatchRule        `yaml:"dispatch_rule"`
	Sources      map[string][]string `yaml:"sources"`
	Overrides    map[string][]string `yaml:"overrides"`
}

// LoadMapping reads the table from path, or the embedded default when path
// is empty.
func LoadMapping(path string) (*Mapping, error) {
	data := defaultMapping
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read consumption mapping: %w", err)
		}
		data = b
	}
	return ParseMapping(data)
}

func ParseMapping(data []byte) (*Mapping, error) {
	var m Mapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse consumption mapping: %w", err)
	}
	if m.DispatchRule.ItemCode == "" || m.DispatchRule.DishCode == "" {
		return nil, fmt.Errorf("consumption mapping: dispatch_rule needs item_code and dish_code")
	}
	return &m, nil
}

// DefaultMapping is the embedded table; it panics only if the embedded file
// is broken.
func DefaultMapping() *Mapping {
	m, err := ParseMapping(defaultMapping)
	if err != nil {
		panic(err)
	}
	return m
}

// DishesOf returns the dish codes whose kg entries feed the raw item, nil
// for the dispatch rule item and unmapped items.
func (m *Mapping) DishesOf(itemCode string) []string {
	if itemCode == m.DispatchRule.ItemCode {
		return nil
	}
	if dishes, ok := m.Overrides[itemCode]; ok {
		return dishes
	}
	return m.Sources[itemCode]
}

// Consumption derives the day's consumption of a raw item from the kg
// entries and the dispatched qty per dish.
func (m *Mapping) Consumption(itemCode string, kg, dispatched map[string]float64) float64 {
	if itemCode == m.DispatchRule.ItemCode {
		return dispatched[m.DispatchRule.DishCode]
	}
	var total float64
	for _, dish := range m.DishesOf(itemCode) {
		total += kg[dish]
	}
	return total
}
