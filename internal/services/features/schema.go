package features

import (
	"fmt"
	"strconv"
	"strings"

	"KiranaCash/internal/domain/models"
	domsvc "KiranaCash/internal/domain/service"
)

type ColumnKind string

const (
	KindFloat  ColumnKind = "float"
	KindInt    ColumnKind = "int"
	KindOneHot ColumnKind = "onehot"
)

// Column is one named, typed feature.
type Column struct {
	Name string     `json:"name"`
	Kind ColumnKind `json:"kind"`
}

// Schema is the ordered column list a model is fitted and queried with.
// Training export and inference both build rows through the same Schema.
type Schema struct {
	Name    string   `json:"name"`
	Version int      `json:"version"`
	Columns []Column `json:"columns"`

	index map[string]int
}

func newSchema(name string, version int, cols []Column) *Schema {
	s := &Schema{Name: name, Version: version, Columns: cols, index: make(map[string]int, len(cols))}
	for i, c := range cols {
		s.index[c.Name] = i
	}
	return s
}

// ID returns "name/vN".
func (s *Schema) ID() string { return s.Name + "/v" + strconv.Itoa(s.Version) }

func (s *Schema) Len() int { return len(s.Columns) }

// Names returns the ordered column names.
func (s *Schema) Names() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Name
	}
	return out
}

// Index returns the position of a column or -1.
func (s *Schema) Index(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// NewRow returns a zeroed row.
func (s *Schema) NewRow() []float64 { return make([]float64, len(s.Columns)) }

// Set writes value into the named column of row. Unknown names are a programming error.
func (s *Schema) Set(row []float64, name string, value float64) {
	i, ok := s.index[name]
	if !ok {
		panic(fmt.Sprintf("schema %s: unknown column %q", s.ID(), name))
	}
	row[i] = value
}

// Matrix wraps rows with the schema's column names.
func (s *Schema) Matrix(rows [][]float64) domsvc.FeatureMatrix {
	return domsvc.FeatureMatrix{Columns: s.Names(), Rows: rows}
}

// Check reports an ErrInference when columns differ from the schema in
// membership or order.
func (s *Schema) Check(columns []string) error {
	if len(columns) != len(s.Columns) {
		return fmt.Errorf("%w: schema %s has %d columns, got %d", domsvc.ErrInference, s.ID(), len(s.Columns), len(columns))
	}
	for i, c := range s.Columns {
		if columns[i] != c.Name {
			return fmt.Errorf("%w: schema %s column %d is %q, got %q", domsvc.ErrInference, s.ID(), i, c.Name, columns[i])
		}
	}
	return nil
}

// DailyAmountSchema is the daily total model's input: calendar features plus
// lag and rolling statistics of daily cash change.
func DailyAmountSchema() *Schema {
	return newSchema("daily_amount", 1, []Column{
		{"day_of_week", KindInt},
		{"month", KindInt},
		{"day_of_month", KindInt},
		{"is_weekend", KindInt},
		{"lag1", KindFloat},
		{"lag2", KindFloat},
		{"lag3", KindFloat},
		{"lag7", KindFloat},
		{"roll3", KindFloat},
		{"roll7", KindFloat},
		{"roll3_std", KindFloat},
		{"roll7_std", KindFloat},
		{"roll14", KindFloat},
	})
}

// SpikeHourSchema is the hourly traffic model's input.
func SpikeHourSchema() *Schema {
	return newSchema("spike_hour", 1, []Column{
		{"hour", KindInt},
		{"dayofweek", KindInt},
		{"lag_24", KindFloat},
	})
}

const (
	tenderedPrefix = "tendered_"
	storePrefix    = "store_"
	// UnknownStore is the bucket for missing or unlisted store categories.
	UnknownStore = "unknown"
)

// SplitSchema is the per-transaction denomination model's input. It carries
// the denomination list and store categories its columns were derived from.
type SplitSchema struct {
	*Schema
	Denominations models.Denominations
	StoreTypes    []string
}

// DenominationSplitSchema builds the split schema: amounts, calendar
// features, tendered counts per denomination and one-hot store categories.
func DenominationSplitSchema(denoms models.Denominations, storeTypes []string) *SplitSchema {
	cols := []Column{
		{"total_amount", KindFloat},
		{"tendered_amount", KindFloat},
		{"day_of_week", KindInt},
		{"month", KindInt},
		{"is_weekend", KindInt},
	}
	for _, d := range denoms {
		cols = append(cols, Column{tenderedPrefix + strconv.Itoa(d), KindInt})
	}
	stores := make([]string, 0, len(storeTypes))
	for _, st := range storeTypes {
		st = strings.TrimSpace(st)
		if st == "" || st == UnknownStore {
			continue
		}
		stores = append(stores, st)
		cols = append(cols, Column{storePrefix + st, KindOneHot})
	}
	cols = append(cols, Column{storePrefix + UnknownStore, KindOneHot})
	return &SplitSchema{
		Schema:        newSchema("denomination_split", 1, cols),
		Denominations: denoms,
		StoreTypes:    stores,
	}
}

// StoreColumn maps a store category to its one-hot column.
func (s *SplitSchema) StoreColumn(storeType string) string {
	st := strings.TrimSpace(storeType)
	for _, known := range s.StoreTypes {
		if known == st {
			return storePrefix + st
		}
	}
	return storePrefix + UnknownStore
}

// Row builds one split feature row.
func (s *SplitSchema) Row(df models.DateFeatures, total, tendered float64, tenderCounts []int, storeType string) []float64 {
	row := s.NewRow()
	s.Set(row, "total_amount", total)
	s.Set(row, "tendered_amount", tendered)
	s.Set(row, "day_of_week", float64(df.DayOfWeek))
	s.Set(row, "month", float64(df.Month))
	s.Set(row, "is_weekend", float64(df.IsWeekend))
	for i, d := range s.Denominations {
		if i < len(tenderCounts) {
			s.Set(row, tenderedPrefix+strconv.Itoa(d), float64(tenderCounts[i]))
		}
	}
	s.Set(row, s.StoreColumn(storeType), 1)
	return row
}
