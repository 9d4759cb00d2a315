// Package entity defines the domain models for the tracker feature.
package entity

import (
	"math"
	"strings"
	"time"
)

// RawColumn is one column of a RawTable as the data source returned it.
// Labels holds one label per column level (e.g. ["Close", "BTC-USD"] for a
// two-level table, ["BTC-USD"] for a single-level one).
// A NaN value marks a missing cell.
type RawColumn struct {
	Labels []string
	Values []float64
}

// RawTable is the data source's response before any schema reconciliation.
// Rows are keyed by Index, which may be unsorted and irregular.
type RawTable struct {
	Index   []time.Time
	Levels  int // number of column levels (1 or 2)
	Columns []RawColumn
}

// IsEmpty reports whether the table carries neither rows nor columns.
func (t RawTable) IsEmpty() bool {
	return len(t.Index) == 0 && len(t.Columns) == 0
}

// ColumnNames returns printable column labels, used when reporting a shape mismatch.
func (t RawTable) ColumnNames() []string {
	out := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if len(c.Labels) == 1 {
			out = append(out, c.Labels[0])
			continue
		}
		out = append(out, "("+strings.Join(c.Labels, ", ")+")")
	}
	return out
}

// PriceTable is the canonical aligned table of close prices: ascending
// timestamps, one column per tracked symbol. NaN marks a missing cell until
// the gap filler has run.
type PriceTable struct {
	Index   []time.Time
	Symbols []string
	Columns [][]float64 // Columns[i] belongs to Symbols[i]
}

// Len returns the number of rows.
func (t PriceTable) Len() int { return len(t.Index) }

// Column returns the close prices of symbol.
func (t PriceTable) Column(symbol string) ([]float64, bool) {
	for i, s := range t.Symbols {
		if s == symbol {
			return t.Columns[i], true
		}
	}
	return nil, false
}

// MissingCells counts NaN cells across all columns.
func (t PriceTable) MissingCells() int {
	n := 0
	for _, col := range t.Columns {
		for _, v := range col {
			if math.IsNaN(v) {
				n++
			}
		}
	}
	return n
}

// Clone returns a deep copy so callers can mutate columns freely.
func (t PriceTable) Clone() PriceTable {
	out := PriceTable{
		Index:   append([]time.Time(nil), t.Index...),
		Symbols: append([]string(nil), t.Symbols...),
		Columns: make([][]float64, len(t.Columns)),
	}
	for i, col := range t.Columns {
		out.Columns[i] = append([]float64(nil), col...)
	}
	return out
}
