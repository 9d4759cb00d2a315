// Package pipeline は生の価格テーブルを正規化し、ポートフォリオ・EMA・比較指標を導出する純粋関数群です。
// どの関数も時計や外部状態を参照しません。
package pipeline

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"pair_tracker/internal/feature/tracker/domain"
	"pair_tracker/internal/feature/tracker/domain/entity"
)

// closeField は終値フィールドのラベルです（大文字小文字は区別しません）。
const closeField = "close"

// Layout は生テーブルの列構造の閉じた集合です。
// 実装は TwoLevelColumns / DirectSymbolColumns / FieldColumns / Unrecognized のみです。
type Layout interface {
	isLayout()
	String() string
}

// TwoLevelColumns は (フィールド, 銘柄) の2段列です。FieldLevel はフィールド名が入っている段を示します。
type TwoLevelColumns struct {
	FieldLevel int
}

// DirectSymbolColumns は銘柄名そのものが列名になっている1段列です。値は終値として扱います。
type DirectSymbolColumns struct{}

// FieldColumns はフィールド名が列名になっている1段列です（最終手段）。
// 銘柄を特定できないため、対象銘柄が1つの場合のみ利用できます。
type FieldColumns struct{}

// Unrecognized はどの構造にも一致しなかったことを表します。
type Unrecognized struct {
	Reason string
}

func (TwoLevelColumns) isLayout()     {}
func (DirectSymbolColumns) isLayout() {}
func (FieldColumns) isLayout()        {}
func (Unrecognized) isLayout()        {}

func (l TwoLevelColumns) String() string {
	if l.FieldLevel == 0 {
		return "two-level (field, symbol)"
	}
	return "two-level (symbol, field)"
}
func (DirectSymbolColumns) String() string { return "direct symbol columns" }
func (FieldColumns) String() string        { return "field columns" }
func (u Unrecognized) String() string      { return "unrecognized: " + u.Reason }

// DetectLayout は生テーブルの列構造を判定します。
// 2段列を最初に判定し、次に銘柄名の列、最後にフィールド名の列を試します。
func DetectLayout(raw entity.RawTable, symbols []string) Layout {
	if raw.Levels == 2 {
		if !labelsHaveDepth(raw, 2) {
			return Unrecognized{Reason: "inconsistent column levels"}
		}
		switch {
		case hasField(raw, 0, closeField):
			return TwoLevelColumns{FieldLevel: 0}
		case hasField(raw, 1, closeField):
			return TwoLevelColumns{FieldLevel: 1}
		}
		return Unrecognized{Reason: "two-level columns without a close field"}
	}
	if raw.Levels > 2 {
		return Unrecognized{Reason: fmt.Sprintf("%d column levels", raw.Levels)}
	}
	if len(raw.Columns) == 0 || !labelsHaveDepth(raw, 1) {
		return Unrecognized{Reason: "no usable columns"}
	}
	if hasAllSymbols(raw, symbols) {
		return DirectSymbolColumns{}
	}
	if len(symbols) == 1 && hasField(raw, 0, closeField) {
		return FieldColumns{}
	}
	return Unrecognized{Reason: "expected symbols not found"}
}

// NormalizeSchema は生テーブルを銘柄ごとの終値1列のみからなる PriceTable に変換します。
// 行は UTC の昇順に並べ替え、重複したタイムスタンプは1行にまとめます。
func NormalizeSchema(raw entity.RawTable, symbols []string) (entity.PriceTable, error) {
	if raw.IsEmpty() {
		return entity.PriceTable{}, fmt.Errorf("%w: no data returned for the selected range", domain.ErrInsufficientData)
	}

	var (
		cols [][]float64
		err  error
	)
	switch l := DetectLayout(raw, symbols).(type) {
	case TwoLevelColumns:
		cols, err = selectTwoLevel(raw, symbols, l.FieldLevel)
	case DirectSymbolColumns:
		cols, err = selectBySymbol(raw, symbols, 0)
	case FieldColumns:
		cols = [][]float64{findColumn(raw, 0, closeField, strings.EqualFold)}
	case Unrecognized:
		err = &domain.DataShapeError{Columns: raw.ColumnNames(), Reason: l.Reason}
	}
	if err != nil {
		return entity.PriceTable{}, err
	}

	for i, col := range cols {
		if len(col) != len(raw.Index) {
			return entity.PriceTable{}, &domain.DataShapeError{
				Columns: raw.ColumnNames(),
				Reason:  fmt.Sprintf("column %s has %d values for %d rows", symbols[i], len(col), len(raw.Index)),
			}
		}
	}

	return alignIndex(raw.Index, symbols, cols), nil
}

// selectTwoLevel は終値フィールド配下の各銘柄列を取り出します。
func selectTwoLevel(raw entity.RawTable, symbols []string, fieldLevel int) ([][]float64, error) {
	symbolLevel := 1 - fieldLevel
	out := make([][]float64, 0, len(symbols))
	for _, s := range symbols {
		var found []float64
		for _, c := range raw.Columns {
			if strings.EqualFold(c.Labels[fieldLevel], closeField) && c.Labels[symbolLevel] == s {
				found = c.Values
				break
			}
		}
		if found == nil {
			return nil, &domain.DataShapeError{Columns: raw.ColumnNames(), Reason: "no close column for " + s}
		}
		out = append(out, found)
	}
	return out, nil
}

func selectBySymbol(raw entity.RawTable, symbols []string, level int) ([][]float64, error) {
	out := make([][]float64, 0, len(symbols))
	for _, s := range symbols {
		col := findColumn(raw, level, s, func(a, b string) bool { return a == b })
		if col == nil {
			return nil, &domain.DataShapeError{Columns: raw.ColumnNames(), Reason: "no column for " + s}
		}
		out = append(out, col)
	}
	return out, nil
}

func findColumn(raw entity.RawTable, level int, label string, eq func(a, b string) bool) []float64 {
	for _, c := range raw.Columns {
		if eq(c.Labels[level], label) {
			return c.Values
		}
	}
	return nil
}

func hasField(raw entity.RawTable, level int, field string) bool {
	return findColumn(raw, level, field, strings.EqualFold) != nil
}

func hasAllSymbols(raw entity.RawTable, symbols []string) bool {
	if len(symbols) == 0 {
		return false
	}
	for _, s := range symbols {
		if findColumn(raw, 0, s, func(a, b string) bool { return a == b }) == nil {
			return false
		}
	}
	return true
}

func labelsHaveDepth(raw entity.RawTable, depth int) bool {
	for _, c := range raw.Columns {
		if len(c.Labels) != depth {
			return false
		}
	}
	return true
}

// alignIndex は行を昇順に並べ替えます。同じ時刻の行は、列ごとに最初の有効値を採用します。
func alignIndex(index []time.Time, symbols []string, cols [][]float64) entity.PriceTable {
	order := make([]int, len(index))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return index[a].Compare(index[b]) })

	out := entity.PriceTable{
		Index:   make([]time.Time, 0, len(index)),
		Symbols: append([]string(nil), symbols...),
		Columns: make([][]float64, len(cols)),
	}
	for i := range cols {
		out.Columns[i] = make([]float64, 0, len(index))
	}

	for _, row := range order {
		ts := index[row].UTC()
		last := len(out.Index) - 1
		if last >= 0 && out.Index[last].Equal(ts) {
			for i, col := range cols {
				if math.IsNaN(out.Columns[i][last]) {
					out.Columns[i][last] = col[row]
				}
			}
			continue
		}
		out.Index = append(out.Index, ts)
		for i, col := range cols {
			out.Columns[i] = append(out.Columns[i], col[row])
		}
	}
	return out
}
