package pipeline

import (
	"fmt"
	"math"

	"pair_tracker/internal/feature/tracker/domain"
	"pair_tracker/internal/feature/tracker/domain/entity"
)

// MinRows は後続処理に必要な最小行数です。
const MinRows = 2

// FillGaps は欠損セルを列ごとに前方補完し、先頭に残った欠損を後方補完します。
// タイムスタンプのインデックスは変更しません。入力テーブルは変更されません。
func FillGaps(t entity.PriceTable) (entity.PriceTable, error) {
	if t.Len() == 0 {
		return entity.PriceTable{}, fmt.Errorf("%w: empty price table", domain.ErrInsufficientData)
	}

	out := t.Clone()
	for i, col := range out.Columns {
		forwardFill(col)
		backwardFill(col)
		if math.IsNaN(col[0]) {
			return entity.PriceTable{}, fmt.Errorf("%w: no valid observations for %s", domain.ErrInsufficientData, out.Symbols[i])
		}
	}

	if out.Len() < MinRows {
		return entity.PriceTable{}, fmt.Errorf("%w: need at least %d rows, got %d", domain.ErrInsufficientData, MinRows, out.Len())
	}
	return out, nil
}

func forwardFill(col []float64) {
	last := math.NaN()
	for i, v := range col {
		if math.IsNaN(v) {
			col[i] = last
			continue
		}
		last = v
	}
}

func backwardFill(col []float64) {
	next := math.NaN()
	for i := len(col) - 1; i >= 0; i-- {
		if math.IsNaN(col[i]) {
			col[i] = next
			continue
		}
		next = col[i]
	}
}
