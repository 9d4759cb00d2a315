package pipeline_test

import (
	"math"
	"time"

	"pair_tracker/internal/feature/tracker/domain/entity"
)

var nan = math.NaN()

// hours はbaseから1時間刻みのn個のタイムスタンプを返します。
func hours(n int) []time.Time {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = base.Add(time.Duration(i) * time.Hour)
	}
	return out
}

func twoLevel(index []time.Time, cols map[[2]string][]float64, order ...[2]string) entity.RawTable {
	raw := entity.RawTable{Index: index, Levels: 2}
	for _, k := range order {
		raw.Columns = append(raw.Columns, entity.RawColumn{Labels: []string{k[0], k[1]}, Values: cols[k]})
	}
	return raw
}

func direct(index []time.Time, names []string, cols ...[]float64) entity.RawTable {
	raw := entity.RawTable{Index: index, Levels: 1}
	for i, n := range names {
		raw.Columns = append(raw.Columns, entity.RawColumn{Labels: []string{n}, Values: cols[i]})
	}
	return raw
}
