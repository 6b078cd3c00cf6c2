package usecases

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/samirrijal/trafficmap/internal/core/domain"
)

// Summarize computes row count, time span, extent and speed statistics.
func Summarize(t domain.Table) *domain.Summary {
	sum := &domain.Summary{Rows: t.Len()}

	if first, last, ok := t.TimeSpan(); ok {
		sum.FirstTime = &first
		sum.LastTime = &last
	}
	if b, ok := t.Extent(); ok {
		sum.Extent = &b
	}

	speeds := t.Speeds()
	if len(speeds) > 0 {
		sort.Float64s(speeds)
		sum.Speed = &domain.SpeedStats{
			Mean: stat.Mean(speeds, nil),
			Min:  floats.Min(speeds),
			Max:  floats.Max(speeds),
			P50:  stat.Quantile(0.5, stat.Empirical, speeds, nil),
			P95:  stat.Quantile(0.95, stat.Empirical, speeds, nil),
		}
	}

	return sum
}
