package service

import (
	"fmt"
	"math"

	"netauction/internal/domain"
)

// DailyStat summarises one day across all trials of a rho
type DailyStat struct {
	Day      int
	MeanSell float64
	MeanBuy  float64
	StdSell  float64 // sample standard deviation across trials
	StdBuy   float64
	Spread   float64 // MeanBuy - MeanSell
}

// Summarize computes the per-day cross-trial statistics of a sweep result
func Summarize(r *domain.SweepResult) []DailyStat {
	sell := r.Grid(domain.SideSell)
	buy := r.Grid(domain.SideBuy)

	stats := make([]DailyStat, r.NDays)
	for day := range stats {
		ms, ss := meanStd(sell[day])
		mb, sb := meanStd(buy[day])
		stats[day] = DailyStat{
			Day:      day,
			MeanSell: ms,
			MeanBuy:  mb,
			StdSell:  ss,
			StdBuy:   sb,
			Spread:   mb - ms,
		}
	}
	return stats
}

// meanStd returns the mean and the n-1 standard deviation; the deviation
// is 0 for fewer than two values.
func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	if len(values) < 2 {
		return mean, 0
	}

	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(len(values)-1))
}

// ConvergenceDay returns the first day whose absolute spread is below eps, or -1
func ConvergenceDay(stats []DailyStat, eps float64) int {
	for _, s := range stats {
		if math.Abs(s.Spread) < eps {
			return s.Day
		}
	}
	return -1
}

// Pair groups rows into results. Rows must come as a Sell row followed by
// the Buy row of the same rho and shape, in sweep order.
func Pair(rows []domain.SeriesRow) ([]*domain.SweepResult, error) {
	if len(rows)%2 != 0 {
		return nil, fmt.Errorf("%w: %d rows is not a whole number of sell/buy pairs", domain.ErrMalformedRow, len(rows))
	}

	results := make([]*domain.SweepResult, 0, len(rows)/2)
	for i := 0; i < len(rows); i += 2 {
		sell, buy := rows[i], rows[i+1]
		if sell.Side != domain.SideSell || buy.Side != domain.SideBuy {
			return nil, fmt.Errorf("%w: rows %d-%d are %s/%s, want Sell/Buy", domain.ErrMalformedRow, i, i+1, sell.Side, buy.Side)
		}
		if !sell.Rho.Equal(buy.Rho) || sell.NIter != buy.NIter || sell.NDays != buy.NDays {
			return nil, fmt.Errorf("%w: rows %d-%d disagree on rho or shape", domain.ErrMalformedRow, i, i+1)
		}

		r := &domain.SweepResult{
			Rho:   sell.Rho,
			NIter: sell.NIter,
			NDays: sell.NDays,
			Sell:  sell.Values,
			Buy:   buy.Values,
		}
		if err := r.Validate(); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}
