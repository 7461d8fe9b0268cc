package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Side tags a price series as the sellers' or the buyers' average.
type Side int

const (
	SideSell Side = iota + 1
	SideBuy
)

// String returns the tag written in result rows
func (s Side) String() string {
	switch s {
	case SideSell:
		return "Sell"
	case SideBuy:
		return "Buy"
	default:
		return "Unknown"
	}
}

// ParseSide parses a result row tag.
func ParseSide(tag string) (Side, error) {
	switch tag {
	case "Sell":
		return SideSell, nil
	case "Buy":
		return SideBuy, nil
	}
	return 0, fmt.Errorf("%w: unknown side %q", ErrMalformedRow, tag)
}

// SweepResult holds every trial's daily average prices for one rho.
//
// Sell and Buy are flat, day-major and trial-minor:
// index = day*NIter + trial.
type SweepResult struct {
	Rho   decimal.Decimal
	NIter int
	NDays int
	Sell  []float64
	Buy   []float64
}

// NewSweepResult allocates the flat series for nIter trials of nDays days.
func NewSweepResult(rho decimal.Decimal, nIter, nDays int) *SweepResult {
	return &SweepResult{
		Rho:   rho,
		NIter: nIter,
		NDays: nDays,
		Sell:  make([]float64, nIter*nDays),
		Buy:   make([]float64, nIter*nDays),
	}
}

// Series returns the flat values for a side.
func (r *SweepResult) Series(side Side) []float64 {
	if side == SideBuy {
		return r.Buy
	}
	return r.Sell
}

// Index maps (day, trial) into the flat layout.
func (r *SweepResult) Index(day, trial int) int {
	return day*r.NIter + trial
}

// At returns the average price of one side on a given day of a trial.
func (r *SweepResult) At(side Side, day, trial int) float64 {
	return r.Series(side)[r.Index(day, trial)]
}

// SetTrial copies one trial's trajectories into the flat layout.
func (r *SweepResult) SetTrial(trial int, sell, buy []float64) {
	for day := 0; day < r.NDays; day++ {
		r.Sell[r.Index(day, trial)] = sell[day]
		r.Buy[r.Index(day, trial)] = buy[day]
	}
}

// Grid slices a side into [day][trial].
func (r *SweepResult) Grid(side Side) [][]float64 {
	flat := r.Series(side)
	grid := make([][]float64, r.NDays)
	for day := range grid {
		grid[day] = flat[day*r.NIter : (day+1)*r.NIter]
	}
	return grid
}

// Validate checks the flat series against the header.
func (r *SweepResult) Validate() error {
	want := r.NIter * r.NDays
	if r.NIter <= 0 || r.NDays <= 0 {
		return fmt.Errorf("%w: n_iter=%d n_days=%d", ErrMalformedRow, r.NIter, r.NDays)
	}
	if len(r.Sell) != want || len(r.Buy) != want {
		return fmt.Errorf("%w: want %d values per side, got sell=%d buy=%d", ErrMalformedRow, want, len(r.Sell), len(r.Buy))
	}
	return nil
}

// SeriesRow is one persisted result row: every daily average of one side
// for one rho, flat and day-major.
type SeriesRow struct {
	Rho    decimal.Decimal
	Side   Side
	NIter  int
	NDays  int
	Values []float64
}

// Rows splits the result into its Sell row followed by its Buy row.
func (r *SweepResult) Rows() []SeriesRow {
	return []SeriesRow{
		{Rho: r.Rho, Side: SideSell, NIter: r.NIter, NDays: r.NDays, Values: r.Sell},
		{Rho: r.Rho, Side: SideBuy, NIter: r.NIter, NDays: r.NDays, Values: r.Buy},
	}
}

// Validate checks the value count against the header.
func (row SeriesRow) Validate() error {
	if row.NIter <= 0 || row.NDays <= 0 {
		return fmt.Errorf("%w: n_iter=%d n_days=%d", ErrMalformedRow, row.NIter, row.NDays)
	}
	if len(row.Values) != row.NIter*row.NDays {
		return fmt.Errorf("%w: rho=%s %s: want %d values, got %d", ErrMalformedRow, row.Rho, row.Side, row.NIter*row.NDays, len(row.Values))
	}
	return nil
}
