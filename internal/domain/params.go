package domain

import "fmt"

// Params holds the market constants shared by every agent of a trial.
type Params struct {
	NBuyers       int     `yaml:"n_buyers"`
	NSellers      int     `yaml:"n_sellers"`
	StartingStock int     `yaml:"starting_stock"`
	PriceVar      float64 `yaml:"price_var"`
	MaxHunger     int     `yaml:"max_hunger"`
}

// DefaultParams returns the reference market: 10000 buyers, 500 sellers.
func DefaultParams() Params {
	return Params{
		NBuyers:       10000,
		NSellers:      500,
		StartingStock: 20,
		PriceVar:      0.05,
		MaxHunger:     20,
	}
}

// StartingCapital is the capital every new seller opens with.
func (p Params) StartingCapital() float64 {
	return float64(p.StartingStock) / 2
}

// Rent is the fixed daily cost charged to every seller.
func (p Params) Rent() float64 {
	return p.StartingCapital() / 10
}

// Validate checks the population and agent constants.
func (p Params) Validate() error {
	positive := []struct {
		field string
		value int
	}{
		{"market.n_buyers", p.NBuyers},
		{"market.n_sellers", p.NSellers},
		{"market.starting_stock", p.StartingStock},
		{"market.max_hunger", p.MaxHunger},
	}
	for _, f := range positive {
		if f.value <= 0 {
			return NewConfigError(f.field, fmt.Errorf("%w: %d", ErrNotPositive, f.value))
		}
	}
	if p.PriceVar < 0 {
		return NewConfigError("market.price_var", fmt.Errorf("%w: %g", ErrOutOfRange, p.PriceVar))
	}
	return nil
}

// ValidateRho checks 0 <= rho <= 1.
func ValidateRho(rho float64) error {
	if rho < 0 || rho > 1 || rho != rho {
		return NewConfigError("experiment.rho_values", fmt.Errorf("%w: %g not in [0,1]", ErrOutOfRange, rho))
	}
	return nil
}
