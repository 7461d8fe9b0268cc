package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestConfigError(t *testing.T) {
	err := NewConfigError("experiment.n_iter", ErrNotPositive)

	expected := "config error [experiment.n_iter]: value must be positive"
	if err.Error() != expected {
		t.Errorf("Error message = %q, want %q", err.Error(), expected)
	}

	if !errors.Is(err, ErrNotPositive) {
		t.Error("Expected error to wrap ErrNotPositive")
	}

	var ce *ConfigError
	if !errors.As(error(err), &ce) || ce.Field != "experiment.n_iter" {
		t.Error("Expected errors.As to find ConfigError")
	}
}

func TestDivergenceWarning(t *testing.T) {
	w := &DivergenceWarning{Rho: 0.001, Trial: 3, Isolated: 12}
	if !strings.Contains(w.Error(), "12 buyers") {
		t.Errorf("unexpected message %q", w.Error())
	}
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
		field  string
	}{
		{"default", func(*Params) {}, ""},
		{"no buyers", func(p *Params) { p.NBuyers = 0 }, "market.n_buyers"},
		{"negative sellers", func(p *Params) { p.NSellers = -1 }, "market.n_sellers"},
		{"no stock", func(p *Params) { p.StartingStock = 0 }, "market.starting_stock"},
		{"no hunger", func(p *Params) { p.MaxHunger = 0 }, "market.max_hunger"},
		{"negative price var", func(p *Params) { p.PriceVar = -0.1 }, "market.price_var"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			err := p.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if ce.Field != tt.field {
				t.Errorf("Field = %q, want %q", ce.Field, tt.field)
			}
		})
	}
}

func TestValidateRho(t *testing.T) {
	for _, rho := range []float64{0, 0.0005, 0.5, 1} {
		if err := ValidateRho(rho); err != nil {
			t.Errorf("ValidateRho(%v) = %v", rho, err)
		}
	}
	for _, rho := range []float64{-0.01, 1.01} {
		if err := ValidateRho(rho); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("ValidateRho(%v) = %v, want ErrOutOfRange", rho, err)
		}
	}
}
