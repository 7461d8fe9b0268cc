package domain

import "math"

// Source is the subset of *rand.Rand the agents draw from.
type Source interface {
	Float64() float64
	Intn(n int) int
}

// Seller produces a single good, restocks daily and adapts its price to demand.
type Seller struct {
	ProductionCost float64 `json:"production_cost"` // lower bound on SellPrice
	SellPrice      float64 `json:"sell_price"`
	Stock          int     `json:"stock"`
	Capital        float64 `json:"capital"`
	Buy            int     `json:"buy"` // sales in the current day
	Alive          bool    `json:"alive"`
}

// NewSeller creates a seller with a random production cost and a sell
// price drawn between that cost and 1.
func NewSeller(rng Source, p Params) *Seller {
	cost := rng.Float64()
	return &Seller{
		ProductionCost: cost,
		SellPrice:      cost + rng.Float64()*(1-cost),
		Stock:          p.StartingStock,
		Capital:        p.StartingCapital(),
		Alive:          true,
	}
}

// HasStock reports whether at least one unit is available today.
func (s *Seller) HasStock() bool {
	return s.Stock > 0
}

// Sell books one unit sold at the current price.
func (s *Seller) Sell() {
	s.Stock--
	s.Capital += s.SellPrice
	s.Buy++
}

// DailyUpdate restocks, reprices and pays rent.
//
// Restocking is charged one unit at a time so capital accrues exactly as
// the per-unit production cost. The price moves up when more than half of
// the capacity sold and down otherwise, never below ProductionCost.
func (s *Seller) DailyUpdate(rng Source, p Params) {
	for s.Stock < p.StartingStock {
		s.Stock++
		s.Capital -= s.ProductionCost
	}

	demand := float64(s.Buy)/float64(p.StartingStock) - 0.5
	s.SellPrice = math.Max(s.ProductionCost, s.SellPrice+demand*2*rng.Float64()*p.PriceVar)
	s.Buy = 0
	s.Capital -= p.Rent()
}

// Solvent reports whether capital is non-negative.
func (s *Seller) Solvent() bool {
	return s.Capital >= 0
}

// SellerHandle is a weak reference to a seller slot in a market arena.
// Gen changes every time the slot is handed to a new seller, so a handle
// to a replaced seller no longer resolves.
type SellerHandle struct {
	Slot int    `json:"slot"`
	Gen  uint32 `json:"gen"`
}

// SellerBook resolves handles to live sellers.
type SellerBook interface {
	Resolve(h SellerHandle) (*Seller, bool)
}
