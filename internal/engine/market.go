package engine

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"os"

	"netauction/internal/domain"
)

// Market owns one trial's buyers and sellers and advances them day by day.
//
// Sellers live in an arena: a replaced seller reuses its slot under a new
// generation, so buyer handles to the old occupant stop resolving.
// Market is not safe for concurrent use. Each trial owns its own Market.
type Market struct {
	rho    float64
	params domain.Params
	rng    *rand.Rand
	day    int

	handles []domain.SellerHandle
	sellers []*domain.Seller
	buyers  []*domain.Buyer
}

// NewMarket creates the initial population: NSellers fresh sellers, then
// NBuyers buyers connected to them at density rho.
func NewMarket(rng *rand.Rand, rho float64, params domain.Params) *Market {
	m := &Market{
		rho:     rho,
		params:  params,
		rng:     rng,
		handles: make([]domain.SellerHandle, params.NSellers),
		sellers: make([]*domain.Seller, params.NSellers),
		buyers:  make([]*domain.Buyer, 0, params.NBuyers),
	}

	for i := range m.sellers {
		m.handles[i] = domain.SellerHandle{Slot: i}
		m.sellers[i] = domain.NewSeller(rng, params)
	}
	for len(m.buyers) < params.NBuyers {
		m.buyers = append(m.buyers, m.newBuyer())
	}
	return m
}

func (m *Market) newBuyer() *domain.Buyer {
	b := domain.NewBuyer(m.rng, m.params)
	Connect(m.rng, m.rho, b, m.handles)
	return b
}

// Resolve returns the live seller behind a handle.
func (m *Market) Resolve(h domain.SellerHandle) (*domain.Seller, bool) {
	if h.Slot < 0 || h.Slot >= len(m.sellers) || m.handles[h.Slot].Gen != h.Gen {
		return nil, false
	}
	s := m.sellers[h.Slot]
	return s, s.Alive
}

// Step advances the market by one day:
//  1. shuffle the buyers;
//  2. every buyer attempts one purchase, sequentially, in shuffled order;
//  3. starved buyers are replaced by fresh connected buyers;
//  4. every seller is flagged by solvency, then updated (dying ones too);
//  5. bankrupt sellers are replaced and offered to every buyer.
func (m *Market) Step() domain.DayStats {
	var stats domain.DayStats

	// Each purchase consumes stock the next buyer can see.
	for _, i := range m.rng.Perm(len(m.buyers)) {
		if m.buyers[i].AttemptPurchase(m.rng, m.params, m) {
			stats.Trades++
		}
	}

	kept := m.buyers[:0]
	for _, b := range m.buyers {
		if !b.Starved(m.params) {
			kept = append(kept, b)
		}
	}
	stats.BuyerExits = len(m.buyers) - len(kept)
	m.buyers = kept
	for len(m.buyers) < m.params.NBuyers {
		m.buyers = append(m.buyers, m.newBuyer())
	}

	for _, s := range m.sellers {
		s.Alive = s.Solvent()
		s.DailyUpdate(m.rng, m.params)
	}

	for slot, s := range m.sellers {
		if s.Alive {
			continue
		}
		m.replaceSeller(slot)
		stats.SellerExits++
	}

	m.day++
	return stats
}

func (m *Market) replaceSeller(slot int) {
	h := domain.SellerHandle{Slot: slot, Gen: m.handles[slot].Gen + 1}
	m.handles[slot] = h
	m.sellers[slot] = domain.NewSeller(m.rng, m.params)
	Announce(m.rng, m.rho, m.buyers, h)
}

// Rho returns the connection density.
func (m *Market) Rho() float64 { return m.rho }

// Day returns the number of completed days.
func (m *Market) Day() int { return m.day }

// Buyers returns the current buyers. Callers must not retain the slice across Step.
func (m *Market) Buyers() []*domain.Buyer { return m.buyers }

// Sellers returns the current sellers in arena order.
func (m *Market) Sellers() []*domain.Seller { return m.sellers }

// Handles returns the current handle of every arena slot.
func (m *Market) Handles() []domain.SellerHandle { return m.handles }

// MeanSellPrice is the cross-sectional average sell price.
func (m *Market) MeanSellPrice() float64 {
	var sum float64
	for _, s := range m.sellers {
		sum += s.SellPrice
	}
	return sum / float64(len(m.sellers))
}

// MeanBuyPrice is the cross-sectional average buy price.
func (m *Market) MeanBuyPrice() float64 {
	var sum float64
	for _, b := range m.buyers {
		sum += b.BuyPrice
	}
	return sum / float64(len(m.buyers))
}

// IsolatedBuyers counts buyers without any connection.
func (m *Market) IsolatedBuyers() int {
	n := 0
	for _, b := range m.buyers {
		if len(b.Connections) == 0 {
			n++
		}
	}
	return n
}

// DumpState writes the entire market to a file (for post-mortem).
func (m *Market) DumpState(filename string) {
	slog.Info("Dumping market state...", slog.String("file", filename))

	data := struct {
		Rho     float64               `json:"rho"`
		Day     int                   `json:"day"`
		Params  domain.Params         `json:"params"`
		Handles []domain.SellerHandle `json:"handles"`
		Sellers []*domain.Seller      `json:"sellers"`
		Buyers  []*domain.Buyer       `json:"buyers"`
	}{
		Rho:     m.rho,
		Day:     m.day,
		Params:  m.params,
		Handles: m.handles,
		Sellers: m.sellers,
		Buyers:  m.buyers,
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal market state", slog.Any("error", err))
		return
	}

	if err := os.WriteFile(filename, b, 0644); err != nil {
		slog.Error("Failed to write market state dump", slog.Any("error", err))
	}
}
