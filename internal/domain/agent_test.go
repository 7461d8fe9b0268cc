package domain

import (
	"math/rand"
	"testing"
)

// scripted replays fixed draws, then repeats the last one.
type scripted struct {
	floats []float64
	ints   []int
}

func (s *scripted) Float64() float64 {
	v := s.floats[0]
	if len(s.floats) > 1 {
		s.floats = s.floats[1:]
	}
	return v
}

func (s *scripted) Intn(n int) int {
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[0] % n
	s.ints = s.ints[1:]
	return v
}

// mapBook resolves handles by slot; Gen must match.
type mapBook map[int]struct {
	gen    uint32
	seller *Seller
}

func (b mapBook) Resolve(h SellerHandle) (*Seller, bool) {
	e, ok := b[h.Slot]
	if !ok || e.gen != h.Gen || !e.seller.Alive {
		return nil, false
	}
	return e.seller, true
}

func testParams() Params {
	p := DefaultParams()
	p.NBuyers = 10
	p.NSellers = 2
	return p
}

func TestParams_Derived(t *testing.T) {
	p := DefaultParams()
	if p.StartingCapital() != 10 {
		t.Errorf("StartingCapital = %v, want 10", p.StartingCapital())
	}
	if p.Rent() != 1 {
		t.Errorf("Rent = %v, want 1", p.Rent())
	}
}

func TestNewSeller(t *testing.T) {
	p := testParams()
	s := NewSeller(&scripted{floats: []float64{0.4, 0.5}}, p)

	if s.ProductionCost != 0.4 {
		t.Errorf("ProductionCost = %v, want 0.4", s.ProductionCost)
	}
	if want := 0.4 + 0.5*0.6; s.SellPrice != want {
		t.Errorf("SellPrice = %v, want %v", s.SellPrice, want)
	}
	if s.Stock != p.StartingStock || s.Capital != p.StartingCapital() || !s.Alive || s.Buy != 0 {
		t.Errorf("unexpected initial state: %+v", s)
	}
}

func TestSeller_DailyUpdate(t *testing.T) {
	p := testParams()

	t.Run("restock charges per unit and pays rent", func(t *testing.T) {
		s := &Seller{ProductionCost: 0.25, SellPrice: 0.5, Stock: 16, Capital: 10, Buy: 4, Alive: true}
		s.DailyUpdate(&scripted{floats: []float64{0}}, p)

		if s.Stock != p.StartingStock {
			t.Errorf("Stock = %d, want %d", s.Stock, p.StartingStock)
		}
		if want := 10 - 4*0.25 - p.Rent(); s.Capital != want {
			t.Errorf("Capital = %v, want %v", s.Capital, want)
		}
		if s.Buy != 0 {
			t.Errorf("Buy = %d, want 0", s.Buy)
		}
	})

	t.Run("high demand raises price", func(t *testing.T) {
		s := &Seller{ProductionCost: 0.1, SellPrice: 0.5, Stock: 5, Capital: 10, Buy: 15, Alive: true}
		s.DailyUpdate(&scripted{floats: []float64{1}}, p)

		// (15/20 - 0.5) * 2 * 1 * 0.05 = 0.025
		if diff := s.SellPrice - 0.525; diff > 1e-12 || diff < -1e-12 {
			t.Errorf("SellPrice = %v, want 0.525", s.SellPrice)
		}
	})

	t.Run("low demand clamps at production cost", func(t *testing.T) {
		s := &Seller{ProductionCost: 0.49, SellPrice: 0.5, Stock: 20, Capital: 10, Alive: true}
		s.DailyUpdate(&scripted{floats: []float64{1}}, p)

		if s.SellPrice != s.ProductionCost {
			t.Errorf("SellPrice = %v, want clamp at %v", s.SellPrice, s.ProductionCost)
		}
	})
}

func TestSeller_Invariants(t *testing.T) {
	p := testParams()
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		s := NewSeller(rng, p)
		for day := 0; day < 50; day++ {
			for k := rng.Intn(p.StartingStock + 1); k > 0; k-- {
				s.Sell()
			}
			s.DailyUpdate(rng, p)
			if s.Stock != p.StartingStock {
				t.Fatalf("stock %d after update, want %d", s.Stock, p.StartingStock)
			}
			if s.SellPrice < s.ProductionCost {
				t.Fatalf("sell price %v below production cost %v", s.SellPrice, s.ProductionCost)
			}
		}
	}
}

func TestNewBuyer(t *testing.T) {
	p := testParams()
	b := NewBuyer(&scripted{floats: []float64{0.8, 0.25}, ints: []int{7}}, p)

	if b.Hunger != 7 {
		t.Errorf("Hunger = %d, want 7", b.Hunger)
	}
	if b.Salary != 0.8 {
		t.Errorf("Salary = %v, want 0.8", b.Salary)
	}
	if want := 0.8 - 0.25*0.8; b.BuyPrice != want {
		t.Errorf("BuyPrice = %v, want %v", b.BuyPrice, want)
	}
	if len(b.Connections) != 0 {
		t.Errorf("expected no connections, got %d", len(b.Connections))
	}
}

func TestBuyer_ConnectToNew(t *testing.T) {
	b := &Buyer{}
	b.ConnectToNew(&scripted{floats: []float64{0.3}}, 0.5, SellerHandle{Slot: 1})
	b.ConnectToNew(&scripted{floats: []float64{0.7}}, 0.5, SellerHandle{Slot: 2})
	b.ConnectToNew(&scripted{floats: []float64{0}}, 0, SellerHandle{Slot: 3})

	if len(b.Connections) != 1 || b.Connections[0].Slot != 1 {
		t.Errorf("Connections = %+v, want only slot 1", b.Connections)
	}
}

func TestBuyer_AttemptPurchase(t *testing.T) {
	p := testParams()

	t.Run("buys from cheapest seller with stock", func(t *testing.T) {
		cheap := &Seller{SellPrice: 0.2, Stock: 0, Alive: true}
		mid := &Seller{SellPrice: 0.3, Stock: 3, Capital: 1, Alive: true}
		dear := &Seller{SellPrice: 0.4, Stock: 3, Alive: true}
		book := mapBook{
			0: {0, dear},
			1: {0, cheap},
			2: {0, mid},
		}
		b := &Buyer{Hunger: 5, Salary: 0.9, BuyPrice: 0.5, Connections: []SellerHandle{{Slot: 0}, {Slot: 1}, {Slot: 2}}}

		if !b.AttemptPurchase(&scripted{floats: []float64{0.5}}, p, book) {
			t.Fatal("expected a trade")
		}
		if mid.Stock != 2 || mid.Buy != 1 || mid.Capital != 1.3 {
			t.Errorf("seller not charged: %+v", mid)
		}
		if cheap.Stock != 0 || dear.Stock != 3 {
			t.Error("only the cheapest seller with stock may trade")
		}
		if b.Hunger != 0 {
			t.Errorf("Hunger = %d, want 0", b.Hunger)
		}
		if want := 0.5 - 0.5*p.PriceVar; b.BuyPrice != want {
			t.Errorf("BuyPrice = %v, want %v", b.BuyPrice, want)
		}
	})

	t.Run("bid at or below price does not trade", func(t *testing.T) {
		s := &Seller{SellPrice: 0.5, Stock: 3, Alive: true}
		book := mapBook{0: {0, s}}
		b := &Buyer{Hunger: 2, Salary: 0.52, BuyPrice: 0.5, Connections: []SellerHandle{{Slot: 0}}}

		if b.AttemptPurchase(&scripted{floats: []float64{1}}, p, book) {
			t.Fatal("equal prices must not trade")
		}
		if b.Hunger != 3 {
			t.Errorf("Hunger = %d, want 3", b.Hunger)
		}
		if b.BuyPrice != 0.52 {
			t.Errorf("BuyPrice = %v, want clamp at salary 0.52", b.BuyPrice)
		}
		if s.Stock != 3 {
			t.Errorf("Stock = %d, want 3", s.Stock)
		}
	})

	t.Run("zero stock leaves seller untouched", func(t *testing.T) {
		s := &Seller{SellPrice: 0.1, Stock: 0, Capital: 4, Alive: true}
		book := mapBook{0: {0, s}}
		b := &Buyer{Hunger: 0, Salary: 0.9, BuyPrice: 0.8, Connections: []SellerHandle{{Slot: 0}}}

		b.AttemptPurchase(&scripted{floats: []float64{0.1}}, p, book)
		if s.Stock != 0 || s.Capital != 4 || s.Buy != 0 {
			t.Errorf("seller mutated: %+v", s)
		}
		if b.Hunger != 1 {
			t.Errorf("Hunger = %d, want 1", b.Hunger)
		}
	})

	t.Run("bid decrease floors at zero", func(t *testing.T) {
		s := &Seller{SellPrice: 0.001, Stock: 1, Alive: true}
		book := mapBook{0: {0, s}}
		b := &Buyer{Salary: 0.5, BuyPrice: 0.01, Connections: []SellerHandle{{Slot: 0}}}

		b.AttemptPurchase(&scripted{floats: []float64{1}}, p, book)
		if b.BuyPrice != 0 {
			t.Errorf("BuyPrice = %v, want 0", b.BuyPrice)
		}
	})

	t.Run("stale handles are pruned", func(t *testing.T) {
		live := &Seller{SellPrice: 0.9, Stock: 1, Alive: true}
		dead := &Seller{SellPrice: 0.1, Stock: 5, Alive: false}
		book := mapBook{
			0: {1, live}, // slot recycled: gen 0 is stale
			1: {0, dead},
			2: {0, live},
		}
		b := &Buyer{Salary: 0.5, BuyPrice: 0.5, Connections: []SellerHandle{{Slot: 0, Gen: 0}, {Slot: 1}, {Slot: 2}}}

		b.AttemptPurchase(&scripted{floats: []float64{0}}, p, book)
		if len(b.Connections) != 1 || b.Connections[0].Slot != 2 {
			t.Errorf("Connections = %+v, want only slot 2", b.Connections)
		}
	})

	t.Run("ties go to the earliest connection", func(t *testing.T) {
		first := &Seller{SellPrice: 0.3, Stock: 1, Alive: true}
		second := &Seller{SellPrice: 0.3, Stock: 1, Alive: true}
		book := mapBook{0: {0, first}, 1: {0, second}}
		b := &Buyer{Salary: 0.9, BuyPrice: 0.6, Connections: []SellerHandle{{Slot: 0}, {Slot: 1}}}

		b.AttemptPurchase(&scripted{floats: []float64{0}}, p, book)
		if first.Stock != 0 || second.Stock != 1 {
			t.Error("expected the first connected seller to win the tie")
		}
	})
}

func TestBuyer_PriceInvariant(t *testing.T) {
	p := testParams()
	rng := rand.New(rand.NewSource(11))
	s := &Seller{SellPrice: 0.4, Stock: 1 << 30, Alive: true}
	book := mapBook{0: {0, s}}

	for i := 0; i < 500; i++ {
		b := NewBuyer(rng, p)
		b.Connections = []SellerHandle{{Slot: 0}}
		for day := 0; day < 100; day++ {
			s.SellPrice = rng.Float64()
			b.AttemptPurchase(rng, p, book)
			if b.BuyPrice < 0 || b.BuyPrice > b.Salary {
				t.Fatalf("buy price %v outside [0, %v]", b.BuyPrice, b.Salary)
			}
		}
	}
}
