package engine

import (
	"math/rand"
	"os"
	"testing"

	"netauction/internal/domain"
)

func smallParams(buyers, sellers int) domain.Params {
	p := domain.DefaultParams()
	p.NBuyers = buyers
	p.NSellers = sellers
	return p
}

func TestMarket_PopulationInvariants(t *testing.T) {
	for _, rho := range []float64{0, 0.05, 0.5, 1} {
		p := smallParams(200, 20)
		m := NewMarket(rand.New(rand.NewSource(1)), rho, p)

		for day := 0; day < 60; day++ {
			m.Step()

			if len(m.Buyers()) != p.NBuyers {
				t.Fatalf("rho=%v day=%d: %d buyers, want %d", rho, day, len(m.Buyers()), p.NBuyers)
			}
			if len(m.Sellers()) != p.NSellers {
				t.Fatalf("rho=%v day=%d: %d sellers, want %d", rho, day, len(m.Sellers()), p.NSellers)
			}
			for _, s := range m.Sellers() {
				if s.SellPrice < s.ProductionCost {
					t.Fatalf("rho=%v: sell price %v below cost %v", rho, s.SellPrice, s.ProductionCost)
				}
				if s.Stock != p.StartingStock {
					t.Fatalf("rho=%v: stock %d after update", rho, s.Stock)
				}
				if !s.Alive {
					t.Fatalf("rho=%v: dead seller left in the market", rho)
				}
			}
			for _, b := range m.Buyers() {
				if b.BuyPrice < 0 || b.BuyPrice > b.Salary {
					t.Fatalf("rho=%v: buy price %v outside [0, %v]", rho, b.BuyPrice, b.Salary)
				}
				if b.Hunger >= p.MaxHunger {
					t.Fatalf("rho=%v: starved buyer kept", rho)
				}
			}
		}
		if m.Day() != 60 {
			t.Errorf("Day = %d, want 60", m.Day())
		}
	}
}

func TestMarket_FullyConnected(t *testing.T) {
	p := smallParams(10, 2)
	m := NewMarket(rand.New(rand.NewSource(3)), 1.0, p)

	for _, b := range m.Buyers() {
		if len(b.Connections) != 2 {
			t.Fatalf("buyer has %d connections, want 2", len(b.Connections))
		}
	}

	cheapest, other := m.Sellers()[0], m.Sellers()[1]
	if other.SellPrice < cheapest.SellPrice {
		cheapest, other = other, cheapest
	}

	// Sell prices are below 1, so this buyer outbids everyone.
	b := m.Buyers()[0]
	b.Salary = 1
	b.BuyPrice = 1

	if !b.AttemptPurchase(rand.New(rand.NewSource(1)), p, m) {
		t.Fatal("expected a trade")
	}
	if cheapest.Stock != p.StartingStock-1 || cheapest.Buy != 1 {
		t.Errorf("cheapest seller not selected: %+v", cheapest)
	}
	if other.Stock != p.StartingStock {
		t.Errorf("dearer seller traded: %+v", other)
	}

	m.Step()
	if len(m.Buyers()) != p.NBuyers {
		t.Errorf("%d buyers after step, want %d", len(m.Buyers()), p.NBuyers)
	}
}

func TestMarket_StepConsumesStockSequentially(t *testing.T) {
	p := smallParams(6, 1)
	p.StartingStock = 1
	m := NewMarket(rand.New(rand.NewSource(11)), 1.0, p)

	// Sell prices are below 1, so every buyer outbids the only seller.
	prior := make(map[*domain.Buyer]int, p.NBuyers)
	for i, b := range m.Buyers() {
		b.Salary = 1
		b.BuyPrice = 1
		b.Hunger = i
		prior[b] = i
	}

	stats := m.Step()
	if stats.Trades != 1 {
		t.Fatalf("Trades = %d, want 1 with a single unit in stock", stats.Trades)
	}
	if stats.BuyerExits != 0 || stats.SellerExits != 0 {
		t.Fatalf("unexpected exits %+v", stats)
	}

	fed := 0
	for _, b := range m.Buyers() {
		before, ok := prior[b]
		if !ok {
			t.Fatal("buyer replaced during the step")
		}
		switch b.Hunger {
		case 0:
			fed++
		case before + 1:
		default:
			t.Errorf("Hunger = %d, want 0 or %d", b.Hunger, before+1)
		}
	}
	if fed != 1 {
		t.Errorf("%d buyers traded, want exactly 1", fed)
	}
}

func TestMarket_NoConnectionsStarvesEveryone(t *testing.T) {
	p := smallParams(50, 5)
	m := NewMarket(rand.New(rand.NewSource(5)), 0, p)

	original := make(map[*domain.Buyer]bool, p.NBuyers)
	for _, b := range m.Buyers() {
		original[b] = true
		if len(b.Connections) != 0 {
			t.Fatal("rho=0 must not create connections")
		}
	}
	if m.IsolatedBuyers() != p.NBuyers {
		t.Errorf("IsolatedBuyers = %d, want %d", m.IsolatedBuyers(), p.NBuyers)
	}

	for day := 0; day < p.MaxHunger; day++ {
		stats := m.Step()
		if stats.Trades != 0 {
			t.Fatal("rho=0 must not trade")
		}
	}

	for _, b := range m.Buyers() {
		if original[b] {
			t.Fatal("original buyer survived max_hunger days without connections")
		}
	}
}

func TestMarket_BankruptSellerReplaced(t *testing.T) {
	p := smallParams(100, 4)
	m := NewMarket(rand.New(rand.NewSource(9)), 1.0, p)

	// Make sure nobody buys, so no seller earns its way back.
	for _, b := range m.Buyers() {
		b.Salary = 0
		b.BuyPrice = 0
	}
	// Keep everyone else solvent for the day.
	for _, s := range m.Sellers() {
		s.Capital = 100
	}
	doomed := m.Sellers()[2]
	doomed.Capital = -1
	oldHandle := m.Handles()[2]

	stats := m.Step()

	if stats.SellerExits != 1 {
		t.Fatalf("SellerExits = %d, want 1", stats.SellerExits)
	}
	if len(m.Sellers()) != p.NSellers {
		t.Fatalf("%d sellers, want %d", len(m.Sellers()), p.NSellers)
	}
	for _, s := range m.Sellers() {
		if s == doomed {
			t.Fatal("bankrupt seller still active")
		}
	}
	if doomed.Alive {
		t.Error("bankrupt seller should be flagged dead")
	}
	// The dying seller still ran its update: restocked nothing, paid rent.
	if doomed.Capital != -1-p.Rent() {
		t.Errorf("dead seller capital = %v, want %v", doomed.Capital, -1-p.Rent())
	}

	if _, ok := m.Resolve(oldHandle); ok {
		t.Error("stale handle still resolves")
	}
	newHandle := m.Handles()[2]
	if newHandle.Gen != oldHandle.Gen+1 {
		t.Errorf("Gen = %d, want %d", newHandle.Gen, oldHandle.Gen+1)
	}

	// rho=1: every current buyer is offered and accepts the newcomer.
	for _, b := range m.Buyers() {
		found := false
		for _, h := range b.Connections {
			if h == newHandle {
				found = true
			}
		}
		if !found {
			t.Fatal("replacement seller not connected to a buyer at rho=1")
		}
	}
}

func TestMarket_ZeroStockSeller(t *testing.T) {
	p := smallParams(1, 1)
	m := NewMarket(rand.New(rand.NewSource(2)), 1.0, p)

	s := m.Sellers()[0]
	b := m.Buyers()[0]
	s.Stock = 0
	b.Hunger = 0
	b.BuyPrice = b.Salary

	b.AttemptPurchase(rand.New(rand.NewSource(1)), p, m)

	if s.Stock != 0 {
		t.Errorf("Stock = %d, want 0", s.Stock)
	}
	if b.Hunger != 1 {
		t.Errorf("Hunger = %d, want 1", b.Hunger)
	}
}

func TestMarket_Deterministic(t *testing.T) {
	p := smallParams(100, 10)
	run := func() []float64 {
		m := NewMarket(rand.New(rand.NewSource(42)), 0.3, p)
		var out []float64
		for day := 0; day < 30; day++ {
			out = append(out, m.MeanSellPrice(), m.MeanBuyPrice())
			m.Step()
		}
		return out
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("run diverged at %d: %v != %v", i, a[i], b[i])
		}
	}
}

func TestMarket_DumpState(t *testing.T) {
	m := NewMarket(rand.New(rand.NewSource(1)), 0.5, smallParams(3, 2))
	path := t.TempDir() + "/dump.json"
	m.DumpState(path)

	if _, err := os.ReadFile(path); err != nil {
		t.Fatalf("dump not written: %v", err)
	}
}
