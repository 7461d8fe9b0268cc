package domain

import "math"

// noSellerPrice is above any valid sell price; prices live in [0, 1].
const noSellerPrice = 2.0

// Buyer tries to buy one unit per day from the cheapest connected seller.
type Buyer struct {
	Hunger      int            `json:"hunger"` // consecutive days without a purchase
	Salary      float64        `json:"salary"` // ceiling on BuyPrice
	BuyPrice    float64        `json:"buy_price"`
	Connections []SellerHandle `json:"connections"`
}

// NewBuyer creates an unconnected buyer with random hunger, salary and bid.
// BuyPrice lies in (0, Salary].
func NewBuyer(rng Source, p Params) *Buyer {
	hunger := rng.Intn(p.MaxHunger)
	salary := rng.Float64()
	return &Buyer{
		Hunger:   hunger,
		Salary:   salary,
		BuyPrice: salary - rng.Float64()*salary,
	}
}

// ConnectToNew links the buyer to a newly created seller with probability rho.
func (b *Buyer) ConnectToNew(rng Source, rho float64, h SellerHandle) {
	if rng.Float64() < rho {
		b.Connections = append(b.Connections, h)
	}
}

// Starved reports whether the buyer has reached the hunger limit.
func (b *Buyer) Starved(p Params) bool {
	return b.Hunger >= p.MaxHunger
}

// Cheapest returns the connected seller with stock and the lowest price.
// Stale handles are pruned from Connections as a side effect. Connections
// are scanned in insertion order and only a strictly lower price replaces
// the current best, so ties go to the earliest connection.
func (b *Buyer) Cheapest(book SellerBook) *Seller {
	best := (*Seller)(nil)
	cheapest := noSellerPrice

	live := b.Connections[:0]
	for _, h := range b.Connections {
		s, ok := book.Resolve(h)
		if !ok {
			continue
		}
		live = append(live, h)
		if s.HasStock() && s.SellPrice < cheapest {
			cheapest = s.SellPrice
			best = s
		}
	}
	b.Connections = live

	return best
}

// AttemptPurchase runs the buyer's single daily purchase attempt and
// reports whether a trade happened.
//
// A successful buy resets hunger and lowers the bid (floored at 0).
// A failed attempt raises hunger by one and raises the bid toward Salary.
func (b *Buyer) AttemptPurchase(rng Source, p Params, book SellerBook) bool {
	best := b.Cheapest(book)
	if best != nil && b.BuyPrice > best.SellPrice {
		b.Hunger = 0
		b.BuyPrice = math.Max(0, b.BuyPrice-rng.Float64()*p.PriceVar)
		best.Sell()
		return true
	}

	b.Hunger++
	b.BuyPrice = math.Min(b.Salary, b.BuyPrice+rng.Float64()*p.PriceVar)
	return false
}
