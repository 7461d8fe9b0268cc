package engine

import "netauction/internal/domain"

// Connect links the buyer to each seller independently with probability rho.
// Handles are visited in arena order, which becomes the buyer's
// connection order and therefore its tie-break order.
func Connect(rng domain.Source, rho float64, b *domain.Buyer, sellers []domain.SellerHandle) {
	if expected := int(rho*float64(len(sellers))) + 1; len(b.Connections) == 0 && cap(b.Connections) < expected {
		b.Connections = make([]domain.SellerHandle, 0, expected)
	}
	for _, h := range sellers {
		if rng.Float64() < rho {
			b.Connections = append(b.Connections, h)
		}
	}
}

// Announce offers a newly created seller to every buyer.
func Announce(rng domain.Source, rho float64, buyers []*domain.Buyer, h domain.SellerHandle) {
	for _, b := range buyers {
		b.ConnectToNew(rng, rho, h)
	}
}
