package domain

// DayStats counts what happened during one simulated day.
type DayStats struct {
	Trades      int `json:"trades"`
	BuyerExits  int `json:"buyer_exits"`  // starved buyers replaced
	SellerExits int `json:"seller_exits"` // bankrupt sellers replaced
}
