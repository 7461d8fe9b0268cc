package domain

import (
	"time"
)

// ExperimentRun records one invocation of the experiment driver
type ExperimentRun struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	Seed          int64         `json:"seed"`
	NIter         int           `json:"n_iter"`
	NDays         int           `json:"n_days"`
	NBuyers       int           `json:"n_buyers"`
	NSellers      int           `json:"n_sellers"`
	StartingStock int           `json:"starting_stock"`
	PriceVar      float64       `json:"price_var"`
	MaxHunger     int           `json:"max_hunger"`
	Sweep         string        `json:"sweep"`                  // comma separated rho values
	Completed     bool          `json:"completed" gorm:"index"` // false if the run aborted
	FinishedAt    time.Time     `json:"finished_at"`            // zero until completed
	CreatedAt     time.Time     `json:"created_at"`
	Series        []PriceSeries `json:"series,omitempty" gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

// PriceSeries is one persisted result row: all daily averages of one side for one rho
type PriceSeries struct {
	ID     uint      `gorm:"primaryKey" json:"id"`
	RunID  uint      `json:"run_id" gorm:"index"`
	Rho    string    `json:"rho"`  // decimal text, as in the CSV
	Side   string    `json:"side"` // "Sell" or "Buy"
	NIter  int       `json:"n_iter"`
	NDays  int       `json:"n_days"`
	Values []float64 `json:"values" gorm:"serializer:json"`
	// Ordinal keeps rows in sweep order
	Ordinal   int       `json:"ordinal" gorm:"index"`
	CreatedAt time.Time `json:"created_at"`
}
