package models

import (
	"fmt"
	"sort"
	"time"
)

// DateLayout is the calendar day format used on the wire and in logs.
const DateLayout = "2006-01-02"

// PredictionResult is the next-day cash plan. JSON keys follow the record
// consumed by the dashboard.
type PredictionResult struct {
	Date           string    `json:"Date"`
	TotalChange    float64   `json:"Total_Change"`
	SpikeHour      int       `json:"Spike_Hour_Index"`
	SpikeHourLabel string    `json:"Spike_Hour"`
	Inventory      Inventory `json:"Inventory"`
	InventoryValue float64   `json:"Inventory_Value"`
	SafetyBuffer   float64   `json:"Safety_Buffer"`
}

// SpikeHourLabel renders an hour as "H:00 - H+1:00".
func SpikeHourLabel(hour int) string {
	return fmt.Sprintf("%d:00 - %d:00", hour, hour+1)
}

// Checklist splits an inventory into notes and coins for the opening count.
// Zero lines are dropped and both sides are sorted by value descending.
type Checklist struct {
	Date  string              `json:"date"`
	Notes []DenominationCount `json:"notes"`
	Coins []DenominationCount `json:"coins"`
	// Largest-first split of the predicted total, for comparison only.
	GreedyReference Inventory `json:"greedy_reference,omitempty"`
	GreedyRemainder int       `json:"greedy_remainder,omitempty"`
}

// NoteThreshold is the largest denomination issued as a coin.
const NoteThreshold = 10

// NewChecklist builds the notes/coins view of a prediction.
func NewChecklist(p *PredictionResult) *Checklist {
	cl := &Checklist{Date: p.Date, Notes: []DenominationCount{}, Coins: []DenominationCount{}}
	for _, c := range p.Inventory {
		if c.Count <= 0 {
			continue
		}
		if c.Value > NoteThreshold {
			cl.Notes = append(cl.Notes, c)
		} else {
			cl.Coins = append(cl.Coins, c)
		}
	}
	byValueDesc := func(s []DenominationCount) {
		sort.SliceStable(s, func(i, j int) bool { return s[i].Value > s[j].Value })
	}
	byValueDesc(cl.Notes)
	byValueDesc(cl.Coins)
	return cl
}

// ForecastEvent is published after each computed forecast.
type ForecastEvent struct {
	ID          string            `json:"id"`
	GeneratedAt time.Time         `json:"generated_at"`
	StoreType   string            `json:"store_type"`
	Yesterday   float64           `json:"yesterday_cash"`
	Result      *PredictionResult `json:"result"`
}
