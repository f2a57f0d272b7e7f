package models

import "time"

const (
	PaymentCash = "cash"
	PaymentUPI  = "upi"
	PaymentCard = "card"
)

// Transaction is one row of the store's transaction log. Breakdowns are kept
// raw; parsing them is the feature builder's job.
type Transaction struct {
	ID                string    `json:"transaction_id"`
	Timestamp         time.Time `json:"timestamp"`
	TotalAmount       float64   `json:"total_amount"`
	PaymentMethod     string    `json:"payment_method"`
	TenderedAmount    *float64  `json:"tendered_amount,omitempty"`
	ChangeGiven       float64   `json:"change_given"`
	TenderedBreakdown string    `json:"tendered_breakdown,omitempty"`
	ChangeBreakdown   string    `json:"change_breakdown,omitempty"`
	StoreType         string    `json:"store_type,omitempty"`
}

// IsCash reports whether the transaction was settled in cash.
func (t *Transaction) IsCash() bool { return t.PaymentMethod == PaymentCash }

// EligibleForSplit reports whether the row can train the denomination-split model.
func (t *Transaction) EligibleForSplit() bool {
	return t.IsCash() && t.ChangeGiven > 0
}

// DateFeatures are the calendar attributes of one day. DayOfWeek is Monday=0.
type DateFeatures struct {
	DayOfWeek  int `json:"day_of_week"`
	Month      int `json:"month"`
	DayOfMonth int `json:"day_of_month"`
	IsWeekend  int `json:"is_weekend"`
}

// DailyCash is the cash change handed out on one calendar day.
type DailyCash struct {
	Day    time.Time
	Amount float64
}

// HourlyCount is the number of transactions in one clock hour.
type HourlyCount struct {
	Hour  time.Time
	Count int
}
