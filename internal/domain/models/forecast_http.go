package models

// Requests for forecast HTTP endpoints.

type ForecastRequest struct {
	// Target day, YYYY-MM-DD. Empty means tomorrow.
	Date string `query:"date" json:"date" validate:"omitempty,datetime=2006-01-02"`
	// Cash change handed out the day before. Empty means look it up.
	YesterdayCash string `query:"yesterday_cash" json:"yesterday_cash" validate:"omitempty,numeric"`
}

type GreedyRequest struct {
	Amount int `query:"amount" json:"amount" validate:"gte=0,lte=10000000"`
}

type ExportRequest struct {
	From string `query:"from" json:"from" validate:"required,datetime=2006-01-02"`
	To   string `query:"to" json:"to" validate:"required,datetime=2006-01-02"`
	Kind string `query:"kind" json:"kind" default:"split" validate:"oneof=split daily hourly"`
}
