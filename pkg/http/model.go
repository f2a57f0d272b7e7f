package http

// APIResponse is the envelope of every JSON API response.
type APIResponse struct {
	Status  int         `json:"status" example:"200"`
	Message string      `json:"message" example:"OK"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationError describes one rejected request field.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_DATETIME"`
	Field   string                 `json:"field,omitempty" example:"date"`
	Message string                 `json:"message,omitempty" example:"date must be a date in YYYY-MM-DD form"`
	Params  map[string]interface{} `json:"params,omitempty"`
}
