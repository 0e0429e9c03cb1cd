package model

import "time"

// Trader is a user-defined strategy: which indicators describe the setup and
// the prose the reasoning model is given. Owned by an external provider;
// read-only inside this service.
type Trader struct {
	ID                string            `json:"id"`
	UserID            string            `json:"user_id"`
	Name              string            `json:"name"`
	Description       []string          `json:"description"`
	ModelTier         string            `json:"model_tier"`
	Enabled           bool              `json:"enabled"`
	Indicators        []IndicatorConfig `json:"indicators"`
	RequiredIntervals []string          `json:"required_intervals"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// IndicatorConfig names one indicator to compute plus its parameters
// (period, stdDev, ...). Parameters arrive from user-authored JSON and may be
// numbers or numeric strings; see Params.
type IndicatorConfig struct {
	Name   string `json:"name"`
	Params Params `json:"params"`
}
