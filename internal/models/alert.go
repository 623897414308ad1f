// Package models defines the core domain entities: alerts and their inputs.
package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Alert is one persisted market event. Alerts are immutable once stored;
// the ID is assigned by the database.
type Alert struct {
	ID        int64     `json:"id"`
	Ticker    string    `json:"ticker"`
	Signal    string    `json:"signal"`
	Timestamp time.Time `json:"timestamp"`
	Category  string    `json:"category"`
	Interval  string    `json:"interval"`
}

// AlertInput is the JSON payload accepted by the ingestion endpoint.
// All fields are required; the timestamp must be RFC3339.
type AlertInput struct {
	Ticker    string    `json:"ticker" validate:"required"`
	Signal    string    `json:"signal" validate:"required"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
	Category  string    `json:"category" validate:"required"`
	Interval  string    `json:"interval" validate:"required"`
}

// Validate checks that every field is present and non-zero.
func (in *AlertInput) Validate() error {
	return validate.Struct(in)
}
