package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() AlertInput {
	return AlertInput{
		Ticker:    "BTC",
		Signal:    "buy",
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Category:  "crypto-majors",
		Interval:  "1h",
	}
}

func TestAlertInput_Validate(t *testing.T) {
	in := validInput()
	assert.NoError(t, in.Validate())
}

func TestAlertInput_Validate_MissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AlertInput)
	}{
		{"missing ticker", func(in *AlertInput) { in.Ticker = "" }},
		{"missing signal", func(in *AlertInput) { in.Signal = "" }},
		{"missing timestamp", func(in *AlertInput) { in.Timestamp = time.Time{} }},
		{"missing category", func(in *AlertInput) { in.Category = "" }},
		{"missing interval", func(in *AlertInput) { in.Interval = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			assert.Error(t, in.Validate())
		})
	}
}

func TestAlertInput_UnmarshalRFC3339(t *testing.T) {
	var in AlertInput
	payload := `{"ticker":"BTC","signal":"buy","timestamp":"2024-01-01T02:00:00+02:00","category":"crypto-majors","interval":"1h"}`
	require.NoError(t, json.Unmarshal([]byte(payload), &in))
	require.NoError(t, in.Validate())

	// The offset is carried through; UTC normalization happens at the store.
	assert.True(t, in.Timestamp.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
}
