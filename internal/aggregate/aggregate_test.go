package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmarren/alertline/internal/models"
)

func alert(ticker, signal, interval string) models.Alert {
	return models.Alert{
		Ticker:    ticker,
		Signal:    signal,
		Category:  "crypto",
		Interval:  interval,
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestGroupByInterval(t *testing.T) {
	alerts := []models.Alert{
		alert("BTC", "buy", "1h"),
		alert("ETH", "sell", "1h"),
		alert("BTC", "buy", "1d"),
		alert("SOL", "buy", "4h"),
	}

	view := GroupByInterval(alerts)

	require.Len(t, view, 3)
	assert.Equal(t, map[string]struct{}{"BTC": {}, "ETH": {}}, view["1h"])
	assert.Equal(t, map[string]struct{}{"BTC": {}}, view["1d"])
	assert.Equal(t, map[string]struct{}{"SOL": {}}, view["4h"])
}

func TestGroupByInterval_SetSemantics(t *testing.T) {
	// Same ticker and interval with different signals collapses to one entry.
	alerts := []models.Alert{
		alert("BTC", "buy", "1h"),
		alert("BTC", "sell", "1h"),
	}

	view := GroupByInterval(alerts)

	require.Len(t, view, 1)
	assert.Len(t, view["1h"], 1)
}

func TestGroupByInterval_Idempotent(t *testing.T) {
	alerts := []models.Alert{
		alert("BTC", "buy", "1h"),
		alert("ETH", "buy", "1d"),
		alert("BTC", "sell", "1h"),
	}

	assert.Equal(t, GroupByInterval(alerts), GroupByInterval(alerts))
}

func TestGroupByInterval_Empty(t *testing.T) {
	assert.Empty(t, GroupByInterval(nil))
}

func TestView_Fields(t *testing.T) {
	alerts := []models.Alert{
		alert("ETH", "buy", "1h"),
		alert("BTC", "sell", "1h"),
		alert("SOL", "buy", "1d"),
	}

	fields := GroupByInterval(alerts).Fields()

	require.Len(t, fields, 2)
	assert.Equal(t, Field{Name: "1d", Value: "SOL", Inline: true}, fields[0])
	assert.Equal(t, Field{Name: "1h", Value: "BTC,ETH", Inline: true}, fields[1])
}

func TestView_Fields_Empty(t *testing.T) {
	assert.Empty(t, View{}.Fields())
}
