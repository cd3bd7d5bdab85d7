package engine

import (
	"time"

	"github.com/MaxwellSullivan/StockBot/services/prices"
)

// LabeledPoint is one price row annotated with trade markers for
// charting: Buy/Sell flags and a Signal of +1/-1 on marked rows.
type LabeledPoint struct {
	Date   time.Time
	Close  float64
	Buy    int
	Sell   int
	Signal int
}

// Label projects a trade list back onto the price timeline. Each buy
// marks the last row dated on or before the trade's buy date, each sell
// likewise for the sell date; a trade date preceding the whole series is
// skipped, not an error.
func Label(series prices.Series, trades []Trade) []LabeledPoint {
	out := make([]LabeledPoint, len(series))
	for i, p := range series {
		out[i] = LabeledPoint{Date: p.Date, Close: p.Close}
	}

	for _, tr := range trades {
		if idx := series.LastIndexOnOrBefore(tr.BuyDate); idx >= 0 {
			out[idx].Buy = 1
			out[idx].Signal = 1
		}
		if idx := series.LastIndexOnOrBefore(tr.SellDate); idx >= 0 {
			out[idx].Sell = 1
			out[idx].Signal = -1
		}
	}

	return out
}
