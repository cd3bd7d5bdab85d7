package engine

import (
	"fmt"
	"time"

	"github.com/MaxwellSullivan/StockBot/services/prices"
)

// ExitReason records why a position was closed. When several exit
// conditions hold on the same day the priority is fixed: signal beats
// forced beats max-hold beats end-of-series. Downstream labeling relies
// on this ordering, so it is checked in that order and never re-derived.
type ExitReason string

const (
	ExitSignal      ExitReason = "signal"
	ExitForced      ExitReason = "forced"
	ExitMaxHold     ExitReason = "max_hold"
	ExitEndOfSeries ExitReason = "eos"
)

// Trade is one completed round trip, appended at sell time.
type Trade struct {
	BuyDate   time.Time
	SellDate  time.Time
	BuyPrice  float64
	SellPrice float64
	HoldDays  int
	Reason    ExitReason
	Equity    float64 // cash after the sell
	Return    float64 // realized return vs equity at entry
}

// Result is the outcome of evaluating one strategy against one series.
type Result struct {
	Strategy      Strategy
	Score         float64
	TotalReturn   float64
	CAGR          float64
	MaxDrawdown   float64
	TradesPerYear float64
	Trades        []Trade
	EquityCurve   []float64
}

// Evaluate replays the price series through the FLAT/HOLDING state
// machine under one strategy. Deterministic: the same (series, strategy)
// pair always produces an identical result.
func Evaluate(series prices.Series, table *IndicatorTable, s Strategy) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("empty price series")
	}

	smaFast, ok := table.SMA[s.Fast]
	if !ok {
		return nil, fmt.Errorf("sma window %d not in table", s.Fast)
	}
	smaSlow, ok := table.SMA[s.Slow]
	if !ok {
		return nil, fmt.Errorf("sma window %d not in table", s.Slow)
	}
	rsi, ok := table.RSI[s.RSIWindow]
	if !ok {
		return nil, fmt.Errorf("rsi window %d not in table", s.RSIWindow)
	}
	z, ok := table.ZRet[s.ZWindow]
	if !ok {
		return nil, fmt.Errorf("z-score window %d not in table", s.ZWindow)
	}

	fee := s.Fee
	if fee < 0 {
		fee = 0
	}

	cash := 1.0
	shares := 0.0
	holding := false
	entryPrice := 0.0
	entryIdx := -1
	lastTradeIdx := 0
	cooldownUntil := -1

	equity := make([]float64, 0, len(series))
	var trades []Trade

	for i := range series {
		price := series[i].Close

		// Mark to market before anything else so the curve covers the
		// indicator warm-up days too.
		if holding {
			equity = append(equity, shares*price)
		} else {
			equity = append(equity, cash)
		}

		if !smaFast[i].OK || !smaSlow[i].OK || !rsi[i].OK || !z[i].OK {
			continue
		}

		idle := i - lastTradeIdx
		maxIdle := s.MaxIdle
		if maxIdle < 1 {
			maxIdle = 1
		}
		forceTrade := idle >= maxIdle

		canBuy := i >= cooldownUntil

		if !holding {
			trendOK := smaFast[i].F > smaSlow[i].F
			rsiOK := rsi[i].F <= s.RSIBuy
			meanrevOK := z[i].F <= s.ZBuy

			enter := (canBuy && ((trendOK && rsiOK) || meanrevOK)) || (forceTrade && canBuy)
			if enter {
				shares = cash * (1 - fee) / price
				cash = 0
				holding = true
				entryPrice = price
				entryIdx = i
				lastTradeIdx = i
			}
			continue
		}

		holdDays := i - entryIdx
		if holdDays < 0 {
			holdDays = 0
		}

		stopHit := price <= entryPrice*(1-s.StopLoss)
		tpHit := price >= entryPrice*(1+s.TakeProfit)
		trendBad := smaFast[i].F < smaSlow[i].F
		rsiExit := rsi[i].F >= s.RSISell
		meanrevExit := z[i].F >= s.ZSell

		exitSignal := (trendBad && rsiExit) || meanrevExit || stopHit || tpHit
		signalExit := exitSignal && holdDays >= s.MinHold
		forceExit := forceTrade && holdDays >= s.MinHold
		timeExit := holdDays >= s.MaxHold
		lastDay := i == len(series)-1

		if signalExit || forceExit || timeExit || lastDay {
			cash = shares * price * (1 - fee)
			shares = 0
			holding = false
			lastTradeIdx = i
			cooldown := s.Cooldown
			if cooldown < 0 {
				cooldown = 0
			}
			cooldownUntil = i + cooldown

			reason := ExitEndOfSeries
			switch {
			case signalExit:
				reason = ExitSignal
			case forceExit:
				reason = ExitForced
			case timeExit:
				reason = ExitMaxHold
			}

			tr := Trade{
				BuyDate:   series[entryIdx].Date,
				SellDate:  series[i].Date,
				BuyPrice:  entryPrice,
				SellPrice: price,
				HoldDays:  holdDays,
				Reason:    reason,
				Equity:    cash,
			}
			if entryIdx >= 0 && equity[entryIdx] > 0 {
				tr.Return = cash/equity[entryIdx] - 1
			}
			trades = append(trades, tr)
		}
	}

	finalEquity := cash
	if holding {
		finalEquity = shares * series[len(series)-1].Close
	}

	years := elapsedYears(series[0].Date, series[len(series)-1].Date)
	res := &Result{
		Strategy:      s,
		TotalReturn:   finalEquity - 1,
		CAGR:          AnnualizedReturn(1, finalEquity, series[0].Date, series[len(series)-1].Date),
		MaxDrawdown:   MaxDrawdown(equity),
		TradesPerYear: float64(len(trades)) / years,
		Trades:        trades,
		EquityCurve:   equity,
	}
	res.Score = res.CAGR - s.DDWeight*res.MaxDrawdown - s.TradePenalty*res.TradesPerYear
	return res, nil
}
