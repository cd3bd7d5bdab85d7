package engine

import "math"

// Action is the decision the threshold trader took on the most recent
// day, surfaced so a caller can act on "today".
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Lot is one still-open purchase. Lots are closed individually once the
// profit threshold clears; every qualifying lot sells on the same day,
// so insertion order never affects the outcome.
type Lot struct {
	BuyPrice float64
	Shares   int
	BuyIndex int
}

// ThresholdResult is the outcome of one lot-based threshold simulation.
// Open lots are never force-liquidated; FinalValue marks them to market
// at the last price.
type ThresholdResult struct {
	FinalCash  float64
	OpenLots   []Lot
	FinalValue float64
	Profit     float64

	LastAction      Action
	LastAmount      int
	LastActionPrice float64
	LastPrice       float64

	EquityCurve []float64 // populated only when requested
}

// EvaluateThreshold replays the dip-buy / rally-sell lot strategy.
// Thresholds are percentages (5 means 5%). Each day, lots whose gain
// strictly exceeds sellPct liquidate in full; then, with cash left over,
// the deepest drop from any of the previous lookback days is measured
// and a drop beyond buyPct buys whole shares, one share per whole
// percentage point of the drop, at least one, capped by cash.
func EvaluateThreshold(closes []float64, startCapital, sellPct, buyPct float64, lookback int, trackCurve bool) ThresholdResult {
	wallet := startCapital
	var lots []Lot

	lastAction := ActionHold
	lastAmount := 0
	lastActionPrice := 0.0

	var curve []float64
	if trackCurve && len(closes) > 0 {
		curve = make([]float64, 0, len(closes))
		curve = append(curve, wallet)
	}

	for i := 1; i < len(closes); i++ {
		price := closes[i]

		lastAction = ActionHold
		lastAmount = 0
		lastActionPrice = 0

		// Sell pass: every lot past the profit threshold goes at once.
		kept := lots[:0]
		for _, lot := range lots {
			if lot.Shares <= 0 || lot.BuyPrice <= 0 {
				continue
			}
			gainPct := (price - lot.BuyPrice) / lot.BuyPrice * 100
			if lot.BuyPrice < price && gainPct > sellPct {
				wallet += float64(lot.Shares) * price
				lastAmount += lot.Shares
				lastActionPrice = price
				lastAction = ActionSell
				continue
			}
			kept = append(kept, lot)
		}
		lots = kept

		// Buy pass: deepest drop against any of the previous lookback days.
		if wallet > price {
			deepest := 0.0
			maxBack := lookback + 1
			if maxBack > i {
				maxBack = i
			}
			if maxBack < 1 {
				maxBack = 1
			}
			for x := 1; x < maxBack; x++ {
				prev := closes[i-x]
				if price < prev && prev > 0 {
					if drop := (price - prev) / prev * 100; drop < deepest {
						deepest = drop
					}
				}
			}

			if deepest < -buyPct {
				maxShares := int(math.Floor(math.Abs(deepest)))
				if maxShares < 1 {
					maxShares = 1
				}
				amount := 0
				for step := 0; step < maxShares && wallet > price; step++ {
					wallet -= price
					amount++
				}
				if amount > 0 {
					lots = append(lots, Lot{BuyPrice: price, Shares: amount, BuyIndex: i})
					lastAmount = amount
					lastActionPrice = price
					lastAction = ActionBuy
				}
			}
		}

		if trackCurve {
			curve = append(curve, wallet+float64(totalShares(lots))*price)
		}
	}

	finalPrice := 0.0
	if len(closes) > 0 {
		finalPrice = closes[len(closes)-1]
	}
	finalValue := wallet + float64(totalShares(lots))*finalPrice

	return ThresholdResult{
		FinalCash:       wallet,
		OpenLots:        append([]Lot(nil), lots...),
		FinalValue:      finalValue,
		Profit:          finalValue - startCapital,
		LastAction:      lastAction,
		LastAmount:      lastAmount,
		LastActionPrice: lastActionPrice,
		LastPrice:       finalPrice,
		EquityCurve:     curve,
	}
}

func totalShares(lots []Lot) int {
	n := 0
	for _, lot := range lots {
		n += lot.Shares
	}
	return n
}
