// Package export renders search and tuning results as CSV, Excel, and
// Arrow IPC artifacts.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/MaxwellSullivan/StockBot/services/engine"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteTradesCSV writes one row per completed round trip.
func WriteTradesCSV(path string, trades []engine.Trade) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	headers := []string{
		"buy_date", "sell_date", "buy_price", "sell_price",
		"hold_days", "exit_reason", "equity_after", "return",
	}
	if err := w.Write(headers); err != nil {
		return err
	}

	for _, tr := range trades {
		row := []string{
			tr.BuyDate.Format("2006-01-02"),
			tr.SellDate.Format("2006-01-02"),
			formatFloat(tr.BuyPrice),
			formatFloat(tr.SellPrice),
			strconv.Itoa(tr.HoldDays),
			string(tr.Reason),
			formatFloat(tr.Equity),
			formatFloat(tr.Return),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteLabeledCSV writes the price timeline with buy/sell markers, the
// shape charting frontends consume.
func WriteLabeledCSV(path string, points []engine.LabeledPoint) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"date", "close", "buy", "sell", "signal"}); err != nil {
		return err
	}
	for _, p := range points {
		row := []string{
			p.Date.Format("2006-01-02"),
			formatFloat(p.Close),
			strconv.Itoa(p.Buy),
			strconv.Itoa(p.Sell),
			strconv.Itoa(p.Signal),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteSummaryCSV writes the ranked search results, one row per
// retained strategy.
func WriteSummaryCSV(path string, results []*engine.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	headers := []string{
		"rank", "score", "total_return", "cagr", "max_drawdown", "trades_per_year",
		"fast", "slow", "rsi_window", "rsi_buy", "rsi_sell",
		"z_window", "z_buy", "z_sell", "stop_loss", "take_profit",
	}
	if err := cw.Write(headers); err != nil {
		return err
	}

	for i, r := range results {
		s := r.Strategy
		row := []string{
			strconv.Itoa(i + 1),
			formatFloat(r.Score),
			formatFloat(r.TotalReturn),
			formatFloat(r.CAGR),
			formatFloat(r.MaxDrawdown),
			formatFloat(r.TradesPerYear),
			strconv.Itoa(s.Fast),
			strconv.Itoa(s.Slow),
			strconv.Itoa(s.RSIWindow),
			formatFloat(s.RSIBuy),
			formatFloat(s.RSISell),
			strconv.Itoa(s.ZWindow),
			formatFloat(s.ZBuy),
			formatFloat(s.ZSell),
			formatFloat(s.StopLoss),
			formatFloat(s.TakeProfit),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteGridCSV writes the top of the ranked threshold grid.
func WriteGridCSV(path string, combos []engine.ThresholdCombo, limit int) error {
	if limit <= 0 || limit > len(combos) {
		limit = len(combos)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"rank", "sell_pct", "buy_pct", "profit"}); err != nil {
		return err
	}
	for i := 0; i < limit; i++ {
		c := combos[i]
		row := []string{
			strconv.Itoa(i + 1),
			formatFloat(c.SellPct),
			formatFloat(c.BuyPct),
			formatFloat(c.Profit),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// TimestampedName builds <stem>_<symbol>_<YYYYMMDD-HHMMSS>.<ext>.
func TimestampedName(stem, symbol, ext string) string {
	return fmt.Sprintf("%s_%s_%s.%s", stem, symbol, time.Now().Format("20060102-150405"), ext)
}
