package export

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/MaxwellSullivan/StockBot/services/engine"
)

// WriteReportXLSX writes a two-sheet workbook: the ranked strategies
// and the best strategy's trade log.
func WriteReportXLSX(path, symbol string, results []*engine.Result) error {
	if len(results) == 0 {
		return fmt.Errorf("no results to report")
	}

	f := excelize.NewFile()
	defer f.Close()

	const rankSheet = "Strategies"
	f.SetSheetName("Sheet1", rankSheet)

	rankHeaders := []string{
		"Rank", "Score", "Total Return", "CAGR", "Max Drawdown", "Trades/Year",
		"Fast SMA", "Slow SMA", "RSI Window", "RSI Buy", "RSI Sell",
		"Z Window", "Z Buy", "Z Sell", "Stop Loss", "Take Profit",
	}
	for i, h := range rankHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(rankSheet, cell, h)
	}
	for row, r := range results {
		s := r.Strategy
		values := []interface{}{
			row + 1, r.Score, r.TotalReturn, r.CAGR, r.MaxDrawdown, r.TradesPerYear,
			s.Fast, s.Slow, s.RSIWindow, s.RSIBuy, s.RSISell,
			s.ZWindow, s.ZBuy, s.ZSell, s.StopLoss, s.TakeProfit,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(rankSheet, cell, v)
		}
	}

	const tradeSheet = "Best Trades"
	if _, err := f.NewSheet(tradeSheet); err != nil {
		return err
	}
	tradeHeaders := []string{"#", "Buy Date", "Sell Date", "Buy Price", "Sell Price", "Hold Days", "Exit", "Return"}
	for i, h := range tradeHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(tradeSheet, cell, h)
	}
	for row, tr := range results[0].Trades {
		values := []interface{}{
			row + 1,
			tr.BuyDate.Format("2006-01-02"),
			tr.SellDate.Format("2006-01-02"),
			tr.BuyPrice,
			tr.SellPrice,
			tr.HoldDays,
			string(tr.Reason),
			tr.Return,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(tradeSheet, cell, v)
		}
	}

	f.SetCellValue(rankSheet, "R1", "Symbol")
	f.SetCellValue(rankSheet, "S1", symbol)
	f.SetCellValue(rankSheet, "R2", "Strategies ranked")
	f.SetCellValue(rankSheet, "S2", strconv.Itoa(len(results)))

	return f.SaveAs(path)
}
