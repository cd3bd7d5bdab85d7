package export

import (
	"bytes"
	"fmt"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"

	"github.com/MaxwellSullivan/StockBot/services/engine"
)

// LabeledToArrow serializes a labeled series as a single Arrow IPC
// record batch, the interchange format downstream analysis notebooks
// read directly.
func LabeledToArrow(symbol string, points []engine.LabeledPoint) ([]byte, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("no points to convert")
	}

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "symbol", Type: arrow.BinaryTypes.String},
		{Name: "timestamp", Type: arrow.PrimitiveTypes.Int64},
		{Name: "close", Type: arrow.PrimitiveTypes.Float64},
		{Name: "buy", Type: arrow.PrimitiveTypes.Int8},
		{Name: "sell", Type: arrow.PrimitiveTypes.Int8},
		{Name: "signal", Type: arrow.PrimitiveTypes.Int8},
	}, nil)

	symbols := make([]string, len(points))
	timestamps := make([]int64, len(points))
	closes := make([]float64, len(points))
	buys := make([]int8, len(points))
	sells := make([]int8, len(points))
	signals := make([]int8, len(points))

	for i, p := range points {
		symbols[i] = symbol
		timestamps[i] = p.Date.Unix()
		closes[i] = p.Close
		buys[i] = int8(p.Buy)
		sells[i] = int8(p.Sell)
		signals[i] = int8(p.Signal)
	}

	pool := memory.NewGoAllocator()

	symbolBuilder := array.NewStringBuilder(pool)
	symbolBuilder.AppendValues(symbols, nil)
	symbolArray := symbolBuilder.NewStringArray()

	timestampBuilder := array.NewInt64Builder(pool)
	timestampBuilder.AppendValues(timestamps, nil)
	timestampArray := timestampBuilder.NewInt64Array()

	closeBuilder := array.NewFloat64Builder(pool)
	closeBuilder.AppendValues(closes, nil)
	closeArray := closeBuilder.NewFloat64Array()

	buyBuilder := array.NewInt8Builder(pool)
	buyBuilder.AppendValues(buys, nil)
	buyArray := buyBuilder.NewInt8Array()

	sellBuilder := array.NewInt8Builder(pool)
	sellBuilder.AppendValues(sells, nil)
	sellArray := sellBuilder.NewInt8Array()

	signalBuilder := array.NewInt8Builder(pool)
	signalBuilder.AppendValues(signals, nil)
	signalArray := signalBuilder.NewInt8Array()

	record := array.NewRecord(schema, []arrow.Array{
		symbolArray,
		timestampArray,
		closeArray,
		buyArray,
		sellArray,
		signalArray,
	}, int64(len(points)))
	defer record.Release()

	var buf bytes.Buffer
	writer := ipc.NewWriter(&buf, ipc.WithSchema(schema))
	if err := writer.Write(record); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to write Arrow record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close Arrow writer: %w", err)
	}

	return buf.Bytes(), nil
}
