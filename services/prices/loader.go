package prices

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// closeAliases is tried in order when the configured close column is absent.
var closeAliases = []string{"Close/Last", "Close", "Adj Close", "AdjClose", "Last"}

// fallbackLayouts are tried when the primary MM/DD/YYYY layout fails
// for too many rows.
var fallbackLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	time.RFC3339,
}

const primaryLayout = "01/02/2006"

// Loader parses broker CSV exports into a Series. Zero value is not
// usable; construct with NewLoader.
type Loader struct {
	DateColumn  string
	CloseColumn string
	log         *zap.Logger
}

func NewLoader(log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{
		DateColumn:  "Date",
		CloseColumn: "Close/Last",
		log:         log,
	}
}

// LoadFile reads a CSV from disk. Input may be UTF-8 or UTF-16 with a
// BOM; both are normalized before parsing.
func (l *Loader) LoadFile(path string) (Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	return l.Load(transform.NewReader(bufio.NewReader(f), dec))
}

// Load parses CSV rows into a sorted, deduplicated Series. Rows with an
// unparseable date or price are dropped; missing required columns and an
// empty result are hard errors.
func (l *Loader) Load(r io.Reader) (Series, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = false
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\uFEFF"))
	}

	dateIdx := columnIndex(header, l.DateColumn)
	if dateIdx < 0 {
		return nil, fmt.Errorf("date column %q not found, columns: %v", l.DateColumn, header)
	}

	closeIdx := columnIndex(header, l.CloseColumn)
	if closeIdx < 0 {
		for _, alias := range closeAliases {
			if closeIdx = columnIndex(header, alias); closeIdx >= 0 {
				break
			}
		}
	}
	if closeIdx < 0 {
		return nil, fmt.Errorf("close column not found (tried %v), columns: %v", closeAliases, header)
	}

	type rawRow struct {
		date  string
		close float64
	}
	var raws []rawRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if len(rec) <= dateIdx || len(rec) <= closeIdx {
			continue
		}
		v, err := cleanMoney(rec[closeIdx])
		if err != nil {
			continue
		}
		raws = append(raws, rawRow{date: strings.TrimSpace(rec[dateIdx]), close: v})
	}

	// First pass insists on MM/DD/YYYY; when too many rows fail, retry
	// everything against the generic layouts instead.
	out := make(Series, 0, len(raws))
	failed := 0
	for _, rr := range raws {
		d, err := time.Parse(primaryLayout, rr.date)
		if err != nil {
			failed++
			continue
		}
		out = append(out, Point{Date: d, Close: rr.close})
	}
	if len(raws) > 0 && float64(failed)/float64(len(raws)) > 0.2 {
		out = out[:0]
		for _, rr := range raws {
			d, ok := parseAnyDate(rr.date)
			if !ok {
				continue
			}
			out = append(out, Point{Date: d, Close: rr.close})
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no usable rows after cleaning")
	}

	// Sort by date, dedup keeping the last occurrence.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	uniq := out[:0]
	for _, p := range out {
		if len(uniq) > 0 && uniq[len(uniq)-1].Date.Equal(p.Date) {
			uniq[len(uniq)-1] = p
			continue
		}
		uniq = append(uniq, p)
	}
	out = uniq

	if len(out) < 100 {
		l.log.Warn("very little data loaded, results may be noisy", zap.Int("rows", len(out)))
	}

	return out, nil
}

// cleanMoney normalizes money-formatted text: currency symbol, thousands
// separators, and parenthesized negatives like "(1,234.50)".
func cleanMoney(s string) (float64, error) {
	ss := strings.TrimSpace(s)
	if len(ss) >= 2 && strings.HasPrefix(ss, "(") && strings.HasSuffix(ss, ")") {
		ss = "-" + ss[1:len(ss)-1]
	}
	ss = strings.NewReplacer("$", "", ",", "", " ", "").Replace(ss)
	if ss == "" {
		return 0, fmt.Errorf("empty value")
	}
	d, err := decimal.NewFromString(ss)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

func parseAnyDate(s string) (time.Time, bool) {
	for _, layout := range fallbackLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}

// FindCSV locates <dir>/<TICKER>.csv, falling back to a case-insensitive
// scan of the directory. Returns "" when nothing matches.
func FindCSV(dir, ticker string) string {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if t == "" {
		return ""
	}

	direct := filepath.Join(dir, t+".csv")
	if _, err := os.Stat(direct); err == nil {
		return direct
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		name := e.Name()
		if !strings.EqualFold(filepath.Ext(name), ".csv") {
			continue
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if strings.EqualFold(strings.TrimSpace(stem), t) {
			return filepath.Join(dir, name)
		}
	}
	return ""
}
