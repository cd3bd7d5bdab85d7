package prices

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestLoadNasdaqStyleExport(t *testing.T) {
	csv := strings.Join([]string{
		"Date,Close/Last,Volume,Open,High,Low",
		"01/03/2023,$125.07,112117500,$130.28,$130.90,$124.17",
		"01/04/2023,$126.36,89113600,$126.89,$128.66,$125.08",
		"01/05/2023,$125.02,80962700,$127.13,$127.77,$124.76",
	}, "\n")

	s, err := NewLoader(zap.NewNop()).Load(strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 3 {
		t.Fatalf("got %d rows, want 3", s.Len())
	}
	if s.First().Close != 125.07 || s.Last().Close != 125.02 {
		t.Errorf("closes = %v..%v, want 125.07..125.02", s.First().Close, s.Last().Close)
	}
	want := time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)
	if !s.First().Date.Equal(want) {
		t.Errorf("first date = %v, want %v", s.First().Date, want)
	}
}

func TestLoadCloseColumnAliases(t *testing.T) {
	for _, col := range []string{"Close/Last", "Close", "Adj Close", "AdjClose", "Last"} {
		csv := "Date," + col + "\n01/03/2023,10\n01/04/2023,11\n"
		s, err := NewLoader(nil).Load(strings.NewReader(csv))
		if err != nil {
			t.Errorf("column %q: %v", col, err)
			continue
		}
		if s.Len() != 2 {
			t.Errorf("column %q: got %d rows, want 2", col, s.Len())
		}
	}
}

func TestLoadMissingColumns(t *testing.T) {
	if _, err := NewLoader(nil).Load(strings.NewReader("Foo,Bar\n1,2\n")); err == nil {
		t.Error("missing date column should error")
	}
	if _, err := NewLoader(nil).Load(strings.NewReader("Date,Volume\n01/03/2023,5\n")); err == nil {
		t.Error("missing close column should error")
	}
	if _, err := NewLoader(nil).Load(strings.NewReader("")); err == nil {
		t.Error("empty input should error")
	}
}

func TestLoadISODatesViaFallback(t *testing.T) {
	csv := strings.Join([]string{
		"Date,Close",
		"2023-01-03,10",
		"2023-01-04,11",
		"2023-01-05,12",
	}, "\n")

	s, err := NewLoader(nil).Load(strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 3 {
		t.Fatalf("got %d rows, want 3", s.Len())
	}
	want := time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC)
	if !s.Last().Date.Equal(want) {
		t.Errorf("last date = %v, want %v", s.Last().Date, want)
	}
}

func TestLoadSortsAndDeduplicates(t *testing.T) {
	csv := strings.Join([]string{
		"Date,Close",
		"01/05/2023,30",
		"01/03/2023,10",
		"01/04/2023,20",
		"01/03/2023,15",
	}, "\n")

	s, err := NewLoader(nil).Load(strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 3 {
		t.Fatalf("got %d rows, want 3", s.Len())
	}
	// Later rows win duplicate dates.
	if s.First().Close != 15 {
		t.Errorf("deduplicated close = %v, want 15", s.First().Close)
	}
	for i := 1; i < s.Len(); i++ {
		if !s[i-1].Date.Before(s[i].Date) {
			t.Errorf("dates not strictly increasing at %d", i)
		}
	}
}

func TestLoadSkipsUnparseableRows(t *testing.T) {
	csv := strings.Join([]string{
		"Date,Close",
		"01/03/2023,10",
		"01/04/2023,n/a",
		"01/05/2023,12",
	}, "\n")

	s, err := NewLoader(nil).Load(strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 {
		t.Errorf("got %d rows, want 2", s.Len())
	}
}

func TestCleanMoney(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"$1,234.50", 1234.50},
		{" 99.5 ", 99.5},
		{"(1,234.50)", -1234.50},
		{"0.0001", 0.0001},
	}
	for _, tc := range cases {
		got, err := cleanMoney(tc.in)
		if err != nil {
			t.Errorf("cleanMoney(%q): %v", tc.in, err)
			continue
		}
		if math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("cleanMoney(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if _, err := cleanMoney(""); err == nil {
		t.Error("empty money value should error")
	}
	if _, err := cleanMoney("abc"); err == nil {
		t.Error("non-numeric money value should error")
	}
}

func TestLoadFileWithBOM(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "AAPL.csv")
	data := "\uFEFFDate,Close\n01/03/2023,10\n01/04/2023,11\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := NewLoader(nil).LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 {
		t.Errorf("got %d rows, want 2", s.Len())
	}
}

func TestFindCSV(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "msft.csv"), []byte("Date,Close\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := FindCSV(dir, "MSFT"); got == "" {
		t.Error("case-insensitive lookup failed")
	}
	if got := FindCSV(dir, "TSLA"); got != "" {
		t.Errorf("unexpected match %q", got)
	}
	if got := FindCSV(dir, ""); got != "" {
		t.Errorf("empty ticker matched %q", got)
	}
}

func TestLastIndexOnOrBefore(t *testing.T) {
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	s := Series{
		{Date: start},
		{Date: start.AddDate(0, 0, 1)},
		{Date: start.AddDate(0, 0, 4)},
	}

	if got := s.LastIndexOnOrBefore(start.AddDate(0, 0, -1)); got != -1 {
		t.Errorf("before series: got %d, want -1", got)
	}
	if got := s.LastIndexOnOrBefore(start); got != 0 {
		t.Errorf("exact first: got %d, want 0", got)
	}
	if got := s.LastIndexOnOrBefore(start.AddDate(0, 0, 2)); got != 1 {
		t.Errorf("gap date: got %d, want 1", got)
	}
	if got := s.LastIndexOnOrBefore(start.AddDate(0, 1, 0)); got != 2 {
		t.Errorf("after series: got %d, want 2", got)
	}
}
