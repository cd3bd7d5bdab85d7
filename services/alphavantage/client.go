// Package alphavantage fetches daily close prices and resolves ticker
// symbols through the Alpha Vantage HTTP API.
package alphavantage

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/MaxwellSullivan/StockBot/services/prices"
)

const defaultBaseURL = "https://www.alphavantage.co"

type Client struct {
	apiKey  string
	baseURL string
	client  *resty.Client
	log     *zap.Logger
}

func NewClient(apiKey string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	rc := resty.New()
	rc.SetTimeout(30 * time.Second)

	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  rc,
		log:     log,
	}
}

// SetBaseURL points the client at a different endpoint, used by tests.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = strings.TrimSuffix(u, "/")
}

// dailyResponse covers both the payload and the API's throttle/error
// envelopes, which arrive with HTTP 200.
type dailyResponse struct {
	TimeSeries  map[string]map[string]string `json:"Time Series (Daily)"`
	Note        string                       `json:"Note"`
	Information string                       `json:"Information"`
	ErrorMsg    string                       `json:"Error Message"`
}

// DailyCloses fetches the close series for symbol between start and end
// inclusive, sorted ascending. Full history is requested first; when the
// API refuses full output (a premium-tier response), the compact 100-day
// window is retried instead.
func (c *Client) DailyCloses(symbol string, start, end time.Time) (prices.Series, error) {
	if symbol == "" {
		return nil, fmt.Errorf("empty symbol")
	}
	if start.After(end) {
		return nil, fmt.Errorf("start date %s after end date %s",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	data, err := c.fetchDaily(symbol, "full")
	if err != nil {
		return nil, err
	}

	if data.TimeSeries == nil {
		info := data.Information
		if info == "" {
			info = data.Note
		}
		if strings.Contains(strings.ToLower(info), "outputsize=full") {
			c.log.Warn("full output refused, retrying compact", zap.String("symbol", symbol))
			data, err = c.fetchDaily(symbol, "compact")
			if err != nil {
				return nil, err
			}
		}
	}

	if data.TimeSeries == nil {
		switch {
		case data.Note != "":
			return nil, fmt.Errorf("alphavantage: %s", data.Note)
		case data.Information != "":
			return nil, fmt.Errorf("alphavantage: %s", data.Information)
		case data.ErrorMsg != "":
			return nil, fmt.Errorf("alphavantage api error: %s", data.ErrorMsg)
		default:
			return nil, fmt.Errorf("alphavantage: unexpected response for %s", symbol)
		}
	}

	out := make(prices.Series, 0, len(data.TimeSeries))
	for dateStr, daily := range data.TimeSeries {
		d, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}
		if d.Before(start) || d.After(end) {
			continue
		}
		closeStr, ok := daily["4. close"]
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(closeStr, 64)
		if err != nil {
			continue
		}
		out = append(out, prices.Point{Date: d, Close: v})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no closes for %s in requested range", symbol)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (c *Client) fetchDaily(symbol, outputSize string) (*dailyResponse, error) {
	resp, err := c.client.R().
		SetQueryParams(map[string]string{
			"function":   "TIME_SERIES_DAILY",
			"symbol":     symbol,
			"outputsize": outputSize,
			"apikey":     c.apiKey,
		}).
		Get(c.baseURL + "/query")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", symbol, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("alphavantage status %d for %s", resp.StatusCode(), symbol)
	}

	var data dailyResponse
	if err := json.Unmarshal(resp.Body(), &data); err != nil {
		return nil, fmt.Errorf("failed to decode response for %s: %w", symbol, err)
	}
	return &data, nil
}

type Match struct {
	Symbol string
	Name   string
}

type searchResponse struct {
	BestMatches []map[string]string `json:"bestMatches"`
}

// SearchSymbol resolves a free-text company name to its best-matching
// ticker. No match is an error, not an empty result.
func (c *Client) SearchSymbol(query string) (*Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty query")
	}

	resp, err := c.client.R().
		SetQueryParams(map[string]string{
			"function": "SYMBOL_SEARCH",
			"keywords": query,
			"apikey":   c.apiKey,
		}).
		Get(c.baseURL + "/query")
	if err != nil {
		return nil, fmt.Errorf("symbol search failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("alphavantage status %d for search %q", resp.StatusCode(), query)
	}

	var data searchResponse
	if err := json.Unmarshal(resp.Body(), &data); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	if len(data.BestMatches) == 0 {
		return nil, fmt.Errorf("no symbol match for %q", query)
	}

	best := data.BestMatches[0]
	symbol := best["1. symbol"]
	if symbol == "" {
		return nil, fmt.Errorf("no symbol match for %q", query)
	}
	return &Match{Symbol: symbol, Name: best["2. name"]}, nil
}
