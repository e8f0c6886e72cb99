package eastmoney

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"signalcore/internal/model"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// Endpoint paths on the push2 quote service.
const (
	listPath  = "/api/qt/clist/get"
	klinePath = "/api/qt/stock/kline/get"
	ulistPath = "/api/qt/ulist.np/get"
)

// Request headers mimicking a browser; the vendor rejects bare clients.
const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	referer   = "https://quote.eastmoney.com/"
)

// Market filters for the board list endpoint.
const (
	fsConceptBoards  = "m:90+t:3"
	fsIndustryBoards = "m:90+t:2"
)

// Field sets. Field IDs are the vendor's column codes:
// f2 price, f3 change%, f8 turnover rate, f12 code, f14 name,
// f18 previous close, f62 main money inflow, f104 up count,
// f105 down count, f109 5d change%, f160 10d change%, f162 20d change%,
// f5 volume, f352 limit-up count.
const (
	boardListFields     = "f12,f14"
	boardSnapshotFields = "f2,f3,f5,f8,f12,f14,f62,f104,f105,f109,f160,f162,f352"
	quoteFields         = "f2,f12,f18"
)

// Client is the REST side of the market data gateway. All calls share one
// rate limiter so concurrent fan-outs respect the vendor's throttling.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(baseURL string, timeout time.Duration, requestsPerSec float64) *Client {
	if requestsPerSec <= 0 {
		requestsPerSec = 5
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSec), 1),
	}
}

// ListBoards fetches the full board universe, concept boards first.
func (c *Client) ListBoards(ctx context.Context) ([]model.Symbol, error) {
	concepts, err := c.listBoardsOfKind(ctx, model.KindConceptBoard)
	if err != nil {
		return nil, err
	}
	industries, err := c.listBoardsOfKind(ctx, model.KindIndustryBoard)
	if err != nil {
		return nil, err
	}
	return append(concepts, industries...), nil
}

func (c *Client) listBoardsOfKind(ctx context.Context, kind model.SymbolKind) ([]model.Symbol, error) {
	fs := fsConceptBoards
	if kind == model.KindIndustryBoard {
		fs = fsIndustryBoards
	}

	params := url.Values{}
	params.Set("pn", "1")
	params.Set("pz", "500")
	params.Set("fs", fs)
	params.Set("fields", boardListFields)

	body, err := c.get(ctx, listPath, params)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}

	var boards []model.Symbol
	for _, row := range gjson.GetBytes(body, "data.diff").Array() {
		code := row.Get("f12").String()
		if code == "" {
			continue
		}
		boards = append(boards, model.Symbol{
			Code: code,
			Name: row.Get("f14").String(),
			Kind: kind,
		})
	}
	return boards, nil
}

// Snapshot fetches the current aggregate metrics for one board.
func (c *Client) Snapshot(ctx context.Context, board string) (model.BoardSnapshot, error) {
	params := url.Values{}
	params.Set("secids", "90."+board)
	params.Set("fields", boardSnapshotFields)

	body, err := c.get(ctx, ulistPath, params)
	if err != nil {
		return model.BoardSnapshot{}, fmt.Errorf("board snapshot %s: %w", board, err)
	}

	rows := gjson.GetBytes(body, "data.diff").Array()
	if len(rows) == 0 {
		return model.BoardSnapshot{}, fmt.Errorf("board snapshot %s: empty response", board)
	}
	row := rows[0]

	return model.BoardSnapshot{
		Board:        board,
		Name:         row.Get("f14").String(),
		ObservedAt:   time.Now(),
		ChangePct:    row.Get("f3").Float(),
		Change5d:     row.Get("f109").Float(),
		Change10d:    row.Get("f160").Float(),
		Change20d:    row.Get("f162").Float(),
		MoneyInflow:  row.Get("f62").Float(),
		LimitUpCount: int(row.Get("f352").Int()),
		UpCount:      int(row.Get("f104").Int()),
		DownCount:    int(row.Get("f105").Int()),
		Turnover:     row.Get("f8").Float(),
		Volume:       row.Get("f5").Float(),
	}, nil
}

// Bars fetches up to count bars of the given timeframe for a symbol, oldest
// first. Kline rows come back as comma-joined strings:
// date,open,close,high,low,volume,turnover.
func (c *Client) Bars(ctx context.Context, secID string, symbol string, tf model.Timeframe, count int) ([]model.Bar, error) {
	klt := "101" // daily
	if tf == model.TimeframeMin30 {
		klt = "30"
	}

	params := url.Values{}
	params.Set("secid", secID)
	params.Set("klt", klt)
	params.Set("fqt", "1")
	params.Set("lmt", fmt.Sprintf("%d", count))
	params.Set("end", "20500101")
	params.Set("fields1", "f1,f2,f3")
	params.Set("fields2", "f51,f52,f53,f54,f55,f56,f57")

	body, err := c.get(ctx, klinePath, params)
	if err != nil {
		return nil, fmt.Errorf("bars %s: %w", symbol, err)
	}

	var bars []model.Bar
	for _, row := range gjson.GetBytes(body, "data.klines").Array() {
		bar, ok := parseKlineRow(symbol, tf, row.String())
		if !ok {
			continue // skip malformed row
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// RealtimeQuotes fetches the latest price and previous close for a set of
// secids ("1.600000" style).
func (c *Client) RealtimeQuotes(ctx context.Context, secIDs []string) ([]model.RealtimeQuote, error) {
	if len(secIDs) == 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("secids", strings.Join(secIDs, ","))
	params.Set("fields", quoteFields)

	body, err := c.get(ctx, ulistPath, params)
	if err != nil {
		return nil, fmt.Errorf("realtime quotes: %w", err)
	}

	now := time.Now()
	var quotes []model.RealtimeQuote
	for _, row := range gjson.GetBytes(body, "data.diff").Array() {
		code := row.Get("f12").String()
		if code == "" {
			continue
		}
		quotes = append(quotes, model.RealtimeQuote{
			Symbol:        code,
			Price:         row.Get("f2").Float(),
			PreviousClose: row.Get("f18").Float(),
			ObservedAt:    now,
		})
	}
	return quotes, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	endpoint := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", referer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("gateway error %d: %s", resp.StatusCode, truncate(body, 200))
	}

	return io.ReadAll(resp.Body)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
