package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"options-core/internal/account"
	"options-core/internal/events"
	"options-core/internal/market"
	"options-core/internal/option"
	"options-core/internal/reconciliation"
	"options-core/internal/settlement"
	"options-core/internal/trading"
	"options-core/pkg/config"
	binance "options-core/pkg/market/binance"
	"options-core/pkg/platform"
)

type stubPriceAPI struct{}

func (stubPriceAPI) GetPrice(string) (float64, error) { return 100, nil }

type stubStream struct{}

func (stubStream) SubscribeTicker(context.Context, string) (<-chan binance.Ticker, func(), error) {
	return nil, nil, errors.New("stream unavailable")
}

type stubOrders struct {
	err error
}

func (o *stubOrders) CreateOrder(context.Context, platform.CreateOrderRequest) (string, error) {
	if o.err != nil {
		return "", o.err
	}
	return "ord-1", nil
}

type stubOutcomes struct{}

func (stubOutcomes) PatchOutcome(context.Context, string, platform.OutcomeRequest) error {
	return nil
}

type stubAccounts struct{}

func (stubAccounts) GetAccount(context.Context) (platform.AccountSnapshot, error) {
	return platform.AccountSnapshot{UserID: "u1", DemoBalance: 10000, RealBalance: 500}, nil
}

type stubKlines struct{}

func (stubKlines) GetKlines(string, string, int, int64, int64) ([]binance.Kline, error) {
	return []binance.Kline{{OpenTime: 1, Open: 99, High: 101, Low: 98, Close: 100}}, nil
}

func newTestServer(t *testing.T, orders *stubOrders) (*httptest.Server, *account.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	bus := events.NewBus()
	feed := market.NewFeed(stubPriceAPI{}, stubStream{}, bus, market.Config{})
	t.Cleanup(feed.Close)

	store := account.NewStore(50)
	store.ApplySnapshot(account.Snapshot{UserID: "u1", Demo: 10000, Real: 500})

	resync := reconciliation.NewService(stubAccounts{}, store, bus, time.Hour)

	engine := &settlement.Engine{
		Feed:     feed,
		Platform: stubOutcomes{},
		Store:    store,
		Resync:   resync,
		Bus:      bus,
	}
	placer := trading.NewPlacer(ctx, feed, store, orders, engine)
	placer.Bus = bus

	symbols := []config.Symbol{
		{Symbol: "BTCUSDT", Name: "Bitcoin", BasePrice: 60000},
		{Symbol: "ETHUSDT", Name: "Ethereum", BasePrice: 3000},
	}

	server := NewServer(bus, feed, store, placer, resync, stubKlines{}, symbols)
	ts := httptest.NewServer(server.Router)
	t.Cleanup(ts.Close)
	return ts, store
}

func doJSON(t *testing.T, method, url string, payload any, out any) int {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return res.StatusCode
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, &stubOrders{})
	var out map[string]string
	if code := doJSON(t, http.MethodGet, ts.URL+"/health", nil, &out); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if out["status"] != "ok" {
		t.Fatalf("unexpected body: %v", out)
	}
}

func TestGetBalanceAndSelect(t *testing.T) {
	ts, _ := newTestServer(t, &stubOrders{})

	var bal struct {
		Selected string  `json:"selected"`
		Balance  float64 `json:"balance"`
		Demo     float64 `json:"demo"`
		Real     float64 `json:"real"`
	}
	if code := doJSON(t, http.MethodGet, ts.URL+"/api/balance", nil, &bal); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if bal.Selected != "demo" || bal.Balance != 10000 || bal.Real != 500 {
		t.Fatalf("unexpected balance: %+v", bal)
	}

	var sel struct {
		Selected string  `json:"selected"`
		Balance  float64 `json:"balance"`
	}
	code := doJSON(t, http.MethodPost, ts.URL+"/api/account/select",
		map[string]string{"account_type": "real"}, &sel)
	if code != http.StatusOK {
		t.Fatalf("select status = %d", code)
	}
	if sel.Selected != "real" || sel.Balance != 500 {
		t.Fatalf("unexpected selection: %+v", sel)
	}

	code = doJSON(t, http.MethodPost, ts.URL+"/api/account/select",
		map[string]string{"account_type": "margin"}, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("bad account type status = %d", code)
	}
}

func TestCreateOrderFlow(t *testing.T) {
	ts, store := newTestServer(t, &stubOrders{})

	var created struct {
		ID        string  `json:"id"`
		Symbol    string  `json:"symbol"`
		OpenPrice float64 `json:"open_price"`
	}
	code := doJSON(t, http.MethodPost, ts.URL+"/api/orders", map[string]any{
		"symbol":    "BTCUSDT",
		"direction": "buy",
		"stake":     25,
		"timeframe": 60,
	}, &created)
	if code != http.StatusCreated {
		t.Fatalf("status = %d", code)
	}
	if created.ID == "" || created.Symbol != "BTCUSDT" || created.OpenPrice != 100 {
		t.Fatalf("unexpected order: %+v", created)
	}
	if got := store.Balance(option.AccountDemo); got != 9975 {
		t.Fatalf("balance = %v, want 9975", got)
	}

	var active struct {
		Options []struct {
			ID string `json:"id"`
		} `json:"options"`
	}
	if code := doJSON(t, http.MethodGet, ts.URL+"/api/options/active", nil, &active); code != http.StatusOK {
		t.Fatalf("active status = %d", code)
	}
	if len(active.Options) != 1 || active.Options[0].ID != created.ID {
		t.Fatalf("unexpected active list: %+v", active)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	ts, store := newTestServer(t, &stubOrders{})

	// Binding rejects an unknown direction before the placer runs.
	code := doJSON(t, http.MethodPost, ts.URL+"/api/orders", map[string]any{
		"symbol":    "BTCUSDT",
		"direction": "hold",
		"stake":     25,
		"timeframe": 60,
	}, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("bad direction status = %d", code)
	}

	// Timeframe outside the selectable set is a placer error.
	var out struct {
		Code string `json:"code"`
	}
	code = doJSON(t, http.MethodPost, ts.URL+"/api/orders", map[string]any{
		"symbol":    "BTCUSDT",
		"direction": "buy",
		"stake":     25,
		"timeframe": 42,
	}, &out)
	if code != http.StatusBadRequest || out.Code != "INVALID_ORDER" {
		t.Fatalf("bad timeframe: status=%d code=%s", code, out.Code)
	}

	code = doJSON(t, http.MethodPost, ts.URL+"/api/orders", map[string]any{
		"symbol":    "BTCUSDT",
		"direction": "buy",
		"stake":     20000,
		"timeframe": 60,
	}, &out)
	if code != http.StatusBadRequest || out.Code != "INSUFFICIENT_FUNDS" {
		t.Fatalf("oversized stake: status=%d code=%s", code, out.Code)
	}
	if got := store.Balance(option.AccountDemo); got != 10000 {
		t.Fatalf("balance changed on rejected order: %v", got)
	}
}

func TestCreateOrderUpstreamFailure(t *testing.T) {
	ts, store := newTestServer(t, &stubOrders{err: errors.New("service down")})

	var out struct {
		Code string `json:"code"`
	}
	code := doJSON(t, http.MethodPost, ts.URL+"/api/orders", map[string]any{
		"symbol":    "BTCUSDT",
		"direction": "buy",
		"stake":     25,
		"timeframe": 60,
	}, &out)
	if code != http.StatusBadGateway || out.Code != "ORDER_REJECTED" {
		t.Fatalf("status=%d code=%s", code, out.Code)
	}
	if got := store.Balance(option.AccountDemo); got != 10000 {
		t.Fatalf("stake not refunded: %v", got)
	}
}

func TestGetAssetsAndKlines(t *testing.T) {
	ts, _ := newTestServer(t, &stubOrders{})

	var assets struct {
		Assets []struct {
			Symbol string  `json:"symbol"`
			Price  float64 `json:"price"`
		} `json:"assets"`
	}
	if code := doJSON(t, http.MethodGet, ts.URL+"/api/assets", nil, &assets); code != http.StatusOK {
		t.Fatalf("assets status = %d", code)
	}
	if len(assets.Assets) != 2 || assets.Assets[0].Price != 100 {
		t.Fatalf("unexpected assets: %+v", assets)
	}

	var klines struct {
		Symbol string          `json:"symbol"`
		Klines []binance.Kline `json:"klines"`
	}
	code := doJSON(t, http.MethodGet, ts.URL+"/api/klines?symbol=BTCUSDT&interval=1m&limit=10", nil, &klines)
	if code != http.StatusOK || len(klines.Klines) != 1 {
		t.Fatalf("klines: status=%d body=%+v", code, klines)
	}

	if code := doJSON(t, http.MethodGet, ts.URL+"/api/klines", nil, nil); code != http.StatusBadRequest {
		t.Fatalf("missing symbol status = %d", code)
	}
}

func TestResyncRequested(t *testing.T) {
	ts, _ := newTestServer(t, &stubOrders{})
	if code := doJSON(t, http.MethodPost, ts.URL+"/api/account/resync", nil, nil); code != http.StatusAccepted {
		t.Fatalf("status = %d", code)
	}
}
