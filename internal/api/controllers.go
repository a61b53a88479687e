package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"options-core/internal/account"
	"options-core/internal/option"
	"options-core/internal/trading"

	"github.com/gin-gonic/gin"
)

type createOrderRequest struct {
	Symbol    string  `json:"symbol" binding:"required,min=1"`
	Direction string  `json:"direction" binding:"required,oneof=buy sell"`
	Stake     float64 `json:"stake" binding:"gt=0"`
	Timeframe int64   `json:"timeframe" binding:"gt=0"` // seconds
}

type selectAccountRequest struct {
	AccountType string `json:"account_type" binding:"required,oneof=demo real"`
}

// optionView is the wire shape of an active option.
type optionView struct {
	ID        string  `json:"id"`
	Account   string  `json:"account_type"`
	Symbol    string  `json:"symbol"`
	Direction string  `json:"direction"`
	Stake     float64 `json:"stake"`
	OpenPrice float64 `json:"open_price"`
	OpenedAt  int64   `json:"opened_at"`
	ExpiresAt int64   `json:"expires_at"`
	Remaining float64 `json:"remaining_sec"`
	Progress  float64 `json:"progress"`
}

// resultView is the wire shape of a settled option.
type resultView struct {
	ID         string  `json:"id"`
	Account    string  `json:"account_type"`
	Symbol     string  `json:"symbol"`
	Direction  string  `json:"direction"`
	Stake      float64 `json:"stake"`
	OpenPrice  float64 `json:"open_price"`
	ClosePrice float64 `json:"close_price"`
	Outcome    string  `json:"outcome"`
	Profit     float64 `json:"profit"`
	SettledAt  int64   `json:"settled_at"`
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{
		"code":  code,
		"error": msg,
	})
}

func (s *Server) getAssets(c *gin.Context) {
	out := make([]gin.H, 0, len(s.Symbols))
	for _, sym := range s.Symbols {
		out = append(out, gin.H{
			"symbol": sym.Symbol,
			"name":   sym.Name,
			"price":  s.Feed.Price(sym.Symbol),
		})
	}
	c.JSON(http.StatusOK, gin.H{"assets": out})
}

func (s *Server) getPrices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"prices": s.Feed.Prices()})
}

func (s *Server) getKlines(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "symbol is required")
		return
	}
	interval := c.DefaultQuery("interval", "1m")
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 || limit > 1000 {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "limit must be between 1 and 1000")
		return
	}

	klines, err := s.Klines.GetKlines(symbol, interval, limit, 0, 0)
	if err != nil {
		respondError(c, http.StatusBadGateway, "UPSTREAM_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "interval": interval, "klines": klines})
}

func (s *Server) getBalance(c *gin.Context) {
	selected, balance := s.Store.SelectedBalance()
	c.JSON(http.StatusOK, gin.H{
		"selected": string(selected),
		"balance":  balance,
		"demo":     s.Store.Balance(option.AccountDemo),
		"real":     s.Store.Balance(option.AccountReal),
	})
}

func (s *Server) selectAccount(c *gin.Context) {
	var req selectAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "account_type must be demo or real")
		return
	}
	if err := s.Store.Select(option.AccountType(req.AccountType)); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ACCOUNT", err.Error())
		return
	}
	selected, balance := s.Store.SelectedBalance()
	c.JSON(http.StatusOK, gin.H{"selected": string(selected), "balance": balance})
}

// resyncBalance asks the reconciliation service for a fresh snapshot. The
// request returns immediately; the updated balance arrives over the bus.
func (s *Server) resyncBalance(c *gin.Context) {
	if s.Resync != nil {
		s.Resync.Trigger()
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "resync requested"})
}

func (s *Server) getActiveOptions(c *gin.Context) {
	now := time.Now()
	active := s.Store.Active()
	out := make([]optionView, 0, len(active))
	for _, o := range active {
		out = append(out, optionView{
			ID:        o.ID,
			Account:   string(o.Account),
			Symbol:    o.Symbol,
			Direction: string(o.Direction),
			Stake:     o.Stake,
			OpenPrice: o.OpenPrice,
			OpenedAt:  o.OpenedAt.Unix(),
			ExpiresAt: o.ExpiresAt.Unix(),
			Remaining: o.Remaining(now).Seconds(),
			Progress:  o.Progress(now),
		})
	}
	c.JSON(http.StatusOK, gin.H{"options": out})
}

func (s *Server) getHistory(c *gin.Context) {
	history := s.Store.History()
	out := make([]resultView, 0, len(history))
	for _, r := range history {
		out = append(out, resultView{
			ID:         r.ID,
			Account:    string(r.Account),
			Symbol:     r.Symbol,
			Direction:  string(r.Direction),
			Stake:      r.Stake,
			OpenPrice:  r.OpenPrice,
			ClosePrice: r.ClosePrice,
			Outcome:    string(r.Outcome),
			Profit:     r.Profit,
			SettledAt:  r.SettledAt.Unix(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"history": out})
}

func (s *Server) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid order payload")
		return
	}

	opt, err := s.Placer.Place(c.Request.Context(), trading.Request{
		Symbol:    req.Symbol,
		Direction: option.Direction(req.Direction),
		Stake:     req.Stake,
		Timeframe: time.Duration(req.Timeframe) * time.Second,
	})
	if err != nil {
		switch {
		case errors.Is(err, trading.ErrOrderInFlight):
			respondError(c, http.StatusConflict, "ORDER_IN_FLIGHT", err.Error())
		case errors.Is(err, account.ErrInsufficientFunds):
			respondError(c, http.StatusBadRequest, "INSUFFICIENT_FUNDS", err.Error())
		case errors.Is(err, trading.ErrStakeTooSmall),
			errors.Is(err, trading.ErrBadDirection),
			errors.Is(err, trading.ErrBadTimeframe),
			errors.Is(err, trading.ErrNoSymbol):
			respondError(c, http.StatusBadRequest, "INVALID_ORDER", err.Error())
		default:
			respondError(c, http.StatusBadGateway, "ORDER_REJECTED", err.Error())
		}
		return
	}

	c.JSON(http.StatusCreated, optionView{
		ID:        opt.ID,
		Account:   string(opt.Account),
		Symbol:    opt.Symbol,
		Direction: string(opt.Direction),
		Stake:     opt.Stake,
		OpenPrice: opt.OpenPrice,
		OpenedAt:  opt.OpenedAt.Unix(),
		ExpiresAt: opt.ExpiresAt.Unix(),
		Remaining: opt.Remaining(time.Now()).Seconds(),
		Progress:  opt.Progress(time.Now()),
	})
}
