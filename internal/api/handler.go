// Package api exposes the HTTP and websocket surface of the options core.
package api

import (
	"net/http"
	"time"

	"options-core/internal/account"
	"options-core/internal/events"
	"options-core/internal/market"
	"options-core/internal/reconciliation"
	"options-core/internal/trading"
	"options-core/pkg/config"
	binance "options-core/pkg/market/binance"

	"github.com/gin-gonic/gin"
)

// KlineAPI serves candlestick history for the chart.
type KlineAPI interface {
	GetKlines(symbol, interval string, limit int, startTime, endTime int64) ([]binance.Kline, error)
}

// Server wires HTTP endpoints around the trading services.
type Server struct {
	Router  *gin.Engine
	Bus     *events.Bus
	Feed    *market.Feed
	Store   *account.Store
	Placer  *trading.Placer
	Resync  *reconciliation.Service
	Klines  KlineAPI
	Symbols []config.Symbol
}

func NewServer(bus *events.Bus, feed *market.Feed, store *account.Store, placer *trading.Placer, resync *reconciliation.Service, klines KlineAPI, symbols []config.Symbol) *Server {
	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())
	r.Use(RequestLogger())
	r.Use(RateLimitMiddleware())
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(CORSMiddleware())

	s := &Server{
		Router:  r,
		Bus:     bus,
		Feed:    feed,
		Store:   store,
		Placer:  placer,
		Resync:  resync,
		Klines:  klines,
		Symbols: symbols,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)

	api := s.Router.Group("/api")
	{
		api.GET("/assets", s.getAssets)
		api.GET("/prices", s.getPrices)
		api.GET("/klines", s.getKlines)

		api.GET("/balance", s.getBalance)
		api.POST("/account/select", s.selectAccount)
		api.POST("/account/resync", s.resyncBalance)

		api.GET("/options/active", s.getActiveOptions)
		api.GET("/options/history", s.getHistory)
		api.POST("/orders", s.createOrder)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
