package market

// Ticker holds lightweight last-price info for streaming.
type Ticker struct {
	Symbol string
	Price  float64
	Time   int64
}

// Kline represents a single candlestick, used by the chart endpoint.
type Kline struct {
	Symbol    string
	OpenTime  int64 // ms
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime int64 // ms
}
