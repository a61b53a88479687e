package events

// Event enumerates high-level topics inside the options core.
type Event string

const (
	EventPriceTick     Event = "price_tick"
	EventOptionOpened  Event = "option.opened"
	EventOptionSettled Event = "option.settled"
	EventOrderRejected Event = "order.rejected"
	EventBalanceSynced Event = "balance.synced"
	EventNotice        Event = "notice"
)

// PriceTick is the payload published on EventPriceTick.
type PriceTick struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// Notice is a short user-facing message published on EventNotice.
type Notice struct {
	Level   string `json:"level"` // "info", "success" or "error"
	Message string `json:"message"`
}
