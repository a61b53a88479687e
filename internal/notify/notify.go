// Package notify delivers short user-facing messages about order and
// settlement outcomes.
package notify

import (
	"log"

	"options-core/internal/events"
)

// Notifier is the sink for user-visible notices. Messages are short and
// actionable; internal error text stays in the process log.
type Notifier interface {
	Info(msg string)
	Success(msg string)
	Error(msg string)
}

// BusNotifier publishes notices on the event bus, where the websocket layer
// forwards them to connected clients.
type BusNotifier struct {
	Bus *events.Bus
}

func (n *BusNotifier) Info(msg string)    { n.publish("info", msg) }
func (n *BusNotifier) Success(msg string) { n.publish("success", msg) }
func (n *BusNotifier) Error(msg string)   { n.publish("error", msg) }

func (n *BusNotifier) publish(level, msg string) {
	if n.Bus == nil {
		log.Printf("notice [%s] %s", level, msg)
		return
	}
	n.Bus.Publish(events.EventNotice, events.Notice{Level: level, Message: msg})
}

// LogNotifier writes notices to the process log; used headless and in tests.
type LogNotifier struct{}

func (LogNotifier) Info(msg string)    { log.Printf("notice [info] %s", msg) }
func (LogNotifier) Success(msg string) { log.Printf("notice [success] %s", msg) }
func (LogNotifier) Error(msg string)   { log.Printf("notice [error] %s", msg) }
