// Package notify carries the human-readable notices raised when an
// aggregate could not be computed. Delivery is fire-and-forget: a notifier
// never reports failure back to the code that raised the notice.
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const KindFetchFailed = "fetch_failed"

type Notification struct {
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Time        time.Time `json:"time"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, n Notification)

func (f Func) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// Nop discards notifications.
var Nop Notifier = Func(func(context.Context, Notification) {})

// Multi fans a notification out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, notifier := range m {
		if notifier != nil {
			notifier.Notify(ctx, n)
		}
	}
}

// LogNotifier writes notifications to the service log at warn level.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(_ context.Context, n Notification) {
	l.logger.Warn(n.Title,
		zap.String("kind", n.Kind),
		zap.String("description", n.Description),
		zap.Time("raised_at", n.Time),
	)
}

// Collector keeps notifications in memory, e.g. to return them with a
// single HTTP response.
type Collector struct {
	mu    sync.Mutex
	items []Notification
}

func (c *Collector) Notify(_ context.Context, n Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, n)
}

// Notifications returns a copy of everything collected so far.
func (c *Collector) Notifications() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, len(c.items))
	copy(out, c.items)
	return out
}
