// Package handlers provides the HTTP endpoints of the bot: the Telegram
// webhook intake and the read-only stats API.
//
// Handlers are transport-thin: they decode input, hand work to the update
// dispatcher or read the store, and translate results into HTTP responses.
package handlers

import (
	"context"

	"github.com/tbourn/html-downloader-bot/internal/repo"
	"github.com/tbourn/html-downloader-bot/pkg/telegram"
)

// UpdateQueue accepts Telegram updates for asynchronous processing.
// Enqueue must not block; transport.ErrQueueFull signals backpressure.
type UpdateQueue interface {
	Enqueue(u telegram.Update) error
	Pending() int
}

// StatsReader exposes the persisted counters.
type StatsReader interface {
	DashboardStats(ctx context.Context) repo.DashboardStats
}

// SessionCounter reports how many chats have a pending input state.
type SessionCounter interface {
	Len() int
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	queue    UpdateQueue
	stats    StatsReader
	sessions SessionCounter
}

// New constructs Handlers bound to the given dependencies.
func New(queue UpdateQueue, stats StatsReader, sessions SessionCounter) *Handlers {
	return &Handlers{queue: queue, stats: stats, sessions: sessions}
}
