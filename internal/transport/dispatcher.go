// Package transport feeds Telegram updates to the conversation controller.
// Webhook requests and the long-poll loop both hand updates to a Dispatcher,
// whose single worker processes them one at a time.
package transport

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/html-downloader-bot/internal/observability"
	"github.com/tbourn/html-downloader-bot/pkg/telegram"
)

// ErrQueueFull is returned by Enqueue when the worker is saturated.
var ErrQueueFull = errors.New("transport: update queue is full")

// Defaults for NewDispatcher.
const (
	DefaultQueueSize = 100
	dedupWindow      = 1024
)

// Handler processes updates. NotifyFailure is called after HandleUpdate
// returned an error or panicked.
type Handler interface {
	HandleUpdate(ctx context.Context, u telegram.Update) error
	NotifyFailure(ctx context.Context, u telegram.Update) error
}

// Dispatcher is a bounded queue drained by one worker goroutine.
type Dispatcher struct {
	handler Handler
	queue   chan telegram.Update

	mu   sync.Mutex
	seen map[int64]int // update id -> ring slot
	ring []int64
	next int
	full bool
}

// NewDispatcher returns a dispatcher with the given queue capacity
// (DefaultQueueSize when <= 0). Call Run to start the worker.
func NewDispatcher(h Handler, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		handler: h,
		queue:   make(chan telegram.Update, queueSize),
		seen:    make(map[int64]int, dedupWindow),
		ring:    make([]int64, dedupWindow),
	}
}

// Pending returns the number of queued updates.
func (d *Dispatcher) Pending() int { return len(d.queue) }

// Enqueue queues u without blocking. Updates already seen are dropped
// silently; a full queue yields ErrQueueFull and the update is forgotten so a
// redelivery is accepted.
func (d *Dispatcher) Enqueue(u telegram.Update) error {
	if !d.remember(u.UpdateID) {
		observability.UpdatesDropped.WithLabelValues("duplicate").Inc()
		return nil
	}
	select {
	case d.queue <- u:
		return nil
	default:
		d.forget(u.UpdateID)
		observability.UpdatesDropped.WithLabelValues("queue_full").Inc()
		return ErrQueueFull
	}
}

// Submit queues u, waiting for room until ctx is done.
func (d *Dispatcher) Submit(ctx context.Context, u telegram.Update) error {
	if !d.remember(u.UpdateID) {
		observability.UpdatesDropped.WithLabelValues("duplicate").Inc()
		return nil
	}
	select {
	case d.queue <- u:
		return nil
	case <-ctx.Done():
		d.forget(u.UpdateID)
		return ctx.Err()
	}
}

// remember records id and reports whether it was new.
func (d *Dispatcher) remember(id int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return false
	}
	if d.full {
		old := d.ring[d.next]
		if slot, ok := d.seen[old]; ok && slot == d.next {
			delete(d.seen, old)
		}
	}
	d.ring[d.next] = id
	d.seen[id] = d.next
	d.next++
	if d.next == len(d.ring) {
		d.next = 0
		d.full = true
	}
	return true
}

func (d *Dispatcher) forget(id int64) {
	d.mu.Lock()
	delete(d.seen, id)
	d.mu.Unlock()
}

// Run processes queued updates until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	log.Info().Int("capacity", cap(d.queue)).Msg("dispatcher started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("pending", len(d.queue)).Msg("dispatcher stopped")
			return
		case u := <-d.queue:
			d.process(ctx, u)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, u telegram.Update) {
	err := d.safeHandle(ctx, u)
	if err == nil {
		return
	}
	log.Error().Err(err).Int64("update_id", u.UpdateID).Msg("update processing failed")
	if nerr := d.safeNotify(ctx, u); nerr != nil {
		log.Warn().Err(nerr).Int64("update_id", u.UpdateID).Msg("failure notice not delivered")
	}
}

func (d *Dispatcher) safeHandle(ctx context.Context, u telegram.Update) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Int64("update_id", u.UpdateID).
				Msg("update handler panicked")
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return d.handler.HandleUpdate(ctx, u)
}

func (d *Dispatcher) safeNotify(ctx context.Context, u telegram.Update) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return d.handler.NotifyFailure(ctx, u)
}
