package transport

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/html-downloader-bot/pkg/telegram"
)

// Source long-polls for updates.
type Source interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, error)
}

// Poller defaults.
const (
	DefaultPollTimeout = 30 * time.Second
	DefaultPollBackoff = time.Second
)

// Poller pulls updates with getUpdates and submits them to a Dispatcher.
type Poller struct {
	Source     Source
	Dispatcher *Dispatcher
	Timeout    time.Duration // server-side long-poll timeout
	Backoff    time.Duration // wait after a failed poll
}

// Run polls until ctx is cancelled. Failed polls are logged and retried after
// Backoff.
func (p *Poller) Run(ctx context.Context) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	backoff := p.Backoff
	if backoff <= 0 {
		backoff = DefaultPollBackoff
	}

	log.Info().Dur("timeout", timeout).Msg("long polling started")
	var offset int64
	for ctx.Err() == nil {
		updates, err := p.Source.GetUpdates(ctx, offset, timeout)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Warn().Err(err).Int64("offset", offset).Msg("getUpdates failed")
			select {
			case <-ctx.Done():
			case <-time.After(backoff):
			}
			continue
		}
		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			if err := p.Dispatcher.Submit(ctx, u); err != nil {
				break
			}
		}
	}
	log.Info().Msg("long polling stopped")
}
