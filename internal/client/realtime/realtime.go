// Package realtime delivers change notifications for backend resources.
// Subscribers do not care whether changes are pushed over the change feed or
// discovered by polling; both implement Subscriber.
package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/shared/models"
)

// Subscriber calls onChange whenever resourceID changes, until unsubscribe
// is called or ctx ends. A resource id is a document id, a parent id for
// nested collections, or a collection name.
type Subscriber interface {
	Subscribe(ctx context.Context, resourceID string, onChange func(models.ChangeEvent)) (unsubscribe func())
}

// Probe returns a fingerprint of the current state of resourceID. Two equal
// fingerprints mean nothing changed.
type Probe func(ctx context.Context, resourceID string) (string, error)

// Poller is a Subscriber that probes each subscribed resource on a fixed
// interval.
type Poller struct {
	interval time.Duration
	probe    Probe
	log      zerolog.Logger
	now      func() time.Time
}

type PollerOption func(*Poller)

func WithPollerLogger(l zerolog.Logger) PollerOption { return func(p *Poller) { p.log = l } }

func NewPoller(interval time.Duration, probe Probe, opts ...PollerOption) *Poller {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	p := &Poller{interval: interval, probe: probe, log: zerolog.Nop(), now: time.Now}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Subscribe takes a baseline fingerprint right away and reports an update
// each time a later probe differs from the previous one. Failed probes are
// logged and skipped.
func (p *Poller) Subscribe(ctx context.Context, resourceID string, onChange func(models.ChangeEvent)) func() {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		t := time.NewTicker(p.interval)
		defer t.Stop()

		last, err := p.probe(ctx, resourceID)
		have := err == nil
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
			fp, err := p.probe(ctx, resourceID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				p.log.Warn().Err(err).Str("resource", resourceID).Msg("poll failed")
				continue
			}
			if have && fp != last && ctx.Err() == nil {
				onChange(models.ChangeEvent{ResourceID: resourceID, Op: models.ChangeUpdate, At: p.now()})
			}
			last, have = fp, true
		}
	}()
	var once sync.Once
	return func() { once.Do(cancel) }
}
