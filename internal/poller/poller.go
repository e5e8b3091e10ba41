package poller

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"github.com/toasts-app/toasts/internal/client"
	"github.com/toasts-app/toasts/internal/config"
	"github.com/toasts-app/toasts/internal/notification"
	"github.com/toasts-app/toasts/internal/stats"
)

// Messages shown to the user on the fatal paths.
const (
	msgNoClients     = "No clients enabled - please enable at least one client in the config file (%s) and restart the app."
	msgInvalidClient = "Invalid client name specified in config file - %s. Please give a valid client name and restart the app."
	msgClientFailed  = "Could not start client %s: %v. Please check the config file and restart the app."
	msgCrash         = "A critical error caused Toasts to crash. Please restart the app."
)

// Sink displays notifications. Both methods may block.
type Sink interface {
	Show(ctx context.Context, rec notification.Record) error
	ShowError(ctx context.Context, msg string) error
}

// ConfigWatcher is checked between cycles for config edits.
type ConfigWatcher interface {
	Check()
}

// Options holds the optional collaborators of a Poller.
type Options struct {
	Logger zerolog.Logger

	// Stats receives counters. A fresh Recorder is used when nil.
	Stats *stats.Recorder

	Watcher ConfigWatcher

	// Sleep waits between cycles; it must return ctx.Err() when ctx ends
	// first. Defaults to a timer-based wait.
	Sleep func(ctx context.Context, d time.Duration) error

	// Now defaults to time.Now.
	Now func() time.Time
}

// pipeline is one configured client and its dedup history.
type pipeline struct {
	client  client.Client
	history *notification.History
}

// Poller is the single-threaded poll loop. It is created by Start, which
// validates the configuration, and driven by Run.
type Poller struct {
	cfg       *config.Config
	sink      Sink
	pipelines []pipeline

	log     zerolog.Logger
	stats   *stats.Recorder
	watcher ConfigWatcher
	sleep   func(ctx context.Context, d time.Duration) error
	now     func() time.Time
}

// Start validates cfg and builds one authenticated client per configured
// name, in order. Any failure aborts startup: the user is shown one error
// notification and a *FatalError is returned, so either every client starts
// or none does. A cancelled ctx returns ctx.Err().
func Start(ctx context.Context, cfg *config.Config, reg client.Registry, sink Sink, opts Options) (*Poller, error) {
	p := &Poller{
		cfg:     cfg,
		sink:    sink,
		log:     opts.Logger,
		stats:   opts.Stats,
		watcher: opts.Watcher,
		sleep:   opts.Sleep,
		now:     opts.Now,
	}
	if p.stats == nil {
		p.stats = stats.New()
	}
	if p.sleep == nil {
		p.sleep = sleepCtx
	}
	if p.now == nil {
		p.now = time.Now
	}

	if len(cfg.General.Clients) == 0 {
		return nil, p.fatal(ctx, KindConfig, fmt.Sprintf(msgNoClients, cfg.Path), "No clients enabled")
	}

	seen := make(map[string]bool, len(cfg.General.Clients))
	for _, name := range cfg.General.Clients {
		if seen[name] {
			p.log.Warn().Str("client", name).Msg("poller: client listed twice in config, polling it once")
			continue
		}
		seen[name] = true

		c, err := reg.Build(ctx, cfg, name)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, p.startupFailure(ctx, reg, name, err)
		}
		p.pipelines = append(p.pipelines, pipeline{client: c, history: notification.NewHistory()})
		p.log.Info().Str("client", name).Msg("poller: client ready")
	}
	return p, nil
}

func (p *Poller) startupFailure(ctx context.Context, reg client.Registry, name string, err error) *FatalError {
	var authErr *client.AuthError
	switch {
	case errors.Is(err, client.ErrUnknownClient):
		p.log.Error().Str("client", name).Strs("known", reg.Names()).Msg("poller: unknown client in config")
		return p.fatal(ctx, KindConfig, fmt.Sprintf(msgInvalidClient, name), fmt.Sprintf("Invalid client name %q", name))
	case errors.As(err, &authErr):
		return p.fatal(ctx, KindAuth, authErr.Error(), authErr.Error())
	default:
		return p.fatal(ctx, KindConfig, fmt.Sprintf(msgClientFailed, name, err), err.Error())
	}
}

// Clients returns the names of the running clients in polling order.
func (p *Poller) Clients() []string {
	names := make([]string, len(p.pipelines))
	for i, pl := range p.pipelines {
		names[i] = pl.client.Name()
	}
	return names
}

// Run polls every client, waits check_every minutes, and repeats. It returns
// nil once ctx is cancelled and a *FatalError when a fatal failure occurs.
func (p *Poller) Run(ctx context.Context) error {
	interval := p.cfg.General.CheckInterval()
	for {
		if err := p.Cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		p.endCycle()

		p.log.Debug().Dur("sleep", interval).Msg("poller: cycle done")
		if err := p.sleep(ctx, interval); err != nil {
			return nil
		}
	}
}

// Cycle polls each client once, in configured order. Recoverable failures
// are absorbed; a fatal one stops the cycle immediately and is returned.
func (p *Poller) Cycle(ctx context.Context) error {
	for _, pl := range p.pipelines {
		if err := p.poll(ctx, pl); err != nil {
			return err
		}
	}
	return nil
}

// poll fetches from one client and displays what is new. A panic anywhere in
// here is treated as an unclassified failure.
func (p *Poller) poll(ctx context.Context, pl pipeline) (err error) {
	name := pl.client.Name()
	defer func() {
		if r := recover(); r != nil {
			p.stats.Fetch(name, stats.OutcomeUnclassified)
			err = p.crash(ctx, name, fmt.Errorf("panic: %v", r), debug.Stack())
		}
	}()

	recs, err := pl.client.Fetch(ctx)
	if err != nil {
		return p.fetchFailure(ctx, name, err)
	}
	p.stats.Fetch(name, stats.OutcomeOK)
	return p.dispatch(ctx, pl, recs)
}

// fetchOutcome is the stats label recorded for each failure kind.
var fetchOutcome = map[Kind]string{
	KindAuth:               stats.OutcomeAuthError,
	KindUnexpectedResponse: stats.OutcomeUnexpectedResponse,
	KindTransport:          stats.OutcomeTransportError,
	KindConfig:             stats.OutcomeUnclassified,
	KindUnclassified:       stats.OutcomeUnclassified,
}

func (p *Poller) fetchFailure(ctx context.Context, name string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	kind := Classify(err)
	p.stats.Fetch(name, fetchOutcome[kind])

	var (
		authErr    *client.AuthError
		unexpected *client.UnexpectedResponseError
	)
	switch {
	case !kind.Fatal():
		if errors.As(err, &unexpected) {
			p.log.Warn().Str("client", name).Int("status", unexpected.StatusCode).Msg(unexpected.Error())
		}
		return nil
	case errors.As(err, &authErr):
		return p.fatal(ctx, KindAuth, authErr.Error(), authErr.Error())
	default:
		return p.crash(ctx, name, err, debug.Stack())
	}
}

// dispatch runs recs through the client's history and the display cap, then
// shows the survivors in order.
func (p *Poller) dispatch(ctx context.Context, pl pipeline, recs []notification.Record) error {
	name := pl.client.Name()
	limit := p.cfg.General.NotifMaxShow

	fresh := pl.history.FilterNew(recs)
	batch := notification.Throttle(fresh, limit)
	p.stats.Suppressed(name, notification.Suppressed(len(fresh), limit))
	if len(batch) > 0 {
		p.log.Debug().Str("client", name).Int("fetched", len(recs)).Int("new", len(fresh)).Int("seen", pl.history.Len()).Msg("poller: showing notifications")
	}

	for _, rec := range batch {
		if err := p.sink.Show(ctx, rec); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.log.Error().Err(err).Str("client", name).Msg("poller: could not display notification")
			continue
		}
		if !rec.Synthetic() {
			p.stats.Shown(name, 1)
		}
	}
	return nil
}

// endCycle runs the between-cycle housekeeping.
func (p *Poller) endCycle() {
	p.stats.Cycle(p.now())
	if path := p.cfg.General.MetricsFile; path != "" {
		if err := p.stats.WriteFile(path); err != nil {
			p.log.Warn().Err(err).Str("path", path).Msg("poller: could not write metrics file")
		}
	}
	if p.watcher != nil {
		p.watcher.Check()
	}
}

// fatal shows userMsg and returns the matching FatalError.
func (p *Poller) fatal(ctx context.Context, kind Kind, userMsg, detail string) *FatalError {
	if err := p.sink.ShowError(ctx, userMsg); err != nil {
		p.log.Error().Err(err).Msg("poller: could not show error notification")
	}
	return &FatalError{Kind: kind, Detail: detail}
}

// crash handles an unclassified failure: a generic notification for the
// user, the error and stack for the diagnostic stream.
func (p *Poller) crash(ctx context.Context, name string, err error, stack []byte) *FatalError {
	detail := fmt.Sprintf("unclassified failure in client %q: %v\n%s", name, err, stack)
	return p.fatal(ctx, KindUnclassified, msgCrash, detail)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
