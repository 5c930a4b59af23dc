package provision

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/soyeahso/mcp-digitalocean/internal/domain"
	"github.com/soyeahso/mcp-digitalocean/internal/hooks"
	"github.com/soyeahso/mcp-digitalocean/internal/logging"
)

// Defaults.
const (
	DefaultInterval = 5 * time.Second
	DefaultDeadline = 300 * time.Second
)

// Getter fetches the current state of a droplet. *doclient.Client
// satisfies it.
type Getter interface {
	GetDroplet(ctx context.Context, id int) (*domain.DropletState, error)
}

// Config controls polling. Zero fields take the defaults.
type Config struct {
	Interval        time.Duration
	Deadline        time.Duration
	ActiveStatus    string
	FailureStatuses []string
}

// DefaultConfig returns the standard polling configuration.
func DefaultConfig() Config {
	return Config{
		Interval:        DefaultInterval,
		Deadline:        DefaultDeadline,
		ActiveStatus:    domain.StatusActive,
		FailureStatuses: []string{"error"},
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.Deadline <= 0 {
		c.Deadline = d.Deadline
	}
	if c.ActiveStatus == "" {
		c.ActiveStatus = d.ActiveStatus
	}
	if c.FailureStatuses == nil {
		c.FailureStatuses = d.FailureStatuses
	}
	return c
}

// Waiter polls a droplet until it is active, has failed, or the deadline
// passes. A Waiter has no per-wait state and may be shared.
type Waiter struct {
	get   Getter
	cfg   Config
	clock clock.Clock
	hooks *hooks.Manager
	log   *logging.Logger
}

// Option configures a Waiter.
type Option func(*Waiter)

// WithClock replaces the wall clock, typically with clock.NewMock().
func WithClock(c clock.Clock) Option {
	return func(w *Waiter) { w.clock = c }
}

// WithHooks routes lifecycle events to m.
func WithHooks(m *hooks.Manager) Option {
	return func(w *Waiter) { w.hooks = m }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(w *Waiter) { w.log = l }
}

// New creates a Waiter.
func New(get Getter, cfg Config, opts ...Option) *Waiter {
	w := &Waiter{
		get:   get,
		cfg:   cfg.withDefaults(),
		clock: clock.New(),
		log:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.Sub("provision")
	return w
}

// Config returns the effective configuration.
func (w *Waiter) Config() Config { return w.cfg }

// Wait drives initial, the droplet returned by the create call, to a
// terminal state. It polls immediately and then once per interval, with
// the last sleep clipped to the deadline.
//
// Active returns a nil error. Failed and TimedOut return the outcome with a
// ProvisioningFailed or ProvisioningTimedOut error. Poll errors are counted
// and polling continues. If ctx ends first, ctx.Err() is returned with a
// non-terminal outcome.
func (w *Waiter) Wait(ctx context.Context, initial *domain.DropletState) (Outcome, error) {
	const op = "wait for droplet"
	if initial == nil || initial.ID <= 0 {
		return Outcome{}, domain.ValidationError(op, "a created droplet with a positive id is required")
	}

	id := initial.ID
	start := w.clock.Now()
	out := Outcome{State: StateRequested, Droplet: initial}
	log := w.log.With("droplet_id", fmt.Sprint(id))

	out.State = StatePolling
	log.Debug().
		Dur("interval", w.cfg.Interval).
		Dur("deadline", w.cfg.Deadline).
		Msg("polling droplet")

	for {
		if err := ctx.Err(); err != nil {
			out.Elapsed = w.clock.Since(start)
			return out, err
		}

		st, err := w.get.GetDroplet(ctx, id)
		if err == nil && st == nil {
			err = &domain.Error{Kind: domain.KindUpstream, Op: "get droplet", Message: "no droplet state returned"}
		}
		out.Elapsed = w.clock.Since(start)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, ctxErr
			}
			out.PollErrors++
			out.LastError = err
			log.Warn().Err(err).Int("poll_errors", out.PollErrors).Msg("poll failed")
			w.emit(ctx, hooks.EventPollFailed, id, out, map[string]any{"error": err.Error()})

		default:
			out.Observations++
			out.Droplet = st
			log.Debug().Str("status", st.Status).Int("observation", out.Observations).Msg("droplet observed")
			w.emit(ctx, hooks.EventPollObserved, id, out, map[string]any{"status": st.Status})

			if st.Status == w.cfg.ActiveStatus {
				out.State = StateActive
				log.Info().Dur("elapsed", out.Elapsed).Msg("droplet active")
				w.emit(ctx, hooks.EventProvisionActive, id, out, nil)
				return out, nil
			}
			if slices.Contains(w.cfg.FailureStatuses, st.Status) {
				out.State = StateFailed
				out.Reason = fmt.Sprintf("droplet reported status %q", st.Status)
				log.Error().Str("status", st.Status).Msg("droplet provisioning failed")
				w.emit(ctx, hooks.EventProvisionFailed, id, out, map[string]any{"status": st.Status})
				return out, &domain.Error{
					Kind:    domain.KindProvisioningFailed,
					Op:      op,
					Message: fmt.Sprintf("droplet %d reported status %q", id, st.Status),
				}
			}
		}

		elapsed := w.clock.Since(start)
		if elapsed >= w.cfg.Deadline {
			out.Elapsed = elapsed
			out.State = StateTimedOut
			out.Reason = fmt.Sprintf("not %s after %s", w.cfg.ActiveStatus, w.cfg.Deadline)
			log.Error().Dur("elapsed", elapsed).Msg("timed out waiting for droplet")
			w.emit(ctx, hooks.EventProvisionTimedOut, id, out, nil)
			return out, &domain.Error{
				Kind:    domain.KindProvisioningTimedOut,
				Op:      op,
				Message: fmt.Sprintf("droplet %d %s (last status %q)", id, out.Reason, lastStatus(out)),
				Err:     out.LastError,
			}
		}

		timer := w.clock.Timer(min(w.cfg.Interval, w.cfg.Deadline-elapsed))
		select {
		case <-ctx.Done():
			timer.Stop()
			out.Elapsed = w.clock.Since(start)
			return out, ctx.Err()
		case <-timer.C:
		}
	}
}

func (w *Waiter) emit(ctx context.Context, event string, id int, out Outcome, extra map[string]any) {
	data := map[string]any{
		"droplet_id":   id,
		"state":        string(out.State),
		"elapsed":      out.Elapsed,
		"observations": out.Observations,
		"poll_errors":  out.PollErrors,
	}
	for k, v := range extra {
		data[k] = v
	}
	w.hooks.Emit(ctx, event, data)
}

func lastStatus(out Outcome) string {
	if out.Droplet == nil {
		return ""
	}
	return out.Droplet.Status
}
