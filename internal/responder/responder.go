// Package responder runs the receive, match, transform and send loop that
// answers inbound frames according to a rule table.
package responder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"firestige.xyz/framesmith/internal/core"
	"firestige.xyz/framesmith/internal/frame"
	"firestige.xyz/framesmith/internal/header"
	"firestige.xyz/framesmith/internal/log"
	"firestige.xyz/framesmith/internal/match"
	"firestige.xyz/framesmith/internal/metrics"
)

// Transport moves raw frames. Receive blocks until a frame arrives, the poll
// timeout expires (core.ErrTimeout) or the source is exhausted (io.EOF).
type Transport interface {
	Send(frame []byte) error
	Receive() ([]byte, error)
}

// State is the loop state of a Responder.
type State int32

const (
	StateStopped State = iota
	StateWaiting
	StateDispatching
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateDispatching:
		return "dispatching"
	default:
		return "stopped"
	}
}

// Responder answers frames matching its rules. It is single threaded: Run
// must not be called concurrently.
type Responder struct {
	transport Transport
	rules     atomic.Pointer[match.RuleTable]
	limit     int
	sent      int
	name      string
	logger    log.Logger
	cooldown  *cache.Cache
	state     atomic.Int32
}

type Option func(*Responder)

// WithLimit stops Run after n replies. Zero means no limit.
func WithLimit(n int) Option {
	return func(r *Responder) { r.limit = n }
}

func WithLogger(l log.Logger) Option {
	return func(r *Responder) { r.logger = l }
}

// WithName sets the interface label used in logs and metrics.
func WithName(name string) Option {
	return func(r *Responder) { r.name = name }
}

// WithCooldown suppresses repeated replies from one rule to the same
// requester within d. Zero disables suppression.
func WithCooldown(d time.Duration) Option {
	return func(r *Responder) {
		if d <= 0 {
			r.cooldown = nil
			return
		}
		r.cooldown = cache.New(d, 2*d)
	}
}

func New(t Transport, rules *match.RuleTable, opts ...Option) *Responder {
	r := &Responder{
		transport: t,
		name:      "default",
	}
	r.rules.Store(rules)
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.GetLogger()
	}
	r.logger = r.logger.WithField("interface", r.name)
	return r
}

// Sent returns the number of replies sent so far.
func (r *Responder) Sent() int { return r.sent }

func (r *Responder) State() State { return State(r.state.Load()) }

// Rules returns the active rule table.
func (r *Responder) Rules() *match.RuleTable { return r.rules.Load() }

// SetRules replaces the rule table. It is safe to call while Run is active;
// the next received frame sees the new table.
func (r *Responder) SetRules(rules *match.RuleTable) {
	r.rules.Store(rules)
	r.logger.WithField("rules", rules.Len()).Info("rule table replaced")
}

func (r *Responder) setState(s State) {
	r.state.Store(int32(s))
	metrics.ResponderState.WithLabelValues(r.name).Set(float64(s))
}

// Run loops until the limit is reached, the transport is exhausted or ctx is
// done. Frames that fail to transform or build are dropped; a failed send
// ends the run with core.ErrChannel.
func (r *Responder) Run(ctx context.Context) error {
	defer r.setState(StateStopped)

	r.logger.WithField("rules", r.rules.Load().Len()).WithField("limit", r.limit).Info("responder started")
	for {
		if r.limit > 0 && r.sent >= r.limit {
			r.logger.WithField("sent", r.sent).Info("reply limit reached")
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		r.setState(StateWaiting)
		raw, err := r.transport.Receive()
		if err != nil {
			switch {
			case errors.Is(err, core.ErrTimeout):
				continue
			case errors.Is(err, io.EOF):
				r.logger.WithField("sent", r.sent).Info("transport exhausted")
				return nil
			default:
				return fmt.Errorf("receive: %w: %w", core.ErrChannel, err)
			}
		}

		r.setState(StateDispatching)
		if err := r.dispatch(raw); err != nil {
			return err
		}
	}
}

// dispatch answers one frame with the first matching rule.
func (r *Responder) dispatch(raw []byte) error {
	f := frame.Parse(raw)
	metrics.FramesReceivedTotal.WithLabelValues(r.name, kindOf(f)).Inc()

	rule, ok := r.rules.Load().First(f)
	if !ok {
		metrics.FramesUnmatchedTotal.WithLabelValues(r.name).Inc()
		if r.logger.IsDebugEnabled() {
			r.logger.Debugf("no rule for %s", f)
		}
		return nil
	}
	metrics.RuleMatchesTotal.WithLabelValues(r.name, rule.Name).Inc()
	logger := r.logger.WithField("rule", rule.Name)

	key := cooldownKey(rule, f)
	if r.cooldown != nil {
		if _, found := r.cooldown.Get(key); found {
			metrics.RepliesSuppressedTotal.WithLabelValues(r.name, rule.Name).Inc()
			logger.Debug("reply suppressed by cooldown")
			return nil
		}
	}

	reply, err := rule.Transform(f)
	if err != nil {
		metrics.ReplyErrorsTotal.WithLabelValues(r.name, rule.Name, metrics.StageTransform).Inc()
		logger.WithError(err).Warn("transform failed, frame dropped")
		return nil
	}
	if reply == nil {
		logger.Debug("transform produced no reply")
		return nil
	}
	if err := reply.Build(); err != nil {
		metrics.ReplyErrorsTotal.WithLabelValues(r.name, rule.Name, metrics.StageBuild).Inc()
		logger.WithError(err).Warn("build failed, frame dropped")
		return nil
	}
	if err := r.transport.Send(reply.Bytes()); err != nil {
		metrics.ReplyErrorsTotal.WithLabelValues(r.name, rule.Name, metrics.StageSend).Inc()
		return fmt.Errorf("send reply for rule %s: %w: %w", rule.Name, core.ErrChannel, err)
	}

	r.sent++
	if r.cooldown != nil {
		r.cooldown.SetDefault(key, struct{}{})
	}
	metrics.RepliesSentTotal.WithLabelValues(r.name, rule.Name).Inc()
	logger.Infof("sent %s", reply)
	return nil
}

func kindOf(f *frame.Frame) string {
	if p, ok := f.Network(); ok {
		return p.Kind().String()
	}
	if p, ok := f.Link(); ok {
		return p.Kind().String()
	}
	return header.KindUnknown.String()
}

// cooldownKey identifies a requester by its link source address.
func cooldownKey(rule match.Rule, f *frame.Frame) string {
	if p, ok := f.Link(); ok {
		if eth, err := p.Ethernet(); err == nil {
			return rule.Name + "|" + eth.Src.String()
		}
	}
	return rule.Name
}
