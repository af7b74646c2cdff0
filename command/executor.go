// Package command executes member control operations against the switch
// and applies their effect to the local queue store once the switch has
// accepted them.
package command

import (
	"context"

	"github.com/grovetools/queued/errors"
	"github.com/grovetools/queued/internal/daemon/metrics"
	"github.com/grovetools/queued/internal/daemon/options"
	"github.com/grovetools/queued/internal/daemon/store"
	"github.com/grovetools/queued/pkg/ami"
	"github.com/grovetools/queued/pkg/models"
	"github.com/sirupsen/logrus"
)

// Operation names, used for logging and metrics labels.
const (
	OpPause        = "pause"
	OpUnpause      = "unpause"
	OpAddMember    = "add_member"
	OpRemoveMember = "remove_member"
	OpSetPenalty   = "set_penalty"
)

// Executor runs member control commands.
//
// Every command waits for the switch to answer before touching the store.
// A rejected command leaves the store unchanged and returns the provider's
// error as is. When the queue or member is not mirrored locally the
// command still succeeds or fails on the provider's answer alone.
type Executor struct {
	provider ami.Provider
	store    *store.Store
	opts     *options.Live
	recorder metrics.Recorder
	logger   *logrus.Entry
}

// NewExecutor creates a new Executor.
func NewExecutor(p ami.Provider, st *store.Store, opts *options.Live, rec metrics.Recorder, logger *logrus.Entry) *Executor {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Executor{
		provider: p,
		store:    st,
		opts:     opts,
		recorder: rec,
		logger:   logger,
	}
}

// Pause pauses iface in queue with an optional reason.
func (e *Executor) Pause(ctx context.Context, queue, iface, reason string) error {
	return e.run(ctx, OpPause, queue, iface,
		func() error { return validateReason(reason) },
		func() error { return e.provider.QueuePause(ctx, queue, iface, true, reason) },
		func() { e.patchMember(queue, iface, func(m *models.QueueMember) { m.SetPaused(true, reason) }) },
	)
}

// Unpause resumes iface in queue and clears its pause reason.
func (e *Executor) Unpause(ctx context.Context, queue, iface string) error {
	return e.run(ctx, OpUnpause, queue, iface, nil,
		func() error { return e.provider.QueuePause(ctx, queue, iface, false, "") },
		func() { e.patchMember(queue, iface, func(m *models.QueueMember) { m.SetPaused(false, "") }) },
	)
}

// SetPenalty changes the routing penalty of iface in queue.
func (e *Executor) SetPenalty(ctx context.Context, queue, iface string, penalty int) error {
	return e.run(ctx, OpSetPenalty, queue, iface,
		func() error { return validatePenalty(penalty) },
		func() error { return e.provider.QueuePenalty(ctx, queue, iface, penalty) },
		func() { e.patchMember(queue, iface, func(m *models.QueueMember) { m.Penalty = penalty }) },
	)
}

// RemoveMember removes iface from queue.
func (e *Executor) RemoveMember(ctx context.Context, queue, iface string) error {
	return e.run(ctx, OpRemoveMember, queue, iface, nil,
		func() error { return e.provider.QueueRemove(ctx, queue, iface) },
		func() { e.removeMember(queue, iface) },
	)
}

// AddMember adds iface to queue. The store is not touched: the member's
// full state arrives with the next refresh or member status event.
func (e *Executor) AddMember(ctx context.Context, queue, iface string, opts *ami.AddMemberOptions) error {
	return e.run(ctx, OpAddMember, queue, iface,
		func() error {
			if opts == nil {
				return nil
			}
			if err := validatePenalty(opts.Penalty); err != nil {
				return err
			}
			return validateReason(opts.Reason)
		},
		func() error { return e.provider.QueueAdd(ctx, queue, iface, opts) },
		nil,
	)
}

// run implements the shared command protocol: connection check, input
// validation, remote call, then the local effect.
func (e *Executor) run(ctx context.Context, op, queue, iface string, validate, remote func() error, apply func()) error {
	logger := e.logger.WithFields(logrus.Fields{
		"operation": op,
		"queue":     queue,
		"interface": iface,
	})

	if !ami.Connected(e.provider) {
		err := errors.NotConnected()
		e.recorder.CommandDone(op, err)
		logger.Debug("Command rejected, provider not connected")
		return err
	}

	if err := e.validate(queue, iface, validate); err != nil {
		e.recorder.CommandDone(op, err)
		return err
	}

	if err := remote(); err != nil {
		e.recorder.CommandDone(op, err)
		logger.WithError(err).Warn("Command rejected by switch")
		return err
	}

	if apply != nil {
		apply()
	}
	e.recorder.CommandDone(op, nil)
	logger.Info("Command applied")
	return nil
}

func (e *Executor) validate(queue, iface string, extra func() error) error {
	if err := Validate("queue", queue); err != nil {
		return err
	}
	if err := Validate("interface", iface); err != nil {
		return err
	}
	if extra != nil {
		return extra()
	}
	return nil
}

// patchMember applies fn to the mirrored member and notifies listeners.
// A missing queue or member is not an error.
func (e *Executor) patchMember(queue, iface string, fn func(m *models.QueueMember)) {
	var updated *models.QueueMember
	e.store.Update(queue, store.SourceCommand, store.UpdateMember, func(q *models.Queue) bool {
		m, _ := q.Member(iface)
		if m == nil {
			return false
		}
		fn(m)
		updated = m.Clone()
		return true
	})
	e.notify(queue, updated)
}

func (e *Executor) removeMember(queue, iface string) {
	var removed *models.QueueMember
	e.store.Update(queue, store.SourceCommand, store.UpdateMember, func(q *models.Queue) bool {
		_, i := q.Member(iface)
		if i < 0 {
			return false
		}
		removed = q.RemoveMember(i)
		return true
	})
	e.notify(queue, removed)
}

func (e *Executor) notify(queue string, m *models.QueueMember) {
	if m == nil {
		return
	}
	if cb := e.opts.Load().OnMemberUpdate; cb != nil {
		cb(queue, m)
	}
}
