// Package lifecycle starts long-running parts of the bot in order and stops them in reverse.
package lifecycle

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Component interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type unit struct {
	name string
	Component
}

type Runtime struct {
	mu      sync.Mutex
	units   []unit
	running []unit
}

func NewRuntime() *Runtime {
	return &Runtime{}
}

// Register appends a component; nil components are skipped.
func (r *Runtime) Register(name string, component Component) *Runtime {
	if component == nil {
		return r
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.units = append(r.units, unit{name: name, Component: component})
	return r
}

// Start brings components up in registration order. On failure the ones
// already running are stopped before the error is returned.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.units {
		if err := u.Start(ctx); err != nil {
			r.stopRunning(ctx)
			return errors.Wrapf(err, "cant start %s", u.name)
		}
		r.running = append(r.running, u)
		r.getLogEntry().WithField("component", u.name).Debug("started")
	}
	return nil
}

// Stop shuts running components down in reverse order and returns the first failure.
func (r *Runtime) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopRunning(ctx)
}

func (r *Runtime) stopRunning(ctx context.Context) error {
	var first error
	for i := len(r.running) - 1; i >= 0; i-- {
		u := r.running[i]
		entry := r.getLogEntry().WithField("component", u.name)
		if err := u.Stop(ctx); err != nil {
			entry.WithError(err).Warn("cant stop")
			if first == nil {
				first = errors.Wrapf(err, "cant stop %s", u.name)
			}
			continue
		}
		entry.Debug("stopped")
	}
	r.running = nil
	return first
}

func (r *Runtime) getLogEntry() *log.Entry {
	return log.WithField("object", "Runtime")
}
