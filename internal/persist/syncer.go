// Package persist writes player checkpoints to the profile store in the background.
package persist

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/tileworld/internal/model"
	"github.com/mcoot/tileworld/internal/storage"
)

// Config controls the checkpoint writer
type Config struct {
	QueueSize    int
	WriteTimeout time.Duration
}

// DefaultConfig returns default persistence configuration
func DefaultConfig() Config {
	return Config{
		QueueSize:    256,
		WriteTimeout: 5 * time.Second,
	}
}

type jobKind int

const (
	jobPosition jobKind = iota
	jobAppearance
)

func (k jobKind) String() string {
	if k == jobAppearance {
		return "appearance"
	}
	return "position"
}

type job struct {
	kind       jobKind
	profileID  model.ProfileID
	position   model.Position
	appearance model.Appearance
}

// Syncer is a best-effort checkpoint writer. Enqueueing never blocks;
// a write that fails is logged and dropped.
type Syncer struct {
	store   storage.ProfileStore
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.RWMutex
	started bool
	closed  bool
	queue   chan job
	done    chan struct{}
}

// New creates a Syncer. Call Start to begin writing.
func New(store storage.ProfileStore, cfg Config, logger *slog.Logger) *Syncer {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultConfig().WriteTimeout
	}
	return &Syncer{
		store:   store,
		timeout: cfg.WriteTimeout,
		logger:  logger.With(slog.String("component", "persist")),
		queue:   make(chan job, cfg.QueueSize),
		done:    make(chan struct{}),
	}
}

// Start launches the worker goroutine
func (s *Syncer) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	go s.run()
}

// SavePosition queues a last-known-position write
func (s *Syncer) SavePosition(id model.ProfileID, pos model.Position) {
	s.enqueue(job{kind: jobPosition, profileID: id, position: pos})
}

// SaveAppearance queues an appearance write
func (s *Syncer) SaveAppearance(id model.ProfileID, appearance model.Appearance) {
	s.enqueue(job{kind: jobAppearance, profileID: id, appearance: appearance})
}

func (s *Syncer) enqueue(j job) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.logger.Warn("checkpoint dropped - syncer closed",
			slog.String("profile_id", string(j.profileID)),
			slog.String("kind", j.kind.String()))
		return
	}
	select {
	case s.queue <- j:
	default:
		s.logger.Warn("checkpoint dropped - queue full",
			slog.String("profile_id", string(j.profileID)),
			slog.String("kind", j.kind.String()))
	}
}

// Close stops accepting jobs and waits for queued writes to finish
func (s *Syncer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return
	}
	s.closed = true
	close(s.queue)
	if !s.started {
		s.started = true
		go s.run()
	}
	s.mu.Unlock()
	<-s.done
}

func (s *Syncer) run() {
	defer close(s.done)
	for j := range s.queue {
		s.write(j)
	}
	s.logger.Info("persist worker stopped")
}

func (s *Syncer) write(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var err error
	switch j.kind {
	case jobPosition:
		err = s.store.UpdatePosition(ctx, j.profileID, j.position)
	case jobAppearance:
		err = s.store.UpdateAppearance(ctx, j.profileID, j.appearance)
	}
	if err != nil {
		s.logger.Warn("checkpoint write failed",
			slog.String("profile_id", string(j.profileID)),
			slog.String("kind", j.kind.String()),
			slog.String("error", err.Error()))
		return
	}
	s.logger.Debug("checkpoint written",
		slog.String("profile_id", string(j.profileID)),
		slog.String("kind", j.kind.String()))
}
