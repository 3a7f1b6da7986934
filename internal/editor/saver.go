package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/inkpad/inkpad/pkg/metrics"
)

// Status is the save pipeline's user-visible state.
type Status string

const (
	StatusIdle   Status = "idle"
	StatusSaving Status = "saving"
	StatusSaved  Status = "saved"
	StatusError  Status = "error"
)

const (
	defaultSaveDelay   = 1000 * time.Millisecond
	defaultSavedWindow = 2000 * time.Millisecond
)

// SaveFunc persists serialized content to the backing store.
type SaveFunc func(ctx context.Context, content string) error

// StatusFunc observes status transitions; err is non-nil only for
// StatusError. It runs under the saver's lock and must not call back into
// the Saver.
type StatusFunc func(status Status, err error)

// Saver debounces content saves: every change cancels the pending timer and
// arms a new one, so rapid edits collapse into a single persistence call
// carrying the final content. Each armed save carries a generation number;
// a resolving save mutates status only while its generation is still the
// latest, so a stale completion can never overwrite the state of a newer
// in-flight save.
type Saver struct {
	mu     sync.Mutex
	save   SaveFunc
	notify StatusFunc

	delay       time.Duration
	savedWindow time.Duration

	timer  *time.Timer
	gen    uint64
	status Status
	closed bool
}

// NewSaver builds a saver with the given persistence call and status
// observer. Non-positive durations fall back to the defaults (1s debounce,
// 2s saved-status display window).
func NewSaver(save SaveFunc, notify StatusFunc, delay, savedWindow time.Duration) *Saver {
	if delay <= 0 {
		delay = defaultSaveDelay
	}
	if savedWindow <= 0 {
		savedWindow = defaultSavedWindow
	}
	return &Saver{
		save:        save,
		notify:      notify,
		delay:       delay,
		savedWindow: savedWindow,
		status:      StatusIdle,
	}
}

// Status returns the current save status.
func (s *Saver) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// OnChange is the engine's onChange consumer: it re-arms the debounce timer
// with the new content and moves status to saving immediately, even while an
// older save's network call is still pending.
func (s *Saver) OnChange(content string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.gen++
	gen := s.gen
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() { s.flush(content, gen) })
	s.setStatus(StatusSaving, nil)
	s.mu.Unlock()
}

// Close cancels any outstanding timer so a save cannot fire after the
// consuming view is gone.
func (s *Saver) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// flush validates and persists content for one armed generation.
func (s *Saver) flush(content string, gen uint64) {
	if content == "" {
		s.resolve(gen, StatusError, errors.New("content is empty"), "invalid")
		return
	}
	if _, err := ParseBlocks(content); err != nil {
		s.resolve(gen, StatusError, fmt.Errorf("invalid content format: %w", err), "invalid")
		return
	}
	if err := s.save(context.Background(), content); err != nil {
		s.resolve(gen, StatusError, fmt.Errorf("save failed: %w", err), "error")
		return
	}
	s.resolve(gen, StatusSaved, nil, "saved")

	// auto-revert to idle after the display window, unless a newer save
	// started meanwhile
	time.AfterFunc(s.savedWindow, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || gen != s.gen || s.status != StatusSaved {
			return
		}
		s.setStatus(StatusIdle, nil)
	})
}

// resolve applies a terminal transition for gen if it is still the latest.
func (s *Saver) resolve(gen uint64, st Status, err error, outcome string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	metrics.DocumentSaves.WithLabelValues(outcome).Inc()
	if s.closed || gen != s.gen {
		return
	}
	s.setStatus(st, err)
}

// setStatus must be called with s.mu held.
func (s *Saver) setStatus(st Status, err error) {
	s.status = st
	if s.notify != nil {
		s.notify(st, err)
	}
}
