package services

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRecognitionStopped is returned once a recognition session has exhausted
// its restarts and is waiting for a manual retry.
var ErrRecognitionStopped = errors.New("speech recognition stopped, retry to resume")

const (
	DefaultRestartDelay = 1500 * time.Millisecond
	DefaultMaxRestarts  = 3
)

// Recognizer is one speech recognition session. Run blocks until the session
// ends, either on its own or because ctx was cancelled.
type Recognizer interface {
	Run(ctx context.Context) error
}

// RecognitionState describes what the supervisor is currently doing.
type RecognitionState string

const (
	RecognitionIdle       RecognitionState = "idle"
	RecognitionListening  RecognitionState = "listening"
	RecognitionRestarting RecognitionState = "restarting"
	RecognitionFailed     RecognitionState = "failed"
	RecognitionStopped    RecognitionState = "stopped"
)

// RecognitionSupervisor keeps a Recognizer running. Each time a session ends
// it waits a fixed delay and starts another, up to maxRestarts consecutive
// restarts. MarkHealthy resets the count. After the limit the supervisor parks
// in the failed state until Retry is called.
type RecognitionSupervisor struct {
	rec         Recognizer
	delay       time.Duration
	maxRestarts int
	sleep       func(ctx context.Context, d time.Duration) error
	// giveUpAfter ends Run when a failed supervisor sees no Retry in time.
	// Zero waits forever.
	giveUpAfter time.Duration

	mu       sync.Mutex
	state    RecognitionState
	restarts int
	lastErr  error
	retry    chan struct{}
}

func NewRecognitionSupervisor(rec Recognizer, delay time.Duration, maxRestarts int) *RecognitionSupervisor {
	if delay <= 0 {
		delay = DefaultRestartDelay
	}
	if maxRestarts <= 0 {
		maxRestarts = DefaultMaxRestarts
	}
	return &RecognitionSupervisor{
		rec:         rec,
		delay:       delay,
		maxRestarts: maxRestarts,
		sleep:       sleepContext,
		state:       RecognitionIdle,
		retry:       make(chan struct{}, 1),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run supervises the recognizer until ctx is cancelled.
func (s *RecognitionSupervisor) Run(ctx context.Context) {
	for {
		s.setState(RecognitionListening, nil)
		err := s.rec.Run(ctx)
		if ctx.Err() != nil {
			s.setState(RecognitionStopped, nil)
			return
		}

		s.mu.Lock()
		s.restarts++
		exhausted := s.restarts > s.maxRestarts
		s.mu.Unlock()

		if exhausted {
			if err == nil {
				err = ErrRecognitionStopped
			}
			s.setState(RecognitionFailed, err)
			if !s.awaitRetry(ctx) {
				return
			}
			continue
		}

		s.setState(RecognitionRestarting, err)
		if s.sleep(ctx, s.delay) != nil {
			s.setState(RecognitionStopped, nil)
			return
		}
	}
}

// awaitRetry parks a failed supervisor until Retry is called. It returns
// false when ctx ends or giveUpAfter passes first.
func (s *RecognitionSupervisor) awaitRetry(ctx context.Context) bool {
	var giveUp <-chan time.Time
	if s.giveUpAfter > 0 {
		timer := time.NewTimer(s.giveUpAfter)
		defer timer.Stop()
		giveUp = timer.C
	}
	select {
	case <-ctx.Done():
		s.setState(RecognitionStopped, nil)
		return false
	case <-giveUp:
		s.setState(RecognitionStopped, ErrRecognitionStopped)
		return false
	case <-s.retry:
		return true
	}
}

// MarkHealthy records that the current session produced results.
func (s *RecognitionSupervisor) MarkHealthy() {
	s.mu.Lock()
	s.restarts = 0
	s.mu.Unlock()
}

// Retry resumes a failed supervisor with a fresh restart budget.
func (s *RecognitionSupervisor) Retry() {
	s.mu.Lock()
	s.restarts = 0
	s.mu.Unlock()
	select {
	case s.retry <- struct{}{}:
	default:
	}
}

func (s *RecognitionSupervisor) State() RecognitionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error that ended the most recent session, if any.
func (s *RecognitionSupervisor) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *RecognitionSupervisor) setState(state RecognitionState, err error) {
	s.mu.Lock()
	s.state = state
	s.lastErr = err
	s.mu.Unlock()
}
