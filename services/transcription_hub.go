package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var errSessionIdle = errors.New("recognition session ended after inactivity")

// DefaultFailedTTL bounds how long an abandoned failed session is kept.
const DefaultFailedTTL = 10 * time.Minute

// HubOptions configures a TranscriptionHub. Zero values fall back to defaults.
type HubOptions struct {
	Pause        time.Duration
	IdleTimeout  time.Duration
	RestartDelay time.Duration
	MaxRestarts  int
	// FailedTTL is how long a session may sit in the failed state without a
	// retry before it is dropped.
	FailedTTL time.Duration
	// OnLines receives every completed line, in order, from the meeting's
	// session goroutine. It is the single writer for a meeting's transcript.
	OnLines func(meetingID string, lines []TranscriptLine)
}

// TranscriptionHub runs one live transcription session per meeting. Each
// session owns a TranscriptBuffer fed from a fragment channel; its recognizer
// ends after IdleTimeout without speech and is restarted by a
// RecognitionSupervisor.
type TranscriptionHub struct {
	opts HubOptions

	mu       sync.Mutex
	sessions map[string]*transcriptionSession
	closed   bool
}

type fragment struct {
	speaker string
	text    string
	at      time.Time
	reply   chan []TranscriptLine
}

type transcriptionSession struct {
	meetingID string
	buf       *TranscriptBuffer
	sup       *RecognitionSupervisor
	fragments chan fragment
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewTranscriptionHub(opts HubOptions) *TranscriptionHub {
	if opts.Pause <= 0 {
		opts.Pause = DefaultPause
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = time.Minute
	}
	if opts.FailedTTL <= 0 {
		opts.FailedTTL = DefaultFailedTTL
	}
	if opts.OnLines == nil {
		opts.OnLines = func(string, []TranscriptLine) {}
	}
	return &TranscriptionHub{opts: opts, sessions: map[string]*transcriptionSession{}}
}

// Push feeds a recognized fragment into the meeting's session, starting the
// session if needed, and returns the lines it completed.
func (h *TranscriptionHub) Push(ctx context.Context, meetingID, speaker, text string) ([]TranscriptLine, error) {
	s, err := h.session(meetingID)
	if err != nil {
		return nil, err
	}
	if s.sup.State() == RecognitionFailed {
		return nil, ErrRecognitionStopped
	}

	f := fragment{speaker: speaker, text: text, at: time.Now(), reply: make(chan []TranscriptLine, 1)}
	select {
	case s.fragments <- f:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrRecognitionStopped
	}
	select {
	case lines := <-f.reply:
		return lines, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// State returns the recognition state of a meeting's session.
func (h *TranscriptionHub) State(meetingID string) RecognitionState {
	h.mu.Lock()
	s, ok := h.sessions[meetingID]
	h.mu.Unlock()
	if !ok {
		return RecognitionIdle
	}
	return s.sup.State()
}

// Retry resumes a meeting's failed session, starting one if none exists.
func (h *TranscriptionHub) Retry(meetingID string) error {
	s, err := h.session(meetingID)
	if err != nil {
		return err
	}
	s.sup.Retry()
	return nil
}

// Stop ends a meeting's session and flushes its pending text.
func (h *TranscriptionHub) Stop(meetingID string) []TranscriptLine {
	h.mu.Lock()
	s, ok := h.sessions[meetingID]
	delete(h.sessions, meetingID)
	h.mu.Unlock()
	if !ok {
		return nil
	}
	return h.shutdown(s)
}

// Close stops every session. Pushes after Close fail.
func (h *TranscriptionHub) Close() {
	h.mu.Lock()
	h.closed = true
	sessions := h.sessions
	h.sessions = map[string]*transcriptionSession{}
	h.mu.Unlock()

	for _, s := range sessions {
		h.shutdown(s)
	}
}

func (h *TranscriptionHub) shutdown(s *transcriptionSession) []TranscriptLine {
	s.cancel()
	<-s.done
	lines := s.buf.Flush()
	if len(lines) > 0 {
		h.opts.OnLines(s.meetingID, lines)
	}
	return lines
}

func (h *TranscriptionHub) session(meetingID string) (*transcriptionSession, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrRecognitionStopped
	}
	if s, ok := h.sessions[meetingID]; ok {
		return s, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &transcriptionSession{
		meetingID: meetingID,
		buf:       NewTranscriptBuffer(h.opts.Pause),
		fragments: make(chan fragment),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	rec := &fragmentRecognizer{session: s, hub: h}
	s.sup = NewRecognitionSupervisor(rec, h.opts.RestartDelay, h.opts.MaxRestarts)
	s.sup.giveUpAfter = h.opts.FailedTTL
	h.sessions[meetingID] = s

	go func() {
		defer close(s.done)
		s.sup.Run(ctx)
		if ctx.Err() == nil {
			h.expire(s)
		}
	}()
	return s, nil
}

// expire drops a session whose supervisor gave up waiting for a retry. A
// later Push or Retry for the meeting starts a fresh session.
func (h *TranscriptionHub) expire(s *transcriptionSession) {
	h.mu.Lock()
	if h.sessions[s.meetingID] == s {
		delete(h.sessions, s.meetingID)
	}
	h.mu.Unlock()
	s.cancel()

	if lines := s.buf.Flush(); len(lines) > 0 {
		h.opts.OnLines(s.meetingID, lines)
	}
	log.Info().Str("meeting", s.meetingID).Msg("transcription_hub: failed session expired without retry")
}

// fragmentRecognizer is one recognition session over the fragment channel.
type fragmentRecognizer struct {
	session *transcriptionSession
	hub     *TranscriptionHub
}

func (r *fragmentRecognizer) Run(ctx context.Context) error {
	s := r.session
	idle := time.NewTimer(r.hub.opts.IdleTimeout)
	defer idle.Stop()
	interval := r.hub.opts.Pause / 3
	if interval < time.Millisecond {
		interval = time.Millisecond
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f := <-s.fragments:
			lines := s.buf.Push(f.speaker, f.text, f.at)
			s.sup.MarkHealthy()
			if len(lines) > 0 {
				r.hub.opts.OnLines(s.meetingID, lines)
			}
			f.reply <- lines
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(r.hub.opts.IdleTimeout)
		case now := <-tick.C:
			if lines := s.buf.FlushIdle(now); len(lines) > 0 {
				r.hub.opts.OnLines(s.meetingID, lines)
			}
		case <-idle.C:
			log.Debug().Str("meeting", s.meetingID).Msg("transcription_hub: session idle, restarting")
			return errSessionIdle
		}
	}
}
