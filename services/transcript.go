package services

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultPause is how long a speaker may go quiet before their pending text is
// flushed as a transcript line.
const DefaultPause = 3 * time.Second

// TranscriptLine is one finished utterance.
type TranscriptLine struct {
	ID      string    `json:"id"`
	Speaker string    `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

type pendingUtterance struct {
	parts   []string
	started time.Time
	last    time.Time
}

// TranscriptBuffer accumulates recognized fragments per speaker until a
// sentence ends or the speaker pauses. It is safe for concurrent use.
type TranscriptBuffer struct {
	mu      sync.Mutex
	pause   time.Duration
	pending map[string]*pendingUtterance
	lines   []TranscriptLine
}

func NewTranscriptBuffer(pause time.Duration) *TranscriptBuffer {
	if pause <= 0 {
		pause = DefaultPause
	}
	return &TranscriptBuffer{pause: pause, pending: map[string]*pendingUtterance{}}
}

func endsSentence(s string) bool {
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?")
}

// Push adds a fragment spoken at the given time and returns any lines it
// completed. Pending text older than the pause is flushed before the new
// fragment is appended.
func (b *TranscriptBuffer) Push(speaker, text string, at time.Time) []TranscriptLine {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var flushed []TranscriptLine
	p, ok := b.pending[speaker]
	if ok && at.Sub(p.last) >= b.pause {
		flushed = append(flushed, b.flushLocked(speaker))
		ok = false
	}
	if !ok {
		p = &pendingUtterance{started: at}
		b.pending[speaker] = p
	}
	p.parts = append(p.parts, text)
	p.last = at

	if endsSentence(text) {
		flushed = append(flushed, b.flushLocked(speaker))
	}
	return flushed
}

// FlushIdle flushes every speaker who has been quiet for at least the pause.
func (b *TranscriptBuffer) FlushIdle(now time.Time) []TranscriptLine {
	b.mu.Lock()
	defer b.mu.Unlock()

	var flushed []TranscriptLine
	for _, speaker := range b.speakersLocked() {
		if now.Sub(b.pending[speaker].last) >= b.pause {
			flushed = append(flushed, b.flushLocked(speaker))
		}
	}
	return flushed
}

// Flush flushes all pending text regardless of timing.
func (b *TranscriptBuffer) Flush() []TranscriptLine {
	b.mu.Lock()
	defer b.mu.Unlock()

	var flushed []TranscriptLine
	for _, speaker := range b.speakersLocked() {
		flushed = append(flushed, b.flushLocked(speaker))
	}
	return flushed
}

// Lines returns every line flushed so far.
func (b *TranscriptBuffer) Lines() []TranscriptLine {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]TranscriptLine, len(b.lines))
	copy(out, b.lines)
	return out
}

// Pending reports whether any speaker has unflushed text.
func (b *TranscriptBuffer) Pending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending) > 0
}

func (b *TranscriptBuffer) speakersLocked() []string {
	speakers := make([]string, 0, len(b.pending))
	for s := range b.pending {
		speakers = append(speakers, s)
	}
	sort.Strings(speakers)
	return speakers
}

func (b *TranscriptBuffer) flushLocked(speaker string) TranscriptLine {
	p := b.pending[speaker]
	delete(b.pending, speaker)
	line := TranscriptLine{
		ID:      uuid.NewString(),
		Speaker: speaker,
		Text:    strings.Join(p.parts, " "),
		At:      p.started,
	}
	b.lines = append(b.lines, line)
	return line
}

// TranscriptText renders lines as "Speaker: text" rows for summarization.
func TranscriptText(lines []TranscriptLine) string {
	var sb strings.Builder
	for _, l := range lines {
		if l.Speaker != "" {
			sb.WriteString(l.Speaker)
			sb.WriteString(": ")
		}
		sb.WriteString(l.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}
