// Package status keeps the messages shown in the status bar. Several
// operations can report at once; entries are keyed so a later report replaces
// an earlier one, and finished messages fade after a display duration.
// A Board is not safe for concurrent use.
package status

import (
	"sort"
	"strings"
	"time"
)

// Kind classifies a status entry
type Kind int

// Kinds in display priority order
const (
	KindProgress Kind = iota
	KindError
	KindSuccess
	KindInfo
)

// KindReady is reported when the board is empty
const KindReady = KindSuccess

// ReadyMessage is displayed when the board is empty
const ReadyMessage = "Ready"

// DefaultDisplayDuration is how long finished messages stay visible
const DefaultDisplayDuration = 3 * time.Second

const separator = " | "

func (k Kind) String() string {
	switch k {
	case KindProgress:
		return "progress"
	case KindError:
		return "error"
	case KindSuccess:
		return "success"
	case KindInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Entry is one message on the board
type Entry struct {
	ID        string
	Message   string
	Kind      Kind
	UpdatedAt time.Time
}

// Board is an ordered set of status entries
type Board struct {
	entries  []Entry
	duration time.Duration
	now      func() time.Time
}

// Option configures a Board
type Option func(*Board)

// WithDisplayDuration sets how long non-progress entries are kept
func WithDisplayDuration(d time.Duration) Option {
	return func(b *Board) {
		b.duration = d
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(b *Board) {
		b.now = now
	}
}

// NewBoard creates an empty board
func NewBoard(opts ...Option) *Board {
	b := &Board{
		duration: DefaultDisplayDuration,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Add inserts an entry or replaces the message and kind of the entry with the same id
func (b *Board) Add(id, message string, kind Kind) {
	now := b.now()
	for i := range b.entries {
		if b.entries[i].ID == id {
			b.entries[i].Message = message
			b.entries[i].Kind = kind
			b.entries[i].UpdatedAt = now
			return
		}
	}
	b.entries = append(b.entries, Entry{ID: id, Message: message, Kind: kind, UpdatedAt: now})
}

// Remove deletes the entry with the given id
func (b *Board) Remove(id string) {
	b.retain(func(e Entry) bool { return e.ID != id })
}

// ClearCompleted drops every entry that is not in progress
func (b *Board) ClearCompleted() {
	b.retain(func(e Entry) bool { return e.Kind == KindProgress })
}

// ClearExpired drops finished entries older than the display duration.
// Progress entries never expire.
func (b *Board) ClearExpired() {
	now := b.now()
	b.retain(func(e Entry) bool {
		return e.Kind == KindProgress || now.Sub(e.UpdatedAt) < b.duration
	})
}

func (b *Board) retain(keep func(Entry) bool) {
	kept := b.entries[:0]
	for _, e := range b.entries {
		if keep(e) {
			kept = append(kept, e)
		}
	}
	b.entries = kept
}

// Display joins all messages by priority, keeping insertion order within a
// kind. An empty board shows "Ready".
func (b *Board) Display() string {
	if len(b.entries) == 0 {
		return ReadyMessage
	}

	sorted := b.Entries()
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Kind < sorted[j].Kind
	})

	messages := make([]string, 0, len(sorted))
	for _, e := range sorted {
		messages = append(messages, e.Message)
	}
	return strings.Join(messages, separator)
}

// DisplayKind returns the highest priority kind present, or KindReady
func (b *Board) DisplayKind() Kind {
	if len(b.entries) == 0 {
		return KindReady
	}
	best := b.entries[0].Kind
	for _, e := range b.entries[1:] {
		if e.Kind < best {
			best = e.Kind
		}
	}
	return best
}

// IsEmpty reports whether the board has no entries
func (b *Board) IsEmpty() bool { return len(b.entries) == 0 }

// HasError reports whether any entry is an error
func (b *Board) HasError() bool { return b.has(KindError) }

// HasProgress reports whether any entry is in progress
func (b *Board) HasProgress() bool { return b.has(KindProgress) }

func (b *Board) has(kind Kind) bool {
	for _, e := range b.entries {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// Entries returns a copy of the entries in insertion order
func (b *Board) Entries() []Entry {
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}
