package session

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Typing keeps a single "who is typing" slot for the active room. A start
// signal fills the slot and arms an expiry; a stop from the same sender or
// the expiry clears it.
type Typing struct {
	clock  clock.Clock
	expiry time.Duration
	// expire is invoked from the timer goroutine with the generation the
	// timer was armed for.
	expire func(gen uint64)

	sender string
	gen    uint64
	timer  *clock.Timer
}

func NewTyping(clk clock.Clock, expiry time.Duration, expire func(gen uint64)) *Typing {
	return &Typing{clock: clk, expiry: expiry, expire: expire}
}

// Start records senderID as typing and reports whether the slot changed.
func (t *Typing) Start(senderID string) bool {
	changed := t.sender != senderID
	t.sender = senderID
	t.arm()
	return changed
}

// Stop clears the slot if senderID holds it.
func (t *Typing) Stop(senderID string) bool {
	if t.sender == "" || t.sender != senderID {
		return false
	}
	return t.Clear()
}

// Expire clears the slot if gen is still the latest arming.
func (t *Typing) Expire(gen uint64) bool {
	if gen != t.gen || t.sender == "" {
		return false
	}
	t.sender = ""
	t.timer = nil
	return true
}

// Clear empties the slot and disarms the timer.
func (t *Typing) Clear() bool {
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.sender == "" {
		return false
	}
	t.sender = ""
	return true
}

func (t *Typing) Current() (string, bool) {
	return t.sender, t.sender != ""
}

func (t *Typing) arm() {
	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.timer = t.clock.AfterFunc(t.expiry, func() { t.expire(gen) })
}
