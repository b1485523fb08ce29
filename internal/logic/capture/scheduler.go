package capture

import (
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler runs delayed and periodic callbacks on the goroutine that owns
// the booth state. Every scheduled callback can be cancelled; a cancelled
// callback never runs, even if its timer already fired.
type Scheduler interface {
	After(d time.Duration, fn func()) (cancel func())
	Every(d time.Duration, fn func()) (cancel func())
}

// LoopScheduler schedules with real timers and hands callbacks to post,
// which must queue them on the owning event loop.
type LoopScheduler struct {
	post func(func())
}

// NewLoopScheduler creates a scheduler delivering through post.
func NewLoopScheduler(post func(func())) *LoopScheduler {
	return &LoopScheduler{post: post}
}

func (s *LoopScheduler) After(d time.Duration, fn func()) func() {
	var cancelled atomic.Bool
	t := time.AfterFunc(d, func() {
		s.post(func() {
			if !cancelled.Load() {
				fn()
			}
		})
	})
	return func() {
		cancelled.Store(true)
		t.Stop()
	}
}

func (s *LoopScheduler) Every(d time.Duration, fn func()) func() {
	var cancelled atomic.Bool
	ticker := time.NewTicker(d)
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.post(func() {
					if !cancelled.Load() {
						fn()
					}
				})
			}
		}
	}()
	var once sync.Once
	return func() {
		cancelled.Store(true)
		once.Do(func() {
			ticker.Stop()
			close(stop)
		})
	}
}

// ManualScheduler is a virtual clock for tests and offline simulation.
// Callbacks run synchronously inside Advance, in due-time order.
type ManualScheduler struct {
	now   time.Duration
	seq   int
	tasks []*manualTask
}

type manualTask struct {
	due       time.Duration
	every     time.Duration
	seq       int
	fn        func()
	cancelled bool
}

// Now returns the virtual time elapsed since creation.
func (m *ManualScheduler) Now() time.Duration { return m.now }

// Pending returns the number of live scheduled callbacks.
func (m *ManualScheduler) Pending() int {
	n := 0
	for _, t := range m.tasks {
		if !t.cancelled {
			n++
		}
	}
	return n
}

func (m *ManualScheduler) add(d, every time.Duration, fn func()) func() {
	m.seq++
	t := &manualTask{due: m.now + d, every: every, seq: m.seq, fn: fn}
	m.tasks = append(m.tasks, t)
	return func() { t.cancelled = true }
}

func (m *ManualScheduler) After(d time.Duration, fn func()) func() {
	return m.add(d, 0, fn)
}

func (m *ManualScheduler) Every(d time.Duration, fn func()) func() {
	if d <= 0 {
		d = time.Nanosecond
	}
	return m.add(d, d, fn)
}

// Advance moves the clock forward by d, running every callback that becomes due.
func (m *ManualScheduler) Advance(d time.Duration) {
	end := m.now + d
	for {
		next := m.next(end)
		if next == nil {
			break
		}
		m.now = next.due
		if next.every > 0 {
			next.due += next.every
		} else {
			next.cancelled = true
		}
		next.fn()
	}
	m.now = end
	m.compact()
}

func (m *ManualScheduler) next(end time.Duration) *manualTask {
	var best *manualTask
	for _, t := range m.tasks {
		if t.cancelled || t.due > end {
			continue
		}
		if best == nil || t.due < best.due || (t.due == best.due && t.seq < best.seq) {
			best = t
		}
	}
	return best
}

func (m *ManualScheduler) compact() {
	live := m.tasks[:0]
	for _, t := range m.tasks {
		if !t.cancelled {
			live = append(live, t)
		}
	}
	m.tasks = live
}
