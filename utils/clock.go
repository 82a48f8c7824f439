package utils

import (
	"sort"
	"sync"
	"time"
)

// Clock should be injected into any component that requires access to time
type Clock interface {
	Now() time.Time
	Timer(d time.Duration) Timer
	Sleep(d time.Duration)
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer wraps time.Timer to allow mocking in tests
type Timer interface {
	Alert() <-chan time.Time
	Reset(d time.Duration) bool
	Stop() bool
}

// RealClock represents the typical clock implementation using the built-in time.Time
type RealClock struct{}

// Now returns the current system time
func (RealClock) Now() time.Time {
	return time.Now()
}

// Timer returns a timer that fires after the provided duration
func (RealClock) Timer(d time.Duration) Timer {
	return realTimer{time.NewTimer(d)}
}

// Sleep pauses the current goroutine for the provided duration
func (RealClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// AfterFunc invokes f in its own goroutine after the provided duration
func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return realTimer{time.AfterFunc(d, f)}
}

type realTimer struct {
	*time.Timer
}

func (r realTimer) Alert() <-chan time.Time {
	return r.C
}

// MockClock is a manually controlled clock for tests. Advancing time fires
// any timers whose deadline has been reached, in deadline order.
type MockClock struct {
	mu          sync.Mutex
	currentTime time.Time
	timers      []*mockTimer
}

// Now returns the currently set time
func (mc *MockClock) Now() time.Time {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.currentTime
}

// SetTime sets the clock and fires any timers that have come due
func (mc *MockClock) SetTime(t time.Time) {
	mc.mu.Lock()
	mc.currentTime = t

	due := make([]*mockTimer, 0)
	remaining := mc.timers[:0]
	for _, timer := range mc.timers {
		if !timer.fireTime.After(t) {
			due = append(due, timer)
		} else {
			remaining = append(remaining, timer)
		}
	}
	mc.timers = remaining
	mc.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].fireTime.Before(due[j].fireTime)
	})
	for _, timer := range due {
		timer.fire(t)
	}
}

// IncTime advances the clock by the provided duration
func (mc *MockClock) IncTime(d time.Duration) {
	mc.SetTime(mc.Now().Add(d))
}

// Timer returns a mock timer driven by SetTime
func (mc *MockClock) Timer(d time.Duration) Timer {
	return mc.newTimer(d, nil)
}

// Sleep is a no-op for the mock clock
func (mc *MockClock) Sleep(_ time.Duration) {}

// AfterFunc registers f to run when the mock clock passes the deadline
func (mc *MockClock) AfterFunc(d time.Duration, f func()) Timer {
	return mc.newTimer(d, f)
}

func (mc *MockClock) newTimer(d time.Duration, f func()) *mockTimer {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	timer := &mockTimer{
		clock:    mc,
		fireTime: mc.currentTime.Add(d),
		alert:    make(chan time.Time, 1),
		f:        f,
	}
	mc.timers = append(mc.timers, timer)
	return timer
}

type mockTimer struct {
	clock    *MockClock
	fireTime time.Time
	alert    chan time.Time
	f        func()
	stopped  bool
}

func (mt *mockTimer) fire(t time.Time) {
	if mt.stopped {
		return
	}
	if mt.f != nil {
		mt.f()
		return
	}
	select {
	case mt.alert <- t:
	default:
	}
}

func (mt *mockTimer) Alert() <-chan time.Time {
	return mt.alert
}

func (mt *mockTimer) Reset(d time.Duration) bool {
	mt.clock.mu.Lock()
	defer mt.clock.mu.Unlock()

	wasActive := !mt.stopped
	mt.stopped = false
	mt.fireTime = mt.clock.currentTime.Add(d)
	for _, timer := range mt.clock.timers {
		if timer == mt {
			return wasActive
		}
	}
	mt.clock.timers = append(mt.clock.timers, mt)
	return wasActive
}

func (mt *mockTimer) Stop() bool {
	mt.clock.mu.Lock()
	defer mt.clock.mu.Unlock()

	wasActive := !mt.stopped
	mt.stopped = true
	return wasActive
}
