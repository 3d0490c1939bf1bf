// util/sync.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"log/slog"
	gomath "math"
	"runtime"
	"sync"
	"time"

	"github.com/skyroute/skyroute/log"

	"github.com/shirou/gopsutil/cpu"
)

///////////////////////////////////////////////////////////////////////////
// LoggingMutex

var heldMutexesMutex sync.Mutex
var heldMutexes map[*LoggingMutex]interface{} = make(map[*LoggingMutex]interface{})

// LoggingMutexTimeout is how long Lock waits before reporting a likely
// deadlock. It keeps waiting afterward.
var LoggingMutexTimeout = 10 * time.Second

// LoggingMutex is a sync.Mutex that records where it was acquired and
// logs long waits and long holds.
type LoggingMutex struct {
	sync.Mutex
	acq      time.Time
	acqStack []log.StackFrame
}

func (l *LoggingMutex) Lock(lg *log.Logger) {
	tryTime := time.Now()
	lg.Debug("attempting to acquire mutex", slog.Any("mutex", l))

	if !l.Mutex.TryLock() {
		// Lock with timeout.
		locked := make(chan struct{}, 1)

		go func() {
			l.Mutex.Lock()
			locked <- struct{}{}
		}()

		timeout := lockTimeout()
		select {
		case <-locked:

		case <-time.After(timeout):
			lg.Error("unable to acquire mutex", slog.Duration("timeout", timeout),
				slog.Any("mutex", l), slog.Int("held_mutexes", numHeldMutexes()))

			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			if usage, err := cpu.Percent(time.Second, false); err == nil && len(usage) > 0 {
				lg.Errorf("CPU: %d%% alloc: %dMB total alloc: %dMB sys mem: %dMB goroutines: %d",
					int(gomath.Round(usage[0])), m.Alloc/(1024*1024), m.TotalAlloc/(1024*1024), m.Sys/(1024*1024),
					runtime.NumGoroutine())
			}

			<-locked
		}
	}

	heldMutexesMutex.Lock()
	heldMutexes[l] = nil
	heldMutexesMutex.Unlock()

	l.acq = time.Now()
	l.acqStack = log.Callstack(l.acqStack)
	w := l.acq.Sub(tryTime)
	lg.Debug("acquired mutex", slog.Any("mutex", l), slog.Duration("wait", w))
	if w > time.Second {
		lg.Warn("long wait to acquire mutex", slog.Any("mutex", l), slog.Duration("wait", w))
	}
}

func (l *LoggingMutex) Unlock(lg *log.Logger) {
	heldMutexesMutex.Lock()
	// Holding this until we return keeps other mutexes from being released
	// while we log the held ones.
	defer heldMutexesMutex.Unlock()

	if _, ok := heldMutexes[l]; !ok {
		lg.Error("mutex not held", slog.Int("held_mutexes", len(heldMutexes)))
	}
	delete(heldMutexes, l)

	if d := time.Since(l.acq); d > time.Second {
		lg.Warn("mutex held for over 1 second", slog.Any("mutex", l), slog.Duration("held", d))
	}

	l.acq = time.Time{}
	l.acqStack = nil
	l.Mutex.Unlock()

	lg.Debug("released mutex", slog.Any("mutex", l))
}

func (l *LoggingMutex) LogValue() slog.Value {
	if l.acq.IsZero() {
		return slog.GroupValue(slog.Bool("held", false))
	}
	return slog.GroupValue(
		slog.Time("acq", l.acq),
		slog.Duration("held", time.Since(l.acq)),
		slog.Any("acq_stack", l.acqStack))
}

// lockTimeout allows for the race detector slowing everything down.
func lockTimeout() time.Duration {
	if log.RaceEnabled {
		return 4 * LoggingMutexTimeout
	}
	return LoggingMutexTimeout
}

func numHeldMutexes() int {
	heldMutexesMutex.Lock()
	defer heldMutexesMutex.Unlock()
	return len(heldMutexes)
}
