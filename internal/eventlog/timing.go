package eventlog

import "github.com/agbruneau/learning-events/internal/config"

// StartTiming records the current instant under name, replacing any earlier
// mark with the same name. When too many marks are open the oldest is evicted.
func (l *Logger) StartTiming(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.marks[name]; !exists && len(l.marks) >= config.LoggerTimingMarkLimit {
		l.evictOldestMarkLocked()
	}
	l.marks[name] = l.now()
}

// EndTiming consumes the mark and returns the elapsed milliseconds. The bool
// is false if the mark was never started or was already consumed.
func (l *Logger) EndTiming(name string) (int64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.endTimingLocked(name)
}

func (l *Logger) endTimingLocked(name string) (int64, bool) {
	start, ok := l.marks[name]
	if !ok {
		return 0, false
	}
	delete(l.marks, name)

	elapsed := l.now().Sub(start).Milliseconds()
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed, true
}

func (l *Logger) evictOldestMarkLocked() {
	var oldest string
	first := true
	for name, at := range l.marks {
		if first || at.Before(l.marks[oldest]) {
			oldest = name
			first = false
		}
	}
	delete(l.marks, oldest)
}
