package guesswhat

import (
	"sync"

	"go.uber.org/zap"
)

// Warner logs each distinct warning message once. The seen set lives as long
// as the Warner, so callers decide the scope by where they create one.
type Warner struct {
	log  *zap.SugaredLogger
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewWarner returns a Warner writing to log. A nil log discards output.
func NewWarner(log *zap.SugaredLogger) *Warner {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Warner{log: log, seen: map[string]struct{}{}}
}

// Warnw logs msg at warn level unless it was logged before. It reports
// whether the message was written.
func (w *Warner) Warnw(msg string, keysAndValues ...any) bool {
	w.mu.Lock()
	if _, ok := w.seen[msg]; ok {
		w.mu.Unlock()
		return false
	}
	w.seen[msg] = struct{}{}
	w.mu.Unlock()

	w.log.Warnw(msg, keysAndValues...)
	return true
}

// Reset forgets every message seen so far.
func (w *Warner) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	clear(w.seen)
}
