package tracker

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notifier: 一時的な通知（ブラウザ版のトースト相当）
type Notifier interface {
	Notify(level Level, msg string)
}

type NotifierFunc func(level Level, msg string)

func (f NotifierFunc) Notify(level Level, msg string) { f(level, msg) }

// ToastNotifier: 端末にアイコン付きで1行出す
type ToastNotifier struct {
	mu     sync.Mutex
	w      io.Writer
	logger *zap.Logger
}

func NewToastNotifier(w io.Writer, logger *zap.Logger) *ToastNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ToastNotifier{w: w, logger: logger}
}

func (n *ToastNotifier) Notify(level Level, msg string) {
	icon := "🔔"
	switch level {
	case LevelSuccess:
		icon = "✅"
	case LevelError:
		icon = "❌"
	}

	n.mu.Lock()
	fmt.Fprintf(n.w, "%s %s\n", icon, msg)
	n.mu.Unlock()

	if level == LevelError {
		n.logger.Warn("notification", zap.String("level", string(level)), zap.String("message", msg))
		return
	}
	n.logger.Debug("notification", zap.String("level", string(level)), zap.String("message", msg))
}
