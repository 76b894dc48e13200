package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// Level classifies a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notifier reports the outcome of console actions to the user.
type Notifier interface {
	Notify(level Level, message string)
}

// WriterNotifier prints one line per notification and mirrors it to a logger.
type WriterNotifier struct {
	mu     sync.Mutex
	out    io.Writer
	logger logrus.FieldLogger
}

// NewWriterNotifier returns a notifier writing to out. logger may be nil.
func NewWriterNotifier(out io.Writer, logger logrus.FieldLogger) *WriterNotifier {
	return &WriterNotifier{out: out, logger: logger}
}

func (n *WriterNotifier) Notify(level Level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.out != nil {
		fmt.Fprintf(n.out, "%s %s\n", symbol(level), message)
	}
	if n.logger != nil {
		n.logger.WithField("level", string(level)).Debug(message)
	}
}

func symbol(level Level) string {
	switch level {
	case LevelSuccess:
		return "✔"
	case LevelError:
		return "✗"
	default:
		return "ℹ"
	}
}
