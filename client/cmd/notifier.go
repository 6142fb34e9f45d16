package cmd

import (
	"fmt"
	"io"
	"sync"

	log "github.com/sirupsen/logrus"
)

// consoleNotifier prints notifications, the desktop UI provides its own
type consoleNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

func newConsoleNotifier(out io.Writer) *consoleNotifier {
	return &consoleNotifier{out: out}
}

func (n *consoleNotifier) Notify(title, message string) {
	log.Infof("notify %s: %s", title, message)

	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = fmt.Fprintf(n.out, "%s: %s\n", title, message)
}
