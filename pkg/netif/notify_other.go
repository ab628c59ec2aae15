//go:build !linux && !windows

package netif

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-logr/logr"
)

const pollInterval = 5 * time.Second

// pollingNotifier compares interface snapshots on a ticker.
// Used where no change-notification API is wired.
type pollingNotifier struct {
	lister Lister
	logger logr.Logger
}

func newNotifier(cfg Config) Notifier {
	return &pollingNotifier{
		lister: newLister(cfg),
		logger: cfg.Logger,
	}
}

func (n *pollingNotifier) Subscribe(ctx context.Context, callback func()) error {
	last, err := n.snapshot()
	if err != nil {
		return err
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			current, err := n.snapshot()
			if err != nil {
				n.logger.V(1).Info("Failed to snapshot interfaces", "error", err.Error())
				continue
			}
			if current != last {
				last = current
				callback()
			}
		}
	}
}

func (n *pollingNotifier) snapshot() (string, error) {
	ifaces, err := n.lister.List()
	if err != nil {
		return "", err
	}

	lines := make([]string, 0, len(ifaces))
	for _, iface := range ifaces {
		addrs := make([]string, 0, len(iface.Addrs))
		for _, ip := range iface.Addrs {
			addrs = append(addrs, ip.String())
		}
		lines = append(lines, fmt.Sprintf("%s|%s|%s", iface.Name, iface.State, strings.Join(addrs, ",")))
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n"), nil
}
