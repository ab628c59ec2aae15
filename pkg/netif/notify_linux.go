//go:build linux

package netif

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/vishvananda/netlink"
)

var errSubscriptionClosed = errors.New("netlink subscription closed")

type linuxNotifier struct {
	logger logr.Logger
}

func newNotifier(cfg Config) Notifier {
	return &linuxNotifier{logger: cfg.Logger}
}

// Subscribe listens for address and link updates over netlink
func (n *linuxNotifier) Subscribe(ctx context.Context, callback func()) error {
	addrCh := make(chan netlink.AddrUpdate, 16)
	linkCh := make(chan netlink.LinkUpdate, 16)
	done := make(chan struct{})

	var addrSubscribed, linkSubscribed bool
	defer func() {
		close(done)
		// netlink goroutines may still be sending, keep them unblocked until they close
		if addrSubscribed {
			go func() {
				for range addrCh {
				}
			}()
		}
		if linkSubscribed {
			go func() {
				for range linkCh {
				}
			}()
		}
	}()

	onError := func(err error) {
		n.logger.Error(err, "Netlink subscription error")
	}

	if err := netlink.AddrSubscribeWithOptions(addrCh, done, netlink.AddrSubscribeOptions{
		ErrorCallback: onError,
	}); err != nil {
		return fmt.Errorf("failed to subscribe to address updates: %w", err)
	}
	addrSubscribed = true

	if err := netlink.LinkSubscribeWithOptions(linkCh, done, netlink.LinkSubscribeOptions{
		ErrorCallback: onError,
	}); err != nil {
		return fmt.Errorf("failed to subscribe to link updates: %w", err)
	}
	linkSubscribed = true

	for {
		select {
		case <-ctx.Done():
			return nil

		case update, ok := <-addrCh:
			if !ok {
				return errSubscriptionClosed
			}
			n.logger.V(1).Info("Address change",
				"ifindex", update.LinkIndex,
				"address", update.LinkAddress.String(),
				"new", update.NewAddr)
			callback()

		case update, ok := <-linkCh:
			if !ok {
				return errSubscriptionClosed
			}
			n.logger.V(1).Info("Link change",
				"interface", update.Link.Attrs().Name,
				"operstate", update.Link.Attrs().OperState.String())
			callback()
		}
	}
}
