//go:build windows

package netif

import (
	"context"
	"fmt"
	"sync"
	"unsafe"

	"github.com/go-logr/logr"
	"golang.org/x/sys/windows"
)

// The OS invokes a single process-wide callback, dispatched here to the active subscriptions.
var (
	subscribersMu sync.Mutex
	subscribers    = map[uintptr]func(){}
	nextSubscriber uintptr

	addressChangeCallback = windows.NewCallback(func(callerContext uintptr, row *windows.MibUnicastIpAddressRow, notificationType uint32) uintptr {
		subscribersMu.Lock()
		fn := subscribers[callerContext]
		subscribersMu.Unlock()
		if fn != nil {
			fn()
		}
		return 0
	})
)

type windowsNotifier struct {
	logger logr.Logger
}

func newNotifier(cfg Config) Notifier {
	return &windowsNotifier{logger: cfg.Logger}
}

// Subscribe registers for unicast address change notifications
func (n *windowsNotifier) Subscribe(ctx context.Context, callback func()) error {
	subscribersMu.Lock()
	nextSubscriber++
	id := nextSubscriber
	subscribers[id] = func() {
		n.logger.V(1).Info("Address change notification")
		callback()
	}
	subscribersMu.Unlock()

	defer func() {
		subscribersMu.Lock()
		delete(subscribers, id)
		subscribersMu.Unlock()
	}()

	var handle windows.Handle
	// callerContext carries the subscriber id, not a Go pointer
	if err := windows.NotifyUnicastIpAddressChange(windows.AF_UNSPEC, addressChangeCallback,
		unsafePointer(id), false, &handle); err != nil {
		return fmt.Errorf("failed to register address change notification: %w", err)
	}

	<-ctx.Done()

	if err := windows.CancelMibChangeNotify2(handle); err != nil {
		n.logger.Error(err, "Failed to cancel address change notification")
	}
	return nil
}

// unsafePointer converts an opaque id into the callerContext argument.
// The OS hands the value back untouched and it is never dereferenced.
func unsafePointer(id uintptr) unsafe.Pointer {
	return *(*unsafe.Pointer)(unsafe.Pointer(&id))
}
