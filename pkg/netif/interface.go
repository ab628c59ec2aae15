package netif

import (
	"context"
	"net"

	"github.com/go-logr/logr"
)

// Type is the link type of a network interface
type Type int

const (
	TypeUnknown Type = iota
	TypeLoopback
	TypeEthernet
	TypeWireless
	TypeTunnel
	TypeOther
)

func (t Type) String() string {
	switch t {
	case TypeLoopback:
		return "loopback"
	case TypeEthernet:
		return "ethernet"
	case TypeWireless:
		return "wireless"
	case TypeTunnel:
		return "tunnel"
	case TypeOther:
		return "other"
	default:
		return "unknown"
	}
}

// State is the operational state of a network interface
type State int

const (
	StateUnknown State = iota
	StateUp
	StateDown
	StateOther
)

func (s State) String() string {
	switch s {
	case StateUp:
		return "up"
	case StateDown:
		return "down"
	case StateOther:
		return "other"
	default:
		return "unknown"
	}
}

// Interface is a read-only view of a host network interface
type Interface struct {
	Name  string
	Index int
	Type  Type
	State State

	// Addrs holds the unicast addresses in the order the OS reports them
	Addrs []net.IP
}

// IsLoopback reports whether the interface is a loopback device
func (i Interface) IsLoopback() bool {
	return i.Type == TypeLoopback
}

// IsUp reports whether the interface is operationally up
func (i Interface) IsUp() bool {
	return i.State == StateUp
}

// Lister enumerates host network interfaces
type Lister interface {
	List() ([]Interface, error)
}

// Notifier delivers OS network-change notifications.
// Subscribe blocks until ctx is cancelled or the subscription fails,
// calling callback once per notification.
type Notifier interface {
	Subscribe(ctx context.Context, callback func()) error
}

// Config holds lister and notifier configuration
type Config struct {
	Logger logr.Logger
}

// NewLister creates the platform-specific interface lister
func NewLister(cfg Config) Lister {
	return newLister(cfg)
}

// NewNotifier creates the platform-specific change notifier
func NewNotifier(cfg Config) Notifier {
	return newNotifier(cfg)
}

// Static is a fixed interface list, used by tooling and tests
type Static []Interface

// List returns a copy of the static list
func (s Static) List() ([]Interface, error) {
	return append([]Interface(nil), s...), nil
}
