package selector

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/go-logr/logr"
	"github.com/ishanjain/dohwrap/pkg/allowlist"
	"github.com/ishanjain/dohwrap/pkg/config"
	"github.com/ishanjain/dohwrap/pkg/netif"
	"github.com/samber/lo"
)

// Config holds selector configuration
type Config struct {
	Lister netif.Lister

	// AllowListPath is the interface allow-list file
	AllowListPath string

	// MissingPolicy decides the selection when the allow-list cannot be read:
	// config.PolicyNone selects nothing, config.PolicyAll selects every eligible interface
	MissingPolicy string

	Logger logr.Logger
}

// ErrEmptyAllowList is reported when the allow-list exists but names no interface
var ErrEmptyAllowList = errors.New("interface allow-list is empty")

// Selector picks the interfaces whose DNS is managed
type Selector struct {
	lister        netif.Lister
	allowListPath string
	logger        logr.Logger

	mu            sync.RWMutex
	missingPolicy string
}

// New creates a new selector
func New(cfg Config) *Selector {
	if cfg.MissingPolicy == "" {
		cfg.MissingPolicy = config.PolicyNone
	}
	return &Selector{
		lister:        cfg.Lister,
		allowListPath: cfg.AllowListPath,
		missingPolicy: cfg.MissingPolicy,
		logger:        cfg.Logger,
	}
}

// SetMissingPolicy updates the missing allow-list policy
func (s *Selector) SetMissingPolicy(policy string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.missingPolicy = policy
}

func (s *Selector) policy() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.missingPolicy
}

// Eligible drops loopback, unknown-type and non-up interfaces, keeping order
func Eligible(ifaces []netif.Interface) []netif.Interface {
	return lo.Filter(ifaces, func(iface netif.Interface, _ int) bool {
		return !iface.IsLoopback() && iface.Type != netif.TypeUnknown && iface.IsUp()
	})
}

// Restrict keeps the interfaces named in allowed, in enumeration order
func Restrict(ifaces []netif.Interface, allowed []string) []netif.Interface {
	return lo.Filter(ifaces, func(iface netif.Interface, _ int) bool {
		return lo.Contains(allowed, iface.Name)
	})
}

// Select enumerates the host interfaces and returns the managed ones
func (s *Selector) Select() ([]netif.Interface, error) {
	all, err := s.lister.List()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate interfaces: %w", err)
	}

	eligible := Eligible(all)
	for _, iface := range all {
		s.logger.V(1).Info("Interface",
			"name", iface.Name,
			"type", iface.Type.String(),
			"state", iface.State.String(),
			"eligible", lo.ContainsBy(eligible, func(e netif.Interface) bool { return e.Name == iface.Name }))
	}

	allowed, err := allowlist.Load(s.allowListPath)
	if err == nil && len(allowed) == 0 {
		err = ErrEmptyAllowList
	}
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			s.logger.Error(err, "Interface allow-list not found, run setup to create it", "path", s.allowListPath)
		case errors.Is(err, ErrEmptyAllowList):
			s.logger.Error(err, "Interface allow-list names no interface, run setup to fill it", "path", s.allowListPath)
		default:
			s.logger.Error(err, "Failed to read interface allow-list", "path", s.allowListPath)
		}

		if s.policy() == config.PolicyAll {
			s.logger.Info("Managing every eligible interface", "count", len(eligible))
			return eligible, nil
		}
		return []netif.Interface{}, nil
	}

	return Restrict(eligible, allowed), nil
}
