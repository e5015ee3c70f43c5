// Package permissions resolves which catalog operations are enabled for the
// current configuration and keeps that answer fresh as configuration changes.
package permissions

import (
	"log/slog"
	"sync"

	"github.com/wilhg/xmcp/pkg/catalog"
)

// Status is a debugging snapshot of the resolved permissions.
type Status struct {
	Profile           catalog.Profile `json:"profile" yaml:"profile"`
	Groups            []catalog.Group `json:"groups" yaml:"groups"`
	EnabledToolsCount int             `json:"enabled_tools_count" yaml:"enabled_tools_count"`
	EnabledTools      []string        `json:"enabled_tools" yaml:"enabled_tools"`
}

// Manager owns the cached permission state. Every query re-reads the
// configuration signature from its Source and recomputes on mismatch.
type Manager struct {
	src    Source
	logger *slog.Logger

	mu    sync.Mutex
	sig   Signature
	valid bool
	res   Resolution
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used to report unrecognized tokens.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager constructs a Manager reading from src. A nil src reads the
// process environment.
func NewManager(src Source, opts ...Option) *Manager {
	if src == nil {
		src = EnvSource{}
	}
	m := &Manager{src: src, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IsEnabled reports whether tool is in the enabled set.
func (m *Manager) IsEnabled(tool string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshLocked()
	_, ok := m.res.Enabled[tool]
	return ok
}

// Check reports whether tool is enabled together with the profile of the
// resolution that decided it.
func (m *Manager) Check(tool string) (bool, catalog.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshLocked()
	_, ok := m.res.Enabled[tool]
	return ok, m.res.Profile
}

// Profile returns the resolved profile.
func (m *Manager) Profile() catalog.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshLocked()
	return m.res.Profile
}

// EnabledTools returns the enabled tool names, sorted.
func (m *Manager) EnabledTools() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshLocked()
	return m.res.Sorted()
}

// Status returns a snapshot suitable for diagnostics endpoints.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshLocked()
	tools := m.res.Sorted()
	groups := make([]catalog.Group, len(m.res.Groups))
	copy(groups, m.res.Groups)
	return Status{
		Profile:           m.res.Profile,
		Groups:            groups,
		EnabledToolsCount: len(tools),
		EnabledTools:      tools,
	}
}

// Refresh checks the signature and recomputes when it changed. It reports
// whether a recomputation happened.
func (m *Manager) Refresh() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshLocked()
}

func (m *Manager) refreshLocked() bool {
	sig := ReadSignature(m.src)
	if m.valid && sig == m.sig {
		return false
	}
	m.res = Resolve(sig)
	m.sig = sig
	m.valid = true
	if len(m.res.Unrecognized) > 0 {
		m.logger.Warn("permissions: ignoring unrecognized configuration tokens",
			"profile", m.res.Profile,
			"tokens", m.res.Unrecognized,
		)
	}
	m.logger.Debug("permissions: resolved",
		"profile", m.res.Profile,
		"groups", m.res.Groups,
		"enabled", len(m.res.Enabled),
	)
	return true
}
