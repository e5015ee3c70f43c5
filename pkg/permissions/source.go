package permissions

import (
	"os"
	"sync"
)

// Configuration keys consulted on every permission check.
const (
	EnvProfile       = "X_MCP_PROFILE"
	EnvGroups        = "X_MCP_GROUPS"
	EnvDisabledTools = "X_MCP_DISABLED_TOOLS"
	EnvEnabledTools  = "X_MCP_ENABLED_TOOLS"
)

// Defaults applied when a key is unset. A key set to the empty string is
// taken as-is.
const (
	DefaultProfileValue = "researcher"
	DefaultGroupsValue  = "research"
)

// Source supplies raw configuration strings. It mirrors os.LookupEnv so a
// key that is present but empty can be told apart from a missing key.
type Source interface {
	LookupEnv(key string) (string, bool)
}

// EnvSource reads the process environment.
type EnvSource struct{}

func (EnvSource) LookupEnv(key string) (string, bool) { return os.LookupEnv(key) }

// MapSource is an in-memory Source, safe for concurrent use.
type MapSource struct {
	mu sync.RWMutex
	m  map[string]string
}

// NewMapSource returns a MapSource seeded with kv.
func NewMapSource(kv map[string]string) *MapSource {
	m := make(map[string]string, len(kv))
	for k, v := range kv {
		m[k] = v
	}
	return &MapSource{m: m}
}

func (s *MapSource) LookupEnv(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok
}

// Set stores a value.
func (s *MapSource) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
}

// Unset removes a key.
func (s *MapSource) Unset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
}

// Signature is the tuple of raw configuration strings that determines the
// enabled set. Two equal signatures always resolve to the same set.
type Signature struct {
	Profile  string
	Groups   string
	Disabled string
	Enabled  string
}

// ReadSignature reads the current signature from src, applying defaults for
// unset keys.
func ReadSignature(src Source) Signature {
	return Signature{
		Profile:  lookup(src, EnvProfile, DefaultProfileValue),
		Groups:   lookup(src, EnvGroups, DefaultGroupsValue),
		Disabled: lookup(src, EnvDisabledTools, ""),
		Enabled:  lookup(src, EnvEnabledTools, ""),
	}
}

func lookup(src Source, key, def string) string {
	if v, ok := src.LookupEnv(key); ok {
		return v
	}
	return def
}
