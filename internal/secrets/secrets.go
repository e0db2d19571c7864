package secrets

import (
	"os"
	"strings"
)

// Well-known secret names used by the pipeline.
const (
	GeminiAPIKey = "gemini-api-key"
)

// Store defines the interface for credential storage, keyed by logical name.
type Store interface {
	// Get retrieves a secret; ok is false when the secret is absent.
	Get(name string) (value string, ok bool)

	// Set stores a secret
	Set(name, value string) error

	// Delete removes a secret
	Delete(name string) error
}

// EnvStore implements the Store interface on top of process environment
// variables. Logical names map to prefixed, upper-snake variable names
// (e.g. "gemini-api-key" -> "EXPENSESCAN_GEMINI_API_KEY").
type EnvStore struct {
	prefix string
}

// NewEnvStore creates a new EnvStore with the given variable prefix
func NewEnvStore(prefix string) *EnvStore {
	return &EnvStore{prefix: prefix}
}

func (e *EnvStore) key(name string) string {
	k := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	if e.prefix == "" {
		return k
	}
	return e.prefix + "_" + k
}

// Get retrieves a secret from the environment
func (e *EnvStore) Get(name string) (string, bool) {
	v, ok := os.LookupEnv(e.key(name))
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Set stores a secret in the environment
func (e *EnvStore) Set(name, value string) error {
	return os.Setenv(e.key(name), value)
}

// Delete removes a secret from the environment
func (e *EnvStore) Delete(name string) error {
	return os.Unsetenv(e.key(name))
}

// Static is a fixed in-memory Store, used when a secret is supplied
// directly via a flag.
type Static map[string]string

func (s Static) Get(name string) (string, bool) {
	v, ok := s[name]
	return v, ok && v != ""
}

func (s Static) Set(name, value string) error {
	s[name] = value
	return nil
}

func (s Static) Delete(name string) error {
	delete(s, name)
	return nil
}
