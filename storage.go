package authcode

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/oauth2"
)

// Storage keys under which challenge material is persisted.  Absence of a
// key is a valid "not set" state, distinct from an empty string.
const (
	StorageKeyVerifier = "verifier"
	StorageKeyCSRF     = "csrf"
	StorageKeyNonce    = "nonce"
)

// Storage is the key-value persistence capability injected into an
// AuthSession.  It is modeled on browser-local storage: opaque string
// secrets under string keys, with no transactional guarantee across keys.
// Implementations must report a missing key via ok == false rather than an
// empty value.
type Storage interface {
	// Get returns the value for key.  ok is false when the key is not set.
	Get(key string) (value string, ok bool, err error)

	// Set writes the value for key, overwriting any previous value.
	Set(key, value string) error

	// Delete removes the key.  Deleting an absent key is not an error.
	Delete(key string) error
}

// StateStore persists Challenge material to a Storage.  It is a pure
// mapping: all protocol logic stays in AuthSession.
type StateStore struct {
	flow    Flow
	storage Storage
}

// NewStateStore creates a StateStore for the given flow over the given
// storage.
func NewStateStore(f Flow, s Storage) (*StateStore, error) {
	const op = "authcode.NewStateStore"
	if !f.valid() {
		return nil, fmt.Errorf("%s: unknown flow %d: %w", op, f, ErrInvalidParameter)
	}
	if s == nil {
		return nil, fmt.Errorf("%s: storage is nil: %w", op, ErrNilParameter)
	}
	return &StateStore{flow: f, storage: s}, nil
}

// Save writes the challenge's set fields to storage.  Fields that are unset
// on the challenge are not written and existing keys are never cleared, so a
// partial update cannot erase unrelated material.
func (s *StateStore) Save(c *Challenge) error {
	const op = "StateStore.Save"
	if c == nil {
		return fmt.Errorf("%s: challenge is nil: %w", op, ErrNilParameter)
	}
	for k, v := range c.Serialize() {
		if err := s.storage.Set(k, v); err != nil {
			return fmt.Errorf("%s: unable to persist %q: %w", op, k, err)
		}
	}
	return nil
}

// Load reads the persisted challenge material back from storage.
//
// The two flows deliberately differ here.  The plain OAuth2 flow tolerates
// independently absent fields: whatever is present is returned and the
// downstream csrf comparison rejects an unusable record.  The OIDC flow
// requires verifier, csrf and nonce to be present atomically; partial
// presence fails closed with an error that matches both ErrNoActiveChallenge
// (restart the flow) and ErrIncompleteChallenge (the missing keys are named
// for diagnostics).  A wholly absent record is ErrNoActiveChallenge for both
// flows.
func (s *StateStore) Load() (*Challenge, error) {
	const op = "StateStore.Load"
	verifier, haveVerifier, err := s.storage.Get(StorageKeyVerifier)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to read %q: %w", op, StorageKeyVerifier, err)
	}
	csrf, haveCSRF, err := s.storage.Get(StorageKeyCSRF)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to read %q: %w", op, StorageKeyCSRF, err)
	}

	switch s.flow {
	case FlowOIDC:
		nonce, haveNonce, err := s.storage.Get(StorageKeyNonce)
		if err != nil {
			return nil, fmt.Errorf("%s: unable to read %q: %w", op, StorageKeyNonce, err)
		}
		if !haveVerifier && !haveCSRF && !haveNonce {
			return nil, fmt.Errorf("%s: %w", op, ErrNoActiveChallenge)
		}
		var missing []string
		if !haveVerifier {
			missing = append(missing, StorageKeyVerifier)
		}
		if !haveCSRF {
			missing = append(missing, StorageKeyCSRF)
		}
		if !haveNonce {
			missing = append(missing, StorageKeyNonce)
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("%s: missing keys %s: %w: %w",
				op, strings.Join(missing, ", "), ErrIncompleteChallenge, ErrNoActiveChallenge)
		}
		return &Challenge{
			verifier:  verifier,
			challenge: oauth2.S256ChallengeFromVerifier(verifier),
			state:     csrf,
			nonce:     nonce,
		}, nil

	default:
		if !haveVerifier && !haveCSRF {
			return nil, fmt.Errorf("%s: %w", op, ErrNoActiveChallenge)
		}
		c := &Challenge{
			verifier: verifier,
			state:    csrf,
		}
		if haveVerifier {
			c.challenge = oauth2.S256ChallengeFromVerifier(verifier)
		}
		return c, nil
	}
}

// Clear removes all persisted challenge material.
func (s *StateStore) Clear() error {
	const op = "StateStore.Clear"
	for _, k := range []string{StorageKeyVerifier, StorageKeyCSRF, StorageKeyNonce} {
		if err := s.storage.Delete(k); err != nil {
			return fmt.Errorf("%s: unable to delete %q: %w", op, k, err)
		}
	}
	return nil
}

// MemoryStorage is an in-memory Storage, safe for concurrent use.  It stands
// in for the host-provided persistence (browser localStorage, a server-side
// session) in tests and simple hosts.
type MemoryStorage struct {
	mu sync.Mutex
	m  map[string]string
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{m: make(map[string]string)}
}

// Get implements the Storage interface.
func (s *MemoryStorage) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok, nil
}

// Set implements the Storage interface.
func (s *MemoryStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

// Delete implements the Storage interface.
func (s *MemoryStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}
