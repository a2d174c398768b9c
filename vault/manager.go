package vault

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Options controls secret generation.
type Options struct {
	SecretLength   int
	IncludeSpecial bool
}

func DefaultOptions() Options {
	return Options{SecretLength: DefaultSecretLength, IncludeSpecial: true}
}

// Manager is the public API of the vault. Every secret operation takes the
// master password and re-derives the key; nothing is cached between calls.
type Manager struct {
	engine *Engine
	gate   *Gate
	store  *Store
	opts   Options
}

func NewManager(engine *Engine, gate *Gate, store *Store, opts Options) *Manager {
	if opts.SecretLength == 0 {
		opts.SecretLength = DefaultSecretLength
	}
	return &Manager{engine: engine, gate: gate, store: store, opts: opts}
}

func (m *Manager) Exists() (bool, error) { return m.gate.Exists() }

func (m *Manager) Setup(master []byte) error { return m.gate.Setup(master) }

func (m *Manager) Authenticate(master []byte) (*Session, bool, error) {
	return m.gate.Authenticate(master)
}

// Add generates a fresh secret for service, stores it encrypted under
// master and returns the plaintext. The caller owns the returned slice and
// should Wipe it after use.
func (m *Manager) Add(service string, master []byte, overwrite bool) ([]byte, error) {
	if err := validService(service); err != nil {
		return nil, err
	}
	if !overwrite {
		exists, err := m.store.Has(service)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, service)
		}
	}

	secret, err := m.engine.GenerateSecurePassword(m.opts.SecretLength, m.opts.IncludeSpecial)
	if err != nil {
		return nil, err
	}
	blob, err := m.engine.Encrypt(secret, master)
	if err != nil {
		Wipe(secret)
		return nil, err
	}
	if err := m.store.Put(Entry{Service: service, Cipher: blob}, overwrite); err != nil {
		Wipe(secret)
		return nil, err
	}
	log.Info().Str("service", service).Bool("overwrite", overwrite).Msg("secret stored")
	return secret, nil
}

// Get decrypts the secret of service. A wrong master password surfaces as
// ErrAuthentication from the decryption itself.
func (m *Manager) Get(service string, master []byte) ([]byte, error) {
	e, err := m.store.Get(service)
	if err != nil {
		return nil, err
	}
	secret, err := m.engine.Decrypt(e.Cipher, master)
	if err != nil {
		log.Warn().Str("service", service).Msg("decryption rejected")
		return nil, err
	}
	if err := m.store.TouchAccess(service); err != nil {
		Wipe(secret)
		return nil, err
	}
	return secret, nil
}

func (m *Manager) Update(service string, master []byte) ([]byte, error) {
	return m.Add(service, master, true)
}

// Delete removes service only after master has been proven by decrypting
// the entry.
func (m *Manager) Delete(service string, master []byte) error {
	secret, err := m.Get(service, master)
	if err != nil {
		return err
	}
	Wipe(secret)
	if err := m.store.Delete(service); err != nil {
		return err
	}
	log.Info().Str("service", service).Msg("secret deleted")
	return nil
}

func (m *Manager) List(sess *Session) ([]EntryInfo, error) {
	if !sess.IsAuthenticated() {
		return nil, ErrLocked
	}
	entries, err := m.store.List()
	if err != nil {
		return nil, err
	}
	out := make([]EntryInfo, len(entries))
	for i, e := range entries {
		out[i] = e.Info()
	}
	return out, nil
}

func (m *Manager) Count(sess *Session) (int, error) {
	if !sess.IsAuthenticated() {
		return 0, ErrLocked
	}
	return m.store.Count()
}
