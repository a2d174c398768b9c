package cli

import (
	"errors"
	"time"

	"github.com/fahmaliyi/pwvault/vault"
)

// addSecret stores a freshly generated secret for service. When the service
// already exists it asks confirm before replacing it.
func addSecret(m *vault.Manager, service string, master []byte, confirm func(service string) bool) ([]byte, error) {
	secret, err := m.Add(service, master, false)
	if errors.Is(err, vault.ErrDuplicateKey) && confirm != nil && confirm(service) {
		return m.Add(service, master, true)
	}
	return secret, err
}

// copySecret puts secret on the clipboard, wipes it, and clears the
// clipboard again after clearAfter (never, when zero).
func copySecret(copyFn func(string) error, secret []byte, clearAfter time.Duration) error {
	err := copyFn(string(secret))
	vault.Wipe(secret)
	if err != nil {
		return err
	}
	if clearAfter > 0 {
		time.AfterFunc(clearAfter, func() {
			_ = copyFn("")
		})
	}
	return nil
}
