package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fahmaliyi/pwvault/vault"
	"golang.org/x/term"
)

const maxLoginAttempts = 3

var (
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrTooManyAttempts  = errors.New("too many failed authentication attempts")
)

// PromptFunc reads a secret line from the user without echoing it.
type PromptFunc func(prompt string) ([]byte, error)

// DefaultDataDir returns the per-user application data directory, creating
// it if needed: %AppData%\pwvault on Windows, ~/Library/Application
// Support/pwvault on macOS and $XDG_CONFIG_HOME/pwvault elsewhere.
func DefaultDataDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	dir := filepath.Join(base, "pwvault")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}

func ReadPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)

	return pw, err
}

// Bootstrap runs first-time setup when no master password exists, then
// authenticates. It returns the session and the master password, which the
// caller must Wipe when done.
func Bootstrap(m *vault.Manager, prompt PromptFunc, out io.Writer) (*vault.Session, []byte, error) {
	exists, err := m.Exists()
	if err != nil {
		return nil, nil, err
	}
	if !exists {
		fmt.Fprintln(out, "No vault found. Setting up new master password.")
		return setupMaster(m, prompt)
	}

	for i := 0; i < maxLoginAttempts; i++ {
		master, err := prompt("Enter master password: ")
		if err != nil {
			return nil, nil, err
		}
		sess, ok, err := m.Authenticate(master)
		if err != nil {
			vault.Wipe(master)
			return nil, nil, err
		}
		if ok {
			return sess, master, nil
		}
		vault.Wipe(master)
		fmt.Fprintln(out, "Authentication failed. Please try again.")
	}
	return nil, nil, ErrTooManyAttempts
}

func setupMaster(m *vault.Manager, prompt PromptFunc) (*vault.Session, []byte, error) {
	master, err := prompt("Set master password: ")
	if err != nil {
		return nil, nil, err
	}
	confirm, err := prompt("Confirm master password: ")
	if err != nil {
		vault.Wipe(master)
		return nil, nil, err
	}
	defer vault.Wipe(confirm)

	if !bytes.Equal(master, confirm) {
		vault.Wipe(master)
		return nil, nil, ErrPasswordMismatch
	}
	if err := m.Setup(master); err != nil {
		vault.Wipe(master)
		return nil, nil, err
	}
	sess, ok, err := m.Authenticate(master)
	if err != nil || !ok {
		vault.Wipe(master)
		if err == nil {
			err = vault.ErrAuthentication
		}
		return nil, nil, err
	}
	return sess, master, nil
}

// describeError turns a vault error into a line for the user.
func describeError(err error) string {
	switch {
	case errors.Is(err, vault.ErrAuthentication):
		return "Wrong master password."
	case errors.Is(err, vault.ErrNotFound):
		return "No entry for that service."
	case errors.Is(err, vault.ErrDuplicateKey):
		return "An entry for that service already exists."
	case errors.Is(err, vault.ErrLocked):
		return "Vault is locked."
	case errors.Is(err, vault.ErrValidation):
		return "Invalid input: " + err.Error()
	case errors.Is(err, vault.ErrPersistence):
		return "Storage error: " + err.Error()
	default:
		return "Error: " + err.Error()
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
