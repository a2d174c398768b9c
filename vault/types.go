package vault

import (
	"errors"
	"fmt"
	"time"
)

const (
	SaltLen = 16
	IVLen   = 12
	TagLen  = 16
	KeyLen  = 32
	HashLen = 32
	Magic   = "PWVT"
	Version = 0x01

	// PBKDF2Iterations is fixed: it sets the brute-force cost of every entry.
	PBKDF2Iterations = 100_000

	MinSecretLength     = 12
	DefaultSecretLength = 16
)

var (
	ErrValidation         = errors.New("vault: invalid input")
	ErrMalformed          = fmt.Errorf("%w: malformed ciphertext", ErrValidation)
	ErrDuplicateKey       = errors.New("vault: entry already exists")
	ErrNotFound           = errors.New("vault: entry not found")
	ErrAuthentication     = errors.New("vault: authentication failed")
	ErrPersistence        = errors.New("vault: persistence failure")
	ErrCorrupt            = fmt.Errorf("%w: corrupt store", ErrPersistence)
	ErrAlreadyInitialized = errors.New("vault: master password already set")
	ErrLocked             = errors.New("vault: locked")
)

// Entry is one service's encrypted secret plus its metadata.
type Entry struct {
	ID             string
	Service        string
	Cipher         []byte
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastAccessedAt time.Time
}

// EntryInfo is the listing view of an Entry. It never carries ciphertext.
type EntryInfo struct {
	Service        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastAccessedAt time.Time
}

func (e Entry) Info() EntryInfo {
	return EntryInfo{
		Service:        e.Service,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
		LastAccessedAt: e.LastAccessedAt,
	}
}

func (e Entry) clone() Entry {
	c := e
	c.Cipher = append([]byte(nil), e.Cipher...)
	return c
}

// HashParams are the argon2id cost parameters of the master-password hash.
type HashParams struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// MasterRecord is the persisted, irreversible form of the master password.
type MasterRecord struct {
	Algorithm string
	Params    HashParams
	Salt      []byte
	Hash      []byte
}

// Session is the per-run authentication state. It is never persisted.
type Session struct {
	authenticated bool
	openedAt      time.Time
}

func (s *Session) IsAuthenticated() bool {
	return s != nil && s.authenticated
}

func (s *Session) OpenedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.openedAt
}

// Blob is the raw persistence collaborator: one durable byte sequence.
// Read must return an error wrapping fs.ErrNotExist when nothing has been
// written yet. Write must replace the previous contents atomically.
type Blob interface {
	Read() ([]byte, error)
	Write(data []byte) error
}
