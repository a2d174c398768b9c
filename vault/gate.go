package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/rs/zerolog/log"
)

// Gate owns the single master-password record. Setup happens once; there is
// no rotation.
type Gate struct {
	blob   Blob
	engine *Engine
	record *MasterRecord
	loaded bool
}

func NewGate(blob Blob, engine *Engine) *Gate {
	return &Gate{blob: blob, engine: engine}
}

func (g *Gate) load() error {
	if g.loaded {
		return nil
	}
	raw, err := g.blob.Read()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		g.record = nil
	case err != nil:
		return fmt.Errorf("%w: read master record: %w", ErrPersistence, err)
	default:
		rec, err := decodeMaster(raw)
		if err != nil {
			log.Error().Err(err).Msg("master record is unreadable")
			return err
		}
		g.record = &rec
	}
	g.loaded = true
	return nil
}

func (g *Gate) Exists() (bool, error) {
	if err := g.load(); err != nil {
		return false, err
	}
	return g.record != nil, nil
}

func (g *Gate) Setup(password []byte) error {
	if len(password) == 0 {
		return fmt.Errorf("%w: master password is empty", ErrValidation)
	}
	exists, err := g.Exists()
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyInitialized
	}

	rec, err := g.engine.HashPassword(password)
	if err != nil {
		return err
	}
	raw, err := encodeMaster(rec)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if err := g.blob.Write(raw); err != nil {
		return fmt.Errorf("%w: write master record: %w", ErrPersistence, err)
	}
	g.record = &rec
	log.Info().Str("algorithm", rec.Algorithm).Msg("master password set")
	return nil
}

// Authenticate checks password against the stored record. A mismatch is
// reported as ok == false, not as an error; the returned session is
// authenticated only when ok is true.
func (g *Gate) Authenticate(password []byte) (*Session, bool, error) {
	sess := &Session{openedAt: time.Now()}
	if err := g.load(); err != nil {
		return sess, false, err
	}
	if g.record == nil {
		return sess, false, nil
	}
	ok := g.engine.VerifyPassword(*g.record, password)
	sess.authenticated = ok
	log.Info().Bool("ok", ok).Msg("authentication attempt")
	return sess, ok, nil
}
