package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"io"
	"math/big"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
)

const (
	upperChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars   = "abcdefghijklmnopqrstuvwxyz"
	digitChars   = "0123456789"
	symbolChars  = "!@#$%^&*()-_=+[]{}|;:,.<>?"
	hashAlgo     = "argon2id+hkdf-sha256"
	verifierInfo = "pwvault master verifier v1"
)

// Wipe zeroes every buffer that held a password, a derived key or a
// plaintext secret.
func Wipe(bufs ...[]byte) {
	for _, b := range bufs {
		memguard.WipeBytes(b)
	}
}

func randBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}

func randIndex(n int) (int, error) {
	i, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(i.Int64()), nil
}

func DefaultHashParams() HashParams { return HashParams{Time: 3, Memory: 64 * 1024, Threads: 1} }

// Engine performs every cryptographic operation of the vault. It holds no
// keys; the only state is the cost of the master-password hash.
type Engine struct {
	hash HashParams
}

func NewEngine(params HashParams) *Engine {
	if params.Time == 0 || params.Memory == 0 || params.Threads == 0 {
		params = DefaultHashParams()
	}
	return &Engine{hash: params}
}

// DeriveKey runs PBKDF2-HMAC-SHA256 with PBKDF2Iterations rounds.
func (e *Engine) DeriveKey(password, salt []byte) []byte {
	return pbkdf2.Key(password, salt, PBKDF2Iterations, KeyLen, sha256.New)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithTagSize(block, TagLen)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}

// Encrypt returns salt || iv || ciphertext || tag. Salt and IV are fresh
// for every call.
func (e *Engine) Encrypt(plaintext, password []byte) ([]byte, error) {
	salt, err := randBytes(SaltLen)
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	iv, err := randBytes(IVLen)
	if err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	key := e.DeriveKey(password, salt)
	defer Wipe(key)

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	blob := make([]byte, 0, SaltLen+IVLen+len(plaintext)+TagLen)
	blob = append(blob, salt...)
	blob = append(blob, iv...)
	return gcm.Seal(blob, iv, plaintext, nil), nil
}

// Decrypt reverses Encrypt. A wrong password and a tampered blob both
// yield ErrAuthentication.
func (e *Engine) Decrypt(blob, password []byte) ([]byte, error) {
	if len(blob) < SaltLen+IVLen {
		return nil, ErrMalformed
	}
	salt := blob[:SaltLen]
	iv := blob[SaltLen : SaltLen+IVLen]
	ct := blob[SaltLen+IVLen:]

	key := e.DeriveKey(password, salt)
	defer Wipe(key)

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	pt, err := gcm.Open(nil, iv, ct, nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	return pt, nil
}

// HashPassword produces the master-password verifier. It is argon2id
// followed by an HKDF expansion under its own label, so it never equals
// a PBKDF2 entry key.
func (e *Engine) HashPassword(password []byte) (MasterRecord, error) {
	salt, err := randBytes(SaltLen)
	if err != nil {
		return MasterRecord{}, fmt.Errorf("generate salt: %w", err)
	}
	hash, err := verifier(password, salt, e.hash)
	if err != nil {
		return MasterRecord{}, err
	}
	return MasterRecord{Algorithm: hashAlgo, Params: e.hash, Salt: salt, Hash: hash}, nil
}

// VerifyPassword recomputes the verifier with the record's own parameters
// and compares in constant time.
func (e *Engine) VerifyPassword(rec MasterRecord, password []byte) bool {
	if rec.Algorithm != hashAlgo || len(rec.Hash) != HashLen {
		return false
	}
	got, err := verifier(password, rec.Salt, rec.Params)
	if err != nil {
		return false
	}
	defer Wipe(got)
	return subtle.ConstantTimeCompare(got, rec.Hash) == 1
}

func verifier(password, salt []byte, p HashParams) ([]byte, error) {
	master := argon2.IDKey(password, salt, p.Time, p.Memory, p.Threads, KeyLen)
	defer Wipe(master)
	h := hkdf.New(sha256.New, master, nil, []byte(verifierInfo))
	out := make([]byte, HashLen)
	if _, err := io.ReadFull(h, out); err != nil {
		return nil, fmt.Errorf("hkdf expand: %w", err)
	}
	return out, nil
}

// GenerateSecurePassword returns a random secret of the given length with
// at least one upper, lower and digit character, plus one symbol when
// includeSpecial is set.
func (e *Engine) GenerateSecurePassword(length int, includeSpecial bool) ([]byte, error) {
	if length < MinSecretLength {
		return nil, fmt.Errorf("%w: secret length must be >= %d", ErrValidation, MinSecretLength)
	}

	categories := []string{upperChars, lowerChars, digitChars}
	if includeSpecial {
		categories = append(categories, symbolChars)
	}
	var all string
	for _, c := range categories {
		all += c
	}

	secret := make([]byte, length)
	fail := func(err error) ([]byte, error) {
		Wipe(secret)
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	for i, cat := range categories {
		idx, err := randIndex(len(cat))
		if err != nil {
			return fail(err)
		}
		secret[i] = cat[idx]
	}
	for i := len(categories); i < length; i++ {
		idx, err := randIndex(len(all))
		if err != nil {
			return fail(err)
		}
		secret[i] = all[idx]
	}

	// Fisher-Yates
	for i := length - 1; i > 0; i-- {
		j, err := randIndex(i + 1)
		if err != nil {
			return fail(err)
		}
		secret[i], secret[j] = secret[j], secret[i]
	}
	return secret, nil
}
