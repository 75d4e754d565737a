package secret

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/ericfisherdev/ramn/internal/domain/port/driven"
)

// KeySize is the length of the symmetric key in bytes (AES-256).
const KeySize = 32

// KeyFileName is the name of the key file in both the protected and the
// legacy location.
const KeyFileName = ".ramn_key"

// KeyMigration reports what MigrateKeyIfNeeded changed on disk.
type KeyMigration struct {
	MovedLegacy bool // The legacy key beside the database was moved to the protected location.
	Rewrapped   bool // A raw key at the protected location was wrapped with the platform protector.
}

// KeyStore owns the on-disk lifecycle of the process-wide key. The file
// holds either a protector-wrapped blob or the raw key encoded as URL-safe
// base64, which is also the format of the legacy key file.
type KeyStore struct {
	path       string
	legacyPath string
	protector  Protector
}

// NewKeyStore creates a KeyStore for the protected key at path. legacyPath
// may be empty when there is no legacy location to migrate from.
func NewKeyStore(path, legacyPath string, protector Protector) *KeyStore {
	if protector == nil {
		protector = DefaultProtector()
	}
	return &KeyStore{path: path, legacyPath: legacyPath, protector: protector}
}

// Path returns the protected key location.
func (s *KeyStore) Path() string {
	return s.path
}

// MigrateKeyIfNeeded moves a legacy key to the protected location and wraps
// a raw key that the protector can now wrap. It is run once at startup and
// is a no-op when the key is already protected.
func (s *KeyStore) MigrateKeyIfNeeded() (KeyMigration, error) {
	var result KeyMigration

	moved, err := s.moveLegacyKey()
	if err != nil {
		return result, err
	}
	result.MovedLegacy = moved

	stored, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("read key %s: %w: %w", s.path, driven.ErrKeyPersistence, err)
	}

	if _, err := s.protector.Unprotect(stored); err == nil {
		return result, nil
	}

	key, err := parseKey(stored)
	if err != nil {
		// Load decides what happens to an unusable key file.
		return result, nil
	}

	wrapped, err := s.protector.Protect(encodeKey(key))
	if err != nil {
		if errors.Is(err, ErrProtectionUnavailable) {
			return result, nil
		}
		return result, fmt.Errorf("wrap key: %w", err)
	}
	if err := writeKeyFile(s.path, wrapped); err != nil {
		return result, fmt.Errorf("rewrite wrapped key: %w: %w", driven.ErrKeyPersistence, err)
	}
	result.Rewrapped = true

	return result, nil
}

// Load returns the key, creating and persisting one when none exists.
// When the key cannot be persisted Load still returns a usable key together
// with an error wrapping driven.ErrKeyPersistence; such a key lives only as
// long as the process and anything encrypted with it cannot be read on the
// next run.
func (s *KeyStore) Load() ([]byte, error) {
	if _, err := s.moveLegacyKey(); err != nil {
		slog.Warn("legacy key migration failed", "path", s.legacyPath, "error", err)
		if key, lerr := s.readLegacyKey(); lerr == nil {
			return key, nil
		}
	}

	stored, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		if key, ok := s.decodeStored(stored); ok {
			return key, nil
		}
		slog.Warn("key file unusable, generating a new key", "path", s.path)
		if err := os.Rename(s.path, s.path+".corrupt"); err != nil {
			return s.ephemeral(fmt.Errorf("move aside corrupt key: %w", err))
		}
	case !errors.Is(err, os.ErrNotExist):
		return s.ephemeral(fmt.Errorf("read key %s: %w", s.path, err))
	}

	return s.generate()
}

// decodeStored unwraps the stored blob, falling back to treating it as a
// raw key validated by a cipher self-check.
func (s *KeyStore) decodeStored(stored []byte) ([]byte, bool) {
	if unwrapped, err := s.protector.Unprotect(stored); err == nil {
		if key, err := parseKey(unwrapped); err == nil {
			return key, true
		}
	}
	key, err := parseKey(stored)
	if err != nil {
		return nil, false
	}
	if err := selfCheck(key); err != nil {
		return nil, false
	}
	return key, true
}

func (s *KeyStore) generate() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	if err := writeKeyFile(s.path, s.sealForDisk(key)); err != nil {
		return s.ephemeralWith(key, err)
	}
	return key, nil
}

// sealForDisk wraps the encoded key when a protector is available and
// returns the raw encoding otherwise.
func (s *KeyStore) sealForDisk(key []byte) []byte {
	encoded := encodeKey(key)
	wrapped, err := s.protector.Protect(encoded)
	if err != nil {
		if !errors.Is(err, ErrProtectionUnavailable) {
			slog.Warn("key protection failed, storing raw key", "error", err)
		}
		return encoded
	}
	return wrapped
}

// moveLegacyKey moves the legacy key file to the protected location when the
// protected file does not exist yet.
func (s *KeyStore) moveLegacyKey() (bool, error) {
	if s.legacyPath == "" {
		return false, nil
	}
	if _, err := os.Stat(s.path); err == nil {
		return false, nil
	}
	legacy, err := os.ReadFile(s.legacyPath)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read legacy key: %w", err)
	}

	data := legacy
	if key, err := parseKey(legacy); err == nil {
		data = s.sealForDisk(key)
	}
	if err := writeKeyFile(s.path, data); err != nil {
		return false, fmt.Errorf("write migrated key: %w: %w", driven.ErrKeyPersistence, err)
	}
	if err := os.Remove(s.legacyPath); err != nil {
		slog.Warn("could not remove legacy key file", "path", s.legacyPath, "error", err)
	}

	slog.Info("moved legacy key to protected location", "from", s.legacyPath, "to", s.path)
	return true, nil
}

func (s *KeyStore) readLegacyKey() ([]byte, error) {
	legacy, err := os.ReadFile(s.legacyPath)
	if err != nil {
		return nil, err
	}
	return parseKey(legacy)
}

func (s *KeyStore) ephemeral(cause error) ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate ephemeral key: %w", err)
	}
	return s.ephemeralWith(key, cause)
}

func (s *KeyStore) ephemeralWith(key []byte, cause error) ([]byte, error) {
	return key, fmt.Errorf("%w: %s: %w", driven.ErrKeyPersistence, s.path, cause)
}

// writeKeyFile atomically writes data with owner-only permissions, creating
// the parent directory when needed.
func writeKeyFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create key directory: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return err
	}
	return os.Chmod(path, 0o600)
}

// encodeKey returns the URL-safe base64 text form of key.
func encodeKey(key []byte) []byte {
	out := make([]byte, base64.URLEncoding.EncodedLen(len(key)))
	base64.URLEncoding.Encode(out, key)
	return out
}

// parseKey accepts the base64 text form or exactly KeySize raw bytes.
func parseKey(data []byte) ([]byte, error) {
	text := bytes.TrimSpace(data)
	decoded := make([]byte, base64.URLEncoding.DecodedLen(len(text)))
	if n, err := base64.URLEncoding.Decode(decoded, text); err == nil && n == KeySize {
		return decoded[:n], nil
	}
	if len(data) == KeySize {
		return append([]byte(nil), data...), nil
	}
	return nil, errors.New("not a key")
}

// selfCheck seals and opens a probe with key.
func selfCheck(key []byte) error {
	block, err := aes.NewCipher(key)
	if err != nil {
		return err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return err
	}
	nonce := make([]byte, gcm.NonceSize())
	probe := []byte("ramn key check")
	opened, err := gcm.Open(nil, nonce, gcm.Seal(nil, nonce, probe, nil), nil)
	if err != nil {
		return err
	}
	if !bytes.Equal(opened, probe) {
		return errors.New("key self-check mismatch")
	}
	return nil
}
