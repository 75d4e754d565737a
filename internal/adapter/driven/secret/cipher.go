package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/fernet/fernet-go"

	"github.com/ericfisherdev/ramn/internal/domain/port/driven"
)

// TokenPrefix marks a value produced by Encrypt.
const TokenPrefix = "enc:v1:"

// Fernet envelope: version byte, 8-byte timestamp, 16-byte IV, AES-CBC
// ciphertext in whole blocks, 32-byte HMAC.
const (
	fernetVersion  = 0x80
	fernetOverhead = 1 + 8 + aes.BlockSize + 32
)

// KeySource supplies the key material. A source may return a usable key
// together with an error wrapping driven.ErrKeyPersistence, in which case the
// cipher runs in degraded mode on that key.
type KeySource interface {
	Load() ([]byte, error)
}

// Compile-time interface satisfaction check.
var _ driven.SecretCipher = (*Cipher)(nil)

// Cipher implements driven.SecretCipher with AES-256-GCM. The key is loaded
// once on first use and cached for the life of the process.
type Cipher struct {
	keys KeySource

	mu       sync.Mutex
	loaded   bool
	aead     cipher.AEAD
	fernet   *fernet.Key
	degraded error
	initErr  error
}

// NewCipher creates a Cipher that loads its key from keys on first use.
func NewCipher(keys KeySource) *Cipher {
	return &Cipher{keys: keys}
}

// NewCipherWithKey creates a Cipher bound to an explicit 32-byte key.
func NewCipherWithKey(key []byte) (*Cipher, error) {
	c := &Cipher{}
	if err := c.bind(key); err != nil {
		return nil, err
	}
	c.loaded = true
	return c, nil
}

// Encrypt returns an authenticated token for plaintext.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	aead, err := c.init()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)

	return TokenPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt returns the plaintext for a token produced by Encrypt. Values
// without the token prefix are returned unchanged. A prefixed value that
// fails to decode or authenticate yields driven.ErrSecretCorrupt.
func (c *Cipher) Decrypt(token string) (string, error) {
	if !c.IsEncrypted(token) {
		return token, nil
	}

	aead, err := c.init()
	if err != nil {
		return "", err
	}

	sealed, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(token, TokenPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: decode: %w", driven.ErrSecretCorrupt, err)
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return "", fmt.Errorf("%w: token too short", driven.ErrSecretCorrupt)
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", driven.ErrSecretCorrupt, err)
	}

	return string(plaintext), nil
}

// IsEncrypted reports whether value carries the token prefix.
func (c *Cipher) IsEncrypted(value string) bool {
	return strings.HasPrefix(value, TokenPrefix)
}

// DecryptLegacy decrypts a Fernet token written by earlier releases with the
// same key material. The token's age is not checked.
func (c *Cipher) DecryptLegacy(token string) (string, bool) {
	if _, err := c.init(); err != nil {
		return "", false
	}
	msg := fernet.VerifyAndDecrypt([]byte(token), -1, []*fernet.Key{c.fernet})
	if msg == nil {
		return "", false
	}
	return string(msg), true
}

// IsLegacy reports whether value has the shape of a Fernet token, whether or
// not it verifies under the current key.
func (c *Cipher) IsLegacy(value string) bool {
	raw, err := base64.URLEncoding.DecodeString(value)
	if err != nil {
		return false
	}
	n := len(raw) - fernetOverhead
	return n >= aes.BlockSize && n%aes.BlockSize == 0 && raw[0] == fernetVersion
}

// Degraded returns a non-nil error while the cipher runs on a key that could
// not be persisted.
func (c *Cipher) Degraded() error {
	_, _ = c.init()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.degraded
}

func (c *Cipher) init() (cipher.AEAD, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return c.aead, c.initErr
	}
	c.loaded = true

	if c.keys == nil {
		c.initErr = errors.New("secret cipher has no key source")
		return nil, c.initErr
	}

	key, err := c.keys.Load()
	if err != nil {
		if key == nil || !errors.Is(err, driven.ErrKeyPersistence) {
			c.initErr = fmt.Errorf("load key: %w", err)
			return nil, c.initErr
		}
		slog.Warn("secret key could not be persisted, running on an ephemeral key", "error", err)
		c.degraded = err
	}

	if err := c.bind(key); err != nil {
		c.initErr = err
		return nil, err
	}
	return c.aead, nil
}

func (c *Cipher) bind(key []byte) error {
	if len(key) != KeySize {
		return fmt.Errorf("key is %d bytes, want %d", len(key), KeySize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("create block cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("create gcm: %w", err)
	}

	var fk fernet.Key
	copy(fk[:], key)

	c.aead = aead
	c.fernet = &fk
	return nil
}
