package driven

// SecretCipher encrypts and decrypts account secrets at rest.
type SecretCipher interface {
	// Encrypt returns a self-describing token for plaintext.
	Encrypt(plaintext string) (string, error)

	// Decrypt returns the plaintext for a token produced by Encrypt. Values
	// without the token marker are returned unchanged with a nil error.
	// Marked values that fail to decrypt return ErrSecretCorrupt.
	Decrypt(token string) (string, error)

	// IsEncrypted reports whether value carries the token marker.
	IsEncrypted(value string) bool

	// DecryptLegacy decrypts a token written by the legacy Fernet format.
	// The boolean is false when value is not a valid legacy token for the
	// current key.
	DecryptLegacy(value string) (string, bool)

	// IsLegacy reports whether value is shaped like a legacy Fernet token,
	// including one sealed with a key that is no longer available.
	IsLegacy(value string) bool

	// Degraded returns a non-nil error wrapping ErrKeyPersistence while the
	// key lives only in memory. Anything encrypted then is lost at exit.
	Degraded() error
}
