package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 600_000
	saltSize         = 16
	derivedKeySize   = 32
)

// seal encrypts priv under passphrase, returning the persisted entry blob.
func seal(priv ed25519.PrivateKey, keyVersion int, passphrase string) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("vault: salt: %w", err)
	}
	key := pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, derivedKeySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: gcm: %w", err)
	}

	iv := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("vault: iv: %w", err)
	}

	sealed := gcm.Seal(nil, iv, priv, nil)
	tagStart := len(sealed) - gcm.Overhead()
	e := entry{
		KeyVersion: keyVersion,
		Ciphertext: sealed[:tagStart],
		Tag:        sealed[tagStart:],
		IV:         iv,
		Salt:       salt,
		Metadata:   map[string]string{"alg": "AES-256-GCM", "kdf": "PBKDF2-SHA256"},
	}
	return json.Marshal(e)
}

// open decrypts a blob produced by seal, returning the recovered private key.
func open(blob []byte, passphrase string) (ed25519.PrivateKey, error) {
	var e entry
	if err := json.Unmarshal(blob, &e); err != nil {
		return nil, fmt.Errorf("vault: decode entry: %w", err)
	}

	key := pbkdf2.Key([]byte(passphrase), e.Salt, pbkdf2Iterations, derivedKeySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: gcm: %w", err)
	}

	sealed := append(append([]byte(nil), e.Ciphertext...), e.Tag...)
	plain, err := gcm.Open(nil, e.IV, sealed, nil)
	if err != nil {
		return nil, ErrInvalidPassphrase
	}
	return ed25519.PrivateKey(plain), nil
}
