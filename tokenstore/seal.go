package tokenstore

import (
	"bytes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	sealMagic = "ATS1"

	sealModeKey        byte = 0
	sealModePassphrase byte = 1

	sealSaltLength = 16

	minKDFMemoryKB    uint32 = 8 * 1024
	minKDFTime        uint32 = 1
	minKDFParallelism uint8  = 1
)

// Sealer encrypts token material before it reaches a persistent medium.
//
// aad binds a sealed blob to its location so a blob copied to another key or file
// fails to open.
type Sealer interface {
	Seal(plain, aad []byte) ([]byte, error)
	Open(sealed, aad []byte) ([]byte, error)
}

// KDFConfig holds the Argon2id parameters used to derive a sealing key from a passphrase.
type KDFConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
}

// DefaultKDFConfig returns interactive-grade Argon2id parameters.
func DefaultKDFConfig() KDFConfig {
	return KDFConfig{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
	}
}

func (c KDFConfig) validate() error {
	if c.Memory < minKDFMemoryKB {
		return errors.New("kdf memory must be >= 8192 KB")
	}
	if c.Time < minKDFTime {
		return errors.New("kdf time must be >= 1")
	}
	if c.Parallelism < minKDFParallelism {
		return errors.New("kdf parallelism must be >= 1")
	}
	return nil
}

// AEADSealer seals with XChaCha20-Poly1305.
//
// Sealed layout: magic, mode byte, [16-byte salt in passphrase mode], 24-byte nonce,
// ciphertext. In passphrase mode the derived key is cached per salt, so Argon2id only
// runs once per process for a given file.
type AEADSealer struct {
	mode       byte
	passphrase []byte
	kdf        KDFConfig

	mu   sync.Mutex
	salt []byte
	aead cipher.AEAD
}

// NewKeySealer builds a sealer from a raw 32-byte key.
func NewKeySealer(key []byte) (*AEADSealer, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidKey, chacha20poly1305.KeySize, len(key))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &AEADSealer{mode: sealModeKey, aead: aead}, nil
}

// NewPassphraseSealer builds a sealer whose key is derived with Argon2id.
func NewPassphraseSealer(passphrase string, kdf KDFConfig) (*AEADSealer, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("%w: empty passphrase", ErrInvalidKey)
	}
	if err := kdf.validate(); err != nil {
		return nil, err
	}
	return &AEADSealer{
		mode:       sealModePassphrase,
		passphrase: []byte(passphrase),
		kdf:        kdf,
	}, nil
}

// Seal encrypts plain and prefixes the header needed to open it again.
func (s *AEADSealer) Seal(plain, aad []byte) ([]byte, error) {
	aead, salt, err := s.sealingKey()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(sealMagic) + 1 + len(salt) + len(nonce) + len(plain) + aead.Overhead())
	buf.WriteString(sealMagic)
	buf.WriteByte(s.mode)
	buf.Write(salt)
	buf.Write(nonce)

	return aead.Seal(buf.Bytes(), nonce, plain, aad), nil
}

// Open authenticates and decrypts a blob produced by Seal. Failures wrap [ErrCorrupt].
func (s *AEADSealer) Open(sealed, aad []byte) ([]byte, error) {
	if len(sealed) < len(sealMagic)+1 || string(sealed[:len(sealMagic)]) != sealMagic {
		return nil, fmt.Errorf("%w: bad seal header", ErrCorrupt)
	}
	rest := sealed[len(sealMagic):]
	mode := rest[0]
	rest = rest[1:]
	if mode != s.mode {
		return nil, fmt.Errorf("%w: seal mode mismatch", ErrCorrupt)
	}

	var salt []byte
	if mode == sealModePassphrase {
		if len(rest) < sealSaltLength {
			return nil, fmt.Errorf("%w: truncated salt", ErrCorrupt)
		}
		salt, rest = rest[:sealSaltLength], rest[sealSaltLength:]
	}

	aead, err := s.openingKey(salt)
	if err != nil {
		return nil, err
	}
	if len(rest) < aead.NonceSize()+aead.Overhead() {
		return nil, fmt.Errorf("%w: truncated ciphertext", ErrCorrupt)
	}
	nonce, ciphertext := rest[:aead.NonceSize()], rest[aead.NonceSize():]

	plain, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return plain, nil
}

func (s *AEADSealer) sealingKey() (cipher.AEAD, []byte, error) {
	if s.mode == sealModeKey {
		return s.aead, nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.aead != nil {
		return s.aead, s.salt, nil
	}

	salt := make([]byte, sealSaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, nil, err
	}
	aead, err := s.derive(salt)
	if err != nil {
		return nil, nil, err
	}
	s.salt, s.aead = salt, aead
	return aead, salt, nil
}

func (s *AEADSealer) openingKey(salt []byte) (cipher.AEAD, error) {
	if s.mode == sealModeKey {
		return s.aead, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.aead != nil && subtle.ConstantTimeCompare(s.salt, salt) == 1 {
		return s.aead, nil
	}

	aead, err := s.derive(salt)
	if err != nil {
		return nil, err
	}
	// Adopt the on-disk salt so later writes keep a single derivation.
	s.salt = append([]byte(nil), salt...)
	s.aead = aead
	return aead, nil
}

func (s *AEADSealer) derive(salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(
		s.passphrase,
		salt,
		s.kdf.Time,
		s.kdf.Memory,
		s.kdf.Parallelism,
		chacha20poly1305.KeySize,
	)
	return chacha20poly1305.NewX(key)
}
