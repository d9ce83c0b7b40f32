// Package identity owns the agent's single signing keypair.
package identity

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	solanago "github.com/gagliardetto/solana-go"
)

// ErrCorrupt is returned when the keypair file exists but cannot be used.
// The file is never replaced in that case: the secret is unrecoverable.
var ErrCorrupt = errors.New("identity file corrupt")

// Identity is the agent's keypair, loaded once per process.
type Identity struct {
	key     solanago.PrivateKey
	path    string
	created bool
}

// Load reads the keypair at path, creating it on first run.
// The directory is created 0700 and the file 0600. An existing file is never regenerated.
func Load(path string) (*Identity, error) {
	key, err := read(path)
	if err == nil {
		return &Identity{key: key, path: path}, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	key, err = solanago.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	if err := create(path, key); err != nil {
		if errors.Is(err, os.ErrExist) {
			// Lost a creation race; the winner's key is the identity.
			return Load(path)
		}
		return nil, err
	}
	return &Identity{key: key, path: path, created: true}, nil
}

func read(path string) (solanago.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ints []int
	if err := json.Unmarshal(raw, &ints); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	if len(ints) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: %s: expected %d bytes, got %d", ErrCorrupt, path, ed25519.PrivateKeySize, len(ints))
	}
	key := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("%w: %s: byte %d out of range", ErrCorrupt, path, i)
		}
		key[i] = byte(v)
	}
	derived := ed25519.NewKeyFromSeed(key[:ed25519.SeedSize])
	if !bytes.Equal(derived[ed25519.SeedSize:], key[ed25519.SeedSize:]) {
		return nil, fmt.Errorf("%w: %s: public key does not match secret", ErrCorrupt, path)
	}
	return solanago.PrivateKey(key), nil
}

func create(path string, key solanago.PrivateKey) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create identity dir: %w", err)
	}

	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	data, err := json.Marshal(ints)
	if err != nil {
		return fmt.Errorf("marshal keypair: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create identity file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write identity file: %w", err)
	}
	if err := syncFile(f); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("sync identity file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close identity file: %w", err)
	}
	return nil
}

// syncFile is replaced in tests to simulate a failing disk.
var syncFile = (*os.File).Sync

// Address returns the base58 public key.
func (i *Identity) Address() string {
	return i.key.PublicKey().String()
}

// PublicKey returns the public key.
func (i *Identity) PublicKey() solanago.PublicKey {
	return i.key.PublicKey()
}

// Path returns the keypair file location.
func (i *Identity) Path() string {
	return i.path
}

// Created reports whether this process generated the keypair.
func (i *Identity) Created() bool {
	return i.created
}

// Signer returns the key lookup used by solana-go's Transaction.Sign.
// It yields the private key only for this identity's public key.
func (i *Identity) Signer() func(solanago.PublicKey) *solanago.PrivateKey {
	pub := i.key.PublicKey()
	return func(key solanago.PublicKey) *solanago.PrivateKey {
		if key.Equals(pub) {
			k := i.key
			return &k
		}
		return nil
	}
}

// String never reveals the secret.
func (i *Identity) String() string {
	return "identity(" + i.Address() + ")"
}
