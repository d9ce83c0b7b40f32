package solana

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Well-known program IDs.
const (
	SystemProgramID          = "11111111111111111111111111111111"
	TokenProgramID           = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	AssociatedTokenProgramID = "ATokenGPvbdQxr7K2mYQZg6uLAxG8cVqUJnNgYjvRrC1"
)

// DeriveAssociatedTokenAddress returns the associated token account of owner for mint.
// Seeds: [owner, token_program, mint] under the associated token program.
func DeriveAssociatedTokenAddress(owner, mint string) (string, error) {
	ownerBytes, err := decodeAddress(owner)
	if err != nil {
		return "", fmt.Errorf("owner: %w", err)
	}
	mintBytes, err := decodeAddress(mint)
	if err != nil {
		return "", fmt.Errorf("mint: %w", err)
	}
	tokenProgram, _ := decodeAddress(TokenProgramID)
	ataProgram, _ := decodeAddress(AssociatedTokenProgramID)

	pda := derivePDA([][]byte{ownerBytes, tokenProgram, mintBytes}, ataProgram)
	if pda == "" {
		return "", fmt.Errorf("no valid bump for %s/%s", owner, mint)
	}
	return pda, nil
}

// IsWalletAddress reports whether address is a valid 32-byte key on the ed25519 curve,
// i.e. one that a private key can sign for.
func IsWalletAddress(address string) bool {
	raw, err := decodeAddress(address)
	if err != nil {
		return false
	}
	return isOnCurve(raw)
}

func decodeAddress(address string) ([]byte, error) {
	raw, err := base58.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("invalid base58 address %q: %w", address, err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("invalid address length %d", len(raw))
	}
	return raw, nil
}

func encodeAddress(raw []byte) string {
	return base58.Encode(raw)
}

// derivePDA derives a Program Derived Address: the first bump from 255 down
// whose sha256(seeds || bump || program || marker) lies off the curve.
func derivePDA(seeds [][]byte, programID []byte) string {
	for bump := 255; bump >= 0; bump-- {
		data := make([]byte, 0, 128)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, byte(bump))
		data = append(data, programID...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)
		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:])
		}
	}
	return ""
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
