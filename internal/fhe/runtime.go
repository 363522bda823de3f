// Package fhe defines the boundary to the external homomorphic-encryption
// runtime. The core never produces ciphertexts or proofs itself; it imports
// them, combines them through the opaque primitives below, and hands the
// resulting handles back out for client-side decryption.
package fhe

import (
	"context"

	"secretquiz-service/internal/domain"
)

// EncryptedInput pairs a ciphertext with the zero-knowledge input proof that
// binds it to the submitting account.
type EncryptedInput struct {
	Ciphertext []byte `json:"ciphertext"`
	Proof      []byte `json:"proof"`
}

// Runtime is the ciphertext gateway plus the homomorphic primitives the
// scoring path needs. Every operation yields a fresh handle; inputs are
// never mutated, and no plaintext is ever returned.
type Runtime interface {
	// VerifyAndImport validates the input proof against the submitting
	// account and returns a handle usable in homomorphic operations.
	// Returns domain.ErrInvalidProof when the proof does not check out.
	VerifyAndImport(ctx context.Context, input EncryptedInput, account domain.Account) (domain.CiphertextHandle, error)

	// GrantDecryptAccess authorizes account to decrypt the handle off-chain.
	// Granting twice is a no-op.
	GrantDecryptAccess(ctx context.Context, handle domain.CiphertextHandle, account domain.Account) error

	// Encrypt64 trivially encrypts a public constant.
	Encrypt64(ctx context.Context, value uint64) (domain.CiphertextHandle, error)

	// Eq returns a ciphertext holding 1 if the two operands are equal, 0
	// otherwise.
	Eq(ctx context.Context, a, b domain.CiphertextHandle) (domain.CiphertextHandle, error)

	// ScalarMul multiplies a ciphertext by a public constant.
	ScalarMul(ctx context.Context, h domain.CiphertextHandle, k uint64) (domain.CiphertextHandle, error)

	// Add sums two ciphertexts.
	Add(ctx context.Context, a, b domain.CiphertextHandle) (domain.CiphertextHandle, error)
}
