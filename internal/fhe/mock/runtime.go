// Package mock is a plaintext-backed stand-in for the homomorphic runtime,
// suitable for development and tests. Handles map to plaintext uint64 values
// in memory; proofs are a SHA-256 binding of ciphertext and account so that
// replaying another account's input fails the same way it would against the
// real gateway.
package mock

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"secretquiz-service/internal/domain"
	"secretquiz-service/internal/fhe"
)

// ErrUnknownHandle is returned when an operation references a handle this
// runtime never issued.
var ErrUnknownHandle = errors.New("unknown ciphertext handle")

// ErrNoDecryptGrant is returned by Decrypt before GrantDecryptAccess.
var ErrNoDecryptGrant = errors.New("decrypt access not granted")

// Runtime implements fhe.Runtime in plaintext.
type Runtime struct {
	mu     sync.Mutex
	values map[domain.CiphertextHandle]uint64
	grants map[domain.CiphertextHandle]map[domain.Account]struct{}
}

var _ fhe.Runtime = (*Runtime)(nil)

func New() *Runtime {
	return &Runtime{
		values: make(map[domain.CiphertextHandle]uint64),
		grants: make(map[domain.CiphertextHandle]map[domain.Account]struct{}),
	}
}

// EncryptInput plays the client role: it produces the ciphertext/proof pair a
// participant's encryption runtime would hand to the service.
func EncryptInput(value uint64, account domain.Account) fhe.EncryptedInput {
	ct := make([]byte, 8)
	binary.BigEndian.PutUint64(ct, value)
	return fhe.EncryptedInput{
		Ciphertext: ct,
		Proof:      proofFor(ct, account),
	}
}

func proofFor(ciphertext []byte, account domain.Account) []byte {
	h := sha256.New()
	h.Write(ciphertext)
	h.Write([]byte(account))
	return h.Sum(nil)
}

func (r *Runtime) VerifyAndImport(_ context.Context, input fhe.EncryptedInput, account domain.Account) (domain.CiphertextHandle, error) {
	if len(input.Ciphertext) != 8 {
		return "", domain.ErrInvalidProof
	}
	if !bytes.Equal(input.Proof, proofFor(input.Ciphertext, account)) {
		return "", domain.ErrInvalidProof
	}
	return r.mint(binary.BigEndian.Uint64(input.Ciphertext)), nil
}

func (r *Runtime) GrantDecryptAccess(_ context.Context, handle domain.CiphertextHandle, account domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.values[handle]; !ok {
		return fmt.Errorf("grant %q: %w", handle, ErrUnknownHandle)
	}
	accounts, ok := r.grants[handle]
	if !ok {
		accounts = make(map[domain.Account]struct{})
		r.grants[handle] = accounts
	}
	accounts[account] = struct{}{}
	return nil
}

func (r *Runtime) Encrypt64(_ context.Context, value uint64) (domain.CiphertextHandle, error) {
	return r.mint(value), nil
}

func (r *Runtime) Eq(_ context.Context, a, b domain.CiphertextHandle) (domain.CiphertextHandle, error) {
	va, vb, err := r.pair(a, b)
	if err != nil {
		return "", err
	}
	if va == vb {
		return r.mint(1), nil
	}
	return r.mint(0), nil
}

func (r *Runtime) ScalarMul(_ context.Context, h domain.CiphertextHandle, k uint64) (domain.CiphertextHandle, error) {
	r.mu.Lock()
	v, ok := r.values[h]
	r.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("scalar mul %q: %w", h, ErrUnknownHandle)
	}
	return r.mint(v * k), nil
}

func (r *Runtime) Add(_ context.Context, a, b domain.CiphertextHandle) (domain.CiphertextHandle, error) {
	va, vb, err := r.pair(a, b)
	if err != nil {
		return "", err
	}
	return r.mint(va + vb), nil
}

// Decrypt plays the client role after a grant. The real runtime performs this
// off-service against a signed authorization; the mock just checks the grant.
func (r *Runtime) Decrypt(handle domain.CiphertextHandle, account domain.Account) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.values[handle]
	if !ok {
		return 0, fmt.Errorf("decrypt %q: %w", handle, ErrUnknownHandle)
	}
	if _, ok := r.grants[handle][account]; !ok {
		return 0, ErrNoDecryptGrant
	}
	return v, nil
}

// Granted reports whether account may decrypt handle.
func (r *Runtime) Granted(handle domain.CiphertextHandle, account domain.Account) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.grants[handle][account]
	return ok
}

func (r *Runtime) mint(value uint64) domain.CiphertextHandle {
	handle := domain.CiphertextHandle(uuid.NewString())
	r.mu.Lock()
	r.values[handle] = value
	r.mu.Unlock()
	return handle
}

func (r *Runtime) pair(a, b domain.CiphertextHandle) (uint64, uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	va, ok := r.values[a]
	if !ok {
		return 0, 0, fmt.Errorf("operand %q: %w", a, ErrUnknownHandle)
	}
	vb, ok := r.values[b]
	if !ok {
		return 0, 0, fmt.Errorf("operand %q: %w", b, ErrUnknownHandle)
	}
	return va, vb, nil
}
