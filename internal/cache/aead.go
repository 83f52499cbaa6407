package cache

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/hkdf"
)

const cacheAEADInfo = "SHARC_CACHE_v1"

// scopeKeyring derives and caches one AES-256-GCM AEAD per scope from a
// single master key, per spec.md §4.11: key = HKDF-SHA256(masterKey,
// salt=UTF-8(scope), info="SHARC_CACHE_v1").
type scopeKeyring struct {
	masterKey []byte

	mu    sync.Mutex
	aeads map[string]cipher.AEAD
}

func newScopeKeyring(masterKey []byte) *scopeKeyring {
	return &scopeKeyring{masterKey: masterKey, aeads: make(map[string]cipher.AEAD)}
}

// zeroBytes overwrites b in place; used to wipe key material that no
// longer needs to live in memory (spec.md §5).
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// close zeroes the master key. Scope AEADs already derived stay live
// (cipher.AEAD gives no access to the key bytes to wipe), but no further
// derivation is possible once masterKey is gone.
func (k *scopeKeyring) close() {
	k.mu.Lock()
	defer k.mu.Unlock()
	zeroBytes(k.masterKey)
}

func (k *scopeKeyring) aeadFor(scope string) (cipher.AEAD, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if a, ok := k.aeads[scope]; ok {
		return a, nil
	}
	key := make([]byte, 32)
	defer zeroBytes(key)
	kdf := hkdf.New(sha256.New, k.masterKey, []byte(scope), []byte(cacheAEADInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive scope key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("construct scope cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("construct scope AEAD: %w", err)
	}
	k.aeads[scope] = gcm
	return gcm, nil
}

// seal encrypts plaintext under scope's key, using cacheKey as AAD. Wire
// format: nonce(12) || ciphertext || tag(16).
func (k *scopeKeyring) seal(scope, cacheKey string, plaintext []byte) ([]byte, error) {
	gcm, err := k.aeadFor(scope)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	sealed := gcm.Seal(nil, nonce, plaintext, []byte(cacheKey))
	return append(nonce, sealed...), nil
}

// open decrypts wire, verifying cacheKey as AAD. A tampered or wrong-scope
// ciphertext returns an error rather than panicking; the caller (Cache.Get)
// turns any error into a plain cache miss per spec.md §4.11.
func (k *scopeKeyring) open(scope, cacheKey string, wire []byte) ([]byte, error) {
	gcm, err := k.aeadFor(scope)
	if err != nil {
		return nil, err
	}
	if len(wire) < gcm.NonceSize() {
		return nil, fmt.Errorf("cache ciphertext too short")
	}
	nonce, ciphertext := wire[:gcm.NonceSize()], wire[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, []byte(cacheKey))
}
