package cache

import (
	"encoding/binary"
	"fmt"

	"github.com/revred/sharc/internal/sharcerr"
)

const pageAEADInfo = "SHARC_PAGE_v1"

// PageTransform implements pagesource.PageTransform (spec.md L1): at-rest
// AES-256-GCM page encryption keyed by page number. It reuses
// scopeKeyring's HKDF derivation with the page number as salt instead of
// a cache scope, so sealing a page never shares a key with any cache
// entry even when both draw from the same master key.
type PageTransform struct {
	keys *scopeKeyring
}

// NewPageTransform derives per-page AEAD keys from masterKey.
func NewPageTransform(masterKey []byte) *PageTransform {
	return &PageTransform{keys: newScopeKeyring(masterKey)}
}

func pageScope(pageNo uint32) string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], pageNo)
	return pageAEADInfo + ":" + string(b[:])
}

// Open decrypts stored page bytes into logical page bytes.
func (t *PageTransform) Open(pageNo uint32, stored []byte) ([]byte, error) {
	plain, err := t.keys.open(pageScope(pageNo), "", stored)
	if err != nil {
		return nil, fmt.Errorf("%w: page %d AEAD open failed", sharcerr.ErrCryptographicFailure, pageNo)
	}
	return plain, nil
}

// Seal encrypts logical page bytes for storage.
func (t *PageTransform) Seal(pageNo uint32, logical []byte) ([]byte, error) {
	return t.keys.seal(pageScope(pageNo), "", logical)
}
