package cache

import "testing"

func TestSealOpenRoundTrip(t *testing.T) {
	k := newScopeKeyring([]byte("master-key"))
	sealed, err := k.seal("scope-1", "cache-key", []byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	plain, err := k.open("scope-1", "cache-key", sealed)
	if err != nil {
		t.Fatal(err)
	}
	if string(plain) != "payload" {
		t.Fatalf("open = %q, want payload", plain)
	}
}

func TestOpenWrongScopeFails(t *testing.T) {
	k := newScopeKeyring([]byte("master-key"))
	sealed, err := k.seal("scope-1", "cache-key", []byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := k.open("scope-2", "cache-key", sealed); err == nil {
		t.Fatal("expected decryption under a different scope to fail")
	}
}

func TestOpenTamperedCiphertextFails(t *testing.T) {
	k := newScopeKeyring([]byte("master-key"))
	sealed, err := k.seal("scope-1", "cache-key", []byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	sealed[len(sealed)-1] ^= 0xFF
	if _, err := k.open("scope-1", "cache-key", sealed); err == nil {
		t.Fatal("expected tampered ciphertext to fail authentication")
	}
}

func TestOpenWrongAADFails(t *testing.T) {
	k := newScopeKeyring([]byte("master-key"))
	sealed, err := k.seal("scope-1", "cache-key", []byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := k.open("scope-1", "different-key", sealed); err == nil {
		t.Fatal("expected a mismatched AAD (cache key) to fail authentication")
	}
}

func TestScopeKeyringCloseZeroesMasterKey(t *testing.T) {
	master := []byte("master-key-material")
	k := newScopeKeyring(master)
	k.close()
	for i, b := range master {
		if b != 0 {
			t.Fatalf("master key byte %d not zeroed: %v", i, master)
		}
	}
}

func TestPageTransformRoundTrip(t *testing.T) {
	pt := NewPageTransform([]byte("master-key"))
	logical := []byte("sixteen-byte-page-ish-content-here")
	sealed, err := pt.Seal(7, logical)
	if err != nil {
		t.Fatal(err)
	}
	opened, err := pt.Open(7, sealed)
	if err != nil {
		t.Fatal(err)
	}
	if string(opened) != string(logical) {
		t.Fatalf("Open = %q, want %q", opened, logical)
	}
}

func TestPageTransformWrongPageNoFails(t *testing.T) {
	pt := NewPageTransform([]byte("master-key"))
	sealed, err := pt.Seal(7, []byte("content"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := pt.Open(8, sealed); err == nil {
		t.Fatal("expected decryption keyed to a different page number to fail")
	}
}
