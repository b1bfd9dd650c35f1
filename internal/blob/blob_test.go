package blob

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"testing"

	"stencil/internal/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func TestPutGet(t *testing.T) {
	s := newTestStore(t)

	data := []byte("rendered document bytes")
	ref, err := s.Put(data)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	sum := sha256.Sum256(data)
	if want := hex.EncodeToString(sum[:]); ref != want {
		t.Errorf("ref = %q, want %q", ref, want)
	}

	got, err := s.Get(ref)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("Get returned %q, want %q", got, data)
	}
}

func TestPutIdempotent(t *testing.T) {
	s := newTestStore(t)

	ref1, err := s.Put([]byte("same content"))
	if err != nil {
		t.Fatalf("first Put failed: %v", err)
	}
	ref2, err := s.Put([]byte("same content"))
	if err != nil {
		t.Fatalf("second Put failed: %v", err)
	}
	if ref1 != ref2 {
		t.Errorf("refs differ for identical content: %q vs %q", ref1, ref2)
	}
}

func TestPutDoesNotRewrite(t *testing.T) {
	s := newTestStore(t)

	ref, err := s.Put([]byte("original"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Clobber the stored file; a second Put of the same content must not
	// touch it.
	if err := os.WriteFile(s.Path(ref), []byte("tampered"), 0600); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	if _, err := s.Put([]byte("original")); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}

	got, err := s.Get(ref)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "tampered" {
		t.Error("existing blob was rewritten")
	}
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)

	sum := sha256.Sum256([]byte("never stored"))
	_, err := s.Get(hex.EncodeToString(sum[:]))
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestGetMalformedRef(t *testing.T) {
	s := newTestStore(t)

	for _, ref := range []string{"", "abc", "../../etc/passwd", "zz" + string(make([]byte, 62))} {
		if _, err := s.Get(ref); !errors.Is(err, errors.ErrInvalidRequest) {
			t.Errorf("Get(%q): expected INVALID_REQUEST, got %v", ref, err)
		}
	}
}
