package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
)

func digestOf(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestNewKey(t *testing.T) {
	d := digestOf("The capital of France is Paris.")

	a := NewKey(d, "all-minilm:l6-v2", "window:500:100")
	b := NewKey(d, "all-minilm:l6-v2", "window:500:100")
	if a != b {
		t.Error("same inputs should produce the same key")
	}

	if c := NewKey(d, "nomic-embed-text", "window:500:100"); c == a {
		t.Error("changing the model should change the key")
	}
	if c := NewKey(d, "all-minilm:l6-v2", "recursive:500:100"); c == a {
		t.Error("changing the splitter should change the key")
	}
	if c := NewKey(digestOf("other"), "all-minilm:l6-v2", "window:500:100"); c.ModelTag != a.ModelTag || c.Digest == a.Digest {
		t.Error("changing the document should change only the digest")
	}
}

func TestParseKey(t *testing.T) {
	key := NewKey(digestOf("doc"), "m", "s")

	parsed, err := ParseKey(key.String())
	if err != nil {
		t.Fatalf("ParseKey failed: %v", err)
	}
	if parsed != key {
		t.Errorf("ParseKey = %+v, want %+v", parsed, key)
	}

	for _, bad := range []string{"", "abc", "nothex-nothex", key.Digest, key.Digest + "-zz", "../" + key.String()} {
		if _, err := ParseKey(bad); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("ParseKey(%q) = %v, want ErrInvalidKey", bad, err)
		}
	}
}

func TestEntry_Validate(t *testing.T) {
	key := NewKey(digestOf("doc"), "m", "s")

	t.Run("aligned", func(t *testing.T) {
		e := NewEntry(key, "a.pdf", "m", "s", []string{"x", "y"}, [][]float32{{1, 0}, {0, 1}})
		if err := e.Validate(); err != nil {
			t.Errorf("Validate failed: %v", err)
		}
		if e.Dimensions != 2 {
			t.Errorf("Dimensions = %d, want 2", e.Dimensions)
		}
	})

	t.Run("empty document", func(t *testing.T) {
		e := NewEntry(key, "empty.pdf", "m", "s", nil, nil)
		if err := e.Validate(); err != nil {
			t.Errorf("empty entry should validate: %v", err)
		}
	})

	t.Run("misaligned", func(t *testing.T) {
		e := NewEntry(key, "a.pdf", "m", "s", []string{"x", "y"}, [][]float32{{1, 0}})
		if err := e.Validate(); !errors.Is(err, ErrCorrupt) {
			t.Errorf("expected ErrCorrupt, got %v", err)
		}
	})

	t.Run("ragged", func(t *testing.T) {
		e := NewEntry(key, "a.pdf", "m", "s", []string{"x", "y"}, [][]float32{{1, 0}, {1}})
		if err := e.Validate(); !errors.Is(err, ErrCorrupt) {
			t.Errorf("expected ErrCorrupt, got %v", err)
		}
	})

	t.Run("version", func(t *testing.T) {
		e := NewEntry(key, "a.pdf", "m", "s", nil, nil)
		e.Version = CurrentVersion + 1
		if err := e.Validate(); !errors.Is(err, ErrUnsupportedVersion) {
			t.Errorf("expected ErrUnsupportedVersion, got %v", err)
		}
	})
}
