package usermap

import (
	"strings"
	"testing"
)

func TestLoadAndResolve(t *testing.T) {
	m, err := Load(strings.NewReader("# comment\nalice = Alice Example <alice@example.com>\nbob=Bob Jones<bob@example.com>\n"))
	if err != nil {
		t.Fatal(err)
	}
	if m.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", m.Len())
	}
	id := m.Resolve("alice")
	if id.Name != "Alice Example" || id.Email != "alice@example.com" {
		t.Fatalf("unexpected identity: %+v", id)
	}
	fallback := m.Resolve("carol")
	if fallback.Name != "carol" || fallback.Email != "carol@localhost" {
		t.Fatalf("unexpected fallback: %+v", fallback)
	}
}

func TestLoadRejectsMalformedLine(t *testing.T) {
	if _, err := Load(strings.NewReader("not-a-valid-line\n")); err == nil {
		t.Fatal("expected parse error")
	}
}
