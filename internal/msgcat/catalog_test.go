package msgcat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmbeddedKeys(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := map[string]string{
		KeyConnected:      "connected to the game server",
		KeyAlreadyInMatch: "already in a game",
		KeyUnauthorized:   "Unauthorized",
		KeyGameOver:       "game is over",
	}
	for k, v := range want {
		if got := c.Text(k); got != v {
			t.Errorf("Text(%s) = %q, want %q", k, got, v)
		}
	}
	got := c.TextWith(KeyInvalidIdentity, map[string]any{"Max": 20})
	if got != "invalid username: use 1-20 letters, digits, '_' or '-'" {
		t.Errorf("TextWith(invalid_identity) = %q", got)
	}
}

func TestTextFallsBackToKey(t *testing.T) {
	c := MustDefault()
	if got := c.Text("no.such.key"); got != "no.such.key" {
		t.Fatalf("fallback = %q", got)
	}
	// missing template data renders as an error, so the key comes back
	if got := c.Text(KeyInvalidIdentity); got != KeyInvalidIdentity {
		t.Fatalf("expected key fallback without defaults, got %q", got)
	}
	var nilCat *Catalog
	if got := nilCat.Text(KeyGameOver); got != KeyGameOver {
		t.Fatalf("nil catalog fallback = %q", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("notice:\n  connected: \"welcome\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Text(KeyConnected); got != "welcome" {
		t.Fatalf("override not applied: %q", got)
	}
	if got := c.Text(KeyUnauthorized); got != "Unauthorized" {
		t.Fatalf("untouched key changed: %q", got)
	}
}

func TestOverrideDirDuplicateKeys(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"a.yaml", "b.yml"} {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("game:\n  over: \"done\"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}

func TestOverrideRejectsNonStringLeaves(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("game:\n  over: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("expected unsupported value error")
	}
}
