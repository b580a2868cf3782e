package persona

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeCard(t *testing.T, dir, kind, name, body string) {
	t.Helper()
	sub := filepath.Join(dir, kind)
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, name+".yaml"), []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadCharCard(t *testing.T) {
	dir := t.TempDir()
	writeCard(t, dir, "chars", "luna", `
name: Luna
description: "{{char}} is a stargazer who calls everyone {{user}}."
scenario: A rooftop at midnight.
`)

	loader := NewLoader(dir)
	card, err := loader.LoadChar("luna")
	if err != nil {
		t.Fatalf("LoadChar: %v", err)
	}
	if card.Name != "Luna" {
		t.Errorf("Name = %q, want Luna", card.Name)
	}
	if card.Scenario == "" {
		t.Error("scenario not parsed")
	}
}

func TestLoadCharMissingFallsBack(t *testing.T) {
	loader := NewLoader(t.TempDir())
	card, err := loader.LoadChar("ghost")
	if err != nil {
		t.Fatalf("LoadChar: %v", err)
	}
	if card.Name != "ghost" {
		t.Errorf("fallback Name = %q, want ghost", card.Name)
	}
}

func TestPreambleSubstitutesPlaceholders(t *testing.T) {
	char := CharCard{Name: "Luna", Description: "{{char}} guides {{user}} through the night sky."}
	user := UserCard{Name: "Sam", Description: "A curious engineer."}

	got := Preamble(char, user)
	if strings.Contains(got, "{{char}}") || strings.Contains(got, "{{user}}") {
		t.Errorf("placeholders not substituted: %q", got)
	}
	if !strings.Contains(got, "Luna guides Sam") {
		t.Errorf("substitution wrong: %q", got)
	}
	if !strings.Contains(got, "About Sam: A curious engineer.") {
		t.Errorf("user description missing: %q", got)
	}
}

func TestPairID(t *testing.T) {
	if got := PairID("sam", "luna"); got != "sam_with_luna" {
		t.Errorf("PairID = %q", got)
	}
}

func TestListChars(t *testing.T) {
	dir := t.TempDir()
	writeCard(t, dir, "chars", "luna", "name: Luna\n")
	writeCard(t, dir, "chars", "echo", "name: Echo\n")

	names := NewLoader(dir).ListChars()
	if len(names) != 2 {
		t.Fatalf("ListChars = %v, want 2 entries", names)
	}
}
