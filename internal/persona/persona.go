// Package persona loads character and user cards from YAML files and
// renders the system preamble a bot speaks with.
//
// Cards live under <dir>/chars/<name>.yaml and <dir>/users/<name>.yaml.
// Placeholders {{char}} and {{user}} inside card text are substituted at
// render time, so a card can be written once and paired with any user.
package persona

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// CharCard describes the assistant-side persona.
type CharCard struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Scenario    string `yaml:"scenario,omitempty"`
	Greeting    string `yaml:"greeting,omitempty"`
	Style       string `yaml:"style,omitempty"`
}

// UserCard describes the human-side persona.
type UserCard struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

// Loader reads cards from a personas directory.
type Loader struct {
	dir string
}

func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// LoadChar reads chars/<name>.yaml. A missing file yields a minimal card
// named after the requested persona so a bot can run without any card on
// disk.
func (l *Loader) LoadChar(name string) (CharCard, error) {
	var card CharCard
	path := filepath.Join(l.dir, "chars", name+".yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return CharCard{Name: name}, nil
		}
		return card, fmt.Errorf("read char card %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &card); err != nil {
		return card, fmt.Errorf("parse char card %s: %w", path, err)
	}
	if card.Name == "" {
		card.Name = name
	}
	return card, nil
}

// LoadUser reads users/<name>.yaml, with the same missing-file fallback as
// LoadChar.
func (l *Loader) LoadUser(name string) (UserCard, error) {
	var card UserCard
	path := filepath.Join(l.dir, "users", name+".yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return UserCard{Name: name}, nil
		}
		return card, fmt.Errorf("read user card %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &card); err != nil {
		return card, fmt.Errorf("parse user card %s: %w", path, err)
	}
	if card.Name == "" {
		card.Name = name
	}
	return card, nil
}

// ListChars returns the card names available under chars/.
func (l *Loader) ListChars() []string {
	return listCards(filepath.Join(l.dir, "chars"))
}

// ListUsers returns the card names available under users/.
func (l *Loader) ListUsers() []string {
	return listCards(filepath.Join(l.dir, "users"))
}

func listCards(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		out = append(out, strings.TrimSuffix(name, ".yaml"))
	}
	return out
}

// PairID identifies a (user, char) persona pairing; it keys the history
// file for that conversation.
func PairID(user, char string) string {
	return user + "_with_" + char
}

// Preamble renders the system message for a char/user pairing: the
// character description, scenario, and style, with {{char}} and {{user}}
// placeholders substituted.
func Preamble(char CharCard, user UserCard) string {
	sub := strings.NewReplacer("{{char}}", char.Name, "{{user}}", user.Name)

	var parts []string
	if char.Description != "" {
		parts = append(parts, sub.Replace(char.Description))
	} else {
		parts = append(parts, fmt.Sprintf("You are %s, a helpful assistant.", char.Name))
	}
	if user.Description != "" {
		parts = append(parts, sub.Replace("About {{user}}: "+user.Description))
	}
	if char.Scenario != "" {
		parts = append(parts, sub.Replace("Scenario: "+char.Scenario))
	}
	if char.Style != "" {
		parts = append(parts, sub.Replace("Style: "+char.Style))
	}
	return strings.Join(parts, "\n\n")
}
