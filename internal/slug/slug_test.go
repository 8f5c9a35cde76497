// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package slug

import (
	"errors"
	"testing"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Growing Tomatoes", "growing-tomatoes"},
		{"  Release Notes 2.1  ", "release-notes-21"},
		{"Q&A: Search Tips", "qa-search-tips"},
		{"Draft -- Not Ready", "draft-not-ready"},
		{"C++ vs Go", "c-vs-go"},
		{"100% Coverage", "100-coverage"},
		{"snake_case_title", "snakecasetitle"},
		{"tabs\tand\nnewlines", "tabs-and-newlines"},
		{"Café Menu", "caf-menu"},
		{"über alles", "ber-alles"},
		{"---edge---", "edge"},
		{"HELLO World", "hello-world"},
		{"!!!", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Generate(tt.in); got != tt.want {
			t.Errorf("Generate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGenerateIsIdempotent(t *testing.T) {
	for _, s := range []string{"growing-tomatoes", "release-2026", "a", "123"} {
		if got := Generate(s); got != s {
			t.Errorf("Generate(%q) = %q", s, got)
		}
		if !Valid(Generate(s)) {
			t.Errorf("Generate(%q) is not a valid slug", s)
		}
	}
}

func TestWithSuffix(t *testing.T) {
	tests := []struct {
		base string
		n    int
		want string
	}{
		{"about", 0, "about"},
		{"about", -1, "about"},
		{"about", 1, "about-1"},
		{"about", 12, "about-12"},
	}
	for _, tt := range tests {
		if got := WithSuffix(tt.base, tt.n); got != tt.want {
			t.Errorf("WithSuffix(%q, %d) = %q, want %q", tt.base, tt.n, got, tt.want)
		}
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"about-us", true},
		{"a", true},
		{"2026-02-25", true},
		{"", false},
		{"About", false},
		{"-about", false},
		{"about-", false},
		{"about--us", false},
		{"about us", false},
		{"über", false},
	}
	for _, tt := range tests {
		if got := Valid(tt.in); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestUnique(t *testing.T) {
	taken := map[string]bool{"x": true, "x-1": true, "x-2": true}

	got, err := Unique("x", func(c string) (bool, error) { return taken[c], nil })
	if err != nil {
		t.Fatalf("Unique: %v", err)
	}
	if got != "x-3" {
		t.Errorf("Unique = %q, want %q", got, "x-3")
	}

	got, err = Unique("y", func(c string) (bool, error) { return taken[c], nil })
	if err != nil {
		t.Fatalf("Unique: %v", err)
	}
	if got != "y" {
		t.Errorf("Unique = %q, want %q", got, "y")
	}
}

func TestUnique_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Unique("x", func(string) (bool, error) { return false, boom })
	if !errors.Is(err, boom) {
		t.Errorf("Unique error = %v, want %v", err, boom)
	}
}
