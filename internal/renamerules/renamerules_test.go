package renamerules

import (
	"regexp"
	"testing"
)

func TestRenameThenFilterLastMatchWins(t *testing.T) {
	rules := []Rule{
		NewRenameRule(TargetBranch, regexp.MustCompile(`^rel-`), "release-"),
		NewFilterRule(TargetBranch, regexp.MustCompile(`^release-`), true),
		NewFilterRule(TargetBranch, regexp.MustCompile(`^release-old`), false),
	}
	chain := NewChain(TargetBranch, rules)

	renamed := chain.Rename("rel-old-2.0")
	if renamed != "release-old-2.0" {
		t.Fatalf("expected release-old-2.0, got %s", renamed)
	}
	if chain.Included(renamed) {
		t.Fatalf("expected release-old-2.0 excluded by the more specific later rule")
	}
}

func TestHeadOnlyDefaultsFalse(t *testing.T) {
	chain := NewChain(TargetHeadOnly, nil)
	if chain.Included("VENDOR") {
		t.Fatalf("expected head-only default to be false")
	}
}

func TestFileDefaultsTrue(t *testing.T) {
	chain := NewChain(TargetFile, nil)
	if !chain.Included("src/main.go") {
		t.Fatalf("expected file default to be true")
	}
}
