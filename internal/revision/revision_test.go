package revision

import "testing"

func TestParseInterns(t *testing.T) {
	a, err := Parse("1.2.4.3")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Parse("1.2.4.3")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("expected interned equality, got distinct values")
	}
}

func TestParseRejectsStrayZero(t *testing.T) {
	if _, err := Parse("1.0.4.3"); err == nil {
		t.Fatal("expected error for zero part outside branchpoint slot")
	}
}

func TestIsBranch(t *testing.T) {
	if !MustParse("1.2.0.4").IsBranch() {
		t.Fatal("1.2.0.4 should be a branch marker")
	}
	if MustParse("1.2.4.3").IsBranch() {
		t.Fatal("1.2.4.3 should not be a branch marker")
	}
	if MustParse("1.2").IsBranch() {
		t.Fatal("trunk revision should not be a branch marker")
	}
}

func TestBranchpoint(t *testing.T) {
	if got := MustParse("1.2.0.4").Branchpoint(); got != MustParse("1.2") {
		t.Fatalf("branchpoint of 1.2.0.4 = %v, want 1.2", got)
	}
	if got := MustParse("1.2.4.3").Branchpoint(); got != MustParse("1.2") {
		t.Fatalf("branchpoint of 1.2.4.3 = %v, want 1.2", got)
	}
}

func TestDirectlyPrecedes(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"1.1", "1.2", true},
		{"1.2", "1.1", false},
		{"1.2.4.3", "1.2.4.4", true},
		{"1.2", "1.2.4.1", true},  // branchpoint -> first rev on branch
		{"1.2", "1.2.4.2", false}, // not the *first* branch revision
		{"1.1", "1.3", false},
	}
	for _, c := range cases {
		got := MustParse(c.a).DirectlyPrecedes(MustParse(c.b))
		if got != c.want {
			t.Errorf("%s.DirectlyPrecedes(%s) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestPrecedes(t *testing.T) {
	if !MustParse("1.1").Precedes(MustParse("1.3")) {
		t.Fatal("1.1 should precede 1.3 on trunk")
	}
	if MustParse("1.3").Precedes(MustParse("1.1")) {
		t.Fatal("1.3 should not precede 1.1")
	}
	if MustParse("1.2.4.1").Precedes(MustParse("1.3")) {
		t.Fatal("revisions on different lines should not precede each other")
	}
}

func TestEmptyRevision(t *testing.T) {
	if !Empty.IsEmpty() {
		t.Fatal("Empty.IsEmpty() should be true")
	}
	if Empty.String() != "" {
		t.Fatalf("Empty.String() = %q, want empty", Empty.String())
	}
	if Empty.DirectlyPrecedes(MustParse("1.1")) {
		t.Fatal("Empty should not directly precede anything")
	}
}
