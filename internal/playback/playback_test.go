package playback

import (
	"testing"
	"time"

	"github.com/esr-cvsgit/cvsgitimport/internal/branchstream"
	"github.com/esr-cvsgit/cvsgitimport/internal/catalog"
	"github.com/esr-cvsgit/cvsgitimport/internal/revision"
	"github.com/esr-cvsgit/cvsgitimport/internal/vcommit"
)

func TestOrderRespectsMergeSource(t *testing.T) {
	cat := catalog.New()
	f1 := cat.GetOrCreate("f1")
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	m0 := vcommit.New("m0", []vcommit.FileRevision{{File: f1, Rev: revision.MustParse("1.1"), Time: base}})
	m1 := vcommit.New("m1", []vcommit.FileRevision{{File: f1, Rev: revision.MustParse("1.2"), Time: base.Add(3 * time.Hour)}})
	b0 := vcommit.New("b0", []vcommit.FileRevision{{File: f1, Rev: revision.MustParse("1.1.2.1"), Time: base.Add(time.Hour)}})

	m1.MergeFrom = b0

	stream, err := branchstream.New(map[string][]*vcommit.Commit{
		branchstream.MainBranch: {m0, m1},
		"FEATURE":               {b0},
	}, []string{branchstream.MainBranch, "FEATURE"}, map[string]*vcommit.Commit{"FEATURE": m0})
	if err != nil {
		t.Fatal(err)
	}

	order := Order(stream)
	pos := map[*vcommit.Commit]int{}
	for i, c := range order {
		pos[c] = i
	}
	if pos[b0] >= pos[m1] {
		t.Fatalf("merge source %s must be emitted before %s; order: %v", b0.CommitID, m1.CommitID, ids(order))
	}
	if pos[m0] >= pos[m1] {
		t.Fatalf("predecessor must precede successor")
	}
}

func ids(commits []*vcommit.Commit) []string {
	out := make([]string, len(commits))
	for i, c := range commits {
		out[i] = c.CommitID
	}
	return out
}
