// Package aggregate groups a stream of FileRevisions into Commits: grouping
// by explicit commit-id, or by (author, message) with a temporal-gap
// heuristic when no commit-id is present.
package aggregate

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/esr-cvsgit/cvsgitimport/internal/vcommit"
)

// GapThreshold is the maximum time between consecutive revisions in the
// same (author, message) group before the group splits into a new commit.
const GapThreshold = 10 * time.Second

var addedOnBranchRE = regexp.MustCompile(`file .* was initially added on branch (\S+?)\.?(?:\s|$)`)

// Aggregate groups revs into Commits sorted by time. A FileRevision
// matching the trunk-1.1-dead "added on another branch" marker pattern
// does not produce a commit; instead it sets the owning FileInfo's
// BranchAddedOn annotation and is dropped from the stream.
func Aggregate(revs []vcommit.FileRevision) []*vcommit.Commit {
	var filtered []vcommit.FileRevision
	for _, fr := range revs {
		if isAddedOnBranchMarker(fr) {
			if m := addedOnBranchRE.FindStringSubmatch(fr.Message); m != nil {
				fr.File.BranchAddedOn = m[1]
			}
			continue
		}
		filtered = append(filtered, fr)
	}

	byCommitID := map[string][]vcommit.FileRevision{}
	var commitIDOrder []string
	byMessage := map[string][]vcommit.FileRevision{}
	var messageOrder []string

	for _, fr := range filtered {
		if fr.CommitID != "" {
			if _, seen := byCommitID[fr.CommitID]; !seen {
				commitIDOrder = append(commitIDOrder, fr.CommitID)
			}
			byCommitID[fr.CommitID] = append(byCommitID[fr.CommitID], fr)
			continue
		}
		key := fr.Author + "\x00" + fr.Message
		if _, seen := byMessage[key]; !seen {
			messageOrder = append(messageOrder, key)
		}
		byMessage[key] = append(byMessage[key], fr)
	}

	var commits []*vcommit.Commit
	for _, id := range commitIDOrder {
		commits = append(commits, vcommit.New(id, byCommitID[id]))
	}
	for _, key := range messageOrder {
		commits = append(commits, splitByGap(byMessage[key])...)
	}

	sort.SliceStable(commits, func(i, j int) bool {
		return commits[i].Time().Before(commits[j].Time())
	})
	return commits
}

// isAddedOnBranchMarker reports whether fr is the trunk-1.1, dead, marker
// revision CVS writes when a file is first added on a branch rather than
// on trunk.
func isAddedOnBranchMarker(fr vcommit.FileRevision) bool {
	return fr.Rev.IsTrunk() && fr.Rev.String() == "1.1" && fr.Dead &&
		addedOnBranchRE.MatchString(fr.Message)
}

// splitByGap sorts a same-(author,message) group by time and breaks it
// wherever consecutive members are more than GapThreshold apart, each
// resulting run becoming its own synthetic commit.
func splitByGap(members []vcommit.FileRevision) []*vcommit.Commit {
	sort.Slice(members, func(i, j int) bool {
		return members[i].Time.Before(members[j].Time)
	})

	var commits []*vcommit.Commit
	var run []vcommit.FileRevision
	seq := 1
	flush := func() {
		if len(run) == 0 {
			return
		}
		id := syntheticID(run[0], seq)
		commits = append(commits, vcommit.New(id, run))
		seq++
		run = nil
	}
	for i, m := range members {
		if i > 0 && m.Time.Sub(members[i-1].Time) > GapThreshold {
			flush()
		}
		run = append(run, m)
	}
	flush()
	return commits
}

// syntheticID encodes "YYMMDD-author-seq" for a commit synthesized by the
// gap heuristic rather than carrying an explicit commit-id.
func syntheticID(first vcommit.FileRevision, seq int) string {
	return fmt.Sprintf("%s-%s-%d", first.Time.Format("060102"), first.Author, seq)
}
