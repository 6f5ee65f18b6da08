// Package vcommit implements the FileRevision and Commit entities: a
// single per-file revision event, and the ordered bag of FileRevisions
// that share commit identity.
//
// Named vcommit (not "commit") to avoid colliding with the ubiquitous
// local variable name `commit` used throughout the pipeline packages.
package vcommit

import (
	"sort"
	"strings"
	"time"

	"github.com/esr-cvsgit/cvsgitimport/internal/catalog"
	"github.com/esr-cvsgit/cvsgitimport/internal/revision"
)

// FileRevision is one (FileInfo, Revision) event.
type FileRevision struct {
	File    *catalog.FileInfo
	Rev     revision.Revision
	Time    time.Time
	Author  string
	CommitID string // possibly empty
	Mergepoint revision.Revision // possibly Empty
	Dead    bool
	Message string
}

// Branch returns the branch this revision lives on, derived from the
// FileInfo's branch table and the revision's own shape.
func (fr FileRevision) Branch() string {
	return BranchOf(fr.File, fr.Rev)
}

// BranchOf derives the branch name that rev lives on for file, via the
// file's branch-marker table. Used both for a FileRevision's own branch
// and for classifying an arbitrary mergepoint revision against the same
// file's branch table.
func BranchOf(file *catalog.FileInfo, rev revision.Revision) string {
	if rev.IsEmpty() || rev.IsTrunk() {
		return "MAIN"
	}
	stem := rev.BranchStem()
	if stem.IsEmpty() {
		return "MAIN"
	}
	if b := file.BranchOfMarker(stem); b != "" {
		return b
	}
	// Marker not registered by name (legacy data omission): fall back to
	// the dotted stem itself so downstream grouping is still stable.
	return stem.String()
}

// Commit is an ordered bag of FileRevisions sharing identity, either by an
// explicit commit-id or by aggregation (internal/aggregate).
type Commit struct {
	// CommitID is the stable identifier: external verbatim, or synthesized
	// as "YYMMDD-author-seq" by the aggregator.
	CommitID string

	// Index is assigned and owned exclusively by
	// internal/branchstream.Collection once this commit joins a branch
	// stream; it is -1 until then.
	Index int

	Members []FileRevision

	Predecessor *Commit
	Successor   *Commit
	MergeFrom   *Commit
	// Branches lists the roots of child branches departing from this
	// commit, i.e. this commit is their branchpoint.
	Branches []*Commit

	Errors []string
}

// ID satisfies catalog.CommitRef.
func (c *Commit) ID() string { return c.CommitID }

// New builds a Commit with the given id and members, index unset.
func New(id string, members []FileRevision) *Commit {
	return &Commit{CommitID: id, Members: members, Index: -1}
}

// Time returns the earliest member time.
func (c *Commit) Time() time.Time {
	if len(c.Members) == 0 {
		return time.Time{}
	}
	earliest := c.Members[0].Time
	for _, m := range c.Members[1:] {
		if m.Time.Before(earliest) {
			earliest = m.Time
		}
	}
	return earliest
}

// Author returns the first member's author.
func (c *Commit) Author() string {
	if len(c.Members) == 0 {
		return ""
	}
	return c.Members[0].Author
}

// Message joins the distinct member messages, in first-seen order.
func (c *Commit) Message() string {
	seen := map[string]bool{}
	var parts []string
	for _, m := range c.Members {
		if m.Message == "" || seen[m.Message] {
			continue
		}
		seen[m.Message] = true
		parts = append(parts, m.Message)
	}
	return strings.Join(parts, "\n")
}

// Branch returns the first member's branch. Callers that need mixed-branch
// detection should use Verify (internal/filter) instead, which records it
// as a non-fatal error on the commit.
func (c *Commit) Branch() string {
	if len(c.Members) == 0 {
		return ""
	}
	return c.Members[0].Branch()
}

// SortMembersByPath gives deterministic emission order for a commit's
// fileops, independent of aggregation order.
func (c *Commit) SortMembersByPath() {
	sort.Slice(c.Members, func(i, j int) bool {
		return c.Members[i].File.Name < c.Members[j].File.Name
	})
}

// AddError appends a non-fatal verification diagnostic.
func (c *Commit) AddError(msg string) {
	c.Errors = append(c.Errors, msg)
}
