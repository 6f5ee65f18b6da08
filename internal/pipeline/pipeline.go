// Package pipeline wires every stage of the CVS-to-git conversion into one
// sequence: parse, aggregate, split/filter/verify, branch attachment, tag
// and branch resolution, merge election, head-only overlay, playback
// ordering, and fast-import emission. Each stage is a
// separately testable package; this is only the glue, built so a caller
// (cmd/cvsgitimport) can run the whole thing or stop after any stage for
// inspection.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/esr-cvsgit/cvsgitimport/internal/aggregate"
	"github.com/esr-cvsgit/cvsgitimport/internal/branchstream"
	"github.com/esr-cvsgit/cvsgitimport/internal/catalog"
	"github.com/esr-cvsgit/cvsgitimport/internal/diag"
	"github.com/esr-cvsgit/cvsgitimport/internal/fastimport"
	"github.com/esr-cvsgit/cvsgitimport/internal/filter"
	"github.com/esr-cvsgit/cvsgitimport/internal/headonly"
	"github.com/esr-cvsgit/cvsgitimport/internal/label"
	"github.com/esr-cvsgit/cvsgitimport/internal/merge"
	"github.com/esr-cvsgit/cvsgitimport/internal/pipeerr"
	"github.com/esr-cvsgit/cvsgitimport/internal/playback"
	"github.com/esr-cvsgit/cvsgitimport/internal/progress"
	"github.com/esr-cvsgit/cvsgitimport/internal/renamerules"
	"github.com/esr-cvsgit/cvsgitimport/internal/repostate"
	"github.com/esr-cvsgit/cvsgitimport/internal/revision"
	"github.com/esr-cvsgit/cvsgitimport/internal/rlog"
	"github.com/esr-cvsgit/cvsgitimport/internal/transcode"
	"github.com/esr-cvsgit/cvsgitimport/internal/usermap"
	"github.com/esr-cvsgit/cvsgitimport/internal/vcommit"
)

// Config gathers every pipeline-tunable option, populated from the CLI
// surface in cmd/cvsgitimport.
type Config struct {
	Rules                 []renamerules.Rule
	Users                 *usermap.Map
	MainBranch            string
	PartialLabelThreshold int
	ContinueOnError       bool
	NoReorder             bool
	FussyVerify           bool
	HeadOnlyAsOf          time.Time
	// SourceEncoding is the IANA name of the character encoding the rlog
	// stream is written in, e.g. "ISO-8859-1"; empty means UTF-8.
	SourceEncoding string
}

// Result is everything a caller might want to inspect or emit after a run.
type Result struct {
	Catalog       *catalog.Catalog
	Stream        *branchstream.Collection
	States        *repostate.Collection
	TagResults    []label.Result
	BranchResults []label.BranchMapping
	VerifyErrors  []string
}

// Driver runs the pipeline stages in order.
type Driver struct {
	Config   Config
	Log      *diag.Logger
	Progress progress.Reporter
}

// NewDriver builds a Driver with sane defaults for Log/Progress when nil.
func NewDriver(cfg Config, log *diag.Logger, reporter progress.Reporter) *Driver {
	if log == nil {
		log = diag.New(diag.ClassShout | diag.ClassWarn)
	}
	if reporter == nil {
		reporter = progress.NoOp{}
	}
	if cfg.MainBranch == "" {
		cfg.MainBranch = branchstream.MainBranch
	}
	return &Driver{Config: cfg, Log: log, Progress: reporter}
}

// Run executes every stage against the legacy log stream read from r,
// cancellable between (not within) stages via ctx.
func (d *Driver) Run(ctx context.Context, r io.Reader) (*Result, error) {
	cat, revs, err := d.parse(r)
	if err != nil {
		return nil, err
	}
	if err := checkCanceled(ctx); err != nil {
		return nil, err
	}

	d.Progress.StartStage("aggregate", 0)
	commits := aggregate.Aggregate(revs)
	commits = filter.SplitMultiBranch(commits)
	for _, c := range commits {
		filter.Verify(c, filter.VerifyOptions{Fussy: d.Config.FussyVerify})
	}
	d.Progress.EndStage()
	if err := checkCanceled(ctx); err != nil {
		return nil, err
	}

	headOnlyChain := renamerules.NewChain(renamerules.TargetHeadOnly, d.Config.Rules)
	branchChain := renamerules.NewChain(renamerules.TargetBranch, d.Config.Rules)

	// The shadow collection accumulates only the head-only-designated
	// files' revisions, keyed by their provisional (pre-resolution)
	// branch, completely separate from the full per-branch state built
	// below from the surviving, non-head-only history. headonly.Overlay
	// reads from this collection, not the main one.
	shadow := repostate.NewCollection()
	shadowStates := map[string]filter.HeadOnlyState{}
	for _, b := range distinctBranches(commits, d.Config.MainBranch) {
		st := repostate.NewBranchState(b, false, false)
		shadow.AddRoot(st)
		shadowStates[b] = st
	}
	excludeFilter := &filter.ExclusionFilter{
		BranchExcluded: func(b string) bool { return !branchChain.Included(b) },
		FileHeadOnly:   func(f string) bool { return headOnlyChain.Included(f) },
		HeadOnlyStates: shadowStates,
	}
	commits, err = excludeFilter.Apply(commits)
	if err != nil {
		return nil, pipeerr.Wrap(pipeerr.ImportFailed, err, "applying exclusion filter")
	}

	byBranch, order, branchpointOf := bucketByBranch(commits, d.Config.MainBranch)

	stream, err := branchstream.New(byBranch, order, branchpointOf)
	if err != nil {
		return nil, pipeerr.Wrap(pipeerr.ImportFailed, err, "attaching branch streams")
	}

	states := repostate.NewCollection()
	states.AddRoot(repostate.NewBranchState(d.Config.MainBranch, true, false))
	for _, b := range order {
		if b == d.Config.MainBranch {
			continue
		}
		bp := branchpointOf[b]
		var bpRev revision.Revision
		if bp != nil && len(bp.Members) > 0 {
			bpRev = bp.Members[0].Rev
		}
		if err := states.Branch(d.Config.MainBranch, b, bpRev, true); err != nil {
			d.Log.Logf(diag.ClassAncestry, "branch %q: %v", b, err)
		}
	}
	initialStates := states.Clone()
	for _, c := range stream.Commits() {
		if err := states.Apply(c); err != nil {
			d.Log.Logf(diag.ClassAncestry, "%s: %v", c.CommitID, err)
		}
	}

	resolver := &label.Resolver{
		Catalog: cat,
		Stream:  stream,
		States:  initialStates,
		Opts: label.Options{
			PartialLabelThreshold: d.Config.PartialLabelThreshold,
			ContinueOnError:       d.Config.ContinueOnError,
			NoReorder:             d.Config.NoReorder,
		},
	}

	tagChain := renamerules.NewChain(renamerules.TargetTag, d.Config.Rules)
	var tagResults []label.Result
	for _, tag := range allTags(cat) {
		name := tagChain.Rename(tag)
		if !tagChain.Included(name) {
			continue
		}
		res, err := resolver.Resolve(tag, label.TagCapability)
		if err != nil {
			return nil, err
		}
		res.Label = name
		tagResults = append(tagResults, res)
	}

	branchResults, err := label.MapBranches(resolver, order)
	if err != nil {
		return nil, err
	}

	merge.Resolve(cat, stream, d.Log)

	for _, b := range order {
		if !headOnlyChain.Included(b) || b == d.Config.MainBranch {
			continue
		}
		if _, err := headonly.Overlay(cat, stream, shadow, b, d.Config.MainBranch, d.Config.HeadOnlyAsOf); err != nil {
			d.Log.Logf(diag.ClassWarn, "head-only overlay for %q: %v", b, err)
		}
	}

	playback.Order(stream)

	var verifyErrors []string
	for _, c := range stream.Commits() {
		verifyErrors = append(verifyErrors, c.Errors...)
	}

	return &Result{
		Catalog:       cat,
		Stream:        stream,
		States:        states,
		TagResults:    tagResults,
		BranchResults: branchResults,
		VerifyErrors:  verifyErrors,
	}, nil
}

func (d *Driver) parse(r io.Reader) (*catalog.Catalog, []vcommit.FileRevision, error) {
	d.Progress.StartStage("parse", 0)
	defer d.Progress.EndStage()

	decoded, err := transcode.NewReader(r, d.Config.SourceEncoding)
	if err != nil {
		return nil, nil, err
	}
	rawFiles, err := rlog.Scan(decoded)
	if err != nil {
		return nil, nil, err
	}

	fileChain := renamerules.NewChain(renamerules.TargetFile, d.Config.Rules)
	cat := catalog.New()
	var revs []vcommit.FileRevision

	for _, rf := range rawFiles {
		name := fileChain.Rename(rf.Path)
		if !fileChain.Included(name) {
			continue
		}
		fi := cat.GetOrCreate(name)
		fi.KeywordExpansion = rf.KeywordExpansion

		for tag, revText := range rf.Tags {
			rev, err := revision.Parse(revText)
			if err != nil {
				return nil, nil, pipeerr.Wrap(pipeerr.Parse, err, "file %s: tag %s", rf.Path, tag)
			}
			if rev.IsBranch() {
				if err := fi.SetBranch(tag, rev); err != nil {
					return nil, nil, pipeerr.Wrap(pipeerr.Parse, err, "file %s", rf.Path)
				}
			} else {
				if err := fi.SetTag(tag, rev); err != nil {
					return nil, nil, pipeerr.Wrap(pipeerr.Parse, err, "file %s", rf.Path)
				}
			}
		}

		for _, rr := range rf.Revisions {
			rev, err := revision.Parse(rr.Number)
			if err != nil {
				return nil, nil, pipeerr.Wrap(pipeerr.Parse, err, "file %s: revision %s", rf.Path, rr.Number)
			}
			var mergepoint revision.Revision
			if rr.Mergepoint != "" {
				mergepoint, err = revision.Parse(rr.Mergepoint)
				if err != nil {
					return nil, nil, pipeerr.Wrap(pipeerr.Parse, err, "file %s: mergepoint %s", rf.Path, rr.Mergepoint)
				}
			}
			identity := d.resolveIdentity(rr.Author)
			revs = append(revs, vcommit.FileRevision{
				File:       fi,
				Rev:        rev,
				Time:       rr.Time,
				Author:     identity,
				Mergepoint: mergepoint,
				Dead:       rr.State == "dead",
				Message:    rr.Message,
			})
		}
	}
	return cat, revs, nil
}

func (d *Driver) resolveIdentity(login string) string {
	if d.Config.Users == nil {
		return login
	}
	id := d.Config.Users.Resolve(login)
	return fmt.Sprintf("%s <%s>", id.Name, id.Email)
}

// allTags collects every distinct tag name bound on any file in the
// catalog, sorted for deterministic iteration.
func allTags(cat *catalog.Catalog) []string {
	seen := map[string]bool{}
	for _, fi := range cat.Files() {
		for _, t := range fi.AllTags() {
			seen[t] = true
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// bucketByBranch groups commits by their first member's branch, in
// first-seen branch order, and picks each non-main branch's provisional
// branchpoint as the most recent main-line commit before the branch's
// earliest commit. internal/label.MapBranches corrects this provisional
// attachment once tag/branch resolution has run.
func bucketByBranch(commits []*vcommit.Commit, mainBranch string) (map[string][]*vcommit.Commit, []string, map[string]*vcommit.Commit) {
	byBranch := map[string][]*vcommit.Commit{}
	var order []string
	seen := map[string]bool{}

	for _, c := range commits {
		b := c.Branch()
		if b == "" {
			b = mainBranch
		}
		if !seen[b] {
			seen[b] = true
			order = append(order, b)
		}
		byBranch[b] = append(byBranch[b], c)
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i] == mainBranch {
			return true
		}
		if order[j] == mainBranch {
			return false
		}
		return order[i] < order[j]
	})

	branchpointOf := map[string]*vcommit.Commit{}
	mainCommits := byBranch[mainBranch]
	for _, b := range order {
		if b == mainBranch {
			continue
		}
		members := byBranch[b]
		if len(members) == 0 {
			continue
		}
		earliest := members[0].Time()
		var bp *vcommit.Commit
		for _, mc := range mainCommits {
			if mc.Time().After(earliest) {
				break
			}
			bp = mc
		}
		if bp == nil && len(mainCommits) > 0 {
			bp = mainCommits[0]
		}
		branchpointOf[b] = bp
	}
	return byBranch, order, branchpointOf
}

// Emit writes stream's resolved commits, in playback order, as a git
// fast-import stream through fw. ops resolves each commit's fileops,
// typically emitting its own blob commands against the same fw (so marks
// stay consistent) before returning the M/D lines referencing them; this
// function only sequences the commit/ref structure, it never touches
// content itself.
func Emit(fw *fastimport.Writer, stream *branchstream.Collection, mainBranch string, ops func(*vcommit.Commit) ([]fastimport.FileOp, error)) error {
	for _, c := range playback.Order(stream) {
		fileOps, err := ops(c)
		if err != nil {
			return pipeerr.Wrap(pipeerr.Content, err, "commit %s", c.CommitID)
		}
		ref := "refs/heads/" + c.Branch()
		if c.Branch() == mainBranch {
			ref = "refs/heads/main"
		}
		name, email := splitIdentity(c.Author())
		if err := fw.Commit(ref, c, name, email, fileOps); err != nil {
			return pipeerr.Wrap(pipeerr.ImportFailed, err, "commit %s", c.CommitID)
		}
	}
	return fw.Flush()
}

// distinctBranches returns every branch name appearing in commits, plus
// mainBranch itself, in first-seen order.
func distinctBranches(commits []*vcommit.Commit, mainBranch string) []string {
	seen := map[string]bool{mainBranch: true}
	order := []string{mainBranch}
	for _, c := range commits {
		b := c.Branch()
		if b == "" || seen[b] {
			continue
		}
		seen[b] = true
		order = append(order, b)
	}
	return order
}

// splitIdentity recovers the "Name", "email" pair from the combined
// "Name <email>" form resolveIdentity stores on each FileRevision. With no
// userfile loaded the identity is the bare login, which this returns as
// both name and email, so it never fails to split even then.
func splitIdentity(identity string) (name, email string) {
	open := strings.LastIndex(identity, "<")
	close := strings.LastIndex(identity, ">")
	if open < 0 || close < open {
		return identity, identity
	}
	return strings.TrimSpace(identity[:open]), identity[open+1 : close]
}

func checkCanceled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return pipeerr.Wrap(pipeerr.ImportFailed, ctx.Err(), "pipeline canceled")
	default:
		return nil
	}
}
