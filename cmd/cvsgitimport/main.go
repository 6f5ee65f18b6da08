// Command cvsgitimport converts a legacy `cvs log` (rlog) dump into a git
// fast-import stream, resolving tags and branches against a replayed
// per-branch file state rather than trusting the CVS metadata's own branch
// attachment.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/esr-cvsgit/cvsgitimport/internal/config"
	"github.com/esr-cvsgit/cvsgitimport/internal/contentcache"
	"github.com/esr-cvsgit/cvsgitimport/internal/cvsfetch"
	"github.com/esr-cvsgit/cvsgitimport/internal/diag"
	"github.com/esr-cvsgit/cvsgitimport/internal/fastimport"
	"github.com/esr-cvsgit/cvsgitimport/internal/label"
	"github.com/esr-cvsgit/cvsgitimport/internal/pipeline"
	"github.com/esr-cvsgit/cvsgitimport/internal/progress"
	"github.com/esr-cvsgit/cvsgitimport/internal/renamerules"
	"github.com/esr-cvsgit/cvsgitimport/internal/usermap"
	"github.com/esr-cvsgit/cvsgitimport/internal/vcommit"
)

var (
	rlogFile = kingpin.Arg(
		"rlog",
		"Path to a `cvs log` / rlog dump, or - for stdin.",
	).Default("-").String()

	cvsRoot = kingpin.Flag(
		"cvsroot",
		"CVSROOT to fetch blob content from (cvs -d).",
	).String()
	sandbox = kingpin.Flag(
		"sandbox",
		"Working directory cvs co -p runs from.",
	).Default(".").String()
	output = kingpin.Flag(
		"output",
		"Fast-import stream output path; - for stdout.",
	).Default("-").Short('o').String()
	cacheDir = kingpin.Flag(
		"cache-dir",
		"Directory holding fetched blob content.",
	).Default(".cvsgitimport-cache").String()
	workers = kingpin.Flag(
		"workers",
		"Concurrent cvs co -p fetches in flight at once.",
	).Default("4").Short('w').Int()

	userFile = kingpin.Flag(
		"userfile",
		"Path to a login=Real Name <email> user map.",
	).String()
	mainBranch = kingpin.Flag(
		"main-branch",
		"Name the trunk branch is emitted under.",
	).Default("MAIN").String()
	partialThreshold = kingpin.Flag(
		"partial-label-threshold",
		"Tolerate up to this many missing/misplaced files before a label is left unresolved.",
	).Default("0").Int()
	continueOnError = kingpin.Flag(
		"continue-on-error",
		"Downgrade unresolvable labels to warnings instead of aborting.",
	).Bool()
	noReorder = kingpin.Flag(
		"no-reorder",
		"Never split or move commits to resolve a label; mark it unresolved instead.",
	).Bool()
	fussy = kingpin.Flag(
		"fussy",
		"Flag commits whose member timestamps span more than a minute.",
	).Bool()
	encoding = kingpin.Flag(
		"encoding",
		"IANA character encoding the rlog stream is written in (default UTF-8).",
	).String()
	headOnlyAsOf = kingpin.Flag(
		"head-only-as-of",
		"Timestamp (RFC3339) stamped on synthetic head-only overlay commits.",
	).String()

	stripAdvertising = kingpin.Flag(
		"strip-advertising",
		`Strip a leading RCS keyword-banner line (e.g. "$Id: ... $") from fetched content.`,
	).Bool()
	normalizeLineEndings = kingpin.Flag(
		"normalize-line-endings",
		"Rewrite CRLF and lone CR line endings in fetched content to LF.",
	).Bool()

	renameTag      = kingpin.Flag("rename-tag", "PATTERN=REPLACEMENT, +PATTERN, or -PATTERN for tag names.").Strings()
	renameBranch   = kingpin.Flag("rename-branch", "PATTERN=REPLACEMENT, +PATTERN, or -PATTERN for branch names.").Strings()
	renameFile     = kingpin.Flag("rename-file", "PATTERN=REPLACEMENT, +PATTERN, or -PATTERN for file paths.").Strings()
	renameHeadOnly = kingpin.Flag("head-only", "+PATTERN marks matching file paths as head-only (kept out of history, tip state only) and matching branch names as getting a head-only tip commit.").Strings()

	logClasses = kingpin.Flag("log", "Enable a diagnostic class (repeatable): shout, warn, topology, ancestry, tagfix, merge, playback, baton.").Strings()
	verbose    = kingpin.Flag("verbose", "Shorthand for every diagnostic class.").Short('v').Bool()

	configPath = kingpin.Flag("config", "YAML file of defaults for the flags above; a flag whose value differs from its default wins over the file.").String()
)

func main() {
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate).Version("0.1.0").Author("the cvsgitimport authors")
	kingpin.CommandLine.Help = "Reconstructs a git history from a CVS repository's rlog metadata.\n"
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	if err := run(); err != nil {
		logrus.Errorf("%v", err)
		os.Exit(1)
	}
}

func run() error {
	if err := applyConfig(*configPath); err != nil {
		return err
	}

	mask, err := resolveLogMask(*logClasses, *verbose)
	if err != nil {
		return err
	}
	log := diag.New(mask)

	rules, err := buildRules()
	if err != nil {
		return err
	}

	users, err := loadUsers(*userFile)
	if err != nil {
		return err
	}

	asOf := time.Now()
	if *headOnlyAsOf != "" {
		asOf, err = time.Parse(time.RFC3339, *headOnlyAsOf)
		if err != nil {
			return fmt.Errorf("cvsgitimport: --head-only-as-of: %w", err)
		}
	}

	cfg := pipeline.Config{
		Rules:                 rules,
		Users:                 users,
		MainBranch:            *mainBranch,
		PartialLabelThreshold: *partialThreshold,
		ContinueOnError:       *continueOnError,
		NoReorder:             *noReorder,
		FussyVerify:           *fussy,
		HeadOnlyAsOf:          asOf,
		SourceEncoding:        *encoding,
	}

	in, err := openInput(*rlogFile)
	if err != nil {
		return err
	}
	defer in.Close()

	driver := pipeline.NewDriver(cfg, log, progress.NewLogReporter(log, 500))
	result, err := driver.Run(context.Background(), in)
	if err != nil {
		return err
	}
	for _, w := range result.VerifyErrors {
		log.Shout("%s", w)
	}
	for _, tr := range result.TagResults {
		if tr.Status != label.Resolved {
			log.Logf(diag.ClassTagfix, "tag %s: %s %v", tr.Label, tr.Status, tr.Warnings)
		}
	}
	for _, br := range result.BranchResults {
		if br.Status != label.Resolved {
			log.Logf(diag.ClassAncestry, "branch %s: %s %v", br.Branch, br.Status, br.Warnings)
		}
	}

	out, err := openOutput(*output)
	if err != nil {
		return err
	}
	defer out.Close()

	cache, err := contentcache.New(*cacheDir, *workers, cvsfetch.Fetcher{Root: *cvsRoot, Sandbox: *sandbox}.Fetch)
	if err != nil {
		return err
	}
	defer cache.Close()

	fw := fastimport.NewWriter(out)
	return pipeline.Emit(fw, result.Stream, cfg.MainBranch, fileOpsFor(cache, fw))
}

// fileOpsFor builds the per-commit fileop resolver pipeline.Emit calls:
// one blob per live member fetched through cache, one D per dead member.
// The two text toggles below operate on the raw fetched bytes, same as the
// legacy tool's own content-side CLI switches; the core pipeline never
// sees or cares about file content.
func fileOpsFor(cache *contentcache.Cache, fw *fastimport.Writer) func(*vcommit.Commit) ([]fastimport.FileOp, error) {
	return func(c *vcommit.Commit) ([]fastimport.FileOp, error) {
		c.SortMembersByPath()
		ops := make([]fastimport.FileOp, 0, len(c.Members))
		for _, m := range c.Members {
			if m.Dead {
				ops = append(ops, fastimport.FileOp{Path: m.File.Name, Delete: true})
				continue
			}
			path, err := cache.Get(m.File.Name, m.Rev.String())
			if err != nil {
				return nil, err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("cvsgitimport: reading cached blob: %w", err)
			}
			data = normalizeContent(data)
			mark := fw.Blob(data)
			ops = append(ops, fastimport.FileOp{Path: m.File.Name, Mode: "100644", Mark: mark})
		}
		return ops, nil
	}
}

var advertisingBanner = regexp.MustCompile(`^\$(Id|Header|Log|Revision|Source|Date|Author):[^\n$]*\$\r?\n`)

// normalizeContent applies the --strip-advertising and
// --normalize-line-endings toggles, in that order, to one file's content.
func normalizeContent(data []byte) []byte {
	if *stripAdvertising {
		data = advertisingBanner.ReplaceAll(data, nil)
	}
	if *normalizeLineEndings {
		data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
		data = bytes.ReplaceAll(data, []byte("\r"), []byte("\n"))
	}
	return data
}

// applyConfig loads path, if given, and fills in any flag still at its
// default or zero value from it. kingpin has already written the parsed
// flags into these same package-level vars by the time applyConfig runs,
// so a flag whose value differs from its default wins; a flag typed with
// its default value (including a false bool) cannot be told apart from an
// untyped one and takes the config value.
func applyConfig(path string) error {
	if path == "" {
		return nil
	}
	f, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	if *cvsRoot == "" {
		*cvsRoot = f.CVSRoot
	}
	if *sandbox == "." && f.Sandbox != "" {
		*sandbox = f.Sandbox
	}
	if *cacheDir == ".cvsgitimport-cache" && f.CacheDir != "" {
		*cacheDir = f.CacheDir
	}
	if *workers == 4 && f.Workers != 0 {
		*workers = f.Workers
	}
	if *userFile == "" {
		*userFile = f.UserFile
	}
	if *mainBranch == "MAIN" && f.MainBranch != "" {
		*mainBranch = f.MainBranch
	}
	if *partialThreshold == 0 && f.PartialLabel != 0 {
		*partialThreshold = f.PartialLabel
	}
	if !*continueOnError {
		*continueOnError = f.ContinueOnErr
	}
	if !*noReorder {
		*noReorder = f.NoReorder
	}
	if !*fussy {
		*fussy = f.Fussy
	}
	if *encoding == "" {
		*encoding = f.Encoding
	}
	if len(*renameTag) == 0 {
		*renameTag = f.RenameTag
	}
	if len(*renameBranch) == 0 {
		*renameBranch = f.RenameBranch
	}
	if len(*renameFile) == 0 {
		*renameFile = f.RenameFile
	}
	if len(*renameHeadOnly) == 0 {
		*renameHeadOnly = f.HeadOnly
	}
	if len(*logClasses) == 0 {
		*logClasses = f.LogClasses
	}
	if !*stripAdvertising {
		*stripAdvertising = f.StripAdvertising
	}
	if !*normalizeLineEndings {
		*normalizeLineEndings = f.NormalizeLineEndings
	}
	return nil
}

func resolveLogMask(names []string, verbose bool) (diag.Class, error) {
	if verbose {
		var mask diag.Class
		for _, name := range []string{"shout", "warn", "topology", "ancestry", "tagfix", "merge", "playback", "baton"} {
			c, _ := diag.ClassByName(name)
			mask |= c
		}
		return mask, nil
	}
	mask := diag.ClassShout | diag.ClassWarn
	for _, name := range names {
		c, ok := diag.ClassByName(name)
		if !ok {
			return 0, fmt.Errorf("cvsgitimport: unknown --log class %q", name)
		}
		mask |= c
	}
	return mask, nil
}

func loadUsers(path string) (*usermap.Map, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cvsgitimport: opening userfile: %w", err)
	}
	defer f.Close()
	return usermap.Load(f)
}

func openInput(path string) (*os.File, error) {
	if path == "-" {
		return os.Stdin, nil
	}
	return os.Open(path)
}

func openOutput(path string) (*os.File, error) {
	if path == "-" {
		return os.Stdout, nil
	}
	return os.Create(path)
}

// buildRules parses every --rename-*/--head-only flag into the ordered
// renamerules.Rule list the pipeline's rule chains consume.
func buildRules() ([]renamerules.Rule, error) {
	var rules []renamerules.Rule
	groups := []struct {
		target renamerules.Target
		specs  []string
	}{
		{renamerules.TargetTag, *renameTag},
		{renamerules.TargetBranch, *renameBranch},
		{renamerules.TargetFile, *renameFile},
		{renamerules.TargetHeadOnly, *renameHeadOnly},
	}
	for _, g := range groups {
		for _, spec := range g.specs {
			rule, err := parseRuleSpec(g.target, spec)
			if err != nil {
				return nil, err
			}
			rules = append(rules, rule)
		}
	}
	return rules, nil
}

// parseRuleSpec parses one rule flag value: "+PATTERN" includes, "-PATTERN"
// excludes, and "PATTERN=REPLACEMENT" renames matches of PATTERN to
// REPLACEMENT (backreferences allowed, per regexp.ReplaceAllString).
func parseRuleSpec(target renamerules.Target, spec string) (renamerules.Rule, error) {
	switch {
	case strings.HasPrefix(spec, "+"):
		re, err := regexp.Compile(spec[1:])
		if err != nil {
			return renamerules.Rule{}, fmt.Errorf("cvsgitimport: %s rule %q: %w", target, spec, err)
		}
		return renamerules.NewFilterRule(target, re, true), nil
	case strings.HasPrefix(spec, "-"):
		re, err := regexp.Compile(spec[1:])
		if err != nil {
			return renamerules.Rule{}, fmt.Errorf("cvsgitimport: %s rule %q: %w", target, spec, err)
		}
		return renamerules.NewFilterRule(target, re, false), nil
	default:
		parts := strings.SplitN(spec, "=", 2)
		if len(parts) != 2 {
			return renamerules.Rule{}, fmt.Errorf("cvsgitimport: %s rule %q: expected PATTERN=REPLACEMENT, +PATTERN, or -PATTERN", target, spec)
		}
		re, err := regexp.Compile(parts[0])
		if err != nil {
			return renamerules.Rule{}, fmt.Errorf("cvsgitimport: %s rule %q: %w", target, spec, err)
		}
		return renamerules.NewRenameRule(target, re, parts[1]), nil
	}
}
