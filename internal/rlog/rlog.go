// Package rlog scans legacy `cvs log` (a.k.a. rlog) output into raw
// per-file revision records. No original-language source survived
// filtering into the retrieval pack for this component, so the record
// shape here is reconstructed directly from the field list the rest of
// the pipeline needs: file path, keyword-expansion mode, the symbolic-name
// table, and one entry per revision with its timestamp, author, state,
// branches, mergepoint, and log message.
package rlog

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/esr-cvsgit/cvsgitimport/internal/pipeerr"
)

// Revision is one raw revision entry within a RawFile block.
type Revision struct {
	Number     string
	Time       time.Time
	Author     string
	State      string
	Branches   []string
	Mergepoint string
	Message    string
}

// RawFile is everything rlog reports about one versioned file.
type RawFile struct {
	Path             string
	KeywordExpansion bool
	Tags             map[string]string // symbolic name -> revision
	Revisions        []Revision
}

var (
	workingFileRE = regexp.MustCompile(`^Working file: (.+)$`)
	expansionRE   = regexp.MustCompile(`^keyword substitution: (.+)$`)
	tagLineRE     = regexp.MustCompile(`^\s+(\S+):\s+(\S+)$`)
	revisionRE    = regexp.MustCompile(`^revision (\S+)`)
	dateLineRE    = regexp.MustCompile(`^date:\s+([^;]+);\s+author:\s+([^;]+);\s+state:\s+([^;]+);(.*)$`)
	branchesRE    = regexp.MustCompile(`branches:\s+([^;]+);`)
	mergeRE       = regexp.MustCompile(`mergepoint:\s+(\S+);`)

	symbolicNamesHeader = "symbolic names:"
	totalRevisionsHeader = regexp.MustCompile(`^total revisions:`)
	fileSeparator        = strings.Repeat("=", 77)
	revisionSeparator     = strings.Repeat("-", 28)

	dateLayouts = []string{
		"2006/01/02 15:04:05",
		"2006-01-02 15:04:05 -0700",
		time.RFC3339,
	}
)

// Scan reads every file block from r and returns the parsed RawFiles in
// the order rlog emitted them.
func Scan(r io.Reader) ([]RawFile, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	var files []RawFile
	var cur *RawFile
	inSymbolicNames := false

	flush := func() {
		if cur != nil {
			files = append(files, *cur)
			cur = nil
		}
	}

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == fileSeparator:
			flush()
			inSymbolicNames = false
			continue
		case strings.HasPrefix(line, "RCS file:"):
			flush()
			cur = &RawFile{Tags: map[string]string{}}
			continue
		}
		if cur == nil {
			continue
		}

		if m := workingFileRE.FindStringSubmatch(line); m != nil {
			cur.Path = m[1]
			continue
		}
		if m := expansionRE.FindStringSubmatch(line); m != nil {
			cur.KeywordExpansion = m[1] == "kv" || m[1] == "kvl" || m[1] == ""
			continue
		}
		if line == symbolicNamesHeader {
			inSymbolicNames = true
			continue
		}
		if inSymbolicNames {
			if m := tagLineRE.FindStringSubmatch(line); m != nil {
				cur.Tags[m[1]] = m[2]
				continue
			}
			inSymbolicNames = false
		}
		if totalRevisionsHeader.MatchString(line) {
			continue
		}
		if m := revisionRE.FindStringSubmatch(line); m != nil {
			rev, err := scanRevisionBody(scanner, m[1])
			if err != nil {
				return nil, pipeerr.Wrap(pipeerr.Parse, err, "rlog: file %s", cur.Path)
			}
			cur.Revisions = append(cur.Revisions, rev)
			continue
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, pipeerr.Wrap(pipeerr.Parse, err, "rlog: reading stream")
	}
	return files, nil
}

// scanRevisionBody consumes the date/author/state line (with any
// branches/mergepoint fields on it), an optional following "branches:"
// line, and the log message up to the next revision separator or file
// separator.
func scanRevisionBody(scanner *bufio.Scanner, number string) (Revision, error) {
	rev := Revision{Number: number}

	if !scanner.Scan() {
		return rev, fmt.Errorf("unexpected end of stream after revision %s", number)
	}
	dateLine := scanner.Text()
	m := dateLineRE.FindStringSubmatch(dateLine)
	if m == nil {
		return rev, fmt.Errorf("malformed date line for revision %s: %q", number, dateLine)
	}
	t, err := parseDate(m[1])
	if err != nil {
		return rev, fmt.Errorf("revision %s: %w", number, err)
	}
	rev.Time = t
	rev.Author = m[2]
	rev.State = m[3]
	rest := m[4]
	if bm := branchesRE.FindStringSubmatch(rest); bm != nil {
		for _, b := range strings.Split(bm[1], ",") {
			rev.Branches = append(rev.Branches, strings.TrimSpace(b))
		}
	}
	if mm := mergeRE.FindStringSubmatch(rest); mm != nil {
		rev.Mergepoint = mm[1]
	}

	var messageLines []string
	for scanner.Scan() {
		line := scanner.Text()
		if line == revisionSeparator || line == fileSeparator {
			// A fileSeparator consumed here is not lost: the outer loop
			// still flushes the current file when it reaches the next
			// "RCS file:" line.
			break
		}
		if len(messageLines) == 0 && rev.Branches == nil && strings.HasPrefix(line, "branches:") {
			if bm := branchesRE.FindStringSubmatch(line); bm != nil {
				for _, b := range strings.Split(bm[1], ",") {
					rev.Branches = append(rev.Branches, strings.TrimSpace(b))
				}
				continue
			}
		}
		messageLines = append(messageLines, line)
	}
	rev.Message = strings.TrimRight(strings.Join(messageLines, "\n"), "\n")
	return rev, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format %q", s)
}
