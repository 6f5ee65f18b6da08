// Package fastimport emits a git fast-import stream: blob, commit, reset,
// and tag commands, with mark bookkeeping so commits and the blobs they
// reference can be cross-linked without knowing the target repository's
// object hashes in advance.
package fastimport

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/esr-cvsgit/cvsgitimport/internal/vcommit"
)

// FileOp is one M or D fileop line within a commit.
type FileOp struct {
	Path   string
	Mode   string // "100644", "100755", or "120000"
	Mark   int    // blob mark this path's content comes from; ignored if Delete
	Delete bool
}

// Writer emits a fast-import stream to an underlying io.Writer.
type Writer struct {
	w     *bufio.Writer
	marks map[*vcommit.Commit]int
	next  int
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w), marks: map[*vcommit.Commit]int{}}
}

// Blob emits a blob command and returns its mark.
func (fw *Writer) Blob(data []byte) int {
	fw.next++
	mark := fw.next
	fmt.Fprintf(fw.w, "blob\nmark :%d\ndata %d\n", mark, len(data))
	fw.w.Write(data)
	fmt.Fprintln(fw.w)
	return mark
}

// MarkOf returns c's commit mark, assigning the next one if c has not
// been emitted or referenced yet.
func (fw *Writer) MarkOf(c *vcommit.Commit) int {
	if m, ok := fw.marks[c]; ok {
		return m
	}
	fw.next++
	fw.marks[c] = fw.next
	return fw.next
}

// Commit emits a commit command for c on ref, with committer identity
// author/email, the given fileops, and (when c.Predecessor/MergeFrom are
// set) from/merge lines referencing their marks.
func (fw *Writer) Commit(ref string, c *vcommit.Commit, author, email string, ops []FileOp) error {
	mark := fw.MarkOf(c)
	fmt.Fprintf(fw.w, "commit %s\n", ref)
	fmt.Fprintf(fw.w, "mark :%d\n", mark)
	writePerson(fw.w, "committer", author, email, c.Time())
	msg := c.Message()
	fmt.Fprintf(fw.w, "data %d\n%s\n", len(msg), msg)
	if c.Predecessor != nil {
		fmt.Fprintf(fw.w, "from :%d\n", fw.MarkOf(c.Predecessor))
	}
	if c.MergeFrom != nil {
		fmt.Fprintf(fw.w, "merge :%d\n", fw.MarkOf(c.MergeFrom))
	}
	for _, op := range ops {
		if op.Delete {
			fmt.Fprintf(fw.w, "D %s\n", op.Path)
			continue
		}
		fmt.Fprintf(fw.w, "M %s :%d %s\n", op.Mode, op.Mark, op.Path)
	}
	fmt.Fprintln(fw.w)
	return fw.w.Flush()
}

// Reset points ref at c's mark, used to create or repoint a branch ref
// outside the main commit sequence (e.g. after a head-only overlay).
func (fw *Writer) Reset(ref string, c *vcommit.Commit) {
	fmt.Fprintf(fw.w, "reset %s\n", ref)
	if c != nil {
		fmt.Fprintf(fw.w, "from :%d\n", fw.MarkOf(c))
	}
	fmt.Fprintln(fw.w)
}

// Tag emits an annotated tag object pointing at c.
func (fw *Writer) Tag(name string, c *vcommit.Commit, tagger, email, message string, at time.Time) error {
	fmt.Fprintf(fw.w, "tag %s\n", name)
	fmt.Fprintf(fw.w, "from :%d\n", fw.MarkOf(c))
	writePerson(fw.w, "tagger", tagger, email, at)
	fmt.Fprintf(fw.w, "data %d\n%s\n", len(message), message)
	fmt.Fprintln(fw.w)
	return fw.w.Flush()
}

// Flush forces any buffered output out to the underlying writer.
func (fw *Writer) Flush() error {
	return fw.w.Flush()
}

func writePerson(w io.Writer, role, name, email string, t time.Time) {
	fmt.Fprintf(w, "%s %s <%s> %d +0000\n", role, name, email, t.Unix())
}
