// Package transcode decodes a legacy CVS log stream from a named IANA
// character encoding into UTF-8 as it is read. The legacy tool did this
// after the fact, with a "transcode" command that rewrote already-imported
// comment text; here it runs up front, once, on the raw rlog bytes, so
// commit messages and author names never round-trip through the wrong
// codec downstream.
package transcode

import (
	"io"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"github.com/esr-cvsgit/cvsgitimport/internal/pipeerr"
)

// NewReader wraps r so that bytes in the named source encoding decode to
// UTF-8 as they are read. An empty name, or one of the common UTF-8
// spellings, returns r unchanged.
func NewReader(r io.Reader, name string) (io.Reader, error) {
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return r, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, pipeerr.New(pipeerr.Parse, "transcode: unknown encoding %q: %v", name, err)
	}
	if enc == nil {
		return nil, pipeerr.New(pipeerr.Parse, "transcode: encoding %q has no decoder", name)
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}
