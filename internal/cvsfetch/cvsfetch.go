// Package cvsfetch retrieves one file revision's content by shelling out to
// the cvs(1) client, the same way the legacy tool's filter commands and VCS
// capability table invoke external version-control binaries.
package cvsfetch

import (
	"bytes"
	"fmt"
	"os/exec"
)

// Fetcher shells out to `cvs -Q -d root co -p -r revision path` under
// sandbox and returns the stdout bytes, satisfying contentcache.Fetcher.
type Fetcher struct {
	// Root is the CVSROOT, local or :pserver:, passed via cvs -d.
	Root string
	// Sandbox is the directory cvs is invoked from; typically a checked-out
	// working copy or the bare repository itself for a local root.
	Sandbox string
}

// Fetch retrieves path at revision.
func (f Fetcher) Fetch(path, revision string) ([]byte, error) {
	cmd := exec.Command("cvs", "-Q", "-d", f.Root, "co", "-p", "-r", revision, path)
	cmd.Dir = f.Sandbox
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("cvsfetch: co -p -r %s %s: %w: %s", revision, path, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.Bytes(), nil
}
