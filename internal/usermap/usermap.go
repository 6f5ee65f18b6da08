// Package usermap loads the CVS-login to git-identity mapping file (spec
// §4.16): one "login = Real Name <email>" entry per line.
package usermap

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/esr-cvsgit/cvsgitimport/internal/pipeerr"
)

// Identity is the git committer identity a CVS login maps to.
type Identity struct {
	Name  string
	Email string
}

// Map resolves CVS logins to git identities, falling back to the bare
// login as both name and a synthesized local email when unmapped.
type Map struct {
	byLogin map[string]Identity
}

// Load parses a user-map file from r.
func Load(r io.Reader) (*Map, error) {
	m := &Map{byLogin: map[string]Identity{}}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		login, identity, err := parseLine(line)
		if err != nil {
			return nil, pipeerr.New(pipeerr.Parse, "usermap: line %d: %v", lineNo, err)
		}
		m.byLogin[login] = identity
	}
	if err := scanner.Err(); err != nil {
		return nil, pipeerr.Wrap(pipeerr.Parse, err, "usermap: reading stream")
	}
	return m, nil
}

func parseLine(line string) (string, Identity, error) {
	eq := strings.Index(line, "=")
	if eq < 0 {
		return "", Identity{}, fmt.Errorf("missing '=' in %q", line)
	}
	login := strings.TrimSpace(line[:eq])
	rest := strings.TrimSpace(line[eq+1:])
	if login == "" {
		return "", Identity{}, fmt.Errorf("empty login in %q", line)
	}
	open := strings.LastIndex(rest, "<")
	close := strings.LastIndex(rest, ">")
	if open < 0 || close < open {
		return "", Identity{}, fmt.Errorf("missing <email> in %q", line)
	}
	name := strings.TrimSpace(rest[:open])
	email := strings.TrimSpace(rest[open+1 : close])
	if name == "" || email == "" {
		return "", Identity{}, fmt.Errorf("empty name or email in %q", line)
	}
	return login, Identity{Name: name, Email: email}, nil
}

// Resolve returns login's mapped identity, or a fallback identity built
// from the bare login if no mapping exists.
func (m *Map) Resolve(login string) Identity {
	if id, ok := m.byLogin[login]; ok {
		return id
	}
	return Identity{Name: login, Email: login + "@localhost"}
}

// Len reports how many logins are explicitly mapped.
func (m *Map) Len() int { return len(m.byLogin) }
