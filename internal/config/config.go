// Package config loads the optional YAML settings file cvsgitimport applies
// after flag parsing, the same role a project config file plays in the
// teacher's own dotfiles (.reposurgeonrc-style defaults), just declarative
// here instead of scripted.
package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v2"
)

// File is the on-disk shape of a cvsgitimport config file. Every field
// mirrors a CLI flag of the same purpose; a flag whose command-line value
// differs from its default overrides the value loaded here, while a flag
// left at (or typed as) its default takes this value.
type File struct {
	CVSRoot        string   `yaml:"cvsroot"`
	Sandbox        string   `yaml:"sandbox"`
	CacheDir       string   `yaml:"cache_dir"`
	Workers        int      `yaml:"workers"`
	UserFile       string   `yaml:"userfile"`
	MainBranch     string   `yaml:"main_branch"`
	PartialLabel   int      `yaml:"partial_label_threshold"`
	ContinueOnErr  bool     `yaml:"continue_on_error"`
	NoReorder      bool     `yaml:"no_reorder"`
	Fussy          bool     `yaml:"fussy"`
	Encoding       string   `yaml:"encoding"`
	RenameTag      []string `yaml:"rename_tag"`
	RenameBranch   []string `yaml:"rename_branch"`
	RenameFile     []string `yaml:"rename_file"`
	HeadOnly       []string `yaml:"head_only"`
	LogClasses     []string `yaml:"log"`
	StripAdvertising     bool `yaml:"strip_advertising"`
	NormalizeLineEndings bool `yaml:"normalize_line_endings"`
}

// Load parses a YAML config file from r.
func Load(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: reading: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("config: parsing: %w", err)
	}
	return &f, nil
}

// LoadFile opens and parses path.
func LoadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: opening %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}
