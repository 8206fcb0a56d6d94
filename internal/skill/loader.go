// Package skill discovers script-backed capabilities from a skills directory.
//
// Each sub-directory holding a SKILL.md and one supported script becomes a
// ScriptSkill:
//
//	skills/
//	  weather/
//	    SKILL.md      (front matter: name, description)
//	    script.py
package skill

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the file that marks a directory as a skill.
const ManifestFile = "SKILL.md"

// DefaultDescription is used when the manifest has none.
const DefaultDescription = "No description."

// Runtime describes how a script file is launched.
type Runtime struct {
	Script  string   // file name inside the skill directory
	Program string   // interpreter executable
	Args    []string // interpreter arguments placed before the script path
	Label   string   // used in launch failure messages
}

// Runtimes in order of preference. The first script present wins.
var Runtimes = []Runtime{
	{Script: "script.ps1", Program: "powershell", Args: []string{"-NoProfile", "-ExecutionPolicy", "Bypass", "-File"}, Label: "PowerShell"},
	{Script: "script.py", Program: "python", Label: "Python"},
	{Script: "script.sh", Program: "sh", Label: "sh"},
}

var frontMatter = regexp.MustCompile(`(?s)^---[ \t]*\r?\n(.*?)\r?\n---[ \t]*(\r?\n|$)`)

// Manifest is the YAML front matter of a SKILL.md file.
type Manifest struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// ParseManifest reads the front matter of a SKILL.md body. Missing fields
// fall back to dirName and DefaultDescription; unparsable front matter is
// treated as missing.
func ParseManifest(body []byte, dirName string) Manifest {
	var m Manifest
	if match := frontMatter.FindSubmatch(body); match != nil {
		if err := yaml.Unmarshal(match[1], &m); err != nil {
			m = Manifest{}
		}
	}
	m.Name = strings.TrimSpace(m.Name)
	m.Description = strings.TrimSpace(m.Description)
	if m.Name == "" {
		m.Name = dirName
	}
	if m.Description == "" {
		m.Description = DefaultDescription
	}
	return m
}

// Option configures loaded skills.
type Option func(*options)

type options struct {
	timeout time.Duration
	logger  *slog.Logger
}

// WithTimeout overrides the wall-clock budget of each script run.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Load scans dir and returns its skills sorted by name. A missing directory
// yields no skills and no error. Sub-directories without a manifest or a
// supported script are skipped.
func Load(dir string, opts ...Option) ([]*ScriptSkill, error) {
	o := options{timeout: DefaultTimeout, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read skills dir %s: %w", dir, err)
	}

	var skills []*ScriptSkill
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		s, err := loadOne(filepath.Join(dir, e.Name()), o)
		if err != nil {
			o.logger.Warn("skipping skill",
				slog.String("dir", e.Name()),
				slog.String("error", err.Error()))
			continue
		}
		if s != nil {
			skills = append(skills, s)
		}
	}

	sort.Slice(skills, func(i, j int) bool { return skills[i].name < skills[j].name })
	return skills, nil
}

func loadOne(dir string, o options) (*ScriptSkill, error) {
	body, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rt, script, ok := findScript(dir)
	if !ok {
		return nil, nil
	}

	m := ParseManifest(body, filepath.Base(dir))
	return &ScriptSkill{
		name:        m.Name,
		description: m.Description,
		dir:         dir,
		script:      script,
		runtime:     rt,
		timeout:     o.timeout,
		logger:      o.logger,
	}, nil
}

func findScript(dir string) (Runtime, string, bool) {
	for _, rt := range Runtimes {
		path := filepath.Join(dir, rt.Script)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return rt, path, true
		}
	}
	return Runtime{}, "", false
}
