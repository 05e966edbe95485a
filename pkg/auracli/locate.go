package auracli

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/davidthor/auractl/pkg/errors"
)

const (
	// BinaryName is looked up on PATH when nothing else is configured.
	BinaryName = "aura-cli"

	// EnvCLIPath overrides the executable location.
	EnvCLIPath = "AURA_CLI_PATH"
)

// Candidates returns the locations tried by Locate, in order:
//  1. explicit override
//  2. configured path (relative to the config directory, then the working directory)
//  3. AURA_CLI_PATH
//  4. aura-cli on PATH
func Candidates(opts Options) []string {
	var out []string
	add := func(c string) {
		c = strings.TrimSpace(c)
		if c == "" {
			return
		}
		for _, existing := range out {
			if existing == c {
				return
			}
		}
		out = append(out, c)
	}

	add(opts.Override)

	if p := expandHome(opts.ConfiguredPath); p != "" {
		if !filepath.IsAbs(p) && opts.ConfigDir != "" {
			add(filepath.Join(opts.ConfigDir, p))
		}
		add(p)
	}

	add(expandHome(os.Getenv(EnvCLIPath)))
	add(BinaryName)
	return out
}

// Locate returns the first candidate that exists as a file or resolves via
// PATH lookup.
func Locate(opts Options) (string, error) {
	candidates := Candidates(opts)
	for _, c := range candidates {
		if p, ok := resolveCandidate(c); ok {
			return p, nil
		}
	}
	return "", errors.ToolNotFound(candidates)
}

func resolveCandidate(c string) (string, bool) {
	if info, err := os.Stat(c); err == nil && !info.IsDir() {
		if abs, err := filepath.Abs(c); err == nil {
			return abs, true
		}
		return c, true
	}
	if p, err := exec.LookPath(c); err == nil {
		return p, true
	}
	return "", false
}

func expandHome(p string) string {
	p = strings.TrimSpace(p)
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
