// Package buildctx inspects a container build context for secret files that
// .dockerignore fails to exclude and for COPY sources the context lacks.
package buildctx

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/moby/patternmatcher"
	"github.com/moby/patternmatcher/ignorefile"
)

const (
	// IgnoreFile is the name of the ignore file read from the context root.
	IgnoreFile = ".dockerignore"
	// Recipe is the container build file read from the context root.
	Recipe = "Dockerfile"
)

var (
	// SecretPatterns match file base names that must never reach an image.
	SecretPatterns = []string{".env", ".env.*"}
	// AllowedFiles are base names exempt from SecretPatterns.
	AllowedFiles = []string{".env.example"}
)

// Report lists secret files that would be sent with the build context and
// COPY sources it would not contain.
type Report struct {
	Dir      string
	Patterns []string
	Leaked   []string
	Missing  []string
}

// OK reports whether no secret file would be sent and every COPY source is
// present.
func (r *Report) OK() bool { return len(r.Leaked) == 0 && len(r.Missing) == 0 }

// LoadPatterns reads the ignore patterns in dir. A missing file yields none.
func LoadPatterns(dir string) ([]string, error) {
	f, err := os.Open(filepath.Join(dir, IgnoreFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	patterns, err := ignorefile.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", IgnoreFile, err)
	}
	return patterns, nil
}

// Check walks dir and returns the secret files not excluded by its
// .dockerignore, plus the Dockerfile COPY sources missing from the context.
func Check(dir string) (*Report, error) {
	patterns, err := LoadPatterns(dir)
	if err != nil {
		return nil, err
	}
	pm, err := patternmatcher.New(patterns)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", IgnoreFile, err)
	}

	report := &Report{Dir: dir, Patterns: patterns}
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil || rel == "." {
			return err
		}

		excluded, err := pm.MatchesOrParentMatches(rel)
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Exceptions may re-include files below an excluded directory
			if excluded && !pm.Exclusions() {
				return filepath.SkipDir
			}
			return nil
		}
		if excluded {
			return nil
		}
		if IsSecret(d.Name()) {
			report.Leaked = append(report.Leaked, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}

	sort.Strings(report.Leaked)

	report.Missing, err = missingSources(dir, pm)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// missingSources returns the literal COPY and ADD sources of dir's Dockerfile
// that are absent or excluded from the context. Wildcard sources may match
// nothing and are skipped.
func missingSources(dir string, pm *patternmatcher.PatternMatcher) ([]string, error) {
	f, err := os.Open(filepath.Join(dir, Recipe))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sources, err := CopySources(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", Recipe, err)
	}

	var missing []string
	for _, src := range sources {
		clean := filepath.Clean(filepath.FromSlash(src))
		if strings.ContainsAny(src, "*?[") || clean == "." {
			continue
		}
		if excluded, err := pm.MatchesOrParentMatches(clean); err != nil {
			return nil, err
		} else if excluded {
			missing = append(missing, src)
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, clean)); err != nil {
			missing = append(missing, src)
		}
	}
	return missing, nil
}

// CopySources returns the context paths named by COPY and ADD instructions.
// Instructions copying from another stage and remote URLs are skipped.
func CopySources(r io.Reader) ([]string, error) {
	var (
		sources []string
		line    strings.Builder
	)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if line.Len() == 0 && (text == "" || strings.HasPrefix(text, "#")) {
			continue
		}
		if strings.HasSuffix(text, "\\") {
			line.WriteString(strings.TrimSuffix(text, "\\"))
			line.WriteByte(' ')
			continue
		}
		line.WriteString(text)
		sources = append(sources, instructionSources(line.String())...)
		line.Reset()
	}
	if line.Len() > 0 {
		sources = append(sources, instructionSources(line.String())...)
	}
	return sources, scanner.Err()
}

func instructionSources(instruction string) []string {
	fields := strings.Fields(instruction)
	if len(fields) < 3 {
		return nil
	}
	switch strings.ToUpper(fields[0]) {
	case "COPY", "ADD":
	default:
		return nil
	}

	args := fields[1:]
	for len(args) > 0 && strings.HasPrefix(args[0], "--") {
		if strings.HasPrefix(args[0], "--from=") {
			return nil
		}
		args = args[1:]
	}
	if len(args) > 0 && strings.HasPrefix(args[0], "[") {
		var exec []string
		if err := json.Unmarshal([]byte(strings.Join(args, " ")), &exec); err != nil {
			return nil
		}
		args = exec
	}
	if len(args) < 2 {
		return nil
	}

	var sources []string
	for _, src := range args[:len(args)-1] {
		if !strings.Contains(src, "://") {
			sources = append(sources, src)
		}
	}
	return sources
}

// IsSecret reports whether a base name matches SecretPatterns and is not allowed.
func IsSecret(name string) bool {
	for _, allowed := range AllowedFiles {
		if name == allowed {
			return false
		}
	}
	for _, pattern := range SecretPatterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
