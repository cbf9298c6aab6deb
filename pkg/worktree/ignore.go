// Package worktree implements spec 4.G: the ignore/attributes matchers,
// status, checkout_tree's three-step safe switch, and restore. Grounded on
// the teacher's pkg/repo/ignore.go (IgnoreChecker) and pkg/repo/status.go,
// generalized from a single root .gotignore file to the layered,
// multi-file precedence spec 4.G asks for.
package worktree

import (
	"bufio"
	"bytes"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// IgnoreFileName is the pattern file spec 4.G's "<ignore-file>" names; it
// may appear in any directory, not just the repository root.
const IgnoreFileName = ".glyphignore"

// ControlDirName is the repository's control directory, always ignored
// (spec's "<ctrl-dir>"), mirroring the teacher's hardcoded ".got"/".git"
// entries in NewIgnoreChecker.
const ControlDirName = ".glyph"

// pattern is one parsed line of a pattern file, shared by the ignore and
// attributes matchers (same glob syntax per spec 4.G).
type pattern struct {
	raw      string
	negated  bool
	dirOnly  bool
	hasSlash bool
	regex    *regexp.Regexp
	attrs    map[string]string // only set for attribute-file patterns
}

func parsePatternLine(line string) *pattern {
	line = strings.TrimRight(line, " \t")
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}
	p := &pattern{}
	if strings.HasPrefix(line, "!") {
		p.negated = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimRight(line, "/")
	}
	p.hasSlash = strings.Contains(line, "/")
	p.raw = line
	if strings.ContainsAny(line, "*?[") {
		p.regex = regexp.MustCompile(globToRegex(line))
	}
	return p
}

func (p *pattern) matchesTarget(target string) bool {
	if p.regex != nil {
		return p.regex.MatchString(target)
	}
	return p.raw == target
}

// globToRegex translates the pattern syntax spec 4.G specifies (`*`, `**`,
// `?`, character classes) into an anchored regex. Grounded on the teacher's
// ignore.go globToRegex, generalized to always compile (the teacher only
// did this for patterns containing "**"; non-slash wildcards went through
// filepath.Match instead — collapsed here into one matcher).
func globToRegex(p string) string {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(p); i++ {
		ch := p[i]
		switch {
		case ch == '*':
			if i+1 < len(p) && p[i+1] == '*' {
				if i+2 < len(p) && p[i+2] == '/' {
					b.WriteString("(?:.*/)?")
					i += 2
					continue
				}
				b.WriteString(".*")
				i++
				continue
			}
			b.WriteString("[^/]*")
		case ch == '?':
			b.WriteString("[^/]")
		case ch == '[':
			j := i + 1
			for j < len(p) && p[j] != ']' {
				j++
			}
			if j < len(p) {
				b.WriteByte('[')
				b.WriteString(p[i+1 : j])
				b.WriteByte(']')
				i = j
				continue
			}
			b.WriteString("\\[")
		case strings.ContainsRune(`.+()|{}^$\`, rune(ch)):
			b.WriteByte('\\')
			b.WriteByte(ch)
		default:
			b.WriteByte(ch)
		}
	}
	b.WriteString("$")
	return b.String()
}

// layer is one pattern file's contents, scoped to the directory it lives
// in (forward-slash, relative to the repository root; "" for the root).
type layer struct {
	dir      string
	patterns []*pattern
}

// within reports whether relPath falls under the layer's directory.
func (l *layer) within(relPath string) bool {
	if l.dir == "" {
		return true
	}
	return relPath == l.dir || strings.HasPrefix(relPath, l.dir+"/")
}

// matchIgnore applies first-match-wins within this single file (spec 4.G's
// explicit ordering, the inverse of a real .gitignore's last-match-wins)
// and returns (ignored, matched).
func (l *layer) matchIgnore(relPath string, isDir bool) (bool, bool) {
	rel := relPath
	if l.dir != "" {
		rel = strings.TrimPrefix(relPath, l.dir+"/")
	}
	base := path.Base(rel)
	for _, p := range l.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		target := rel
		if !p.hasSlash {
			target = base
		}
		if p.matchesTarget(target) {
			return !p.negated, true
		}
	}
	return false, false
}

// IgnoreMatcher compiles one or more pattern files into the layered
// precedence spec 4.G describes: first-match-wins within a file, later
// files override earlier ones, deeper files override shallower ones.
type IgnoreMatcher struct {
	layers []layer
}

// LoadIgnoreMatcher walks root looking for IgnoreFileName at every
// directory level and compiles them into precedence order (shallowest
// first, so later Walk calls — deeper directories — naturally sort last
// and therefore win).
func LoadIgnoreMatcher(root string) (*IgnoreMatcher, error) {
	m := &IgnoreMatcher{}
	dirs, err := listDirs(root)
	if err != nil {
		return nil, err
	}

	for _, d := range dirs {
		full := filepath.Join(root, d)
		data, err := os.ReadFile(filepath.Join(full, IgnoreFileName))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		l := layer{dir: d}
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			if p := parsePatternLine(scanner.Text()); p != nil {
				l.patterns = append(l.patterns, p)
			}
		}
		m.layers = append(m.layers, l)
	}
	return m, nil
}

// NewIgnoreMatcherFromLayers builds a matcher directly from in-memory
// pattern sets, ordered shallowest-directory-first, for callers that
// already have pattern file contents (the worktree and vcsmerge tests).
func NewIgnoreMatcherFromLayers(dirsToPatternText map[string]string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	dirs := make([]string, 0, len(dirsToPatternText))
	for d := range dirsToPatternText {
		dirs = append(dirs, d)
	}
	sort.Slice(dirs, func(i, j int) bool { return strings.Count(dirs[i], "/") < strings.Count(dirs[j], "/") })
	for _, d := range dirs {
		l := layer{dir: d}
		for _, line := range strings.Split(dirsToPatternText[d], "\n") {
			if p := parsePatternLine(line); p != nil {
				l.patterns = append(l.patterns, p)
			}
		}
		m.layers = append(m.layers, l)
	}
	return m
}

// IsIgnored reports whether relPath (forward-slash, relative to the
// repository root) is ignored, consulting the control directory hardcode
// first and then every applicable layer in precedence order.
func (m *IgnoreMatcher) IsIgnored(relPath string, isDir bool) bool {
	if relPath == ControlDirName || strings.HasPrefix(relPath, ControlDirName+"/") {
		return true
	}
	var verdict *bool
	for i := range m.layers {
		l := &m.layers[i]
		if !l.within(relPath) {
			continue
		}
		if v, matched := l.matchIgnore(relPath, isDir); matched {
			verdict = &v
		}
	}
	return verdict != nil && *verdict
}
