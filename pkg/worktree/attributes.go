package worktree

import (
	"bufio"
	"bytes"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// AttributesFileName is the path-attribute rule file spec 4.G's
// "<attributes-file>" names. Unlike IgnoreFileName, the teacher has no
// equivalent of this matcher at all — it's new, built from the same glob
// syntax and layering rules the ignore matcher uses, per spec 4.G's
// "same pattern syntax" note.
const AttributesFileName = ".glyphattributes"

// attrLayer is one attributes file's rules, scoped to its directory.
type attrLayer struct {
	dir      string
	patterns []*pattern
}

func (l *attrLayer) within(relPath string) bool {
	if l.dir == "" {
		return true
	}
	return relPath == l.dir || strings.HasPrefix(relPath, l.dir+"/")
}

// AttributesMatcher resolves the set of named attributes (line_ending,
// merge, diff, export-ignore, ...) that apply to a path, using the same
// first-match-wins-within-a-file / deeper-overrides-shallower precedence
// as IgnoreMatcher, but merging at the attribute-key level rather than a
// single ignored/not-ignored verdict: a deeper layer only overrides the
// specific keys it sets, leaving attributes set by a shallower layer (and
// not mentioned again) in effect.
type AttributesMatcher struct {
	layers []attrLayer
}

// parseAttrLine parses one ".glyphattributes" line: a pattern followed by
// whitespace-separated "key=value" or "key" (a bare key means value "set")
// or "-key" (unset).
func parseAttrLine(line string) *pattern {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return nil
	}
	p := parsePatternLine(fields[0])
	if p == nil {
		return nil
	}
	p.attrs = make(map[string]string, len(fields)-1)
	for _, f := range fields[1:] {
		if strings.HasPrefix(f, "-") {
			p.attrs[f[1:]] = ""
			continue
		}
		key, val, ok := strings.Cut(f, "=")
		if !ok {
			val = "set"
		}
		p.attrs[key] = val
	}
	return p
}

// LoadAttributesMatcher walks root for AttributesFileName at every
// directory level, same traversal as LoadIgnoreMatcher.
func LoadAttributesMatcher(root string) (*AttributesMatcher, error) {
	m := &AttributesMatcher{}
	dirs, err := listDirs(root)
	if err != nil {
		return nil, err
	}
	for _, d := range dirs {
		full := filepath.Join(root, d)
		data, err := os.ReadFile(filepath.Join(full, AttributesFileName))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		l := attrLayer{dir: d}
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			if p := parseAttrLine(scanner.Text()); p != nil {
				l.patterns = append(l.patterns, p)
			}
		}
		m.layers = append(m.layers, l)
	}
	return m, nil
}

// Attributes returns the merged attribute set applying to relPath.
func (m *AttributesMatcher) Attributes(relPath string, isDir bool) map[string]string {
	rel := relPath
	base := path.Base(rel)
	out := make(map[string]string)
	for i := range m.layers {
		l := &m.layers[i]
		if !l.within(relPath) {
			continue
		}
		layerRel := rel
		if l.dir != "" {
			layerRel = strings.TrimPrefix(rel, l.dir+"/")
		}
		for _, p := range l.patterns {
			if p.dirOnly && !isDir {
				continue
			}
			target := layerRel
			if !p.hasSlash {
				target = base
			}
			if !p.matchesTarget(target) {
				continue
			}
			for k, v := range p.attrs {
				out[k] = v
			}
			break // first-match-wins within a file, same as the ignore matcher.
		}
	}
	for k, v := range out {
		if v == "" {
			delete(out, k)
		}
	}
	return out
}

// IsBinary reports whether relPath has the attribute `line_ending=binary`,
// which spec 4.G says forbids any normalization.
func (m *AttributesMatcher) IsBinary(relPath string, isDir bool) bool {
	return m.Attributes(relPath, isDir)["line_ending"] == "binary"
}

// MergeStrategy returns the `merge` attribute value ("" if unset), used by
// pkg/vcsmerge to decide whether a conflicted path gets text markers or a
// binary "prefer ours" resolution.
func (m *AttributesMatcher) MergeStrategy(relPath string, isDir bool) string {
	return m.Attributes(relPath, isDir)["merge"]
}

// ExportIgnore reports whether relPath is marked export-ignore. No archive
// or pack writer in this module consults it.
func (m *AttributesMatcher) ExportIgnore(relPath string, isDir bool) bool {
	return m.Attributes(relPath, isDir)["export-ignore"] == "set"
}
