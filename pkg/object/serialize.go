package object

import (
	"bufio"
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MarshalBlob is the identity function: a blob's serialized form is its raw
// bytes, unmodified (line endings preserved byte-exact, per spec 4.B).
func MarshalBlob(b *Blob) []byte {
	if b == nil {
		return nil
	}
	return b.Data
}

func UnmarshalBlob(data []byte) *Blob {
	return &Blob{Data: append([]byte(nil), data...)}
}

// MarshalTree canonicalizes entries by name (rejecting duplicates and
// invalid modes belongs to the store's put_tree, not here) and serializes
// them deterministically so identical entry sets always hash the same,
// regardless of the order they were supplied in (spec P7).
func MarshalTree(t *Tree) []byte {
	entries := append([]TreeEntry(nil), t.Entries...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	var buf bytes.Buffer
	for _, e := range entries {
		fmt.Fprintf(&buf, "%s %s %s\n", e.Mode, e.Name, e.Hash)
	}
	return buf.Bytes()
}

func UnmarshalTree(data []byte) (*Tree, error) {
	var entries []TreeEntry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, " ", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("tree: malformed entry line %q", line)
		}
		entries = append(entries, TreeEntry{Mode: parts[0], Name: parts[1], Hash: Hash(parts[2])})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("tree: scan: %w", err)
	}
	return &Tree{Entries: entries}, nil
}

// MarshalCommit produces the exact canonical form defined in spec §6:
// headers, a blank line, then the message body. It never includes the
// signature — commit_id is a pure function of tree/parents/author/
// committer/message (spec §3, §8 P8); a signature is carried alongside the
// object, not inside its hashed payload.
func MarshalCommit(c *CommitRecord) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.TreeHash)
	for _, p := range c.Parents {
		fmt.Fprintf(&buf, "parent %s\n", p)
	}
	fmt.Fprintf(&buf, "author %s\n", formatIdentity(c.Author))
	fmt.Fprintf(&buf, "committer %s\n", formatIdentity(c.Committer))
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	return buf.Bytes()
}

func formatIdentity(id Identity) string {
	return fmt.Sprintf("%s %s %d %s", id.Name, id.Email, id.Timestamp, id.TZOffset)
}

func parseIdentity(line string) (Identity, error) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return Identity{}, fmt.Errorf("commit: malformed identity line %q", line)
	}
	tz := fields[len(fields)-1]
	tsStr := fields[len(fields)-2]
	email := fields[len(fields)-3]
	name := strings.Join(fields[:len(fields)-3], " ")
	ts, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return Identity{}, fmt.Errorf("commit: identity timestamp %q: %w", tsStr, err)
	}
	return Identity{Name: name, Email: email, Timestamp: ts, TZOffset: tz}, nil
}

// UnmarshalCommit parses the canonical form produced by MarshalCommit.
func UnmarshalCommit(data []byte) (*CommitRecord, error) {
	headerBytes, message, found := bytes.Cut(data, []byte("\n\n"))
	if !found {
		return nil, fmt.Errorf("commit: missing header/message separator")
	}
	c := &CommitRecord{}
	scanner := bufio.NewScanner(bytes.NewReader(headerBytes))
	for scanner.Scan() {
		line := scanner.Text()
		key, rest, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("commit: malformed header line %q", line)
		}
		switch key {
		case "tree":
			c.TreeHash = Hash(rest)
		case "parent":
			c.Parents = append(c.Parents, Hash(rest))
		case "author":
			id, err := parseIdentity(rest)
			if err != nil {
				return nil, err
			}
			c.Author = id
		case "committer":
			id, err := parseIdentity(rest)
			if err != nil {
				return nil, err
			}
			c.Committer = id
		default:
			return nil, fmt.Errorf("commit: unknown header %q", key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("commit: scan header: %w", err)
	}
	if c.TreeHash == "" {
		return nil, fmt.Errorf("commit: missing tree header")
	}
	c.Message = string(message)
	return c, nil
}

// MarshalTag serializes an annotated tag object.
func MarshalTag(t *TagObj) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "object %s\n", t.Target)
	fmt.Fprintf(&buf, "type %s\n", t.TargetType)
	fmt.Fprintf(&buf, "tag %s\n", t.Name)
	fmt.Fprintf(&buf, "tagger %s\n", formatIdentity(t.Tagger))
	buf.WriteByte('\n')
	buf.WriteString(t.Message)
	return buf.Bytes()
}

func UnmarshalTag(data []byte) (*TagObj, error) {
	headerBytes, message, found := bytes.Cut(data, []byte("\n\n"))
	if !found {
		return nil, fmt.Errorf("tag: missing header/message separator")
	}
	t := &TagObj{}
	scanner := bufio.NewScanner(bytes.NewReader(headerBytes))
	for scanner.Scan() {
		line := scanner.Text()
		key, rest, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("tag: malformed header line %q", line)
		}
		switch key {
		case "object":
			t.Target = Hash(rest)
		case "type":
			t.TargetType = ObjectType(rest)
		case "tag":
			t.Name = rest
		case "tagger":
			id, err := parseIdentity(rest)
			if err != nil {
				return nil, err
			}
			t.Tagger = id
		default:
			return nil, fmt.Errorf("tag: unknown header %q", key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("tag: scan header: %w", err)
	}
	t.Message = string(message)
	return t, nil
}
