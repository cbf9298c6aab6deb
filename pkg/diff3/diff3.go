// Package diff3 implements a three-way line merge producing git-style
// conflict markers, used by pkg/vcsmerge to merge a file that was modified
// on both sides of a three-way merge per the "modified differently on both"
// case: segment at matching anchors against the base and mark the
// disagreeing regions.
package diff3

import (
	"bytes"
	"strings"
)

// SegmentKind classifies one segment of a merge result.
type SegmentKind int

const (
	SegmentResolved SegmentKind = iota // merged without ambiguity
	SegmentConflict                    // both sides changed the same region differently
)

// Segment is one contiguous region of the merge output.
type Segment struct {
	Kind                       SegmentKind
	Base, Ours, Theirs, Merged []byte
}

// Result holds the outcome of a three-way merge.
type Result struct {
	Merged       []byte // full merged content, with conflict markers if any
	HasConflicts bool
	Segments     []Segment
}

// Line pairs a classified diff operation with its text, the unit Diff
// returns.
type Line struct {
	Kind    LineKind
	Content string
}

// Diff computes a line-level two-way diff between a and b.
func Diff(a, b []byte) []Line {
	aLines := splitLines(string(a))
	bLines := splitLines(string(b))
	ops := Myers(aLines, bLines)
	out := make([]Line, len(ops))
	for i, op := range ops {
		out[i] = Line{Kind: op.Kind, Content: op.Line}
	}
	return out
}

// Merge three-way merges base, ours, and theirs at the line level:
//  1. diff base against each side independently
//  2. turn each diff into a run of base-aligned regions, changed or not
//  3. walk both region lists together; a base region left untouched by
//     one side takes the other side's text, and a region both sides
//     changed identically takes that text — only a region both sides
//     changed differently becomes a conflict, marked with the
//     "<<<<<<< ours" / "=======" / ">>>>>>> theirs" markers.
func Merge(base, ours, theirs []byte) Result {
	baseLines := splitLines(string(base))
	oursRegions := regionize(baseLines, splitLines(string(ours)))
	theirsRegions := regionize(baseLines, splitLines(string(theirs)))
	return weave(baseLines, oursRegions, theirsRegions)
}

// splitLines splits s into lines without producing a trailing empty
// element for a final newline.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// region is a contiguous span of base lines together with the text one
// side replaces it with.
type region struct {
	baseStart, baseEnd int
	lines              []string
	changed            bool
}

// regionize turns a two-way diff (base vs. side) into a run of base-aligned
// regions: unchanged lines are their own one-line region, and any
// contiguous run of inserts/deletes collapses into a single changed region.
func regionize(base, side []string) []region {
	ops := Myers(base, side)

	var regions []region
	baseIdx := 0
	i := 0
	for i < len(ops) {
		if ops[i].Kind == Same {
			regions = append(regions, region{baseStart: baseIdx, baseEnd: baseIdx + 1, lines: []string{ops[i].Line}})
			baseIdx++
			i++
			continue
		}
		start := baseIdx
		var replacement []string
		for i < len(ops) && ops[i].Kind != Same {
			if ops[i].Kind == Delete {
				baseIdx++
			} else {
				replacement = append(replacement, ops[i].Line)
			}
			i++
		}
		regions = append(regions, region{baseStart: start, baseEnd: baseIdx, lines: replacement, changed: true})
	}
	return regions
}

// weave walks the ours/theirs region lists, aligned by base position, and
// produces the merged byte stream plus the segment trace.
func weave(baseLines []string, oursRegions, theirsRegions []region) Result {
	var out bytes.Buffer
	var segments []Segment
	conflicted := false

	oi, ti := 0, 0
	for oi < len(oursRegions) || ti < len(theirsRegions) {
		var or, tr *region
		if oi < len(oursRegions) {
			or = &oursRegions[oi]
		}
		if ti < len(theirsRegions) {
			tr = &theirsRegions[ti]
		}

		switch {
		case or == nil:
			emit(&out, tr.lines)
			segments = append(segments, resolvedSegment(baseLines, tr))
			ti++
			continue
		case tr == nil:
			emit(&out, or.lines)
			segments = append(segments, resolvedSegment(baseLines, or))
			oi++
			continue
		}

		if or.baseStart == tr.baseStart && or.baseEnd == tr.baseEnd {
			switch {
			case !or.changed && !tr.changed, or.changed && !tr.changed:
				emit(&out, or.lines)
				segments = append(segments, resolvedSegment(baseLines, or))
			case !or.changed && tr.changed:
				emit(&out, tr.lines)
				segments = append(segments, resolvedSegment(baseLines, tr))
			case sameLines(or.lines, tr.lines):
				emit(&out, or.lines)
				segments = append(segments, resolvedSegment(baseLines, or))
			default:
				conflicted = true
				emitConflict(&out, or.lines, tr.lines)
				segments = append(segments, conflictSegment(baseLines, or, tr))
			}
			oi++
			ti++
			continue
		}

		// Regions misaligned: one side's change spans a wider base range
		// than the other's. Gather every overlapping region from both
		// sides before deciding.
		regionEnd := max(or.baseEnd, tr.baseEnd)
		var oursSpan, theirsSpan []region
		for oi < len(oursRegions) && oursRegions[oi].baseStart < regionEnd {
			oursSpan = append(oursSpan, oursRegions[oi])
			regionEnd = max(regionEnd, oursRegions[oi].baseEnd)
			oi++
		}
		for ti < len(theirsRegions) && theirsRegions[ti].baseStart < regionEnd {
			theirsSpan = append(theirsSpan, theirsRegions[ti])
			regionEnd = max(regionEnd, theirsRegions[ti].baseEnd)
			ti++
		}

		regionStart := min(or.baseStart, tr.baseStart)
		baseSpan := baseLines[regionStart:regionEnd]
		oursOut := flattenRegions(oursSpan)
		theirsOut := flattenRegions(theirsSpan)
		oursTouched := touchedAny(oursSpan)
		theirsTouched := touchedAny(theirsSpan)

		switch {
		case !oursTouched && !theirsTouched:
			emit(&out, baseSpan)
			segments = append(segments, Segment{Kind: SegmentResolved, Base: joinLines(baseSpan), Merged: joinLines(baseSpan)})
		case oursTouched && !theirsTouched:
			emit(&out, oursOut)
			segments = append(segments, Segment{Kind: SegmentResolved, Base: joinLines(baseSpan), Ours: joinLines(oursOut), Merged: joinLines(oursOut)})
		case !oursTouched && theirsTouched:
			emit(&out, theirsOut)
			segments = append(segments, Segment{Kind: SegmentResolved, Base: joinLines(baseSpan), Theirs: joinLines(theirsOut), Merged: joinLines(theirsOut)})
		case sameLines(oursOut, theirsOut):
			emit(&out, oursOut)
			segments = append(segments, Segment{Kind: SegmentResolved, Base: joinLines(baseSpan), Ours: joinLines(oursOut), Merged: joinLines(oursOut)})
		default:
			conflicted = true
			emitConflict(&out, oursOut, theirsOut)
			segments = append(segments, Segment{Kind: SegmentConflict, Base: joinLines(baseSpan), Ours: joinLines(oursOut), Theirs: joinLines(theirsOut)})
		}
	}

	return Result{Merged: out.Bytes(), HasConflicts: conflicted, Segments: segments}
}

func emit(buf *bytes.Buffer, lines []string) {
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
}

func emitConflict(buf *bytes.Buffer, ours, theirs []string) {
	buf.WriteString("<<<<<<< ours\n")
	emit(buf, ours)
	buf.WriteString("=======\n")
	emit(buf, theirs)
	buf.WriteString(">>>>>>> theirs\n")
}

func resolvedSegment(baseLines []string, r *region) Segment {
	s := Segment{Kind: SegmentResolved, Merged: joinLines(r.lines)}
	if r.baseStart < r.baseEnd {
		s.Base = joinLines(baseLines[r.baseStart:r.baseEnd])
	}
	if r.changed {
		s.Ours = joinLines(r.lines)
	}
	return s
}

func conflictSegment(baseLines []string, or, tr *region) Segment {
	s := Segment{Kind: SegmentConflict, Ours: joinLines(or.lines), Theirs: joinLines(tr.lines)}
	if or.baseStart < or.baseEnd {
		s.Base = joinLines(baseLines[or.baseStart:or.baseEnd])
	}
	return s
}

func joinLines(lines []string) []byte {
	if len(lines) == 0 {
		return nil
	}
	var buf bytes.Buffer
	emit(&buf, lines)
	return buf.Bytes()
}

func sameLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func flattenRegions(regions []region) []string {
	var lines []string
	for _, r := range regions {
		lines = append(lines, r.lines...)
	}
	return lines
}

func touchedAny(regions []region) bool {
	for _, r := range regions {
		if r.changed {
			return true
		}
	}
	return false
}
