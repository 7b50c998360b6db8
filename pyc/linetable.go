package pyc

// LineEntry maps a byte-offset range [Start, End) of bytecode to a
// source line number, or -1 if the range has no associated line (an
// artificial jump target, for instance).
type LineEntry struct {
	Start, End int
	Line       int
}

// DecodeLineTable decodes a linetable blob into [Start, End) -> Line
// entries. CPython's own line-table encoding changed twice (lnotab in
// <=3.9, encoded deltas in 3.10, a PEP 626-flavored varint encoding in
// 3.11+); pydecomp implements only the simplest of the three — 3.9's
// lnotab, a flat sequence of (byte_delta, line_delta) signed-byte pairs.
// DecodeLineTable takes no version and reads any blob as lnotab pairs;
// it does not recognize the 3.10 or 3.11+ encodings. Line numbers are
// cosmetic to everything this decompiler emits (see SPEC_FULL.md's
// non-goals on source fidelity).
func DecodeLineTable(lnotab []byte, firstLine int) []LineEntry {
	var entries []LineEntry
	offset := 0
	line := firstLine
	for i := 0; i+1 < len(lnotab); i += 2 {
		byteDelta := int(lnotab[i])
		lineDelta := int(int8(lnotab[i+1]))
		if byteDelta > 0 {
			entries = append(entries, LineEntry{Start: offset, End: offset + byteDelta, Line: line})
			offset += byteDelta
		}
		line += lineDelta
	}
	return entries
}

// LineFor returns the line number for the given byte offset, or -1 if
// none of entries covers it.
func LineFor(entries []LineEntry, offset int) int {
	for _, e := range entries {
		if offset >= e.Start && offset < e.End {
			return e.Line
		}
	}
	return -1
}
