package decompile

import (
	"encoding/json"
	"io"
)

// Tracer emits one JSON object per line to Sink, the same
// marshal-and-write shape the teacher's PrintASTJSON/WriteASTJSONToFile
// use for its AST dump, generalized from "one JSON document at the end"
// to "one line per event as the pipeline runs" so the decompile verb's
// -trace-out flag can stream a running decompilation to a file.
//
// Event kinds: "decompile_unit" (entering a code object), "trace_loop_guards"
// (natural-loop count once dom.Build finishes for a unit),
// "trace_sim_block" (block count once the recognizer walk finishes a
// unit), and "trace_decisions" (emitted by recognize as it chooses
// between if/while/for/try structuring for a header block).
type Tracer struct {
	w io.Writer
}

// NewTracer wraps w as a JSONL trace sink.
func NewTracer(w io.Writer) *Tracer {
	return &Tracer{w: w}
}

// Sink writes one {"event": kind, ...fields} JSON line. A marshal error
// is swallowed rather than propagated: trace output is diagnostic, never
// load-bearing, and a broken trace stream must not fail a decompilation
// that would otherwise succeed.
func (t *Tracer) Sink(kind string, fields map[string]any) {
	if t == nil || t.w == nil {
		return
	}
	record := map[string]any{"event": kind}
	for k, v := range fields {
		record[k] = v
	}
	line, err := json.Marshal(record)
	if err != nil {
		return
	}
	t.w.Write(append(line, '\n'))
}
