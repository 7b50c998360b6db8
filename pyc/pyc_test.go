package pyc

import (
	"encoding/binary"
	"testing"
)

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func TestReadHeader_TimestampBased(t *testing.T) {
	data := append(le32(magicPy312), le32(0)...) // flags=0 -> timestamp-based
	data = append(data, le32(1700000000)...)     // mtime
	data = append(data, le32(42)...)              // source size

	h, rest, err := ReadHeader(data)
	if err != nil {
		t.Fatal(err)
	}
	if h.Magic.Major != 3 || h.Magic.Minor != 12 {
		t.Fatalf("got version %d.%d, want 3.12", h.Magic.Major, h.Magic.Minor)
	}
	if h.IsHashBased() {
		t.Fatal("expected timestamp-based header")
	}
	if h.SourceSize != 42 {
		t.Fatalf("got source size %d, want 42", h.SourceSize)
	}
	if len(rest) != 0 {
		t.Fatalf("expected no remaining bytes, got %d", len(rest))
	}
}

func TestReadHeader_TooShortErrors(t *testing.T) {
	if _, _, err := ReadHeader([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected an error for a too-short header")
	}
}

func TestReadHeader_UnknownMagicErrors(t *testing.T) {
	data := append(le32(0xffff), make([]byte, 12)...)
	if _, _, err := ReadHeader(data); err == nil {
		t.Fatal("expected an error for an unrecognized magic number")
	}
}

func TestReadValue_NoneTrueFalse(t *testing.T) {
	r := &reader{data: []byte{'N'}}
	v, err := r.readValue()
	if err != nil || v != nil {
		t.Fatalf("got (%v, %v), want (nil, nil)", v, err)
	}

	r = &reader{data: []byte{'T'}}
	v, err = r.readValue()
	if err != nil || v != true {
		t.Fatalf("got (%v, %v), want (true, nil)", v, err)
	}

	r = &reader{data: []byte{'F'}}
	v, err = r.readValue()
	if err != nil || v != false {
		t.Fatalf("got (%v, %v), want (false, nil)", v, err)
	}
}

func TestReadValue_SmallInt(t *testing.T) {
	r := &reader{data: append([]byte{'i'}, le32(300)...)}
	v, err := r.readValue()
	if err != nil {
		t.Fatal(err)
	}
	if v.(int64) != 300 {
		t.Fatalf("got %v, want 300", v)
	}
}

func TestReadValue_InternedStringRoundTripsViaBackref(t *testing.T) {
	// First value: an interned string 't' with FLAG_REF set, value "x".
	data := []byte{'t' | flagRef}
	data = append(data, le32(1)...)
	data = append(data, 'x')
	// Second value: a backreference to ref 0.
	data = append(data, 'R')
	data = append(data, le32(0)...)

	r := &reader{data: data}
	first, err := r.readValue()
	if err != nil {
		t.Fatal(err)
	}
	if first.(string) != "x" {
		t.Fatalf("got %v, want x", first)
	}
	second, err := r.readValue()
	if err != nil {
		t.Fatal(err)
	}
	if second.(string) != "x" {
		t.Fatalf("backreference got %v, want x", second)
	}
}

func TestReadValue_SmallTuple(t *testing.T) {
	data := []byte{')', 2, 'N', 'T'}
	r := &reader{data: data}
	v, err := r.readValue()
	if err != nil {
		t.Fatal(err)
	}
	tup := v.([]any)
	if len(tup) != 2 || tup[0] != nil || tup[1] != true {
		t.Fatalf("got %v", tup)
	}
}

func TestReadValue_UnsupportedTagErrors(t *testing.T) {
	r := &reader{data: []byte{'?'}}
	if _, err := r.readValue(); err == nil {
		t.Fatal("expected ErrUnsupportedMarshalTag")
	}
}

func TestDecodeExceptionTable_SingleEntry(t *testing.T) {
	// start=1, length=2, target=10, depth=3<<1|1 (push_lasti set) -> byte 7
	data := []byte{1, 2, 10, 7}
	entries, err := DecodeExceptionTable(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Start != 2 || e.End != 6 || e.Target != 20 {
		t.Fatalf("got %+v", e)
	}
	if e.StackDepth != 3 || !e.PushLasti {
		t.Fatalf("got depth=%d pushLasti=%v", e.StackDepth, e.PushLasti)
	}
}

func TestDecodeLineTable_SimpleRun(t *testing.T) {
	// byte_delta=2 line_delta=1; byte_delta=4 line_delta=0
	lnotab := []byte{2, 1, 4, 0}
	entries := DecodeLineTable(lnotab, 10)
	if LineFor(entries, 0) != 10 {
		t.Fatalf("expected line 10 at offset 0, got %d", LineFor(entries, 0))
	}
	if LineFor(entries, 2) != 11 {
		t.Fatalf("expected line 11 at offset 2, got %d", LineFor(entries, 2))
	}
	if LineFor(entries, 100) != -1 {
		t.Fatalf("expected -1 for an uncovered offset")
	}
}
