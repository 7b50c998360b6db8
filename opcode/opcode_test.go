package opcode

import "testing"

func TestTableFor_AllSupportedVersions(t *testing.T) {
	for _, v := range []Version{V39, V310, V311, V312} {
		table, err := TableFor(v)
		if err != nil {
			t.Fatalf("TableFor(%s): %v", v, err)
		}
		if table == nil {
			t.Fatalf("TableFor(%s) returned nil table", v)
		}
	}
}

func TestTableFor_UnsupportedVersion(t *testing.T) {
	_, err := TableFor(Version{2, 7})
	if err == nil {
		t.Fatal("expected error for unsupported version 2.7")
	}
}

func TestLookup_UnknownByteErrors(t *testing.T) {
	table, err := TableFor(V312)
	if err != nil {
		t.Fatal(err)
	}
	if table.Defined(255) {
		t.Fatal("expected byte 0xff to be undefined in the 3.12 table")
	}
	if _, err := table.Lookup(255); err == nil {
		t.Fatal("expected Lookup to error on an undefined byte")
	}
}

func TestLookup_KnownOpcodeRoundTrips(t *testing.T) {
	table, err := TableFor(V39)
	if err != nil {
		t.Fatal(err)
	}
	info, err := table.Lookup(100) // LOAD_CONST
	if err != nil {
		t.Fatalf("Lookup(LOAD_CONST): %v", err)
	}
	if info.Name != "LOAD_CONST" || !info.HasArg {
		t.Fatalf("got %+v, want LOAD_CONST with HasArg", info)
	}
}

func TestVersionPredicates(t *testing.T) {
	if V39.HasInlineCaches() || V310.HasInlineCaches() {
		t.Fatal("3.9 and 3.10 must not report inline caches")
	}
	if !V311.HasInlineCaches() || !V312.HasInlineCaches() {
		t.Fatal("3.11 and 3.12 must report inline caches")
	}
	if V39.JumpsAreWordAddressed() {
		t.Fatal("3.9 jumps are raw byte offsets, not word-addressed")
	}
	if !V310.JumpsAreWordAddressed() {
		t.Fatal("3.10+ jumps must be word-addressed")
	}
}

func TestCallOpcode_CacheEntriesShrinkAcrossVersions(t *testing.T) {
	t311, err := TableFor(V311)
	if err != nil {
		t.Fatal(err)
	}
	t312, err := TableFor(V312)
	if err != nil {
		t.Fatal(err)
	}
	call311, err := t311.Lookup(15)
	if err != nil {
		t.Fatal(err)
	}
	call312, err := t312.Lookup(15)
	if err != nil {
		t.Fatal(err)
	}
	if call311.CacheEntries <= call312.CacheEntries {
		t.Fatalf("expected CALL's cache entries to shrink from 3.11 (%d) to 3.12 (%d)", call311.CacheEntries, call312.CacheEntries)
	}
}

func TestPrecallRemovedIn312(t *testing.T) {
	t312, err := TableFor(V312)
	if err != nil {
		t.Fatal(err)
	}
	if t312.Defined(14) {
		t.Fatal("PRECALL was folded into CALL in 3.12 and should be undefined")
	}
}
