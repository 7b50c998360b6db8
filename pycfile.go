package main

import (
	"fmt"
	"os"

	"pydecomp/decompile"
	"pydecomp/opcode"
	"pydecomp/pyc"
)

// loadPyc reads a .pyc file's header and top-level code object, and
// resolves the header's magic number to the opcode.Version pydecomp
// needs for the rest of the pipeline.
func loadPyc(path string) (*pyc.CodeObject, opcode.Version, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, opcode.Version{}, fmt.Errorf("💥 Failed to read file:\n\t%v", err)
	}
	header, rest, err := pyc.ReadHeader(data)
	if err != nil {
		return nil, opcode.Version{}, err
	}
	version := opcode.Version{Major: header.Magic.Major, Minor: header.Magic.Minor}
	co, _, err := pyc.ReadCodeObject(rest)
	if err != nil {
		return nil, opcode.Version{}, err
	}
	return co, version, nil
}

// focusInto narrows co to the nested code object named by a dotted
// -focus path, shared by every CLI verb that accepts that flag.
func focusInto(co *pyc.CodeObject, path string) (*pyc.CodeObject, error) {
	return decompile.FindFocus(co, path)
}
