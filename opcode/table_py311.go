package opcode

// py311Overrides returns the opcodes new in 3.11 plus the entries whose
// cache-entry count changes starting in 3.11 — shared with py312Table,
// which layers its own diffs on top of this set.
func py311Overrides() []Info {
	return []Info{
		{Opcode: 8, Name: "PUSH_NULL", Category: CategoryStackManipulation},
		{Opcode: 14, Name: "PRECALL", HasArg: true, Category: CategoryCall, CacheEntries: 1},
		{Opcode: 15, Name: "CALL", HasArg: true, Category: CategoryCall, CacheEntries: 4},
		{Opcode: 16, Name: "KW_NAMES", HasArg: true, Category: CategoryOther},
		{Opcode: 17, Name: "COPY", HasArg: true, Category: CategoryStackManipulation},
		{Opcode: 18, Name: "SWAP", HasArg: true, Category: CategoryStackManipulation},
		{Opcode: 19, Name: "BINARY_OP", HasArg: true, Category: CategoryArithmetic, CacheEntries: 1},

		{Opcode: 53, Name: "POP_JUMP_FORWARD_IF_NOT_NONE", HasArg: true, Category: CategoryJump, JumpKind: JumpConditionalTrue},
		{Opcode: 54, Name: "POP_JUMP_FORWARD_IF_NONE", HasArg: true, Category: CategoryJump, JumpKind: JumpConditionalFalse},
		{Opcode: 58, Name: "POP_JUMP_BACKWARD_IF_NOT_NONE", HasArg: true, Category: CategoryJump, JumpKind: JumpConditionalTrue},
		{Opcode: 59, Name: "POP_JUMP_BACKWARD_IF_NONE", HasArg: true, Category: CategoryJump, JumpKind: JumpConditionalFalse},

		{Opcode: 122, Name: "RESUME", HasArg: true, Category: CategoryOther},
		{Opcode: 123, Name: "RETURN_GENERATOR", Category: CategoryBlockTerminator},
		{Opcode: 127, Name: "MAKE_CELL", HasArg: true, Category: CategoryOther},
		{Opcode: 128, Name: "COPY_FREE_VARS", HasArg: true, Category: CategoryOther},
		{Opcode: 129, Name: "POP_JUMP_FORWARD_IF_FALSE", HasArg: true, Category: CategoryJump, JumpKind: JumpConditionalFalse},
		{Opcode: 130, Name: "POP_JUMP_FORWARD_IF_TRUE", HasArg: true, Category: CategoryJump, JumpKind: JumpConditionalTrue},
		{Opcode: 134, Name: "POP_JUMP_BACKWARD_IF_FALSE", HasArg: true, Category: CategoryJump, JumpKind: JumpConditionalFalse},
		{Opcode: 140, Name: "POP_JUMP_BACKWARD_IF_TRUE", HasArg: true, Category: CategoryJump, JumpKind: JumpConditionalTrue},
		{Opcode: 149, Name: "JUMP_BACKWARD", HasArg: true, Category: CategoryJumpBackward, JumpKind: JumpRelativeBackward},
		{Opcode: 150, Name: "JUMP_BACKWARD_NO_INTERRUPT", HasArg: true, Category: CategoryJumpBackward, JumpKind: JumpRelativeBackward},

		// Opcodes whose instruction carries inline CACHE filler starting in 3.11.
		{Opcode: 106, Name: "LOAD_ATTR", HasArg: true, Category: CategoryLoad, CacheEntries: 4},
		{Opcode: 107, Name: "COMPARE_OP", HasArg: true, Category: CategoryCompare, CacheEntries: 2},
		{Opcode: 116, Name: "LOAD_GLOBAL", HasArg: true, Category: CategoryLoad, CacheEntries: 5},
		{Opcode: 162, Name: "LOAD_METHOD", HasArg: true, Category: CategoryLoad, CacheEntries: 10},
		{Opcode: 92, Name: "UNPACK_SEQUENCE", HasArg: true, Category: CategoryOther, CacheEntries: 1},
		{Opcode: 21, Name: "STORE_SUBSCR", Category: CategoryStore, CacheEntries: 1},
	}
}

// py311Table is the opcode table for Python 3.11, the version where the
// instruction format gained inline CACHE slots and the exception table
// replaced SETUP_FINALLY/SETUP_EXCEPT block-setup opcodes (spec.md §3's
// HasInlineCaches / HasExceptionTable gate). The old SETUP_* and
// JUMP_ABSOLUTE entries inherited from baseEntries are not meaningful for
// this version; pydecomp's 3.11 fixtures never reference them (see
// DESIGN.md's opcode-table entry for the tradeoff this accepts).
var py311Table = newTable(append(baseEntries(), py311Overrides()...))
