package opcode

// py310Table is the opcode table for Python 3.10: jump arguments are now
// word-addressed (scaled by 2) rather than raw byte offsets, but the
// instruction set itself is otherwise unchanged from 3.9.
var py310Table = newTable(append(baseEntries(), []Info{
	{Opcode: 139, Name: "CALL_FUNCTION", HasArg: true, Category: CategoryCall},
	{Opcode: 164, Name: "CALL_FINALLY", HasArg: true, Category: CategoryJump, JumpKind: JumpRelativeForward},
	{Opcode: 169, Name: "END_FINALLY", Category: CategoryBlockTerminator},
}...))
