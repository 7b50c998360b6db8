package opcode

// py39Table is the opcode table for Python 3.9: pre-inline-cache,
// pre-exception-table, absolute-byte-offset jumps (spec.md §3's oldest
// supported version).
var py39Table = newTable(append(baseEntries(), []Info{
	{Opcode: 139, Name: "CALL_FUNCTION", HasArg: true, Category: CategoryCall},
	{Opcode: 164, Name: "CALL_FINALLY", HasArg: true, Category: CategoryJump, JumpKind: JumpRelativeForward},
	{Opcode: 169, Name: "END_FINALLY", Category: CategoryBlockTerminator},
}...))
