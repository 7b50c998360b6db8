package opcode

// py312Table is the opcode table for Python 3.12: builds on the 3.11
// inline-cache/exception-table shape, drops PRECALL (folded into CALL),
// and adds RETURN_CONST plus an explicit CACHE filler opcode.
var py312Table = newTable(append(append(baseEntries(), py311Overrides()...), []Info{
	{Opcode: 0, Name: "CACHE", Category: CategoryCacheOnly},
	{Opcode: 14, Name: ""}, // PRECALL removed in 3.12; folded into CALL
	{Opcode: 15, Name: "CALL", HasArg: true, Category: CategoryCall, CacheEntries: 3},
	{Opcode: 57, Name: "RETURN_CONST", HasArg: true, Category: CategoryBlockTerminator},
	{Opcode: 93, Name: "FOR_ITER", HasArg: true, Category: CategoryJump, JumpKind: JumpConditionalFalse, CacheEntries: 1},
	{Opcode: 116, Name: "LOAD_GLOBAL", HasArg: true, Category: CategoryLoad, CacheEntries: 4},
}...))
