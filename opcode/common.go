package opcode

// baseEntries returns the opcode definitions that are stable across every
// supported version — arithmetic, comparisons, loads/stores, collection
// builds, exceptions, and so on. Per-version table files start from this
// list and layer on the opcodes whose number, presence, or jump semantics
// actually changed (the call-opcode family, the jump family, RESUME/
// RETURN_CONST, inline caches).
func baseEntries() []Info {
	return []Info{
		{Opcode: 1, Name: "POP_TOP", Category: CategoryStackManipulation},
		{Opcode: 2, Name: "ROT_TWO", Category: CategoryStackManipulation},
		{Opcode: 3, Name: "ROT_THREE", Category: CategoryStackManipulation},
		{Opcode: 4, Name: "DUP_TOP", Category: CategoryStackManipulation},
		{Opcode: 5, Name: "DUP_TOP_TWO", Category: CategoryStackManipulation},
		{Opcode: 6, Name: "ROT_FOUR", Category: CategoryStackManipulation},
		{Opcode: 7, Name: "NOP", Category: CategoryOther},

		{Opcode: 10, Name: "UNARY_POSITIVE", Category: CategoryArithmetic},
		{Opcode: 11, Name: "UNARY_NEGATIVE", Category: CategoryArithmetic},
		{Opcode: 12, Name: "UNARY_NOT", Category: CategoryArithmetic},
		{Opcode: 13, Name: "UNARY_INVERT", Category: CategoryArithmetic},

		{Opcode: 20, Name: "BINARY_SUBSCR", Category: CategoryArithmetic},
		{Opcode: 21, Name: "STORE_SUBSCR", Category: CategoryStore},
		{Opcode: 22, Name: "DELETE_SUBSCR", Category: CategoryDelete},

		{Opcode: 25, Name: "GET_ITER", Category: CategoryOther},
		{Opcode: 26, Name: "GET_YIELD_FROM_ITER", Category: CategoryOther},
		{Opcode: 27, Name: "PRINT_EXPR", Category: CategoryOther},
		{Opcode: 28, Name: "LOAD_BUILD_CLASS", Category: CategoryLoad},
		{Opcode: 29, Name: "GET_AWAITABLE", Category: CategoryOther},
		{Opcode: 30, Name: "GET_AITER", Category: CategoryOther},
		{Opcode: 31, Name: "GET_ANEXT", Category: CategoryOther},
		{Opcode: 32, Name: "END_ASYNC_FOR", Category: CategoryBlockTerminator},
		{Opcode: 33, Name: "BEFORE_ASYNC_WITH", Category: CategoryBlockSetup},

		{Opcode: 40, Name: "SETUP_FINALLY", HasArg: true, Category: CategoryBlockSetup},
		{Opcode: 41, Name: "SETUP_EXCEPT", HasArg: true, Category: CategoryBlockSetup},
		{Opcode: 42, Name: "SETUP_WITH", HasArg: true, Category: CategoryBlockSetup},
		{Opcode: 43, Name: "WITH_CLEANUP_START", Category: CategoryOther},
		{Opcode: 44, Name: "WITH_CLEANUP_FINISH", Category: CategoryOther},
		{Opcode: 45, Name: "BEFORE_WITH", Category: CategoryBlockSetup},
		{Opcode: 46, Name: "WITH_EXCEPT_START", Category: CategoryException},
		{Opcode: 47, Name: "PUSH_EXC_INFO", Category: CategoryException},
		{Opcode: 48, Name: "CHECK_EXC_MATCH", Category: CategoryException},
		{Opcode: 49, Name: "POP_EXCEPT", Category: CategoryException},
		{Opcode: 50, Name: "POP_BLOCK", Category: CategoryBlockTerminator},
		{Opcode: 51, Name: "RERAISE", HasArg: true, Category: CategoryBlockTerminator},
		{Opcode: 52, Name: "RAISE_VARARGS", HasArg: true, Category: CategoryBlockTerminator},

		{Opcode: 55, Name: "YIELD_VALUE", Category: CategoryOther},
		{Opcode: 56, Name: "SEND", HasArg: true, Category: CategoryJump, JumpKind: JumpConditionalFalse},
		{Opcode: 57, Name: "GEN_START", HasArg: true, Category: CategoryOther},

		{Opcode: 60, Name: "BINARY_ADD", Category: CategoryArithmetic},
		{Opcode: 61, Name: "BINARY_SUBTRACT", Category: CategoryArithmetic},
		{Opcode: 62, Name: "BINARY_MULTIPLY", Category: CategoryArithmetic},
		{Opcode: 63, Name: "BINARY_TRUE_DIVIDE", Category: CategoryArithmetic},
		{Opcode: 64, Name: "BINARY_FLOOR_DIVIDE", Category: CategoryArithmetic},
		{Opcode: 65, Name: "BINARY_MODULO", Category: CategoryArithmetic},
		{Opcode: 66, Name: "BINARY_POWER", Category: CategoryArithmetic},
		{Opcode: 67, Name: "BINARY_LSHIFT", Category: CategoryArithmetic},
		{Opcode: 68, Name: "BINARY_RSHIFT", Category: CategoryArithmetic},
		{Opcode: 69, Name: "BINARY_AND", Category: CategoryArithmetic},
		{Opcode: 70, Name: "BINARY_OR", Category: CategoryArithmetic},
		{Opcode: 71, Name: "BINARY_XOR", Category: CategoryArithmetic},
		{Opcode: 72, Name: "BINARY_MATRIX_MULTIPLY", Category: CategoryArithmetic},
		{Opcode: 73, Name: "INPLACE_ADD", Category: CategoryArithmetic},
		{Opcode: 74, Name: "INPLACE_SUBTRACT", Category: CategoryArithmetic},
		{Opcode: 75, Name: "INPLACE_MULTIPLY", Category: CategoryArithmetic},
		{Opcode: 76, Name: "INPLACE_TRUE_DIVIDE", Category: CategoryArithmetic},
		{Opcode: 77, Name: "INPLACE_FLOOR_DIVIDE", Category: CategoryArithmetic},
		{Opcode: 78, Name: "INPLACE_MODULO", Category: CategoryArithmetic},
		{Opcode: 79, Name: "INPLACE_POWER", Category: CategoryArithmetic},

		{Opcode: 83, Name: "RETURN_VALUE", Category: CategoryBlockTerminator},
		{Opcode: 84, Name: "IMPORT_STAR", Category: CategoryImport},
		{Opcode: 85, Name: "SETUP_ANNOTATIONS", Category: CategoryOther},
		{Opcode: 86, Name: "YIELD_FROM", Category: CategoryOther},
		{Opcode: 87, Name: "POP_FINALLY", HasArg: true, Category: CategoryBlockTerminator},

		{Opcode: 90, Name: "STORE_NAME", HasArg: true, Category: CategoryStore},
		{Opcode: 91, Name: "DELETE_NAME", HasArg: true, Category: CategoryDelete},
		{Opcode: 92, Name: "UNPACK_SEQUENCE", HasArg: true, Category: CategoryOther},
		{Opcode: 93, Name: "FOR_ITER", HasArg: true, Category: CategoryJump, JumpKind: JumpConditionalFalse},
		{Opcode: 94, Name: "UNPACK_EX", HasArg: true, Category: CategoryOther},
		{Opcode: 95, Name: "STORE_ATTR", HasArg: true, Category: CategoryStore},
		{Opcode: 96, Name: "DELETE_ATTR", HasArg: true, Category: CategoryDelete},
		{Opcode: 97, Name: "STORE_GLOBAL", HasArg: true, Category: CategoryStore},
		{Opcode: 98, Name: "DELETE_GLOBAL", HasArg: true, Category: CategoryDelete},
		{Opcode: 100, Name: "LOAD_CONST", HasArg: true, Category: CategoryLoad},
		{Opcode: 101, Name: "LOAD_NAME", HasArg: true, Category: CategoryLoad},
		{Opcode: 102, Name: "BUILD_TUPLE", HasArg: true, Category: CategoryBuild},
		{Opcode: 103, Name: "BUILD_LIST", HasArg: true, Category: CategoryBuild},
		{Opcode: 104, Name: "BUILD_SET", HasArg: true, Category: CategoryBuild},
		{Opcode: 105, Name: "BUILD_MAP", HasArg: true, Category: CategoryBuild},
		{Opcode: 106, Name: "LOAD_ATTR", HasArg: true, Category: CategoryLoad},
		{Opcode: 107, Name: "COMPARE_OP", HasArg: true, Category: CategoryCompare},
		{Opcode: 108, Name: "IMPORT_NAME", HasArg: true, Category: CategoryImport},
		{Opcode: 109, Name: "IMPORT_FROM", HasArg: true, Category: CategoryImport},

		{Opcode: 110, Name: "JUMP_FORWARD", HasArg: true, Category: CategoryJump, JumpKind: JumpRelativeForward},
		{Opcode: 111, Name: "JUMP_IF_FALSE_OR_POP", HasArg: true, Category: CategoryJump, JumpKind: JumpConditionalFalse},
		{Opcode: 112, Name: "JUMP_IF_TRUE_OR_POP", HasArg: true, Category: CategoryJump, JumpKind: JumpConditionalTrue},
		{Opcode: 113, Name: "JUMP_ABSOLUTE", HasArg: true, Category: CategoryJump, JumpKind: JumpAbsolute},
		{Opcode: 114, Name: "POP_JUMP_IF_FALSE", HasArg: true, Category: CategoryJump, JumpKind: JumpConditionalFalse},
		{Opcode: 115, Name: "POP_JUMP_IF_TRUE", HasArg: true, Category: CategoryJump, JumpKind: JumpConditionalTrue},

		{Opcode: 116, Name: "LOAD_GLOBAL", HasArg: true, Category: CategoryLoad},
		{Opcode: 117, Name: "IS_OP", HasArg: true, Category: CategoryCompare},
		{Opcode: 118, Name: "CONTAINS_OP", HasArg: true, Category: CategoryCompare},
		{Opcode: 119, Name: "RERAISE_OLD", Category: CategoryException},
		{Opcode: 120, Name: "JUMP_IF_NOT_EXC_MATCH", HasArg: true, Category: CategoryJump, JumpKind: JumpConditionalFalse},
		{Opcode: 121, Name: "SETUP_LOOP", HasArg: true, Category: CategoryBlockSetup},

		{Opcode: 124, Name: "LOAD_FAST", HasArg: true, Category: CategoryLoad},
		{Opcode: 125, Name: "STORE_FAST", HasArg: true, Category: CategoryStore},
		{Opcode: 126, Name: "DELETE_FAST", HasArg: true, Category: CategoryDelete},

		{Opcode: 131, Name: "RAISE_VARARGS_OLD", HasArg: true, Category: CategoryBlockTerminator},
		{Opcode: 132, Name: "MAKE_FUNCTION", HasArg: true, Category: CategoryOther},
		{Opcode: 133, Name: "BUILD_SLICE", HasArg: true, Category: CategoryBuild},
		{Opcode: 135, Name: "LOAD_CLOSURE", HasArg: true, Category: CategoryLoad},
		{Opcode: 136, Name: "LOAD_DEREF", HasArg: true, Category: CategoryLoad},
		{Opcode: 137, Name: "STORE_DEREF", HasArg: true, Category: CategoryStore},
		{Opcode: 138, Name: "DELETE_DEREF", HasArg: true, Category: CategoryDelete},

		{Opcode: 141, Name: "CALL_FUNCTION_KW", HasArg: true, Category: CategoryCall},
		{Opcode: 142, Name: "CALL_FUNCTION_EX", HasArg: true, Category: CategoryCall},
		{Opcode: 143, Name: "SETUP_WITH_OLD", HasArg: true, Category: CategoryBlockSetup},
		{Opcode: 144, Name: "EXTENDED_ARG", HasArg: true, Category: CategoryOther},
		{Opcode: 145, Name: "LIST_APPEND", HasArg: true, Category: CategoryBuild},
		{Opcode: 146, Name: "SET_ADD", HasArg: true, Category: CategoryBuild},
		{Opcode: 147, Name: "MAP_ADD", HasArg: true, Category: CategoryBuild},
		{Opcode: 148, Name: "LOAD_CLASSDEREF", HasArg: true, Category: CategoryLoad},

		{Opcode: 152, Name: "BUILD_LIST_UNPACK", HasArg: true, Category: CategoryBuild},
		{Opcode: 153, Name: "BUILD_MAP_UNPACK", HasArg: true, Category: CategoryBuild},
		{Opcode: 154, Name: "BUILD_MAP_UNPACK_WITH_CALL", HasArg: true, Category: CategoryBuild},
		{Opcode: 155, Name: "BUILD_TUPLE_UNPACK", HasArg: true, Category: CategoryBuild},
		{Opcode: 156, Name: "BUILD_SET_UNPACK", HasArg: true, Category: CategoryBuild},

		{Opcode: 157, Name: "SETUP_ASYNC_WITH", HasArg: true, Category: CategoryBlockSetup},
		{Opcode: 158, Name: "FORMAT_VALUE", HasArg: true, Category: CategoryOther},
		{Opcode: 159, Name: "BUILD_CONST_KEY_MAP", HasArg: true, Category: CategoryBuild},
		{Opcode: 160, Name: "BUILD_STRING", HasArg: true, Category: CategoryBuild},
		{Opcode: 161, Name: "BUILD_TUPLE_UNPACK_WITH_CALL", HasArg: true, Category: CategoryBuild},

		{Opcode: 162, Name: "LOAD_METHOD", HasArg: true, Category: CategoryLoad},
		{Opcode: 163, Name: "CALL_METHOD", HasArg: true, Category: CategoryCall},

		{Opcode: 165, Name: "LIST_EXTEND", HasArg: true, Category: CategoryBuild},
		{Opcode: 166, Name: "SET_UPDATE", HasArg: true, Category: CategoryBuild},
		{Opcode: 167, Name: "DICT_MERGE", HasArg: true, Category: CategoryBuild},
		{Opcode: 168, Name: "DICT_UPDATE", HasArg: true, Category: CategoryBuild},

		{Opcode: 170, Name: "MATCH_CLASS", HasArg: true, Category: CategoryMatch},
		{Opcode: 171, Name: "MATCH_MAPPING", Category: CategoryMatch},
		{Opcode: 172, Name: "MATCH_SEQUENCE", Category: CategoryMatch},
		{Opcode: 173, Name: "MATCH_KEYS", Category: CategoryMatch},
		{Opcode: 174, Name: "COPY_DICT_WITHOUT_KEYS", Category: CategoryMatch},
		{Opcode: 175, Name: "GET_LEN", Category: CategoryMatch},
	}
}
