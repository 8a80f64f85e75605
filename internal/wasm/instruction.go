package wasm

// Op is an opcode in wrtgo's pre-decoded instruction set. The decoder
// (internal/wasm/binary) normalizes every Wasm binary opcode — MVP,
// sign-extension, non-trapping float-to-int, bulk-memory, reference-types,
// tail-call, SIMD, and atomics — into one of these, inlining operands so
// the interpreter's step loop never re-parses a byte stream (spec §4.4,
// design note "Dynamic dispatch").
type Op uint16

// Control and variable-access opcodes.
const (
	OpUnreachable Op = iota
	OpNop
	OpBlock
	OpLoop
	OpIf
	OpElse
	OpEnd
	OpBr
	OpBrIf
	OpBrTable
	OpReturn
	OpCall
	OpCallIndirect
	OpReturnCall
	OpReturnCallIndirect
	OpDrop
	OpSelect
	OpSelectT
	OpLocalGet
	OpLocalSet
	OpLocalTee
	OpGlobalGet
	OpGlobalSet
)

// Memory and table opcodes.
const (
	OpI32Load Op = iota + 100
	OpI64Load
	OpF32Load
	OpF64Load
	OpI32Load8S
	OpI32Load8U
	OpI32Load16S
	OpI32Load16U
	OpI64Load8S
	OpI64Load8U
	OpI64Load16S
	OpI64Load16U
	OpI64Load32S
	OpI64Load32U
	OpI32Store
	OpI64Store
	OpF32Store
	OpF64Store
	OpI32Store8
	OpI32Store16
	OpI64Store8
	OpI64Store16
	OpI64Store32
	OpMemorySize
	OpMemoryGrow
	OpMemoryFill
	OpMemoryCopy
	OpMemoryInit
	OpDataDrop
	OpTableGet
	OpTableSet
	OpTableSize
	OpTableGrow
	OpTableFill
	OpTableCopy
	OpTableInit
	OpElemDrop
)

// Numeric constant and comparison/arithmetic opcodes.
const (
	OpI32Const Op = iota + 200
	OpI64Const
	OpF32Const
	OpF64Const

	OpI32Eqz
	OpI32Eq
	OpI32Ne
	OpI32LtS
	OpI32LtU
	OpI32GtS
	OpI32GtU
	OpI32LeS
	OpI32LeU
	OpI32GeS
	OpI32GeU

	OpI64Eqz
	OpI64Eq
	OpI64Ne
	OpI64LtS
	OpI64LtU
	OpI64GtS
	OpI64GtU
	OpI64LeS
	OpI64LeU
	OpI64GeS
	OpI64GeU

	OpF32Eq
	OpF32Ne
	OpF32Lt
	OpF32Gt
	OpF32Le
	OpF32Ge

	OpF64Eq
	OpF64Ne
	OpF64Lt
	OpF64Gt
	OpF64Le
	OpF64Ge

	OpI32Clz
	OpI32Ctz
	OpI32Popcnt
	OpI32Add
	OpI32Sub
	OpI32Mul
	OpI32DivS
	OpI32DivU
	OpI32RemS
	OpI32RemU
	OpI32And
	OpI32Or
	OpI32Xor
	OpI32Shl
	OpI32ShrS
	OpI32ShrU
	OpI32Rotl
	OpI32Rotr

	OpI64Clz
	OpI64Ctz
	OpI64Popcnt
	OpI64Add
	OpI64Sub
	OpI64Mul
	OpI64DivS
	OpI64DivU
	OpI64RemS
	OpI64RemU
	OpI64And
	OpI64Or
	OpI64Xor
	OpI64Shl
	OpI64ShrS
	OpI64ShrU
	OpI64Rotl
	OpI64Rotr

	OpF32Abs
	OpF32Neg
	OpF32Ceil
	OpF32Floor
	OpF32Trunc
	OpF32Nearest
	OpF32Sqrt
	OpF32Add
	OpF32Sub
	OpF32Mul
	OpF32Div
	OpF32Min
	OpF32Max
	OpF32Copysign

	OpF64Abs
	OpF64Neg
	OpF64Ceil
	OpF64Floor
	OpF64Trunc
	OpF64Nearest
	OpF64Sqrt
	OpF64Add
	OpF64Sub
	OpF64Mul
	OpF64Div
	OpF64Min
	OpF64Max
	OpF64Copysign

	OpI32WrapI64
	OpI64ExtendI32S
	OpI64ExtendI32U
	OpI32TruncF32S
	OpI32TruncF32U
	OpI32TruncF64S
	OpI32TruncF64U
	OpI64TruncF32S
	OpI64TruncF32U
	OpI64TruncF64S
	OpI64TruncF64U
	OpF32ConvertI32S
	OpF32ConvertI32U
	OpF32ConvertI64S
	OpF32ConvertI64U
	OpF32DemoteF64
	OpF64ConvertI32S
	OpF64ConvertI32U
	OpF64ConvertI64S
	OpF64ConvertI64U
	OpF64PromoteF32
	OpI32ReinterpretF32
	OpI64ReinterpretF64
	OpF32ReinterpretI32
	OpF64ReinterpretI64

	OpI32Extend8S
	OpI32Extend16S
	OpI64Extend8S
	OpI64Extend16S
	OpI64Extend32S

	OpI32TruncSatF32S
	OpI32TruncSatF32U
	OpI32TruncSatF64S
	OpI32TruncSatF64U
	OpI64TruncSatF32S
	OpI64TruncSatF32U
	OpI64TruncSatF64S
	OpI64TruncSatF64U

	OpRefNull
	OpRefIsNull
	OpRefFunc
)

// SIMD (v128) opcodes. wrtgo decodes and executes v128.const,
// splat/extract_lane/replace_lane on every lane width, add on
// i32x4/i64x2/f32x4/f64x2, and i8x16 shuffle/swizzle; the decoder
// rejects every other 0xFD sub-opcode — see SPEC_FULL.md Open Question 1
// / DESIGN.md.
const (
	OpV128Const Op = iota + 400
	OpI8x16Splat
	OpI16x8Splat
	OpI32x4Splat
	OpI64x2Splat
	OpF32x4Splat
	OpF64x2Splat
	OpI8x16ExtractLaneS
	OpI8x16ExtractLaneU
	OpI16x8ExtractLaneS
	OpI16x8ExtractLaneU
	OpI32x4ExtractLane
	OpI64x2ExtractLane
	OpF32x4ExtractLane
	OpF64x2ExtractLane
	OpI8x16ReplaceLane
	OpI16x8ReplaceLane
	OpI32x4ReplaceLane
	OpI64x2ReplaceLane
	OpF32x4ReplaceLane
	OpF64x2ReplaceLane
	OpI32x4Add
	OpI64x2Add
	OpF32x4Add
	OpF64x2Add
	OpI8x16Shuffle
	OpI8x16Swizzle
)

// Atomic (threads proposal) opcodes. Given sequential semantics per
// SPEC_FULL.md Open Question 1: wait/notify are routed to an external
// collaborator (spec §5), not implemented in-core.
const (
	OpAtomicFence Op = iota + 500
	OpI32AtomicLoad
	OpI64AtomicLoad
	OpI32AtomicStore
	OpI64AtomicStore
	OpI32AtomicRmwAdd
	OpI64AtomicRmwAdd
	OpMemoryAtomicWait32
	OpMemoryAtomicWait64
	OpMemoryAtomicNotify
)

// MemArg is the inlined memory-instruction immediate: a natural-alignment
// hint plus a constant offset. Bounds are always checked regardless of
// the hint (spec §4.5).
type MemArg struct {
	Align  uint32
	Offset uint32
}

// BlockType describes a structured control construct's arity, either as
// an inline value type (0 or 1 results) or a type-section index (multi-value).
type BlockType struct {
	ValType    ValueType // used when HasValType
	HasValType bool
	TypeIdx    uint32 // used when neither HasValType nor Empty is set
	Empty      bool
}

// EmptyBlockType is the sentinel BlockType for `(block)`/`(loop)` with no
// declared result.
var EmptyBlockType = BlockType{Empty: true}

// Instruction is one pre-decoded Wasm opcode with its operands inlined.
// Rather than one Go type per opcode (which the Wasm opcode space would
// make enormous), operands are carried in a small set of generically
// named, opcode-dependent fields — the same flattening tetratelabs/wazero
// performs when lowering wazeroir.Operation into its interpreter's
// internal "interpreterOp" (see DESIGN.md).
type Instruction struct {
	Op Op

	// Generic scalar operands; meaning depends on Op.
	U1, U2 uint64 // e.g. LocalGet/Set index, BrIf label depth, lane index
	I1     int64  // e.g. I32Const/I64Const sign-extended payload

	Mem MemArg // memory/table instructions

	Block BlockType   // Block/Loop/If
	Else  uint32      // If: pc just past the matching Else (or past End if no else)
	End   uint32      // Block/Loop/If: pc just past the matching End

	Labels []uint32 // BrTable: label depths, last entry is the default

	V128 [16]byte // V128Const / shuffle lane-select operand
}
