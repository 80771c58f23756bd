package pir

// Op identifies a PIR instruction. Most values are wasm opcodes widened to
// uint16; values at or above opSynthetic are PIR-only and never appear in the
// binary format.
type Op uint16

const opSynthetic Op = 0x100

const (
	// OpBrIfFalse is emitted for `if`: branch to A when the top-of-stack i32
	// is zero (the `else` arm, or `end` when there is none), fall through
	// otherwise. `if`/`else`/`end` themselves never appear in a Program; an
	// `if` lowers to this single conditional jump.
	OpBrIfFalse Op = opSynthetic + iota

	// OpTryTableMark opens a try_table's protected region. It carries no
	// control-flow effect of its own (execution falls straight through); it
	// exists only so Program.TryRanges has a PC to start its span at. A is
	// the index into TryRanges this try_table eventually fills in once its
	// matching `end` is reached.
	OpTryTableMark
)

// Instruction is one fixed-width PIR op. Not every field is meaningful for
// every Op; which ones are is determined by Op alone, matching the teacher's
// own Imm-by-opcode convention in wasm.Instruction.
type Instruction struct {
	Op Op

	// A, B are general-purpose operands: a resolved branch target (a PIR
	// index), a local/global/function/type/table index, or a BrTables index.
	A, B uint32

	// MemOffset/MemAlign hold memory instruction immediates.
	MemOffset uint64
	MemAlign  uint32

	// Const holds a constant's raw bits: zero-extended i32, raw i64, or the
	// IEEE-754 bit pattern of an f32/f64.
	Const uint64
}

// BrTable is the out-of-line target list for a br_table instruction; A on
// the Instruction indexes into Program.BrTables, B holds len(Targets)-1 so
// the last entry is the default.
type BrTable struct {
	Targets []uint32 // PIR indices, including the default as the final entry
}

// CatchTarget is one clause of a try_table, with its label already resolved
// to a PIR index exactly like a br target.
type CatchTarget struct {
	TagIdx uint32 // meaningful for Kind == CatchKindCatch/CatchKindCatchRef
	Label  uint32
	Kind   byte // wasm.CatchKindCatch/CatchRef/CatchAll/CatchAllRef
}

// TryRange is one try_table's protected region: [Start, End) in PIR indices.
// Program.TryRanges lists them in the order their try_tables open, so an
// enclosing range precedes every range nested inside it (End is filled in
// later, when the matching `end` pops). A throw inside [Start, End) tries each Catches entry in
// order before falling back to an enclosing range or propagating out of the
// function entirely.
type TryRange struct {
	Start, End int
	Catches    []CatchTarget
}

// Program is one function's predecoded form.
type Program struct {
	Code      []Instruction
	BrTables  []BrTable
	TryRanges []TryRange

	// SourceIndex[i] is the index into the original wasm.Instruction slice
	// that produced Code[i], used to report trap locations and to seed
	// deoptimization back to the interpreter at the right PC.
	SourceIndex []int

	NumLocals  int // params + declared locals
	NumParams  int
	NumResults int
	MaxStack   int // high-water mark used to size the interpreter's operand stack slice
}
