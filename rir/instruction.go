package rir

// VReg is a virtual register identifier. Registers 0..NumLocals-1 of a
// Program are permanently bound to that function's locals (params first);
// everything at or above NumLocals is a temporary introduced while
// simulating the operand stack.
type VReg uint32

// Op identifies a register-IR instruction. Most values reuse the wasm/pir
// opcode space directly (arithmetic, comparisons, loads/stores, calls);
// control flow and the instructions peepholes introduce get synthetic
// values starting at opSynthetic.
type Op uint16

const opSynthetic Op = 0x200

const (
	// OpMove copies Src1 into Dst. Emitted for local.set/tee that the
	// producer-rewrite peephole could not fold away (the value has more
	// than one use, or already lives in a register).
	OpMove Op = opSynthetic + iota

	// OpBrCmp is the fusion of a comparison and a br_if: branch to A when
	// Src1 `Cmp` Src2 holds (or, when RHSIsImm, Src1 `Cmp` Imm). Cmp is one
	// of the CmpXxx constants below.
	OpBrCmp

	// OpBrIfFalse carries forward pir's `if`-lowering: branch to A when
	// Src1 (an i32) is zero, fall through otherwise.
	OpBrIfFalse

	// OpReturn returns the values held in Results. Produced for an explicit
	// `return`, for control falling off the end of a function with results
	// (a function without results simply runs past its last instruction),
	// and for any
	// branch that targets the function's own implicit outer block (which
	// wasm defines to behave exactly like `return`).
	OpReturn

	// OpReturnIf is OpReturn gated on Src1 (an i32) being non-zero; it
	// exists so `br_if <outer block>` doesn't need a separate conditional
	// branch plus a second unconditional return.
	OpReturnIf
)

// Cmp identifies the comparison kind carried by OpBrCmp.
type Cmp byte

const (
	CmpI32Eq Cmp = iota
	CmpI32Ne
	CmpI32LtS
	CmpI32LtU
	CmpI32GtS
	CmpI32GtU
	CmpI32LeS
	CmpI32LeU
	CmpI32GeS
	CmpI32GeU
	CmpI64Eq
	CmpI64Ne
	CmpI64LtS
	CmpI64LtU
	CmpI64GtS
	CmpI64GtU
	CmpI64LeS
	CmpI64LeU
	CmpI64GeS
	CmpI64GeU
)

// Instruction is one register-IR op.
type Instruction struct {
	Op Op

	Dst, Src1, Src2 VReg

	// RHSIsImm, when true, means Src2 is not a live register: the constant
	// folding peephole inlined its value into Imm instead.
	RHSIsImm bool
	Imm      uint64

	// A/B/MemOffset/MemAlign mirror pir.Instruction's auxiliary fields
	// (branch target, call/local/global/table index, memory immediates).
	A, B      uint32
	MemOffset uint64
	MemAlign  uint32

	Cmp Cmp // meaningful only for OpBrCmp

	// Args holds call argument registers, in call order, for
	// call/call_indirect/return_call/return_call_indirect. TableReg holds
	// the table-index register for the two indirect forms.
	Args     []VReg
	TableReg VReg

	// Results holds output registers: the call's return values for
	// call/call_indirect, or the function's return values for
	// return_call/return_call_indirect/return/return_if. nil for every
	// other Op.
	Results []VReg
}

// BrTable is br_table's out-of-line target list, carried over from
// pir.BrTable with every target remapped to a register-IR index.
type BrTable struct {
	Targets []uint32
}

// Program is one function's register-IR form.
type Program struct {
	Code     []Instruction
	BrTables []BrTable

	// SourceIndex[i] is the pir.Program instruction index Code[i] was built
	// from, threaded through from pir.Program.SourceIndex so traps and
	// deoptimization can still name an original wasm instruction.
	SourceIndex []int

	NumLocals int // == pir.Program.NumLocals; registers 0..NumLocals-1 are locals
	NumParams int
	NumRegs   int // total virtual registers used, locals included
}
