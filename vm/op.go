/*
 * fruticose vm - Instruction encoding
 *
 * Copyright 2026, The Fruticose VM contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package vm

import "fmt"

// OpKind numbers the machine's opcodes. Byte values are assigned by
// declaration order; renumbering is a binary-compatibility break.
type OpKind uint8

const (
	OpNop OpKind = iota

	OpCGetAddr
	OpCSetAddr
	OpCGetBound
	OpCSetBound
	OpCGetPerm
	OpCSetPerm
	OpCGetType
	OpCGetValid
	OpCSeal
	OpCUnseal
	OpCpy

	OpLoadU8
	OpLoadU16
	OpLoadU32
	OpLoadU64
	OpLoadC
	OpLoadI
	OpStore8
	OpStore16
	OpStore32
	OpStore64
	OpStoreC

	OpAddI
	OpAdd
	OpSub

	OpSltsI
	OpSltuI
	OpSlts
	OpSltu

	OpXorI
	OpXor
	OpOrI
	OpOr
	OpAndI
	OpAnd

	OpSllI
	OpSll
	OpSrlI
	OpSrl
	OpSraI
	OpSra

	OpJal
	OpJalr
	OpBeq
	OpBne
	OpBlts
	OpBges
	OpBltu
	OpBgeu

	OpSyscall

	opKindCount
)

// arity is how many of an instruction's three operand slots are
// semantically meaningful; the rest exist only to keep every Op the same
// width and must be ignored by equality and display.
type arity int

const (
	arity0 arity = 0
	arity2 arity = 2
	arity3 arity = 3
)

type opInfo struct {
	name  string
	arity arity
}

var opTable = [opKindCount]opInfo{
	OpNop: {"nop", arity0},

	OpCGetAddr:  {"cgetaddr", arity2},
	OpCSetAddr:  {"csetaddr", arity3},
	OpCGetBound: {"cgetbound", arity3},
	OpCSetBound: {"csetbound", arity3},
	OpCGetPerm:  {"cgetperm", arity2},
	OpCSetPerm:  {"csetperm", arity3},
	OpCGetType:  {"cgettype", arity2},
	OpCGetValid: {"cgetvalid", arity2},
	OpCSeal:     {"cseal", arity3},
	OpCUnseal:   {"cunseal", arity3},
	OpCpy:       {"cpy", arity2},

	OpLoadU8:  {"loadu8", arity3},
	OpLoadU16: {"loadu16", arity3},
	OpLoadU32: {"loadu32", arity3},
	OpLoadU64: {"loadu64", arity3},
	OpLoadC:   {"loadc", arity3},
	OpLoadI:   {"loadi", arity2},
	OpStore8:  {"store8", arity3},
	OpStore16: {"store16", arity3},
	OpStore32: {"store32", arity3},
	OpStore64: {"store64", arity3},
	OpStoreC:  {"storec", arity3},

	OpAddI: {"addi", arity3},
	OpAdd:  {"add", arity3},
	OpSub:  {"sub", arity3},

	OpSltsI: {"sltsi", arity3},
	OpSltuI: {"sltui", arity3},
	OpSlts:  {"slts", arity3},
	OpSltu:  {"sltu", arity3},

	OpXorI: {"xori", arity3},
	OpXor:  {"xor", arity3},
	OpOrI:  {"ori", arity3},
	OpOr:   {"or", arity3},
	OpAndI: {"andi", arity3},
	OpAnd:  {"and", arity3},

	OpSllI: {"slli", arity3},
	OpSll:  {"sll", arity3},
	OpSrlI: {"srli", arity3},
	OpSrl:  {"srl", arity3},
	OpSraI: {"srai", arity3},
	OpSra:  {"sra", arity3},

	OpJal:  {"jal", arity2},
	OpJalr: {"jalr", arity3},
	OpBeq:  {"beq", arity3},
	OpBne:  {"bne", arity3},
	OpBlts: {"blts", arity3},
	OpBges: {"bges", arity3},
	OpBltu: {"bltu", arity3},
	OpBgeu: {"bgeu", arity3},

	OpSyscall: {"syscall", arity0},
}

// Valid reports whether k names a known opcode.
func (k OpKind) Valid() bool {
	return k < opKindCount
}

// Arity returns how many operand slots k uses.
func (k OpKind) Arity() int {
	if !k.Valid() {
		return 0
	}
	return int(opTable[k].arity)
}

func (k OpKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("op(%d)", uint8(k))
	}
	return opTable[k].name
}

// OpKindFromName resolves an assembler mnemonic to its opcode.
func OpKindFromName(name string) (OpKind, bool) {
	for i := OpKind(0); i < opKindCount; i++ {
		if opTable[i].name == name {
			return i, true
		}
	}
	return 0, false
}

var opKindLayout = Layout{Size: 1, Align: MustAlign(1)}

// Write implements Ty: the opcode is one byte, and like any scalar write
// it clears the tag bit it overlaps.
func (k OpKind) Write(dst []byte, addr UAddr, valid []bool) error {
	if len(dst) != 1 {
		return &Exception{Kind: ExcInvalidMemAccess, Detail: "opcode write: bad slice length"}
	}
	dst[0] = byte(k)
	for i := range valid {
		valid[i] = false
	}
	return nil
}

// Read implements TyPtr.
func (k *OpKind) Read(src []byte, addr UAddr, valid []bool) error {
	if len(src) != 1 {
		return &Exception{Kind: ExcInvalidMemAccess, Detail: "opcode read: bad slice length"}
	}
	if !OpKind(src[0]).Valid() {
		return &Exception{Kind: ExcInvalidOpKind, Detail: fmt.Sprintf("byte %#x", src[0])}
	}
	*k = OpKind(src[0])
	return nil
}

// Op is one fetched/decoded instruction: an opcode plus three
// grain-and-tag-wide operand slots. Each slot's meaning (register index
// or immediate) is fixed by the opcode, not by the slot's own contents:
// register operands use the low 5 bits of the slot's address field (up
// to 32 registers); immediate operands use the slot's full address
// field, a signed or unsigned AddrBits-wide quantity depending on the
// opcode. Unused slots (beyond the opcode's arity) are ignored by
// equality and display.
type Op struct {
	Kind OpKind
	Op1  TaggedCapability
	Op2  TaggedCapability
	Op3  TaggedCapability
}

var opFieldLayouts = []Layout{opKindLayout, CapabilityLayout(), CapabilityLayout(), CapabilityLayout()}

// OpLayout is Op's fixed (size, align) footprint.
func OpLayout() Layout {
	return FoldLayout(opFieldLayouts)
}

// Write implements Ty.
func (o Op) Write(dst []byte, addr UAddr, valid []bool) error {
	s := NewStructMut(dst, addr, valid, opFieldLayouts)
	if err := WriteNextField(s, o.Kind); err != nil {
		return err
	}
	if err := WriteNextField(s, o.Op1); err != nil {
		return err
	}
	if err := WriteNextField(s, o.Op2); err != nil {
		return err
	}
	return WriteNextField(s, o.Op3)
}

// Read implements TyPtr.
func (o *Op) Read(src []byte, addr UAddr, valid []bool) error {
	s := NewStructRef(src, addr, valid, opFieldLayouts)
	kind, err := ReadNextField[OpKind](s)
	if err != nil {
		return err
	}
	op1, err := ReadTaggedCapabilityField(s)
	if err != nil {
		return err
	}
	op2, err := ReadTaggedCapabilityField(s)
	if err != nil {
		return err
	}
	op3, err := ReadTaggedCapabilityField(s)
	if err != nil {
		return err
	}
	o.Kind, o.Op1, o.Op2, o.Op3 = kind, op1, op2, op3
	return nil
}

// ReadTaggedCapabilityField is ReadNextField specialized for
// TaggedCapability; a plain type-parameter call site with the pointer
// method set spelled out reads awkwardly, so Op.Read goes through this
// instead.
func ReadTaggedCapabilityField(s *StructRef) (TaggedCapability, error) {
	return ReadNextField[TaggedCapability](s)
}

// Equal compares two ops for equality, ignoring operand slots beyond the
// opcode's arity: those slots are written with whatever an assembler or
// prior decode left behind and carry no meaning.
func (o Op) Equal(other Op) bool {
	if o.Kind != other.Kind {
		return false
	}
	switch o.Kind.Arity() {
	case 3:
		return o.Op1 == other.Op1 && o.Op2 == other.Op2 && o.Op3 == other.Op3
	case 2:
		return o.Op1 == other.Op1 && o.Op2 == other.Op2
	default:
		return true
	}
}

func (o Op) String() string {
	switch o.Kind.Arity() {
	case 3:
		return fmt.Sprintf("%s %s, %s, %s", o.Kind, o.Op1, o.Op2, o.Op3)
	case 2:
		return fmt.Sprintf("%s %s, %s", o.Kind, o.Op1, o.Op2)
	default:
		return o.Kind.String()
	}
}

// AsReg interprets an operand slot as a register index.
func (t TaggedCapability) AsReg() Register {
	return Register(t.Cap.Addr & 0x1F)
}

// AsImmU interprets an operand slot as an unsigned AddrBits-wide
// immediate.
func (t TaggedCapability) AsImmU() UAddr {
	return t.Cap.Addr & UAddr(addrMask)
}

// AsImmS interprets an operand slot as a signed AddrBits-wide immediate,
// sign-extended to the full width of SAddr.
func (t TaggedCapability) AsImmS() SAddr {
	v := t.Cap.Addr & UAddr(addrMask)
	signBit := UAddr(1) << (AddrBits - 1)
	if v&signBit != 0 {
		v |= ^UAddr(addrMask)
	}
	return SAddr(v)
}

// RegOperand builds an operand slot encoding a register index.
func RegOperand(r Register) TaggedCapability {
	return TaggedCapability{Cap: Capability{Addr: UAddr(r) & 0x1F, OType: Unsealed}}
}

// ImmOperand builds an operand slot encoding a signed immediate.
func ImmOperand(v SAddr) TaggedCapability {
	return TaggedCapability{Cap: Capability{Addr: UAddr(v) & UAddr(addrMask), OType: Unsealed}}
}
