/*
 * fruticose vm - Fetch/decode/execute loop
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

// granFromSAddr sign-extends a signed address-width value to a full
// grain, the way every immediate operand is widened before it takes part
// in grain-width arithmetic.
func granFromSAddr(v SAddr) Gran {
	hi := uint64(0)
	if v < 0 {
		hi = ^uint64(0)
	}
	return Gran{Lo: uint64(v), Hi: hi}
}

func boolToGran(b bool) Gran {
	if b {
		return GranFromUint64(1)
	}
	return GranFromUint64(0)
}

// fetchOp reads one Op from pc, requiring Execute permission rather than
// Read: instruction fetch and data load are different access kinds even
// though both end up reading bytes.
func (m *Memory) fetchOp(pc TaggedCapability) (Op, error) {
	l := OpLayout()
	access := MemAccess{Cap: pc, Len: l.Size, Align: l.Align, Kind: AccessExecute}
	if err := access.Check(); err != nil {
		return Op{}, err
	}
	addr := pc.Cap.Addr
	return ReadTy[Op](m.bytes[addr:addr+l.Size], addr, m.tags.Span(addr, l.Size))
}

func wrapExc(err error, pc UAddr) error {
	if err == nil {
		return nil
	}
	if exc, ok := err.(*Exception); ok {
		return &VmException{Exc: *exc, Pc: pc}
	}
	return err
}

// Step executes exactly one instruction: fetch, pre-emptive PC advance,
// dispatch. Side effects committed before a dispatch-time exception
// (including the pre-emptive advance) are retained; only a fetch-time
// exception leaves the PC untouched.
func (m *Memory) Step() error {
	pc := m.regs.Pc()
	op, err := m.fetchOp(pc)
	if err != nil {
		return wrapExc(err, pc.Cap.Addr)
	}

	incPc := pc.SetAddr(pc.Cap.Addr + OpLayout().Size)
	m.regs.SetPc(incPc)

	if err := m.dispatch(pc, incPc, op); err != nil {
		return wrapExc(err, pc.Cap.Addr)
	}
	return nil
}

// Run steps the machine until ProcessExit or a fault. A clean exit
// returns its code with a nil error; any other exception is returned
// as-is for the caller to report.
func (m *Memory) Run() (int, error) {
	for {
		if err := m.Step(); err != nil {
			if code, ok := IsProcessExit(err); ok {
				return code, nil
			}
			return 0, err
		}
	}
}

func (m *Memory) dispatch(pc, incPc TaggedCapability, op Op) error {
	r := &m.regs
	get := r.Get
	set := r.Set

	binALU := func(f func(a, b Gran) Gran) error {
		rd, rs, rt := op.Op1.AsReg(), op.Op2.AsReg(), op.Op3.AsReg()
		set(rd, DataValue(f(get(rs).Data(), get(rt).Data())))
		return nil
	}
	immALU := func(f func(a, imm Gran) Gran) error {
		rd, rs, imm := op.Op1.AsReg(), op.Op2.AsReg(), op.Op3.AsImmS()
		set(rd, DataValue(f(get(rs).Data(), granFromSAddr(imm))))
		return nil
	}
	shiftBin := func(f func(a Gran, n uint) Gran) error {
		rd, rs, rt := op.Op1.AsReg(), op.Op2.AsReg(), op.Op3.AsReg()
		n := uint(get(rt).Data().Uint64())
		set(rd, DataValue(f(get(rs).Data(), n)))
		return nil
	}
	shiftImm := func(f func(a Gran, n uint) Gran) error {
		rd, rs, imm := op.Op1.AsReg(), op.Op2.AsReg(), op.Op3.AsImmU()
		set(rd, DataValue(f(get(rs).Data(), uint(imm))))
		return nil
	}
	branch := func(cond bool) error {
		if cond {
			target := pc.SetAddr(pc.Cap.Addr + UAddr(op.Op3.AsImmS()))
			r.SetPc(target)
		}
		return nil
	}

	switch op.Kind {
	case OpNop:
		return nil

	case OpCGetAddr:
		rd, rs := op.Op1.AsReg(), op.Op2.AsReg()
		set(rd, DataValue(GranFromUint64(uint64(get(rs).Cap.Addr))))
		return nil
	case OpCSetAddr:
		rd, rs, rt := op.Op1.AsReg(), op.Op2.AsReg(), op.Op3.AsReg()
		newAddr := UAddr(get(rt).Data().Uint64())
		set(rd, get(rs).SetAddr(newAddr))
		return nil
	case OpCGetBound:
		rd1, rd2, rs := op.Op1.AsReg(), op.Op2.AsReg(), op.Op3.AsReg()
		set(rd1, DataValue(GranFromUint64(uint64(get(rs).Cap.Start))))
		set(rd2, DataValue(GranFromUint64(uint64(get(rs).Cap.Endb))))
		return nil
	case OpCSetBound:
		rd, rs, rt := op.Op1.AsReg(), op.Op2.AsReg(), op.Op3.AsReg()
		bounds := get(rt).Data()
		set(rd, get(rs).SetBounds(UAddr(bounds.Lo), UAddr(bounds.Hi)))
		return nil
	case OpCGetPerm:
		rd, rs := op.Op1.AsReg(), op.Op2.AsReg()
		set(rd, DataValue(GranFromUint64(uint64(get(rs).Cap.Perms))))
		return nil
	case OpCSetPerm:
		rd, rs, rt := op.Op1.AsReg(), op.Op2.AsReg(), op.Op3.AsReg()
		perms := Perm(get(rt).Data().Uint64() & uint64(permMask))
		set(rd, get(rs).AndPerms(perms))
		return nil
	case OpCGetType:
		rd, rs := op.Op1.AsReg(), op.Op2.AsReg()
		set(rd, DataValue(GranFromUint64(uint64(get(rs).Cap.OType))))
		return nil
	case OpCGetValid:
		rd, rs := op.Op1.AsReg(), op.Op2.AsReg()
		set(rd, DataValue(boolToGran(get(rs).Tag)))
		return nil
	case OpCSeal:
		rd, rs, rt := op.Op1.AsReg(), op.Op2.AsReg(), op.Op3.AsReg()
		result, err := Seal(get(rt), get(rs))
		if err != nil {
			return err
		}
		set(rd, result)
		return nil
	case OpCUnseal:
		rd, rs, rt := op.Op1.AsReg(), op.Op2.AsReg(), op.Op3.AsReg()
		result, err := Unseal(get(rt), get(rs))
		if err != nil {
			return err
		}
		set(rd, result)
		return nil
	case OpCpy:
		rd, rs := op.Op1.AsReg(), op.Op2.AsReg()
		set(rd, get(rs))
		return nil

	case OpLoadU8, OpLoadU16, OpLoadU32, OpLoadU64, OpLoadC:
		rd, rs, imm := op.Op1.AsReg(), op.Op2.AsReg(), op.Op3.AsImmS()
		addrCap := get(rs).SetAddr(get(rs).Cap.Addr + UAddr(imm))
		switch op.Kind {
		case OpLoadU8:
			v, err := Read[U8](m, addrCap)
			if err != nil {
				return err
			}
			set(rd, DataValue(GranFromUint64(uint64(v))))
		case OpLoadU16:
			v, err := Read[U16](m, addrCap)
			if err != nil {
				return err
			}
			set(rd, DataValue(GranFromUint64(uint64(v))))
		case OpLoadU32:
			v, err := Read[U32](m, addrCap)
			if err != nil {
				return err
			}
			set(rd, DataValue(GranFromUint64(uint64(v))))
		case OpLoadU64:
			v, err := Read[U64](m, addrCap)
			if err != nil {
				return err
			}
			set(rd, DataValue(GranFromUint64(uint64(v))))
		case OpLoadC:
			v, err := Read[TaggedCapability](m, addrCap)
			if err != nil {
				return err
			}
			set(rd, v)
		}
		return nil
	case OpLoadI:
		rd, imm := op.Op1.AsReg(), op.Op2.AsImmS()
		set(rd, DataValue(granFromSAddr(imm)))
		return nil

	case OpStore8, OpStore16, OpStore32, OpStore64, OpStoreC:
		rs, rt, imm := op.Op1.AsReg(), op.Op2.AsReg(), op.Op3.AsImmS()
		base := get(rs)
		addrCap := base.SetAddr(base.Cap.Addr + UAddr(imm))
		switch op.Kind {
		case OpStore8:
			return m.Write(addrCap, U8(get(rt).Data().Uint64()))
		case OpStore16:
			return m.Write(addrCap, U16(get(rt).Data().Uint64()))
		case OpStore32:
			return m.Write(addrCap, U32(get(rt).Data().Uint64()))
		case OpStore64:
			return m.Write(addrCap, U64(get(rt).Data().Uint64()))
		case OpStoreC:
			return m.Write(addrCap, get(rt))
		}
		return nil

	case OpAddI:
		return immALU(func(a, imm Gran) Gran { return a.Add(imm) })
	case OpAdd:
		return binALU(func(a, b Gran) Gran { return a.Add(b) })
	case OpSub:
		return binALU(func(a, b Gran) Gran { return a.Sub(b) })

	case OpSltsI:
		return immALU(func(a, imm Gran) Gran { return boolToGran(a.CmpSigned(imm) < 0) })
	case OpSltuI:
		return immALU(func(a, imm Gran) Gran { return boolToGran(a.CmpUnsigned(imm) < 0) })
	case OpSlts:
		return binALU(func(a, b Gran) Gran { return boolToGran(a.CmpSigned(b) < 0) })
	case OpSltu:
		return binALU(func(a, b Gran) Gran { return boolToGran(a.CmpUnsigned(b) < 0) })

	case OpXorI:
		return immALU(func(a, imm Gran) Gran { return a.Xor(imm) })
	case OpXor:
		return binALU(func(a, b Gran) Gran { return a.Xor(b) })
	case OpOrI:
		return immALU(func(a, imm Gran) Gran { return a.Or(imm) })
	case OpOr:
		return binALU(func(a, b Gran) Gran { return a.Or(b) })
	case OpAndI:
		return immALU(func(a, imm Gran) Gran { return a.And(imm) })
	case OpAnd:
		return binALU(func(a, b Gran) Gran { return a.And(b) })

	case OpSllI:
		return shiftImm(func(a Gran, n uint) Gran { return a.Shl(n) })
	case OpSll:
		return shiftBin(func(a Gran, n uint) Gran { return a.Shl(n) })
	case OpSrlI:
		return shiftImm(func(a Gran, n uint) Gran { return a.Shr(n) })
	case OpSrl:
		return shiftBin(func(a Gran, n uint) Gran { return a.Shr(n) })
	case OpSraI:
		return shiftImm(func(a Gran, n uint) Gran { return a.Sra(n) })
	case OpSra:
		return shiftBin(func(a Gran, n uint) Gran { return a.Sra(n) })

	case OpJal:
		rd, imm := op.Op1.AsReg(), op.Op2.AsImmS()
		set(rd, incPc)
		r.SetPc(pc.SetAddr(pc.Cap.Addr + UAddr(imm)))
		return nil
	case OpJalr:
		rd, rbase, imm := op.Op1.AsReg(), op.Op2.AsReg(), op.Op3.AsImmS()
		base := get(rbase)
		set(rd, incPc)
		r.SetPc(base.SetAddr(base.Cap.Addr + UAddr(imm)))
		return nil

	case OpBeq:
		r1, r2 := op.Op1.AsReg(), op.Op2.AsReg()
		return branch(get(r1).Data().CmpUnsigned(get(r2).Data()) == 0)
	case OpBne:
		r1, r2 := op.Op1.AsReg(), op.Op2.AsReg()
		return branch(get(r1).Data().CmpUnsigned(get(r2).Data()) != 0)
	case OpBlts:
		r1, r2 := op.Op1.AsReg(), op.Op2.AsReg()
		return branch(get(r1).Data().CmpSigned(get(r2).Data()) < 0)
	case OpBges:
		r1, r2 := op.Op1.AsReg(), op.Op2.AsReg()
		return branch(get(r1).Data().CmpSigned(get(r2).Data()) >= 0)
	case OpBltu:
		r1, r2 := op.Op1.AsReg(), op.Op2.AsReg()
		return branch(get(r1).Data().CmpUnsigned(get(r2).Data()) < 0)
	case OpBgeu:
		r1, r2 := op.Op1.AsReg(), op.Op2.AsReg()
		return branch(get(r1).Data().CmpUnsigned(get(r2).Data()) >= 0)

	case OpSyscall:
		return Dispatch(m)

	default:
		return &Exception{Kind: ExcInvalidOpKind, Detail: op.Kind.String()}
	}
}
