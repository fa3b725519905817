/*
 * fruticose vm - Capability algebra
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

// Bit widths of the packed capability word. AddrBits covers addr, start,
// and endb each; PermBits covers the permission field; OTypeBits covers
// the seal object-type field. 3*AddrBits + PermBits + OTypeBits must fit
// in UGranSize*8 bits.
//
// OTypeBits is deliberately equal to AddrBits rather than the historical
// narrower field: OTypeGranularity = 2^(AddrBits-OTypeBits) then comes out
// to 1, giving byte-granularity sealing. A coarser granularity would break
// the allocator's self-sealing trick (the region's own bounds become the
// sealing key) for any region that doesn't start at a granularity-aligned
// address.
const (
	AddrBits  = 28
	PermBits  = 5
	OTypeBits = 28
)

const (
	addrShift  = 0
	startShift = addrShift + AddrBits
	endbShift  = startShift + AddrBits
	permShift  = endbShift + AddrBits
	otypeShift = permShift + PermBits
	spareShift = otypeShift + OTypeBits
	spareBits  = 128 - spareShift
)

const addrMask = (uint64(1) << AddrBits) - 1
const permMask = (uint64(1) << PermBits) - 1
const otypeMask = (uint64(1) << OTypeBits) - 1
const spareMask = (uint64(1) << spareBits) - 1

// Perm is a bitmask of capability permissions.
type Perm uint8

const (
	PermRead Perm = 1 << iota
	PermWrite
	PermExec
	PermSeal
	PermUnseal
)

// Has reports whether p grants every permission set in want.
func (p Perm) Has(want Perm) bool {
	return p&want == want
}

func (p Perm) String() string {
	s := ""
	for bit, ch := range map[Perm]byte{PermRead: 'r', PermWrite: 'w', PermExec: 'x', PermSeal: 's', PermUnseal: 'u'} {
		if p.Has(bit) {
			s += string(ch)
		}
	}
	if s == "" {
		return "-"
	}
	return s
}

// OType is the object-type field of a sealed capability.
type OType uint32

// Unsealed is the sentinel OType value meaning "not sealed."
const Unsealed OType = OType(otypeMask)

// OTypeGranularity is the address alignment a sealing capability's address
// must satisfy to be used as a sealing key.
const OTypeGranularity UAddr = 1 << (AddrBits - OTypeBits)

// Capability is a bounded, permissioned, optionally-sealed pointer. Its
// validity as a capability (as opposed to forgeable data) lives
// out-of-band in a tag bit, tracked by TagController, not in this struct.
//
// addr/start/endb/perms/otype only use 117 of the grain's 128 bits; the
// top spare bits are carried in the unexported spare field purely so
// ToGran/CapabilityFromGran round-trip every bit of a register's
// contents, not just the bits a genuine capability ever sets. Without
// that, a register holding plain data wider than 117 bits (e.g. an
// AddI/Add result, or a syscall argument packed into a full grain) would
// silently lose its high bits every time it passed through the
// capability-shaped register representation.
type Capability struct {
	Addr  UAddr
	Start UAddr
	Endb  UAddr
	Perms Perm
	OType OType
	spare uint16
}

// NullCapability is the unsealed capability with no permissions, address
// zero and an empty [0,0) span.
var NullCapability = Capability{OType: Unsealed}

// Len returns the capability's bounds length in bytes.
func (c Capability) Len() UAddr {
	return c.Endb - c.Start
}

// IsSealed reports whether c carries a seal.
func (c Capability) IsSealed() bool {
	return c.OType != Unsealed
}

// InBounds reports whether [addr, addr+size) lies within [c.Start, c.Endb).
func (c Capability) InBounds(addr UAddr, size UAddr) bool {
	if size == 0 {
		return addr >= c.Start && addr <= c.Endb
	}
	end := addr + size
	return addr >= c.Start && end >= addr && end <= c.Endb
}

// ToGran packs c into a single grain.
func (c Capability) ToGran() Gran {
	g := GranFromUint64((uint64(c.Addr) & addrMask) << addrShift)
	g = g.Or(GranFromUint64((uint64(c.Start) & addrMask) << startShift))
	g = g.Or(shiftedHi((uint64(c.Endb)&addrMask)<<0, endbShift))
	g = g.Or(shiftedHi((uint64(c.Perms)&permMask)<<0, permShift))
	g = g.Or(shiftedHi((uint64(c.OType)&otypeMask)<<0, otypeShift))
	g = g.Or(shiftedHi((uint64(c.spare)&spareMask)<<0, spareShift))
	return g
}

// shiftedHi builds GranFromUint64(v).Shl(shift) without relying on
// intermediate overflow of the plain uint64 shift when shift >= 64.
func shiftedHi(v uint64, shift uint) Gran {
	return GranFromUint64(v).Shl(shift)
}

// CapabilityFromGran unpacks a grain into a capability.
func CapabilityFromGran(g Gran) Capability {
	addr := g.Shr(addrShift).Uint64() & addrMask
	start := g.Shr(startShift).Uint64() & addrMask
	endb := g.Shr(endbShift).Uint64() & addrMask
	perms := g.Shr(permShift).Uint64() & permMask
	otype := g.Shr(otypeShift).Uint64() & otypeMask
	spare := g.Shr(spareShift).Uint64() & spareMask
	return Capability{
		Addr:  UAddr(addr),
		Start: UAddr(start),
		Endb:  UAddr(endb),
		Perms: Perm(perms),
		OType: OType(otype),
		spare: uint16(spare),
	}
}

// DataValue wraps a raw grain as an untagged register value: the usual
// way arithmetic and load-immediate results get written back to a
// register, since they never carry capability provenance.
func DataValue(g Gran) TaggedCapability {
	return TaggedCapability{Cap: CapabilityFromGran(g), Tag: false}
}

// Data reconstructs the full 128-bit grain a register's bits encode,
// regardless of whether it's meaningfully a capability. Reading a
// register as data (as opposed to as a TaggedCapability) always goes
// through this, never through the individual Capability fields, since
// those only cover 117 of the 128 bits.
func (t TaggedCapability) Data() Gran {
	return t.Cap.ToGran()
}

// TaggedCapability pairs a Capability with the validity bit that, when
// false, demotes it to forgeable data.
type TaggedCapability struct {
	Cap Capability
	Tag bool
}

// RootCapability is the unique capability blessed as valid at boot,
// spanning the whole address space with every permission.
func RootCapability(memSize UAddr) TaggedCapability {
	return TaggedCapability{
		Cap: Capability{
			Addr:  0,
			Start: 0,
			Endb:  memSize,
			Perms: PermRead | PermWrite | PermExec | PermSeal | PermUnseal,
			OType: Unsealed,
		},
		Tag: true,
	}
}

// SetAddr moves the capability's cursor. Address alone carries no
// authority, so moving it out of bounds never invalidates the tag —
// bounds are checked at the access site, not here — but a sealed
// capability's address is frozen, per the seal-immutability invariant.
func (t TaggedCapability) SetAddr(addr UAddr) TaggedCapability {
	if !t.Tag || t.Cap.IsSealed() {
		t.Tag = false
		return t
	}
	t.Cap.Addr = addr
	return t
}

// SetBounds narrows [start, endb). Per the monotonicity invariant, a
// request that would widen the bounds invalidates the tag instead of
// being rejected outright — capability algebra never raises new
// authority, it only either narrows or goes tagless.
func (t TaggedCapability) SetBounds(start, endb UAddr) TaggedCapability {
	if !t.Tag || t.Cap.IsSealed() || start < t.Cap.Start || endb > t.Cap.Endb || start > endb {
		t.Tag = false
		return t
	}
	t.Cap.Start = start
	t.Cap.Endb = endb
	return t
}

// AndPerms narrows the permission set by intersection. Like SetBounds, an
// attempt to add a permission the capability doesn't already carry
// invalidates the tag rather than erroring.
func (t TaggedCapability) AndPerms(perms Perm) TaggedCapability {
	if !t.Tag || t.Cap.IsSealed() || perms&^t.Cap.Perms != 0 {
		t.Tag = false
		return t
	}
	t.Cap.Perms &= perms
	return t
}

// SetPermsFrom rederives t's permissions from root: it takes root's
// permission set, narrows it by t's own bounds and address (i.e. keeps
// t's addr/bounds), then narrows further to perms. Used when a
// capability's permissions must be raised back up to what the root
// would grant over the same span (e.g. relaxing a write-only program
// image to read+exec once installed), which a plain AndPerms could never
// do since it can only narrow an existing capability's own permissions.
func (t TaggedCapability) SetPermsFrom(perms Perm, root TaggedCapability) TaggedCapability {
	if !root.Tag || root.Cap.IsSealed() {
		t.Tag = false
		return t
	}
	derived := root
	derived = derived.SetBounds(t.Cap.Start, t.Cap.Endb)
	derived = derived.SetAddr(t.Cap.Addr)
	return derived.AndPerms(perms)
}

// Seal seals target using sealer as the sealing key, per the access
// rules: sealer must be a valid, unsealed capability with PermSeal,
// sealer's address must be OTypeGranularity-aligned, and target must be
// a valid, unsealed capability.
func Seal(sealer, target TaggedCapability) (TaggedCapability, error) {
	if !sealer.Tag {
		return TaggedCapability{}, &Exception{Kind: ExcInvalidRegAccess, Detail: "seal: sealing key is untagged"}
	}
	if sealer.Cap.IsSealed() {
		return TaggedCapability{}, &Exception{Kind: ExcInvalidRegAccess, Detail: "seal: sealing key is itself sealed"}
	}
	if !sealer.Cap.Perms.Has(PermSeal) {
		return TaggedCapability{}, &Exception{Kind: ExcInvalidRegAccess, Detail: "seal: sealing key lacks seal permission"}
	}
	if sealer.Cap.Addr%OTypeGranularity != 0 {
		return TaggedCapability{}, &Exception{Kind: ExcInvalidAlign, Detail: fmt.Sprintf("seal: key address %#x not aligned to %d", sealer.Cap.Addr, OTypeGranularity)}
	}
	if !sealer.Cap.InBounds(sealer.Cap.Addr, 0) {
		return TaggedCapability{}, &Exception{Kind: ExcInvalidMemAccess, Detail: "seal: sealing key address out of its own bounds"}
	}
	if !target.Tag {
		return TaggedCapability{}, &Exception{Kind: ExcInvalidRegAccess, Detail: "seal: target is untagged"}
	}
	if target.Cap.IsSealed() {
		return TaggedCapability{}, &Exception{Kind: ExcInvalidRegAccess, Detail: "seal: target is already sealed"}
	}
	target.Cap.OType = OType(uint64(sealer.Cap.Addr) & otypeMask)
	return target, nil
}

// Unseal reverses Seal: sealer must carry PermUnseal and its address must
// match target's object type exactly.
func Unseal(sealer, target TaggedCapability) (TaggedCapability, error) {
	if !sealer.Tag {
		return TaggedCapability{}, &Exception{Kind: ExcInvalidRegAccess, Detail: "unseal: sealing key is untagged"}
	}
	if sealer.Cap.IsSealed() {
		return TaggedCapability{}, &Exception{Kind: ExcInvalidRegAccess, Detail: "unseal: sealing key is itself sealed"}
	}
	if !sealer.Cap.Perms.Has(PermUnseal) {
		return TaggedCapability{}, &Exception{Kind: ExcInvalidRegAccess, Detail: "unseal: sealing key lacks unseal permission"}
	}
	if !target.Tag || !target.Cap.IsSealed() {
		return TaggedCapability{}, &Exception{Kind: ExcInvalidRegAccess, Detail: "unseal: target is not a sealed capability"}
	}
	if uint64(target.Cap.OType) != uint64(sealer.Cap.Addr)&otypeMask {
		return TaggedCapability{}, &Exception{Kind: ExcInvalidRegAccess, Detail: "unseal: key does not match object type"}
	}
	target.Cap.OType = Unsealed
	return target, nil
}

func (c Capability) String() string {
	sealed := "unsealed"
	if c.IsSealed() {
		sealed = fmt.Sprintf("sealed(%#x)", uint32(c.OType))
	}
	return fmt.Sprintf("%#x [%#x,%#x) %s %s", c.Addr, c.Start, c.Endb, c.Perms, sealed)
}

func (t TaggedCapability) String() string {
	if !t.Tag {
		return fmt.Sprintf("%#x (untagged)", t.Cap.Addr)
	}
	return t.Cap.String()
}

// CapabilityLayout describes a Capability/TaggedCapability's in-memory footprint:
// one grain, grain-aligned.
func CapabilityLayout() Layout {
	return Layout{Size: UGranSize, Align: MustAlign(UGranSize)}
}

// Write implements Ty: a capability write stores the packed grain and
// marks the covered granule tag valid iff the tag bit is set.
func (t TaggedCapability) Write(dst []byte, addr UAddr, valid []bool) error {
	if len(dst) != UGranSize {
		return &Exception{Kind: ExcInvalidMemAccess, Detail: "capability write: bad slice length"}
	}
	b := t.Cap.ToGran().Bytes()
	copy(dst, b[:])
	if len(valid) != 1 {
		return &Exception{Kind: ExcInvalidMemAccess, Detail: "capability write: bad valid-bit span"}
	}
	valid[0] = t.Tag
	return nil
}

// Read implements TyPtr: it reconstructs a capability and its tag bit
// from a granule.
func (t *TaggedCapability) Read(src []byte, addr UAddr, valid []bool) error {
	if len(src) != UGranSize {
		return &Exception{Kind: ExcInvalidMemAccess, Detail: "capability read: bad slice length"}
	}
	if len(valid) != 1 {
		return &Exception{Kind: ExcInvalidMemAccess, Detail: "capability read: bad valid-bit span"}
	}
	t.Cap = CapabilityFromGran(GranFromBytes(src))
	t.Tag = valid[0]
	return nil
}
