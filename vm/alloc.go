/*
 * fruticose vm - Allocator family: strategy dispatch, sealed handles
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

// Strategy names an allocator implementation. StrategyBump is the only
// one wired up today; the dispatch in Alloc/Free/FreeAll is the
// extension point for more.
type Strategy uint8

const StrategyBump Strategy = 0

func (s Strategy) String() string {
	switch s {
	case StrategyBump:
		return "bump"
	default:
		return fmt.Sprintf("strategy(%d)", uint8(s))
	}
}

// InitFlags is a bitmask of allocator-wide zeroing policies.
type InitFlags uint8

const (
	InitOnAlloc InitFlags = 1 << iota
	InitOnFree
)

func (f InitFlags) has(bit InitFlags) bool { return f&bit == bit }

var strategyLayout = Layout{Size: 1, Align: MustAlign(1)}
var initFlagsLayout = Layout{Size: 1, Align: MustAlign(1)}

func (s Strategy) Write(dst []byte, addr UAddr, valid []bool) error {
	if len(dst) != 1 {
		return &Exception{Kind: ExcInvalidMemAccess, Detail: "strategy write: bad slice length"}
	}
	dst[0] = byte(s)
	clearTags(valid)
	return nil
}

func (s *Strategy) Read(src []byte, addr UAddr, valid []bool) error {
	if len(src) != 1 {
		return &Exception{Kind: ExcInvalidMemAccess, Detail: "strategy read: bad slice length"}
	}
	if src[0] != byte(StrategyBump) {
		return &Exception{Kind: ExcInvalidAllocStrategy, Detail: fmt.Sprintf("byte %#x", src[0])}
	}
	*s = Strategy(src[0])
	return nil
}

func (f InitFlags) Write(dst []byte, addr UAddr, valid []bool) error {
	if len(dst) != 1 {
		return &Exception{Kind: ExcInvalidMemAccess, Detail: "init flags write: bad slice length"}
	}
	dst[0] = byte(f)
	clearTags(valid)
	return nil
}

func (f *InitFlags) Read(src []byte, addr UAddr, valid []bool) error {
	if len(src) != 1 {
		return &Exception{Kind: ExcInvalidMemAccess, Detail: "init flags read: bad slice length"}
	}
	if src[0]&^byte(InitOnAlloc|InitOnFree) != 0 {
		return &Exception{Kind: ExcInvalidAllocInitFlags, Detail: fmt.Sprintf("flags %#x", src[0])}
	}
	*f = InitFlags(src[0])
	return nil
}

// Header is the fixed prefix of every allocator region: strategy tag
// followed by zeroing flags. Strategy-specific state follows it, at the
// next grain-aligned address (see bumpStateAddr).
type Header struct {
	Strategy Strategy
	Flags    InitFlags
}

var headerFieldLayouts = []Layout{strategyLayout, initFlagsLayout}

// HeaderLayout is Header's fixed (size, align) footprint.
func HeaderLayout() Layout {
	return FoldLayout(headerFieldLayouts)
}

func (h Header) Write(dst []byte, addr UAddr, valid []bool) error {
	s := NewStructMut(dst, addr, valid, headerFieldLayouts)
	if err := WriteNextField(s, h.Strategy); err != nil {
		return err
	}
	return WriteNextField(s, h.Flags)
}

func (h *Header) Read(src []byte, addr UAddr, valid []bool) error {
	s := NewStructRef(src, addr, valid, headerFieldLayouts)
	strat, err := ReadNextField[Strategy](s)
	if err != nil {
		return err
	}
	flags, err := ReadNextField[InitFlags](s)
	if err != nil {
		return err
	}
	h.Strategy, h.Flags = strat, flags
	return nil
}

// AllocErrKind distinguishes why an allocation request failed.
type AllocErrKind int

const (
	AllocErrNotEnoughMem AllocErrKind = iota
	AllocErrOom
)

func (k AllocErrKind) String() string {
	if k == AllocErrOom {
		return "out of memory"
	}
	return "not enough memory"
}

// Stats is the allocator's self-report: strategy, flags, and bytes
// remaining free. It's what AllocStat returns, packed into a0.
type Stats struct {
	Strategy  Strategy
	Flags     InitFlags
	BytesFree UAddr
}

// ToGran packs Stats into a single grain for the single-return AllocStat
// syscall: low 64 bits are bytes free, next byte is strategy, next byte
// is flags.
func (s Stats) ToGran() Gran {
	g := GranFromUint64(uint64(s.BytesFree))
	g = g.Or(GranFromUint64(uint64(s.Strategy)).Shl(64))
	g = g.Or(GranFromUint64(uint64(s.Flags)).Shl(72))
	return g
}

// StatsFromGran is ToGran's inverse.
func StatsFromGran(g Gran) Stats {
	return Stats{
		BytesFree: UAddr(g.Uint64()),
		Strategy:  Strategy(g.Shr(64).Uint64() & 0xff),
		Flags:     InitFlags(g.Shr(72).Uint64() & 0xff),
	}
}

// allocatorKey builds a privileged sealing/unsealing witness. Only the
// allocator functions in this file construct a TaggedCapability with
// Tag=true out of thin air like this: it is the implementation of the
// self-sealing trick, safe only because AllocInit revokes every prior
// capability into the region before the handle it produces is ever
// observable to guest code.
func allocatorKey(addr UAddr, bounds TaggedCapability, perms Perm) TaggedCapability {
	return TaggedCapability{
		Tag: true,
		Cap: Capability{
			Addr:  addr,
			Start: bounds.Cap.Start,
			Endb:  bounds.Cap.Endb,
			Perms: perms,
			OType: Unsealed,
		},
	}
}

// AllocInit revokes every capability intersecting region, installs a
// fresh allocator of the given strategy and flags, and returns a sealed
// handle over the whole region.
func AllocInit(m *Memory, strategy Strategy, flags InitFlags, region TaggedCapability) (TaggedCapability, error) {
	if strategy != StrategyBump {
		return TaggedCapability{}, &Exception{Kind: ExcInvalidAllocStrategy, Detail: strategy.String()}
	}
	if flags&^(InitOnAlloc|InitOnFree) != 0 {
		return TaggedCapability{}, &Exception{Kind: ExcInvalidAllocInitFlags, Detail: fmt.Sprintf("%#x", uint8(flags))}
	}
	if !region.Tag || region.Cap.IsSealed() {
		return TaggedCapability{}, &Exception{Kind: ExcInvalidMemAccess, Detail: "alloc_init: region is not a valid unsealed capability"}
	}

	m.RevokeByBounds(region.Cap.Start, region.Cap.Endb)
	m.log.Debug("allocator init", "strategy", strategy.String(), "start", region.Cap.Start, "endb", region.Cap.Endb)

	hdrCap := region.SetAddr(region.Cap.Start)
	if err := m.Write(hdrCap, Header{Strategy: strategy, Flags: flags}); err != nil {
		return TaggedCapability{}, err
	}

	stateAddr := bumpStateAddr(region.Cap)
	freeStart := alignUp(stateAddr+UGranSize, UGranSize)
	bumpState := TaggedCapability{
		Tag: true,
		Cap: Capability{
			Addr:  freeStart,
			Start: freeStart,
			Endb:  region.Cap.Endb,
			Perms: region.Cap.Perms &^ (PermSeal | PermUnseal),
			OType: Unsealed,
		},
	}
	stateCap := region.SetAddr(stateAddr)
	if err := m.Write(stateCap, bumpState); err != nil {
		return TaggedCapability{}, err
	}

	key := allocatorKey(region.Cap.Start, region, PermSeal|PermUnseal)
	target := region.SetAddr(region.Cap.Start)
	handle, err := Seal(key, target)
	if err != nil {
		return TaggedCapability{}, err
	}
	return handle, nil
}

func bumpStateAddr(region Capability) UAddr {
	return alignUp(region.Start+HeaderLayout().Size, CapabilityLayout().Align.Get())
}

func readHeader(m *Memory, region TaggedCapability) (Header, error) {
	return Read[Header](m, region.SetAddr(region.Cap.Start))
}

func readBumpState(m *Memory, region TaggedCapability) (TaggedCapability, error) {
	return Read[TaggedCapability](m, region.SetAddr(bumpStateAddr(region.Cap)))
}

func writeBumpState(m *Memory, region TaggedCapability, state TaggedCapability) error {
	return m.Write(region.SetAddr(bumpStateAddr(region.Cap)), state)
}

func unsealHandle(handle TaggedCapability) (TaggedCapability, error) {
	key := allocatorKey(UAddr(handle.Cap.OType), handle, PermUnseal)
	return Unseal(key, handle)
}

// Alloc carves layout.Size bytes (aligned to layout.Align) out of
// handle's bump state, returning a capability over the new span with the
// allocator's own permissions.
func Alloc(m *Memory, handle TaggedCapability, layout Layout) (TaggedCapability, error) {
	region, err := unsealHandle(handle)
	if err != nil {
		return TaggedCapability{}, err
	}
	hdr, err := readHeader(m, region)
	if err != nil {
		return TaggedCapability{}, err
	}
	state, err := readBumpState(m, region)
	if err != nil {
		return TaggedCapability{}, err
	}

	start := alignUp(state.Cap.Addr, layout.Align.Get())
	if start == state.Cap.Endb {
		stats := statsFor(hdr, state)
		return TaggedCapability{}, &Exception{Kind: ExcAllocErr, Stats: &stats, Requested: &layout, Detail: AllocErrOom.String()}
	}
	end := start + layout.Size
	if end > state.Cap.Endb || end < start {
		stats := statsFor(hdr, state)
		return TaggedCapability{}, &Exception{Kind: ExcAllocErr, Stats: &stats, Requested: &layout, Detail: AllocErrNotEnoughMem.String()}
	}

	newState := state.SetBounds(end, state.Cap.Endb).SetAddr(end)
	if err := writeBumpState(m, region, newState); err != nil {
		return TaggedCapability{}, err
	}

	result := TaggedCapability{
		Tag: true,
		Cap: Capability{
			Addr:  start,
			Start: start,
			Endb:  end,
			Perms: state.Cap.Perms,
			OType: Unsealed,
		},
	}
	if hdr.Flags.has(InitOnAlloc) {
		if err := m.Memset(result, result.Cap.Len(), UninitByte); err != nil {
			return TaggedCapability{}, err
		}
	}
	return result, nil
}

func statsFor(hdr Header, state TaggedCapability) Stats {
	return Stats{Strategy: hdr.Strategy, Flags: hdr.Flags, BytesFree: state.Cap.Endb - state.Cap.Addr}
}

// Free is a documented non-goal for the bump strategy: individual frees
// are not tracked, only bulk reclamation via FreeAll/Deinit.
func Free(m *Memory, handle TaggedCapability, allocation TaggedCapability) error {
	if _, err := unsealHandle(handle); err != nil {
		return err
	}
	return nil
}

// FreeAll revokes every capability into the allocator's free-list span
// and resets the bump pointer back to the start of free space,
// optionally zeroing it first.
func FreeAll(m *Memory, handle TaggedCapability) error {
	region, err := unsealHandle(handle)
	if err != nil {
		return err
	}
	hdr, err := readHeader(m, region)
	if err != nil {
		return err
	}
	stateAddr := bumpStateAddr(region.Cap)
	freeStart := alignUp(stateAddr+UGranSize, UGranSize)

	m.RevokeByBounds(freeStart, region.Cap.Endb)

	if hdr.Flags.has(InitOnFree) {
		wipe := TaggedCapability{Tag: true, Cap: Capability{Addr: freeStart, Start: freeStart, Endb: region.Cap.Endb, Perms: PermWrite, OType: Unsealed}}
		if err := m.Memset(wipe, region.Cap.Endb-freeStart, UninitByte); err != nil {
			return err
		}
	}

	reset := TaggedCapability{
		Tag: true,
		Cap: Capability{Addr: freeStart, Start: freeStart, Endb: region.Cap.Endb, Perms: region.Cap.Perms &^ (PermSeal | PermUnseal), OType: Unsealed},
	}
	return writeBumpState(m, region, reset)
}

// Deinit is FreeAll plus revoking the header range, returning an
// unsealed capability over the whole region to the caller.
func Deinit(m *Memory, handle TaggedCapability) (TaggedCapability, error) {
	region, err := unsealHandle(handle)
	if err != nil {
		return TaggedCapability{}, err
	}
	if err := FreeAll(m, handle); err != nil {
		return TaggedCapability{}, err
	}
	m.RevokeByBounds(region.Cap.Start, bumpStateAddr(region.Cap)+UGranSize)
	m.log.Debug("allocator deinit", "start", region.Cap.Start, "endb", region.Cap.Endb)
	return region, nil
}

// StatOf reports an allocator's current statistics without mutating it.
func StatOf(m *Memory, handle TaggedCapability) (Stats, error) {
	region, err := unsealHandle(handle)
	if err != nil {
		return Stats{}, err
	}
	hdr, err := readHeader(m, region)
	if err != nil {
		return Stats{}, err
	}
	state, err := readBumpState(m, region)
	if err != nil {
		return Stats{}, err
	}
	return statsFor(hdr, state), nil
}
