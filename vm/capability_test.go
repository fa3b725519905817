/*
 * fruticose vm - Capability algebra tests
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

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Invariant: a capability's full 117 authority bits plus its spare bits
// survive a pack/unpack round trip through a grain.
func TestCapabilityRoundTrip(t *testing.T) {
	c := Capability{
		Addr:  12345,
		Start: 100,
		Endb:  99999,
		Perms: PermRead | PermWrite | PermExec,
		OType: Unsealed,
		spare: 0x7ff,
	}
	got := CapabilityFromGran(c.ToGran())
	require.Equal(t, c, got)
}

func TestCapabilityRoundTripSealed(t *testing.T) {
	c := Capability{Addr: 16, Start: 16, Endb: 32, Perms: PermRead, OType: OType(16)}
	got := CapabilityFromGran(c.ToGran())
	require.Equal(t, c, got)
	require.True(t, got.IsSealed())
}

// Invariant: permissions only ever narrow. AndPerms can intersect down,
// never widen; a widening request goes tagless instead of erroring.
func TestPermMonotonicity(t *testing.T) {
	root := RootCapability(1024)
	c := root.AndPerms(PermRead | PermWrite)
	require.True(t, c.Tag)
	require.Equal(t, PermRead|PermWrite, c.Cap.Perms)

	narrowed := c.AndPerms(PermRead)
	require.True(t, narrowed.Tag)
	require.Equal(t, PermRead, narrowed.Cap.Perms)

	widened := c.AndPerms(PermRead | PermWrite | PermExec)
	require.False(t, widened.Tag, "widening perms must invalidate the tag")
}

// Invariant: bounds only ever narrow.
func TestBoundMonotonicity(t *testing.T) {
	root := RootCapability(1024)
	c := root.SetBounds(100, 900)
	require.True(t, c.Tag)

	narrower := c.SetBounds(200, 800)
	require.True(t, narrower.Tag)
	require.EqualValues(t, 200, narrower.Cap.Start)
	require.EqualValues(t, 800, narrower.Cap.Endb)

	widerStart := c.SetBounds(50, 800)
	require.False(t, widerStart.Tag, "widening start must invalidate the tag")

	widerEnd := c.SetBounds(200, 1000)
	require.False(t, widerEnd.Tag, "widening end must invalidate the tag")

	inverted := c.SetBounds(800, 200)
	require.False(t, inverted.Tag, "start > endb must invalidate the tag")
}

// Invariant: seal/unseal are exact inverses given the matching key, and
// unseal fails closed against the wrong key or an unsealed target.
func TestSealUnsealInverse(t *testing.T) {
	root := RootCapability(1024)
	sealer := root.SetBounds(0, 16).AndPerms(PermSeal | PermUnseal)
	target := root.SetBounds(100, 200).AndPerms(PermRead | PermWrite)

	sealed, err := Seal(sealer, target)
	require.NoError(t, err)
	require.True(t, sealed.Cap.IsSealed())

	unsealed, err := Unseal(sealer, sealed)
	require.NoError(t, err)
	require.False(t, unsealed.Cap.IsSealed())
	require.Equal(t, target.Cap.Start, unsealed.Cap.Start)
	require.Equal(t, target.Cap.Endb, unsealed.Cap.Endb)
	require.Equal(t, target.Cap.Perms, unsealed.Cap.Perms)
}

func TestUnsealRejectsWrongKey(t *testing.T) {
	root := RootCapability(1024)
	sealerA := root.SetBounds(0, 16).AndPerms(PermSeal | PermUnseal)
	sealerB := root.SetBounds(16, 32).SetAddr(16).AndPerms(PermSeal | PermUnseal)
	target := root.SetBounds(100, 200).AndPerms(PermRead)

	sealed, err := Seal(sealerA, target)
	require.NoError(t, err)

	_, err = Unseal(sealerB, sealed)
	require.Error(t, err)
}

func TestSealRejectsAlreadySealedTarget(t *testing.T) {
	root := RootCapability(1024)
	sealer := root.SetBounds(0, 16).AndPerms(PermSeal | PermUnseal)
	target := root.SetBounds(100, 200).AndPerms(PermRead)

	sealed, err := Seal(sealer, target)
	require.NoError(t, err)

	_, err = Seal(sealer, sealed)
	require.Error(t, err)
}

// Invariant: a sealed capability's address is frozen; neither SetAddr
// nor SetBounds nor AndPerms may act on it.
func TestSealedCapabilityIsFrozen(t *testing.T) {
	root := RootCapability(1024)
	sealer := root.SetBounds(0, 16).AndPerms(PermSeal | PermUnseal)
	target := root.SetBounds(100, 200).AndPerms(PermRead)
	sealed, err := Seal(sealer, target)
	require.NoError(t, err)

	require.False(t, sealed.SetAddr(150).Tag)
	require.False(t, sealed.SetBounds(100, 150).Tag)
	require.False(t, sealed.AndPerms(PermRead).Tag)
}

// Invariant: register 0 is hardwired to the untagged zero value and
// cannot be made to carry a tag.
func TestRegisterZeroHardwired(t *testing.T) {
	var r Registers
	r.Set(RegZero, RootCapability(1024))
	got := r.Get(RegZero)
	require.False(t, got.Tag)
	require.Equal(t, NullCapability, got.Cap)
}
