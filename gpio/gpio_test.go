// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

package gpio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMem replaces the mapped registers with a plain block for the test.
func fakeMem(t *testing.T) []uint32 {
	t.Helper()
	memlock.Lock()
	saved := mem
	mem = make([]uint32, memLength/4)
	regs := mem
	memlock.Unlock()
	t.Cleanup(func() {
		memlock.Lock()
		mem = saved
		memlock.Unlock()
	})
	return regs
}

func TestNewPinNotOpen(t *testing.T) {
	memlock.Lock()
	saved := mem
	mem = nil
	memlock.Unlock()
	defer func() { mem = saved }()
	p, err := NewPin(17)
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.Nil(t, p)
}

func TestNewPinInvalid(t *testing.T) {
	fakeMem(t)
	for _, n := range []int{-1, MaxGPIOPin, 54} {
		p, err := NewPin(n)
		assert.ErrorIs(t, err, ErrInvalidPin, n)
		assert.Nil(t, p)
	}
}

func TestNewPinShadow(t *testing.T) {
	regs := fakeMem(t)
	regs[13] = 1 << 22
	p, err := NewPin(22)
	require.Nil(t, err)
	assert.Equal(t, 22, p.Pin())
	assert.Equal(t, High, p.Shadow())
	p, err = NewPin(23)
	require.Nil(t, err)
	assert.Equal(t, Low, p.Shadow())
}

func TestWrite(t *testing.T) {
	regs := fakeMem(t)
	p, err := NewPin(17)
	require.Nil(t, err)
	p.High()
	assert.Equal(t, uint32(1<<17), regs[7])
	assert.Zero(t, regs[10])
	assert.Equal(t, High, p.Shadow())
	p.Low()
	assert.Equal(t, uint32(1<<17), regs[10])
	assert.Equal(t, Low, p.Shadow())
	regs[7] = 0
	p.Toggle()
	assert.Equal(t, uint32(1<<17), regs[7])
	assert.Equal(t, High, p.Shadow())
}

func TestRead(t *testing.T) {
	regs := fakeMem(t)
	p, err := NewPin(4)
	require.Nil(t, err)
	assert.Equal(t, Low, p.Read())
	regs[13] = 1 << 4
	assert.Equal(t, High, p.Read())
	assert.Equal(t, High, p.Shadow())
	regs[13] = ^uint32(1 << 4)
	assert.Equal(t, Low, p.Read())
}

func TestMode(t *testing.T) {
	regs := fakeMem(t)
	// neighbours in the same fsel register are left alone
	regs[1] = 0x3fffffff
	p, err := NewPin(17)
	require.Nil(t, err)
	assert.Equal(t, Alt3, p.Mode())
	p.Input()
	assert.Equal(t, Input, p.Mode())
	assert.Equal(t, uint32(0x3fffffff&^(7<<21)), regs[1])
	p.Output()
	assert.Equal(t, Output, p.Mode())
	assert.Equal(t, uint32(0x3fffffff&^(6<<21)), regs[1])
	p.SetMode(Alt0)
	assert.Equal(t, Alt0, p.Mode())
	assert.Equal(t, uint32(4<<21), regs[1]&(7<<21))
}
