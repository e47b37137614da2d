// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

//go:build linux

package gpio

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Open maps the GPIO registers from /dev/gpiomem.
func Open() error {
	memlock.Lock()
	defer memlock.Unlock()
	if len(mem) != 0 {
		return ErrAlreadyOpen
	}
	f, err := os.OpenFile("/dev/gpiomem", os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	m, err := unix.Mmap(int(f.Fd()), 0, memLength,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return err
	}
	mem8 = m
	mem = unsafe.Slice((*uint32)(unsafe.Pointer(&m[0])), len(m)/4)
	return nil
}

// Close unmaps the GPIO registers.
// Pins created before Close must not be used after it.
func Close() error {
	memlock.Lock()
	defer memlock.Unlock()
	if len(mem) == 0 {
		return ErrNotOpen
	}
	mem = nil
	m := mem8
	mem8 = nil
	return unix.Munmap(m)
}
