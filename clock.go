// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

package phmon

import "time"

// Clock is the source of time for the control loop.
// All delays, from drip pulses to the loop period, go through Sleep.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// SystemClock is the Clock backed by the time package.
type SystemClock struct{}

// Now returns the current time, including the monotonic reading.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Sleep pauses the calling goroutine for d.
func (SystemClock) Sleep(d time.Duration) {
	time.Sleep(d)
}
