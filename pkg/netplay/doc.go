// Package netplay implements lockstep input exchange between two emulator
// cores: savestate handoff at connect time, then per-frame input packets
// with two-frame latency hiding (spec.md §4.3).
package netplay
