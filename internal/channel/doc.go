// Package channel defines the linear operator capability consumed by the
// admission engine and the built-in integer operator kinds.
//
// A Channel pairs a named operator with its class tag and a precomputed
// norm bound. Operators are pure linear maps over fixed-point vectors at
// a shared scale Q; the engine composes them weighted by the committed
// per-channel weights.
package channel
