// Package engine drives the tick loop of a top-level package.
//
// A tick visits every element of the package once, in insertion order.
// Because there is no dependency sort and no inner fixed point, graphs
// with feedback loops always terminate: a value that travels around a
// loop arrives one tick later per traversal.
//
// Mutations from an editor or host are queued as Commands and applied at
// the start of the next tick, so the single-writer rule on socket values
// holds without locking the sockets themselves. Tick hooks observe the
// package after each tick; the Recorder hook turns a run into samples
// that Replay can re-execute to check determinism.
package engine
