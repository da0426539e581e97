// Package ports defines the boundary interfaces between the Bramble
// engine and its host application: session snapshot stores, flow
// document sources and the timer facility delays are scheduled on.
//
// The engine core performs no I/O of its own; everything that touches
// the outside world goes through one of these ports, implemented under
// pkg/adapters and pkg/schedule.
package ports
