// Package ws implements the websocket connection state machine: a
// single multiplexed connection with id-correlated subscribe commands,
// heartbeat supervision and automatic reconnect with subscription
// replay.
package ws

import "sync/atomic"

// ConnState represents the lifecycle state of a websocket connection.
type ConnState int32

// Connection states. The zero value is Closed so a fresh Conn starts
// disconnected.
const (
	// StateClosed indicates no active connection.
	StateClosed ConnState = iota
	// StateConnecting indicates a dial is in progress.
	StateConnecting
	// StateOpen indicates an active connection.
	StateOpen
	// StateClosing indicates a locally initiated shutdown is in progress.
	StateClosing
)

// String returns the string representation of the connection state.
func (s ConnState) String() string {
	return [...]string{
		"closed",
		"connecting",
		"open",
		"closing",
	}[s]
}

// State provides thread-safe atomic access to a ConnState value.
type State struct {
	state atomic.Int32
}

// Load returns the current connection state.
func (s *State) Load() ConnState {
	return ConnState(s.state.Load())
}

// Store sets the connection state to the given value.
func (s *State) Store(state ConnState) {
	s.state.Store(int32(state))
}

// CompareAndSwap atomically compares the current state with old and
// swaps to new if equal. It returns true if the swap was performed.
func (s *State) CompareAndSwap(old, new ConnState) bool {
	return s.state.CompareAndSwap(int32(old), int32(new))
}
