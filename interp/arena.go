package interp

// Savepoint marks a depth of the VM's GC protection stack. Any sequence of
// VM operations that creates temporary values must be bracketed by
// ArenaSavepoint and Restore so the temporaries are released from GC
// protection on every exit path.
//
// Savepoints are strictly LIFO relative to their creation. Skipping a
// restore leaks protected slots until the next full collection; restoring
// out of order is undefined.
type Savepoint struct {
	state *State
	depth int
}

// ArenaSavepoint records the current protection-stack depth. O(1).
func (s *State) ArenaSavepoint() Savepoint {
	return Savepoint{state: s, depth: s.vm.ArenaSave()}
}

// Restore pops the protection stack back to the recorded depth, releasing
// every value protected since the savepoint was taken.
func (p Savepoint) Restore() {
	if p.state == nil || p.state.closed {
		return
	}
	p.state.vm.ArenaRestore(p.depth)
}

// ArenaDepth returns the current protection-stack depth.
func (s *State) ArenaDepth() int {
	if s.closed {
		return 0
	}
	return s.vm.ArenaSave()
}
