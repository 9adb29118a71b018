package engine

// EngineState is the small durable record carried across invocations:
// the last emitted level per term plus the last published snapshot.
// It is read once at invocation start and committed once at the end;
// Version is the compare-and-swap guard enforced by the state store.
type EngineState struct {
	Terms    map[Term]AlertLevel `json:"terms"`
	Snapshot *SnapshotRecord     `json:"snapshot,omitempty"`
	Version  int64               `json:"version"`
}

// NewState is the first-ever state: no prior levels, so every term is
// treated as QUIET and the first classification above QUIET fires.
func NewState() EngineState {
	return EngineState{Terms: make(map[Term]AlertLevel)}
}

// Clone deep-copies the state so a cycle never aliases the loaded record.
func (s EngineState) Clone() EngineState {
	out := EngineState{Version: s.Version, Terms: make(map[Term]AlertLevel, len(s.Terms))}
	for term, level := range s.Terms {
		out.Terms[term] = level
	}
	if s.Snapshot != nil {
		snap := *s.Snapshot
		snap.Terms = make(map[Term]TermSnapshot, len(s.Snapshot.Terms))
		for term, ts := range s.Snapshot.Terms {
			snap.Terms[term] = ts
		}
		out.Snapshot = &snap
	}
	return out
}
