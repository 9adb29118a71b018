package engine

// TransitionDirection distinguishes escalation from de-escalation;
// both are notifiable, with distinct wording.
type TransitionDirection string

const (
	DirectionEscalation   TransitionDirection = "escalation"
	DirectionDeescalation TransitionDirection = "de-escalation"
)

// Transition is one fired per-term edge.
type Transition struct {
	Term      Term
	From      AlertLevel
	To        AlertLevel
	Direction TransitionDirection
}

// DetectTransitions compares the fresh classification against the last
// emitted level per term. Edge-triggered: a term fires only when its
// level differs from the persisted one, so a sustained level never
// re-notifies. Terms absent from prior state start at QUIET, which makes
// the very first classification above QUIET fire. Results come back in
// ascending term order so output is deterministic.
func DetectTransitions(prior map[Term]AlertLevel, current map[Term]AlertLevel) []Transition {
	var fired []Transition
	for _, term := range Terms {
		level, present := current[term]
		if !present {
			continue
		}

		last := LevelQuiet
		if prev, ok := prior[term]; ok {
			last = prev
		}
		if level == last {
			continue
		}

		direction := DirectionEscalation
		if level < last {
			direction = DirectionDeescalation
		}
		fired = append(fired, Transition{Term: term, From: last, To: level, Direction: direction})
	}
	return fired
}
