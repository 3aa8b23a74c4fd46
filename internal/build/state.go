package build

import "fmt"

// State is the lifecycle position of a single job within a run
type State int

const (
	NotStarted State = iota
	Skipped
	Compiling
	Succeeded
	Failed
	Recorded
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "NotStarted"
	case Skipped:
		return "Skipped"
	case Compiling:
		return "Compiling"
	case Succeeded:
		return "Succeeded"
	case Failed:
		return "Failed"
	case Recorded:
		return "Recorded"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// transitions lists the legal successors of every state.
// NotStarted may go straight to Failed when the source is missing or cannot be hashed.
var transitions = map[State][]State{
	NotStarted: {Skipped, Compiling, Failed},
	Skipped:    {Recorded},
	Compiling:  {Succeeded, Failed},
	Succeeded:  {Recorded},
	Failed:     {Recorded},
	Recorded:   {},
}

// CanTransition reports whether from -> to is a legal transition
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}

	return false
}

// tracker follows one job through the state machine
type tracker struct {
	job   string
	state State
}

func newTracker(job string) *tracker {
	return &tracker{job: job, state: NotStarted}
}

// advance moves the job to the next state. An illegal transition is a programming error.
func (t *tracker) advance(to State) {
	if !CanTransition(t.state, to) {
		panic(fmt.Sprintf("build: illegal transition %s -> %s for job %q", t.state, to, t.job))
	}

	t.state = to
}
