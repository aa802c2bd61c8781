package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseEvents  Phase = iota // 0: deliver last tick's events
	PhaseScript               // 1: host logic issues server calls
	PhaseStep                 // 2: advance the engine
	PhaseCollect              // 3: destroy released objects
)

func (p Phase) String() string {
	switch p {
	case PhaseEvents:
		return "events"
	case PhaseScript:
		return "script"
	case PhaseStep:
		return "step"
	case PhaseCollect:
		return "collect"
	}
	return "phase"
}

// System is one unit of per-tick work.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
