package system

import (
	"testing"
	"time"
)

type recorder struct {
	name  string
	phase Phase
	log   *[]string
}

func (r recorder) Phase() Phase { return r.phase }

func (r recorder) Update(time.Duration) { *r.log = append(*r.log, r.name) }

func TestRunner_PhaseOrder(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(recorder{"collect", PhaseCollect, &log})
	r.Register(recorder{"step", PhaseStep, &log})
	r.Register(recorder{"events", PhaseEvents, &log})
	r.Register(recorder{"step2", PhaseStep, &log})

	r.Tick(time.Millisecond)
	want := []string{"events", "step", "step2", "collect"}
	if len(log) != len(want) {
		t.Fatalf("ran %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("ran %v, want %v", log, want)
		}
	}
}

func TestRunner_TickPhase(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(recorder{"step", PhaseStep, &log})
	r.Register(recorder{"collect", PhaseCollect, &log})

	r.TickPhase(PhaseCollect, time.Millisecond)
	if len(log) != 1 || log[0] != "collect" {
		t.Fatalf("ran %v, want [collect]", log)
	}
}
