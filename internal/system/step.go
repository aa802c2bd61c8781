package system

import (
	"time"

	coresys "github.com/l1jgo/phys/internal/core/system"
	"github.com/l1jgo/phys/internal/physics"
	"go.uber.org/zap"
)

// StepSystem advances the engine in fixed steps. Frame time is banked and
// spent in whole steps; at most maxSubSteps run per tick and the rest of the
// bank is dropped. Phase 2 (Step).
//
// Area events are cleared once per tick, so they cover every sub-step run in
// it.
type StepSystem struct {
	world       *physics.WorldServer
	step        time.Duration
	maxSubSteps int
	bank        time.Duration
	steps       uint64
	log         *zap.Logger
}

func NewStepSystem(world *physics.WorldServer, step time.Duration, maxSubSteps int, log *zap.Logger) *StepSystem {
	if maxSubSteps < 1 {
		maxSubSteps = 1
	}
	return &StepSystem{world: world, step: step, maxSubSteps: maxSubSteps, log: log}
}

func (s *StepSystem) Phase() coresys.Phase { return coresys.PhaseStep }

func (s *StepSystem) Update(dt time.Duration) {
	s.bank += dt
	s.world.ClearEvents()

	n := 0
	for s.bank >= s.step && n < s.maxSubSteps {
		s.world.Step(s.step.Seconds())
		s.bank -= s.step
		n++
	}
	s.steps += uint64(n)

	if s.bank >= s.step {
		s.log.Debug("sub-step limit hit, dropping time",
			zap.Duration("dropped", s.bank), zap.Int("sub_steps", n))
		s.bank = 0
	}
}

// Steps returns the number of engine steps run so far.
func (s *StepSystem) Steps() uint64 { return s.steps }

// Banked returns the time waiting for the next whole step.
func (s *StepSystem) Banked() time.Duration { return s.bank }
