package system

import (
	"time"

	coresys "github.com/l1jgo/phys/internal/core/system"
	"github.com/l1jgo/phys/internal/scripting"
)

// ScriptSystem calls the script's on_step hook. Phase 1 (Script).
type ScriptSystem struct {
	lua *scripting.Engine
}

func NewScriptSystem(lua *scripting.Engine) *ScriptSystem {
	return &ScriptSystem{lua: lua}
}

func (s *ScriptSystem) Phase() coresys.Phase { return coresys.PhaseScript }

func (s *ScriptSystem) Update(dt time.Duration) {
	s.lua.OnStep(dt.Seconds())
}
