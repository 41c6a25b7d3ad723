package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for designer-tunable balance formulas.
// Single-goroutine access only (game loop). Every callout has a Go fallback
// so a missing script directory degrades to stock behaviour, never a fault.
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given
// directory. A missing directory is not an error; the engine simply
// answers with fallbacks.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log.Named("scripting")}
	if err := e.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load balance scripts: %w", err)
	}
	return e, nil
}

// Close releases the VM.
func (e *Engine) Close() {
	if e != nil && e.vm != nil {
		e.vm.Close()
	}
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// WaveScaling are the per-wave enemy stat multipliers.
type WaveScaling struct {
	HealthMult float64
	SpeedMult  float64
}

func identityScaling() WaveScaling {
	return WaveScaling{HealthMult: 1, SpeedMult: 1}
}

// CalcWaveScaling asks the `calc_wave_scaling(horde, wave)` Lua function for
// the stat multipliers of a wave. Falls back to identity when the engine is
// nil, the function is missing, or the script errors.
func (e *Engine) CalcWaveScaling(hordeIdx, waveIdx int) WaveScaling {
	if e == nil || e.vm == nil {
		return identityScaling()
	}
	fn := e.vm.GetGlobal("calc_wave_scaling")
	if fn == lua.LNil {
		return identityScaling()
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LNumber(hordeIdx), lua.LNumber(waveIdx)); err != nil {
		e.log.Error("lua calc_wave_scaling error", zap.Error(err))
		return identityScaling()
	}

	res := e.vm.Get(-1)
	e.vm.Pop(1)

	t, ok := res.(*lua.LTable)
	if !ok {
		return identityScaling()
	}

	s := identityScaling()
	if v, ok := t.RawGetString("health_mult").(lua.LNumber); ok && float64(v) > 0 {
		s.HealthMult = float64(v)
	}
	if v, ok := t.RawGetString("speed_mult").(lua.LNumber); ok && float64(v) > 0 {
		s.SpeedMult = float64(v)
	}
	return s
}
