package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func newEngineWithScript(t *testing.T, script string) *Engine {
	t.Helper()
	dir := t.TempDir()
	if script != "" {
		if err := os.WriteFile(filepath.Join(dir, "balance.lua"), []byte(script), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	e, err := NewEngine(dir, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestCalcWaveScalingFromScript(t *testing.T) {
	e := newEngineWithScript(t, `
function calc_wave_scaling(horde, wave)
    return { health_mult = 1.0 + 0.5 * wave, speed_mult = 1.0 + 0.1 * horde }
end
`)
	s := e.CalcWaveScaling(2, 3)
	if s.HealthMult != 2.5 {
		t.Fatalf("health mult = %v", s.HealthMult)
	}
	if s.SpeedMult != 1.2 {
		t.Fatalf("speed mult = %v", s.SpeedMult)
	}
}

func TestCalcWaveScalingFallbacks(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{"no scripts", ""},
		{"missing function", `function unrelated() return 1 end`},
		{"script error", `function calc_wave_scaling(h, w) error("boom") end`},
		{"non-table result", `function calc_wave_scaling(h, w) return 42 end`},
		{"non-positive values", `function calc_wave_scaling(h, w) return { health_mult = -1, speed_mult = 0 } end`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngineWithScript(t, tt.script)
			s := e.CalcWaveScaling(0, 0)
			if s.HealthMult != 1 || s.SpeedMult != 1 {
				t.Fatalf("expected identity scaling, got %+v", s)
			}
		})
	}
}

func TestNilEngineIsSafe(t *testing.T) {
	var e *Engine
	s := e.CalcWaveScaling(0, 0)
	if s.HealthMult != 1 || s.SpeedMult != 1 {
		t.Fatalf("nil engine must answer identity, got %+v", s)
	}
	e.Close()
}

func TestMissingScriptDirIsNotAnError(t *testing.T) {
	e, err := NewEngine(filepath.Join(t.TempDir(), "nope"), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	if s := e.CalcWaveScaling(1, 1); s.HealthMult != 1 {
		t.Fatalf("got %+v", s)
	}
}

func TestBrokenScriptFailsLoad(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.lua"), []byte("function ("), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewEngine(dir, zap.NewNop()); err == nil {
		t.Fatal("expected a load error")
	}
}

func TestPartialScalingTable(t *testing.T) {
	e := newEngineWithScript(t, `
function calc_wave_scaling(h, w)
    return { health_mult = 3.0 }
end
`)
	s := e.CalcWaveScaling(0, 0)
	if s.HealthMult != 3.0 || s.SpeedMult != 1.0 {
		t.Fatalf("got %+v", s)
	}
}
