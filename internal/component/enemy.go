package component

// Enemy carries the per-instance combat state of a spawned enemy. Base stats
// come from the enemy template, scaled by the wave modifiers at spawn time.
type Enemy struct {
	TemplateID string
	Health     int32
	MaxHealth  int32
	Horde      int
	Wave       int
}
