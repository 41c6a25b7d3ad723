package component

import "github.com/hordegate/server/internal/grid"

// Transform is an entity's world-space position, facing and current velocity.
// Yaw is radians around the vertical axis; 0 faces +Z.
type Transform struct {
	Pos grid.Vec3
	Yaw float64
	Vel grid.Vec3
}
