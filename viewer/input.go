package viewer

import (
	"errors"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/formica/systems"
)

// handleInput processes keyboard and mouse input.
func (v *Viewer) handleInput() {
	v.handleResize()

	if rl.IsKeyPressed(rl.KeySpace) {
		v.game.SetPaused(!v.game.Paused())
	}
	if rl.IsKeyPressed(rl.KeyP) {
		v.showField = !v.showField
	}
	if rl.IsKeyPressed(rl.KeyT) {
		v.showTarget = !v.showTarget
	}
	if rl.IsKeyPressed(rl.KeyComma) {
		v.game.SetSpeed(math.Max(0, v.game.Speed()-1))
	}
	if rl.IsKeyPressed(rl.KeyPeriod) {
		v.game.SetSpeed(math.Min(maxSpeed, v.game.Speed()+1))
	}

	v.handlePlayer()
	v.handleCamera()

	mouse := rl.GetMousePosition()
	if mouse.X >= v.screenW-panelWidth {
		return
	}
	if rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
		if x, y, ok := v.worldAt(mouse); ok {
			v.game.AddFood(x, y)
		}
	}
	if rl.IsKeyPressed(rl.KeyN) && errors.Is(v.game.Err(), systems.ErrNoNest) {
		if x, y, ok := v.worldAt(mouse); ok {
			v.game.CreateNest(x, y)
			v.game.SetPaused(false)
		}
	}
}

// handlePlayer steers the player agent from WASD or the arrow keys.
func (v *Viewer) handlePlayer() {
	var dx, dy float32
	if rl.IsKeyDown(rl.KeyW) || rl.IsKeyDown(rl.KeyUp) {
		dy--
	}
	if rl.IsKeyDown(rl.KeyS) || rl.IsKeyDown(rl.KeyDown) {
		dy++
	}
	if rl.IsKeyDown(rl.KeyA) || rl.IsKeyDown(rl.KeyLeft) {
		dx--
	}
	if rl.IsKeyDown(rl.KeyD) || rl.IsKeyDown(rl.KeyRight) {
		dx++
	}
	if dx != 0 && dy != 0 {
		dx *= math.Sqrt2 / 2
		dy *= math.Sqrt2 / 2
	}
	speed := float32(v.game.Config().Ant.Speed)
	v.game.SetPlayerVelocity(dx*speed, dy*speed)
}

// handleCamera processes pan and zoom controls.
func (v *Viewer) handleCamera() {
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		v.cam.ZoomBy(float32(math.Pow(1.1, float64(wheel))))
	}
	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		d := rl.GetMouseDelta()
		v.cam.Pan(-d.X, -d.Y)
	}
	if rl.IsKeyPressed(rl.KeyHome) {
		v.cam.Reset()
	}
}

// handleResize propagates window size changes to the camera.
func (v *Viewer) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	v.screenW = float32(rl.GetScreenWidth())
	v.screenH = float32(rl.GetScreenHeight())
	v.cam.Resize(v.screenW-panelWidth, v.screenH)
}

// worldAt converts a screen point to world coordinates, reporting false when
// the point is outside the world.
func (v *Viewer) worldAt(p rl.Vector2) (float32, float32, bool) {
	x, y := v.cam.ScreenToWorld(p.X, p.Y)
	cfg := v.game.Config()
	d := cfg.Derived
	if x < d.WorldMinX || x > d.WorldMaxX || y < d.WorldMinY || y > d.WorldMaxY {
		return 0, 0, false
	}
	return x, y, true
}
