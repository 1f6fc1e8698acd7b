// Package viewer draws a running colony with raylib and forwards keyboard and
// mouse input to the game's external mutators.
package viewer

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/formica/camera"
	"github.com/pthm-cable/formica/components"
	"github.com/pthm-cable/formica/game"
	"github.com/pthm-cable/formica/systems"
)

const (
	panelWidth = 220
	maxSpeed   = 20
)

var (
	colorFood   = rl.Color{R: 90, G: 200, B: 90, A: 255}
	colorNest   = rl.Color{R: 180, G: 120, B: 60, A: 255}
	colorPlayer = rl.Color{R: 80, G: 160, B: 255, A: 255}
)

// activityColors indexes by components.ActivityKind.
var activityColors = [...]rl.Color{
	components.ActivityIdle:             {R: 150, G: 150, B: 150, A: 255},
	components.ActivityExploring:        {R: 230, G: 230, B: 230, A: 255},
	components.ActivityFollowingTrail:   {R: 220, G: 120, B: 220, A: 255},
	components.ActivityApproachingFood:  {R: 250, G: 220, B: 80, A: 255},
	components.ActivityCarrying:         {R: 250, G: 140, B: 40, A: 255},
	components.ActivityPlayerControlled: colorPlayer,
}

// Viewer renders one game and handles its input.
type Viewer struct {
	game *game.Game
	cam  *camera.Camera

	showField  bool
	showTarget bool
	fieldTex   rl.Texture2D
	texW, texH int
	pixels     []color.RGBA

	screenW, screenH float32
}

// New creates a viewer for g. Call after rl.InitWindow.
func New(g *game.Game) *Viewer {
	cfg := g.Config()
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	v := &Viewer{
		game:      g,
		showField: true,
		screenW:   w,
		screenH:   h,
		cam: camera.New(w-panelWidth, h,
			cfg.Derived.WorldMinX, cfg.Derived.WorldMinY,
			cfg.Derived.WorldW32, cfg.Derived.WorldH32),
	}
	v.ensureTexture()
	return v
}

// Update handles input, then advances the game.
func (v *Viewer) Update() {
	v.handleInput()
	v.game.Update()
}

// ensureTexture (re)creates the heatmap texture when the grid size changes.
func (v *Viewer) ensureTexture() {
	w, h := v.game.Field().GridSize()
	if w == v.texW && h == v.texH && v.pixels != nil {
		return
	}
	if v.pixels != nil {
		rl.UnloadTexture(v.fieldTex)
	}
	img := rl.GenImageColor(w, h, rl.Blank)
	v.fieldTex = rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	v.texW, v.texH = w, h
	v.pixels = make([]color.RGBA, w*h)
}

// Draw renders the world, the HUD and the control panel.
func (v *Viewer) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(rl.Color{R: 24, G: 20, B: 16, A: 255})

	v.drawWorldFrame()
	if v.showField {
		v.drawField()
	}

	snap := v.game.Snapshot()
	v.drawFood(snap.Foods)
	if snap.Nest != nil {
		v.drawNest(snap.Nest)
	}
	v.drawAgents(snap.Agents)

	v.drawHUD()
	v.drawPanel()

	rl.EndDrawing()
}

func (v *Viewer) drawWorldFrame() {
	cfg := v.game.Config()
	x0, y0 := v.cam.WorldToScreen(cfg.Derived.WorldMinX, cfg.Derived.WorldMinY)
	x1, y1 := v.cam.WorldToScreen(cfg.Derived.WorldMaxX, cfg.Derived.WorldMaxY)
	rl.DrawRectangleV(rl.Vector2{X: x0, Y: y0}, rl.Vector2{X: x1 - x0, Y: y1 - y0}, rl.Color{R: 48, G: 40, B: 30, A: 255})
	rl.DrawRectangleLinesEx(rl.Rectangle{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}, 1, rl.DarkGray)
}

// drawField uploads the pheromone grid as a heatmap texture stretched over
// the world rectangle.
func (v *Viewer) drawField() {
	v.ensureTexture()
	field := v.game.Field()
	peak := float32(field.Max())
	if peak <= 0 {
		return
	}
	for i := range v.pixels {
		v.pixels[i] = heat(field.Res[i] / peak)
	}
	rl.UpdateTexture(v.fieldTex, v.pixels)

	cfg := v.game.Config()
	x0, y0 := v.cam.WorldToScreen(cfg.Derived.WorldMinX, cfg.Derived.WorldMinY)
	cell := v.cam.Scale(1 / field.Resolution())
	rl.DrawTexturePro(
		v.fieldTex,
		rl.Rectangle{X: 0, Y: 0, Width: float32(v.texW), Height: float32(v.texH)},
		rl.Rectangle{X: x0, Y: y0, Width: cell * float32(v.texW), Height: cell * float32(v.texH)},
		rl.Vector2{},
		0,
		rl.White,
	)
}

// heat maps a normalized concentration to a translucent purple ramp.
func heat(t float32) color.RGBA {
	if t <= 0 {
		return color.RGBA{}
	}
	if t > 1 {
		t = 1
	}
	// sqrt lifts faint trails into view
	t = float32(math.Sqrt(float64(t)))
	return color.RGBA{
		R: uint8(120 + t*135),
		G: uint8(40 + t*80),
		B: uint8(160 + t*95),
		A: uint8(t * 200),
	}
}

func (v *Viewer) drawFood(foods []game.FoodView) {
	r := v.cam.Scale(4)
	for _, f := range foods {
		if !v.cam.IsVisible(f.X, f.Y, 4) {
			continue
		}
		sx, sy := v.cam.WorldToScreen(f.X, f.Y)
		rl.DrawCircleV(rl.Vector2{X: sx, Y: sy}, r, colorFood)
	}
}

func (v *Viewer) drawNest(n *game.NestView) {
	cfg := v.game.Config()
	sx, sy := v.cam.WorldToScreen(n.X, n.Y)
	r := v.cam.Scale(float32(cfg.Forage.NestRadius))
	rl.DrawCircleV(rl.Vector2{X: sx, Y: sy}, r, colorNest)
	rl.DrawText(fmt.Sprintf("%.0f", n.FoodCount), int32(sx)-6, int32(sy)-8, 16, rl.White)
}

func (v *Viewer) drawAgents(agents []game.AgentView) {
	radius := v.cam.Scale(5)
	for _, a := range agents {
		if !v.cam.IsVisible(a.X, a.Y, 6) {
			continue
		}
		sx, sy := v.cam.WorldToScreen(a.X, a.Y)
		heading := float32(math.Atan2(float64(a.VY), float64(a.VX)))
		c := activityColors[a.Activity]
		// Fade toward the end of life
		if a.MaxAge > 0 && !a.IsPlayer {
			c.A = uint8(255 - 155*clamp01(a.Age/a.MaxAge))
		}
		drawOrientedTriangle(sx, sy, heading, radius, c)

		if v.showTarget && a.Target.Active && !a.IsPlayer {
			tx, ty := v.cam.WorldToScreen(a.Target.X, a.Target.Y)
			rl.DrawLineV(rl.Vector2{X: sx, Y: sy}, rl.Vector2{X: tx, Y: ty}, rl.Color{R: 255, G: 255, B: 255, A: 40})
		}
	}
}

func (v *Viewer) drawHUD() {
	h := v.game.HUD()
	rl.DrawText(fmt.Sprintf("Colony food: %.0f  Ants: %d  Carrying: %d", h.ColonyFood, h.AntCount, h.Carrying), 10, 10, 20, rl.White)
	rl.DrawText(fmt.Sprintf("Food: %d items (%.0f)  Spawn every %.1fs", h.FoodItems, h.FoodInWorld, h.SpawnInterval), 10, 35, 16, rl.LightGray)
	rl.DrawText(fmt.Sprintf("Tick: %d  Time: %.1fs  Speed: %.2gx  FPS: %d", h.Tick, h.SimTime, h.Speed, rl.GetFPS()), 10, 55, 16, rl.LightGray)

	if err := v.game.Err(); err != nil {
		msg := err.Error()
		if errors.Is(err, systems.ErrNoNest) {
			msg = "No nest in world. Press N to place one at the cursor."
		}
		rl.DrawText(msg, 10, 80, 18, rl.Red)
	} else if h.Paused {
		rl.DrawText("PAUSED", 10, 80, 18, rl.Yellow)
	}

	rl.DrawText("WASD: Move player | Click: Food | Space: Pause | P: Pheromone | T: Targets | Wheel: Zoom | RMB: Pan",
		10, int32(v.screenH)-25, 14, rl.Gray)
}

// drawPanel draws the raygui control panel on the right edge.
func (v *Viewer) drawPanel() {
	x := v.screenW - panelWidth + 10
	y := float32(10)
	w := float32(panelWidth - 20)

	rl.DrawRectangle(int32(v.screenW-panelWidth), 0, panelWidth, int32(v.screenH), rl.Color{R: 0, G: 0, B: 0, A: 200})

	rl.DrawText("Speed", int32(x), int32(y), 14, rl.LightGray)
	y += 18
	speed := float32(v.game.Speed())
	newSpeed := gui.SliderBar(rl.Rectangle{X: x, Y: y, Width: w - 40, Height: 20}, "", "", speed, 0, maxSpeed)
	rl.DrawText(fmt.Sprintf("%.1f", speed), int32(x+w-35), int32(y+2), 14, rl.White)
	if newSpeed != speed {
		v.game.SetSpeed(float64(newSpeed))
	}
	y += 35

	if gui.Button(rl.Rectangle{X: x, Y: y, Width: w, Height: 28}, toggleText(v.game.Paused(), "Resume", "Pause")) {
		v.game.SetPaused(!v.game.Paused())
	}
	y += 36
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: w, Height: 28}, toggleText(v.showField, "Hide pheromone", "Show pheromone")) {
		v.showField = !v.showField
	}
	y += 36
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: w, Height: 28}, toggleText(v.showTarget, "Hide targets", "Show targets")) {
		v.showTarget = !v.showTarget
	}
	y += 36
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: w, Height: 28}, "Clear pheromone") {
		v.game.Field().Clear()
	}
	y += 46

	field := v.game.Field()
	gw, gh := field.GridSize()
	rl.DrawText(fmt.Sprintf("Grid %dx%d", gw, gh), int32(x), int32(y), 14, rl.LightGray)
	y += 18
	rl.DrawText(fmt.Sprintf("Mass %.1f  Peak %.2f", field.Total(), field.Max()), int32(x), int32(y), 14, rl.LightGray)
	y += 18
	perf := v.game.Perf()
	if field.Worker() != nil {
		rl.DrawText(fmt.Sprintf("Async %d sent, %d dropped (%.0f%%)",
			perf.FieldDispatched, perf.FieldDropped, 100*perf.FieldDropRate()), int32(x), int32(y), 14, rl.LightGray)
		y += 18
	}
	y += 10

	deliveries, births, deaths := v.game.Totals()
	rl.DrawText(fmt.Sprintf("Delivered %d", deliveries), int32(x), int32(y), 14, rl.LightGray)
	y += 18
	rl.DrawText(fmt.Sprintf("Born %d  Died %d", births, deaths), int32(x), int32(y), 14, rl.LightGray)
	y += 28

	rl.DrawText(fmt.Sprintf("Tick %v", perf.AvgTick), int32(x), int32(y), 12, rl.Gray)
}

// drawOrientedTriangle draws a triangle pointing in the heading direction.
func drawOrientedTriangle(x, y, heading, radius float32, color rl.Color) {
	cos := float32(math.Cos(float64(heading)))
	sin := float32(math.Sin(float64(heading)))

	v1 := rl.Vector2{X: x + cos*radius*1.5, Y: y + sin*radius*1.5}

	backAngle := float64(heading) + math.Pi*0.8
	v2 := rl.Vector2{X: x + float32(math.Cos(backAngle))*radius, Y: y + float32(math.Sin(backAngle))*radius}

	backAngle = float64(heading) - math.Pi*0.8
	v3 := rl.Vector2{X: x + float32(math.Cos(backAngle))*radius, Y: y + float32(math.Sin(backAngle))*radius}

	// DrawTriangle requires counter-clockwise winding (v1, v3, v2)
	rl.DrawTriangle(v1, v3, v2, color)
}

func toggleText(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}

func clamp01(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// Unload releases GPU resources.
func (v *Viewer) Unload() {
	if v.pixels != nil {
		rl.UnloadTexture(v.fieldTex)
	}
}
