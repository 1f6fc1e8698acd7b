package systems

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/pthm-cable/formica/config"
)

// DecayModel selects how concentration evaporates per update.
type DecayModel uint8

const (
	// DecayLinear multiplies by (1 - rate*dt), floored at 0.
	DecayLinear DecayModel = iota
	// DecayExponential multiplies by exp(-rate*dt).
	DecayExponential
)

// ParseDecayModel converts a config name into a DecayModel.
func ParseDecayModel(name string) (DecayModel, error) {
	switch name {
	case config.DecayLinear:
		return DecayLinear, nil
	case config.DecayExponential:
		return DecayExponential, nil
	}
	return 0, fmt.Errorf("unknown decay model %q", name)
}

// Factor returns the multiplier applied to every cell for one update.
func (m DecayModel) Factor(rate, dt float32) float32 {
	if m == DecayExponential {
		return float32(math.Exp(-float64(rate) * float64(dt)))
	}
	f := 1 - rate*dt
	if f < 0 {
		return 0
	}
	return f
}

// DiffusionKernel selects how much of the diffused amount each neighbor receives.
type DiffusionKernel uint8

const (
	// KernelSplit divides diffusionRate*dt*value evenly over the 4 neighbors.
	KernelSplit DiffusionKernel = iota
	// KernelBroadcast gives each neighbor the full diffusionRate*dt*value.
	KernelBroadcast
)

// ParseDiffusionKernel converts a config name into a DiffusionKernel.
func ParseDiffusionKernel(name string) (DiffusionKernel, error) {
	switch name {
	case config.KernelSplit:
		return KernelSplit, nil
	case config.KernelBroadcast:
		return KernelBroadcast, nil
	}
	return 0, fmt.Errorf("unknown diffusion kernel %q", name)
}

func (k DiffusionKernel) share() float32 {
	if k == KernelBroadcast {
		return 1
	}
	return 0.25
}

// FieldParams holds the decay/diffusion parameters of a field update.
type FieldParams struct {
	DecayRate     float32
	DiffusionRate float32
	Decay         DecayModel
	Kernel        DiffusionKernel
}

// StepField runs one decay/diffusion update from src into dst.
// scratch receives the decayed values so neighbors are always read from the
// decayed state, never from a partially diffused one. All three buffers must
// have length w*h and must not alias.
// Mass diffused past the grid edge is lost.
func StepField(dst, scratch, src []float32, w, h int, p FieldParams, dt float32) {
	factor := p.Decay.Factor(p.DecayRate, dt)
	for i, v := range src {
		d := v * factor
		scratch[i] = d
		dst[i] = d
	}

	share := p.DiffusionRate * dt * p.Kernel.share()
	if share <= 0 {
		return
	}

	for y := 0; y < h; y++ {
		row := y * w
		for x := 0; x < w; x++ {
			v := scratch[row+x]
			if v <= 0 {
				continue
			}
			amt := v * share
			if x > 0 {
				dst[row+x-1] += amt
			}
			if x < w-1 {
				dst[row+x+1] += amt
			}
			if y > 0 {
				dst[row-w+x] += amt
			}
			if y < h-1 {
				dst[row+w+x] += amt
			}
		}
	}
}

// pendingDeposit is a deposit made while an async update was in flight.
type pendingDeposit struct {
	idx    int
	amount float32
}

// PheromoneField is a scalar concentration grid over world space.
// A world coordinate maps to cell floor((coord - origin) * resolution) per axis.
// Deposits and samples outside the grid are silent no-ops returning 0.
type PheromoneField struct {
	W, H int

	// Current concentration, row-major
	Res []float32

	Params FieldParams

	resolution       float32
	originX, originY float32

	// Scratch buffers for the synchronous update
	tmp     []float32
	decayed []float32

	// Async offload state
	worker    *FieldWorker
	merge     string
	epoch     uint64
	recording bool
	pending   []pendingDeposit

	sum64 []float64
}

// NewPheromoneField creates a zeroed field covering worldW x worldH starting at the origin.
func NewPheromoneField(worldW, worldH, originX, originY, resolution float32, params FieldParams) *PheromoneField {
	pf := &PheromoneField{
		Params:     params,
		resolution: resolution,
		originX:    originX,
		originY:    originY,
	}
	pf.allocate(worldW, worldH)
	return pf
}

// NewPheromoneFieldFromConfig builds a field with the configured parameters.
func NewPheromoneFieldFromConfig(cfg *config.Config) (*PheromoneField, error) {
	decay, err := ParseDecayModel(cfg.Pheromone.DecayModel)
	if err != nil {
		return nil, err
	}
	kernel, err := ParseDiffusionKernel(cfg.Pheromone.DiffusionKernel)
	if err != nil {
		return nil, err
	}
	params := FieldParams{
		DecayRate:     float32(cfg.Pheromone.DecayRate),
		DiffusionRate: float32(cfg.Pheromone.DiffusionRate),
		Decay:         decay,
		Kernel:        kernel,
	}
	pf := NewPheromoneField(
		cfg.Derived.WorldW32, cfg.Derived.WorldH32,
		cfg.Derived.WorldMinX, cfg.Derived.WorldMinY,
		float32(cfg.Pheromone.Resolution), params,
	)
	if cfg.Pheromone.Async {
		pf.EnableAsync(NewFieldWorker(params), cfg.Pheromone.AsyncMerge)
	}
	return pf, nil
}

func (pf *PheromoneField) allocate(worldW, worldH float32) {
	w := int(math.Ceil(float64(worldW * pf.resolution)))
	h := int(math.Ceil(float64(worldH * pf.resolution)))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	pf.W, pf.H = w, h
	pf.Res = make([]float32, w*h)
	pf.tmp = make([]float32, w*h)
	pf.decayed = make([]float32, w*h)
}

// GridSize returns the grid dimensions in cells.
func (pf *PheromoneField) GridSize() (int, int) {
	return pf.W, pf.H
}

// Resolution returns cells per world unit.
func (pf *PheromoneField) Resolution() float32 {
	return pf.resolution
}

// CellOf maps a world coordinate to grid indices. The result may be out of bounds.
func (pf *PheromoneField) CellOf(x, y float32) (int, int) {
	gx := int(math.Floor(float64((x - pf.originX) * pf.resolution)))
	gy := int(math.Floor(float64((y - pf.originY) * pf.resolution)))
	return gx, gy
}

// InBounds reports whether grid indices address a cell.
func (pf *PheromoneField) InBounds(gx, gy int) bool {
	return gx >= 0 && gx < pf.W && gy >= 0 && gy < pf.H
}

// Deposit adds strength to the cell containing (x, y).
func (pf *PheromoneField) Deposit(x, y, strength float32) {
	gx, gy := pf.CellOf(x, y)
	if !pf.InBounds(gx, gy) {
		return
	}
	idx := gy*pf.W + gx
	pf.Res[idx] += strength
	if pf.recording {
		pf.pending = append(pf.pending, pendingDeposit{idx: idx, amount: strength})
	}
}

// Sample returns the concentration at (x, y), or 0 outside the grid.
func (pf *PheromoneField) Sample(x, y float32) float32 {
	gx, gy := pf.CellOf(x, y)
	return pf.SampleCell(gx, gy)
}

// SampleCell returns the concentration of a cell, or 0 outside the grid.
func (pf *PheromoneField) SampleCell(gx, gy int) float32 {
	if !pf.InBounds(gx, gy) {
		return 0
	}
	return pf.Res[gy*pf.W+gx]
}

// Update advances decay and diffusion by dt seconds.
// With an async worker attached, a finished result is applied first and a new
// request is dispatched only if none is in flight; otherwise the call is dropped.
func (pf *PheromoneField) Update(dt float32) {
	if pf.worker != nil {
		pf.updateAsync(dt)
		return
	}
	StepField(pf.tmp, pf.decayed, pf.Res, pf.W, pf.H, pf.Params, dt)
	pf.Res, pf.tmp = pf.tmp, pf.Res
}

// Resize reallocates a zeroed grid for the new world size. Prior content and
// any in-flight async result are discarded.
func (pf *PheromoneField) Resize(worldW, worldH float32) {
	pf.allocate(worldW, worldH)
	pf.epoch++
	pf.recording = false
	pf.pending = pf.pending[:0]
}

// Clear zeroes every cell and discards any in-flight async result.
func (pf *PheromoneField) Clear() {
	clear(pf.Res)
	pf.epoch++
	pf.recording = false
	pf.pending = pf.pending[:0]
}

// Total returns the summed concentration over the grid.
func (pf *PheromoneField) Total() float64 {
	return floats.Sum(pf.widen())
}

// Max returns the highest cell concentration.
func (pf *PheromoneField) Max() float64 {
	return floats.Max(pf.widen())
}

func (pf *PheromoneField) widen() []float64 {
	if cap(pf.sum64) < len(pf.Res) {
		pf.sum64 = make([]float64, len(pf.Res))
	}
	pf.sum64 = pf.sum64[:len(pf.Res)]
	for i, v := range pf.Res {
		pf.sum64[i] = float64(v)
	}
	return pf.sum64
}
