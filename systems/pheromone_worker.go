package systems

import (
	"sync"

	"github.com/pthm-cable/formica/config"
)

// fieldRequest hands a grid snapshot to the worker. The worker owns Grid
// until it sends the matching fieldResult.
type fieldRequest struct {
	grid  []float32
	w, h  int
	dt    float32
	epoch uint64
}

// fieldResult carries the updated grid back. Ownership transfers to the receiver.
type fieldResult struct {
	grid  []float32
	epoch uint64
}

// FieldWorker runs decay/diffusion updates on a background goroutine.
// At most one request is in flight; the caller drops updates while busy.
// All methods except the worker loop are called from the simulation goroutine.
type FieldWorker struct {
	params FieldParams

	reqChan  chan fieldRequest
	resChan  chan fieldResult
	stopChan chan struct{}
	wg       sync.WaitGroup

	busy    bool
	stopped bool

	// Counters for telemetry
	dispatched int
	dropped    int
}

// NewFieldWorker starts a worker goroutine with the given parameters.
func NewFieldWorker(params FieldParams) *FieldWorker {
	fw := &FieldWorker{
		params:   params,
		reqChan:  make(chan fieldRequest, 1),
		resChan:  make(chan fieldResult, 1),
		stopChan: make(chan struct{}),
	}
	fw.wg.Add(1)
	go fw.run()
	return fw
}

func (fw *FieldWorker) run() {
	defer fw.wg.Done()
	var scratch []float32
	for {
		select {
		case <-fw.stopChan:
			return
		case req := <-fw.reqChan:
			n := req.w * req.h
			if cap(scratch) < n {
				scratch = make([]float32, n)
			}
			scratch = scratch[:n]
			dst := make([]float32, n)
			StepField(dst, scratch, req.grid, req.w, req.h, fw.params, req.dt)
			// resChan has room for the single in-flight result, so this never blocks.
			fw.resChan <- fieldResult{grid: dst, epoch: req.epoch}
		}
	}
}

// Busy reports whether a request is in flight.
func (fw *FieldWorker) Busy() bool {
	return fw.busy
}

// submit dispatches a request. Returns false and counts a drop if one is already in flight.
func (fw *FieldWorker) submit(req fieldRequest) bool {
	if fw.busy || fw.stopped {
		fw.dropped++
		return false
	}
	fw.busy = true
	fw.dispatched++
	fw.reqChan <- req
	return true
}

// poll returns a finished result without blocking.
func (fw *FieldWorker) poll() (fieldResult, bool) {
	if !fw.busy {
		return fieldResult{}, false
	}
	select {
	case res := <-fw.resChan:
		fw.busy = false
		return res, true
	default:
		return fieldResult{}, false
	}
}

// wait blocks until the in-flight result arrives.
func (fw *FieldWorker) wait() (fieldResult, bool) {
	if !fw.busy {
		return fieldResult{}, false
	}
	res := <-fw.resChan
	fw.busy = false
	return res, true
}

// Counts returns how many updates were dispatched and dropped.
func (fw *FieldWorker) Counts() (dispatched, dropped int) {
	return fw.dispatched, fw.dropped
}

// Stop terminates the worker goroutine and waits for it to exit.
func (fw *FieldWorker) Stop() {
	if fw.stopped {
		return
	}
	fw.stopped = true
	close(fw.stopChan)
	fw.wg.Wait()
}

// EnableAsync attaches a worker. merge is config.AsyncMergeReplace or
// config.AsyncMergeReapply.
func (pf *PheromoneField) EnableAsync(fw *FieldWorker, merge string) {
	pf.worker = fw
	pf.merge = merge
}

// Async reports whether updates are offloaded.
func (pf *PheromoneField) Async() bool {
	return pf.worker != nil
}

// Worker returns the attached worker, or nil.
func (pf *PheromoneField) Worker() *FieldWorker {
	return pf.worker
}

func (pf *PheromoneField) updateAsync(dt float32) {
	if res, ok := pf.worker.poll(); ok {
		pf.apply(res)
	}
	if pf.worker.Busy() {
		pf.worker.dropped++
		return
	}

	snapshot := make([]float32, len(pf.Res))
	copy(snapshot, pf.Res)
	if !pf.worker.submit(fieldRequest{grid: snapshot, w: pf.W, h: pf.H, dt: dt, epoch: pf.epoch}) {
		return
	}
	if pf.merge == config.AsyncMergeReapply {
		pf.pending = pf.pending[:0]
		pf.recording = true
	}
}

// Flush blocks until any in-flight update is applied.
func (pf *PheromoneField) Flush() {
	if pf.worker == nil {
		return
	}
	if res, ok := pf.worker.wait(); ok {
		pf.apply(res)
	}
}

// Close flushes and stops the worker, if any. The field stays usable synchronously.
func (pf *PheromoneField) Close() {
	if pf.worker == nil {
		return
	}
	pf.Flush()
	pf.worker.Stop()
	pf.worker = nil
}

// apply installs a worker result. Results from before a resize or clear are
// discarded. With the reapply merge, deposits made while the request was in
// flight are added on top so they are not lost.
func (pf *PheromoneField) apply(res fieldResult) {
	if res.epoch != pf.epoch || len(res.grid) != len(pf.Res) {
		return
	}
	pf.Res = res.grid
	if pf.recording {
		for _, d := range pf.pending {
			pf.Res[d.idx] += d.amount
		}
		pf.pending = pf.pending[:0]
		pf.recording = false
	}
}
