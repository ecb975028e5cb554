package driver

import (
	"context"
	"sync"
	"time"

	"github.com/paolobietolini/atac-realtime/pipelines"
	"github.com/reugn/go-streams"
)

// cycleFlow runs every pipeline it receives concurrently and emits one
// pipelines.Outcome per pipeline. Out is closed once all of them finished.
type cycleFlow struct {
	ctx   context.Context
	runID string
	now   time.Time
	in    chan any
	out   chan any
}

var _ streams.Flow = (*cycleFlow)(nil)

func newCycleFlow(ctx context.Context, runID string, now time.Time) *cycleFlow {
	flow := &cycleFlow{ctx: ctx, runID: runID, now: now, in: make(chan any), out: make(chan any)}
	go flow.doStream()
	return flow
}

func (f *cycleFlow) doStream() {
	var wg sync.WaitGroup
	defer close(f.out)

	for element := range f.in {
		p, ok := element.(pipelines.Pipeline)
		if !ok {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.out <- p.Run(f.ctx, f.runID, f.now)
		}()
	}
	wg.Wait()
}

func (f *cycleFlow) In() chan<- any {
	return f.in
}

func (f *cycleFlow) Out() <-chan any {
	return f.out
}

func (f *cycleFlow) Via(flow streams.Flow) streams.Flow {
	go f.transmit(flow)
	return flow
}

func (f *cycleFlow) To(sink streams.Sink) {
	go f.transmit(sink)
}

func (f *cycleFlow) transmit(inlet streams.Inlet) {
	for element := range f.Out() {
		inlet.In() <- element
	}
	close(inlet.In())
}
