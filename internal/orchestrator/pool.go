package orchestrator

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Outcome is the result of one pooled run.
type Outcome struct {
	RunID  string
	Inputs map[string]string
	Result *Result
	Err    error
}

// Pool runs independent pipeline runs concurrently against one Orchestrator,
// with at most maxConcurrent in flight.
type Pool struct {
	orch *Orchestrator
	sem  chan struct{}

	mu       sync.Mutex
	outcomes []Outcome
	running  map[string]bool

	wg sync.WaitGroup
}

// NewPool creates a pool. maxConcurrent values below 1 are treated as 1.
func NewPool(orch *Orchestrator, maxConcurrent int) *Pool {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Pool{
		orch:    orch,
		sem:     make(chan struct{}, maxConcurrent),
		running: make(map[string]bool),
	}
}

// Submit starts a run for inputs and returns its run ID immediately.
// The run waits for a free slot before it starts.
func (p *Pool) Submit(ctx context.Context, inputs map[string]string) string {
	runID := uuid.New().String()
	seed := copyInputs(inputs)

	p.mu.Lock()
	p.running[runID] = true
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		outcome := Outcome{RunID: runID, Inputs: seed}
		select {
		case p.sem <- struct{}{}:
			outcome.Result, outcome.Err = p.orch.run(ctx, runID, seed)
			<-p.sem
		case <-ctx.Done():
			// run records and reports the cancellation without starting any unit.
			outcome.Result, outcome.Err = p.orch.run(ctx, runID, seed)
		}

		if outcome.Err != nil {
			log.Printf("[pool] run %s failed: %v", runID, outcome.Err)
		}
		p.orch.logger.Log("[pool] run %s finished", runID)

		p.mu.Lock()
		delete(p.running, runID)
		p.outcomes = append(p.outcomes, outcome)
		p.mu.Unlock()
	}()

	return runID
}

// Count returns the number of submitted runs that have not finished.
func (p *Pool) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.running)
}

// Wait blocks until every submitted run has finished and returns their
// outcomes in completion order.
func (p *Pool) Wait() []Outcome {
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Outcome(nil), p.outcomes...)
}
