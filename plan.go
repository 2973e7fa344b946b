package vaultflow

import (
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
)

// Step is one transaction in a Plan. Step N+1 is submitted only after step N
// is confirmed.
type Step struct {
	// Name identifies the step in errors and logs, e.g. "approve".
	Name string

	// Contract is the descriptor the transaction is sent to.
	Contract Descriptor

	// Method and Args describe the call.
	Method string
	Args   []any

	// Validate checks the confirmed receipt. Nil means the receipt must have
	// a successful status, which is always checked first.
	Validate func(*types.Receipt) error
}

// Plan is an ordered sequence of transaction steps.
type Plan struct {
	name  string
	steps []Step
}

// NewPlan creates an empty plan.
func NewPlan(name string) *Plan {
	return &Plan{
		name:  name,
		steps: make([]Step, 0, 2),
	}
}

// Name returns the plan name.
func (p *Plan) Name() string {
	return p.name
}

// Add appends a step and returns the plan for chaining.
func (p *Plan) Add(step Step) *Plan {
	if step.Name == "" {
		step.Name = step.Method
	}
	p.steps = append(p.steps, step)
	return p
}

// Len returns the number of steps in the plan.
func (p *Plan) Len() int {
	return len(p.steps)
}

// StepAt returns the step at the given index.
func (p *Plan) StepAt(i int) (Step, bool) {
	if i < 0 || i >= len(p.steps) {
		return Step{}, false
	}
	return p.steps[i], true
}

// ForEachStep iterates over all steps in the plan.
// The callback receives the index and step. Return false to stop iteration.
func (p *Plan) ForEachStep(fn func(int, Step) bool) {
	for i, step := range p.steps {
		if !fn(i, step) {
			return
		}
	}
}

// compiledStep is a step resolved to a signing handle and validated call.
type compiledStep struct {
	step Step
	call *Call
}

// compile resolves every step to a Call before anything is submitted, so a
// plan with a bad step sends nothing.
func (p *Plan) compile(gw *Gateway) ([]compiledStep, error) {
	if len(p.steps) == 0 {
		return nil, ErrEmptyPlan
	}

	compiled := make([]compiledStep, 0, len(p.steps))
	for i, step := range p.steps {
		handle, err := NewWriteHandle(step.Contract, gw)
		if err != nil {
			return nil, &PlanError{Plan: p.name, StepIndex: i, Step: step.Name, Err: err}
		}
		call, err := handle.Invoke(step.Method, step.Args...)
		if err != nil {
			return nil, &PlanError{Plan: p.name, StepIndex: i, Step: step.Name, Err: err}
		}
		compiled = append(compiled, compiledStep{step: step, call: call})
	}
	return compiled, nil
}

// PlanError wraps errors that occur while compiling a plan.
type PlanError struct {
	Plan      string
	StepIndex int
	Step      string
	Err       error
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("vaultflow: plan %s step %d (%s): %v", e.Plan, e.StepIndex, e.Step, e.Err)
}

func (e *PlanError) Unwrap() error {
	return e.Err
}
