// Package processor contains the four processor variants from spec.md
// §4.5/§4.8, all built on the shared core.FunctionalCore.
package processor

import (
	"github.com/soclab/socsim/core"
	"github.com/soclab/socsim/isa"
	"github.com/soclab/socsim/memtx"
)

// Functional is the reference oracle (spec.md §4.8): a synchronous loop
// that runs an entire program to completion in one call by talking to a
// memtx.Store directly, with no ports, stages or scheduler in between.
type Functional struct {
	Core  *core.FunctionalCore
	Store *memtx.Store
}

// NewFunctional builds a Functional processor over its own FunctionalCore.
func NewFunctional(numRegisters int, store *memtx.Store) *Functional {
	return &Functional{Core: core.New(numRegisters), Store: store}
}

// Run executes the program starting at addr to its ENDPRGM, instruction by
// instruction, and returns once it retires.
func (f *Functional) Run(addr memtx.Address) error {
	if err := f.Core.SetApplicationStart(addr); err != nil {
		return err
	}
	for {
		fetchReq := f.Core.Fetch()
		fetchResp := f.Store.Service(fetchReq)

		in, err := f.Core.Decode(fetchResp)
		if err != nil {
			return err
		}

		requests, err := f.Core.GatherOperands(&in)
		if err != nil {
			return err
		}
		if len(requests) > 0 {
			responses := make([]memtx.Response, len(requests))
			for i, req := range requests {
				responses[i] = f.Store.Service(req)
			}
			f.Core.ProcessOperandResponses(&in, responses)
		}

		if err := f.Core.Execute(&in); err != nil {
			return err
		}

		writeReqs, err := f.Core.WriteBack(&in)
		if err != nil {
			return err
		}
		for _, req := range writeReqs {
			f.Store.Service(req)
		}

		if in.Opcode == isa.ENDPRGM {
			return nil
		}
	}
}
