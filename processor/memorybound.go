package processor

import (
	"github.com/soclab/socsim/core"
	"github.com/soclab/socsim/instr"
	"github.com/soclab/socsim/isa"
	"github.com/soclab/socsim/memtx"
	"github.com/soclab/socsim/sim"
)

// MemoryBound is the memory-bound variant (spec.md §4.8): like the
// pipelined processor it issues real memory requests instead of touching
// a Store directly, but it collapses fetch/execute/write-back scheduling
// around a single decoded-instruction FIFO and performs no speculation,
// so no hazard detection is needed.
type MemoryBound struct {
	Core *core.FunctionalCore

	Doorbell            *sim.Port[memtx.Address]
	InstructionRequest  *sim.Port[memtx.Request]
	InstructionResponse *sim.Port[memtx.Response]
	DataRequest         *sim.Port[memtx.Request]
	DataResponse        *sim.Port[memtx.Response]

	clock       *sim.Clock
	decodedFifo *sim.Port[instr.Instruction]

	operandRequests   []memtx.Request
	writebackRequests []memtx.Request

	MemoryFetches int
	DoorbellRings int
	Err           error
}

// NewMemoryBound wires a MemoryBound processor to clock, with its own
// ports; link instructionRequest/instructionResponse and
// dataRequest/dataResponse to a memtx.Store via NewMemoryLink to actually
// run it.
func NewMemoryBound(clock *sim.Clock, numRegisters int) *MemoryBound {
	p := &MemoryBound{
		Core:                core.New(numRegisters),
		Doorbell:            sim.NewPort[memtx.Address](1),
		InstructionRequest:  sim.NewPort[memtx.Request](1),
		InstructionResponse: sim.NewPort[memtx.Response](1),
		DataRequest:         sim.NewPort[memtx.Request](4),
		DataResponse:        sim.NewPort[memtx.Response](4),
		clock:               clock,
		decodedFifo:         sim.NewPort[instr.Instruction](4),
	}
	p.Doorbell.NotifyOnReadable(p.checkDoorbell)
	p.InstructionResponse.NotifyOnReadable(p.instructionReturn)
	p.DataResponse.NotifyOnReadable(p.operandReturn)
	// operand_response_handler is armed on both the data-response port and
	// the decoded-instruction fifo itself (memory_bound_processor.cpp),
	// so an instruction with zero outstanding operand requests (e.g. two
	// EMBEDDED operands) still gets executed instead of waiting forever
	// for a data response that will never arrive.
	p.decodedFifo.NotifyOnReadable(p.operandReturn)
	return p
}

func (p *MemoryBound) fail(err error) {
	if p.Err == nil {
		p.Err = err
	}
}

func (p *MemoryBound) checkDoorbell() {
	addr := p.Doorbell.Read()
	p.Doorbell.NotifyOnReadable(p.checkDoorbell)
	p.DoorbellRings++
	if err := p.Core.SetApplicationStart(addr); err != nil {
		p.fail(err)
		return
	}
	p.MemoryFetches++
	p.InstructionRequest.Write(p.Core.Fetch())
}

func (p *MemoryBound) instructionReturn() {
	for p.InstructionResponse.ReadValid() && p.decodedFifo.WriteValid() {
		response := p.InstructionResponse.Read()
		in, err := p.Core.Decode(response)
		if err != nil {
			p.fail(err)
			return
		}
		if in.Opcode == isa.ENDPRGM {
			if err := p.Core.Execute(&in); err != nil {
				p.fail(err)
				return
			}
			if _, err := p.Core.WriteBack(&in); err != nil {
				p.fail(err)
				return
			}
			continue
		}
		requests, err := p.Core.GatherOperands(&in)
		if err != nil {
			p.fail(err)
			return
		}
		p.operandRequests = append(p.operandRequests, requests...)
		p.sendOperandRequests()
		p.decodedFifo.Write(in)
	}
	if p.InstructionResponse.ReadValid() && !p.decodedFifo.WriteValid() {
		p.decodedFifo.NotifyOnWritable(p.instructionReturn)
	}
	p.InstructionResponse.NotifyOnReadable(p.instructionReturn)
}

func (p *MemoryBound) sendOperandRequests() {
	for len(p.operandRequests) > 0 && p.DataRequest.WriteValid() {
		p.MemoryFetches++
		p.DataRequest.Write(p.operandRequests[0])
		p.operandRequests = p.operandRequests[1:]
	}
	if len(p.operandRequests) > 0 {
		p.DataRequest.NotifyOnWritable(p.sendOperandRequests)
	}
}

func (p *MemoryBound) operandReturn() {
	var responses []memtx.Response
	for p.DataResponse.ReadValid() {
		responses = append(responses, p.DataResponse.Read())
	}
	p.DataResponse.NotifyOnReadable(p.operandReturn)
	p.decodedFifo.NotifyOnReadable(p.operandReturn)

	if !p.decodedFifo.ReadValid() {
		return
	}
	p.Core.ProcessOperandResponses(p.decodedFifo.Peek(), responses)
	if !p.decodedFifo.Peek().OperandsGathered() {
		return
	}

	in := p.decodedFifo.Read()
	if err := p.Core.Execute(&in); err != nil {
		p.fail(err)
		return
	}
	writeReqs, err := p.Core.WriteBack(&in)
	if err != nil {
		p.fail(err)
		return
	}
	p.writebackRequests = append(p.writebackRequests, writeReqs...)
	if len(p.writebackRequests) == 0 {
		p.MemoryFetches++
		p.InstructionRequest.Write(p.Core.Fetch())
		return
	}
	p.sendWriteBackRequests()
}

func (p *MemoryBound) sendWriteBackRequests() {
	did := false
	for len(p.writebackRequests) > 0 && p.DataRequest.WriteValid() {
		p.MemoryFetches++
		p.DataRequest.Write(p.writebackRequests[0])
		p.writebackRequests = p.writebackRequests[1:]
		did = true
	}
	if len(p.writebackRequests) > 0 {
		p.DataRequest.NotifyOnWritable(p.sendWriteBackRequests)
		return
	}
	if did {
		p.MemoryFetches++
		p.InstructionRequest.Write(p.Core.Fetch())
	}
}

// Ring hands the processor a new program's start address.
func (p *MemoryBound) Ring(addr memtx.Address) {
	p.Doorbell.Write(addr)
}
