// Package memtx models the memory transport: request/response records
// exchanged between a processor and a memory component, plus a reference
// in-memory Store that binds the spec's "memory_name" configuration
// parameter to something concrete for tests and the CLI.
//
// The actual storage engine is an external collaborator per spec.md §1;
// Store exists only so this module is runnable standalone.
package memtx

import (
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Address and Data are 64-bit words; memory is word-addressed.
type Address = uint64
type Data = uint64

// RequestType distinguishes a read from a write.
type RequestType uint8

const (
	READ RequestType = iota
	WRITE
)

// Status tracks whether a request has been handed to the memory port yet.
type Status uint8

const (
	PENDING Status = iota
	SENT
)

// Request is a memory operation in flight.
type Request struct {
	Type    RequestType
	Address Address
	Size    uint32
	Data    []Data
	Status  Status
}

// Response carries the original request plus the words it resolved to
// (empty for WRITE).
type Response struct {
	Request Request
	Data    []Data
}

// Store is a word-addressed linear memory with bounded in-flight
// bandwidth. It is not part of the spec's core (§1 treats memory as an
// external collaborator) but gives the rest of this module something to
// read from and write to.
//
// BandwidthSlots bounds how many requests may be admitted before an
// earlier one completes (Release). Admission is checked with a
// non-blocking TryAcquire: the single-threaded scheduler never suspends a
// handler waiting on memory, it just treats a failed TryAcquire as
// back-pressure, same as a full stage buffer or port.
type Store struct {
	words map[Address]Data
	sem   *semaphore.Weighted

	backPressureEvents int
}

// NewStore creates a Store with the given bandwidth (must be >= 1).
func NewStore(bandwidthSlots int) *Store {
	if bandwidthSlots < 1 {
		bandwidthSlots = 1
	}
	return &Store{
		words: make(map[Address]Data),
		sem:   semaphore.NewWeighted(int64(bandwidthSlots)),
	}
}

// TryAdmit attempts to reserve one bandwidth slot for an in-flight
// request. Callers must call Release exactly once for every successful
// TryAdmit once the request's response has been produced.
func (s *Store) TryAdmit() bool {
	if s.sem.TryAcquire(1) {
		return true
	}
	s.backPressureEvents++
	return false
}

// Release frees a bandwidth slot reserved by a prior successful TryAdmit.
func (s *Store) Release() {
	s.sem.Release(1)
}

// BackPressureEvents reports how many times TryAdmit has failed so far.
func (s *Store) BackPressureEvents() int {
	return s.backPressureEvents
}

// Read services a READ request, returning a Response with req.Size words
// starting at req.Address (uninitialized words read as zero).
func (s *Store) Read(req Request) Response {
	data := make([]Data, req.Size)
	for i := uint32(0); i < req.Size; i++ {
		data[i] = s.words[req.Address+Address(i)]
	}
	return Response{Request: req, Data: data}
}

// Write services a WRITE request, committing req.Data starting at
// req.Address.
func (s *Store) Write(req Request) Response {
	for i, v := range req.Data {
		s.words[req.Address+Address(i)] = v
	}
	return Response{Request: req}
}

// Service dispatches req to Read or Write and returns the resulting
// response. It does not consult the bandwidth semaphore; callers that want
// bandwidth accounting use TryAdmit/Release around Service.
func (s *Store) Service(req Request) Response {
	switch req.Type {
	case READ:
		return s.Read(req)
	case WRITE:
		return s.Write(req)
	default:
		panic(fmt.Sprintf("memtx: unknown request type %d", req.Type))
	}
}

// Peek reads a single word without going through the request/response
// protocol, for test setup (e.g. preloading a program image).
func (s *Store) Peek(addr Address) Data {
	return s.words[addr]
}

// Poke writes a single word without going through the request/response
// protocol, for test setup.
func (s *Store) Poke(addr Address, v Data) {
	s.words[addr] = v
}
