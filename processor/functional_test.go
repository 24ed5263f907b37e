package processor

import (
	"testing"

	"github.com/soclab/socsim/app"
	"github.com/soclab/socsim/memtx"
)

func TestFunctionalRunsSimpleAddProgram(t *testing.T) {
	store := memtx.NewStore(4)
	builder := app.NewBuilder(store, 0)
	resultAddr := builder.Allocate(1)
	start := builder.Emit(
		addInstruction(2, 3, resultAddr),
		endprgmInstruction(),
	)

	f := NewFunctional(4, store)
	if err := f.Run(start); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := store.Peek(resultAddr); got != 5 {
		t.Fatalf("memory[%d] = %d, want 5", resultAddr, got)
	}
	if f.Core.TerminatedCount() != 1 {
		t.Fatalf("TerminatedCount = %d, want 1", f.Core.TerminatedCount())
	}
}
