package memtx

import "testing"

func TestStoreReadWriteRoundTrip(t *testing.T) {
	s := NewStore(4)
	s.Poke(10, 77)
	resp := s.Service(Request{Type: READ, Address: 10, Size: 1})
	if len(resp.Data) != 1 || resp.Data[0] != 77 {
		t.Fatalf("Service(READ) = %+v, want [77]", resp.Data)
	}

	write := Request{Type: WRITE, Address: 20, Size: 1, Data: []Data{55}}
	s.Service(write)
	if got := s.Peek(20); got != 55 {
		t.Fatalf("Peek(20) = %d, want 55", got)
	}
}

func TestStoreReadMultipleWords(t *testing.T) {
	s := NewStore(1)
	s.Poke(0, 1)
	s.Poke(1, 2)
	s.Poke(2, 3)
	resp := s.Service(Request{Type: READ, Address: 0, Size: 3})
	want := []Data{1, 2, 3}
	for i, w := range want {
		if resp.Data[i] != w {
			t.Errorf("Data[%d] = %d, want %d", i, resp.Data[i], w)
		}
	}
}

func TestStoreBandwidthAdmission(t *testing.T) {
	s := NewStore(1)
	if !s.TryAdmit() {
		t.Fatal("first TryAdmit should succeed with 1 bandwidth slot")
	}
	if s.TryAdmit() {
		t.Fatal("second TryAdmit should fail while the first slot is held")
	}
	if s.BackPressureEvents() != 1 {
		t.Fatalf("BackPressureEvents() = %d, want 1", s.BackPressureEvents())
	}
	s.Release()
	if !s.TryAdmit() {
		t.Fatal("TryAdmit should succeed again after Release")
	}
}

func TestStoreMinimumBandwidth(t *testing.T) {
	s := NewStore(0)
	if !s.TryAdmit() {
		t.Fatal("NewStore(0) should be clamped up to at least 1 slot")
	}
}
