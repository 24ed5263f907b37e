package sim

import "testing"

func TestClockTickRunsScheduledHandlersToFixedPoint(t *testing.T) {
	c := NewClock()
	var order []int
	c.Schedule(func() {
		order = append(order, 1)
		c.Schedule(func() { order = append(order, 2) })
	})
	ran := c.Tick()
	if ran != 2 {
		t.Fatalf("Tick() ran %d handlers, want 2 (including the one scheduled mid-tick)", ran)
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("order = %v, want [1 2]", order)
	}
}

func TestClockRunToQuiescence(t *testing.T) {
	c := NewClock()
	remaining := 3
	var step func()
	step = func() {
		remaining--
		if remaining > 0 {
			c.Schedule(step)
		}
	}
	c.Schedule(step)
	ticks := c.RunToQuiescence(100)
	if remaining != 0 {
		t.Fatalf("remaining = %d, want 0", remaining)
	}
	if ticks == 0 {
		t.Fatal("RunToQuiescence should report at least one tick ran")
	}
	if c.Pending() {
		t.Fatal("clock should be idle once quiescent")
	}
}

func TestClockRunToQuiescenceRunawayGuard(t *testing.T) {
	c := NewClock()
	var loop func()
	loop = func() { c.Schedule(loop) }
	c.Schedule(loop)
	ticks := c.RunToQuiescence(5)
	if ticks != 5 {
		t.Fatalf("ticks = %d, want 5 (runaway guard should cap it)", ticks)
	}
}

func TestPortWriteReadAndCapacity(t *testing.T) {
	p := NewPort[int](2)
	if !p.WriteValid() {
		t.Fatal("empty port should be writable")
	}
	p.Write(1)
	p.Write(2)
	if p.WriteValid() {
		t.Fatal("port at capacity should not be writable")
	}
	if got := p.Read(); got != 1 {
		t.Fatalf("Read() = %d, want 1 (FIFO order)", got)
	}
	if got := p.Read(); got != 2 {
		t.Fatalf("Read() = %d, want 2", got)
	}
	if p.ReadValid() {
		t.Fatal("drained port should not be readable")
	}
}

func TestPortNotifyOnWritableFiresOnRead(t *testing.T) {
	p := NewPort[int](1)
	p.Write(1)
	fired := false
	p.NotifyOnWritable(func() { fired = true })
	p.Read()
	if !fired {
		t.Fatal("writable notifier should fire when a read frees capacity")
	}
}

func TestNotifierArmFireOnce(t *testing.T) {
	var n Notifier
	if n.Armed() {
		t.Fatal("new notifier should not be armed")
	}
	calls := 0
	n.Arm(func() { calls++ })
	if !n.Armed() {
		t.Fatal("notifier should report armed after Arm")
	}
	n.Fire()
	n.Fire()
	if calls != 1 {
		t.Fatalf("handler fired %d times, want 1", calls)
	}
	if n.Armed() {
		t.Fatal("notifier should be disarmed after firing")
	}
}
