// FILE: lixenwraith/properties/monitor_test.go
package properties

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
)

const testInterval = 20 * time.Millisecond

// nextEvent waits for one event or fails the test
func nextEvent(t *testing.T, events <-chan FileEvent) FileEvent {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for file event")
		return FileEvent{}
	}
}

func TestMonitorTransitions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "watched.properties")

	m := NewMonitor(MonitorOptions{Interval: testInterval})
	defer m.Stop()

	events := make(chan FileEvent, 10)
	if _, err := m.AddListener(path, func(ev FileEvent) { events <- ev }); err != nil {
		t.Fatal("Failed to add listener:", err)
	}
	if err := os.WriteFile(path, []byte("a=int 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	ev := nextEvent(t, events)
	if ev.Op != FileCreated {
		t.Errorf("Expected created, got %s", ev.Op)
	}
	if ev.Path != path || ev.Size != 8 {
		t.Errorf("Unexpected event details: %+v", ev)
	}

	if err := os.WriteFile(path, []byte("a=int 1\nb=int 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if ev := nextEvent(t, events); ev.Op != FileChanged {
		t.Errorf("Expected changed, got %s", ev.Op)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if ev := nextEvent(t, events); ev.Op != FileRemoved {
		t.Errorf("Expected removed, got %s", ev.Op)
	}

	// No further events while the file stays absent
	select {
	case ev := <-events:
		t.Errorf("Unexpected event after removal: %+v", ev)
	case <-time.After(5 * testInterval):
	}
}

func TestMonitorBaseline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "existing.properties")
	if err := os.WriteFile(path, []byte("a=int 1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	m := NewMonitor(MonitorOptions{Interval: testInterval})
	defer m.Stop()

	events := make(chan FileEvent, 10)
	m.AddListener(path, func(ev FileEvent) { events <- ev })

	select {
	case ev := <-events:
		t.Errorf("Existing file must not be reported on registration: %+v", ev)
	case <-time.After(5 * testInterval):
	}
}

func TestMonitorListeners(t *testing.T) {
	path := filepath.Join(t.TempDir(), "multi.properties")
	m := NewMonitor(MonitorOptions{Interval: testInterval, Notify: true})
	defer m.Stop()

	first := make(chan FileEvent, 10)
	second := make(chan FileEvent, 10)
	id1, _ := m.AddListener(path, func(ev FileEvent) { first <- ev })
	id2, _ := m.AddListener(path, func(ev FileEvent) { second <- ev })

	if files := m.WatchedFiles(); len(files) != 1 || files[0] != path {
		t.Errorf("Expected one watched file, got %v", files)
	}

	if err := os.WriteFile(path, []byte("x=int 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	nextEvent(t, first)
	nextEvent(t, second)

	if !m.RemoveListener(path, id1) {
		t.Error("Expected listener removal to succeed")
	}
	if m.RemoveListener(path, id1) {
		t.Error("Expected second removal to fail")
	}
	if len(m.WatchedFiles()) != 1 {
		t.Error("File must stay watched while a listener remains")
	}

	if err := os.WriteFile(path, []byte("x=int 1\ny=int 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	nextEvent(t, second)
	select {
	case ev := <-first:
		t.Errorf("Removed listener received %+v", ev)
	default:
	}

	m.RemoveListener(path, id2)
	if len(m.WatchedFiles()) != 0 {
		t.Error("File must be forgotten with its last listener")
	}
}

func TestMonitorHandlerPanic(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	path := filepath.Join(t.TempDir(), "panic.properties")

	m := NewMonitor(MonitorOptions{Interval: testInterval, Logger: logger})
	defer m.Stop()

	events := make(chan FileEvent, 10)
	m.AddListener(path, func(FileEvent) { panic("handler failure") })
	m.AddListener(path, func(ev FileEvent) { events <- ev })

	if err := os.WriteFile(path, []byte("a=int 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	nextEvent(t, events)

	if hook.LastEntry() == nil {
		t.Fatal("Expected the panic to be logged")
	}
	if !m.IsRunning() {
		t.Error("Monitor must survive a panicking handler")
	}
}

func TestMonitorStop(t *testing.T) {
	m := NewMonitor(MonitorOptions{Interval: testInterval})
	path := filepath.Join(t.TempDir(), "stop.properties")
	m.AddListener(path, func(FileEvent) {})

	m.Stop()
	m.Stop()

	if m.IsRunning() {
		t.Error("Monitor still running after Stop")
	}
	if _, err := m.AddListener(path, func(FileEvent) {}); err != ErrMonitorStopped {
		t.Errorf("Expected ErrMonitorStopped, got %v", err)
	}
}

func TestSharedMonitor(t *testing.T) {
	interval := 37 * time.Millisecond
	a := SharedMonitor(interval)
	b := SharedMonitor(interval)
	if a != b {
		t.Error("Expected the same monitor for the same interval")
	}
	if a.Interval() != interval {
		t.Errorf("Expected interval %s, got %s", interval, a.Interval())
	}
	if c := SharedMonitor(interval + time.Millisecond); c == a {
		t.Error("Expected a different monitor for another interval")
	} else {
		c.Stop()
	}

	a.Stop()
	if d := SharedMonitor(interval); d == a {
		t.Error("Stopped monitor must be replaced")
	} else {
		d.Stop()
	}

	if m := SharedMonitor(time.Millisecond); m.Interval() != MinPollInterval {
		t.Errorf("Expected interval clamped to %s, got %s", MinPollInterval, m.Interval())
	}
}
