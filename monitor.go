// FILE: lixenwraith/properties/monitor.go
package properties

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// FileOp is the kind of file state transition reported by a Monitor.
type FileOp int

const (
	FileCreated FileOp = iota + 1
	FileChanged
	FileRemoved
)

// String returns the name of the operation.
func (op FileOp) String() string {
	switch op {
	case FileCreated:
		return "created"
	case FileChanged:
		return "changed"
	case FileRemoved:
		return "removed"
	default:
		return fmt.Sprintf("FileOp(%d)", int(op))
	}
}

// FileEvent describes one observed transition of a watched file.
type FileEvent struct {
	Path    string
	Op      FileOp
	ModTime time.Time
	Size    int64
}

// FileHandler is called on the monitor goroutine for every event of a watched file.
type FileHandler func(event FileEvent)

// MonitorOptions configures a Monitor
type MonitorOptions struct {
	// Interval between stat checks of all watched files (minimum MinPollInterval)
	Interval time.Duration

	// Notify registers parent directories with fsnotify so that changes are checked
	// without waiting for the next tick. Polling stays authoritative.
	Notify bool

	// Logger receives handler panics and fsnotify errors
	Logger logrus.FieldLogger
}

// DefaultMonitorOptions returns polling-only options with DefaultPollInterval.
func DefaultMonitorOptions() MonitorOptions {
	return MonitorOptions{
		Interval: DefaultPollInterval,
		Logger:   logrus.StandardLogger(),
	}
}

// fileRecord is the last observed state of a watched file and its handlers
type fileRecord struct {
	exists   bool
	modTime  time.Time
	size     int64
	handlers []fileHandler
}

type fileHandler struct {
	id ListenerID
	fn FileHandler
}

// Monitor polls a set of files and reports creation, modification and removal.
// A stopped Monitor cannot be restarted.
type Monitor struct {
	opts   MonitorOptions
	mutex  sync.RWMutex
	files  map[string]*fileRecord
	dirs   map[string]int // fsnotify hint refcounts
	notify *fsnotify.Watcher

	ctx       context.Context
	cancel    context.CancelFunc
	startOnce sync.Once
	watching  atomic.Bool
	stopped   atomic.Bool
	shared    bool
}

// NewMonitor creates a monitor. Its poll loop starts with the first listener.
func NewMonitor(opts MonitorOptions) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.Interval < MinPollInterval {
		opts.Interval = MinPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Monitor{
		opts:   opts,
		files:  make(map[string]*fileRecord),
		dirs:   make(map[string]int),
		ctx:    ctx,
		cancel: cancel,
	}

	if opts.Notify {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			opts.Logger.WithField("event", "fsnotify").Warnf("change notifications unavailable, polling only: %v", err)
		} else {
			m.notify = w
		}
	}
	return m
}

// shared monitors, one per poll interval
var sharedMonitors = struct {
	sync.Mutex
	byInterval map[time.Duration]*Monitor
}{byInterval: make(map[time.Duration]*Monitor)}

// SharedMonitor returns the process-wide monitor for interval, creating it on first use.
func SharedMonitor(interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if interval < MinPollInterval {
		interval = MinPollInterval
	}

	sharedMonitors.Lock()
	defer sharedMonitors.Unlock()

	if m, ok := sharedMonitors.byInterval[interval]; ok && !m.stopped.Load() {
		return m
	}
	opts := DefaultMonitorOptions()
	opts.Interval = interval
	m := NewMonitor(opts)
	m.shared = true
	sharedMonitors.byInterval[interval] = m
	return m
}

// Interval returns the poll interval.
func (m *Monitor) Interval() time.Duration {
	return m.opts.Interval
}

// AddListener registers handler for path. The file's current state becomes the baseline,
// so only later transitions are reported.
func (m *Monitor) AddListener(path string, handler FileHandler) (ListenerID, error) {
	if m.stopped.Load() {
		return 0, ErrMonitorStopped
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve path '%s': %w", path, err)
	}

	m.mutex.Lock()
	rec, ok := m.files[abs]
	if !ok {
		rec = &fileRecord{}
		if info, err := os.Stat(abs); err == nil {
			rec.exists = true
			rec.modTime = info.ModTime()
			rec.size = info.Size()
		}
		m.files[abs] = rec
		m.addHintLocked(abs)
	}
	id := newListenerID()
	rec.handlers = append(rec.handlers, fileHandler{id: id, fn: handler})
	m.mutex.Unlock()

	m.startOnce.Do(func() {
		// Marked before the goroutine runs so Stop always waits for it
		m.watching.Store(true)
		go m.watchLoop()
	})
	return id, nil
}

// RemoveListener unregisters a handler. The file is forgotten with its last handler.
func (m *Monitor) RemoveListener(path string, id ListenerID) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	rec, ok := m.files[abs]
	if !ok {
		return false
	}
	for i, h := range rec.handlers {
		if h.id != id {
			continue
		}
		rec.handlers = append(rec.handlers[:i:i], rec.handlers[i+1:]...)
		if len(rec.handlers) == 0 {
			delete(m.files, abs)
			m.removeHintLocked(abs)
		}
		return true
	}
	return false
}

// WatchedFiles returns the watched paths, sorted.
func (m *Monitor) WatchedFiles() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	paths := make([]string, 0, len(m.files))
	for p := range m.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// IsRunning reports whether the poll loop is active.
func (m *Monitor) IsRunning() bool {
	return m.watching.Load()
}

// Stop terminates the poll loop and releases the monitor. Shared monitors are removed
// from the pool, so the next SharedMonitor call for the interval creates a new one.
func (m *Monitor) Stop() {
	if !m.stopped.CompareAndSwap(false, true) {
		return
	}

	if m.shared {
		sharedMonitors.Lock()
		if sharedMonitors.byInterval[m.opts.Interval] == m {
			delete(sharedMonitors.byInterval, m.opts.Interval)
		}
		sharedMonitors.Unlock()
	}

	m.cancel()

	// Wait for watch loop to exit with timeout
	deadline := time.Now().Add(ShutdownTimeout)
	for m.watching.Load() && time.Now().Before(deadline) {
		time.Sleep(SpinWaitInterval)
	}

	if m.notify != nil {
		m.notify.Close()
	}
}

// watchLoop is the main polling loop. The first check runs immediately.
func (m *Monitor) watchLoop() {
	defer m.watching.Store(false)

	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	// Nil channels block forever when fsnotify is off
	var events <-chan fsnotify.Event
	var errs <-chan error
	if m.notify != nil {
		events = m.notify.Events
		errs = m.notify.Errors
	}

	m.checkAll()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.checkAll()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			m.check(filepath.Clean(ev.Name))
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			m.opts.Logger.WithField("event", "fsnotify").Debugf("watch error: %v", err)
		}
	}
}

// checkAll checks every watched file once
func (m *Monitor) checkAll() {
	for _, path := range m.WatchedFiles() {
		if m.ctx.Err() != nil {
			return
		}
		m.check(path)
	}
}

// check compares the file's current state against its record and dispatches the transition.
func (m *Monitor) check(path string) {
	info, statErr := os.Stat(path)

	m.mutex.Lock()
	rec, ok := m.files[path]
	if !ok {
		m.mutex.Unlock()
		return
	}

	event := FileEvent{Path: path}
	switch {
	case statErr != nil && !rec.exists:
		// Still absent
	case statErr != nil:
		event.Op = FileRemoved
		rec.exists = false
		rec.modTime = time.Time{}
		rec.size = 0
	case !rec.exists:
		event.Op = FileCreated
	case !info.ModTime().Equal(rec.modTime) || info.Size() != rec.size:
		event.Op = FileChanged
	}
	if statErr == nil && event.Op != 0 {
		rec.exists = true
		rec.modTime = info.ModTime()
		rec.size = info.Size()
		event.ModTime = rec.modTime
		event.Size = rec.size
	}

	handlers := make([]fileHandler, len(rec.handlers))
	copy(handlers, rec.handlers)
	m.mutex.Unlock()

	if event.Op == 0 {
		return
	}
	for _, h := range handlers {
		m.safeCallHandler(h.fn, event)
	}
}

// safeCallHandler calls a handler, recovering from panics.
func (m *Monitor) safeCallHandler(handler FileHandler, event FileEvent) {
	defer func() {
		if r := recover(); r != nil {
			m.opts.Logger.WithFields(logrus.Fields{
				"file":  event.Path,
				"event": event.Op.String(),
			}).Errorf("file handler panicked: %v", r)
		}
	}()
	handler(event)
}

func (m *Monitor) addHintLocked(path string) {
	if m.notify == nil {
		return
	}
	dir := filepath.Dir(path)
	m.dirs[dir]++
	if m.dirs[dir] > 1 {
		return
	}
	if err := m.notify.Add(dir); err != nil {
		// Missing directories are still polled
		m.opts.Logger.WithFields(logrus.Fields{"file": path, "event": "fsnotify"}).
			Debugf("cannot watch directory '%s': %v", dir, err)
	}
}

func (m *Monitor) removeHintLocked(path string) {
	if m.notify == nil {
		return
	}
	dir := filepath.Dir(path)
	m.dirs[dir]--
	if m.dirs[dir] > 0 {
		return
	}
	delete(m.dirs, dir)
	_ = m.notify.Remove(dir)
}
