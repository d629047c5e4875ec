// FILE: lixenwraith/properties/persistent.go
package properties

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lixenwraith/properties/internal/kvfile"
)

// State is the I/O state of a Persistent handle.
type State int32

const (
	StateIdle State = iota
	StateLoading
	StateStoring
)

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateStoring:
		return "storing"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// PersistOptions configures a Persistent handle
type PersistOptions struct {
	// Defaults consulted for keys missing from the file
	Defaults *Properties

	// ReadOnly handles load and follow the file but never write it
	ReadOnly bool

	// PollInterval selects the shared monitor used when Monitor is nil
	PollInterval time.Duration

	// Monitor to register with; nil selects SharedMonitor(PollInterval)
	Monitor *Monitor

	// DisableWatch skips monitor registration; Reload must be called explicitly
	DisableWatch bool

	// LockTimeout bounds the wait for the file lock
	LockTimeout time.Duration

	// Registry of converters; nil selects the defaults' registry or DefaultRegistry
	Registry *Registry

	// Logger receives load, store and reload diagnostics
	Logger logrus.FieldLogger

	// MaxWatchers limits concurrent Watch channels
	MaxWatchers int
}

// DefaultPersistOptions returns options for a writable, watched handle.
func DefaultPersistOptions() PersistOptions {
	return PersistOptions{
		PollInterval: DefaultPollInterval,
		LockTimeout:  DefaultLockTimeout,
		Logger:       logrus.StandardLogger(),
		MaxWatchers:  DefaultMaxWatchers,
	}
}

// Persistent is a property tree backed by a file that several handles, in this or
// other processes, may share. Every change is stored immediately; changes made by
// others are picked up when the file monitor reports them.
type Persistent struct {
	*Properties

	path   string
	opts   PersistOptions
	logger logrus.FieldLogger
	store  *fileStore

	ioMu        sync.Mutex // Serializes load and store
	state       atomic.Int32
	fingerprint uint64 // guarded by ioMu
	fileExists  bool   // guarded by ioMu
	loaded      bool   // guarded by ioMu

	monitor    *Monitor
	monitorID  ListenerID
	listenerID ListenerID
	closed     atomic.Bool

	watchMu   sync.RWMutex
	watchers  map[int64]chan string
	watcherID atomic.Int64
}

// Open loads path with default options and keeps it synchronized.
func Open(path string) (*Persistent, error) {
	return OpenWithOptions(path, DefaultPersistOptions())
}

// OpenWithOptions loads path and keeps it synchronized. A file that cannot be read is
// logged and yields an empty tree; the handle still follows later changes.
func OpenWithOptions(path string, opts PersistOptions) (*Persistent, error) {
	if path == "" {
		return nil, errors.New("properties file path cannot be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path '%s': %w", path, err)
	}

	// Validate options
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.MaxWatchers <= 0 {
		opts.MaxWatchers = DefaultMaxWatchers
	}

	props := NewWithRegistry(opts.Defaults, opts.Registry)
	if opts.ReadOnly {
		props.SetReadOnly()
	}

	pp := &Persistent{
		Properties: props,
		path:       abs,
		opts:       opts,
		logger:     opts.Logger.WithField("file", abs),
		store:      newFileStore(abs, opts.LockTimeout),
		watchers:   make(map[int64]chan string),
	}

	pp.listenerID = props.AddChangeListener(pp.onChange)

	// The monitor baseline is taken before the first read so a write landing in between is reported
	if !opts.DisableWatch {
		pp.monitor = opts.Monitor
		if pp.monitor == nil {
			pp.monitor = SharedMonitor(opts.PollInterval)
		}
		id, err := pp.monitor.AddListener(abs, pp.onFileEvent)
		if err != nil {
			props.RemoveChangeListener(pp.listenerID)
			pp.store.close()
			return nil, fmt.Errorf("failed to watch '%s': %w", abs, err)
		}
		pp.monitorID = id
	}

	// Initial load failures leave the tree empty
	if _, err := pp.load(context.Background()); err != nil {
		pp.logger.Warnf("initial load failed, starting empty: %v", err)
	}
	return pp, nil
}

// File returns the absolute path of the backing file.
func (pp *Persistent) File() string {
	return pp.path
}

// State returns the current I/O state.
func (pp *Persistent) State() State {
	return State(pp.state.Load())
}

// Fingerprint returns the hash of the file content last read or written.
func (pp *Persistent) Fingerprint() uint64 {
	pp.ioMu.Lock()
	defer pp.ioMu.Unlock()
	return pp.fingerprint
}

// Reload reads the file if its content changed since the last load or store.
// It reports whether the tree was replaced.
func (pp *Persistent) Reload() (bool, error) {
	if pp.closed.Load() {
		return false, ErrClosed
	}
	changed, err := pp.load(context.Background())
	if err != nil {
		pp.logger.WithField("event", "reload").Warnf("reload failed, keeping current values: %v", err)
	}
	return changed, err
}

// Save writes the complete tree to the file.
func (pp *Persistent) Save() error {
	if pp.closed.Load() {
		return ErrClosed
	}
	if pp.IsReadOnly() {
		return fmt.Errorf("failed to save '%s': %w", pp.path, ErrReadOnly)
	}
	return pp.save(context.Background())
}

// Close stops following the file and storing changes. Later mutations stay in memory.
// Only this handle's monitor listener is removed; the monitor itself keeps running
// for its other listeners, and a monitor passed in PersistOptions is stopped by its owner.
func (pp *Persistent) Close() error {
	if !pp.closed.CompareAndSwap(false, true) {
		return nil
	}

	if pp.monitor != nil {
		pp.monitor.RemoveListener(pp.path, pp.monitorID)
	}
	pp.Properties.RemoveChangeListener(pp.listenerID)

	pp.watchMu.Lock()
	for id, ch := range pp.watchers {
		close(ch)
		delete(pp.watchers, id)
	}
	pp.watchMu.Unlock()

	pp.ioMu.Lock()
	defer pp.ioMu.Unlock()
	return pp.store.close()
}

// load replaces the tree with the file content when the fingerprint differs.
func (pp *Persistent) load(ctx context.Context) (bool, error) {
	pp.ioMu.Lock()
	pp.state.Store(int32(StateLoading))

	snap, err := pp.store.read(ctx)
	if err != nil {
		pp.state.Store(int32(StateIdle))
		pp.ioMu.Unlock()
		return false, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	// A file removed after the first load keeps the current values
	if pp.loaded && (!snap.exists || snap.fingerprint == pp.fingerprint && pp.fileExists) {
		pp.state.Store(int32(StateIdle))
		pp.ioMu.Unlock()
		pp.logger.WithField("event", "reload").Debug("content unchanged")
		return false, nil
	}

	var before map[string]string
	if pp.hasWatchers() {
		before = Encode(pp.Properties, pp.logger)
	}

	fresh := pp.Properties.detached()
	decodeInto(fresh, snap.pairs, pp.logger)
	pp.Properties.replaceFrom(fresh)

	pp.fingerprint = snap.fingerprint
	pp.fileExists = snap.exists
	pp.loaded = true
	pp.state.Store(int32(StateIdle))
	pp.ioMu.Unlock()

	// Listeners run after the lock is released so they may write; the store listener skips this one
	if err := notifyChangeExcept(pp.Properties, pp.listenerID); err != nil {
		pp.logger.WithField("event", "reload").Warnf("change listener failed: %v", err)
	}
	if before != nil {
		pp.notifyWatchers(diffKeys(before, Encode(pp.Properties, pp.logger))...)
	}
	return true, nil
}

// save encodes the whole tree and replaces the file with it.
func (pp *Persistent) save(ctx context.Context) error {
	pp.ioMu.Lock()
	defer pp.ioMu.Unlock()

	pp.state.Store(int32(StateStoring))
	defer pp.state.Store(int32(StateIdle))

	var buf bytes.Buffer
	if err := kvfile.Write(&buf, Encode(pp.Properties, pp.logger), fileHeader); err != nil {
		return fmt.Errorf("failed to encode '%s': %w", pp.path, err)
	}

	fingerprint, err := pp.store.write(ctx, buf.Bytes())
	if err != nil {
		pp.logger.WithField("event", "store").Warnf("store failed, change kept in memory only: %v", err)
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	pp.fingerprint = fingerprint
	pp.fileExists = true
	pp.loaded = true
	return nil
}

// onChange stores the tree after every change made through this handle.
func (pp *Persistent) onChange(*Properties) error {
	if pp.closed.Load() || pp.IsReadOnly() {
		return nil
	}
	return pp.save(context.Background())
}

// onFileEvent reacts to monitor reports for the backing file.
func (pp *Persistent) onFileEvent(event FileEvent) {
	if pp.closed.Load() {
		return
	}
	log := pp.logger.WithField("event", event.Op.String())

	switch event.Op {
	case FileCreated, FileChanged:
		changed, err := pp.load(context.Background())
		if err != nil {
			log.Warnf("reload failed, keeping current values: %v", err)
			pp.notifyWatchers(fmt.Sprintf("reload_error:%v", err))
			return
		}
		if changed {
			log.Info("properties reloaded")
		}
	case FileRemoved:
		log.Warn("properties file removed, keeping current values")
		pp.notifyWatchers("file_deleted")
	}
}

// Watch returns a channel that receives the keys changed by each reload, and
// "file_deleted" or "reload_error:<reason>" for failed synchronization.
// The channel is closed by Close.
func (pp *Persistent) Watch() <-chan string {
	pp.watchMu.Lock()
	defer pp.watchMu.Unlock()

	// Check watcher limit
	if pp.closed.Load() || len(pp.watchers) >= pp.opts.MaxWatchers {
		ch := make(chan string)
		close(ch)
		return ch
	}

	// Create buffered channel to prevent blocking
	ch := make(chan string, 10)
	pp.watchers[pp.watcherID.Add(1)] = ch
	return ch
}

// WatcherCount returns the number of active watch channels.
func (pp *Persistent) WatcherCount() int {
	pp.watchMu.RLock()
	defer pp.watchMu.RUnlock()
	return len(pp.watchers)
}

func (pp *Persistent) hasWatchers() bool {
	return pp.WatcherCount() > 0
}

// notifyWatchers sends messages to all subscribers, dropping them for full channels.
func (pp *Persistent) notifyWatchers(messages ...string) {
	pp.watchMu.RLock()
	defer pp.watchMu.RUnlock()

	for _, msg := range messages {
		for _, ch := range pp.watchers {
			select {
			case ch <- msg:
			default:
			}
		}
	}
}

// diffKeys lists the persisted keys whose value differs between two encodings.
func diffKeys(before, after map[string]string) []string {
	var keys []string
	for k, v := range after {
		if old, ok := before[k]; !ok || old != v {
			keys = append(keys, k)
		}
	}
	for k := range before {
		if _, ok := after[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// LoadFile reads path once into a new read-only table, typically used as defaults.
// The file is not watched.
func LoadFile(path string, defaults *Properties, registry *Registry, logger logrus.FieldLogger) (*Properties, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path '%s': %w", path, err)
	}

	store := newFileStore(abs, DefaultLockTimeout)
	defer store.close()

	snap, err := store.read(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to load '%s': %w", abs, err)
	}
	if !snap.exists {
		return nil, fmt.Errorf("failed to load '%s': %w", abs, fs.ErrNotExist)
	}

	p := NewWithRegistry(defaults, registry)
	decodeInto(p, snap.pairs, logger.WithField("file", abs))
	p.SetReadOnly()
	return p, nil
}
