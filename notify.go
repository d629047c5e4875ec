// File: lixenwraith/properties/notify.go
package properties

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ListenerID identifies a registered change listener or file handler.
type ListenerID int64

// ChangeFunc is called after a table changed. It receives the table that changed,
// which may be a descendant of the table the listener is registered on.
type ChangeFunc func(changed *Properties) error

type listener struct {
	id ListenerID
	fn ChangeFunc
}

var nextListenerID atomic.Int64

func newListenerID() ListenerID {
	return ListenerID(nextListenerID.Add(1))
}

// AddChangeListener registers fn to be called after every net change of this table
// or any of its sub-tables.
func (p *Properties) AddChangeListener(fn ChangeFunc) ListenerID {
	id := newListenerID()
	p.listenerMu.Lock()
	p.listeners = append(p.listeners, listener{id: id, fn: fn})
	p.listenerMu.Unlock()
	return id
}

// RemoveChangeListener unregisters the listener with the given id.
func (p *Properties) RemoveChangeListener(id ListenerID) bool {
	p.listenerMu.Lock()
	defer p.listenerMu.Unlock()
	for i, l := range p.listeners {
		if l.id == id {
			p.listeners = append(p.listeners[:i:i], p.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// notifyChange runs the listeners of changed and its ancestors, innermost first.
// Inside a Batch the notification is deferred.
func notifyChange(changed *Properties) error {
	return notifyChangeExcept(changed, 0)
}

// notifyChangeExcept is notifyChange without the listener registered as skip.
func notifyChangeExcept(changed *Properties, skip ListenerID) error {
	st := changed.state
	st.batchMu.Lock()
	if st.batchDepth > 0 {
		st.batchPending = true
		st.batchMu.Unlock()
		return nil
	}
	st.batchMu.Unlock()

	var errs []error
	for n := changed; n != nil; n = n.parent {
		errs = append(errs, n.callListeners(changed, skip)...)
	}
	return errors.Join(errs...)
}

// callListeners invokes the listeners of p in registration order, outside any tree lock.
func (p *Properties) callListeners(changed *Properties, skip ListenerID) []error {
	p.listenerMu.Lock()
	ls := make([]listener, len(p.listeners))
	copy(ls, p.listeners)
	p.listenerMu.Unlock()

	var errs []error
	for _, l := range ls {
		if l.id == skip {
			continue
		}
		if err := safeCallListener(l.fn, changed); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func safeCallListener(fn ChangeFunc, changed *Properties) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("change listener panicked: %v", r)
		}
	}()
	return fn(changed)
}

// Batch runs fn and delivers at most one change notification, to the root's
// listeners, once fn returns. Batches nest.
func (p *Properties) Batch(fn func() error) error {
	st := p.state
	st.batchMu.Lock()
	st.batchDepth++
	st.batchMu.Unlock()

	err := fn()

	st.batchMu.Lock()
	st.batchDepth--
	fire := st.batchDepth == 0 && st.batchPending
	if fire {
		st.batchPending = false
	}
	st.batchMu.Unlock()

	if fire {
		root := p.root()
		return errors.Join(err, notifyChange(root))
	}
	return err
}
