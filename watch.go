package zkpath

import (
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/brettbedarf/zkpath/session"
)

// Watch state machine. Each registration owns an explicit record that moves
// Armed -> Handling -> (Armed | Terminal). Re-arming is performed by
// re-issuing the underlying primitive with the record's handler as the
// one-shot watch, synchronously inside the event handler, before the user
// callback can run. Failures inside a handler are logged, never propagated:
// no caller is waiting on the handler's completion.

type watchState int32

const (
	watchArmed watchState = iota
	watchHandling
	watchTerminal
)

// stopper lets the client registry terminate outstanding records on Close.
type stopper interface {
	stop()
}

// WatchDataFunc receives data-watch notifications. res is nil when the node
// was deleted and stayed gone; otherwise it carries the freshly read value.
type WatchDataFunc func(path string, res *DataResult)

// WatchChildrenFunc receives children-watch notifications with the freshly
// listed child set.
type WatchChildrenFunc func(res ChildrenResult)

// WatchData registers a watch on a node's data. The returned Deferred
// carries the node's current value, independent of later events. With
// persistent the watch re-arms itself after every delivery until the client
// closes or re-registration fails; otherwise it fires at most once.
func (c *Client) WatchData(path string, persistent bool, fn WatchDataFunc) *Deferred[DataResult] {
	p := c.abs(path)
	w := &dataWatch{
		c:          c,
		id:         uuid.NewString(),
		path:       p,
		persistent: persistent,
		fn:         fn,
		log:        c.log.With().Str("watch", "data").Str("path", p).Logger(),
	}
	c.watches.Store(w.id, w)
	return c.get(p, w.handle)
}

// WatchChildren registers a watch on a node's child set. The returned
// Deferred carries the current children, independent of later events.
func (c *Client) WatchChildren(path string, persistent bool, fn WatchChildrenFunc) *Deferred[ChildrenResult] {
	p := c.abs(path)
	w := &childWatch{
		c:          c,
		id:         uuid.NewString(),
		path:       p,
		persistent: persistent,
		fn:         fn,
		log:        c.log.With().Str("watch", "children").Str("path", p).Logger(),
	}
	c.watches.Store(w.id, w)
	return c.children(p, w.handle)
}

type dataWatch struct {
	c          *Client
	id         string
	path       string
	persistent bool
	fn         WatchDataFunc
	log        zerolog.Logger
	state      atomic.Int32
}

// rearm returns the handler to arm on the re-issued primitive, or nil for a
// one-shot registration that must not renew.
func (w *dataWatch) rearm() session.WatchFunc {
	if !w.persistent || w.state.Load() == int32(watchTerminal) {
		return nil
	}
	return w.handle
}

func (w *dataWatch) stop() {
	w.state.Store(int32(watchTerminal))
	w.c.watches.Delete(w.id)
}

func (w *dataWatch) handle(ev session.Event) {
	if w.state.Load() == int32(watchTerminal) {
		return
	}
	w.state.Store(int32(watchHandling))
	rearm := w.rearm()

	switch ev.Type {
	case session.EventNodeCreated, session.EventNodeDataChanged:
		w.c.get(w.path, rearm).Then(func(res DataResult, err error) {
			if err != nil {
				w.log.Warn().Err(err).Msg("refetch after data event failed")
				return
			}
			w.fn(w.path, &res)
		})
	case session.EventNodeDeleted:
		// The refetch distinguishes a true delete from a delete/recreate
		// race that happened before we got here.
		w.c.get(w.path, rearm).Then(func(res DataResult, err error) {
			switch {
			case err == nil:
				w.fn(w.path, &res)
			case IsNoNode(err):
				// A failed read arms nothing, so fall back to an existence
				// watch to keep tracking a later recreate.
				if rearm != nil {
					w.c.exists(w.path, rearm).Then(func(_ ExistsResult, err error) {
						if err != nil && !IsNoNode(err) {
							w.log.Warn().Err(err).Msg("existence re-arm failed")
						}
					})
				}
				w.fn(w.path, nil)
			default:
				w.log.Warn().Err(err).Msg("refetch after delete event failed")
			}
		})
	default:
		// No data to report; keep the subscription alive via an existence
		// check. A no-node outcome still leaves the watch armed.
		w.c.exists(w.path, rearm).Then(func(_ ExistsResult, err error) {
			if err != nil && !IsNoNode(err) {
				w.log.Warn().Err(err).Msg("existence re-arm failed")
			}
		})
	}

	if w.persistent {
		w.state.Store(int32(watchArmed))
	} else {
		w.stop()
	}
}

type childWatch struct {
	c          *Client
	id         string
	path       string
	persistent bool
	fn         WatchChildrenFunc
	log        zerolog.Logger
	state      atomic.Int32
}

func (w *childWatch) rearm() session.WatchFunc {
	if !w.persistent || w.state.Load() == int32(watchTerminal) {
		return nil
	}
	return w.handle
}

func (w *childWatch) stop() {
	w.state.Store(int32(watchTerminal))
	w.c.watches.Delete(w.id)
}

func (w *childWatch) handle(ev session.Event) {
	if w.state.Load() == int32(watchTerminal) {
		return
	}
	if ev.Type != session.EventNodeChildrenChanged {
		w.log.Debug().Stringer("event", ev.Type).Msg("unexpected event on children watch")
		return
	}
	w.state.Store(int32(watchHandling))
	rearm := w.rearm()

	w.c.children(w.path, rearm).Then(func(res ChildrenResult, err error) {
		if err != nil {
			w.log.Warn().Err(err).Msg("relist after children event failed")
			return
		}
		w.fn(res)
	})
	// Independent existence check keeps tracking the node itself so a later
	// delete/recreate still reaches this handler.
	w.c.exists(w.path, rearm).Then(func(_ ExistsResult, err error) {
		if err != nil && !IsNoNode(err) {
			w.log.Warn().Err(err).Msg("existence re-arm failed")
		}
	})

	if w.persistent {
		w.state.Store(int32(watchArmed))
	} else {
		w.stop()
	}
}
