// Package zkconn adapts the github.com/go-zookeeper/zk wire client onto the
// session.Conn contract: its synchronous calls run on the supplied executor
// and its watch channels are pumped into one-shot watch callbacks.
package zkconn

import (
	"errors"
	stdlog "log"
	"time"

	"github.com/go-zookeeper/zk"

	"github.com/brettbedarf/zkpath/session"
)

// Dialer opens live ZooKeeper sessions. The executor carries operation
// callbacks and watch deliveries; the optional logger receives the wire
// client's own output.
type Dialer struct {
	exec session.Executor
	zlog *stdlog.Logger
}

func NewDialer(exec session.Executor, logger *stdlog.Logger) *Dialer {
	return &Dialer{exec: exec, zlog: logger}
}

func (d *Dialer) Dial(endpoints []string, sessionTimeout time.Duration, onState session.StateFunc) (session.Conn, error) {
	var (
		zc  *zk.Conn
		ev  <-chan zk.Event
		err error
	)
	if d.zlog != nil {
		zc, ev, err = zk.Connect(endpoints, sessionTimeout, zk.WithLogger(d.zlog))
	} else {
		zc, ev, err = zk.Connect(endpoints, sessionTimeout)
	}
	if err != nil {
		return nil, err
	}
	c := &conn{zc: zc, exec: d.exec}
	go c.sessionFeed(ev, onState)
	return c, nil
}

type conn struct {
	zc   *zk.Conn
	exec session.Executor
}

// sessionFeed forwards session-level events to the client's state callback
// until the wire client closes the channel.
func (c *conn) sessionFeed(ev <-chan zk.Event, onState session.StateFunc) {
	for e := range ev {
		if e.Type != zk.EventSession {
			continue
		}
		if s, ok := mapState(e.State); ok {
			onState(s)
		}
	}
}

// pump waits for the single event an armed watch channel delivers and hands
// it to the one-shot callback on the executor.
func (c *conn) pump(ch <-chan zk.Event, watch session.WatchFunc) {
	e, ok := <-ch
	if !ok {
		return
	}
	ev := mapEvent(e)
	c.exec.Submit(func() { watch(ev) })
}

func (c *conn) Exists(path string, watch session.WatchFunc, cb session.ExistsFunc) {
	c.exec.Submit(func() {
		var (
			found bool
			st    *zk.Stat
			err   error
		)
		if watch != nil {
			var ch <-chan zk.Event
			found, st, ch, err = c.zc.ExistsW(path)
			if err == nil {
				go c.pump(ch, watch)
			}
		} else {
			found, st, err = c.zc.Exists(path)
		}
		switch {
		case err != nil:
			cb(codeOf(err), nil)
		case !found:
			cb(session.CodeNoNode, nil)
		default:
			cb(session.CodeOK, mapStat(st))
		}
	})
}

func (c *conn) Get(path string, watch session.WatchFunc, cb session.GetFunc) {
	c.exec.Submit(func() {
		var (
			data []byte
			st   *zk.Stat
			err  error
		)
		if watch != nil {
			var ch <-chan zk.Event
			data, st, ch, err = c.zc.GetW(path)
			if err == nil {
				go c.pump(ch, watch)
			}
		} else {
			data, st, err = c.zc.Get(path)
		}
		cb(codeOf(err), data, mapStat(st))
	})
}

func (c *conn) Set(path string, data []byte, version int32, cb session.SetFunc) {
	c.exec.Submit(func() {
		st, err := c.zc.Set(path, data, version)
		cb(codeOf(err), mapStat(st))
	})
}

func (c *conn) Create(path string, data []byte, mode session.CreateMode, cb session.CreateFunc) {
	c.exec.Submit(func() {
		created, err := c.zc.Create(path, data, flagsOf(mode), zk.WorldACL(zk.PermAll))
		cb(codeOf(err), created)
	})
}

func (c *conn) Delete(path string, version int32, cb session.DeleteFunc) {
	c.exec.Submit(func() {
		cb(codeOf(c.zc.Delete(path, version)))
	})
}

func (c *conn) Children(path string, watch session.WatchFunc, cb session.ChildrenFunc) {
	c.exec.Submit(func() {
		var (
			names []string
			st    *zk.Stat
			err   error
		)
		if watch != nil {
			var ch <-chan zk.Event
			names, st, ch, err = c.zc.ChildrenW(path)
			if err == nil {
				go c.pump(ch, watch)
			}
		} else {
			names, st, err = c.zc.Children(path)
		}
		cb(codeOf(err), names, mapStat(st))
	})
}

func (c *conn) Close() error {
	c.zc.Close()
	return nil
}

func flagsOf(mode session.CreateMode) int32 {
	switch mode {
	case session.ModeEphemeral:
		return zk.FlagEphemeral
	case session.ModeSequential:
		return zk.FlagSequence
	case session.ModeEphemeralSequential:
		return zk.FlagEphemeral | zk.FlagSequence
	}
	return 0
}

func codeOf(err error) session.Code {
	switch {
	case err == nil:
		return session.CodeOK
	case errors.Is(err, zk.ErrNoNode):
		return session.CodeNoNode
	case errors.Is(err, zk.ErrNodeExists):
		return session.CodeNodeExists
	case errors.Is(err, zk.ErrBadVersion):
		return session.CodeBadVersion
	case errors.Is(err, zk.ErrNotEmpty):
		return session.CodeNotEmpty
	case errors.Is(err, zk.ErrSessionExpired):
		return session.CodeSessionExpired
	case errors.Is(err, zk.ErrConnectionClosed), errors.Is(err, zk.ErrNoServer):
		return session.CodeConnectionLoss
	}
	return session.CodeSystemError
}

func mapStat(st *zk.Stat) *session.Stat {
	if st == nil {
		return nil
	}
	return &session.Stat{
		Version:        st.Version,
		Cversion:       st.Cversion,
		Mtime:          st.Mtime,
		NumChildren:    st.NumChildren,
		EphemeralOwner: st.EphemeralOwner,
	}
}

func mapEvent(e zk.Event) session.Event {
	ev := session.Event{Path: e.Path}
	switch e.Type {
	case zk.EventNodeCreated:
		ev.Type = session.EventNodeCreated
	case zk.EventNodeDeleted:
		ev.Type = session.EventNodeDeleted
	case zk.EventNodeDataChanged:
		ev.Type = session.EventNodeDataChanged
	case zk.EventNodeChildrenChanged:
		ev.Type = session.EventNodeChildrenChanged
	default:
		ev.Type = session.EventNone
	}
	return ev
}

func mapState(s zk.State) (session.State, bool) {
	switch s {
	case zk.StateHasSession:
		return session.StateHasSession, true
	case zk.StateExpired:
		return session.StateExpired, true
	case zk.StateDisconnected:
		return session.StateDisconnected, true
	case zk.StateConnecting, zk.StateConnected:
		return session.StateConnecting, true
	}
	return 0, false
}
