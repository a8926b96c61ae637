// Package session defines the contract between the zkpath client and the
// underlying coordination-service connection. Implementations translate
// these callback-driven single-node operations onto a concrete wire client
// (see the zkconn package) or an in-memory server used for testing.
package session

import "time"

// Code is the status code reported by the collaborator for a completed
// operation. Values mirror the ZooKeeper server error codes so adapters can
// pass them through unchanged.
type Code int32

const (
	CodeOK             Code = 0
	CodeSystemError    Code = -1
	CodeConnectionLoss Code = -4
	CodeNoNode         Code = -101
	CodeBadVersion     Code = -103
	CodeNodeExists     Code = -110
	CodeNotEmpty       Code = -111
	CodeSessionExpired Code = -112
)

// AnyVersion disables the optimistic-concurrency check on Set and Delete.
const AnyVersion int32 = -1

// CreateMode selects the lifetime/naming policy of a node at creation.
type CreateMode int32

const (
	ModePersistent CreateMode = iota
	ModeEphemeral
	ModeSequential
	ModeEphemeralSequential
)

// Stat is the node metadata returned alongside successful operations.
// The client never mutates it, only forwards it.
type Stat struct {
	Version        int32 // data version, bumped on every Set
	Cversion       int32 // child version, bumped on child create/delete
	Mtime          int64 // last data modification, unix millis
	NumChildren    int32
	EphemeralOwner int64 // owning session id; 0 for persistent nodes
}

// EventType identifies what changed on a watched node.
type EventType int32

const (
	EventNone                EventType = -1
	EventNodeCreated         EventType = 1
	EventNodeDeleted         EventType = 2
	EventNodeDataChanged     EventType = 3
	EventNodeChildrenChanged EventType = 4
)

func (t EventType) String() string {
	switch t {
	case EventNone:
		return "none"
	case EventNodeCreated:
		return "node-created"
	case EventNodeDeleted:
		return "node-deleted"
	case EventNodeDataChanged:
		return "node-data-changed"
	case EventNodeChildrenChanged:
		return "node-children-changed"
	}
	return "unknown"
}

// Event is a single change notification delivered to a one-shot watch.
type Event struct {
	Type EventType
	Path string
}

// State is the connection state reported on the out-of-band session feed.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateHasSession
	StateExpired
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateHasSession:
		return "has-session"
	case StateExpired:
		return "expired"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// WatchFunc receives exactly one Event per armed watch, then the watch is
// consumed. Implementations deliver it asynchronously.
type WatchFunc func(ev Event)

// StateFunc receives out-of-band connection-state notifications.
type StateFunc func(s State)

// Callback signatures for the single-node operations. Each is invoked
// exactly once per request, asynchronously, with the terminal outcome.
type (
	ExistsFunc   func(code Code, stat *Stat)
	GetFunc      func(code Code, data []byte, stat *Stat)
	SetFunc      func(code Code, stat *Stat)
	CreateFunc   func(code Code, created string)
	DeleteFunc   func(code Code)
	ChildrenFunc func(code Code, names []string, stat *Stat)
)

// Conn is one open session against the coordination service. Every method
// issues exactly one request and reports exactly one terminal outcome via
// its callback. A non-nil watch arms a one-shot subscription on the target
// node where the operation supports it; Exists arms the watch even when the
// node does not yet exist.
type Conn interface {
	Exists(path string, watch WatchFunc, cb ExistsFunc)
	Get(path string, watch WatchFunc, cb GetFunc)
	Set(path string, data []byte, version int32, cb SetFunc)
	Create(path string, data []byte, mode CreateMode, cb CreateFunc)
	Delete(path string, version int32, cb DeleteFunc)
	Children(path string, watch WatchFunc, cb ChildrenFunc)
	Close() error
}

// Dialer opens sessions. onState receives the out-of-band session feed for
// the returned Conn, starting with StateHasSession once the session is live.
type Dialer interface {
	Dial(endpoints []string, sessionTimeout time.Duration, onState StateFunc) (Conn, error)
}

// Executor runs submitted tasks asynchronously. The wire adapter runs
// operation callbacks and watch deliveries on the executor supplied at
// construction; other Conn implementations may use plain goroutines, but
// delivery never happens on the caller's goroutine.
type Executor interface {
	Submit(task func())
}
