// Package memzk is a deterministic in-memory coordination service honoring
// the session.Conn contract: versioned nodes, ephemeral ownership,
// sequential naming, and one-shot watches. It backs the client tests so no
// live ensemble is needed.
package memzk

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brettbedarf/zkpath/session"
)

type znode struct {
	data     []byte
	version  int32
	cversion int32
	mtime    int64
	children map[string]*znode
	owner    int64 // owning session id for ephemerals, else 0
	seq      int64 // counter for sequential child names
}

func newZnode(data []byte, owner int64) *znode {
	return &znode{
		data:     data,
		mtime:    time.Now().UnixMilli(),
		children: map[string]*znode{},
		owner:    owner,
	}
}

func (n *znode) stat() *session.Stat {
	return &session.Stat{
		Version:        n.version,
		Cversion:       n.cversion,
		Mtime:          n.mtime,
		NumChildren:    int32(len(n.children)),
		EphemeralOwner: n.owner,
	}
}

// firing is a batch of one-shot watches consumed by a mutation, dispatched
// after the server lock is released.
type firing struct {
	fns []session.WatchFunc
	ev  session.Event
}

// Server holds the namespace and all armed watches. It implements
// session.Dialer; every Dial opens an independent session.
type Server struct {
	mu       sync.Mutex
	root     *znode
	dataW    map[string][]session.WatchFunc
	existW   map[string][]session.WatchFunc
	childW   map[string][]session.WatchFunc
	nextSID  int64
	sessions map[int64]*conn
}

func NewServer() *Server {
	return &Server{
		root:     newZnode(nil, 0),
		dataW:    map[string][]session.WatchFunc{},
		existW:   map[string][]session.WatchFunc{},
		childW:   map[string][]session.WatchFunc{},
		sessions: map[int64]*conn{},
	}
}

// Dial opens a new session. Endpoints and timeout are accepted for contract
// parity and ignored. StateHasSession is delivered asynchronously.
func (s *Server) Dial(_ []string, _ time.Duration, onState session.StateFunc) (session.Conn, error) {
	s.mu.Lock()
	s.nextSID++
	c := &conn{srv: s, sid: s.nextSID, onState: onState}
	s.sessions[c.sid] = c
	s.mu.Unlock()
	go onState(session.StateHasSession)
	return c, nil
}

// ExpireAll simulates a server-side expiry of every open session: ephemeral
// nodes are removed and each session feed reports StateExpired.
func (s *Server) ExpireAll() {
	s.mu.Lock()
	conns := make([]*conn, 0, len(s.sessions))
	for _, c := range s.sessions {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		c.expire()
	}
}

func (s *Server) lookup(path string) *znode {
	if path == "/" {
		return s.root
	}
	cur := s.root
	for _, seg := range strings.Split(strings.TrimPrefix(path, "/"), "/") {
		next, ok := cur.children[seg]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

func splitPath(path string) (parent, name string) {
	idx := strings.LastIndexByte(path, '/')
	if idx == 0 {
		return "/", path[1:]
	}
	return path[:idx], path[idx+1:]
}

func (s *Server) takeWatches(m map[string][]session.WatchFunc, path string) []session.WatchFunc {
	fns := m[path]
	delete(m, path)
	return fns
}

func dispatch(firings []firing) {
	for _, f := range firings {
		for _, fn := range f.fns {
			go fn(f.ev)
		}
	}
}

// conn is one session's view of the server.
type conn struct {
	srv     *Server
	sid     int64
	onState session.StateFunc
	closed  atomic.Bool
}

func (c *conn) Exists(path string, watch session.WatchFunc, cb session.ExistsFunc) {
	if c.gone(func() { cb(session.CodeConnectionLoss, nil) }) {
		return
	}
	s := c.srv
	s.mu.Lock()
	// An existence watch arms even when the node is absent, so creation is
	// still observed.
	if watch != nil {
		s.existW[path] = append(s.existW[path], watch)
	}
	n := s.lookup(path)
	var st *session.Stat
	code := session.CodeNoNode
	if n != nil {
		st = n.stat()
		code = session.CodeOK
	}
	s.mu.Unlock()
	go cb(code, st)
}

func (c *conn) Get(path string, watch session.WatchFunc, cb session.GetFunc) {
	if c.gone(func() { cb(session.CodeConnectionLoss, nil, nil) }) {
		return
	}
	s := c.srv
	s.mu.Lock()
	n := s.lookup(path)
	if n == nil {
		s.mu.Unlock()
		go cb(session.CodeNoNode, nil, nil)
		return
	}
	if watch != nil {
		s.dataW[path] = append(s.dataW[path], watch)
	}
	data := append([]byte(nil), n.data...)
	st := n.stat()
	s.mu.Unlock()
	go cb(session.CodeOK, data, st)
}

func (c *conn) Set(path string, data []byte, version int32, cb session.SetFunc) {
	if c.gone(func() { cb(session.CodeConnectionLoss, nil) }) {
		return
	}
	s := c.srv
	s.mu.Lock()
	n := s.lookup(path)
	if n == nil {
		s.mu.Unlock()
		go cb(session.CodeNoNode, nil)
		return
	}
	if version >= 0 && version != n.version {
		st := n.stat()
		s.mu.Unlock()
		go cb(session.CodeBadVersion, st)
		return
	}
	n.data = append([]byte(nil), data...)
	n.version++
	n.mtime = time.Now().UnixMilli()
	st := n.stat()
	firings := []firing{
		{s.takeWatches(s.dataW, path), session.Event{Type: session.EventNodeDataChanged, Path: path}},
		{s.takeWatches(s.existW, path), session.Event{Type: session.EventNodeDataChanged, Path: path}},
	}
	s.mu.Unlock()
	dispatch(firings)
	go cb(session.CodeOK, st)
}

func (c *conn) Create(path string, data []byte, mode session.CreateMode, cb session.CreateFunc) {
	if c.gone(func() { cb(session.CodeConnectionLoss, "") }) {
		return
	}
	s := c.srv
	s.mu.Lock()
	parentPath, name := splitPath(path)
	parent := s.lookup(parentPath)
	if parent == nil || name == "" {
		s.mu.Unlock()
		go cb(session.CodeNoNode, "")
		return
	}
	if mode == session.ModeSequential || mode == session.ModeEphemeralSequential {
		name = fmt.Sprintf("%s%010d", name, parent.seq)
		parent.seq++
	}
	if _, ok := parent.children[name]; ok {
		s.mu.Unlock()
		go cb(session.CodeNodeExists, "")
		return
	}
	var owner int64
	if mode == session.ModeEphemeral || mode == session.ModeEphemeralSequential {
		owner = c.sid
	}
	parent.children[name] = newZnode(data, owner)
	parent.cversion++
	created := parentPath + "/" + name
	if parentPath == "/" {
		created = "/" + name
	}
	firings := []firing{
		{s.takeWatches(s.existW, created), session.Event{Type: session.EventNodeCreated, Path: created}},
		{s.takeWatches(s.childW, parentPath), session.Event{Type: session.EventNodeChildrenChanged, Path: parentPath}},
	}
	s.mu.Unlock()
	dispatch(firings)
	go cb(session.CodeOK, created)
}

func (c *conn) Delete(path string, version int32, cb session.DeleteFunc) {
	if c.gone(func() { cb(session.CodeConnectionLoss) }) {
		return
	}
	code, firings := c.srv.removeNode(path, version)
	dispatch(firings)
	go cb(code)
}

func (s *Server) removeNode(path string, version int32) (session.Code, []firing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	parentPath, name := splitPath(path)
	parent := s.lookup(parentPath)
	if parent == nil {
		return session.CodeNoNode, nil
	}
	n, ok := parent.children[name]
	if !ok {
		return session.CodeNoNode, nil
	}
	if len(n.children) > 0 {
		return session.CodeNotEmpty, nil
	}
	if version >= 0 && version != n.version {
		return session.CodeBadVersion, nil
	}
	delete(parent.children, name)
	parent.cversion++
	return session.CodeOK, []firing{
		{s.takeWatches(s.dataW, path), session.Event{Type: session.EventNodeDeleted, Path: path}},
		{s.takeWatches(s.existW, path), session.Event{Type: session.EventNodeDeleted, Path: path}},
		{s.takeWatches(s.childW, path), session.Event{Type: session.EventNodeDeleted, Path: path}},
		{s.takeWatches(s.childW, parentPath), session.Event{Type: session.EventNodeChildrenChanged, Path: parentPath}},
	}
}

func (c *conn) Children(path string, watch session.WatchFunc, cb session.ChildrenFunc) {
	if c.gone(func() { cb(session.CodeConnectionLoss, nil, nil) }) {
		return
	}
	s := c.srv
	s.mu.Lock()
	n := s.lookup(path)
	if n == nil {
		s.mu.Unlock()
		go cb(session.CodeNoNode, nil, nil)
		return
	}
	if watch != nil {
		s.childW[path] = append(s.childW[path], watch)
	}
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	st := n.stat()
	s.mu.Unlock()
	go cb(session.CodeOK, names, st)
}

// Close ends the session and removes its ephemeral nodes, firing the same
// watches a client-visible delete would.
func (c *conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.reapEphemerals()
	c.srv.mu.Lock()
	delete(c.srv.sessions, c.sid)
	c.srv.mu.Unlock()
	return nil
}

// expire ends the session like Close but reports StateExpired on the feed.
func (c *conn) expire() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.reapEphemerals()
	c.srv.mu.Lock()
	delete(c.srv.sessions, c.sid)
	c.srv.mu.Unlock()
	go c.onState(session.StateExpired)
}

func (c *conn) reapEphemerals() {
	s := c.srv
	s.mu.Lock()
	var owned []string
	var walk func(prefix string, n *znode)
	walk = func(prefix string, n *znode) {
		for name, child := range n.children {
			p := prefix + "/" + name
			if child.owner == c.sid {
				owned = append(owned, p)
			}
			walk(p, child)
		}
	}
	walk("", s.root)
	s.mu.Unlock()

	// Deepest first so ephemeral parents of ephemeral children empty out
	// before their own delete.
	sort.Slice(owned, func(i, j int) bool {
		return strings.Count(owned[i], "/") > strings.Count(owned[j], "/")
	})
	for _, p := range owned {
		_, firings := s.removeNode(p, -1)
		dispatch(firings)
	}
}

func (c *conn) gone(report func()) bool {
	if c.closed.Load() {
		go report()
		return true
	}
	return false
}
