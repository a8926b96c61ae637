package zkpath

import "github.com/brettbedarf/zkpath/session"

// Primitive single-node operations. Each resolves its path against the
// configured base path, issues exactly one request on the current session
// handle, and returns a Deferred resolved exactly once with the mapped
// outcome. None of them block the calling goroutine.

// resolveInto completes d from a mapped outcome.
func resolveInto[T any](d *Deferred[T], val T, err error) {
	if err != nil {
		d.Reject(err)
		return
	}
	d.Resolve(val)
}

// abs resolves a relative-or-absolute path against the configured base.
func (c *Client) abs(path string) string {
	return Resolve(c.basePath, path)
}

// Exists checks that a node is present. A missing node is a KindNoNode
// failure, mirroring the collaborator's classification.
func (c *Client) Exists(path string) *Deferred[ExistsResult] {
	return c.exists(path, nil)
}

func (c *Client) exists(path string, watch session.WatchFunc) *Deferred[ExistsResult] {
	p := c.abs(path)
	d := NewDeferred[ExistsResult]()
	sess, err := c.conn()
	if err != nil {
		d.Reject(err)
		return d
	}
	sess.Exists(p, watch, func(code session.Code, stat *session.Stat) {
		val, err := mapOutcome(code, p, stat, func() ExistsResult {
			return ExistsResult{Path: p, Stat: stat}
		})
		resolveInto(d, val, err)
	})
	return d
}

// Get reads a node's data and metadata.
func (c *Client) Get(path string) *Deferred[DataResult] {
	return c.get(path, nil)
}

func (c *Client) get(path string, watch session.WatchFunc) *Deferred[DataResult] {
	p := c.abs(path)
	d := NewDeferred[DataResult]()
	sess, err := c.conn()
	if err != nil {
		d.Reject(err)
		return d
	}
	sess.Get(p, watch, func(code session.Code, data []byte, stat *session.Stat) {
		val, err := mapOutcome(code, p, stat, func() DataResult {
			return DataResult{Path: p, Data: data, Stat: stat}
		})
		resolveInto(d, val, err)
	})
	return d
}

// Set writes a node's data. version enables an optimistic-concurrency
// check; pass AnyVersion to write unconditionally.
func (c *Client) Set(path string, data []byte, version int32) *Deferred[SetResult] {
	p := c.abs(path)
	d := NewDeferred[SetResult]()
	sess, err := c.conn()
	if err != nil {
		d.Reject(err)
		return d
	}
	sess.Set(p, data, version, func(code session.Code, stat *session.Stat) {
		val, err := mapOutcome(code, p, stat, func() SetResult {
			return SetResult{Path: p, Stat: stat}
		})
		resolveInto(d, val, err)
	})
	return d
}

// Create makes a single node with the given mode. The parent must already
// exist; see CreatePath for recursive creation. For sequential modes the
// result's Created field carries the final server-assigned name.
func (c *Client) Create(path string, data []byte, mode CreateMode) *Deferred[CreateResult] {
	p := c.abs(path)
	d := NewDeferred[CreateResult]()
	sess, err := c.conn()
	if err != nil {
		d.Reject(err)
		return d
	}
	sess.Create(p, data, mode, func(code session.Code, created string) {
		val, err := mapOutcome(code, p, nil, func() CreateResult {
			return CreateResult{Path: p, Created: created}
		})
		resolveInto(d, val, err)
	})
	return d
}

// GetChildren lists the names of a node's children.
func (c *Client) GetChildren(path string) *Deferred[ChildrenResult] {
	return c.children(path, nil)
}

func (c *Client) children(path string, watch session.WatchFunc) *Deferred[ChildrenResult] {
	p := c.abs(path)
	d := NewDeferred[ChildrenResult]()
	sess, err := c.conn()
	if err != nil {
		d.Reject(err)
		return d
	}
	sess.Children(p, watch, func(code session.Code, names []string, stat *session.Stat) {
		val, err := mapOutcome(code, p, stat, func() ChildrenResult {
			return ChildrenResult{Path: p, Children: names, Stat: stat}
		})
		resolveInto(d, val, err)
	})
	return d
}

// deleteNode issues a single delete with the caller's version constraint.
// The public Delete adds the force/recursive behavior on top.
func (c *Client) deleteNode(path string, version int32) *Deferred[VoidResult] {
	p := c.abs(path)
	d := NewDeferred[VoidResult]()
	sess, err := c.conn()
	if err != nil {
		d.Reject(err)
		return d
	}
	sess.Delete(p, version, func(code session.Code) {
		val, err := mapOutcome(code, p, nil, func() VoidResult {
			return VoidResult{Path: p}
		})
		resolveInto(d, val, err)
	})
	return d
}
