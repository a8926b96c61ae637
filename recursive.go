package zkpath

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/brettbedarf/zkpath/session"
)

// Multi-step operations composed from the single-node primitives. The
// only failures recovered here are the documented races: an existing node
// during CreatePath/CreateEphemeral and a lost creation race in
// GetOrCreate. Everything else propagates unchanged.

// CreatePath creates every ancestor of path (including path itself) as a
// persistent node with no data. Ancestor creations run concurrently; a
// node-exists failure on any of them counts as success, so the operation is
// idempotent. The result carries the resolved requested path.
func (c *Client) CreatePath(path string) *Deferred[VoidResult] {
	p := c.abs(path)
	d := NewDeferred[VoidResult]()
	chain := SubPaths(p)
	if len(chain) == 0 {
		d.Resolve(VoidResult{Path: p})
		return d
	}
	go func() {
		// First wave runs concurrently. A deeper ancestor can lose the race
		// against its own parent's create and come back no-node; those are
		// retried in order once the wave settles.
		retry := make([]bool, len(chain))
		var g errgroup.Group
		for i, ancestor := range chain {
			g.Go(func() error {
				_, err := c.Create(ancestor, nil, ModePersistent).Await(context.Background())
				switch {
				case err == nil, IsNodeExists(err):
					return nil
				case IsNoNode(err):
					retry[i] = true
					return nil
				default:
					return err
				}
			})
		}
		if err := g.Wait(); err != nil {
			d.Reject(err)
			return
		}
		for i, ancestor := range chain {
			if !retry[i] {
				continue
			}
			_, err := c.Create(ancestor, nil, ModePersistent).Await(context.Background())
			if err != nil && !IsNodeExists(err) {
				d.Reject(err)
				return
			}
		}
		d.Resolve(VoidResult{Path: p})
	}()
	return d
}

// CreateAndGet creates a node and then reads it back, sequentially. A
// create failure propagates without attempting the read. The read targets
// the created name, which matters for sequential modes.
func (c *Client) CreateAndGet(path string, data []byte, mode CreateMode) *Deferred[DataResult] {
	d := NewDeferred[DataResult]()
	c.Create(path, data, mode).Then(func(cr CreateResult, err error) {
		if err != nil {
			d.Reject(err)
			return
		}
		c.Get(cr.Created).Then(func(res DataResult, err error) {
			resolveInto(d, res, err)
		})
	})
	return d
}

// GetOrCreate reads a node, creating it first if missing. When the create
// loses a race to a concurrent creator (node-exists), the node is read
// again; a failure on that second read is not recovered further. Any
// failure other than the two documented races propagates unchanged.
func (c *Client) GetOrCreate(path string, data []byte, mode CreateMode) *Deferred[DataResult] {
	p := c.abs(path)
	d := NewDeferred[DataResult]()
	c.Get(p).Then(func(res DataResult, err error) {
		if err == nil {
			d.Resolve(res)
			return
		}
		if !IsNoNode(err) {
			d.Reject(err)
			return
		}
		c.Create(p, data, mode).Then(func(cr CreateResult, cerr error) {
			if cerr != nil && !IsNodeExists(cerr) {
				d.Reject(cerr)
				return
			}
			target := p
			if cerr == nil {
				target = cr.Created
			}
			c.Get(target).Then(func(res DataResult, err error) {
				resolveInto(d, res, err)
			})
		})
	})
	return d
}

// DeleteChildren removes every descendant of path, depth first, leaving the
// node itself in place. Children are deleted regardless of version since the
// caller tracks no child versions; this unconditional bypass is deliberate.
// Sibling subtrees are processed concurrently and the result resolves only
// once every descendant delete has resolved.
func (c *Client) DeleteChildren(path string) *Deferred[VoidResult] {
	p := c.abs(path)
	d := NewDeferred[VoidResult]()
	go func() {
		if err := c.deleteDescendants(p); err != nil {
			d.Reject(err)
			return
		}
		d.Resolve(VoidResult{Path: p})
	}()
	return d
}

// deleteDescendants is the blocking recursion behind DeleteChildren; it
// always runs off the caller's goroutine.
func (c *Client) deleteDescendants(abs string) error {
	res, err := c.children(abs, nil).Await(context.Background())
	if err != nil {
		return err
	}
	var g errgroup.Group
	for _, name := range res.Children {
		child := joinPath(abs, name)
		g.Go(func() error {
			if err := c.deleteDescendants(child); err != nil {
				return err
			}
			_, err := c.deleteNode(child, session.AnyVersion).Await(context.Background())
			return err
		})
	}
	return g.Wait()
}

// Delete removes a node. With force it first clears all descendants via
// DeleteChildren and then deletes the node itself, still honoring the
// caller's version for the node. Without force a single delete is issued
// and a not-empty failure propagates unrecovered.
func (c *Client) Delete(path string, version int32, force bool) *Deferred[VoidResult] {
	p := c.abs(path)
	if !force {
		return c.deleteNode(p, version)
	}
	d := NewDeferred[VoidResult]()
	c.DeleteChildren(p).Then(func(_ VoidResult, err error) {
		if err != nil {
			d.Reject(err)
			return
		}
		c.deleteNode(p, version).Then(func(res VoidResult, err error) {
			resolveInto(d, res, err)
		})
	})
	return d
}

// CreateEphemeral creates an ephemeral leaf, first ensuring its parent
// chain exists (tolerating already-present ancestors like CreatePath).
// It resolves to true on success; failures reject the result rather than
// resolving false.
func (c *Client) CreateEphemeral(path string, data []byte) *Deferred[bool] {
	p := c.abs(path)
	d := NewDeferred[bool]()
	createLeaf := func() {
		c.Create(p, data, ModeEphemeral).Then(func(_ CreateResult, err error) {
			if err != nil {
				d.Reject(err)
				return
			}
			d.Resolve(true)
		})
	}
	parent := parentOf(p)
	if parent == "/" {
		createLeaf()
		return d
	}
	c.CreatePath(parent).Then(func(_ VoidResult, err error) {
		if err != nil {
			d.Reject(err)
			return
		}
		createLeaf()
	})
	return d
}

func joinPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}
