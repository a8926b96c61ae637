package zkpath

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePath_RoundTrip(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, "/")

	res, err := awaitT(t, c.CreatePath("/a/b/c"))
	require.NoError(t, err)
	assert.Equal(t, "/a/b/c", res.Path)

	for _, p := range []string{"/a", "/a/b", "/a/b/c"} {
		got, err := awaitT(t, c.Exists(p))
		require.NoError(t, err, p)
		assert.Equal(t, p, got.Path)
	}
}

// A second CreatePath must tolerate node-exists on every ancestor.
func TestCreatePath_Idempotent(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, "/")

	_, err := awaitT(t, c.CreatePath("/x/y/z"))
	require.NoError(t, err)
	_, err = awaitT(t, c.CreatePath("/x/y/z"))
	require.NoError(t, err)
}

func TestCreatePath_RootIsNoOp(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, "/")

	res, err := awaitT(t, c.CreatePath("/"))
	require.NoError(t, err)
	assert.Equal(t, "/", res.Path)
}

func TestCreateAndGet_ReadsBackCreatedNode(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, "/")

	res, err := awaitT(t, c.CreateAndGet("/cg", []byte("data"), ModePersistent))
	require.NoError(t, err)
	assert.Equal(t, "/cg", res.Path)
	assert.Equal(t, []byte("data"), res.Data)
}

func TestCreateAndGet_CreateFailurePropagates(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, "/")

	_, err := awaitT(t, c.CreateAndGet("/no/parent", []byte("d"), ModePersistent))
	assert.True(t, IsNoNode(err))
}

func TestGetOrCreate_CreatesMissingNode(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, "/")

	res, err := awaitT(t, c.GetOrCreate("/goc", []byte("init"), ModePersistent))
	require.NoError(t, err)
	assert.Equal(t, []byte("init"), res.Data)
}

func TestGetOrCreate_ReturnsExistingData(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, "/")

	_, err := awaitT(t, c.Create("/have", []byte("old"), ModePersistent))
	require.NoError(t, err)

	res, err := awaitT(t, c.GetOrCreate("/have", []byte("new"), ModePersistent))
	require.NoError(t, err)
	assert.Equal(t, []byte("old"), res.Data)
}

// Two concurrent callers race on the same missing path: the server accepts
// exactly one create, and both callers must still resolve with the data.
func TestGetOrCreate_ConcurrentRacersBothResolve(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, "/")

	const racers = 2
	var wg sync.WaitGroup
	results := make([]DataResult, racers)
	errs := make([]error, racers)
	for i := range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = awaitT(t, c.GetOrCreate("/race", []byte("seed"), ModePersistent))
		}()
	}
	wg.Wait()

	for i := range racers {
		require.NoError(t, errs[i])
		assert.Equal(t, []byte("seed"), results[i].Data)
	}
}

func TestDeleteChildren_LeavesRootEmpty(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, "/")

	_, err := awaitT(t, c.CreatePath("/p/a"))
	require.NoError(t, err)
	_, err = awaitT(t, c.CreatePath("/p/b/c"))
	require.NoError(t, err)

	_, err = awaitT(t, c.DeleteChildren("/p"))
	require.NoError(t, err)

	res, err := awaitT(t, c.GetChildren("/p"))
	require.NoError(t, err)
	assert.Empty(t, res.Children)
}

func TestDelete_ForceRemovesSubtree(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, "/")

	_, err := awaitT(t, c.CreatePath("/f/a/b"))
	require.NoError(t, err)
	_, err = awaitT(t, c.CreatePath("/f/c"))
	require.NoError(t, err)

	_, err = awaitT(t, c.Delete("/f", AnyVersion, true))
	require.NoError(t, err)

	_, err = awaitT(t, c.Exists("/f"))
	assert.True(t, IsNoNode(err))
}

// Force still honors the caller's version on the node itself.
func TestDelete_ForceHonorsNodeVersion(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, "/")

	_, err := awaitT(t, c.Create("/fv", nil, ModePersistent))
	require.NoError(t, err)
	_, err = awaitT(t, c.Create("/fv/kid", nil, ModePersistent))
	require.NoError(t, err)

	_, err = awaitT(t, c.Delete("/fv", 5, true))
	assert.True(t, IsBadVersion(err))

	// Children are gone even though the node survived.
	res, err := awaitT(t, c.GetChildren("/fv"))
	require.NoError(t, err)
	assert.Empty(t, res.Children)
}

func TestCreateEphemeral_CreatesParentChain(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, "/")

	ok, err := awaitT(t, c.CreateEphemeral("/svc/workers/w1", []byte("addr")))
	require.NoError(t, err)
	assert.True(t, ok)

	res, err := awaitT(t, c.Get("/svc/workers/w1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("addr"), res.Data)
	assert.NotZero(t, res.Stat.EphemeralOwner)

	// Parents are plain persistent nodes.
	parent, err := awaitT(t, c.Exists("/svc/workers"))
	require.NoError(t, err)
	assert.Zero(t, parent.Stat.EphemeralOwner)
}

func TestCreateEphemeral_FailurePropagatesNotFalse(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, "/")

	_, err := awaitT(t, c.CreateEphemeral("/e", nil))
	require.NoError(t, err)

	ok, err := awaitT(t, c.CreateEphemeral("/e", nil))
	assert.True(t, IsNodeExists(err))
	assert.False(t, ok)
}
