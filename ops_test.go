package zkpath

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExists_MissingNodeIsNoNode(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, "/")

	_, err := awaitT(t, c.Exists("/nope"))
	assert.True(t, IsNoNode(err))
}

func TestCreateGetSet_RoundTrip(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, "/")

	cr, err := awaitT(t, c.Create("/n", []byte("one"), ModePersistent))
	require.NoError(t, err)
	assert.Equal(t, "/n", cr.Created)

	got, err := awaitT(t, c.Get("/n"))
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), got.Data)
	assert.Equal(t, int32(0), got.Stat.Version)

	set, err := awaitT(t, c.Set("/n", []byte("two"), AnyVersion))
	require.NoError(t, err)
	assert.Equal(t, int32(1), set.Stat.Version)

	got, err = awaitT(t, c.Get("/n"))
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got.Data)
}

func TestSet_MissingNodeAndWrongVersion(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, "/")

	_, err := awaitT(t, c.Set("/missing", []byte("x"), AnyVersion))
	assert.True(t, IsNoNode(err))

	_, err = awaitT(t, c.Create("/v", nil, ModePersistent))
	require.NoError(t, err)

	_, err = awaitT(t, c.Set("/v", []byte("x"), 7))
	assert.True(t, IsBadVersion(err))
}

func TestCreate_ExistingNodeFails(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, "/")

	_, err := awaitT(t, c.Create("/dup", nil, ModePersistent))
	require.NoError(t, err)

	_, err = awaitT(t, c.Create("/dup", nil, ModePersistent))
	assert.True(t, IsNodeExists(err))
}

func TestCreate_MissingParentFails(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, "/")

	_, err := awaitT(t, c.Create("/no/parent/here", nil, ModePersistent))
	assert.True(t, IsNoNode(err))
}

func TestCreate_SequentialAssignsDistinctNames(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, "/")

	_, err := awaitT(t, c.Create("/seq", nil, ModePersistent))
	require.NoError(t, err)

	first, err := awaitT(t, c.Create("/seq/item-", nil, ModeSequential))
	require.NoError(t, err)
	second, err := awaitT(t, c.Create("/seq/item-", nil, ModeSequential))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(first.Created, "/seq/item-"))
	assert.NotEqual(t, first.Created, second.Created)
}

func TestGetChildren_ListsNames(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, "/")

	_, err := awaitT(t, c.Create("/p", nil, ModePersistent))
	require.NoError(t, err)
	for _, name := range []string{"a", "b", "c"} {
		_, err := awaitT(t, c.Create("/p/"+name, nil, ModePersistent))
		require.NoError(t, err)
	}

	res, err := awaitT(t, c.GetChildren("/p"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, res.Children)
	assert.Equal(t, int32(3), res.Stat.NumChildren)
}

func TestDelete_NonEmptyWithoutForceFails(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, "/")

	_, err := awaitT(t, c.Create("/d", nil, ModePersistent))
	require.NoError(t, err)
	_, err = awaitT(t, c.Create("/d/kid", nil, ModePersistent))
	require.NoError(t, err)

	_, err = awaitT(t, c.Delete("/d", AnyVersion, false))
	assert.True(t, IsNotEmpty(err))
}

func TestDelete_WrongVersionFails(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, "/")

	_, err := awaitT(t, c.Create("/dv", nil, ModePersistent))
	require.NoError(t, err)

	_, err = awaitT(t, c.Delete("/dv", 9, false))
	assert.True(t, IsBadVersion(err))

	_, err = awaitT(t, c.Delete("/dv", 0, false))
	require.NoError(t, err)
}
