package zkpath

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brettbedarf/zkpath/session"
)

func TestMapOutcome_SuccessInvokesBuilder(t *testing.T) {
	t.Parallel()

	st := &session.Stat{Version: 3}
	got, err := mapOutcome(session.CodeOK, "/a", st, func() DataResult {
		return DataResult{Path: "/a", Data: []byte("x"), Stat: st}
	})
	require.NoError(t, err)
	assert.Equal(t, "/a", got.Path)
	assert.Equal(t, int32(3), got.Stat.Version)
}

func TestMapOutcome_FailureCarriesClassificationAndPath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code session.Code
		kind ErrorKind
	}{
		{session.CodeNoNode, KindNoNode},
		{session.CodeNodeExists, KindNodeExists},
		{session.CodeBadVersion, KindBadVersion},
		{session.CodeNotEmpty, KindNotEmpty},
		{session.CodeSessionExpired, KindSessionExpired},
		{session.CodeConnectionLoss, KindConnectionLoss},
		{session.Code(-999), KindUnknown},
	}
	for _, tc := range cases {
		_, err := mapOutcome(tc.code, "/some/path", nil, func() VoidResult {
			t.Fatal("builder must not run on failure")
			return VoidResult{}
		})
		require.Error(t, err, "code %d", tc.code)

		var oe *OpError
		require.ErrorAs(t, err, &oe)
		assert.Equal(t, tc.kind, oe.Kind)
		assert.Equal(t, "/some/path", oe.Path)
		assert.Equal(t, tc.code, oe.Code)
	}
}

func TestKindOf_NonOpError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.False(t, IsNoNode(nil))
}

func TestKindOf_Wrapped(t *testing.T) {
	t.Parallel()

	inner := &OpError{Kind: KindNoNode, Code: session.CodeNoNode, Path: "/x"}
	wrapped := fmt.Errorf("op failed: %w", inner)
	assert.True(t, IsNoNode(wrapped))
	assert.Equal(t, KindNoNode, KindOf(wrapped))
}
