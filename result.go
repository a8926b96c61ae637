package zkpath

import (
	"errors"
	"fmt"

	"github.com/brettbedarf/zkpath/session"
)

// ErrorKind classifies a failed operation for programmatic matching.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNoNode
	KindNodeExists
	KindBadVersion
	KindNotEmpty
	KindSessionExpired
	KindConnectionLoss
)

func (k ErrorKind) String() string {
	switch k {
	case KindNoNode:
		return "no-node"
	case KindNodeExists:
		return "node-exists"
	case KindBadVersion:
		return "bad-version"
	case KindNotEmpty:
		return "not-empty"
	case KindSessionExpired:
		return "session-expired"
	case KindConnectionLoss:
		return "connection-loss"
	}
	return "unknown"
}

// OpError is the failure outcome of an operation. It carries the classified
// kind, the raw collaborator code, the absolute path the operation targeted
// (empty if the collaborator reported none), and any partial node metadata.
type OpError struct {
	Kind ErrorKind
	Code session.Code
	Path string
	Stat *session.Stat
}

func (e *OpError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("zkpath: %s (code %d)", e.Kind, e.Code)
	}
	return fmt.Sprintf("zkpath: %s: %s (code %d)", e.Kind, e.Path, e.Code)
}

// KindOf extracts the ErrorKind from err, or KindUnknown if err is not an
// *OpError.
func KindOf(err error) ErrorKind {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return KindUnknown
}

// IsNoNode reports whether err is a no-such-node failure.
func IsNoNode(err error) bool { return KindOf(err) == KindNoNode }

// IsNodeExists reports whether err is a node-already-exists failure.
func IsNodeExists(err error) bool { return KindOf(err) == KindNodeExists }

// IsBadVersion reports whether err is a version-mismatch failure.
func IsBadVersion(err error) bool { return KindOf(err) == KindBadVersion }

// IsNotEmpty reports whether err is a node-has-children failure.
func IsNotEmpty(err error) bool { return KindOf(err) == KindNotEmpty }

// classify maps a collaborator code onto an ErrorKind.
func classify(code session.Code) ErrorKind {
	switch code {
	case session.CodeNoNode:
		return KindNoNode
	case session.CodeNodeExists:
		return KindNodeExists
	case session.CodeBadVersion:
		return KindBadVersion
	case session.CodeNotEmpty:
		return KindNotEmpty
	case session.CodeSessionExpired:
		return KindSessionExpired
	case session.CodeConnectionLoss:
		return KindConnectionLoss
	}
	return KindUnknown
}

// mapOutcome is the single chokepoint translating a collaborator outcome
// into a typed result. On success the builder constructs the value; any
// other code becomes an *OpError carrying the classification, path, and
// whatever metadata the collaborator reported.
func mapOutcome[T any](code session.Code, path string, stat *session.Stat, build func() T) (T, error) {
	if code == session.CodeOK {
		return build(), nil
	}
	var zero T
	return zero, &OpError{Kind: classify(code), Code: code, Path: path, Stat: stat}
}

// ExistsResult is the outcome of an existence check.
type ExistsResult struct {
	Path string
	Stat *session.Stat
}

// DataResult is the outcome of reading a node.
type DataResult struct {
	Path string
	Data []byte
	Stat *session.Stat
}

// ChildrenResult is the outcome of listing a node's children.
type ChildrenResult struct {
	Path     string
	Children []string
	Stat     *session.Stat
}

// CreateResult is the outcome of creating a node. Created is the final
// absolute name, which differs from Path for sequential modes.
type CreateResult struct {
	Path    string
	Created string
}

// SetResult is the outcome of writing a node.
type SetResult struct {
	Path string
	Stat *session.Stat
}

// VoidResult is the outcome of operations with no payload, e.g. Delete.
type VoidResult struct {
	Path string
}
