package fairy

import (
	"errors"
	"fmt"
)

// Contract violations on the tree API panic with one of these errors wrapped,
// so callers that recover can match them with errors.Is.
var (
	ErrNilChild        = errors.New("fairy: nil child")
	ErrNotChild        = errors.New("fairy: node is not a child of this container")
	ErrIndexOutOfRange = errors.New("fairy: child index out of range")
	ErrCycle           = errors.New("fairy: adding child would create a cycle")
	ErrNotContainer    = errors.New("fairy: node is not a container")
	ErrUnbalancedClip  = errors.New("fairy: unbalanced clip stack")
	ErrDisposedTexture = errors.New("fairy: texture is disposed")
	ErrNotRootTexture  = errors.New("fairy: operation requires a root texture")
)

func contractPanic(err error, format string, args ...any) {
	panic(fmt.Errorf("%w: "+format, append([]any{err}, args...)...))
}
