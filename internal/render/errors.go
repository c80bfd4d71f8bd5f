package render

import (
	"fmt"

	"github.com/pixeldeck/pixeldeck/pkg/pages"
)

// ValidationError reports a malformed page or component schema, a bad
// color, or a failed template evaluation. It aborts the whole page before
// any drawing happens and is never downgraded to a skip.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("page validation failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("page validation failed: %s", e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ComponentError reports a single widget whose geometry or data fetch
// failed. It is logged and isolated; rendering continues with the next
// component.
type ComponentError struct {
	Index int
	Kind  pages.Kind
	Err   error
}

func (e *ComponentError) Error() string {
	return fmt.Sprintf("component %d (%s) failed: %v", e.Index, e.Kind, e.Err)
}

func (e *ComponentError) Unwrap() error { return e.Err }

// NothingRenderedError reports a page that produced zero visible output:
// no background fill and no component succeeded.
type NothingRenderedError struct {
	Last error // last recorded component error, may be nil
}

func (e *NothingRenderedError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("nothing rendered: %v", e.Last)
	}
	return "nothing rendered"
}

func (e *NothingRenderedError) Unwrap() error { return e.Last }

// PushError reports a display surface that rejected the finished buffer.
// It is fatal for the render operation and propagates unchanged.
type PushError struct {
	Err error
}

func (e *PushError) Error() string {
	return fmt.Sprintf("buffer push failed: %v", e.Err)
}

func (e *PushError) Unwrap() error { return e.Err }
