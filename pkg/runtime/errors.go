package runtime

import (
	"errors"
	"fmt"
)

// ErrorKind identifies the condition class of a raised error.
type ErrorKind int

const (
	TypeError ErrorKind = iota
	ValueError
	OverflowError
	SystemError
	BufferError
	IndexError
	KeyError
	AttributeError
	StopIteration
	RuntimeError
	ZeroDivisionError
	LookupError
	UnicodeDecodeError
	UnicodeEncodeError
)

var errorKindNames = map[ErrorKind]string{
	TypeError:          "TypeError",
	ValueError:         "ValueError",
	OverflowError:      "OverflowError",
	SystemError:        "SystemError",
	BufferError:        "BufferError",
	IndexError:         "IndexError",
	KeyError:           "KeyError",
	AttributeError:     "AttributeError",
	StopIteration:      "StopIteration",
	RuntimeError:       "RuntimeError",
	ZeroDivisionError:  "ZeroDivisionError",
	LookupError:        "LookupError",
	UnicodeDecodeError: "UnicodeDecodeError",
	UnicodeEncodeError: "UnicodeEncodeError",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// RaisedError is a pending runtime condition. It stays attached to the
// Runtime until cleared; callers see only the ErrRaised sentinel.
type RaisedError struct {
	Kind ErrorKind
	Msg  string
}

func (e *RaisedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// ErrRaised signals that an error condition has already been recorded on
// the runtime. Callers propagate it without building a new message.
var ErrRaised = errors.New("runtime: error raised")

// ErrNotFound signals a lookup miss with nothing recorded on the runtime.
// The caller decides whether the miss is an error and with what wording.
var ErrNotFound = errors.New("runtime: not found")

// Raise records a pending error condition and returns ErrRaised. An
// already pending condition is replaced; callers that want to preserve the
// earlier condition must check HasPendingError first.
func (rt *Runtime) Raise(kind ErrorKind, format string, args ...any) error {
	rt.pending = &RaisedError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
	return ErrRaised
}

// HasPendingError reports whether an error condition is pending.
func (rt *Runtime) HasPendingError() bool { return rt.pending != nil }

// PendingError returns the pending condition, or nil.
func (rt *Runtime) PendingError() *RaisedError { return rt.pending }

// ClearPendingError drops the pending condition.
func (rt *Runtime) ClearPendingError() { rt.pending = nil }

// PendingKind returns the kind of the pending condition. It must only be
// called while an error is pending.
func (rt *Runtime) PendingKind() ErrorKind { return rt.pending.Kind }
