package engine

import (
	"errors"

	"github.com/sirupsen/logrus"
)

// Status classifies the result of an optional engine call.
type Status int

const (
	Succeeded Status = iota
	NotApplicable
	Failed
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case NotApplicable:
		return "not-applicable"
	default:
		return "failed"
	}
}

// Outcome records what happened to one optional engine call.
type Outcome struct {
	Op     string
	Status Status
	Err    error
}

// Try classifies err: nil succeeds, ErrNotSupported is not applicable, anything else failed.
func Try(op string, err error) Outcome {
	switch {
	case err == nil:
		return Outcome{Op: op, Status: Succeeded}
	case errors.Is(err, ErrNotSupported):
		return Outcome{Op: op, Status: NotApplicable, Err: err}
	default:
		return Outcome{Op: op, Status: Failed, Err: err}
	}
}

// OK reports whether the call succeeded.
func (o Outcome) OK() bool { return o.Status == Succeeded }

// Log reports failures as warnings and skipped capabilities at debug level.
func (o Outcome) Log(entry *logrus.Entry) Outcome {
	if entry == nil {
		entry = logrus.NewEntry(logrus.StandardLogger())
	}
	switch o.Status {
	case Failed:
		entry.WithField("op", o.Op).Warnf("engine call failed: %v", o.Err)
	case NotApplicable:
		entry.WithField("op", o.Op).Debug("engine capability not available; skipped")
	case Succeeded:
	}
	return o
}
