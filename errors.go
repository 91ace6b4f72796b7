package tuning

import "github.com/pkg/errors"

// Sentinel errors; callers match them with errors.Is.
var (
	ErrInvalidParameters  = errors.New("invalid tuning parameters")
	ErrCorruptStream      = errors.New("corrupt tuning data")
	ErrUnsupportedVersion = errors.New("unsupported tuning version")
	ErrWrongKind          = errors.New("operation not supported by tuning kind")
	ErrNoteOutOfRange     = errors.New("note outside ratio table")
	ErrCollectionFull     = errors.New("tuning collection is full")
)
