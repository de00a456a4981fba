package arena

import "github.com/pkg/errors"

var (
	ErrInvalidArgument = errors.New("arena: invalid argument")
	ErrOutOfBounds     = errors.New("arena: range outside segment")
	ErrInvalidPointer  = errors.New("arena: invalid pointer")
	ErrOrphanConsumed  = errors.New("arena: orphan already attached")
	ErrKindMismatch    = errors.New("arena: object kind mismatch")
	ErrForeignArena    = errors.New("arena: object belongs to another arena")
)
