package probe

import "errors"

// ErrUnreadable is returned by Memory implementations for addresses that
// cannot be read.
var ErrUnreadable = errors.New("probe: address not readable")

// ArgSource exposes the positional arguments of a trace point. Positions
// start at 1.
type ArgSource interface {
	Arg(n int) (uint64, bool)
}

// Memory reads bytes from the address space the arguments point into.
// Implementations must fail instead of faulting on bad addresses.
type Memory interface {
	ReadAt(dst []byte, addr uint64) error
}

// Args is a fixed argument list; Args[0] is argument 1.
type Args [3]uint64

// Arg implements ArgSource.
func (a *Args) Arg(n int) (uint64, bool) {
	if n < 1 || n > len(a) {
		return 0, false
	}
	return a[n-1], true
}
