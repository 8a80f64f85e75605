// Package bounded implements the fixed-capacity collection types every
// decoded Module field and every engine-owned stack is built from:
// ordered sequence, mapping, set, stack, queue, and string. All mutators
// that would exceed the configured capacity fail rather than allocate.
// See spec §4.2.
package bounded

import "errors"

// ErrCapacityExceeded is returned by any mutator that would grow a
// collection past its configured capacity. The collection is left
// unchanged.
var ErrCapacityExceeded = errors.New("bounded: capacity exceeded")

// ErrEmpty is returned by Pop/Dequeue/Front/Back on an empty collection.
var ErrEmpty = errors.New("bounded: collection is empty")
