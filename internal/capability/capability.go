// Package capability implements the unforgeable tokens that gate every
// memory operation the runtime issues, and the EnginePreset parameter
// bundles that mint them. See spec §3 ("Capability") and §4.3.
package capability

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
)

// Kind enumerates the class of memory operation a Capability authorizes.
type Kind uint8

const (
	KindAllocateLinearMemory Kind = iota
	KindGrowMemory
	KindRead
	KindWrite
)

func (k Kind) String() string {
	switch k {
	case KindAllocateLinearMemory:
		return "allocate-linear-memory"
	case KindGrowMemory:
		return "grow-memory"
	case KindRead:
		return "read"
	case KindWrite:
		return "write"
	default:
		return "unknown"
	}
}

// Tag is an opaque, per-engine value minted once at engine construction.
// A Capability's Tag must match the Provider's owning Tag for every
// operation; copying a Capability's fields into a fresh struct does not
// forge a new valid token because the Tag still traces back to the
// engine that mirrors it in the Provider (spec §5, "Capabilities are not
// transferable").
type Tag uint64

// NewTag mints a fresh random Tag. Called once per Engine construction,
// never per-operation, so it never appears on a hot path.
func NewTag() Tag {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing here means the host environment cannot
		// source entropy at all; there is no safe fallback for an
		// unforgeable token, so this is fatal to engine construction.
		panic(fmt.Sprintf("capability: failed to mint tag: %v", err))
	}
	return Tag(binary.LittleEndian.Uint64(b[:]))
}

// ErrForged is returned when an operation is attempted with a Capability
// whose Tag does not match the Provider's owning engine.
var ErrForged = errors.New("capability: tag does not match owning engine")

// ErrExhausted is returned when a quota-consuming operation is attempted
// against a Capability with insufficient remaining quota.
var ErrExhausted = errors.New("capability: quota exhausted")

// Capability is an unforgeable token authorizing a bounded class of
// memory operations up to a quota. It is consumed (decremented) on each
// authorized operation; zero quota fails the next request fail-stop.
type Capability struct {
	Kind       Kind
	Tag        Tag
	quotaBytes uint32
	quotaOps   uint32
}

// New constructs a Capability with the given quotas, stamped with tag.
func New(kind Kind, tag Tag, quotaBytes, quotaOps uint32) *Capability {
	return &Capability{Kind: kind, Tag: tag, quotaBytes: quotaBytes, quotaOps: quotaOps}
}

// QuotaBytes reports the remaining byte budget.
func (c *Capability) QuotaBytes() uint32 { return c.quotaBytes }

// QuotaOps reports the remaining operation budget.
func (c *Capability) QuotaOps() uint32 { return c.quotaOps }

// Authorize checks tag and deducts cost from both quotas atomically: if
// either quota is insufficient, neither is decremented and ErrExhausted
// is returned (spec §8: "when quota_before < cost, the op fails... and
// state is unchanged").
func (c *Capability) Authorize(tag Tag, costBytes uint32) error {
	if tag != c.Tag {
		return ErrForged
	}
	if c.quotaOps == 0 {
		return ErrExhausted
	}
	if costBytes > c.quotaBytes {
		return ErrExhausted
	}
	c.quotaBytes -= costBytes
	c.quotaOps--
	return nil
}

// Refund returns previously authorized quota to the capability. Used when
// an operation was provisionally authorized (tag + byte cost checked out)
// but failed for a reason unrelated to quota (e.g. a fixed-buffer bump
// allocator running out of physical room) — the spec invariant "quota
// changes only on ops that succeed" otherwise would not hold.
func (c *Capability) Refund(costBytes uint32) {
	c.quotaBytes += costBytes
	c.quotaOps++
}

// Check verifies tag and quota without consuming it. Used by callers that
// want to distinguish OutOfBudget decisions (e.g. memory.grow's -1 return)
// from taking the allocation.
func (c *Capability) Check(tag Tag, costBytes uint32) bool {
	return tag == c.Tag && c.quotaOps > 0 && costBytes <= c.quotaBytes
}
