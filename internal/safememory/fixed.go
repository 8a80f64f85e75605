package safememory

import (
	"sync"

	"github.com/pulseengine/wrtgo/internal/capability"
)

// FixedBufferProvider is backed by a fixed-capacity inline buffer chosen
// at construction; it never grows beyond that buffer and never touches
// the Go heap after construction (the buffer itself is the one
// allocation, sized once). This is the provider used under ASIL-C/D
// presets, which forbid a heap entirely (spec §4.3).
type FixedBufferProvider struct {
	mu    sync.Mutex
	buf   []byte // len == cap, fixed at construction
	bump  uint32 // next free offset
	cap   *capability.Capability
	tag   capability.Tag
	level VerificationLevel
	sums  map[uint32]uint32 // region offset -> last-verified checksum
	sample *sampler
}

var _ Provider = (*FixedBufferProvider)(nil)

// NewFixedBufferProvider allocates the inline buffer of size bytes once,
// up front. cap authorizes all subsequent Reserve/Grow calls.
func NewFixedBufferProvider(size uint32, cap *capability.Capability, tag capability.Tag, level VerificationLevel) *FixedBufferProvider {
	return &FixedBufferProvider{
		buf:    make([]byte, size),
		cap:    cap,
		tag:    tag,
		level:  level,
		sums:   make(map[uint32]uint32),
		sample: newSampler(8),
	}
}

func (p *FixedBufferProvider) Level() VerificationLevel { return p.level }

func (p *FixedBufferProvider) QuotaRemaining() uint32 { return p.cap.QuotaBytes() }

func (p *FixedBufferProvider) Reserve(n uint32) (Region, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.cap.Authorize(p.tag, n); err != nil {
		return Region{}, wrapQuota(err)
	}
	if uint64(p.bump)+uint64(n) > uint64(len(p.buf)) {
		// Bump allocator exhausted the fixed buffer itself; refund the
		// capability quota we just took since no bytes were actually
		// committed.
		p.cap.Refund(n)
		return Region{}, ErrOutOfBudget
	}
	r := Region{offset: p.bump, length: n}
	p.bump += n
	p.recordChecksum(r)
	return r, nil
}

func (p *FixedBufferProvider) Grow(r Region, delta uint32) (Region, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.cap.Authorize(p.tag, delta); err != nil {
		return Region{}, wrapQuota(err)
	}
	// A fixed buffer can only grow a region if it is the most recently
	// reserved one (so growth stays contiguous in the bump allocator).
	if r.offset+r.length != p.bump {
		return Region{}, boundsError("grow", r.offset, delta, uint32(len(p.buf)))
	}
	if uint64(p.bump)+uint64(delta) > uint64(len(p.buf)) {
		p.cap.Refund(delta)
		return Region{}, ErrOutOfBudget
	}
	p.bump += delta
	grown := Region{offset: r.offset, length: r.length + delta, generation: r.generation}
	p.recordChecksum(grown)
	return grown, nil
}

func (p *FixedBufferProvider) Release(r Region) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sums, r.offset)
}

func (p *FixedBufferProvider) bounds(r Region, offset, length uint32) ([]byte, error) {
	if uint64(offset)+uint64(length) > uint64(r.length) {
		return nil, boundsError("access", offset, length, r.length)
	}
	start := r.offset + offset
	return p.buf[start : start+length], nil
}

func (p *FixedBufferProvider) Slice(r Region, offset, length uint32) (SafeSlice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, err := p.bounds(r, offset, length)
	if err != nil {
		return SafeSlice{}, err
	}
	return SafeSlice{bytes: b}, nil
}

func (p *FixedBufferProvider) LoadU8(r Region, offset uint32) (uint8, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, err := p.bounds(r, offset, 1)
	if err != nil {
		return 0, err
	}
	if err := p.maybeVerifyLocked(r); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (p *FixedBufferProvider) LoadU16(r Region, offset uint32, _ Align) (uint16, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, err := p.bounds(r, offset, 2)
	if err != nil {
		return 0, err
	}
	if err := p.maybeVerifyLocked(r); err != nil {
		return 0, err
	}
	return uint16(b[0]) | uint16(b[1])<<8, nil
}

func (p *FixedBufferProvider) LoadU32(r Region, offset uint32, _ Align) (uint32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, err := p.bounds(r, offset, 4)
	if err != nil {
		return 0, err
	}
	if err := p.maybeVerifyLocked(r); err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

func (p *FixedBufferProvider) LoadU64(r Region, offset uint32, _ Align) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, err := p.bounds(r, offset, 8)
	if err != nil {
		return 0, err
	}
	if err := p.maybeVerifyLocked(r); err != nil {
		return 0, err
	}
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v, nil
}

func (p *FixedBufferProvider) StoreU8(r Region, offset uint32, v uint8) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, err := p.bounds(r, offset, 1)
	if err != nil {
		return err
	}
	b[0] = v
	p.recordChecksum(r)
	return nil
}

func (p *FixedBufferProvider) StoreU16(r Region, offset uint32, _ Align, v uint16) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, err := p.bounds(r, offset, 2)
	if err != nil {
		return err
	}
	b[0], b[1] = byte(v), byte(v>>8)
	p.recordChecksum(r)
	return nil
}

func (p *FixedBufferProvider) StoreU32(r Region, offset uint32, _ Align, v uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, err := p.bounds(r, offset, 4)
	if err != nil {
		return err
	}
	b[0], b[1], b[2], b[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
	p.recordChecksum(r)
	return nil
}

func (p *FixedBufferProvider) StoreU64(r Region, offset uint32, _ Align, v uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, err := p.bounds(r, offset, 8)
	if err != nil {
		return err
	}
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	p.recordChecksum(r)
	return nil
}

func (p *FixedBufferProvider) Verify(r Region) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.verifyLocked(r)
}

func (p *FixedBufferProvider) verifyLocked(r Region) error {
	if p.level == VerificationOff {
		return nil
	}
	want, ok := p.sums[r.offset]
	if !ok {
		return nil // region released or never checksummed yet
	}
	got := checksum(p.buf[r.offset : r.offset+r.length])
	if got != want {
		return ErrIntegrityMismatch
	}
	return nil
}

// maybeVerifyLocked recomputes and compares r's checksum when the active
// VerificationLevel calls for it on this access, returning ErrIntegrityMismatch
// if the region has been corrupted since it was last written. Every Load*
// path propagates this error rather than discarding it, so a mismatch is
// visible to the engine instead of handing back bytes nobody checked.
func (p *FixedBufferProvider) maybeVerifyLocked(r Region) error {
	switch p.level {
	case VerificationFull:
		return p.verifyLocked(r)
	case VerificationSampling:
		if p.sample.shouldVerify() {
			return p.verifyLocked(r)
		}
	}
	return nil
}

func (p *FixedBufferProvider) recordChecksum(r Region) {
	if p.level == VerificationOff {
		return
	}
	p.sums[r.offset] = checksum(p.buf[r.offset : r.offset+r.length])
}

func wrapQuota(err error) error {
	if err != nil {
		return ErrOutOfBudget
	}
	return nil
}
