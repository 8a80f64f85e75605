package safememory

import (
	"sync"

	"github.com/pulseengine/wrtgo/internal/capability"
)

// HeapProvider is backed by a growable []byte, bounded by its capability's
// quota. Used by QM/ASIL-A and (optionally) ASIL-B presets (spec §4.3).
type HeapProvider struct {
	mu     sync.Mutex
	buf    []byte
	cap    *capability.Capability
	tag    capability.Tag
	level  VerificationLevel
	sums   map[uint32]uint32
	sample *sampler
}

var _ Provider = (*HeapProvider)(nil)

// NewHeapProvider constructs a HeapProvider with an empty backing buffer;
// bytes are appended to it only as Reserve/Grow authorize them.
func NewHeapProvider(cap *capability.Capability, tag capability.Tag, level VerificationLevel) *HeapProvider {
	return &HeapProvider{cap: cap, tag: tag, level: level, sums: make(map[uint32]uint32), sample: newSampler(8)}
}

func (p *HeapProvider) Level() VerificationLevel { return p.level }

func (p *HeapProvider) QuotaRemaining() uint32 { return p.cap.QuotaBytes() }

func (p *HeapProvider) Reserve(n uint32) (Region, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.cap.Authorize(p.tag, n); err != nil {
		return Region{}, wrapQuota(err)
	}
	offset := uint32(len(p.buf))
	p.buf = append(p.buf, make([]byte, n)...)
	r := Region{offset: offset, length: n}
	p.recordChecksum(r)
	return r, nil
}

func (p *HeapProvider) Grow(r Region, delta uint32) (Region, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.cap.Authorize(p.tag, delta); err != nil {
		return Region{}, wrapQuota(err)
	}
	if r.offset+r.length != uint32(len(p.buf)) {
		return Region{}, boundsError("grow", r.offset, delta, uint32(len(p.buf)))
	}
	p.buf = append(p.buf, make([]byte, delta)...)
	grown := Region{offset: r.offset, length: r.length + delta, generation: r.generation}
	p.recordChecksum(grown)
	return grown, nil
}

func (p *HeapProvider) Release(r Region) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sums, r.offset)
}

func (p *HeapProvider) bounds(r Region, offset, length uint32) ([]byte, error) {
	if uint64(offset)+uint64(length) > uint64(r.length) {
		return nil, boundsError("access", offset, length, r.length)
	}
	start := r.offset + offset
	return p.buf[start : start+length], nil
}

func (p *HeapProvider) Slice(r Region, offset, length uint32) (SafeSlice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, err := p.bounds(r, offset, length)
	if err != nil {
		return SafeSlice{}, err
	}
	return SafeSlice{bytes: b}, nil
}

func (p *HeapProvider) LoadU8(r Region, offset uint32) (uint8, error) {
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

func (p *HeapProvider) LoadU16(r Region, offset uint32, _ Align) (uint16, error) {
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

func (p *HeapProvider) LoadU32(r Region, offset uint32, _ Align) (uint32, error) {
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

func (p *HeapProvider) LoadU64(r Region, offset uint32, _ Align) (uint64, error) {
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

func (p *HeapProvider) StoreU8(r Region, offset uint32, v uint8) error {
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

func (p *HeapProvider) StoreU16(r Region, offset uint32, _ Align, v uint16) error {
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

func (p *HeapProvider) StoreU32(r Region, offset uint32, _ Align, v uint32) error {
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

func (p *HeapProvider) StoreU64(r Region, offset uint32, _ Align, v uint64) error {
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

func (p *HeapProvider) Verify(r Region) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.verifyLocked(r)
}

func (p *HeapProvider) verifyLocked(r Region) error {
	if p.level == VerificationOff {
		return nil
	}
	want, ok := p.sums[r.offset]
	if !ok {
		return nil
	}
	got := checksum(p.buf[r.offset : r.offset+r.length])
	if got != want {
		return ErrIntegrityMismatch
	}
	return nil
}

// maybeVerifyLocked mirrors FixedBufferProvider's: it recomputes r's
// checksum when VerificationLevel calls for it on this access and returns
// ErrIntegrityMismatch rather than swallowing a genuine mismatch.
func (p *HeapProvider) maybeVerifyLocked(r Region) error {
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

func (p *HeapProvider) recordChecksum(r Region) {
	if p.level == VerificationOff {
		return
	}
	p.sums[r.offset] = checksum(p.buf[r.offset : r.offset+r.length])
}
