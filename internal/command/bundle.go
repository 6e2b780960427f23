package command

import (
	"fmt"

	"github.com/vkd3d-go/vkd3d/core"
	"github.com/vkd3d-go/vkd3d/internal/pipeline"
)

// bundleChunkSize is the 64 KiB allocation unit spec.md §4.7 specifies
// for a bundle's recording arena.
const bundleChunkSize = 64 * 1024

// bundleRecord is one entry of the ordered record list a bundle replays:
// a closure capturing the recorded call; replay order is kept by the
// Bundle's records slice rather than by a next pointer. Go has
// no portable "inline arg block prefixed by a proc pointer" the way a
// C allocator would lay it out, so the 16-byte-aligned inline layout
// spec.md §4.7 describes is represented here as a closure value stored
// in a chunk-allocated slice — the allocation discipline (64 KiB
// chunks, never freed until the bundle resets) is what's preserved, not
// the exact byte layout.
type bundleRecord struct {
	proc func(l *List)
}

// restrictedOp names the D3D12 bundle-restricted commands spec.md §4.7
// lists; recording one of these onto a Recorder records nothing and only
// logs a warning, matching D3D12 bundle restrictions (the bundle captures
// SetDescriptorHeaps as a no-op for the same reason).
type restrictedOp int

const (
	opResourceBarrier restrictedOp = iota
	opOMSetRenderTargets
	opSetViewportsScissors
	opExecuteBundle
	opQuery
	opPredication
	opTileOps
)

// Bundle is the pre-recorded, reusable mini command list from spec.md
// §4.7: a chunk allocator handing out fixed 64 KiB blocks, and a
// recorded linked list of commands to replay against a primary list.
type Bundle struct {
	chunks   [][]bundleRecord
	chunkLen int
	records  []*bundleRecord
}

// NewBundle creates an empty bundle with one pre-allocated chunk.
func NewBundle() *Bundle {
	b := &Bundle{}
	b.allocChunk()
	return b
}

func (b *Bundle) allocChunk() {
	b.chunks = append(b.chunks, make([]bundleRecord, 0, bundleChunkSize/16))
	b.chunkLen = 0
}

func (b *Bundle) append(proc func(l *List)) {
	chunk := &b.chunks[len(b.chunks)-1]
	if len(*chunk) == cap(*chunk) {
		b.allocChunk()
		chunk = &b.chunks[len(b.chunks)-1]
	}
	*chunk = append(*chunk, bundleRecord{proc: proc})
	rec := &(*chunk)[len(*chunk)-1]
	b.records = append(b.records, rec)
}

// Reset discards every recorded command, reusing the first chunk's
// backing array — this is the bundle-allocator "reclaim" spec.md §4.7
// implies a bundle's owning allocator performs on Reset.
func (b *Bundle) Reset() {
	b.chunks = b.chunks[:1]
	b.chunks[0] = b.chunks[0][:0]
	b.chunkLen = 0
	b.records = nil
}

// Recorder wraps a Bundle, dropping restricted commands per spec.md
// §4.7's bundle-restriction table instead of recording them.
type Recorder struct {
	bundle *Bundle
}

// NewRecorder begins recording into bundle.
func NewRecorder(bundle *Bundle) *Recorder {
	bundle.Reset()
	return &Recorder{bundle: bundle}
}

func (r *Recorder) drop(op restrictedOp, name string) {
	core.LogWarn("bundle dropped restricted command %s", name)
	_ = op
}

// DrawInstanced records a DrawInstanced call for later replay.
func (r *Recorder) DrawInstanced(vertexCount, instanceCount, startVertex, startInstance uint32) {
	r.bundle.append(func(l *List) {
		l.DrawInstanced(vertexCount, instanceCount, startVertex, startInstance)
	})
}

// DrawIndexedInstanced records a DrawIndexedInstanced call.
func (r *Recorder) DrawIndexedInstanced(indexCount, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32) {
	r.bundle.append(func(l *List) {
		l.DrawIndexedInstanced(indexCount, instanceCount, startIndex, baseVertex, startInstance)
	})
}

// Dispatch records a Dispatch call.
func (r *Recorder) Dispatch(x, y, z uint32) {
	r.bundle.append(func(l *List) {
		l.Dispatch(x, y, z)
	})
}

// SetPipelineState records a SetPipelineState call.
func (r *Recorder) SetPipelineState(p *pipeline.State) {
	r.bundle.append(func(l *List) {
		l.SetPipelineState(p)
	})
}

// ResourceBarrier is restricted inside a bundle; D3D12 forbids it since
// the primary list owns barrier state. Dropped, not recorded.
func (r *Recorder) ResourceBarrier() { r.drop(opResourceBarrier, "ResourceBarrier") }

// OMSetRenderTargets is restricted inside a bundle.
func (r *Recorder) OMSetRenderTargets() { r.drop(opOMSetRenderTargets, "OMSetRenderTargets") }

// RSSetViewportsScissors is restricted inside a bundle.
func (r *Recorder) RSSetViewportsScissors() { r.drop(opSetViewportsScissors, "RSSetViewports/Scissors") }

// ExecuteBundle is restricted inside a bundle (no nested bundles).
func (r *Recorder) ExecuteBundle() { r.drop(opExecuteBundle, "ExecuteBundle") }

// SetDescriptorHeaps is captured as a no-op: the primary list's
// descriptor heaps are authoritative, per spec.md §4.7.
func (r *Recorder) SetDescriptorHeaps() {}

// ExecuteBundle implements spec.md §4.6's contract: "iterate the
// bundle's linked list and call each record's proc(list, args)". Replay
// is idempotent (spec.md §8): calling it twice just runs every proc
// twice against list, with no hidden shared mutable state in the
// records themselves.
func (l *List) ExecuteBundle(b *Bundle) error {
	if l.state != StateRecording {
		return fmt.Errorf("ExecuteBundle on a list that is not Recording: %w", core.ErrFail)
	}
	for _, rec := range b.records {
		rec.proc(l)
	}
	return nil
}
