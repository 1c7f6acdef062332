package depthvis

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// Phase tracks where an asynchronous depth capture currently is.
type Phase int

const (
	// PhaseIdle means no capture is in flight and a new one may start.
	PhaseIdle Phase = iota
	// PhaseRequested means the GPU copy into the pixel buffer has been
	// queued behind a fence.
	PhaseRequested
	// PhaseMapped means the capture finished and a resolved snapshot is
	// ready to be consumed.
	PhaseMapped
)

// Readback captures the depth attachment into a CPU-visible buffer
// without stalling the render loop. The copy runs through a pixel pack
// buffer and a fence; Poll flips the phase once the GPU is done.
type Readback struct {
	pbo   uint32
	fence uintptr
	phase Phase

	state  DepthState
	stride int
	buf    []byte
}

// NewReadback allocates the pack buffer for the given viewport size.
func NewReadback(width, height int) *Readback {
	r := &Readback{}
	gl.GenBuffers(1, &r.pbo)
	r.Resize(width, height)
	return r
}

// Resize reallocates the pack buffer. Any in-flight capture is dropped.
func (r *Readback) Resize(width, height int) {
	r.abandon()
	r.stride = Pad256(width * 4)
	size := r.stride * height
	r.buf = make([]byte, size)

	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, r.pbo)
	gl.BufferData(gl.PIXEL_PACK_BUFFER, size, nil, gl.STREAM_READ)
	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, 0)
}

// Phase returns the current capture phase.
func (r *Readback) Phase() Phase {
	return r.phase
}

// Request queues a depth capture for the current framebuffer contents.
// It does nothing unless the readback is idle.
func (r *Readback) Request(state DepthState) error {
	if r.phase != PhaseIdle {
		return nil
	}

	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, r.pbo)
	gl.PixelStorei(gl.PACK_ROW_LENGTH, int32(r.stride/4))
	gl.ReadPixels(0, 0, int32(state.Width), int32(state.Height), gl.DEPTH_COMPONENT, gl.FLOAT, nil)
	gl.PixelStorei(gl.PACK_ROW_LENGTH, 0)
	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, 0)

	r.fence = gl.FenceSync(gl.SYNC_GPU_COMMANDS_COMPLETE, 0)
	if r.fence == 0 {
		return fmt.Errorf("creating depth readback fence")
	}
	r.state = state
	r.phase = PhaseRequested
	return nil
}

// Poll checks the fence without blocking. When the capture has landed it
// copies the buffer out, flips the rows top-down and moves to
// PhaseMapped.
func (r *Readback) Poll() error {
	if r.phase != PhaseRequested {
		return nil
	}

	status := gl.ClientWaitSync(r.fence, 0, 0)
	if status == gl.TIMEOUT_EXPIRED {
		return nil
	}
	gl.DeleteSync(r.fence)
	r.fence = 0
	if status == gl.WAIT_FAILED {
		r.phase = PhaseIdle
		return fmt.Errorf("depth readback fence wait failed")
	}

	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, r.pbo)
	ptr := gl.MapBufferRange(gl.PIXEL_PACK_BUFFER, 0, len(r.buf), gl.MAP_READ_BIT)
	if ptr == nil {
		gl.BindBuffer(gl.PIXEL_PACK_BUFFER, 0)
		r.phase = PhaseIdle
		return fmt.Errorf("mapping depth readback buffer")
	}
	mapped := unsafe.Slice((*byte)(ptr), len(r.buf))
	flipRows(r.buf, mapped, r.stride, r.state.Height)
	gl.UnmapBuffer(gl.PIXEL_PACK_BUFFER)
	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, 0)

	r.phase = PhaseMapped
	return nil
}

// Take hands out the captured depth buffer and its fingerprint, resetting
// the readback to idle. It reports false when no capture is ready.
func (r *Readback) Take() ([]byte, DepthState, bool) {
	if r.phase != PhaseMapped {
		return nil, DepthState{}, false
	}
	r.phase = PhaseIdle
	return r.buf, r.state, true
}

// Destroy releases the GL objects.
func (r *Readback) Destroy() {
	r.abandon()
	if r.pbo != 0 {
		gl.DeleteBuffers(1, &r.pbo)
		r.pbo = 0
	}
}

func (r *Readback) abandon() {
	if r.fence != 0 {
		gl.DeleteSync(r.fence)
		r.fence = 0
	}
	r.phase = PhaseIdle
}

// flipRows copies src into dst reversing row order. GL reads pixels
// bottom-up while the resolver indexes top-down.
func flipRows(dst, src []byte, stride, height int) {
	for y := 0; y < height; y++ {
		srcRow := src[y*stride : (y+1)*stride]
		dstRow := dst[(height-1-y)*stride : (height-y)*stride]
		copy(dstRow, srcRow)
	}
}
