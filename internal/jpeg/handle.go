package jpeg

/*
#cgo pkg-config: libjpeg
#include "shim.h"
*/
import "C"

import (
	"errors"
	"unsafe"
)

var (
	// ErrOutOfMemory is returned when the C heap cannot satisfy a request.
	ErrOutOfMemory = errors.New("jpeg: out of memory")
	// ErrHandleReleased is returned by operations on a released BufferHandle.
	ErrHandleReleased = errors.New("jpeg: buffer handle already released")
	// ErrHandlePopulated is returned when filling a handle that already points at a buffer.
	ErrHandlePopulated = errors.New("jpeg: buffer handle already populated")
)

// Heap is the allocator behind buffer handles. Calloc returns zeroed
// memory, or nil when the request cannot be satisfied.
type Heap interface {
	Calloc(count, size uintptr) unsafe.Pointer
	Free(p unsafe.Pointer)
}

type cHeap struct{}

func (cHeap) Calloc(count, size uintptr) unsafe.Pointer {
	return C.calloc(C.size_t(count), C.size_t(size))
}

func (cHeap) Free(p unsafe.Pointer) {
	C.free(p)
}

// CHeap is the libc heap. Memory handed to libjpeg must come from here.
var CHeap Heap = cHeap{}

const handleRecordSize = unsafe.Sizeof(C.mem_helper{})

// HandleAllocator issues BufferHandles. It keeps no record of what it has
// issued; every handle must be released by its owner.
type HandleAllocator struct {
	heap Heap
}

func NewHandleAllocator(heap Heap) *HandleAllocator {
	if heap == nil {
		heap = CHeap
	}
	return &HandleAllocator{heap: heap}
}

var defaultAllocator = NewHandleAllocator(CHeap)

// AllocHandle allocates a zeroed BufferHandle from the C heap.
func AllocHandle() (*BufferHandle, error) {
	return defaultAllocator.Allocate()
}

// Allocate returns a fresh handle with a nil buffer and zero length, or
// ErrOutOfMemory.
func (a *HandleAllocator) Allocate() (*BufferHandle, error) {
	p := a.heap.Calloc(1, handleRecordSize)
	if p == nil {
		return nil, ErrOutOfMemory
	}
	return &BufferHandle{rec: (*C.mem_helper)(p), heap: a.heap}, nil
}

// BufferHandle is a uniquely owned (pointer, length) record in C memory.
// Whoever populates it decides how the buffer is freed; see Release.
type BufferHandle struct {
	rec  *C.mem_helper
	heap Heap
}

// Addr is the address of the underlying record, 0 once released.
func (h *BufferHandle) Addr() uintptr {
	return uintptr(unsafe.Pointer(h.rec))
}

func (h *BufferHandle) Ptr() unsafe.Pointer {
	if h.rec == nil {
		return nil
	}
	return unsafe.Pointer(h.rec.buf)
}

func (h *BufferHandle) Len() int {
	if h.rec == nil {
		return 0
	}
	return int(h.rec.buf_size)
}

func (h *BufferHandle) Released() bool {
	return h.rec == nil
}

// Bytes copies the buffer into Go memory.
func (h *BufferHandle) Bytes() []byte {
	p, n := h.Ptr(), h.Len()
	if p == nil || n == 0 {
		return nil
	}
	out := make([]byte, n)
	copy(out, unsafe.Slice((*byte)(p), n))
	return out
}

// CopyFrom fills an empty handle with a C-heap copy of data. The copy is
// owned by the handle's heap: release it with Release(heap.Free).
func (h *BufferHandle) CopyFrom(data []byte) error {
	if h.rec == nil {
		return ErrHandleReleased
	}
	if h.rec.buf != nil {
		return ErrHandlePopulated
	}
	if len(data) == 0 {
		return nil
	}
	p := h.heap.Calloc(uintptr(len(data)), 1)
	if p == nil {
		return ErrOutOfMemory
	}
	copy(unsafe.Slice((*byte)(p), len(data)), data)
	h.rec.buf = (*C.uchar)(p)
	h.rec.buf_size = C.ulong(len(data))
	return nil
}

// Release frees the record. If freeBuffer is non-nil and the handle points
// at a buffer, freeBuffer is called with it first. Release must be called
// exactly once; later calls return ErrHandleReleased.
func (h *BufferHandle) Release(freeBuffer func(unsafe.Pointer)) error {
	if h.rec == nil {
		return ErrHandleReleased
	}
	if freeBuffer != nil && h.rec.buf != nil {
		freeBuffer(unsafe.Pointer(h.rec.buf))
	}
	h.heap.Free(unsafe.Pointer(h.rec))
	h.rec = nil
	return nil
}
