package jpeg

/*
#cgo pkg-config: libjpeg
#include "shim.h"
*/
import "C"

import (
	"runtime/cgo"
	"unsafe"
)

// The compressor's destination manager grows its buffer through these, so
// every byte libjpeg writes lives in memory owned by the output handle's Heap.

//export jpegshimHeapCalloc
func jpegshimHeapCalloc(heap C.uintptr_t, size C.size_t) unsafe.Pointer {
	return cgo.Handle(heap).Value().(Heap).Calloc(1, uintptr(size))
}

//export jpegshimHeapFree
func jpegshimHeapFree(heap C.uintptr_t, p unsafe.Pointer) {
	cgo.Handle(heap).Value().(Heap).Free(p)
}
