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

// Compilation fails if MsgLengthMax and libjpeg's JMSG_LENGTH_MAX diverge.
var (
	_ [C.JMSG_LENGTH_MAX - MsgLengthMax]struct{}
	_ [MsgLengthMax - C.JMSG_LENGTH_MAX]struct{}
)

// codecState exposes a libjpeg common struct as an ErrorFormatter.
type codecState struct {
	cinfo C.j_common_ptr
}

func (s codecState) FormatMessage(buf *MessageBuffer) {
	C.jpegshim_format_message(s.cinfo, (*C.char)(unsafe.Pointer(&buf[0])))
}

func handlerFor(cinfo C.j_common_ptr) FatalHandler {
	if v := uintptr(C.jpegshim_get_handle(cinfo)); v != 0 {
		h, _ := cgo.Handle(v).Value().(FatalHandler)
		return h
	}
	return nil
}

//export jpegshimFatal
func jpegshimFatal(cinfo C.j_common_ptr) {
	raiseFatal(handlerFor(cinfo), codecState{cinfo: cinfo})
}

//export jpegshimWarning
func jpegshimWarning(cinfo C.j_common_ptr) {
	emitWarning(handlerFor(cinfo), codecState{cinfo: cinfo})
}

// errorManager owns a C jpeg_error_mgr wired to the bridge and the handle
// that lets the bridge find the session's FatalHandler.
type errorManager struct {
	mgr    *C.struct_jpeg_error_mgr
	handle cgo.Handle
}

func newErrorManager(h FatalHandler) (*errorManager, error) {
	if h == nil {
		h = PanicBridge{}
	}
	mgr := (*C.struct_jpeg_error_mgr)(C.calloc(1, C.size_t(unsafe.Sizeof(C.struct_jpeg_error_mgr{}))))
	if mgr == nil {
		return nil, ErrOutOfMemory
	}
	C.jpeg_std_error(mgr)
	mgr.error_exit = (*[0]byte)(C.jpegshim_error_exit)
	mgr.output_message = (*[0]byte)(C.jpegshim_output_message)
	return &errorManager{mgr: mgr, handle: cgo.NewHandle(h)}, nil
}

// attach must run before jpeg_create_*; both fields survive its zeroing.
func (m *errorManager) attach(cinfo C.j_common_ptr) {
	cinfo.err = m.mgr
	C.jpegshim_set_handle(cinfo, C.uintptr_t(m.handle))
}

func (m *errorManager) close() {
	if m.mgr != nil {
		C.free(unsafe.Pointer(m.mgr))
		m.mgr = nil
	}
	if m.handle != 0 {
		m.handle.Delete()
		m.handle = 0
	}
}

// LibjpegVersion returns the JPEG library version.
func LibjpegVersion() int {
	return int(C.JPEG_LIB_VERSION)
}
