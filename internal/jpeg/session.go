package jpeg

/*
#cgo pkg-config: libjpeg
#include "shim.h"
*/
import "C"

import (
	"errors"
	"runtime/cgo"
	"unsafe"
)

var errShortInput = errors.New("data too short for JPEG")

// Codec structs live in C memory: libjpeg keeps pointers into them, which
// Go memory must not hold. Sessions are single use and not safe for
// concurrent use; callers defer close() before the first libjpeg call so a
// recovered panic still releases everything.

type decompressor struct {
	cinfo *C.struct_jpeg_decompress_struct
	errm  *errorManager
	src   *BufferHandle
}

func newDecompressor(h FatalHandler) (*decompressor, error) {
	errm, err := newErrorManager(h)
	if err != nil {
		return nil, err
	}
	cinfo := (*C.struct_jpeg_decompress_struct)(C.calloc(1, C.size_t(unsafe.Sizeof(C.struct_jpeg_decompress_struct{}))))
	if cinfo == nil {
		errm.close()
		return nil, ErrOutOfMemory
	}
	d := &decompressor{cinfo: cinfo, errm: errm}
	errm.attach(d.common())
	return d, nil
}

func (d *decompressor) common() C.j_common_ptr {
	return C.j_common_ptr(unsafe.Pointer(d.cinfo))
}

// open copies data into C memory and points libjpeg's memory source at it.
func (d *decompressor) open(data []byte) error {
	if len(data) < 2 {
		return errShortInput
	}
	src, err := AllocHandle()
	if err != nil {
		return err
	}
	d.src = src
	if err := src.CopyFrom(data); err != nil {
		return err
	}
	C.jpegshim_create_decompress(d.cinfo)
	C.jpeg_mem_src(d.cinfo, (*C.uchar)(src.Ptr()), C.ulong(src.Len()))
	return nil
}

// saveICCMarkers keeps APP2 segments so ICC profiles can be reassembled.
func (d *decompressor) saveICCMarkers() {
	C.jpeg_save_markers(d.cinfo, C.JPEG_APP0+2, 0xFFFF)
}

func (d *decompressor) readHeader() error {
	if res := C.jpeg_read_header(d.cinfo, C.TRUE); res != C.JPEG_HEADER_OK {
		return errors.New("jpeg_read_header: no image in input")
	}
	return nil
}

// app2Markers copies the saved APP2 payloads into Go memory.
func (d *decompressor) app2Markers() [][]byte {
	var out [][]byte
	for m := d.cinfo.marker_list; m != nil; m = m.next {
		if int(m.marker) != C.JPEG_APP0+2 || m.data_length == 0 {
			continue
		}
		out = append(out, C.GoBytes(unsafe.Pointer(m.data), C.int(m.data_length)))
	}
	return out
}

// readRows reads every output scanline through one C row buffer of rowBytes.
func (d *decompressor) readRows(rowBytes int, fn func(y int, row []byte)) {
	buf := C.malloc(C.size_t(rowBytes))
	defer C.free(buf)
	row := unsafe.Slice((*byte)(buf), rowBytes)
	rows := C.JSAMPARRAY(unsafe.Pointer(&buf))

	for d.cinfo.output_scanline < d.cinfo.output_height {
		y := int(d.cinfo.output_scanline)
		if C.jpeg_read_scanlines(d.cinfo, rows, 1) != 1 {
			continue
		}
		fn(y, row)
	}
}

func (d *decompressor) close() {
	C.jpeg_destroy_decompress(d.cinfo)
	C.free(unsafe.Pointer(d.cinfo))
	d.errm.close()
	if d.src != nil {
		d.src.Release(d.src.heap.Free)
	}
}

type compressor struct {
	cinfo   *C.struct_jpeg_compress_struct
	errm    *errorManager
	dst     *BufferHandle
	dstHeap cgo.Handle
}

func newCompressor(h FatalHandler) (*compressor, error) {
	errm, err := newErrorManager(h)
	if err != nil {
		return nil, err
	}
	cinfo := (*C.struct_jpeg_compress_struct)(C.calloc(1, C.size_t(unsafe.Sizeof(C.struct_jpeg_compress_struct{}))))
	if cinfo == nil {
		errm.close()
		return nil, ErrOutOfMemory
	}
	c := &compressor{cinfo: cinfo, errm: errm}
	errm.attach(c.common())
	return c, nil
}

func (c *compressor) common() C.j_common_ptr {
	return C.j_common_ptr(unsafe.Pointer(c.cinfo))
}

// open creates the codec and points its destination at a fresh output
// handle. The handle's record tracks the live buffer at every step, so close
// can free it whether or not the encode finished.
func (c *compressor) open(width, height, components int, colorSpace C.J_COLOR_SPACE) error {
	dst, err := AllocHandle()
	if err != nil {
		return err
	}
	c.dst = dst
	c.dstHeap = cgo.NewHandle(dst.heap)
	C.jpegshim_create_compress(c.cinfo)
	C.jpegshim_mem_dest(c.cinfo, dst.rec, C.uintptr_t(c.dstHeap))

	c.cinfo.image_width = C.JDIMENSION(width)
	c.cinfo.image_height = C.JDIMENSION(height)
	c.cinfo.input_components = C.int(components)
	c.cinfo.in_color_space = colorSpace
	C.jpeg_set_defaults(c.cinfo)
	return nil
}

// writeICC embeds profile as APP2 chunks. Call after jpeg_start_compress.
func (c *compressor) writeICC(profile []byte) error {
	if len(profile) == 0 {
		return nil
	}
	chunks, err := ChunkICC(profile)
	if err != nil {
		return err
	}
	for _, chunk := range chunks {
		C.jpeg_write_marker(c.cinfo, C.JPEG_APP0+2, (*C.JOCTET)(unsafe.Pointer(&chunk[0])), C.uint(len(chunk)))
	}
	return nil
}

// writeRows feeds image_height scanlines; fill writes row y into row.
func (c *compressor) writeRows(rowBytes int, fill func(y int, row []byte)) {
	buf := C.malloc(C.size_t(rowBytes))
	defer C.free(buf)
	row := unsafe.Slice((*byte)(buf), rowBytes)
	rows := C.JSAMPARRAY(unsafe.Pointer(&buf))

	for c.cinfo.next_scanline < c.cinfo.image_height {
		fill(int(c.cinfo.next_scanline), row)
		C.jpeg_write_scanlines(c.cinfo, rows, 1)
	}
}

// finish flushes the stream and returns a Go copy of the encoded bytes.
func (c *compressor) finish() []byte {
	C.jpeg_finish_compress(c.cinfo)
	return c.dst.Bytes()
}

func (c *compressor) close() {
	C.jpeg_destroy_compress(c.cinfo)
	C.free(unsafe.Pointer(c.cinfo))
	c.errm.close()
	if c.dst == nil {
		return
	}
	c.dst.Release(c.dst.heap.Free)
	c.dstHeap.Delete()
}
