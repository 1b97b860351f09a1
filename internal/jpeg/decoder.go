package jpeg

/*
#cgo pkg-config: libjpeg
#include "shim.h"
*/
import "C"

import (
	"fmt"
	"image"
	"io"
)

// DCTMethod selects libjpeg's DCT implementation.
type DCTMethod int

const (
	DCTISlow DCTMethod = iota // accurate integer (libjpeg default)
	DCTIFast                  // fast, less accurate integer
	DCTFloat                  // floating point
)

// DecoderOptions controls decoding. A nil *DecoderOptions uses the defaults.
type DecoderOptions struct {
	DCTMethod              DCTMethod
	DisableFancyUpsampling bool
	FatalHandler           FatalHandler
}

// DecodedRGB holds the result of decoding an RGB JPEG.
type DecodedRGB struct {
	Width  int
	Height int
	Pixels []byte // RGB interleaved, len = Width * Height * 3
	ICC    []byte // extracted ICC profile, nil if absent
}

// Decode reads a JPEG image from r and returns it as an image.Image.
func Decode(r io.Reader, opts *DecoderOptions) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return DecodeData(data, opts)
}

// DecodeData decodes a JPEG held in memory. Grayscale images come back as
// *image.Gray, everything else as *image.RGBA. Adobe-style inverted CMYK
// is converted to RGB.
func DecodeData(data []byte, opts *DecoderOptions) (img image.Image, err error) {
	defer recoverCodecError(&err)
	if opts == nil {
		opts = &DecoderOptions{}
	}

	d, err := newDecompressor(opts.FatalHandler)
	if err != nil {
		return nil, err
	}
	defer d.close()

	if err := d.open(data); err != nil {
		return nil, err
	}
	if err := d.readHeader(); err != nil {
		return nil, err
	}
	d.cinfo.dct_method = C.J_DCT_METHOD(opts.DCTMethod)
	if opts.DisableFancyUpsampling {
		d.cinfo.do_fancy_upsampling = C.FALSE
	}

	switch n := int(d.cinfo.num_components); n {
	case 1:
		d.cinfo.out_color_space = C.JCS_GRAYSCALE
		C.jpeg_start_decompress(d.cinfo)
		img = d.readGray()
	case 3:
		rgba := C.jpegshim_request_rgba(d.cinfo) != 0
		C.jpeg_start_decompress(d.cinfo)
		img = d.readRGBA(rgba)
	case 4:
		d.cinfo.out_color_space = C.JCS_CMYK
		C.jpeg_start_decompress(d.cinfo)
		img = d.readInvertedCMYK()
	default:
		return nil, fmt.Errorf("invalid number of components (%d)", n)
	}
	C.jpeg_finish_decompress(d.cinfo)
	return img, nil
}

func (d *decompressor) outputRect() image.Rectangle {
	return image.Rect(0, 0, int(d.cinfo.output_width), int(d.cinfo.output_height))
}

func (d *decompressor) readGray() *image.Gray {
	img := image.NewGray(d.outputRect())
	dx := img.Rect.Dx()
	d.readRows(dx, func(y int, row []byte) {
		off := y * img.Stride
		copy(img.Pix[off:off+dx], row)
	})
	return img
}

// readRGBA copies RGBA scanlines straight through when libjpeg emits them,
// otherwise expands RGB with an opaque alpha.
func (d *decompressor) readRGBA(direct bool) *image.RGBA {
	img := image.NewRGBA(d.outputRect())
	dx := img.Rect.Dx()
	if direct {
		d.readRows(dx*4, func(y int, row []byte) {
			off := y * img.Stride
			copy(img.Pix[off:off+dx*4], row)
		})
		return img
	}
	d.readRows(dx*3, func(y int, row []byte) {
		dst := img.Pix[y*img.Stride:]
		for x := 0; x < dx; x++ {
			dst[x*4] = row[x*3]
			dst[x*4+1] = row[x*3+1]
			dst[x*4+2] = row[x*3+2]
			dst[x*4+3] = 0xff
		}
	})
	return img
}

// readInvertedCMYK converts Adobe's inverted CMYK: each channel already
// holds 255-C, so R = C*K/255 and so on.
func (d *decompressor) readInvertedCMYK() *image.RGBA {
	img := image.NewRGBA(d.outputRect())
	dx := img.Rect.Dx()
	d.readRows(dx*4, func(y int, row []byte) {
		dst := img.Pix[y*img.Stride:]
		for x := 0; x < dx; x++ {
			c := uint32(row[x*4])
			m := uint32(row[x*4+1])
			ye := uint32(row[x*4+2])
			k := uint32(row[x*4+3])
			dst[x*4] = uint8(c * k / 255)
			dst[x*4+1] = uint8(m * k / 255)
			dst[x*4+2] = uint8(ye * k / 255)
			dst[x*4+3] = 0xff
		}
	})
	return img
}

// DecodeRGB decodes a JPEG file from memory, outputting RGB pixels.
func DecodeRGB(data []byte) (res *DecodedRGB, err error) {
	defer recoverCodecError(&err)

	d, err := newDecompressor(nil)
	if err != nil {
		return nil, err
	}
	defer d.close()

	if err := d.open(data); err != nil {
		return nil, err
	}
	d.saveICCMarkers()
	if err := d.readHeader(); err != nil {
		return nil, err
	}

	// Force RGB output
	d.cinfo.out_color_space = C.JCS_RGB
	C.jpeg_start_decompress(d.cinfo)

	width := int(d.cinfo.output_width)
	height := int(d.cinfo.output_height)
	stride := width * int(d.cinfo.output_components)
	pixels := make([]byte, stride*height)
	d.readRows(stride, func(y int, row []byte) {
		copy(pixels[y*stride:], row)
	})

	icc, err := ExtractICC(d.app2Markers())
	if err != nil {
		return nil, fmt.Errorf("extracting ICC: %w", err)
	}
	C.jpeg_finish_decompress(d.cinfo)

	return &DecodedRGB{
		Width:  width,
		Height: height,
		Pixels: pixels,
		ICC:    icc,
	}, nil
}
