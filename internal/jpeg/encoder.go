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
	"unsafe"
)

// DefaultQuality is the default quality encoding parameter.
const DefaultQuality = 75

// EncoderOptions are the encoding parameters. Quality ranges from 1 to 100
// inclusive, higher is better; 0 means DefaultQuality.
type EncoderOptions struct {
	Quality        int
	Progressive    bool
	OptimizeCoding bool
	DCTMethod      DCTMethod
	ICC            []byte // embedded as APP2 markers when non-empty
	FatalHandler   FatalHandler
}

// Encode writes m to w as a baseline 4:2:0 JPEG (progressive if requested).
// *image.Gray is written as a single-channel grayscale JPEG. A nil
// *EncoderOptions uses the defaults.
func Encode(w io.Writer, m image.Image, opts *EncoderOptions) error {
	data, err := EncodeData(m, opts)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// EncodeData is Encode returning the encoded bytes.
func EncodeData(m image.Image, opts *EncoderOptions) (out []byte, err error) {
	defer recoverCodecError(&err)
	if opts == nil {
		opts = &EncoderOptions{}
	}

	b := m.Bounds()
	dx, dy := b.Dx(), b.Dy()
	if dx <= 0 || dy <= 0 {
		return nil, fmt.Errorf("image with invalid size, dx: %d, dy: %d (both must be > 0)", dx, dy)
	}
	quality := opts.Quality
	if quality == 0 {
		quality = DefaultQuality
	}
	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("quality %d out of range 1-100", quality)
	}

	c, err := newCompressor(opts.FatalHandler)
	if err != nil {
		return nil, err
	}
	defer c.close()

	_, isGray := m.(*image.Gray)
	components, colorSpace := 3, C.J_COLOR_SPACE(C.JCS_RGB)
	if isGray {
		components, colorSpace = 1, C.JCS_GRAYSCALE
	}
	if err := c.open(dx, dy, components, colorSpace); err != nil {
		return nil, err
	}

	C.jpeg_set_quality(c.cinfo, C.int(quality), C.TRUE)
	c.cinfo.dct_method = C.J_DCT_METHOD(opts.DCTMethod)
	if opts.OptimizeCoding {
		c.cinfo.optimize_coding = C.TRUE
	}
	if opts.Progressive {
		C.jpeg_simple_progression(c.cinfo)
	}
	C.jpeg_start_compress(c.cinfo, C.TRUE)
	if err := c.writeICC(opts.ICC); err != nil {
		return nil, err
	}

	switch src := m.(type) {
	case *image.Gray:
		c.writeRows(dx, func(y int, row []byte) {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(row, src.Pix[off:off+dx])
		})
	case *image.RGBA:
		c.writeRows(dx*3, func(y int, row []byte) {
			p := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < dx; x++ {
				row[x*3] = p[x*4]
				row[x*3+1] = p[x*4+1]
				row[x*3+2] = p[x*4+2]
			}
		})
	default:
		c.writeRows(dx*3, func(y int, row []byte) {
			for x := 0; x < dx; x++ {
				r, g, bl, _ := m.At(b.Min.X+x, b.Min.Y+y).RGBA()
				row[x*3] = byte(r >> 8)
				row[x*3+1] = byte(g >> 8)
				row[x*3+2] = byte(bl >> 8)
			}
		})
	}

	return c.finish(), nil
}

// CMYKOptions controls CMYK JPEG encoding.
type CMYKOptions struct {
	Quality      int // 1-100, default 85
	CMYReduction int // quality reduction for CMY vs K, default 15
	FatalHandler FatalHandler
}

// EncodeCMYK encodes CMYK pixel data to JPEG format with channel-aware quantization.
// pixels must be width*height*4 bytes (CMYK interleaved).
// iccProfile is the ICC profile to embed (can be nil).
func EncodeCMYK(pixels []byte, width, height int, iccProfile []byte, opts CMYKOptions) (out []byte, err error) {
	defer recoverCodecError(&err)

	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("image with invalid size, width: %d, height: %d", width, height)
	}
	expectedSize := width * height * 4
	if len(pixels) != expectedSize {
		return nil, fmt.Errorf("expected %d CMYK bytes, got %d", expectedSize, len(pixels))
	}

	if opts.Quality == 0 {
		opts.Quality = 85
	}
	if opts.CMYReduction == 0 {
		opts.CMYReduction = 15
	}
	cmyTable, kTable := GenerateQuantTables(opts.Quality, opts.CMYReduction)

	c, err := newCompressor(opts.FatalHandler)
	if err != nil {
		return nil, err
	}
	defer c.close()

	if err := c.open(width, height, 4, C.JCS_CMYK); err != nil {
		return nil, err
	}
	c.cinfo.optimize_coding = C.TRUE

	// No subsampling for CMYK; CMY share table 0, K uses table 1.
	comps := unsafe.Slice(c.cinfo.comp_info, int(c.cinfo.num_components))
	for i := range comps {
		comps[i].h_samp_factor = 1
		comps[i].v_samp_factor = 1
		comps[i].quant_tbl_no = 0
	}
	comps[len(comps)-1].quant_tbl_no = 1
	c.setQuantTable(0, cmyTable)
	c.setQuantTable(1, kTable)

	C.jpeg_start_compress(c.cinfo, C.TRUE)
	if err := c.writeICC(iccProfile); err != nil {
		return nil, err
	}

	stride := width * 4
	c.writeRows(stride, func(y int, row []byte) {
		copy(row, pixels[y*stride:(y+1)*stride])
	})
	return c.finish(), nil
}

// setQuantTable installs pre-scaled quantization values in slot.
func (c *compressor) setQuantTable(slot int, table [64]uint16) {
	tbl := c.cinfo.quant_tbl_ptrs[slot]
	if tbl == nil {
		tbl = C.jpeg_alloc_quant_table(c.common())
		c.cinfo.quant_tbl_ptrs[slot] = tbl
	}
	for i, v := range table {
		tbl.quantval[i] = C.UINT16(v)
	}
	tbl.sent_table = C.FALSE
}
