package jpeg

/*
#cgo pkg-config: libjpeg
#include "shim.h"
*/
import "C"

import (
	"fmt"
)

var colorSpaceNames = buildColorSpaceNames()

// buildColorSpaceNames keys names by the linked library's J_COLOR_SPACE
// values. Extended spaces are only added when the library defines them.
func buildColorSpaceNames() map[int]string {
	names := map[int]string{
		int(C.JCS_UNKNOWN):   "Unknown",
		int(C.JCS_GRAYSCALE): "Grayscale",
		int(C.JCS_RGB):       "RGB",
		int(C.JCS_YCbCr):     "YCbCr",
		int(C.JCS_CMYK):      "CMYK",
		int(C.JCS_YCCK):      "YCCK",
	}
	extended := [...]struct {
		cs   int
		name string
	}{
		{C.JPEGSHIM_EXT_RGB, "ExtRGB"},
		{C.JPEGSHIM_EXT_RGBX, "ExtRGBX"},
		{C.JPEGSHIM_EXT_BGR, "ExtBGR"},
		{C.JPEGSHIM_EXT_BGRX, "ExtBGRX"},
		{C.JPEGSHIM_EXT_XBGR, "ExtXBGR"},
		{C.JPEGSHIM_EXT_XRGB, "ExtXRGB"},
		{C.JPEGSHIM_EXT_RGBA, "ExtRGBA"},
		{C.JPEGSHIM_EXT_BGRA, "ExtBGRA"},
		{C.JPEGSHIM_EXT_ABGR, "ExtABGR"},
		{C.JPEGSHIM_EXT_ARGB, "ExtARGB"},
	}
	for _, e := range extended {
		if e.cs >= 0 {
			names[e.cs] = e.name
		}
	}
	return names
}

// extRGBAColorSpace is JCS_EXT_RGBA, or -1 without libjpeg-turbo's alpha
// extensions.
const extRGBAColorSpace = int(C.JPEGSHIM_EXT_RGBA)

// colorSpaceName returns a string for libjpeg's J_COLOR_SPACE.
func colorSpaceName(cs int) string {
	if name, ok := colorSpaceNames[cs]; ok {
		return name
	}
	return fmt.Sprintf("J_COLOR_SPACE(%d)", cs)
}

// ImageInfo contains metadata about a JPEG file.
type ImageInfo struct {
	Width         int
	Height        int
	NumComponents int
	ColorSpaceID  int
	ColorSpace    string
	Progressive   bool
	ICC           []byte // extracted ICC profile, nil if absent
}

// GetInfo reads JPEG metadata and extracts any ICC profile without fully decoding the image.
func GetInfo(data []byte) (info *ImageInfo, err error) {
	return GetInfoWithHandler(data, nil)
}

// GetInfoWithHandler is GetInfo with a custom FatalHandler.
func GetInfoWithHandler(data []byte, h FatalHandler) (info *ImageInfo, err error) {
	defer recoverCodecError(&err)

	d, err := newDecompressor(h)
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

	icc, err := ExtractICC(d.app2Markers())
	if err != nil {
		return nil, fmt.Errorf("extracting ICC: %w", err)
	}

	cs := int(d.cinfo.jpeg_color_space)
	return &ImageInfo{
		Width:         int(d.cinfo.image_width),
		Height:        int(d.cinfo.image_height),
		NumComponents: int(d.cinfo.num_components),
		ColorSpaceID:  cs,
		ColorSpace:    colorSpaceName(cs),
		Progressive:   d.cinfo.progressive_mode != 0,
		ICC:           icc,
	}, nil
}
