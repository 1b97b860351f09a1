// Package iccprofile reads the fixed 128-byte ICC profile header.
package iccprofile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	headerSize     = 128
	maxProfileSize = 4 * 1024 * 1024 // 4 MB
	acspMagic      = 0x61637370      // 'acsp'
)

var ErrTooShort = errors.New("ICC profile too short (< 128 bytes)")

// Info contains metadata parsed from an ICC profile header.
type Info struct {
	Size       uint32 `json:"size" yaml:"size"`
	Version    string `json:"version" yaml:"version"`
	ColorSpace string `json:"color_space" yaml:"color_space"` // "RGB ", "CMYK", etc.
	PCS        string `json:"pcs" yaml:"pcs"`                 // "XYZ ", "Lab "
	Class      string `json:"class" yaml:"class"`             // "mntr", "prtr", "scnr", etc.
}

// Parse reads header metadata from raw profile bytes.
func Parse(data []byte) (*Info, error) {
	if len(data) < headerSize {
		return nil, ErrTooShort
	}
	if len(data) > maxProfileSize {
		return nil, fmt.Errorf("ICC profile too large (%d bytes, max %d)", len(data), maxProfileSize)
	}
	if sig := binary.BigEndian.Uint32(data[36:40]); sig != acspMagic {
		return nil, fmt.Errorf("invalid ICC signature: 0x%08x (expected 0x%08x)", sig, acspMagic)
	}

	return &Info{
		Size:       binary.BigEndian.Uint32(data[0:4]),
		Version:    fmt.Sprintf("%d.%d.%d", data[8], data[9]>>4, data[9]&0x0f),
		ColorSpace: string(data[16:20]),
		PCS:        string(data[20:24]),
		Class:      string(data[12:16]),
	}, nil
}

// Load reads a profile from disk and validates its header.
func Load(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ICC profile: %w", err)
	}
	if _, err := Parse(data); err != nil {
		return nil, fmt.Errorf("validating ICC profile %s: %w", path, err)
	}
	return data, nil
}

var colorSpaceNames = map[string]string{
	"RGB ": "RGB",
	"CMYK": "CMYK",
	"GRAY": "Grayscale",
	"Lab ": "CIELAB",
	"XYZ ": "CIEXYZ",
}

var classNames = map[string]string{
	"mntr": "Display",
	"prtr": "Output",
	"scnr": "Input",
	"link": "DeviceLink",
	"spac": "ColorSpace",
	"abst": "Abstract",
	"nmcl": "NamedColor",
}

// ColorSpaceName returns a human-readable name for a colour space signature.
func ColorSpaceName(sig string) string {
	if name, ok := colorSpaceNames[sig]; ok {
		return name
	}
	return strings.TrimSpace(sig)
}

// ClassName returns a human-readable name for a profile class signature.
func ClassName(sig string) string {
	if name, ok := classNames[sig]; ok {
		return name
	}
	return strings.TrimSpace(sig)
}
