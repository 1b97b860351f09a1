package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/davesmith10/jpegshim/internal/jpeg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append(args, "--log-format", "text"))
	err := rootCmd.Execute()
	return out.String(), err
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 4), uint8(y * 4), 128, 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestTranscodeAndInfo(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.jpg")
	writePNG(t, in, 64, 32)

	stdout, err := execute(t, "transcode", "-i", in, "-o", out, "--quality", "90", "--progressive", "--max-width", "32")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Transcoded png 32x16")

	stdout, err = execute(t, "info", out, "--format", "json")
	require.NoError(t, err)
	var report infoReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, 32, report.Width)
	assert.Equal(t, 16, report.Height)
	assert.Equal(t, 3, report.Components)
	assert.True(t, report.Progressive)
	assert.Nil(t, report.ICC)

	stdout, err = execute(t, "info", out, "--format", "yaml")
	require.NoError(t, err)
	var fromYAML infoReport
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &fromYAML))
	assert.Equal(t, report, fromYAML)

	stdout, err = execute(t, "info", out, "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Dimensions:  32 x 16")
	assert.Contains(t, stdout, "ICC profile: none")
}

func TestTranscodeJPEGInput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.jpg")
	out := filepath.Join(dir, "out.jpg")

	src := image.NewGray(image.Rect(0, 0, 8, 8))
	data, err := jpeg.EncodeData(src, nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(in, data, 0644))

	stdout, err := execute(t, "transcode", "-i", in, "-o", out, "--dct", "ifast", "--max-width", "0", "--progressive=false")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Transcoded jpeg 8x8")

	_, err = execute(t, "transcode", "-i", in, "-o", out, "--dct", "bogus")
	assert.EqualError(t, err, `unknown DCT method: "bogus"`)
	_, err = execute(t, "transcode", "-i", in, "-o", out, "--dct", "islow")
	require.NoError(t, err)
}

func TestInfoReportsCodecError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jpg")
	require.NoError(t, os.WriteFile(path, []byte{0, 0, 0, 0}, 0644))

	_, err := execute(t, "info", path, "--format", "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, jpeg.ErrCodecFatal)
	assert.True(t, strings.HasSuffix(err.Error(), "Not a JPEG file: starts with 0x00 0x00"))
}

func TestEncodeCMYKCommand(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "in.raw")
	out := filepath.Join(dir, "out.jpg")
	require.NoError(t, os.WriteFile(raw, bytes.Repeat([]byte{10, 20, 30, 40}, 4*3), 0644))

	stdout, err := execute(t, "encode-cmyk", "-i", raw, "-o", out, "--width", "4", "--height", "3")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Encoded 4x3 CMYK")

	stdout, err = execute(t, "info", out, "--format", "json")
	require.NoError(t, err)
	var report infoReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, 4, report.Components)

	_, err = execute(t, "encode-cmyk", "-i", raw, "-o", out, "--width", "5", "--height", "3")
	assert.EqualError(t, err, "expected 60 bytes for 5x3 CMYK, got 48")
}

func TestConfigureLogger(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, configureLogger(&buf, "debug", "auto"))
	log.Debug("hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	assert.Error(t, configureLogger(&buf, "loud", "text"))
	assert.Error(t, configureLogger(&buf, "info", "xml"))
	require.NoError(t, configureLogger(&buf, "info", "text"))
}
