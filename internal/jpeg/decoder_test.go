package jpeg

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const notJPEGMessage = "Not a JPEG file: starts with 0x00 0x00"

func TestLibjpegLinkage(t *testing.T) {
	ver := LibjpegVersion()
	if ver == 0 {
		t.Fatal("libjpeg version returned 0")
	}
	t.Logf("libjpeg version: %d", ver)
}

func flatRGBA(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func flatGray(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func within(t *testing.T, want, got uint8, tolerance int) {
	t.Helper()
	d := int(want) - int(got)
	if d < -tolerance || d > tolerance {
		t.Errorf("channel value %d not within %d of %d", got, tolerance, want)
	}
}

func TestDecodeNotJPEG(t *testing.T) {
	img, err := DecodeData([]byte{0x00, 0x00, 0x00, 0x00}, nil)
	assert.Nil(t, img)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCodecFatal)

	var ce *CodecError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, notJPEGMessage, ce.Msg)
}

func TestDecodeShortInput(t *testing.T) {
	_, err := DecodeData(nil, nil)
	assert.ErrorIs(t, err, errShortInput)
	_, err = DecodeData([]byte{0xff}, nil)
	assert.ErrorIs(t, err, errShortInput)
}

func TestDecodeTruncated(t *testing.T) {
	data, err := EncodeData(flatRGBA(32, 32, color.RGBA{10, 20, 30, 255}), nil)
	require.NoError(t, err)

	// Without EOI libjpeg warns and inserts one, which is not fatal.
	img, err := DecodeData(data[:len(data)-2], nil)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 32, 32), img.Bounds())
}

func TestDecodeTruncatedWarning(t *testing.T) {
	data, err := EncodeData(flatRGBA(32, 32, color.RGBA{10, 20, 30, 255}), nil)
	require.NoError(t, err)

	logger, hook := test.NewNullLogger()
	_, err = DecodeData(data[:len(data)-2], &DecoderOptions{FatalHandler: LogBridge{Logger: logger}})
	require.NoError(t, err)
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "Premature end of JPEG file", hook.LastEntry().Message)

	// A handler that does not take warnings never hears about it.
	h := &recordingHandler{}
	_, err = DecodeData(data[:len(data)-2], &DecoderOptions{FatalHandler: h})
	require.NoError(t, err)
	assert.Equal(t, 0, h.calls)
}

type recordingHandler struct {
	calls int
	msg   string
}

func (h *recordingHandler) OnFatalError(state ErrorFormatter) {
	h.calls++
	var buf MessageBuffer
	state.FormatMessage(&buf)
	h.msg = buf.String()
	panic(&CodecError{Msg: "recorded: " + h.msg})
}

func TestDecodeCustomHandler(t *testing.T) {
	h := &recordingHandler{}
	_, err := DecodeData([]byte{0x00, 0x00, 0x01}, &DecoderOptions{FatalHandler: h})
	require.Error(t, err)
	assert.Equal(t, 1, h.calls)
	assert.Equal(t, notJPEGMessage, h.msg)
	assert.Equal(t, "libjpeg: recorded: "+notJPEGMessage, err.Error())
}

func TestDecodeReturningHandler(t *testing.T) {
	h := &returningHandler{}
	_, err := DecodeData([]byte{0x00, 0x00, 0x01}, &DecoderOptions{FatalHandler: h})
	var ce *CodecError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 1, h.calls)
	assert.Equal(t, notJPEGMessage, ce.Msg)
}

func TestDecodeLogBridge(t *testing.T) {
	logger, hook := test.NewNullLogger()
	_, err := GetInfoWithHandler([]byte{0x00, 0x00, 0x01}, LogBridge{Logger: logger})
	assert.ErrorIs(t, err, ErrCodecFatal)
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, notJPEGMessage, hook.LastEntry().Message)
}

func TestDecodeRGBARoundTrip(t *testing.T) {
	want := color.RGBA{200, 100, 50, 255}
	data, err := EncodeData(flatRGBA(24, 16, want), &EncoderOptions{Quality: 95})
	require.NoError(t, err)

	for _, opts := range []*DecoderOptions{nil, {DCTMethod: DCTIFast}, {DCTMethod: DCTFloat, DisableFancyUpsampling: true}} {
		img, err := Decode(bytes.NewReader(data), opts)
		require.NoError(t, err)
		rgba, ok := img.(*image.RGBA)
		require.True(t, ok, "got %T", img)
		assert.Equal(t, image.Rect(0, 0, 24, 16), rgba.Bounds())

		got := rgba.RGBAAt(12, 8)
		within(t, want.R, got.R, 4)
		within(t, want.G, got.G, 4)
		within(t, want.B, got.B, 4)
		assert.Equal(t, uint8(0xff), got.A)
	}
}

func TestDecodeGrayRoundTrip(t *testing.T) {
	data, err := EncodeData(flatGray(9, 7, 128), nil)
	require.NoError(t, err)

	img, err := DecodeData(data, nil)
	require.NoError(t, err)
	gray, ok := img.(*image.Gray)
	require.True(t, ok, "got %T", img)
	assert.Equal(t, image.Rect(0, 0, 9, 7), gray.Bounds())
	within(t, 128, gray.GrayAt(4, 3).Y, 2)
}

func TestDecodeCMYK(t *testing.T) {
	pixels := bytes.Repeat([]byte{255, 255, 255, 255}, 8*8)
	data, err := EncodeCMYK(pixels, 8, 8, nil, CMYKOptions{Quality: 95})
	require.NoError(t, err)

	img, err := DecodeData(data, nil)
	require.NoError(t, err)
	rgba, ok := img.(*image.RGBA)
	require.True(t, ok, "got %T", img)
	got := rgba.RGBAAt(4, 4)
	within(t, 255, got.R, 3)
	within(t, 255, got.G, 3)
	within(t, 255, got.B, 3)
}

func TestDecodeRGB(t *testing.T) {
	icc := syntheticICC(300)
	data, err := EncodeData(flatRGBA(10, 6, color.RGBA{0, 128, 255, 255}), &EncoderOptions{Quality: 90, ICC: icc})
	require.NoError(t, err)

	dec, err := DecodeRGB(data)
	require.NoError(t, err)
	assert.Equal(t, 10, dec.Width)
	assert.Equal(t, 6, dec.Height)
	assert.Len(t, dec.Pixels, 10*6*3)
	assert.Equal(t, icc, dec.ICC)
}

func TestConcurrentSessionsKeepTheirHandlers(t *testing.T) {
	good, err := EncodeData(flatGray(8, 8, 50), nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 16)
	handlers := make([]*recordingHandler, 16)
	for i := range errs {
		handlers[i] = &recordingHandler{}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			data := good
			if i%2 == 1 {
				data = []byte{0x00, 0x00, 0x01}
			}
			_, errs[i] = DecodeData(data, &DecoderOptions{FatalHandler: handlers[i]})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if i%2 == 1 {
			assert.ErrorIs(t, err, ErrCodecFatal)
			assert.Equal(t, 1, handlers[i].calls)
		} else {
			assert.NoError(t, err)
			assert.Equal(t, 0, handlers[i].calls)
		}
	}
}
