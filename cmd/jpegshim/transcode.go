package main

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/png"
	"os"

	"github.com/davesmith10/jpegshim/internal/jpeg"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var transcodeCmd = &cobra.Command{
	Use:   "transcode",
	Short: "Re-encode an image (JPEG, PNG, GIF, BMP, TIFF, WebP) as JPEG",
	RunE:  runTranscode,
}

func init() {
	transcodeCmd.Flags().StringP("input", "i", "", "Input image file")
	transcodeCmd.Flags().StringP("output", "o", "", "Output JPEG file")
	transcodeCmd.Flags().Int("quality", jpeg.DefaultQuality, "JPEG quality (1-100)")
	transcodeCmd.Flags().Bool("progressive", false, "Write a progressive JPEG")
	transcodeCmd.Flags().Bool("optimize", false, "Optimize Huffman tables")
	transcodeCmd.Flags().String("dct", "islow", "DCT method (islow, ifast, float)")
	transcodeCmd.Flags().Int("max-width", 0, "Downscale to at most this width (0 keeps the size)")
	transcodeCmd.Flags().Bool("keep-icc", true, "Carry an embedded ICC profile over from JPEG input")
	transcodeCmd.MarkFlagRequired("input")
	transcodeCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(transcodeCmd)
}

func parseDCT(s string) (jpeg.DCTMethod, error) {
	switch s {
	case "islow":
		return jpeg.DCTISlow, nil
	case "ifast":
		return jpeg.DCTIFast, nil
	case "float":
		return jpeg.DCTFloat, nil
	default:
		return 0, fmt.Errorf("unknown DCT method: %q", s)
	}
}

func isJPEG(data []byte) bool {
	return len(data) >= 2 && data[0] == 0xFF && data[1] == 0xD8
}

// downscale keeps the aspect ratio; images already within maxWidth are
// returned unchanged.
func downscale(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return img
	}
	height := max(1, b.Dy()*maxWidth/b.Dx())
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func runTranscode(cmd *cobra.Command, args []string) error {
	inputPath, _ := cmd.Flags().GetString("input")
	outputPath, _ := cmd.Flags().GetString("output")
	quality, _ := cmd.Flags().GetInt("quality")
	progressive, _ := cmd.Flags().GetBool("progressive")
	optimize, _ := cmd.Flags().GetBool("optimize")
	dctName, _ := cmd.Flags().GetString("dct")
	maxWidth, _ := cmd.Flags().GetInt("max-width")
	keepICC, _ := cmd.Flags().GetBool("keep-icc")

	dct, err := parseDCT(dctName)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	logger := log.WithFields(logrus.Fields{"input": inputPath, "output": outputPath})
	handler := jpeg.LogBridge{Logger: logger}

	var (
		img    image.Image
		icc    []byte
		format = "jpeg"
	)
	if isJPEG(data) {
		img, err = jpeg.DecodeData(data, &jpeg.DecoderOptions{DCTMethod: dct, FatalHandler: handler})
		if err != nil {
			return fmt.Errorf("decoding: %w", err)
		}
		if keepICC {
			info, err := jpeg.GetInfoWithHandler(data, handler)
			if err != nil {
				return fmt.Errorf("reading ICC: %w", err)
			}
			icc = info.ICC
		}
	} else {
		img, format, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("decoding: %w", err)
		}
	}
	logger.WithFields(logrus.Fields{
		"format": format,
		"width":  img.Bounds().Dx(),
		"height": img.Bounds().Dy(),
	}).Debug("decoded input")

	img = downscale(img, maxWidth)

	encoded, err := jpeg.EncodeData(img, &jpeg.EncoderOptions{
		Quality:        quality,
		Progressive:    progressive,
		OptimizeCoding: optimize,
		DCTMethod:      dct,
		ICC:            icc,
		FatalHandler:   handler,
	})
	if err != nil {
		return fmt.Errorf("encoding: %w", err)
	}

	if err := os.WriteFile(outputPath, encoded, 0644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	b := img.Bounds()
	fmt.Fprintf(cmd.OutOrStdout(), "Transcoded %s %dx%d → %s (%d bytes)\n", format, b.Dx(), b.Dy(), outputPath, len(encoded))
	return nil
}
