package main

import (
	"fmt"
	"os"

	"github.com/davesmith10/jpegshim/internal/iccprofile"
	"github.com/davesmith10/jpegshim/internal/jpeg"
	"github.com/spf13/cobra"
)

var encodeCMYKCmd = &cobra.Command{
	Use:   "encode-cmyk",
	Short: "Encode raw CMYK data to JPEG",
	RunE:  runEncodeCMYK,
}

func init() {
	encodeCMYKCmd.Flags().StringP("input", "i", "", "Input raw CMYK file")
	encodeCMYKCmd.Flags().StringP("output", "o", "", "Output CMYK JPEG file")
	encodeCMYKCmd.Flags().String("icc", "", "ICC profile to embed")
	encodeCMYKCmd.Flags().Int("width", 0, "Image width")
	encodeCMYKCmd.Flags().Int("height", 0, "Image height")
	encodeCMYKCmd.Flags().Int("quality", 85, "JPEG quality (1-100)")
	encodeCMYKCmd.Flags().Int("cmy-reduction", 15, "Quality reduction for CMY channels")
	encodeCMYKCmd.MarkFlagRequired("input")
	encodeCMYKCmd.MarkFlagRequired("output")
	encodeCMYKCmd.MarkFlagRequired("width")
	encodeCMYKCmd.MarkFlagRequired("height")
	rootCmd.AddCommand(encodeCMYKCmd)
}

func runEncodeCMYK(cmd *cobra.Command, args []string) error {
	inputPath, _ := cmd.Flags().GetString("input")
	outputPath, _ := cmd.Flags().GetString("output")
	iccPath, _ := cmd.Flags().GetString("icc")
	width, _ := cmd.Flags().GetInt("width")
	height, _ := cmd.Flags().GetInt("height")
	quality, _ := cmd.Flags().GetInt("quality")
	cmyReduction, _ := cmd.Flags().GetInt("cmy-reduction")

	pixels, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	expected := width * height * 4
	if len(pixels) != expected {
		return fmt.Errorf("expected %d bytes for %dx%d CMYK, got %d", expected, width, height, len(pixels))
	}

	var icc []byte
	if iccPath != "" {
		icc, err = iccprofile.Load(iccPath)
		if err != nil {
			return err
		}
	}

	encoded, err := jpeg.EncodeCMYK(pixels, width, height, icc, jpeg.CMYKOptions{
		Quality:      quality,
		CMYReduction: cmyReduction,
		FatalHandler: jpeg.LogBridge{Logger: log.WithField("file", outputPath)},
	})
	if err != nil {
		return fmt.Errorf("encoding: %w", err)
	}

	if err := os.WriteFile(outputPath, encoded, 0644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Encoded %dx%d CMYK → %s (%d bytes)\n", width, height, outputPath, len(encoded))
	return nil
}
