package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/davesmith10/jpegshim/internal/iccprofile"
	"github.com/davesmith10/jpegshim/internal/jpeg"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var infoCmd = &cobra.Command{
	Use:   "info [file]",
	Short: "Inspect JPEG header and ICC profile info",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	infoCmd.Flags().String("format", "text", "Output format (text, json, yaml)")
	rootCmd.AddCommand(infoCmd)
}

type iccReport struct {
	Bytes  int              `json:"bytes" yaml:"bytes"`
	Header *iccprofile.Info `json:"header,omitempty" yaml:"header,omitempty"`
	Error  string           `json:"error,omitempty" yaml:"error,omitempty"`
}

type infoReport struct {
	File        string     `json:"file" yaml:"file"`
	Size        int        `json:"size" yaml:"size"`
	Width       int        `json:"width" yaml:"width"`
	Height      int        `json:"height" yaml:"height"`
	Components  int        `json:"components" yaml:"components"`
	ColorSpace  string     `json:"color_space" yaml:"color_space"`
	Progressive bool       `json:"progressive" yaml:"progressive"`
	ICC         *iccReport `json:"icc,omitempty" yaml:"icc,omitempty"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	path := args[0]
	format, _ := cmd.Flags().GetString("format")

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	info, err := jpeg.GetInfoWithHandler(data, jpeg.LogBridge{Logger: log.WithField("file", path)})
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	log.WithFields(logrus.Fields{"file": path, "bytes": len(data)}).Debug("read JPEG header")

	report := infoReport{
		File:        path,
		Size:        len(data),
		Width:       info.Width,
		Height:      info.Height,
		Components:  info.NumComponents,
		ColorSpace:  info.ColorSpace,
		Progressive: info.Progressive,
	}
	if info.ICC != nil {
		report.ICC = &iccReport{Bytes: len(info.ICC)}
		if hdr, err := iccprofile.Parse(info.ICC); err != nil {
			report.ICC.Error = err.Error()
		} else {
			report.ICC.Header = hdr
		}
	}

	out := cmd.OutOrStdout()
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		return enc.Encode(report)
	case "text":
		printInfo(out, report)
		return nil
	default:
		return fmt.Errorf("unknown output format: %q", format)
	}
}

func printInfo(w io.Writer, r infoReport) {
	fmt.Fprintf(w, "File:        %s\n", r.File)
	fmt.Fprintf(w, "Dimensions:  %d x %d\n", r.Width, r.Height)
	fmt.Fprintf(w, "Components:  %d\n", r.Components)
	fmt.Fprintf(w, "Color space: %s\n", r.ColorSpace)
	fmt.Fprintf(w, "Progressive: %t\n", r.Progressive)
	fmt.Fprintf(w, "File size:   %d bytes (%.1f MB)\n", r.Size, float64(r.Size)/(1024*1024))

	switch {
	case r.ICC == nil:
		fmt.Fprintln(w, "ICC profile: none")
	case r.ICC.Header == nil:
		fmt.Fprintf(w, "ICC profile: present (%d bytes) but invalid: %s\n", r.ICC.Bytes, r.ICC.Error)
	default:
		h := r.ICC.Header
		fmt.Fprintf(w, "ICC profile: %d bytes\n", r.ICC.Bytes)
		fmt.Fprintf(w, "  Version:     %s\n", h.Version)
		fmt.Fprintf(w, "  Color space: %s\n", iccprofile.ColorSpaceName(h.ColorSpace))
		fmt.Fprintf(w, "  PCS:         %s\n", iccprofile.ColorSpaceName(h.PCS))
		fmt.Fprintf(w, "  Class:       %s\n", iccprofile.ClassName(h.Class))
	}
}
