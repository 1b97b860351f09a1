package jpeg

// Annex K luminance table; used as the base for every CMYK channel.
var stdLuminanceQuant = [64]int{
	16, 11, 10, 16, 24, 40, 51, 61,
	12, 12, 14, 19, 26, 58, 60, 55,
	14, 13, 16, 24, 40, 57, 69, 56,
	14, 17, 22, 29, 51, 87, 80, 62,
	18, 22, 37, 56, 68, 109, 103, 77,
	24, 35, 55, 64, 81, 104, 113, 92,
	49, 64, 78, 87, 103, 121, 120, 101,
	72, 92, 95, 98, 112, 100, 103, 99,
}

// qualityScale is libjpeg's jpeg_quality_scaling, quality clamped to 1-100.
func qualityScale(quality int) int {
	quality = max(1, min(quality, 100))
	if quality < 50 {
		return 5000 / quality
	}
	return 200 - quality*2
}

// ScaleQuantTable scales a base quantization table by a quality factor
// (1-100) using the IJG formula, limited to baseline-compatible values.
func ScaleQuantTable(base [64]int, quality int) [64]uint16 {
	scale := qualityScale(quality)

	var table [64]uint16
	for i, b := range base {
		table[i] = uint16(max(1, min((b*scale+50)/100, 255)))
	}
	return table
}

// GenerateQuantTables returns the CMY table, scaled at quality-cmyReduction
// (at least 1), and the K table, scaled at quality.
func GenerateQuantTables(quality, cmyReduction int) (cmy [64]uint16, k [64]uint16) {
	cmy = ScaleQuantTable(stdLuminanceQuant, max(1, quality-cmyReduction))
	k = ScaleQuantTable(stdLuminanceQuant, quality)
	return
}
