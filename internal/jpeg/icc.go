package jpeg

import (
	"bytes"
	"errors"
	"fmt"
)

const (
	iccMarkerTag    = "ICC_PROFILE\x00"
	iccHeaderLen    = len(iccMarkerTag) + 2 // tag + seq + count
	maxICCChunkData = 65535 - 2 - iccHeaderLen
	maxICCChunks    = 255
)

// ExtractICC reassembles an ICC profile from APP2 marker segments.
// markers holds raw APP2 payloads; segments that are not ICC chunks are
// ignored. A nil profile with a nil error means none was present.
func ExtractICC(markers [][]byte) ([]byte, error) {
	var chunks [maxICCChunks + 1][]byte
	count, found := 0, 0

	for _, m := range markers {
		if len(m) < iccHeaderLen || string(m[:len(iccMarkerTag)]) != iccMarkerTag {
			continue
		}
		seq, n := int(m[12]), int(m[13])
		if seq == 0 || seq > n {
			return nil, fmt.Errorf("invalid ICC chunk sequence %d/%d", seq, n)
		}
		if count == 0 {
			count = n
		} else if n != count {
			return nil, fmt.Errorf("inconsistent ICC chunk count: %d vs %d", n, count)
		}
		if chunks[seq] != nil {
			return nil, fmt.Errorf("duplicate ICC chunk %d", seq)
		}
		chunks[seq] = m[iccHeaderLen:]
		found++
	}

	if found == 0 {
		return nil, nil
	}
	if found != count {
		return nil, fmt.Errorf("expected %d ICC chunks, found %d", count, found)
	}

	var buf bytes.Buffer
	for _, c := range chunks[1 : count+1] {
		buf.Write(c)
	}
	return buf.Bytes(), nil
}

// ChunkICC splits an ICC profile into APP2-ready marker payloads
// (tag, 1-based sequence number, chunk count, profile data).
func ChunkICC(profile []byte) ([][]byte, error) {
	if len(profile) == 0 {
		return nil, errors.New("empty ICC profile")
	}

	numChunks := (len(profile) + maxICCChunkData - 1) / maxICCChunkData
	if numChunks > maxICCChunks {
		return nil, fmt.Errorf("ICC profile too large: needs %d chunks (max %d)", numChunks, maxICCChunks)
	}

	chunks := make([][]byte, 0, numChunks)
	for i := 0; i < numChunks; i++ {
		start := i * maxICCChunkData
		end := min(start+maxICCChunkData, len(profile))

		chunk := make([]byte, 0, iccHeaderLen+end-start)
		chunk = append(chunk, iccMarkerTag...)
		chunk = append(chunk, byte(i+1), byte(numChunks))
		chunk = append(chunk, profile[start:end]...)
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}
