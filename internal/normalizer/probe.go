package normalizer

import (
	"encoding/json"
	"fmt"
)

// probeResult is the first video stream reported by ffprobe.
type probeResult struct {
	CodecName string
	Width     int
	Height    int
}

type probeJSON struct {
	Streams []struct {
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// parseProbe parses ffprobe -of json output for the selected video stream.
func parseProbe(out []byte) (*probeResult, error) {
	var parsed probeJSON
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal probe output: %w", err)
	}

	if len(parsed.Streams) == 0 {
		return nil, fmt.Errorf("no video streams in probe output")
	}

	stream := parsed.Streams[0]

	return &probeResult{
		CodecName: stream.CodecName,
		Width:     stream.Width,
		Height:    stream.Height,
	}, nil
}
