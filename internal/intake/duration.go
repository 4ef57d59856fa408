package intake

import (
	"context"
	"encoding/json"
	"math"
	"os/exec"
	"strconv"
)

// Duration extracts the playback duration of an audio file in seconds using
// ffprobe. Extraction is deliberately forgiving: any failure (ffprobe
// missing, unreadable container, non-finite value) yields 0 seconds rather
// than an error, so a corrupt upload still flows through the billing
// pipeline at the one-minute minimum.
func Duration(ctx context.Context, path string) float64 {
	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	).Output()
	if err != nil {
		return 0
	}
	return parseProbeDuration(out)
}

// parseProbeDuration reads the duration from ffprobe's JSON output
func parseProbeDuration(out []byte) float64 {
	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &probe); err != nil {
		return 0
	}

	sec, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0
	}
	if math.IsNaN(sec) || math.IsInf(sec, 0) || sec < 0 {
		return 0
	}
	return sec
}
