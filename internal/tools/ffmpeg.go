// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Ffmpeg family related tools.
package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"

	"github.com/evolution-gaming/chromaswap/internal/logging"
	"github.com/evolution-gaming/chromaswap/internal/video"
)

var (
	ffprobeCmd = "ffprobe"
	ffmpegCmd  = "ffmpeg"
)

// Environment variables that take precedence over $PATH lookup.
const (
	FfmpegEnvVar  = "CHROMASWAP_FFMPEG"
	FfprobeEnvVar = "CHROMASWAP_FFPROBE"
)

// ErrNoVideoStream is returned for media files without a video stream.
var ErrNoVideoStream = errors.New("no video stream")

// FfmpegPath will return path to ffmpeg binary and error if path is not found.
func FfmpegPath() (string, error) {
	p, err := FindTool(ffmpegCmd, FfmpegEnvVar)
	if err != nil {
		return "", fmt.Errorf("ffmpeg not found: %w", err)
	}
	return p, nil
}

// FfprobePath will return path to ffprobe binary and error if path is not found.
func FfprobePath() (string, error) {
	p, err := FindTool(ffprobeCmd, FfprobeEnvVar)
	if err != nil {
		return "", fmt.Errorf("ffprobe not found: %w", err)
	}
	return p, nil
}

// Ffprobe implements video.MetadataExtractor.
type Ffprobe struct {
	ExePath string
}

func (f Ffprobe) ExtractMetadata(videoFile string) (video.Metadata, error) {
	return FfprobeExtractMetadata(f.ExePath, videoFile)
}

// FfprobeExtractMetadata will query video file metadata via ffprobe.
func FfprobeExtractMetadata(ffprobePath, videoFile string) (video.Metadata, error) {
	var vmeta video.Metadata

	if _, err := os.Stat(videoFile); os.IsNotExist(err) {
		return vmeta, fmt.Errorf("FfprobeExtractMetadata() os.Stat: %w", err)
	}

	ffprobeArgs := []string{
		"-v", "quiet",
		"-select_streams", "v:0",
		"-of", "json",
		"-show_format",
		"-show_streams",
		videoFile,
	}
	cmd := exec.Command(ffprobePath, ffprobeArgs...) //#nosec G204
	logging.Debugf("Running: %s", cmd)
	out, err := cmd.Output()
	if err != nil {
		return vmeta, fmt.Errorf("FfprobeExtractMetadata() exec error: %w", err)
	}

	return parseFfprobeOutput(out, videoFile)
}

func parseFfprobeOutput(out []byte, videoFile string) (video.Metadata, error) {
	var vmeta video.Metadata

	// Unmarshal metadata from both "streams" and "format" JSON objects.
	meta := &struct {
		Streams []video.Metadata
		Format  video.Metadata
	}{}
	if err := json.Unmarshal(out, &meta); err != nil {
		return vmeta, fmt.Errorf("FfprobeExtractMetadata() json.Unmarshal: %w", err)
	}
	if len(meta.Streams) == 0 {
		return vmeta, fmt.Errorf("FfprobeExtractMetadata() %s: %w", videoFile, ErrNoVideoStream)
	}

	vmeta = meta.Streams[0]
	// ffmpeg decodes rotated video upright, so frame geometry follows display rotation.
	vmeta.Rotation = rotation(out)
	if vmeta.Rotation%180 != 0 {
		vmeta.Width, vmeta.Height = vmeta.Height, vmeta.Width
	}
	// For mkv container Streams does not contain duration, so we have to look into Format.
	vmeta.Duration = math.Max(vmeta.Duration, meta.Format.Duration)
	// Some containers carry no frame count, estimate it from duration.
	if vmeta.FrameCount == 0 && vmeta.Duration > 0 {
		if fps, err := vmeta.FPS(); err == nil {
			vmeta.FrameCount = int(math.Round(vmeta.Duration * fps))
		}
	}
	logging.Debugf("%s %+v", videoFile, vmeta)

	return vmeta, nil
}

// rotation extracts display rotation of the first stream, normalized to [0, 360). Newer
// ffprobe reports it as display matrix side data, older as "rotate" tag.
func rotation(out []byte) int {
	meta := &struct {
		Streams []struct {
			Tags struct {
				Rotate string `json:"rotate"`
			} `json:"tags"`
			SideDataList []struct {
				Rotation *float64 `json:"rotation"`
			} `json:"side_data_list"`
		} `json:"streams"`
	}{}
	if err := json.Unmarshal(out, meta); err != nil || len(meta.Streams) == 0 {
		return 0
	}
	s := meta.Streams[0]

	var deg int
	found := false
	for _, sd := range s.SideDataList {
		if sd.Rotation != nil {
			deg, found = int(math.Round(*sd.Rotation)), true
			break
		}
	}
	if !found && s.Tags.Rotate != "" {
		if v, err := strconv.Atoi(s.Tags.Rotate); err == nil {
			deg = v
		}
	}
	return ((deg % 360) + 360) % 360
}
