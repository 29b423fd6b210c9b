// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tools

import (
	"os"
	"path"
	"testing"

	"github.com/evolution-gaming/chromaswap/internal/video"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Path(t *testing.T) {
	type testCase struct {
		pathFunc func() (string, error)
		exeName  string
	}

	tests := map[string]testCase{
		"FfprobePath()": {
			pathFunc: FfprobePath,
			exeName:  "ffprobe",
		},
		"FfmpegPath()": {
			pathFunc: FfmpegPath,
			exeName:  "ffmpeg",
		},
	}

	run := func(t *testing.T, tc testCase) {
		// Create a fake binary and put it on PATH
		fakeBinDir := t.TempDir()
		wantPath := path.Join(fakeBinDir, tc.exeName)
		f, err := os.OpenFile(wantPath, os.O_CREATE, 0o755)
		require.NoError(t, err)
		f.Close()
		sysPath := os.Getenv("PATH")
		t.Setenv("PATH", fakeBinDir+":"+sysPath)
		t.Setenv(FfmpegEnvVar, "")
		t.Setenv(FfprobeEnvVar, "")

		gotPath, err := tc.pathFunc()
		assert.NoError(t, err)

		assert.Equal(t, wantPath, gotPath)
		assert.FileExists(t, gotPath)
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			run(t, tc)
		})
	}
}

func Test_Path_EnvOverride(t *testing.T) {
	fakeBinDir := t.TempDir()
	exePath := path.Join(fakeBinDir, "my-ffmpeg")
	f, err := os.OpenFile(exePath, os.O_CREATE, 0o755)
	require.NoError(t, err)
	f.Close()
	t.Setenv("PATH", "")
	t.Setenv(FfmpegEnvVar, exePath)

	got, err := FfmpegPath()
	require.NoError(t, err)
	assert.Equal(t, exePath, got)
}

func Test_Path_Negative(t *testing.T) {
	type testCase struct {
		pathFunc func() (string, error)
	}

	tests := map[string]testCase{
		"FfprobePath()": {
			pathFunc: FfprobePath,
		},
		"FfmpegPath()": {
			pathFunc: FfmpegPath,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			// Wipe PATH so that no binary can be located.
			t.Setenv("PATH", "")
			t.Setenv(FfmpegEnvVar, "")
			t.Setenv(FfprobeEnvVar, "")

			s, err := tc.pathFunc()
			assert.Error(t, err, "Expected error since binary is not on PATH")
			assert.Equal(t, "", s, "Expected empty string as path")
		})
	}
}

func Test_parseFfprobeOutput(t *testing.T) {
	tests := map[string]struct {
		given string
		want  video.Metadata
	}{
		"MP4 with frame count": {
			given: `{"streams": [{"codec_name": "h264", "r_frame_rate": "24/1", "duration": "10.000000",
				"width": 1280, "height": 720, "bit_rate": "86740", "nb_frames": "240"}],
				"format": {"duration": "10.000000"}}`,
			want: video.Metadata{
				CodecName: "h264", FrameRate: "24/1", Duration: 10,
				Width: 1280, Height: 720, BitRate: 86740, FrameCount: 240,
			},
		},
		"MKV without stream duration": {
			given: `{"streams": [{"codec_name": "vp9", "r_frame_rate": "25/1",
				"width": 640, "height": 360}],
				"format": {"duration": "4.000000"}}`,
			want: video.Metadata{
				CodecName: "vp9", FrameRate: "25/1", Duration: 4,
				Width: 640, Height: 360, FrameCount: 100,
			},
		},
		"Portrait phone video with display matrix": {
			given: `{"streams": [{"codec_name": "hevc", "r_frame_rate": "30/1", "duration": "2.000000",
				"width": 1920, "height": 1080, "nb_frames": "60",
				"side_data_list": [{"side_data_type": "Display Matrix", "rotation": -90}]}],
				"format": {"duration": "2.000000"}}`,
			want: video.Metadata{
				CodecName: "hevc", FrameRate: "30/1", Duration: 2,
				Width: 1080, Height: 1920, FrameCount: 60, Rotation: 270,
			},
		},
		"Legacy rotate tag": {
			given: `{"streams": [{"codec_name": "h264", "r_frame_rate": "25/1", "nb_frames": "25",
				"width": 1280, "height": 720, "tags": {"rotate": "90"}}],
				"format": {"duration": "1.000000"}}`,
			want: video.Metadata{
				CodecName: "h264", FrameRate: "25/1", Duration: 1,
				Width: 720, Height: 1280, FrameCount: 25, Rotation: 90,
			},
		},
		"Upside down keeps geometry": {
			given: `{"streams": [{"codec_name": "h264", "r_frame_rate": "25/1", "nb_frames": "25",
				"width": 1280, "height": 720,
				"side_data_list": [{"side_data_type": "Display Matrix", "rotation": 180}]}],
				"format": {"duration": "1.000000"}}`,
			want: video.Metadata{
				CodecName: "h264", FrameRate: "25/1", Duration: 1,
				Width: 1280, Height: 720, FrameCount: 25, Rotation: 180,
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := parseFfprobeOutput([]byte(tc.given), "video.mp4")
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func Test_parseFfprobeOutput_Negative(t *testing.T) {
	t.Run("Should fail without video streams", func(t *testing.T) {
		_, err := parseFfprobeOutput([]byte(`{"streams": [], "format": {}}`), "audio.mp3")
		assert.ErrorIs(t, err, ErrNoVideoStream)
	})
	t.Run("Should fail on malformed JSON", func(t *testing.T) {
		_, err := parseFfprobeOutput([]byte(`{`), "video.mp4")
		assert.Error(t, err)
	})
}

func Test_FfprobeExtractMetadata_Negative(t *testing.T) {
	t.Run("Should fail for non-existent media file", func(t *testing.T) {
		_, err := FfprobeExtractMetadata("ffprobe", "/non/existent/path/to/file")
		assert.Error(t, err)
	})
	t.Run("Should fail extracting metadata from non-media file", func(t *testing.T) {
		ffprobePath, err := FfprobePath()
		if err != nil {
			t.Skip("ffprobe not available")
		}
		// Try to extract metadata from non video file, just some binary like for instance
		// a test binary.
		nonMediaFile := os.Args[0]
		_, err = Ffprobe{ExePath: ffprobePath}.ExtractMetadata(nonMediaFile)
		assert.Error(t, err)
	})
}
