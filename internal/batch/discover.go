// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package batch

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/evolution-gaming/chromaswap/internal/keying"
)

// Directory names under a base directory.
const (
	BackgroundDirName = "bg"
	GreenDirName      = "green"
	OutputDirName     = "output"
	TestOutputDirName = "test_output"
)

var (
	// VideoExtensions lists recognized input video extensions, matched case-insensitively.
	VideoExtensions = []string{".mp4", ".mov", ".avi", ".mkv"}
	// ImageExtensions lists recognized background image extensions.
	ImageExtensions = []string{".png", ".jpg", ".jpeg"}
)

var (
	// ErrSetupRequired is returned by EnsureDirs when input directories had to be created.
	ErrSetupRequired = errors.New("initial setup required")
	// ErrNoBackground is returned when there is no background image to choose from.
	ErrNoBackground = errors.New("no background images found")
	// ErrSelectionCancelled is returned when interactive selection is aborted.
	ErrSelectionCancelled = errors.New("background selection cancelled")
	// ErrBadSelection is returned for an out of range background index.
	ErrBadSelection = errors.New("invalid background selection")
)

// Layout describes the working directory tree of a batch run.
type Layout struct {
	BaseDir string
}

func (l Layout) BackgroundDir() string { return path.Join(l.BaseDir, BackgroundDirName) }
func (l Layout) GreenDir() string      { return path.Join(l.BaseDir, GreenDirName) }
func (l Layout) OutputDir() string     { return path.Join(l.BaseDir, OutputDirName) }
func (l Layout) TestOutputDir() string { return path.Join(l.BaseDir, TestOutputDirName) }

// EnsureDirs creates missing directories. The output directory is created silently,
// creating bg/ or green/ means there is nothing to process yet, in which case
// ErrSetupRequired is returned along with instructions for the user.
func (l Layout) EnsureDirs() (instructions string, err error) {
	if err := os.MkdirAll(l.OutputDir(), os.FileMode(0o755)); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	var created []string
	for _, d := range []string{l.BackgroundDir(), l.GreenDir()} {
		if _, err := os.Stat(d); err == nil {
			continue
		}
		if err := os.MkdirAll(d, os.FileMode(0o755)); err != nil {
			return "", fmt.Errorf("creating %s: %w", d, err)
		}
		created = append(created, path.Base(d))
	}
	if len(created) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString("Created directories:\n")
	for _, d := range created {
		fmt.Fprintf(&b, "  - %s/\n", d)
	}
	b.WriteString("\nNext steps:\n")
	step := 1
	for _, d := range created {
		switch d {
		case BackgroundDirName:
			fmt.Fprintf(&b, "  %d. Put background images (PNG/JPG) into %s/\n", step, BackgroundDirName)
		case GreenDirName:
			fmt.Fprintf(&b, "  %d. Put green screen videos into %s/\n", step, GreenDirName)
		}
		step++
	}
	fmt.Fprintf(&b, "  %d. Run the command again\n", step)
	return b.String(), ErrSetupRequired
}

// FindVideos returns sorted paths of video files in dir.
func FindVideos(dir string) ([]string, error) {
	return findByExt(dir, VideoExtensions)
}

// FindImages returns sorted paths of background images in dir.
func FindImages(dir string) ([]string, error) {
	return findByExt(dir, ImageExtensions)
}

func findByExt(dir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	var found []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, want := range exts {
			if ext == want {
				found = append(found, path.Join(dir, e.Name()))
				break
			}
		}
	}
	sort.Strings(found)
	return found, nil
}

// SelectBackground picks a background from images. A single image is always used.
// Otherwise index (1-based) selects one, and index 0 prompts on out and reads the
// choice from in until a number in range is given.
func SelectBackground(images []string, index int, in io.Reader, out io.Writer) (string, error) {
	switch {
	case len(images) == 0:
		return "", ErrNoBackground
	case len(images) == 1:
		return images[0], nil
	case index != 0:
		if index < 1 || index > len(images) {
			return "", fmt.Errorf("%w: %d is not in 1-%d", ErrBadSelection, index, len(images))
		}
		return images[index-1], nil
	}

	fmt.Fprintln(out, "Select background image:")
	for i, img := range images {
		fmt.Fprintf(out, "  %d. %s\n", i+1, path.Base(img))
	}
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "Enter number (1-%d): ", len(images))
		if !sc.Scan() {
			return "", ErrSelectionCancelled
		}
		n, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
		if err != nil {
			return "", ErrSelectionCancelled
		}
		if n >= 1 && n <= len(images) {
			return images[n-1], nil
		}
		fmt.Fprintf(out, "Please enter a number in range 1-%d\n", len(images))
	}
}

// Stem returns file name without directory and extension.
func Stem(file string) string {
	base := path.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// StemCollisions returns groups of files sharing a stem, such files would write the same
// output. Groups and files keep input order.
func StemCollisions(files []string) [][]string {
	byStem := map[string][]string{}
	var order []string
	for _, f := range files {
		st := Stem(f)
		if _, ok := byStem[st]; !ok {
			order = append(order, st)
		}
		byStem[st] = append(byStem[st], f)
	}
	var groups [][]string
	for _, st := range order {
		if len(byStem[st]) > 1 {
			groups = append(groups, byStem[st])
		}
	}
	return groups
}

// BaseNames returns file names without directories.
func BaseNames(files []string) []string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = path.Base(f)
	}
	return names
}

// OutputName returns output file name for a batch run.
func OutputName(sourceFile string) string {
	return Stem(sourceFile) + "_output.mp4"
}

// TestOutputName returns output file name for a parameter test, it encodes the
// placement and the lower bound of the key range.
func TestOutputName(sourceFile string, p keying.Params) string {
	lo := p.Range.Lower
	return fmt.Sprintf("test_%s_s%s_y%s_L%d_%d_%d.mp4",
		Stem(sourceFile), formatParam(p.Placement.Scale), formatParam(p.Placement.YPosition), lo.H, lo.S, lo.V)
}

// formatParam prints shortest representation, always with a fractional part.
func formatParam(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
