package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

type FrameExtractor struct {
	ffmpegPath  string
	ffprobePath string
	logger      *zap.Logger
}

func NewFrameExtractor(ffmpeg, ffprobe string, logger *zap.Logger) (*FrameExtractor, error) {
	ffmpegPath, err := exec.LookPath(ffmpeg)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}
	ffprobePath, err := exec.LookPath(ffprobe)
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	logger.Debug("frame extractor ready",
		zap.String("ffmpeg", ffmpegPath),
		zap.String("ffprobe", ffprobePath),
	)

	return &FrameExtractor{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		logger:      logger,
	}, nil
}

// ExtractFrames writes up to opts.FrameCount frames from videoPath into
// outputDir as frame_0000.jpg, frame_0001.jpg, ... in extraction order.
// Extraction stops at the first frame that cannot be read. A video that
// cannot be probed, or yields no frame at all, returns ErrDecoding.
func (fe *FrameExtractor) ExtractFrames(ctx context.Context, videoPath, outputDir string, opts ExtractOptions) ([]ExtractedFrame, error) {
	info, err := fe.Probe(ctx, videoPath)
	if err != nil {
		return nil, err
	}

	indices := SampleIndices(*info, opts)
	fe.logger.Debug("sampling frames",
		zap.Int("total_frames", info.TotalFrames),
		zap.Int("frame_rate", info.FrameRate),
		zap.Ints("indices", indices),
	)

	decoded, err := fe.readFrames(ctx, videoPath, indices)
	if err != nil {
		return nil, err
	}

	frames := make([]ExtractedFrame, 0, len(indices))
	for position, index := range indices {
		img, ok := decoded[index]
		if !ok {
			fe.logger.Debug("frame unreadable, stopping extraction",
				zap.Int("position", position),
				zap.Int("index", index),
			)
			break
		}

		img, err := CropRows(img, opts.TopCrop, opts.BottomCrop)
		if err != nil {
			return nil, fmt.Errorf("failed to crop frame %d: %w", index, err)
		}

		data, err := EncodeJPEG(img)
		if err != nil {
			return nil, err
		}

		path := filepath.Join(outputDir, fmt.Sprintf("frame_%04d.jpg", position))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write frame: %w", err)
		}

		frames = append(frames, ExtractedFrame{Position: position, Index: index, Path: path})
	}

	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: no frames could be read from %s", ErrDecoding, filepath.Base(videoPath))
	}

	fe.logger.Info("frames extracted",
		zap.Int("count", len(frames)),
		zap.Int("requested", opts.FrameCount),
	)
	return frames, nil
}

type probeOutput struct {
	Streams []struct {
		NbFrames     string `json:"nb_frames"`
		AvgFrameRate string `json:"avg_frame_rate"`
		RFrameRate   string `json:"r_frame_rate"`
		Duration     string `json:"duration"`
	} `json:"streams"`
}

// Probe reads the frame count and frame rate of the first video stream.
func (fe *FrameExtractor) Probe(ctx context.Context, videoPath string) (*VideoInfo, error) {
	cmd := exec.CommandContext(ctx, fe.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=nb_frames,avg_frame_rate,r_frame_rate,duration",
		"-of", "json",
		videoPath,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: ffprobe: %v: %s", ErrDecoding, err, strings.TrimSpace(stderr.String()))
	}

	info, err := parseProbeOutput(stdout.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecoding, err)
	}
	return info, nil
}

func parseProbeOutput(data []byte) (*VideoInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(out.Streams) == 0 {
		return nil, fmt.Errorf("no video stream")
	}
	stream := out.Streams[0]

	fps := parseFrameRate(stream.AvgFrameRate)
	if fps <= 0 {
		fps = parseFrameRate(stream.RFrameRate)
	}
	if fps <= 0 {
		return nil, fmt.Errorf("unknown frame rate")
	}

	total, err := strconv.Atoi(stream.NbFrames)
	if err != nil || total <= 0 {
		duration, derr := strconv.ParseFloat(stream.Duration, 64)
		if derr != nil || duration <= 0 {
			return nil, fmt.Errorf("unknown frame count")
		}
		total = int(math.Round(duration * fps))
	}

	return &VideoInfo{
		TotalFrames: total,
		FrameRate:   int(fps),
	}, nil
}

// parseFrameRate accepts "30000/1001" or "25" and returns 0 when unparseable.
func parseFrameRate(s string) float64 {
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

// readFrames decodes the requested frame numbers in one ffmpeg pass and
// returns them keyed by frame number. Negative numbers and numbers past the
// last frame are absent from the result.
func (fe *FrameExtractor) readFrames(ctx context.Context, videoPath string, indices []int) (map[int]image.Image, error) {
	wanted := wantedFrames(indices)
	frames := make(map[int]image.Image, len(wanted))
	if len(wanted) == 0 {
		return frames, nil
	}

	cmd := exec.CommandContext(ctx, fe.ffmpegPath,
		"-v", "error",
		"-i", videoPath,
		"-vf", selectFilter(wanted),
		"-fps_mode", "passthrough",
		"-frames:v", strconv.Itoa(len(wanted)),
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	// Selected frames arrive in ascending frame order, one PNG each.
	r := bufio.NewReader(stdout)
	var decodeErr error
	for _, index := range wanted {
		if _, err := r.Peek(1); err != nil {
			break
		}
		img, err := png.Decode(r)
		if err != nil {
			decodeErr = fmt.Errorf("failed to decode frame %d: %w", index, err)
			break
		}
		frames[index] = img
	}
	io.Copy(io.Discard, r)

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if waitErr != nil || decodeErr != nil {
		fe.logger.Debug("ffmpeg ended early",
			zap.Int("decoded", len(frames)),
			zap.Int("wanted", len(wanted)),
			zap.NamedError("wait", waitErr),
			zap.NamedError("decode", decodeErr),
			zap.String("stderr", strings.TrimSpace(stderr.String())),
		)
	}
	return frames, nil
}

// wantedFrames returns the distinct non-negative frame numbers in ascending
// order.
func wantedFrames(indices []int) []int {
	seen := make(map[int]bool, len(indices))
	out := make([]int, 0, len(indices))
	for _, i := range indices {
		if i < 0 || seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// selectFilter builds a select filter passing exactly the given frames.
func selectFilter(frames []int) string {
	terms := make([]string, len(frames))
	for i, n := range frames {
		terms[i] = fmt.Sprintf(`eq(n\,%d)`, n)
	}
	return "select=" + strings.Join(terms, "+")
}
