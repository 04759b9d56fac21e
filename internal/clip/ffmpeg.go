package clip

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/novacare/fallguard-go/internal/conf"
	"github.com/novacare/fallguard-go/internal/errors"
)

const tempExt = ".temp"

// FFmpegWriter packages clip frames into an mp4 container by piping the
// encoded frames through an ffmpeg child process. The write is performed
// as an atomic file operation: ffmpeg writes to a temporary file which is
// renamed into place on success.
type FFmpegWriter struct {
	settings *conf.ClipSettings
}

// NewFFmpegWriter creates a writer using the ffmpeg binary and export
// directory from settings.
func NewFFmpegWriter(settings *conf.ClipSettings) *FFmpegWriter {
	return &FFmpegWriter{settings: settings}
}

// Write encodes the clip and returns the path of the stored video file.
// The context bounds the ffmpeg run; cancellation kills the child process.
func (w *FFmpegWriter) Write(ctx context.Context, c *Clip) (string, error) {
	if len(c.Frames) == 0 {
		return "", errors.Newf("clip %s has no frames", c.EventID).
			Component("clip").
			Category(errors.CategoryClipEncoding).
			Build()
	}

	outputPath := GenerateClipName(w.settings.Path, c.Confidence, c.Anchor)

	tempFilePath, err := createTempFile(outputPath)
	if err != nil {
		return "", err
	}

	if err := w.runFFmpegCommand(ctx, c, tempFilePath); err != nil {
		// Leave no partial output behind
		_ = os.Remove(tempFilePath)
		return "", err
	}

	if err := os.Rename(tempFilePath, outputPath); err != nil {
		return "", errors.New(fmt.Errorf("failed to rename temporary clip file: %w", err)).
			Component("clip").
			Category(errors.CategoryFileIO).
			Build()
	}

	return outputPath, nil
}

// createTempFile ensures the export directory exists and returns the
// temporary output path used for the atomic write.
func createTempFile(outputPath string) (string, error) {
	outputDir := filepath.Dir(outputPath)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", errors.New(fmt.Errorf("failed to create clip export directory: %w", err)).
			Component("clip").
			Category(errors.CategoryFileIO).
			Build()
	}
	return outputPath + tempExt, nil
}

// runFFmpegCommand feeds the encoded frames to ffmpeg's stdin and waits
// for it to produce the container file.
func (w *FFmpegWriter) runFFmpegCommand(ctx context.Context, c *Clip, tempFilePath string) error {
	args := w.buildFFmpegArgs(tempFilePath)

	cmd := exec.CommandContext(ctx, w.settings.FFmpegPath, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return errors.New(fmt.Errorf("failed to create stdin pipe: %w", err)).
			Component("clip").
			Category(errors.CategoryClipEncoding).
			Build()
	}

	if err := cmd.Start(); err != nil {
		return errors.New(fmt.Errorf("failed to start ffmpeg: %w", err)).
			Component("clip").
			Category(errors.CategoryClipEncoding).
			Build()
	}

	var writeErr error
	for i := range c.Frames {
		if _, err := stdin.Write(c.Frames[i].Data); err != nil {
			writeErr = err
			break
		}
	}
	// Close stdin to signal end of input
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return errors.New(fmt.Errorf("ffmpeg failed: %w", err)).
			Component("clip").
			Category(errors.CategoryClipEncoding).
			Context("event_id", c.EventID).
			Context("frames", len(c.Frames)).
			Build()
	}
	if writeErr != nil {
		return errors.New(fmt.Errorf("failed to write frames to ffmpeg: %w", writeErr)).
			Component("clip").
			Category(errors.CategoryClipEncoding).
			Build()
	}

	return nil
}

// buildFFmpegArgs constructs the arguments for the ffmpeg command. Frames
// arrive as a concatenated JPEG stream on stdin.
func (w *FFmpegWriter) buildFFmpegArgs(tempFilePath string) []string {
	return []string{
		"-y",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-framerate", fmt.Sprintf("%d", w.settings.FrameRate),
		"-i", "pipe:0",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		"-f", "mp4",
		tempFilePath,
	}
}
