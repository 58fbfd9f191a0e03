package retrieval

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/desertthunder/tunedl/internal/shared"
)

const (
	YtDlpBinary  = "yt-dlp"
	FFmpegBinary = "ffmpeg"
)

// Binaries holds the resolved paths of the external tools.
type Binaries struct {
	YtDlp  string `json:"yt_dlp_path"`
	FFmpeg string `json:"ffmpeg_path"`
}

// ResolveBinary returns the absolute path of configured, or of name looked up on PATH when configured
// is empty. key names the config option so the error tells the user what to set.
func ResolveBinary(configured, name, key string) (string, error) {
	target := configured
	if target == "" {
		target = name
	}

	path, err := exec.LookPath(target)
	if err != nil {
		if configured != "" {
			return "", fmt.Errorf("%w: %s not found at %q (check %s)", shared.ErrMissingDependency, name, configured, key)
		}
		return "", fmt.Errorf("%w: %s is not installed or not on PATH (set %s)", shared.ErrMissingDependency, name, key)
	}
	return path, nil
}

// CheckDependencies resolves yt-dlp and ffmpeg, failing on the first one that is absent.
func CheckDependencies(ytdlpPath, ffmpegPath string) (Binaries, error) {
	ytdlp, err := ResolveBinary(ytdlpPath, YtDlpBinary, "download.ytdlp_path")
	if err != nil {
		return Binaries{}, err
	}

	ffmpeg, err := ResolveBinary(ffmpegPath, FFmpegBinary, "download.ffmpeg_path")
	if err != nil {
		return Binaries{}, err
	}

	return Binaries{YtDlp: ytdlp, FFmpeg: ffmpeg}, nil
}

// Version runs the binary's version flag and returns the first line of output.
func Version(ctx context.Context, path, flag string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, path, flag)
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s %s: %w", path, flag, err)
	}

	line, _, _ := strings.Cut(strings.TrimSpace(out.String()), "\n")
	return strings.TrimSpace(line), nil
}
