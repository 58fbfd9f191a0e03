package retrieval

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/lrstanley/go-ytdlp"
)

// searchPrefix asks yt-dlp for the single best search hit.
const searchPrefix = "ytsearch1:"

// YtDlpOpts configures [NewYtDlp]. Zero values fall back to mp3 at 320K with 3 retries.
type YtDlpOpts struct {
	Executable   string
	FFmpegPath   string
	AudioFormat  string
	AudioQuality string
	Retries      int
	Logger       *log.Logger
}

// YtDlp implements [Retriever] by shelling out to yt-dlp, with ffmpeg extracting and transcoding the audio.
type YtDlp struct {
	opts YtDlpOpts
}

// NewYtDlp creates a yt-dlp backed retriever.
func NewYtDlp(opts YtDlpOpts) *YtDlp {
	if opts.AudioFormat == "" {
		opts.AudioFormat = "mp3"
	}
	if opts.AudioQuality == "" {
		opts.AudioQuality = "320K"
	}
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &YtDlp{opts: opts}
}

// command builds the yt-dlp invocation for one request.
func (y *YtDlp) command(dest string) *ytdlp.Command {
	retries := strconv.Itoa(y.opts.Retries)

	cmd := ytdlp.New().
		Format("bestaudio/best").
		ExtractAudio().
		AudioFormat(y.opts.AudioFormat).
		AudioQuality(y.opts.AudioQuality).
		Output(OutputTemplate(dest)).
		Retries(retries).
		FragmentRetries(retries).
		NoPlaylist().
		NoProgress().
		PrintJSON()

	if y.opts.Executable != "" {
		cmd.SetExecutable(y.opts.Executable)
	}
	if y.opts.FFmpegPath != "" {
		cmd.FFmpegLocation(y.opts.FFmpegPath)
	}
	return cmd
}

// Retrieve searches for req.Query and writes the transcoded audio to req.Dest.
func (y *YtDlp) Retrieve(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, &Error{Query: req.Query, Err: fmt.Errorf("empty query")}
	}
	if err := os.MkdirAll(filepath.Dir(req.Dest), 0755); err != nil {
		return nil, &Error{Query: req.Query, Err: err}
	}

	y.opts.Logger.Debug("running yt-dlp", "query", req.Query, "dest", req.Dest)

	res, err := y.command(req.Dest).Run(ctx, searchPrefix+req.Query)
	if res != nil {
		forwardDiagnostics(res.Stderr, req.Diagnostic)
	}
	if err != nil {
		return nil, &Error{Query: req.Query, Err: err}
	}

	result := &Result{}
	if infos, err := res.GetExtractedInfo(); err == nil && len(infos) > 0 && infos[0].Title != nil {
		result.SourceTitle = *infos[0].Title
	}
	return result, nil
}

// OutputTemplate converts a destination file into a yt-dlp output template. The extension is left to
// yt-dlp since the post-processor renames the file after transcoding; literal percent signs are escaped.
func OutputTemplate(dest string) string {
	base := strings.TrimSuffix(dest, filepath.Ext(dest))
	return strings.ReplaceAll(base, "%", "%%") + ".%(ext)s"
}

// forwardDiagnostics passes yt-dlp "ERROR:" lines to fn.
func forwardDiagnostics(stderr string, fn func(string)) {
	if fn == nil {
		return
	}
	for line := range strings.SplitSeq(stderr, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "ERROR:") {
			fn(line)
		}
	}
}
