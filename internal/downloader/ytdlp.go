// Package downloader fetches course videos to local disk using the yt-dlp binary.
package downloader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrDownloadFailed indicates yt-dlp did not produce a media file.
var ErrDownloadFailed = errors.New("downloader: download failed")

const downloadTimeout = 10 * time.Minute

// videoPageURL builds the watch-page address for a video identifier.
func videoPageURL(videoID string) string {
	return "https://www.bilibili.com/video/" + videoID
}

// YtDlp downloads videos with the yt-dlp command-line tool.
type YtDlp struct {
	binaryPath string
	tempDir    string
	log        *zap.Logger
}

// NewYtDlp creates a downloader that invokes binaryPath and stages files under
// tempDir.
func NewYtDlp(binaryPath, tempDir string, log *zap.Logger) *YtDlp {
	return &YtDlp{binaryPath: binaryPath, tempDir: tempDir, log: log}
}

// Download fetches the media for videoID into a fresh per-call directory and
// returns the path of the downloaded file. The caller owns the file and should
// hand it to Cleanup when done.
func (d *YtDlp) Download(ctx context.Context, videoID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	dir, err := os.MkdirTemp(d.tempDir, "coursevault-"+videoID+"-")
	if err != nil {
		return "", fmt.Errorf("%w: create temp dir: %v", ErrDownloadFailed, err)
	}

	outputPattern := filepath.Join(dir, videoID+".%(ext)s")
	cmd := exec.CommandContext(ctx, d.binaryPath,
		videoPageURL(videoID),
		"--output", outputPattern,
		"--no-playlist",
		"--quiet",
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	d.log.Info("downloading video", zap.String("video", videoID))
	if err := cmd.Run(); err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("%w: %v, stderr: %s", ErrDownloadFailed, err, strings.TrimSpace(stderr.String()))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("%w: read temp dir: %v", ErrDownloadFailed, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), videoID+".") {
			return filepath.Join(dir, entry.Name()), nil
		}
	}

	_ = os.RemoveAll(dir)
	return "", fmt.Errorf("%w: no media file produced", ErrDownloadFailed)
}

// Cleanup removes a downloaded file and its per-call directory. Best effort:
// the error is returned for logging but safe to ignore.
func (d *YtDlp) Cleanup(path string) error {
	if path == "" {
		return nil
	}
	if err := os.RemoveAll(filepath.Dir(path)); err != nil {
		return fmt.Errorf("cleanup %s: %w", path, err)
	}
	return nil
}

// VideoInfo fetches the video's metadata as reported by yt-dlp --dump-json.
func (d *YtDlp) VideoInfo(ctx context.Context, videoID string) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.binaryPath,
		videoPageURL(videoID),
		"--dump-json",
		"--no-playlist",
	)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("video info: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}

	var info map[string]any
	if err := json.Unmarshal(out.Bytes(), &info); err != nil {
		return nil, fmt.Errorf("parse video info: %w", err)
	}
	return info, nil
}
