// Package ffmpegsource feeds a surface pool with the rawvideo output of
// a shell command, usually ffmpeg.
package ffmpegsource

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/fosdem/vaframes/lib/allocator"
	"github.com/fosdem/vaframes/lib/frames"
	"github.com/fosdem/vaframes/lib/surfacepool"
)

// RestartDelay is how long to wait before running the command again
// after it exited.
var RestartDelay = 1 * time.Second

var errGeometryChanged = errors.New("pool geometry changed")

type FFmpegSource struct {
	shellCmd string
	pool     *surfacepool.Pool
	log      *slog.Logger
}

// New does not start anything yet. In shellCmd, {width}, {height} and
// {pix_fmt} are replaced by the pool's current geometry each time the
// command is started.
func New(shellCmd string, pool *surfacepool.Pool) *FFmpegSource {
	return &FFmpegSource{
		shellCmd: shellCmd,
		pool:     pool,
		log:      slog.With("module", "ffmpeg:"+pool.Name),
	}
}

// Command expands the placeholders of the shell command for info.
func (f *FFmpegSource) Command(info allocator.FrameInfo) (string, error) {
	pixFmt, err := frames.PixFmt(info.FourCC)
	if err != nil {
		return "", err
	}
	return strings.NewReplacer(
		"{width}", strconv.Itoa(int(info.Width)),
		"{height}", strconv.Itoa(int(info.Height)),
		"{pix_fmt}", pixFmt,
	).Replace(f.shellCmd), nil
}

// Run keeps the command running until ctx is done. It restarts the
// command when it exits, and when the pool is reconfigured.
func (f *FFmpegSource) Run(ctx context.Context) {
	for {
		info := f.poolInfo()
		err := f.runOnce(ctx, info)
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, errGeometryChanged) {
			f.log.Info("restarting command for new frame geometry")
			continue
		}
		if err != nil {
			f.log.Warn("command failed", "err", err)
		} else {
			f.log.Info("command exited")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(RestartDelay):
		}
	}
}

func (f *FFmpegSource) poolInfo() allocator.FrameInfo {
	f.pool.Lock()
	defer f.pool.Unlock()
	return f.pool.Info
}

func (f *FFmpegSource) runOnce(ctx context.Context, info allocator.FrameInfo) error {
	shellCmd, err := f.Command(info)
	if err != nil {
		return err
	}
	size, err := frames.PackedSize(info.FourCC, int(info.Width), int(info.Height))
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "bash", "-c", shellCmd)
	setProcAttr(cmd)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("could not get stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("could not get stderr: %w", err)
	}

	f.log.Info("starting command", "cmd", shellCmd)
	if err := cmd.Start(); err != nil {
		return err
	}
	go f.processStderr(stderr)

	readErr := f.processStdout(stdout, info, size)
	if readErr != nil && !errors.Is(readErr, io.EOF) {
		// stop the command before waiting when we gave up reading
		cancel()
	}
	waitErr := cmd.Wait()
	switch {
	case readErr != nil && !errors.Is(readErr, io.EOF):
		return readErr
	case waitErr != nil:
		return waitErr
	}
	return nil
}

func (f *FFmpegSource) processStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		f.log.Debug(scanner.Text())
	}
}

// processStdout reads whole frames into a scratch buffer first, so a
// pool frame is only held for the copy. Frames are dropped when the
// pool has none free.
func (f *FFmpegSource) processStdout(stdout io.Reader, info allocator.FrameInfo, size int) error {
	buf := make([]byte, size)
	for {
		_, err := io.ReadFull(stdout, buf)
		if errors.Is(err, io.ErrUnexpectedEOF) {
			f.log.Warn("command output ended in the middle of a frame")
			return io.EOF
		}
		if err != nil {
			return err
		}

		frame := f.pool.GetFrameForWriting()
		if frame == nil {
			continue
		}
		if frame.Mem.Format() != info.FourCC || frame.Mem.Width() != info.Width || frame.Mem.Height() != info.Height {
			f.pool.FailedWriting(frame)
			return errGeometryChanged
		}
		err = frames.FromPacked(&frame.Data, info.FourCC, int(info.Width), int(info.Height), buf)
		if err != nil {
			f.pool.FailedWriting(frame)
			return err
		}
		f.pool.FinishedWriting(frame)
	}
}
