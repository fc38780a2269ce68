package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

const (
	reset = "\033[0m"

	cyan        = 36
	lightGray   = 37
	darkGray    = 90
	lightRed    = 91
	lightYellow = 93
)

// Attributes the handler always writes itself, or never prints.
var builtinAttrs = map[string]bool{
	slog.TimeKey:    true,
	slog.LevelKey:   true,
	slog.MessageKey: true,
	"module":        true,
}

type Options struct {
	slog.HandlerOptions

	// Out defaults to stdout, without colours when it is not a terminal.
	Out io.Writer
	// NoColor disables ANSI escapes, e.g. when writing to a file.
	NoColor bool
	// Attrs appends the record's attributes as key=value pairs after
	// the message.
	Attrs bool
}

// LogHandler prints records as one coloured line each, with the
// "module" attribute in brackets in front of the message.
type LogHandler struct {
	subHandler slog.Handler
	opts       Options

	buffer *bytes.Buffer
	mu     *sync.Mutex
}

func (h *LogHandler) colorize(colorCode int, v string) string {
	if h.opts.NoColor {
		return v
	}
	return fmt.Sprintf("\033[%sm%s%s", strconv.Itoa(colorCode), v, reset)
}

func (h *LogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.subHandler.Enabled(ctx, level)
}

func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LogHandler{subHandler: h.subHandler.WithAttrs(attrs), opts: h.opts, buffer: h.buffer, mu: h.mu}
}

func (h *LogHandler) WithGroup(name string) slog.Handler {
	return &LogHandler{subHandler: h.subHandler.WithGroup(name), opts: h.opts, buffer: h.buffer, mu: h.mu}
}

func (h *LogHandler) Handle(ctx context.Context, r slog.Record) error {
	level := r.Level.String() + " "

	switch {
	case r.Level >= slog.LevelError:
		level = h.colorize(lightRed, level)
	case r.Level >= slog.LevelWarn:
		level = h.colorize(lightYellow, level)
	case r.Level >= slog.LevelInfo:
		level = h.colorize(cyan, level)
	default:
		level = h.colorize(darkGray, level)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	attrs, err := h.parseAttributes(ctx, r)
	if err != nil {
		return err
	}

	var line strings.Builder
	line.WriteString(h.colorize(lightGray, r.Time.Format("15:04:05.000 ")))
	line.WriteString(level)
	if attrs["module"] != nil {
		line.WriteString(h.colorize(lightGray, fmt.Sprintf("[%s] ", attrs["module"])))
	}
	line.WriteString(r.Message)
	if h.opts.Attrs {
		keys := make([]string, 0, len(attrs))
		for k := range attrs {
			if !builtinAttrs[k] {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			line.WriteString(h.colorize(darkGray, fmt.Sprintf(" %s=%v", k, attrs[k])))
		}
	}
	line.WriteByte('\n')

	_, err = io.WriteString(h.opts.Out, line.String())
	return err
}

// parseAttributes runs the record through the JSON sub handler so
// attributes added with With and WithGroup end up in the map as well.
// Callers hold h.mu.
func (h *LogHandler) parseAttributes(ctx context.Context, r slog.Record) (map[string]any, error) {
	defer h.buffer.Reset()
	if err := h.subHandler.Handle(ctx, r); err != nil {
		return nil, fmt.Errorf("error when calling inner handler's Handle: %w", err)
	}

	var attrs map[string]any
	err := json.Unmarshal(h.buffer.Bytes(), &attrs)
	if err != nil {
		return nil, fmt.Errorf("error when unmarshaling inner handler's Handle result: %w", err)
	}
	return attrs, nil
}

func NewHandler(opts *Options) *LogHandler {
	if opts == nil {
		opts = &Options{}
	}
	o := *opts
	if o.Out == nil {
		o.Out = os.Stdout
		fd := os.Stdout.Fd()
		if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
			o.NoColor = true
		}
	}
	b := &bytes.Buffer{}
	return &LogHandler{
		buffer: b,
		opts:   o,
		subHandler: slog.NewJSONHandler(b, &slog.HandlerOptions{
			Level:       o.Level,
			AddSource:   o.AddSource,
			ReplaceAttr: o.ReplaceAttr,
		}),
		mu: &sync.Mutex{},
	}
}

// ParseLevel accepts the usual slog level names, case insensitive.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	err := l.UnmarshalText([]byte(s))
	if err != nil {
		return l, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}
