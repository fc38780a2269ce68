// Package frames has helpers for writing and reading the pixels of a
// locked frame.
package frames

import (
	"errors"
	"fmt"

	"github.com/fosdem/vaframes/lib/allocator"
	"github.com/fosdem/vaframes/lib/fourcc"
)

var ErrUnsupportedFormat = errors.New("pixel access not implemented for format")

type FrameCfg struct {
	Width              int `yaml:"width" jsonschema:"minimum=1"`
	Height             int `yaml:"height" jsonschema:"minimum=1"`
	NumAllocatedFrames int `yaml:"num_allocated_frames" jsonschema:"minimum=1,maximum=65535"`
}

func (f *FrameCfg) Validate() error {
	if f.NumAllocatedFrames < 1 {
		return fmt.Errorf("number of allocated frames must be at least 1")
	}
	if f.NumAllocatedFrames > 0xffff {
		return fmt.Errorf("number of allocated frames must be at most %d", 0xffff)
	}
	if f.Width < 1 {
		return fmt.Errorf("width must be at least 1")
	}
	if f.Height < 1 {
		return fmt.Errorf("height must be at least 1")
	}
	return nil
}

func (f *FrameCfg) Info(format fourcc.Format) allocator.FrameInfo {
	return allocator.FrameInfo{
		FourCC: format,
		Width:  uint32(f.Width),
		Height: uint32(f.Height),
	}
}

// chromaPitch is the row pitch of the U and V planes of a YV12 frame.
// FrameData only carries the luma pitch, so this assumes the driver lays
// chroma rows out at half of it, as softva does. Other drivers are free
// to pad chroma rows differently.
func chromaPitch(fd *allocator.FrameData) int {
	return int(fd.Pitch()) / 2
}

type plane struct {
	name string
	buf  []byte
	need int
}

// checkSize makes sure the plane slices of fd cover a w x h frame.
func checkSize(fd *allocator.FrameData, format fourcc.Format, w, h int) error {
	if w < 1 || h < 1 {
		return fmt.Errorf("invalid frame size %dx%d", w, h)
	}
	p := int(fd.Pitch())
	cw := (w + 1) / 2

	var planes []plane
	switch format {
	case fourcc.NV12:
		planes = []plane{
			{"Y", fd.Y, p*(h-1) + w},
			{"UV", fd.U, p*((h-1)/2) + cw*2},
		}
	case fourcc.YV12:
		planes = []plane{
			{"Y", fd.Y, p*(h-1) + w},
			{"U", fd.U, chromaPitch(fd)*((h-1)/2) + cw},
			{"V", fd.V, chromaPitch(fd)*((h-1)/2) + cw},
		}
	case fourcc.YUY2:
		planes = []plane{{"YUYV", fd.Y, p*(h-1) + cw*4}}
	case fourcc.RGB4:
		planes = []plane{{"BGRA", fd.B, p*(h-1) + w*4}}
	case fourcc.BGR4:
		planes = []plane{{"RGBA", fd.R, p*(h-1) + w*4}}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	for _, pl := range planes {
		if len(pl.buf) < pl.need {
			return fmt.Errorf("plane %s has %d bytes, a %dx%d %s frame with pitch %d needs %d",
				pl.name, len(pl.buf), w, h, format, p, pl.need)
		}
	}
	return nil
}
