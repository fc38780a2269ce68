package frames

import (
	"fmt"

	"github.com/fosdem/vaframes/lib/allocator"
	"github.com/fosdem/vaframes/lib/fourcc"
)

// PixFmt is the ffmpeg -pix_fmt whose rawvideo output FromPacked reads
// for format.
func PixFmt(format fourcc.Format) (string, error) {
	switch format {
	case fourcc.NV12:
		return "nv12", nil
	case fourcc.YV12:
		return "yuv420p", nil
	case fourcc.YUY2:
		return "yuyv422", nil
	case fourcc.RGB4:
		return "bgra", nil
	case fourcc.BGR4:
		return "rgba", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// PackedSize is the size of one w x h frame without row padding.
func PackedSize(format fourcc.Format, w, h int) (int, error) {
	cw, ch := (w+1)/2, (h+1)/2
	switch format {
	case fourcc.NV12, fourcc.YV12:
		return w*h + 2*cw*ch, nil
	case fourcc.YUY2:
		return cw * 4 * h, nil
	case fourcc.RGB4, fourcc.BGR4:
		return w * 4 * h, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func copyRows(dst []byte, pitch int, src []byte, rowLen, rows int) {
	for y := range rows {
		copy(dst[y*pitch:y*pitch+rowLen], src[y*rowLen:(y+1)*rowLen])
	}
}

// FromPacked copies a frame without row padding, as ffmpeg writes
// rawvideo, into a locked frame.
func FromPacked(fd *allocator.FrameData, format fourcc.Format, w, h int, buf []byte) error {
	size, err := PackedSize(format, w, h)
	if err != nil {
		return err
	}
	if len(buf) < size {
		return fmt.Errorf("packed %s frame of %dx%d needs %d bytes, got %d", format, w, h, size, len(buf))
	}
	if err := checkSize(fd, format, w, h); err != nil {
		return err
	}
	p := int(fd.Pitch())
	cw, ch := (w+1)/2, (h+1)/2

	switch format {
	case fourcc.NV12:
		copyRows(fd.Y, p, buf, w, h)
		copyRows(fd.U, p, buf[w*h:], cw*2, ch)
	case fourcc.YV12:
		// yuv420p has U before V, the frame's planes are addressed
		// separately so the order in memory does not matter
		cp := chromaPitch(fd)
		copyRows(fd.Y, p, buf, w, h)
		copyRows(fd.U, cp, buf[w*h:], cw, ch)
		copyRows(fd.V, cp, buf[w*h+cw*ch:], cw, ch)
	case fourcc.YUY2:
		copyRows(fd.Y, p, buf, cw*4, h)
	case fourcc.RGB4:
		copyRows(fd.B, p, buf, w*4, h)
	case fourcc.BGR4:
		copyRows(fd.R, p, buf, w*4, h)
	}
	return nil
}
