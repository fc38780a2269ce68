package frames

import (
	"image"
	"image/color"
	"testing"

	"github.com/fosdem/vaframes/lib/allocator"
	"github.com/fosdem/vaframes/lib/fourcc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// frameData lays out a frame the way a driver with the given pitch
// would.
func frameData(format fourcc.Format, pitch, h int) *allocator.FrameData {
	fd := &allocator.FrameData{PitchLow: uint16(pitch)}
	switch format {
	case fourcc.NV12:
		buf := make([]byte, pitch*h+pitch*(h+1)/2)
		fd.Y = buf
		fd.U = buf[pitch*h:]
		fd.V = fd.U[1:]
	case fourcc.YV12:
		cp := pitch / 2
		ch := (h + 1) / 2
		buf := make([]byte, pitch*h+2*cp*ch)
		fd.Y = buf
		fd.V = buf[pitch*h:]
		fd.U = buf[pitch*h+cp*ch:]
	case fourcc.YUY2:
		fd.Y = make([]byte, pitch*h)
		fd.U = fd.Y[1:]
		fd.V = fd.Y[3:]
	case fourcc.RGB4:
		fd.B = make([]byte, pitch*h)
		fd.G = fd.B[1:]
		fd.R = fd.B[2:]
		fd.A = fd.B[3:]
	case fourcc.BGR4:
		fd.R = make([]byte, pitch*h)
		fd.A = fd.R[3:]
	}
	return fd
}

func TestFrameCfgValidate(t *testing.T) {
	cfg := FrameCfg{Width: 1920, Height: 1080, NumAllocatedFrames: 4}
	require.NoError(t, cfg.Validate())

	info := cfg.Info(fourcc.NV12)
	assert.Equal(t, allocator.FrameInfo{FourCC: fourcc.NV12, Width: 1920, Height: 1080}, info)

	for _, bad := range []FrameCfg{
		{Width: 1920, Height: 1080},
		{Width: 0, Height: 1080, NumAllocatedFrames: 1},
		{Width: 1920, Height: -1, NumAllocatedFrames: 1},
		{Width: 16, Height: 16, NumAllocatedFrames: 70000},
	} {
		assert.Error(t, bad.Validate(), "%+v", bad)
	}
}

func TestPatternRoundTrip(t *testing.T) {
	const w, h = 64, 6

	for _, format := range []fourcc.Format{fourcc.NV12, fourcc.YV12, fourcc.YUY2, fourcc.RGB4, fourcc.BGR4} {
		t.Run(format.String(), func(t *testing.T) {
			pitch := 128
			if format == fourcc.YUY2 {
				pitch = 256
			} else if format == fourcc.RGB4 || format == fourcc.BGR4 {
				pitch = 320
			}
			fd := frameData(format, pitch, h)
			require.NoError(t, FillTestPattern(fd, format, w, h, 3))

			img, err := ToImage(fd, format, w, h)
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, w, h), img.Bounds())

			for _, x := range []int{0, 10, 31, 40, 63} {
				want := BarColor(x, w, 3)
				r, g, b, _ := img.At(x, h-1).RGBA()
				got := color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), 255}
				assert.InDelta(t, want.R, got.R, 3, "x=%d", x)
				assert.InDelta(t, want.G, got.G, 3, "x=%d", x)
				assert.InDelta(t, want.B, got.B, 3, "x=%d", x)
			}
		})
	}
}

func TestBarColorMoves(t *testing.T) {
	assert.Equal(t, BarColor(0, 80, 1), BarColor(10, 80, 0))
	assert.Equal(t, BarColor(0, 80, 0), BarColor(0, 80, 8))
}

func TestYV12ChromaPitch(t *testing.T) {
	fd := frameData(fourcc.YV12, 128, 16)
	assert.Equal(t, 64, chromaPitch(fd))
	require.NoError(t, FillTestPattern(fd, fourcc.YV12, 100, 16, 0))

	// the last chroma row starts 7 half pitches in and is 50 bytes long
	fd.U = fd.U[:64*7+49]
	assert.Error(t, FillTestPattern(fd, fourcc.YV12, 100, 16, 0))
}

func TestSizeChecks(t *testing.T) {
	fd := frameData(fourcc.NV12, 64, 16)
	assert.Error(t, FillTestPattern(fd, fourcc.NV12, 64, 32, 0))
	assert.Error(t, FillTestPattern(fd, fourcc.NV12, 0, 16, 0))

	_, err := ToImage(fd, fourcc.P010, 64, 16)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFromImage(t *testing.T) {
	const w, h = 16, 16
	quads := []color.RGBA{{255, 0, 0, 255}, {0, 255, 0, 255}, {0, 0, 255, 255}, {255, 255, 255, 255}}
	src := image.NewRGBA(image.Rect(100, 100, 100+w, 100+h))
	for y := range h {
		for x := range w {
			src.SetRGBA(100+x, 100+y, quads[y/8*2+x/8])
		}
	}

	for _, format := range []fourcc.Format{fourcc.NV12, fourcc.YV12, fourcc.YUY2, fourcc.RGB4, fourcc.BGR4} {
		t.Run(format.String(), func(t *testing.T) {
			pitch := 32
			if format == fourcc.YUY2 || format == fourcc.RGB4 || format == fourcc.BGR4 {
				pitch = 64
			}
			fd := frameData(format, pitch, h)
			require.NoError(t, FromImage(fd, format, w, h, src))

			img, err := ToImage(fd, format, w, h)
			require.NoError(t, err)
			for i, want := range quads {
				x, y := i%2*8+4, i/2*8+4
				r, g, b, _ := img.At(x, y).RGBA()
				assert.InDelta(t, want.R, uint8(r>>8), 3, "quadrant %d", i)
				assert.InDelta(t, want.G, uint8(g>>8), 3, "quadrant %d", i)
				assert.InDelta(t, want.B, uint8(b>>8), 3, "quadrant %d", i)
			}
		})
	}
}

func TestFromPacked(t *testing.T) {
	const w, h = 6, 4

	for _, format := range []fourcc.Format{fourcc.NV12, fourcc.YV12, fourcc.YUY2, fourcc.RGB4, fourcc.BGR4} {
		t.Run(format.String(), func(t *testing.T) {
			size, err := PackedSize(format, w, h)
			require.NoError(t, err)
			buf := make([]byte, size)
			for i := range buf {
				buf[i] = byte(i + 1)
			}

			pitch := 64
			fd := frameData(format, pitch, h)
			require.NoError(t, FromPacked(fd, format, w, h, buf))

			switch format {
			case fourcc.NV12:
				assert.Equal(t, buf[w:2*w], fd.Y[pitch:pitch+w])
				assert.Equal(t, buf[w*h+w:w*h+2*w], fd.U[pitch:pitch+w])
				assert.Zero(t, fd.Y[w])
			case fourcc.YV12:
				assert.Equal(t, buf[w*h:w*h+3], fd.U[:3])
				assert.Equal(t, buf[w*h+3:w*h+6], fd.U[pitch/2:pitch/2+3])
				assert.Equal(t, buf[w*h+6:w*h+9], fd.V[:3])
			case fourcc.YUY2:
				assert.Equal(t, buf[3*w*2:4*w*2], fd.Y[3*pitch:3*pitch+w*2])
			case fourcc.RGB4:
				assert.Equal(t, buf[w*4:2*w*4], fd.B[pitch:pitch+w*4])
			case fourcc.BGR4:
				assert.Equal(t, buf[3*w*4:], fd.R[3*pitch:3*pitch+w*4])
			}

			assert.Error(t, FromPacked(fd, format, w, h, buf[:size-1]))
		})
	}

	_, err := PixFmt(fourcc.P010)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	f, err := PixFmt(fourcc.YV12)
	require.NoError(t, err)
	assert.Equal(t, "yuv420p", f)
}
