package allocator

import (
	"errors"
	"fmt"
	"slices"
	"unsafe"

	"github.com/fosdem/vaframes/lib/driver"
	"github.com/fosdem/vaframes/lib/fourcc"
)

// FrameData gives access to a locked frame. Every channel slice starts
// at the channel's first sample and runs to the end of the mapping, so
// packed channels overlap.
type FrameData struct {
	Y, U, V, A []byte
	R, G, B    []byte

	Y16, U16, V16 []uint16
	Y410          []uint32

	PitchHigh uint16
	PitchLow  uint16
}

func (fd *FrameData) Pitch() uint32 {
	return uint32(fd.PitchHigh)<<16 | uint32(fd.PitchLow)
}

func (fd *FrameData) clear() {
	*fd = FrameData{}
}

func at(buf []byte, off uint32) []byte {
	return buf[off:]
}

func u16(b []byte) []uint16 {
	if len(b) < 2 {
		return nil
	}
	return unsafe.Slice((*uint16)(unsafe.Pointer(&b[0])), len(b)/2)
}

func u32(b []byte) []uint32 {
	if len(b) < 4 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&b[0])), len(b)/4)
}

type planeLayout struct {
	accepts []fourcc.Format
	// reads is how many bytes planes touches from each offset it uses
	reads   []uint32
	planes  func(buf []byte, img *driver.Image, fd *FrameData)
}

// planeLayouts is keyed by the format the driver reports for the
// derived image, which is not necessarily the one that was requested.
var planeLayouts = map[driver.FourCC]planeLayout{
	driver.FourCCNV12: {[]fourcc.Format{fourcc.NV12}, []uint32{1, 2}, func(buf []byte, img *driver.Image, fd *FrameData) {
		fd.Y = at(buf, img.Offsets[0])
		fd.U = at(buf, img.Offsets[1])
		fd.V = fd.U[1:]
	}},
	driver.FourCCYV12: {[]fourcc.Format{fourcc.YV12}, []uint32{1, 1, 1}, func(buf []byte, img *driver.Image, fd *FrameData) {
		fd.Y = at(buf, img.Offsets[0])
		fd.V = at(buf, img.Offsets[1])
		fd.U = at(buf, img.Offsets[2])
	}},
	driver.FourCCYUY2: {[]fourcc.Format{fourcc.YUY2}, []uint32{4}, func(buf []byte, img *driver.Image, fd *FrameData) {
		fd.Y = at(buf, img.Offsets[0])
		fd.U = fd.Y[1:]
		fd.V = fd.Y[3:]
	}},
	driver.FourCCUYVY: {[]fourcc.Format{fourcc.UYVY}, []uint32{3}, func(buf []byte, img *driver.Image, fd *FrameData) {
		fd.U = at(buf, img.Offsets[0])
		fd.Y = fd.U[1:]
		fd.V = fd.U[2:]
	}},
	// RGB565 channels share their bytes, so all three start together.
	driver.FourCCRGB565: {[]fourcc.Format{fourcc.RGB565}, []uint32{2}, func(buf []byte, img *driver.Image, fd *FrameData) {
		fd.B = at(buf, img.Offsets[0])
		fd.G = fd.B
		fd.R = fd.B
	}},
	driver.FourCCARGB: {[]fourcc.Format{fourcc.RGB4}, []uint32{4}, func(buf []byte, img *driver.Image, fd *FrameData) {
		fd.B = at(buf, img.Offsets[0])
		fd.G = fd.B[1:]
		fd.R = fd.B[2:]
		fd.A = fd.B[3:]
	}},
	driver.FourCCA2R10G10B10: {[]fourcc.Format{fourcc.A2RGB10}, []uint32{4}, func(buf []byte, img *driver.Image, fd *FrameData) {
		fd.B = at(buf, img.Offsets[0])
		fd.G = fd.B
		fd.R = fd.B
		fd.A = fd.B
	}},
	driver.FourCCABGR: {[]fourcc.Format{fourcc.BGR4}, []uint32{4, 1, 1}, func(buf []byte, img *driver.Image, fd *FrameData) {
		fd.R = at(buf, img.Offsets[0])
		fd.G = at(buf, img.Offsets[1])
		fd.B = at(buf, img.Offsets[2])
		fd.A = fd.R[3:]
	}},
	driver.FourCCRGBP: {[]fourcc.Format{fourcc.RGBP}, []uint32{1, 1, 1}, func(buf []byte, img *driver.Image, fd *FrameData) {
		fd.B = at(buf, img.Offsets[0])
		fd.G = at(buf, img.Offsets[1])
		fd.R = at(buf, img.Offsets[2])
	}},
	// VP8 macroblock data surfaces
	driver.FourCCP208: {[]fourcc.Format{fourcc.NV12}, []uint32{1}, func(buf []byte, img *driver.Image, fd *FrameData) {
		fd.Y = at(buf, img.Offsets[0])
	}},
	driver.FourCCP010: {[]fourcc.Format{fourcc.P010}, []uint32{2, 4}, semiPlanar16},
	driver.FourCCP016: {[]fourcc.Format{fourcc.P016}, []uint32{2, 4}, semiPlanar16},
	driver.FourCCAYUV: {[]fourcc.Format{fourcc.AYUV}, []uint32{4}, func(buf []byte, img *driver.Image, fd *FrameData) {
		fd.V = at(buf, img.Offsets[0])
		fd.U = fd.V[1:]
		fd.Y = fd.V[2:]
		fd.A = fd.V[3:]
	}},
	driver.FourCCY210: {[]fourcc.Format{fourcc.Y210}, []uint32{8}, packed422x16},
	driver.FourCCY216: {[]fourcc.Format{fourcc.Y216}, []uint32{8}, packed422x16},
	driver.FourCCY410: {[]fourcc.Format{fourcc.Y410}, []uint32{4}, func(buf []byte, img *driver.Image, fd *FrameData) {
		fd.Y410 = u32(at(buf, img.Offsets[0]))
		fd.Y = nil
		fd.V = nil
		fd.A = nil
	}},
	driver.FourCCY416: {[]fourcc.Format{fourcc.Y416}, []uint32{8}, func(buf []byte, img *driver.Image, fd *FrameData) {
		fd.U16 = u16(at(buf, img.Offsets[0]))
		fd.Y16 = fd.U16[1:]
		fd.V16 = fd.Y16[1:]
		fd.A = at(buf, img.Offsets[0]+6)
	}},
}

func semiPlanar16(buf []byte, img *driver.Image, fd *FrameData) {
	fd.Y16 = u16(at(buf, img.Offsets[0]))
	fd.U16 = u16(at(buf, img.Offsets[1]))
	fd.V16 = fd.U16[1:]
}

func packed422x16(buf []byte, img *driver.Image, fd *FrameData) {
	fd.Y16 = u16(at(buf, img.Offsets[0]))
	fd.U16 = fd.Y16[1:]
	fd.V16 = fd.Y16[3:]
}

// Lock maps the frame for CPU access and fills fd. A frame can only be
// locked once at a time.
func (a *Allocator) Lock(mid *MemID, fd *FrameData) error {
	if mid == nil || mid.surface == nil {
		return ErrInvalidHandle
	}
	if fd == nil {
		return ErrNullArgument
	}
	if mid.locked {
		return fmt.Errorf("%w: surface %d is already locked", ErrInvalidState, *mid.surface)
	}

	canonical := fourcc.Canonical(mid.format)
	if canonical == fourcc.P8 {
		if err := a.lockBitstream(mid, fd); err != nil {
			return err
		}
	} else {
		if err := a.lockImage(mid, canonical, fd); err != nil {
			return err
		}
	}

	mid.locked = true
	a.locked.Add(1)
	a.metrics.Locks.Inc()
	return nil
}

func (a *Allocator) lockBitstream(mid *MemID, fd *FrameData) error {
	buf := driver.BufferID(*mid.surface)
	fd.clear()
	if mid.format == fourcc.VP8SegMap {
		data, err := a.drv.MapBuffer(a.dpy, buf)
		if err != nil {
			return statusError(err)
		}
		fd.Y = data
		return nil
	}

	segment, err := a.drv.MapCodedBuffer(a.dpy, buf)
	if err != nil {
		return statusError(err)
	}
	fd.Y = segment.Buf
	return nil
}

func (a *Allocator) lockImage(mid *MemID, canonical fourcc.Format, fd *FrameData) error {
	img, err := a.drv.DeriveImage(a.dpy, *mid.surface)
	if err != nil {
		return statusError(err)
	}
	buf, err := a.drv.MapBuffer(a.dpy, img.Buf)
	if err != nil {
		a.destroyImage(img)
		return statusError(err)
	}

	fail := func(format string, args ...any) error {
		a.unmapBuffer(img.Buf)
		a.destroyImage(img)
		return fmt.Errorf("%w: %s", ErrLockMemory, fmt.Sprintf(format, args...))
	}

	layout, ok := planeLayouts[img.Format.FourCC]
	if !ok {
		return fail("driver reported unknown format %s", img.Format.FourCC)
	}
	if !slices.Contains(layout.accepts, canonical) {
		return fail("driver reported %s for a %s frame", img.Format.FourCC, mid.format)
	}
	for i, n := range layout.reads {
		if off := img.Offsets[i]; uint64(off)+uint64(n) > uint64(len(buf)) {
			return fail("plane %d at offset %d outside of %d byte mapping", i, off, len(buf))
		}
	}

	var out FrameData
	layout.planes(buf, &img, &out)
	out.PitchHigh = uint16(img.Pitches[0] >> 16)
	out.PitchLow = uint16(img.Pitches[0] & 0xffff)
	*fd = out
	mid.image = img
	return nil
}

// Unlock unmaps the frame and clears fd. The derived image is destroyed,
// the next Lock derives a fresh one.
func (a *Allocator) Unlock(mid *MemID, fd *FrameData) error {
	if mid == nil || mid.surface == nil {
		return ErrInvalidHandle
	}
	if !mid.locked {
		return fmt.Errorf("%w: surface %d is not locked", ErrInvalidState, *mid.surface)
	}

	var err error
	if fourcc.IsBitstream(mid.format) {
		err = statusError(a.drv.UnmapBuffer(a.dpy, driver.BufferID(*mid.surface)))
	} else {
		err = errors.Join(
			statusError(a.drv.UnmapBuffer(a.dpy, mid.image.Buf)),
			statusError(a.drv.DestroyImage(a.dpy, mid.image.ID)),
		)
		mid.image = driver.Image{}
	}
	if fd != nil {
		fd.clear()
	}

	mid.locked = false
	a.locked.Add(-1)
	return err
}
