package allocator

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fosdem/vaframes/lib/driver"
)

// A 3D LUT with 65 points per axis, laid out as 65*128 x 65*2 RGBA.
const (
	lutSegSize = 65
	lutMulSize = 128
)

// Create3DLut creates an RGBA surface and uploads up to one frame of
// LUT data from path into it.
func (a *Allocator) Create3DLut(path string) (driver.SurfaceID, error) {
	f, err := os.Open(path)
	if err != nil {
		return driver.InvalidID, fmt.Errorf("could not open 3dlut %s: %w", path, err)
	}
	defer func(f *os.File) {
		err := f.Close()
		if err != nil {
			a.log.Warn("could not close 3dlut file", "path", path, "err", err)
		}
	}(f)

	ids := make([]driver.SurfaceID, 1)
	attribs := []driver.SurfaceAttrib{{
		Type:  driver.SurfaceAttribPixelFormat,
		Flags: driver.SurfaceAttribSettable,
		Value: int32(driver.FourCCRGBA),
	}}
	err = a.drv.CreateSurfaces(a.dpy, driver.RTFormatRGB32, lutSegSize*lutMulSize, lutSegSize*2, ids, attribs)
	if err != nil {
		return driver.InvalidID, fmt.Errorf("%w: could not create 3dlut surface: %w", ErrUnsupported, err)
	}
	id := ids[0]

	if err := a.upload3DLut(id, f); err != nil {
		if err := a.drv.DestroySurfaces(a.dpy, ids); err != nil {
			a.log.Warn("could not destroy 3dlut surface", "surface", id, "err", err)
		}
		return driver.InvalidID, err
	}
	a.addSurfaces(1)
	a.log.Info("created 3dlut surface", "surface", id, "path", path)
	return id, nil
}

func (a *Allocator) upload3DLut(id driver.SurfaceID, r io.Reader) error {
	if err := a.drv.SyncSurface(a.dpy, id); err != nil {
		return fmt.Errorf("%w: could not sync 3dlut surface: %w", ErrUnsupported, err)
	}
	img, err := a.drv.DeriveImage(a.dpy, id)
	if err != nil {
		return fmt.Errorf("%w: could not derive 3dlut image: %w", ErrUnsupported, err)
	}
	defer a.destroyImage(img)
	mapped, err := a.drv.MapBuffer(a.dpy, img.Buf)
	if err != nil {
		return fmt.Errorf("%w: could not map 3dlut image: %w", ErrUnsupported, err)
	}
	defer a.unmapBuffer(img.Buf)

	if img.Format.FourCC != driver.FourCCRGBA {
		a.log.Warn("3dlut surface is not RGBA, leaving it empty", "format", img.Format.FourCC.String())
		return nil
	}
	frameSize := min(int(img.Width)*int(img.Height)*4, len(mapped))
	n, err := io.ReadFull(r, mapped[:frameSize])
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("could not read 3dlut: %w", err)
	}
	a.log.Debug("uploaded 3dlut",
		"width", img.Width, "height", img.Height, "pitch", img.Pitches[0],
		"frame_size", frameSize, "read", n)
	return nil
}

func (a *Allocator) Release3DLut(id driver.SurfaceID) error {
	if err := a.drv.DestroySurfaces(a.dpy, []driver.SurfaceID{id}); err != nil {
		return statusError(err)
	}
	a.addSurfaces(-1)
	return nil
}
