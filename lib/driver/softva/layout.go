//go:build linux

package softva

import "github.com/fosdem/vaframes/lib/driver"

func alignUp(v, a uint32) uint32 {
	return (v + a - 1) / a * a
}

// layout returns the image description (without ids) and the backing
// size of a w x h surface in the given format.
func layout(fcc driver.FourCC, w, h, align uint32) (driver.Image, uint32, error) {
	img := driver.Image{
		Format: driver.ImageFormat{FourCC: fcc, ByteOrder: 1},
		Width:  uint16(w),
		Height: uint16(h),
	}
	ch := (h + 1) / 2

	switch fcc {
	case driver.FourCCNV12, driver.FourCCP010, driver.FourCCP016:
		bpc := uint32(1)
		img.Format.BitsPerPixel = 12
		if fcc != driver.FourCCNV12 {
			bpc = 2
			img.Format.BitsPerPixel = 24
		}
		p := alignUp(w*bpc, align)
		img.NumPlanes = 2
		img.Pitches = [3]uint32{p, p, 0}
		img.Offsets = [3]uint32{0, p * h, 0}
		img.DataSize = p*h + p*ch
	case driver.FourCCYV12:
		p := alignUp(w, align)
		cp := p / 2
		img.Format.BitsPerPixel = 12
		img.NumPlanes = 3
		img.Pitches = [3]uint32{p, cp, cp}
		img.Offsets = [3]uint32{0, p * h, p*h + cp*ch}
		img.DataSize = p*h + 2*cp*ch
	case driver.FourCCRGBP:
		p := alignUp(w, align)
		img.Format.BitsPerPixel = 24
		img.NumPlanes = 3
		img.Pitches = [3]uint32{p, p, p}
		img.Offsets = [3]uint32{0, p * h, 2 * p * h}
		img.DataSize = 3 * p * h
	case driver.FourCCP208:
		packed(&img, 1, w, h, align)
	case driver.FourCCYUY2, driver.FourCCUYVY, driver.FourCCRGB565:
		packed(&img, 2, w, h, align)
	case driver.FourCCY210, driver.FourCCY216, driver.FourCCAYUV, driver.FourCCY410,
		driver.FourCCARGB, driver.FourCCABGR, driver.FourCCRGBA, driver.FourCCA2R10G10B10:
		packed(&img, 4, w, h, align)
	case driver.FourCCY416:
		packed(&img, 8, w, h, align)
	default:
		return img, 0, driver.StatusInvalidImageFormat
	}
	return img, img.DataSize, nil
}

func packed(img *driver.Image, bpp, w, h, align uint32) {
	p := alignUp(w*bpp, align)
	img.Format.BitsPerPixel = bpp * 8
	img.NumPlanes = 1
	img.Pitches = [3]uint32{p, 0, 0}
	img.DataSize = p * h
}

var rtDefaults = map[uint32]driver.FourCC{
	driver.RTFormatYUV420:   driver.FourCCNV12,
	driver.RTFormatYUV422:   driver.FourCCYUY2,
	driver.RTFormatYUV444:   driver.FourCCAYUV,
	driver.RTFormatRGB32:    driver.FourCCARGB,
	driver.RTFormatRGBP:     driver.FourCCRGBP,
	driver.RTFormatRGB32_10: driver.FourCCA2R10G10B10,
}

// surfaceFourCC picks the memory format of a new surface: an explicit
// pixel format attribute wins, then a format argument that is itself a
// fourcc, then the render target class default.
func surfaceFourCC(format uint32, attribs []driver.SurfaceAttrib) (driver.FourCC, error) {
	var fcc driver.FourCC
	for _, a := range attribs {
		if a.Type == driver.SurfaceAttribPixelFormat {
			fcc = driver.FourCC(uint32(a.Value))
		}
	}
	if fcc == 0 {
		if _, _, err := layout(driver.FourCC(format), 1, 1, 1); err == nil {
			fcc = driver.FourCC(format)
		} else if d, ok := rtDefaults[format]; ok {
			fcc = d
		} else {
			return 0, driver.StatusUnsupportedRTFormat
		}
	}
	if format == driver.RTFormatRGB32_10 && fcc == driver.FourCCARGB {
		fcc = driver.FourCCA2R10G10B10
	}
	return fcc, nil
}
