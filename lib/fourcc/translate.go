package fourcc

import (
	"errors"
	"fmt"

	"github.com/fosdem/vaframes/lib/driver"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrNotLockable       = errors.New("driver format cannot be locked")
)

var driverFormats = map[Format]driver.FourCC{
	NV12:    driver.FourCCNV12,
	YUY2:    driver.FourCCYUY2,
	UYVY:    driver.FourCCUYVY,
	YV12:    driver.FourCCYV12,
	RGB565:  driver.FourCCRGB565,
	RGBP:    driver.FourCCRGBP,
	RGB4:    driver.FourCCARGB,
	BGR4:    driver.FourCCABGR,
	P8:      driver.FourCCP208,
	P010:    driver.FourCCP010,
	A2RGB10: driver.FourCCARGB, // created with the 10bpp render target format
	AYUV:    driver.FourCCAYUV,
	Y210:    driver.FourCCY210,
	Y410:    driver.FourCCY410,
	P016:    driver.FourCCP016,
	Y216:    driver.FourCCY216,
	Y416:    driver.FourCCY416,
}

// lockable lists the driver formats Lock knows how to interpret. The
// driver may create surfaces in formats outside it.
var lockable = map[driver.FourCC]bool{
	driver.FourCCNV12:   true,
	driver.FourCCYV12:   true,
	driver.FourCCYUY2:   true,
	driver.FourCCARGB:   true,
	driver.FourCCABGR:   true,
	driver.FourCCP208:   true,
	driver.FourCCP010:   true,
	driver.FourCCY210:   true,
	driver.FourCCY410:   true,
	driver.FourCCRGB565: true,
	driver.FourCCRGBP:   true,
	driver.FourCCP016:   true,
	driver.FourCCY216:   true,
	driver.FourCCY416:   true,
	driver.FourCCAYUV:   true,
}

// ToDriverFormat maps a canonical format to the driver's format code.
func ToDriverFormat(f Format) (driver.FourCC, error) {
	d, ok := driverFormats[f]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	return d, nil
}

// Canonical normalises the VP8 hybrid aliases. Every other format is
// returned as is.
func Canonical(f Format) Format {
	switch f {
	case VP8NV12, VP8MBData:
		return NV12
	case VP8SegMap:
		return P8
	default:
		return f
	}
}

func IsBitstream(f Format) bool {
	return Canonical(f) == P8
}

// Resolve canonicalises f, translates it and checks that the result can
// be locked. A format that translates but cannot be locked fails with
// ErrNotLockable.
func Resolve(f Format) (driver.FourCC, error) {
	d, err := ToDriverFormat(Canonical(f))
	if err != nil {
		return 0, err
	}
	if !lockable[d] {
		return 0, fmt.Errorf("%w: %s (%s)", ErrNotLockable, d, f)
	}
	return d, nil
}

// Supported returns every canonical format ToDriverFormat accepts.
func Supported() []Format {
	out := make([]Format, 0, len(driverFormats))
	for f := range driverFormats {
		out = append(out, f)
	}
	return out
}

// RTFormat returns the format argument for surface creation. NV12 and
// the packed 4:2:2 formats use their render target class, the VP8
// macroblock data surfaces are created as P208, and everything else
// passes the driver fourcc through.
func RTFormat(f Format, d driver.FourCC) uint32 {
	switch {
	case f == VP8NV12:
		return uint32(d)
	case f == VP8MBData:
		return uint32(driver.FourCCP208)
	case d == driver.FourCCNV12:
		return driver.RTFormatYUV420
	case d == driver.FourCCUYVY || d == driver.FourCCYUY2:
		return driver.RTFormatYUV422
	case f == A2RGB10:
		return driver.RTFormatRGB32_10
	case f == RGBP:
		return driver.RTFormatRGBP
	default:
		return uint32(d)
	}
}
