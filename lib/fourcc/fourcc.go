// Package fourcc holds the pipeline's pixel format vocabulary and its
// translation into driver format codes.
package fourcc

import (
	"fmt"
	"strings"
)

// Format is the pipeline's pixel format identifier.
type Format uint32

const (
	NV12    Format = 'N' | 'V'<<8 | '1'<<16 | '2'<<24
	YV12    Format = 'Y' | 'V'<<8 | '1'<<16 | '2'<<24
	YUY2    Format = 'Y' | 'U'<<8 | 'Y'<<16 | '2'<<24
	UYVY    Format = 'U' | 'Y'<<8 | 'V'<<16 | 'Y'<<24
	RGB565  Format = 'R' | 'G'<<8 | 'B'<<16 | '2'<<24
	RGBP    Format = 'R' | 'G'<<8 | 'B'<<16 | 'P'<<24
	RGB4    Format = 'R' | 'G'<<8 | 'B'<<16 | '4'<<24
	BGR4    Format = 'B' | 'G'<<8 | 'R'<<16 | '4'<<24
	P010    Format = 'P' | '0'<<8 | '1'<<16 | '0'<<24
	P016    Format = 'P' | '0'<<8 | '1'<<16 | '6'<<24
	A2RGB10 Format = 'R' | 'G'<<8 | '1'<<16 | '0'<<24
	AYUV    Format = 'A' | 'Y'<<8 | 'U'<<16 | 'V'<<24
	Y210    Format = 'Y' | '2'<<8 | '1'<<16 | '0'<<24
	Y216    Format = 'Y' | '2'<<8 | '1'<<16 | '6'<<24
	Y410    Format = 'Y' | '4'<<8 | '1'<<16 | '0'<<24
	Y416    Format = 'Y' | '4'<<8 | '1'<<16 | '6'<<24

	// VP8 hybrid encoder aliases. They carry auxiliary per-macroblock
	// data next to a primary format and are normalised by Canonical.
	VP8NV12   Format = 'V' | 'P'<<8 | '8'<<16 | 'N'<<24
	VP8MBData Format = 'V' | 'P'<<8 | '8'<<16 | 'M'<<24
	VP8SegMap Format = 'V' | 'P'<<8 | '8'<<16 | 'S'<<24
)

// P8 is the bitstream placeholder: memory that holds coded data or
// macroblock maps rather than pixels.
const P8 Format = 41

var names = map[Format]string{
	NV12:      "NV12",
	YV12:      "YV12",
	YUY2:      "YUY2",
	UYVY:      "UYVY",
	RGB565:    "RGB565",
	RGBP:      "RGBP",
	RGB4:      "RGB4",
	BGR4:      "BGR4",
	P8:        "P8",
	P010:      "P010",
	P016:      "P016",
	A2RGB10:   "A2RGB10",
	AYUV:      "AYUV",
	Y210:      "Y210",
	Y216:      "Y216",
	Y410:      "Y410",
	Y416:      "Y416",
	VP8NV12:   "VP8_NV12",
	VP8MBData: "VP8_MBDATA",
	VP8SegMap: "VP8_SEGMAP",
}

func (f Format) String() string {
	if name, ok := names[f]; ok {
		return name
	}
	return fmt.Sprintf("0x%08x", uint32(f))
}

// Parse accepts the names printed by String, case-insensitively.
func Parse(s string) (Format, error) {
	for f, name := range names {
		if strings.EqualFold(name, s) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown pixel format %q", s)
}

func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Format) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
