package allocator

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/fosdem/vaframes/lib/driver"
	"github.com/fosdem/vaframes/lib/fourcc"
)

type MemType uint16

const (
	MemTypeInternalFrame              MemType = 0x0001
	MemTypeExternalFrame              MemType = 0x0002
	MemTypeExportFrame                MemType = 0x0008
	MemTypeVideoMemoryDecoderTarget   MemType = 0x0010
	MemTypeVideoMemoryProcessorTarget MemType = 0x0020
	MemTypeSystemMemory               MemType = 0x0040
	MemTypeFromEncode                 MemType = 0x0100
	MemTypeFromDecode                 MemType = 0x0200
	MemTypeFromVPPIn                  MemType = 0x0400
	MemTypeFromVPPOut                 MemType = 0x0800
	MemTypeVideoMemoryEncoderTarget   MemType = 0x1000
	MemTypeFromEnc                    MemType = 0x2000
	MemTypeFromPAK                    MemType = 0x4000
)

const (
	memTypeFromMask        = MemTypeFromEncode | MemTypeFromDecode | MemTypeFromVPPIn | MemTypeFromVPPOut | MemTypeFromEnc | MemTypeFromPAK
	memTypeVideoTargetMask = MemTypeVideoMemoryDecoderTarget | MemTypeVideoMemoryProcessorTarget
)

var memTypeNames = []struct {
	t    MemType
	name string
}{
	{MemTypeInternalFrame, "internal"},
	{MemTypeExternalFrame, "external"},
	{MemTypeExportFrame, "export"},
	{MemTypeVideoMemoryDecoderTarget, "decoder_target"},
	{MemTypeVideoMemoryProcessorTarget, "processor_target"},
	{MemTypeSystemMemory, "system_memory"},
	{MemTypeFromEncode, "from_encode"},
	{MemTypeFromDecode, "from_decode"},
	{MemTypeFromVPPIn, "from_vppin"},
	{MemTypeFromVPPOut, "from_vppout"},
	{MemTypeVideoMemoryEncoderTarget, "encoder_target"},
	{MemTypeFromEnc, "from_enc"},
	{MemTypeFromPAK, "from_pak"},
}

func ParseMemType(s string) (MemType, error) {
	for _, n := range memTypeNames {
		if strings.EqualFold(n.name, s) {
			return n.t, nil
		}
	}
	return 0, fmt.Errorf("unknown memory type %q", s)
}

func (m MemType) String() string {
	var parts []string
	for _, n := range memTypeNames {
		if m&n.t != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

type FrameInfo struct {
	FourCC fourcc.Format
	Width  uint32
	Height uint32
}

// Request asks for NumFrameSuggested frames. AllocID is the driver
// context that bitstream buffers are created in.
type Request struct {
	Info              FrameInfo
	Type              MemType
	NumFrameMin       uint16
	NumFrameSuggested uint16
	AllocID           driver.ContextID
}

// Response is either fully populated or empty.
type Response struct {
	MemIDs         []*MemID
	NumFrameActual uint16
}

// batch owns the driver objects of one Alloc call. For bitstream
// memory the surface slots hold buffer ids.
type batch struct {
	surfaces  []driver.SurfaceID
	mids      []MemID
	bitstream bool
}

// MemID is the handle of one allocated frame.
type MemID struct {
	surface *driver.SurfaceID
	batch   *batch

	format       fourcc.Format
	driverFormat driver.FourCC
	width        uint32
	height       uint32

	locked bool
	image  driver.Image

	nativeExport bool
	exportImage  driver.Image
	bufferInfo   driver.BufferInfo
	custom       unsafe.Pointer
}

func (m *MemID) Format() fourcc.Format {
	return m.format
}

func (m *MemID) DriverFormat() driver.FourCC {
	return m.driverFormat
}

func (m *MemID) Width() uint32 {
	return m.width
}

func (m *MemID) Height() uint32 {
	return m.height
}

func (m *MemID) Surface() driver.SurfaceID {
	if m.surface == nil {
		return driver.InvalidID
	}
	return *m.surface
}

// BufferInfo is the native export handle, valid when the allocator
// exports through FLINK or PRIME.
func (m *MemID) BufferInfo() driver.BufferInfo {
	return m.bufferInfo
}

// Token is what the custom exporter returned for this frame.
func (m *MemID) Token() unsafe.Pointer {
	return m.custom
}

func (m *MemID) Locked() bool {
	return m.locked
}

// CodedBufferSize is the size of one coded bitstream buffer for a
// w x h frame: the 32-aligned area at 400 bytes per 16x16 macroblock.
func CodedBufferSize(w, h uint32) uint32 {
	w32 := 32 * ((uint64(w) + 31) >> 5)
	h32 := 32 * ((uint64(h) + 31) >> 5)
	return uint32(w32 * h32 * 400 / (16 * 16))
}
