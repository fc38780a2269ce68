// Package driver describes the video acceleration driver the allocator
// talks to. The vocabulary follows VA-API: surfaces, buffers, derived
// images and exported buffer handles.
package driver

import "fmt"

type Display uintptr

const NoDisplay Display = 0

type (
	SurfaceID uint32
	BufferID  uint32
	ImageID   uint32
	ContextID uint32
)

const InvalidID = 0xffffffff

// FourCC is the driver's own pixel format code.
type FourCC uint32

func MakeFourCC(a, b, c, d byte) FourCC {
	return FourCC(uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24)
}

const (
	FourCCNV12        = FourCC('N' | 'V'<<8 | '1'<<16 | '2'<<24)
	FourCCYV12        = FourCC('Y' | 'V'<<8 | '1'<<16 | '2'<<24)
	FourCCYUY2        = FourCC('Y' | 'U'<<8 | 'Y'<<16 | '2'<<24)
	FourCCUYVY        = FourCC('U' | 'Y'<<8 | 'V'<<16 | 'Y'<<24)
	FourCCRGB565      = FourCC('R' | 'G'<<8 | '1'<<16 | '6'<<24)
	FourCCRGBP        = FourCC('R' | 'G'<<8 | 'B'<<16 | 'P'<<24)
	FourCCARGB        = FourCC('A' | 'R'<<8 | 'G'<<16 | 'B'<<24)
	FourCCABGR        = FourCC('A' | 'B'<<8 | 'G'<<16 | 'R'<<24)
	FourCCRGBA        = FourCC('R' | 'G'<<8 | 'B'<<16 | 'A'<<24)
	FourCCP208        = FourCC('P' | '2'<<8 | '0'<<16 | '8'<<24)
	FourCCP010        = FourCC('P' | '0'<<8 | '1'<<16 | '0'<<24)
	FourCCP016        = FourCC('P' | '0'<<8 | '1'<<16 | '6'<<24)
	FourCCA2R10G10B10 = FourCC('A' | 'R'<<8 | '3'<<16 | '0'<<24)
	FourCCAYUV        = FourCC('A' | 'Y'<<8 | 'U'<<16 | 'V'<<24)
	FourCCY210        = FourCC('Y' | '2'<<8 | '1'<<16 | '0'<<24)
	FourCCY216        = FourCC('Y' | '2'<<8 | '1'<<16 | '6'<<24)
	FourCCY410        = FourCC('Y' | '4'<<8 | '1'<<16 | '0'<<24)
	FourCCY416        = FourCC('Y' | '4'<<8 | '1'<<16 | '6'<<24)
)

func (f FourCC) String() string {
	b := []byte{byte(f), byte(f >> 8), byte(f >> 16), byte(f >> 24)}
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return fmt.Sprintf("0x%08x", uint32(f))
		}
	}
	return string(b)
}

// Render target formats, passed as the format argument of CreateSurfaces.
const (
	RTFormatYUV420   uint32 = 0x00000001
	RTFormatYUV422   uint32 = 0x00000002
	RTFormatYUV444   uint32 = 0x00000004
	RTFormatRGB32    uint32 = 0x00020000
	RTFormatRGBP     uint32 = 0x00100000
	RTFormatRGB32_10 uint32 = 0x00200000
)

type SurfaceAttribType int

const (
	SurfaceAttribNone SurfaceAttribType = iota
	SurfaceAttribPixelFormat
	SurfaceAttribMinWidth
	SurfaceAttribMaxWidth
	SurfaceAttribMinHeight
	SurfaceAttribMaxHeight
	SurfaceAttribMemoryType
	SurfaceAttribExternalBufferDescriptor
	SurfaceAttribUsageHint
)

const (
	SurfaceAttribGettable uint32 = 0x1
	SurfaceAttribSettable uint32 = 0x2
)

const (
	UsageHintGeneric  int32 = 0x00
	UsageHintDecoder  int32 = 0x01
	UsageHintEncoder  int32 = 0x02
	UsageHintVPPRead  int32 = 0x04
	UsageHintVPPWrite int32 = 0x08
	UsageHintDisplay  int32 = 0x10
)

type SurfaceAttrib struct {
	Type  SurfaceAttribType
	Flags uint32
	Value int32
}

type BufferType int

const (
	ImageBufferType              BufferType = 9
	EncCodedBufferType           BufferType = 21
	EncMacroblockMapBufferType   BufferType = 29
	ProcPipelineParameterBuffers BufferType = 41
)

type ImageFormat struct {
	FourCC       FourCC
	ByteOrder    uint32
	BitsPerPixel uint32
}

// Image is a CPU-accessible description of a surface's memory. It is
// only meaningful while its buffer is mapped.
type Image struct {
	ID        ImageID
	Format    ImageFormat
	Buf       BufferID
	Width     uint16
	Height    uint16
	DataSize  uint32
	NumPlanes uint32
	Pitches   [3]uint32
	Offsets   [3]uint32
}

type MemType uint32

const (
	MemTypeKernelDRM MemType = 0x10000000
	MemTypeDRMPrime  MemType = 0x20000000
)

// BufferInfo describes a low level buffer handle. MemType is set by the
// caller before AcquireBufferHandle, Handle and MemSize by the driver.
type BufferInfo struct {
	Handle  uintptr
	Type    uint32
	MemType MemType
	MemSize uint64
}

// CodedBufferSegment is the payload of a mapped coded buffer.
type CodedBufferSegment struct {
	Size      uint32
	BitOffset uint32
	Status    uint32
	Buf       []byte
	Next      *CodedBufferSegment
}

//go:generate mockgen -source=driver.go -destination=mock_driver/mock_driver.go

// Driver is the hardware acceleration driver. Every call returns nil or
// a Status.
type Driver interface {
	// CreateSurfaces fills surfaces with len(surfaces) new surface ids.
	CreateSurfaces(dpy Display, format uint32, width, height uint32, surfaces []SurfaceID, attribs []SurfaceAttrib) error
	DestroySurfaces(dpy Display, surfaces []SurfaceID) error
	SyncSurface(dpy Display, surface SurfaceID) error

	CreateBuffer(dpy Display, ctx ContextID, typ BufferType, size, num uint32) (BufferID, error)
	DestroyBuffer(dpy Display, buf BufferID) error
	MapBuffer(dpy Display, buf BufferID) ([]byte, error)
	MapCodedBuffer(dpy Display, buf BufferID) (*CodedBufferSegment, error)
	UnmapBuffer(dpy Display, buf BufferID) error

	DeriveImage(dpy Display, surface SurfaceID) (Image, error)
	DestroyImage(dpy Display, image ImageID) error

	AcquireBufferHandle(dpy Display, buf BufferID, info *BufferInfo) error
	ReleaseBufferHandle(dpy Display, buf BufferID) error
}
