//go:build linux

package softva

import (
	"testing"

	"github.com/fosdem/vaframes/lib/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newDriver(t *testing.T, opts ...Option) *Driver {
	d := New(opts...)
	t.Cleanup(d.Close)
	return d
}

func TestCreateSurfaces(t *testing.T) {
	d := newDriver(t)
	ids := make([]driver.SurfaceID, 3)

	err := d.CreateSurfaces(d.Display(), driver.RTFormatYUV420, 64, 48, ids, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, d.NumSurfaces())
	assert.NotEqual(t, ids[0], ids[1])

	img, err := d.DeriveImage(d.Display(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, driver.FourCCNV12, img.Format.FourCC)
	assert.Equal(t, uint32(2), img.NumPlanes)
	assert.Equal(t, uint32(64), img.Pitches[0])
	assert.Equal(t, uint32(64*48), img.Offsets[1])

	assert.ErrorIs(t, d.DestroySurfaces(d.Display(), ids), driver.StatusSurfaceBusy)
	require.NoError(t, d.DestroyImage(d.Display(), img.ID))
	require.NoError(t, d.DestroySurfaces(d.Display(), ids))
	assert.Equal(t, 0, d.NumSurfaces())
}

func TestCreateSurfacesErrors(t *testing.T) {
	d := newDriver(t)
	ids := make([]driver.SurfaceID, 1)

	assert.ErrorIs(t, d.CreateSurfaces(driver.NoDisplay, driver.RTFormatYUV420, 16, 16, ids, nil), driver.StatusInvalidDisplay)
	assert.ErrorIs(t, d.CreateSurfaces(d.Display(), driver.RTFormatYUV420, 0, 16, ids, nil), driver.StatusInvalidParameter)
	assert.ErrorIs(t, d.CreateSurfaces(d.Display(), driver.RTFormatYUV420, 32768, 16, ids, nil), driver.StatusResolutionNotSupported)
	assert.ErrorIs(t, d.CreateSurfaces(d.Display(), 0x4242, 16, 16, ids, nil), driver.StatusUnsupportedRTFormat)
	assert.Equal(t, 0, d.NumSurfaces())
}

func TestSurfaceFourCC(t *testing.T) {
	pixel := func(f driver.FourCC) []driver.SurfaceAttrib {
		return []driver.SurfaceAttrib{{Type: driver.SurfaceAttribPixelFormat, Flags: driver.SurfaceAttribSettable, Value: int32(f)}}
	}
	hint := []driver.SurfaceAttrib{{Type: driver.SurfaceAttribUsageHint, Value: driver.UsageHintEncoder}}

	cases := []struct {
		name    string
		format  uint32
		attribs []driver.SurfaceAttrib
		want    driver.FourCC
	}{
		{"attribute wins", driver.RTFormatYUV420, pixel(driver.FourCCP010), driver.FourCCP010},
		{"fourcc as format", uint32(driver.FourCCARGB), hint, driver.FourCCARGB},
		{"render target default", driver.RTFormatYUV422, nil, driver.FourCCYUY2},
		{"10 bit rgb", driver.RTFormatRGB32_10, pixel(driver.FourCCARGB), driver.FourCCA2R10G10B10},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := surfaceFourCC(c.format, c.attribs)
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestDeriveImageSharesSurfaceMemory(t *testing.T) {
	d := newDriver(t)
	ids := make([]driver.SurfaceID, 1)
	require.NoError(t, d.CreateSurfaces(d.Display(), driver.RTFormatRGB32, 8, 8, ids, nil))

	first, err := d.DeriveImage(d.Display(), ids[0])
	require.NoError(t, err)
	mem, err := d.MapBuffer(d.Display(), first.Buf)
	require.NoError(t, err)
	mem[0] = 0xab
	require.NoError(t, d.UnmapBuffer(d.Display(), first.Buf))
	require.NoError(t, d.DestroyImage(d.Display(), first.ID))

	second, err := d.DeriveImage(d.Display(), ids[0])
	require.NoError(t, err)
	mem, err = d.MapBuffer(d.Display(), second.Buf)
	require.NoError(t, err)
	assert.Equal(t, byte(0xab), mem[0])
	assert.Equal(t, 1, d.NumMapped())
	require.NoError(t, d.UnmapBuffer(d.Display(), second.Buf))
	assert.ErrorIs(t, d.UnmapBuffer(d.Display(), second.Buf), driver.StatusOperationFailed)
	require.NoError(t, d.DestroyImage(d.Display(), second.ID))
	assert.Equal(t, 0, d.NumImages())
}

func TestFormatSubstitution(t *testing.T) {
	d := newDriver(t, WithFormatSubstitution(driver.FourCCNV12, driver.FourCCYV12))
	ids := make([]driver.SurfaceID, 1)
	require.NoError(t, d.CreateSurfaces(d.Display(), driver.RTFormatYUV420, 16, 16, ids, nil))

	img, err := d.DeriveImage(d.Display(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, driver.FourCCYV12, img.Format.FourCC)
	require.NoError(t, d.DestroyImage(d.Display(), img.ID))
}

func TestBuffers(t *testing.T) {
	d := newDriver(t)

	_, err := d.CreateBuffer(d.Display(), 0, driver.ImageBufferType, 16, 1)
	assert.ErrorIs(t, err, driver.StatusUnsupportedBufferType)

	coded, err := d.CreateBuffer(d.Display(), 0, driver.EncCodedBufferType, 256, 1)
	require.NoError(t, err)
	mbmap, err := d.CreateBuffer(d.Display(), 0, driver.EncMacroblockMapBufferType, 10, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, d.NumBuffers())

	seg, err := d.MapCodedBuffer(d.Display(), coded)
	require.NoError(t, err)
	assert.Len(t, seg.Buf, 256)
	require.NoError(t, d.UnmapBuffer(d.Display(), coded))

	data, err := d.MapBuffer(d.Display(), mbmap)
	require.NoError(t, err)
	assert.Len(t, data, 40)
	require.NoError(t, d.UnmapBuffer(d.Display(), mbmap))

	_, err = d.MapCodedBuffer(d.Display(), mbmap)
	assert.ErrorIs(t, err, driver.StatusInvalidBuffer)
	assert.Equal(t, 0, d.NumMapped())

	require.NoError(t, d.DestroyBuffer(d.Display(), coded))
	require.NoError(t, d.DestroyBuffer(d.Display(), mbmap))
	assert.ErrorIs(t, d.DestroyBuffer(d.Display(), mbmap), driver.StatusInvalidBuffer)
	assert.Equal(t, 0, d.NumBuffers())
}

func TestBufferHandles(t *testing.T) {
	d := newDriver(t)
	ids := make([]driver.SurfaceID, 1)
	require.NoError(t, d.CreateSurfaces(d.Display(), driver.RTFormatYUV420, 32, 32, ids, nil))
	img, err := d.DeriveImage(d.Display(), ids[0])
	require.NoError(t, err)

	info := driver.BufferInfo{MemType: driver.MemTypeDRMPrime}
	require.NoError(t, d.AcquireBufferHandle(d.Display(), img.Buf, &info))
	assert.Equal(t, uint64(img.DataSize), info.MemSize)
	assert.Equal(t, 1, d.NumHandles())

	var st unix.Stat_t
	require.NoError(t, unix.Fstat(int(info.Handle), &st))
	assert.Equal(t, int64(img.DataSize), st.Size)

	flink := driver.BufferInfo{MemType: driver.MemTypeKernelDRM}
	require.NoError(t, d.AcquireBufferHandle(d.Display(), img.Buf, &flink))
	assert.Equal(t, uintptr(0x10000+uint32(ids[0])), flink.Handle)

	other := driver.BufferInfo{MemType: 0x1}
	assert.ErrorIs(t, d.AcquireBufferHandle(d.Display(), img.Buf, &other), driver.StatusFlagNotSupported)

	require.NoError(t, d.ReleaseBufferHandle(d.Display(), img.Buf))
	require.NoError(t, d.ReleaseBufferHandle(d.Display(), img.Buf))
	assert.ErrorIs(t, d.ReleaseBufferHandle(d.Display(), img.Buf), driver.StatusInvalidBuffer)
	assert.Equal(t, 0, d.NumHandles())
	require.NoError(t, d.DestroyImage(d.Display(), img.ID))
}

func TestLayout(t *testing.T) {
	img, size, err := layout(driver.FourCCYV12, 20, 10, 16)
	require.NoError(t, err)
	assert.Equal(t, [3]uint32{32, 16, 16}, img.Pitches)
	assert.Equal(t, [3]uint32{0, 320, 320 + 80}, img.Offsets)
	assert.Equal(t, uint32(320+160), size)

	img, size, err = layout(driver.FourCCY416, 3, 2, 64)
	require.NoError(t, err)
	assert.Equal(t, uint32(64), img.Pitches[0])
	assert.Equal(t, uint32(128), size)

	_, _, err = layout(driver.FourCC(0x41414141), 16, 16, 64)
	assert.ErrorIs(t, err, driver.StatusInvalidImageFormat)
}

func TestDevice(t *testing.T) {
	assert.Empty(t, newDriver(t).Device())
	assert.Equal(t, "/dev/dri/renderD128", newDriver(t, WithDevice("/dev/dri/renderD128")).Device())
}
