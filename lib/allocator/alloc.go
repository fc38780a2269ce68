package allocator

import (
	"errors"
	"fmt"

	"github.com/fosdem/vaframes/lib/driver"
	"github.com/fosdem/vaframes/lib/fourcc"
)

// resolve maps a requested format onto a lockable driver format.
func resolve(f fourcc.Format) (driver.FourCC, error) {
	d, err := fourcc.Resolve(f)
	if errors.Is(err, fourcc.ErrNotLockable) {
		return 0, fmt.Errorf("%w: %w", ErrMemoryAlloc, err)
	}
	return d, err
}

// surfaceAttribs returns the creation attributes and format for a
// surface. The VP8 hybrid NV12 surfaces and RGB32 encoder targets are
// created with an encoder usage hint instead of a pixel format; VP8
// macroblock data surfaces are forced to P208.
func surfaceAttribs(f fourcc.Format, d driver.FourCC, memType MemType) ([]driver.SurfaceAttrib, uint32) {
	attrib := driver.SurfaceAttrib{
		Type:  driver.SurfaceAttribPixelFormat,
		Flags: driver.SurfaceAttribSettable,
		Value: int32(d),
	}
	encoderRGB := memType&MemTypeVideoMemoryEncoderTarget != 0 && (f == fourcc.RGB4 || f == fourcc.BGR4)
	switch {
	case f == fourcc.VP8NV12 || encoderRGB:
		attrib.Type = driver.SurfaceAttribUsageHint
		attrib.Value = driver.UsageHintEncoder
	case f == fourcc.VP8MBData:
		attrib.Value = int32(driver.FourCCP208)
	}
	return []driver.SurfaceAttrib{attrib}, fourcc.RTFormat(f, d)
}

// Alloc creates req.NumFrameSuggested frames. On failure everything
// created so far is destroyed and resp is left empty.
func (a *Allocator) Alloc(req *Request, resp *Response) error {
	if req == nil || resp == nil {
		return ErrNullArgument
	}
	*resp = Response{}

	f := req.Info.FourCC
	d, err := resolve(f)
	if err != nil {
		a.allocFailed()
		return err
	}
	n := int(req.NumFrameSuggested)
	if n == 0 {
		a.allocFailed()
		return fmt.Errorf("%w: zero frames requested", ErrMemoryAlloc)
	}

	b := &batch{
		surfaces:  make([]driver.SurfaceID, n),
		mids:      make([]MemID, n),
		bitstream: fourcc.IsBitstream(f),
	}
	for i := range b.mids {
		b.mids[i] = MemID{
			surface:      &b.surfaces[i],
			batch:        b,
			format:       f,
			driverFormat: d,
			width:        req.Info.Width,
			height:       req.Info.Height,
		}
	}

	created := 0
	if b.bitstream {
		created, err = a.createBuffers(req, b)
	} else {
		attribs, format := surfaceAttribs(f, d, req.Type)
		err = statusError(a.drv.CreateSurfaces(a.dpy, format, req.Info.Width, req.Info.Height, b.surfaces, attribs))
		if err == nil {
			created = n
		}
	}

	if err == nil && req.Type&MemTypeExportFrame != 0 {
		err = a.exportBatch(b)
	}

	if err != nil {
		a.unwind(b, created)
		a.allocFailed()
		a.log.Warn("allocation failed", "format", f.String(), "count", n, "err", err)
		return err
	}

	if b.bitstream {
		a.addBuffers(int64(n))
	} else {
		a.addSurfaces(int64(n))
	}
	a.allocations.Add(1)
	a.metrics.Allocations.Inc()

	resp.MemIDs = make([]*MemID, n)
	for i := range b.mids {
		resp.MemIDs[i] = &b.mids[i]
	}
	resp.NumFrameActual = uint16(n)
	a.log.Debug("allocated frames", "format", f.String(), "count", n, "width", req.Info.Width, "height", req.Info.Height)
	return nil
}

func (a *Allocator) allocFailed() {
	a.failures.Add(1)
	a.metrics.AllocationFailures.Inc()
}

// createBuffers allocates bitstream buffers: macroblock maps sized
// width x height, or coded buffers sized by CodedBufferSize. It returns
// how many buffers exist when it stops.
func (a *Allocator) createBuffers(req *Request, b *batch) (int, error) {
	typ := driver.EncCodedBufferType
	size := CodedBufferSize(req.Info.Width, req.Info.Height)
	num := uint32(1)
	if req.Info.FourCC == fourcc.VP8SegMap {
		typ = driver.EncMacroblockMapBufferType
		size = req.Info.Width
		num = req.Info.Height
	}

	for i := range b.surfaces {
		id, err := a.drv.CreateBuffer(a.dpy, req.AllocID, typ, size, num)
		if err != nil {
			return i, statusError(err)
		}
		b.surfaces[i] = driver.SurfaceID(id)
	}
	return len(b.surfaces), nil
}

func (a *Allocator) unwind(b *batch, created int) {
	for i := range b.mids {
		a.unexport(&b.mids[i])
	}
	if b.bitstream {
		for i := 0; i < created; i++ {
			if err := a.drv.DestroyBuffer(a.dpy, driver.BufferID(b.surfaces[i])); err != nil {
				a.log.Warn("could not destroy buffer while unwinding", "buffer", b.surfaces[i], "err", err)
			}
		}
	} else if created > 0 {
		if err := a.drv.DestroySurfaces(a.dpy, b.surfaces); err != nil {
			a.log.Warn("could not destroy surfaces while unwinding", "err", err)
		}
	}
	for i := range b.mids {
		b.mids[i].surface = nil
		b.mids[i].batch = nil
	}
}

func (a *Allocator) exportBatch(b *batch) error {
	if a.exportMode == DoNotExport {
		return fmt.Errorf("%w: export requested but the allocator does not export", ErrUnknown)
	}
	for i := range b.mids {
		if err := a.export(&b.mids[i]); err != nil {
			return err
		}
	}
	return nil
}

func (a *Allocator) export(mid *MemID) error {
	if a.exportMode&NativeExportMask != 0 {
		mid.bufferInfo.MemType = driver.MemTypeKernelDRM
		if a.exportMode&ExportPrime != 0 {
			mid.bufferInfo.MemType = driver.MemTypeDRMPrime
		}
		img, err := a.drv.DeriveImage(a.dpy, *mid.surface)
		if err != nil {
			return statusError(err)
		}
		if err := a.drv.AcquireBufferHandle(a.dpy, img.Buf, &mid.bufferInfo); err != nil {
			a.destroyImage(img)
			return statusError(err)
		}
		mid.exportImage = img
		mid.nativeExport = true
	}
	if a.exporter != nil {
		mid.custom = a.exporter.Acquire(mid)
		if mid.custom == nil {
			return fmt.Errorf("%w: exporter refused surface %d", ErrUnknown, *mid.surface)
		}
	}
	return nil
}

func (a *Allocator) unexport(mid *MemID) {
	if a.exporter != nil && mid.custom != nil {
		a.exporter.Release(mid, mid.custom)
		mid.custom = nil
	}
	if mid.nativeExport {
		if err := a.drv.ReleaseBufferHandle(a.dpy, mid.exportImage.Buf); err != nil {
			a.log.Warn("could not release buffer handle", "surface", mid.Surface(), "err", err)
		}
		if err := a.drv.DestroyImage(a.dpy, mid.exportImage.ID); err != nil {
			a.log.Warn("could not destroy export image", "surface", mid.Surface(), "err", err)
		}
		mid.nativeExport = false
		mid.exportImage = driver.Image{}
		mid.bufferInfo = driver.BufferInfo{}
	}
}

func (m *MemID) exported() bool {
	return m.nativeExport || m.custom != nil
}

// Realloc replaces the surface behind mid with one matching info. The
// handle and its slot in the batch stay the same.
func (a *Allocator) Realloc(mid *MemID, info *FrameInfo, memType MemType) (*MemID, error) {
	if mid == nil || info == nil {
		return nil, ErrNullArgument
	}
	if mid.surface == nil || mid.batch == nil {
		return nil, ErrInvalidHandle
	}
	d, err := resolve(info.FourCC)
	if err != nil {
		return nil, err
	}
	if fourcc.IsBitstream(info.FourCC) || mid.batch.bitstream {
		return nil, fmt.Errorf("%w: bitstream buffers cannot be reallocated", ErrUnsupportedFormat)
	}
	if mid.locked {
		return nil, fmt.Errorf("%w: surface %d is locked", ErrInvalidState, *mid.surface)
	}

	wasExported := mid.exported()
	a.unexport(mid)

	if *mid.surface != driver.InvalidID {
		if err := a.drv.DestroySurfaces(a.dpy, []driver.SurfaceID{*mid.surface}); err != nil {
			return nil, statusError(err)
		}
		*mid.surface = driver.InvalidID
		a.addSurfaces(-1)
	}

	ids := make([]driver.SurfaceID, 1)
	attribs, format := surfaceAttribs(info.FourCC, d, memType)
	if err := a.drv.CreateSurfaces(a.dpy, format, info.Width, info.Height, ids, attribs); err != nil {
		return nil, statusError(err)
	}
	*mid.surface = ids[0]
	a.addSurfaces(1)

	mid.format = info.FourCC
	mid.driverFormat = d
	mid.width = info.Width
	mid.height = info.Height

	if wasExported {
		if err := a.export(mid); err != nil {
			a.unexport(mid)
			return nil, err
		}
	}
	return mid, nil
}

// Release destroys every frame of resp. Releasing an empty response
// is a no-op, so releasing twice is safe.
func (a *Allocator) Release(resp *Response) error {
	if resp == nil {
		return ErrNullArgument
	}
	if len(resp.MemIDs) == 0 {
		resp.MemIDs = nil
		resp.NumFrameActual = 0
		return nil
	}

	b := resp.MemIDs[0].batch
	if b == nil {
		return ErrInvalidHandle
	}
	for _, mid := range resp.MemIDs {
		if mid.batch != b {
			return fmt.Errorf("%w: response mixes frames from several allocations", ErrInvalidHandle)
		}
		if mid.locked {
			return fmt.Errorf("%w: surface %d is still locked", ErrInvalidState, *mid.surface)
		}
	}

	var errs []error
	for _, mid := range resp.MemIDs {
		if b.bitstream {
			if err := a.drv.DestroyBuffer(a.dpy, driver.BufferID(*mid.surface)); err != nil {
				errs = append(errs, statusError(err))
			}
		}
		a.unexport(mid)
	}

	if b.bitstream {
		a.addBuffers(-int64(len(resp.MemIDs)))
	} else {
		live := make([]driver.SurfaceID, 0, len(b.surfaces))
		for _, id := range b.surfaces {
			if id != driver.InvalidID {
				live = append(live, id)
			}
		}
		if len(live) > 0 {
			if err := a.drv.DestroySurfaces(a.dpy, live); err != nil {
				errs = append(errs, statusError(err))
			}
		}
		a.addSurfaces(-int64(len(live)))
	}

	for _, mid := range resp.MemIDs {
		mid.surface = nil
		mid.batch = nil
	}
	resp.MemIDs = nil
	resp.NumFrameActual = 0
	return errors.Join(errs...)
}

// GetHandle returns the address of the frame's surface id, which is
// what other components take as the native frame handle.
func (a *Allocator) GetHandle(mid *MemID) (*driver.SurfaceID, error) {
	if mid == nil || mid.surface == nil {
		return nil, ErrInvalidHandle
	}
	return mid.surface, nil
}
