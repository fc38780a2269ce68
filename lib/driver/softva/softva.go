//go:build linux

// Package softva is an in-process implementation of driver.Driver.
// Surfaces live in memfd-backed shared mappings, so exported PRIME
// handles are real file descriptors another process can map.
package softva

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/fosdem/vaframes/lib/driver"
	"golang.org/x/sys/unix"
)

const maxDimension = 16384

var lastDisplay atomic.Uint64

type surface struct {
	id     driver.SurfaceID
	fourcc driver.FourCC
	layout driver.Image
	fd     int
	mem    []byte
	images int
}

type buffer struct {
	id      driver.BufferID
	typ     driver.BufferType
	data    []byte
	segment *driver.CodedBufferSegment
	mapped  bool

	// set for image buffers, which alias their surface's memory
	surface *surface
	handles int
	fds     []int
}

type Option func(d *Driver)

// WithFormatSubstitution makes DeriveImage report `to` for surfaces
// created as `from`, like a driver that silently picks another layout.
func WithFormatSubstitution(from, to driver.FourCC) Option {
	return func(d *Driver) {
		d.substitutions[from] = to
	}
}

func WithPitchAlign(align uint32) Option {
	return func(d *Driver) {
		d.pitchAlign = align
	}
}

// WithDevice records the DRM render node the display was opened for.
// Surface memory stays in memfds either way.
func WithDevice(path string) Option {
	return func(d *Driver) {
		d.device = path
	}
}

type Driver struct {
	sync.Mutex

	dpy        driver.Display
	device     string
	pitchAlign uint32
	lastID     uint32

	surfaces      map[driver.SurfaceID]*surface
	buffers       map[driver.BufferID]*buffer
	images        map[driver.ImageID]driver.BufferID
	substitutions map[driver.FourCC]driver.FourCC

	log *slog.Logger
}

func New(opts ...Option) *Driver {
	d := &Driver{
		dpy:           driver.Display(lastDisplay.Add(1)),
		pitchAlign:    64,
		surfaces:      make(map[driver.SurfaceID]*surface),
		buffers:       make(map[driver.BufferID]*buffer),
		images:        make(map[driver.ImageID]driver.BufferID),
		substitutions: make(map[driver.FourCC]driver.FourCC),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = slog.With("module", fmt.Sprintf("softva:%d", d.dpy))
	if d.device != "" {
		d.log.Debug("opened display", "device", d.device)
	}
	return d
}

func (d *Driver) Display() driver.Display {
	return d.dpy
}

// Device is the render node given with WithDevice, or "".
func (d *Driver) Device() string {
	return d.device
}

func (d *Driver) nextID() uint32 {
	d.lastID++
	return d.lastID
}

func (d *Driver) checkDisplay(dpy driver.Display) error {
	if dpy != d.dpy {
		return driver.StatusInvalidDisplay
	}
	return nil
}

func (d *Driver) CreateSurfaces(dpy driver.Display, format uint32, width, height uint32, surfaces []driver.SurfaceID, attribs []driver.SurfaceAttrib) error {
	d.Lock()
	defer d.Unlock()

	if err := d.checkDisplay(dpy); err != nil {
		return err
	}
	if len(surfaces) == 0 || width == 0 || height == 0 {
		return driver.StatusInvalidParameter
	}
	if width > maxDimension || height > maxDimension {
		return driver.StatusResolutionNotSupported
	}
	fcc, err := surfaceFourCC(format, attribs)
	if err != nil {
		return err
	}
	img, size, err := layout(fcc, width, height, d.pitchAlign)
	if err != nil {
		return err
	}

	created := make([]*surface, 0, len(surfaces))
	for range surfaces {
		s, err := d.newSurface(fcc, img, size)
		if err != nil {
			for _, c := range created {
				d.freeSurface(c)
			}
			return err
		}
		created = append(created, s)
	}
	for i, s := range created {
		d.surfaces[s.id] = s
		surfaces[i] = s.id
	}
	d.log.Debug("created surfaces", "count", len(surfaces), "fourcc", fcc.String(), "width", width, "height", height)
	return nil
}

func (d *Driver) newSurface(fcc driver.FourCC, img driver.Image, size uint32) (*surface, error) {
	fd, err := unix.MemfdCreate("softva-surface", unix.MFD_CLOEXEC)
	if err != nil {
		return nil, driver.StatusAllocationFailed
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		_ = unix.Close(fd)
		return nil, driver.StatusAllocationFailed
	}
	mem, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, driver.StatusAllocationFailed
	}
	return &surface{
		id:     driver.SurfaceID(d.nextID()),
		fourcc: fcc,
		layout: img,
		fd:     fd,
		mem:    mem,
	}, nil
}

func (d *Driver) freeSurface(s *surface) {
	if err := unix.Munmap(s.mem); err != nil {
		d.log.Warn("could not unmap surface", "surface", s.id, "err", err)
	}
	if err := unix.Close(s.fd); err != nil {
		d.log.Warn("could not close surface memfd", "surface", s.id, "err", err)
	}
	s.mem = nil
}

func (d *Driver) DestroySurfaces(dpy driver.Display, surfaces []driver.SurfaceID) error {
	d.Lock()
	defer d.Unlock()

	if err := d.checkDisplay(dpy); err != nil {
		return err
	}
	for _, id := range surfaces {
		s, ok := d.surfaces[id]
		if !ok {
			return driver.StatusInvalidSurface
		}
		if s.images > 0 {
			return driver.StatusSurfaceBusy
		}
	}
	for _, id := range surfaces {
		d.freeSurface(d.surfaces[id])
		delete(d.surfaces, id)
	}
	return nil
}

func (d *Driver) SyncSurface(dpy driver.Display, id driver.SurfaceID) error {
	d.Lock()
	defer d.Unlock()

	if err := d.checkDisplay(dpy); err != nil {
		return err
	}
	if _, ok := d.surfaces[id]; !ok {
		return driver.StatusInvalidSurface
	}
	return nil
}

func (d *Driver) CreateBuffer(dpy driver.Display, ctx driver.ContextID, typ driver.BufferType, size, num uint32) (driver.BufferID, error) {
	d.Lock()
	defer d.Unlock()

	if err := d.checkDisplay(dpy); err != nil {
		return driver.InvalidID, err
	}
	if typ != driver.EncCodedBufferType && typ != driver.EncMacroblockMapBufferType {
		return driver.InvalidID, driver.StatusUnsupportedBufferType
	}
	if size == 0 || num == 0 {
		return driver.InvalidID, driver.StatusInvalidParameter
	}

	b := &buffer{
		id:   driver.BufferID(d.nextID()),
		typ:  typ,
		data: make([]byte, int(size)*int(num)),
	}
	if typ == driver.EncCodedBufferType {
		b.segment = &driver.CodedBufferSegment{Buf: b.data}
	}
	d.buffers[b.id] = b
	return b.id, nil
}

func (d *Driver) DestroyBuffer(dpy driver.Display, id driver.BufferID) error {
	d.Lock()
	defer d.Unlock()

	if err := d.checkDisplay(dpy); err != nil {
		return err
	}
	b, ok := d.buffers[id]
	if !ok || b.surface != nil {
		return driver.StatusInvalidBuffer
	}
	delete(d.buffers, id)
	return nil
}

func (d *Driver) mapBuffer(dpy driver.Display, id driver.BufferID) (*buffer, error) {
	if err := d.checkDisplay(dpy); err != nil {
		return nil, err
	}
	b, ok := d.buffers[id]
	if !ok {
		return nil, driver.StatusInvalidBuffer
	}
	b.mapped = true
	return b, nil
}

func (d *Driver) MapBuffer(dpy driver.Display, id driver.BufferID) ([]byte, error) {
	d.Lock()
	defer d.Unlock()

	b, err := d.mapBuffer(dpy, id)
	if err != nil {
		return nil, err
	}
	if b.surface != nil {
		return b.surface.mem, nil
	}
	return b.data, nil
}

func (d *Driver) MapCodedBuffer(dpy driver.Display, id driver.BufferID) (*driver.CodedBufferSegment, error) {
	d.Lock()
	defer d.Unlock()

	b, err := d.mapBuffer(dpy, id)
	if err != nil {
		return nil, err
	}
	if b.segment == nil {
		b.mapped = false
		return nil, driver.StatusInvalidBuffer
	}
	return b.segment, nil
}

func (d *Driver) UnmapBuffer(dpy driver.Display, id driver.BufferID) error {
	d.Lock()
	defer d.Unlock()

	if err := d.checkDisplay(dpy); err != nil {
		return err
	}
	b, ok := d.buffers[id]
	if !ok {
		return driver.StatusInvalidBuffer
	}
	if !b.mapped {
		return driver.StatusOperationFailed
	}
	b.mapped = false
	return nil
}

func (d *Driver) DeriveImage(dpy driver.Display, id driver.SurfaceID) (driver.Image, error) {
	d.Lock()
	defer d.Unlock()

	if err := d.checkDisplay(dpy); err != nil {
		return driver.Image{}, err
	}
	s, ok := d.surfaces[id]
	if !ok {
		return driver.Image{}, driver.StatusInvalidSurface
	}

	b := &buffer{
		id:      driver.BufferID(d.nextID()),
		typ:     driver.ImageBufferType,
		surface: s,
	}
	img := s.layout
	img.ID = driver.ImageID(d.nextID())
	img.Buf = b.id
	if sub, ok := d.substitutions[s.fourcc]; ok {
		img.Format.FourCC = sub
	}

	d.buffers[b.id] = b
	d.images[img.ID] = b.id
	s.images++
	return img, nil
}

func (d *Driver) DestroyImage(dpy driver.Display, id driver.ImageID) error {
	d.Lock()
	defer d.Unlock()

	if err := d.checkDisplay(dpy); err != nil {
		return err
	}
	bufID, ok := d.images[id]
	if !ok {
		return driver.StatusInvalidImage
	}
	b := d.buffers[bufID]
	for _, fd := range b.fds {
		_ = unix.Close(fd)
	}
	b.surface.images--
	delete(d.buffers, bufID)
	delete(d.images, id)
	return nil
}

func (d *Driver) AcquireBufferHandle(dpy driver.Display, id driver.BufferID, info *driver.BufferInfo) error {
	d.Lock()
	defer d.Unlock()

	if err := d.checkDisplay(dpy); err != nil {
		return err
	}
	if info == nil {
		return driver.StatusInvalidParameter
	}
	b, ok := d.buffers[id]
	if !ok || b.surface == nil {
		return driver.StatusInvalidBuffer
	}

	switch info.MemType {
	case driver.MemTypeDRMPrime:
		fd, err := unix.Dup(b.surface.fd)
		if err != nil {
			return driver.StatusAllocationFailed
		}
		b.fds = append(b.fds, fd)
		info.Handle = uintptr(fd)
	case driver.MemTypeKernelDRM:
		// flink names are global; derive one from the surface id
		info.Handle = uintptr(0x10000 + uint32(b.surface.id))
	default:
		return driver.StatusFlagNotSupported
	}
	info.Type = uint32(driver.ImageBufferType)
	info.MemSize = uint64(len(b.surface.mem))
	b.handles++
	return nil
}

func (d *Driver) ReleaseBufferHandle(dpy driver.Display, id driver.BufferID) error {
	d.Lock()
	defer d.Unlock()

	if err := d.checkDisplay(dpy); err != nil {
		return err
	}
	b, ok := d.buffers[id]
	if !ok || b.handles == 0 {
		return driver.StatusInvalidBuffer
	}
	b.handles--
	if len(b.fds) > 0 {
		fd := b.fds[len(b.fds)-1]
		b.fds = b.fds[:len(b.fds)-1]
		if err := unix.Close(fd); err != nil {
			return driver.StatusOperationFailed
		}
	}
	return nil
}

// Close frees everything the driver still holds.
func (d *Driver) Close() {
	d.Lock()
	defer d.Unlock()

	for id, b := range d.buffers {
		for _, fd := range b.fds {
			_ = unix.Close(fd)
		}
		delete(d.buffers, id)
	}
	clear(d.images)
	for id, s := range d.surfaces {
		d.freeSurface(s)
		delete(d.surfaces, id)
	}
}

func (d *Driver) NumSurfaces() int {
	d.Lock()
	defer d.Unlock()
	return len(d.surfaces)
}

// NumBuffers counts codec buffers; image buffers are counted by NumImages.
func (d *Driver) NumBuffers() int {
	d.Lock()
	defer d.Unlock()
	n := 0
	for _, b := range d.buffers {
		if b.surface == nil {
			n++
		}
	}
	return n
}

func (d *Driver) NumImages() int {
	d.Lock()
	defer d.Unlock()
	return len(d.images)
}

func (d *Driver) NumHandles() int {
	d.Lock()
	defer d.Unlock()
	n := 0
	for _, b := range d.buffers {
		n += b.handles
	}
	return n
}

func (d *Driver) NumMapped() int {
	d.Lock()
	defer d.Unlock()
	n := 0
	for _, b := range d.buffers {
		if b.mapped {
			n++
		}
	}
	return n
}
