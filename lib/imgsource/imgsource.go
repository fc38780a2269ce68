// Package imgsource keeps a still image in a surface pool.
package imgsource

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"sync"

	"github.com/fosdem/vaframes/lib/allocator"
	"github.com/fosdem/vaframes/lib/frames"
	"github.com/fosdem/vaframes/lib/surfacepool"
	"golang.org/x/image/draw"
)

type ImgSource struct {
	pool *surfacepool.Pool

	mu  sync.Mutex
	img image.Image
	// scaled matches the pool geometry it was made for
	scaled     *image.RGBA
	scaledInfo allocator.FrameInfo

	log *slog.Logger
}

func New(path string, pool *surfacepool.Pool) (*ImgSource, error) {
	s := &ImgSource{
		pool: pool,
		log:  slog.With("module", "img:"+pool.Name),
	}

	imgFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open image for pool %s: %w", pool.Name, err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(imgFile)

	img, ftype, err := image.Decode(imgFile)
	if err != nil {
		return nil, fmt.Errorf("could not decode %s: %w", path, err)
	}
	s.log.Info("loaded image", "path", path, "type", ftype,
		"width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	s.img = img
	return s, nil
}

func (s *ImgSource) GetImage() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.img
}

// SetImage replaces the image and writes it into the pool right away.
func (s *ImgSource) SetImage(img image.Image) error {
	s.mu.Lock()
	s.img = img
	s.scaled = nil
	s.mu.Unlock()
	return s.Refresh()
}

// Refresh writes the image into a fresh frame, scaled to the pool's
// current geometry. It does nothing when no frame is free.
func (s *ImgSource) Refresh() error {
	frame := s.pool.GetFrameForWriting()
	if frame == nil {
		return nil
	}
	info := allocator.FrameInfo{FourCC: frame.Mem.Format(), Width: frame.Mem.Width(), Height: frame.Mem.Height()}

	err := frames.FromImage(&frame.Data, info.FourCC, int(info.Width), int(info.Height), s.scaledFor(info))
	if err != nil {
		s.pool.FailedWriting(frame)
		return err
	}
	s.pool.FinishedWriting(frame)
	return nil
}

func (s *ImgSource) scaledFor(info allocator.FrameInfo) image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scaled != nil && s.scaledInfo.Width == info.Width && s.scaledInfo.Height == info.Height {
		return s.scaled
	}
	s.scaled = image.NewRGBA(image.Rect(0, 0, int(info.Width), int(info.Height)))
	draw.CatmullRom.Scale(s.scaled, s.scaled.Bounds(), s.img, s.img.Bounds(), draw.Src, nil)
	s.scaledInfo = info
	return s.scaled
}
