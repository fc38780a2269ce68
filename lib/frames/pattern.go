package frames

import (
	"image"
	"image/color"

	"github.com/fosdem/vaframes/lib/allocator"
	"github.com/fosdem/vaframes/lib/fourcc"
)

var bars = [8]color.RGBA{
	{255, 255, 255, 255},
	{255, 255, 0, 255},
	{0, 255, 255, 255},
	{0, 255, 0, 255},
	{255, 0, 255, 255},
	{255, 0, 0, 255},
	{0, 0, 255, 255},
	{0, 0, 0, 255},
}

// BarColor is the colour FillTestPattern writes at column x of a frame
// w pixels wide. The bars move one position for every seq.
func BarColor(x, w int, seq uint64) color.RGBA {
	i := (uint64(x*len(bars)/w) + seq) % uint64(len(bars))
	return bars[i]
}

// FillTestPattern writes vertical colour bars into a locked frame.
func FillTestPattern(fd *allocator.FrameData, format fourcc.Format, w, h int, seq uint64) error {
	return fill(fd, format, w, h, func(x, _ int) color.RGBA {
		return BarColor(x, w, seq)
	})
}

// FromImage writes img into a locked frame. img must be at least w x h;
// callers scale it first.
func FromImage(fd *allocator.FrameData, format fourcc.Format, w, h int, img image.Image) error {
	b := img.Bounds()
	return fill(fd, format, w, h, func(x, y int) color.RGBA {
		return color.RGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
	})
}

// fill converts the colour of every pixel to format. Chroma of
// subsampled formats is taken from the top left pixel of each block.
func fill(fd *allocator.FrameData, format fourcc.Format, w, h int, at func(x, y int) color.RGBA) error {
	if err := checkSize(fd, format, w, h); err != nil {
		return err
	}
	p := int(fd.Pitch())
	ycbcr := func(x, y int) (uint8, uint8, uint8) {
		c := at(x, y)
		return color.RGBToYCbCr(c.R, c.G, c.B)
	}

	switch format {
	case fourcc.NV12:
		for y := range h {
			for x := range w {
				luma, cb, cr := ycbcr(x, y)
				fd.Y[y*p+x] = luma
				if y%2 == 0 && x%2 == 0 {
					fd.U[y/2*p+x] = cb
					fd.V[y/2*p+x] = cr
				}
			}
		}
	case fourcc.YV12:
		cp := chromaPitch(fd)
		for y := range h {
			for x := range w {
				luma, cb, cr := ycbcr(x, y)
				fd.Y[y*p+x] = luma
				if y%2 == 0 && x%2 == 0 {
					fd.U[y/2*cp+x/2] = cb
					fd.V[y/2*cp+x/2] = cr
				}
			}
		}
	case fourcc.YUY2:
		for y := range h {
			for x := 0; x < w; x += 2 {
				y0, cb, cr := ycbcr(x, y)
				y1 := y0
				if x+1 < w {
					y1, _, _ = ycbcr(x+1, y)
				}
				row := fd.Y[y*p+x*2:]
				row[0], row[1], row[2], row[3] = y0, cb, y1, cr
			}
		}
	case fourcc.RGB4:
		for y := range h {
			for x := range w {
				c := at(x, y)
				px := fd.B[y*p+x*4:]
				px[0], px[1], px[2], px[3] = c.B, c.G, c.R, c.A
			}
		}
	case fourcc.BGR4:
		for y := range h {
			for x := range w {
				c := at(x, y)
				px := fd.R[y*p+x*4:]
				px[0], px[1], px[2], px[3] = c.R, c.G, c.B, c.A
			}
		}
	}
	return nil
}
