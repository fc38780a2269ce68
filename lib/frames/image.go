package frames

import (
	"image"

	"github.com/fosdem/vaframes/lib/allocator"
	"github.com/fosdem/vaframes/lib/fourcc"
)

// ToImage copies a locked frame into an image.Image. The result does
// not reference fd, so the frame can be unlocked right away.
func ToImage(fd *allocator.FrameData, format fourcc.Format, w, h int) (image.Image, error) {
	if err := checkSize(fd, format, w, h); err != nil {
		return nil, err
	}
	p := int(fd.Pitch())
	rect := image.Rect(0, 0, w, h)

	switch format {
	case fourcc.NV12:
		img := image.NewYCbCr(rect, image.YCbCrSubsampleRatio420)
		for y := range h {
			copy(img.Y[y*img.YStride:], fd.Y[y*p:y*p+w])
		}
		for y := range (h + 1) / 2 {
			for x := range (w + 1) / 2 {
				img.Cb[y*img.CStride+x] = fd.U[y*p+x*2]
				img.Cr[y*img.CStride+x] = fd.V[y*p+x*2]
			}
		}
		return img, nil
	case fourcc.YV12:
		img := image.NewYCbCr(rect, image.YCbCrSubsampleRatio420)
		cp := chromaPitch(fd)
		cw := (w + 1) / 2
		for y := range h {
			copy(img.Y[y*img.YStride:], fd.Y[y*p:y*p+w])
		}
		for y := range (h + 1) / 2 {
			copy(img.Cb[y*img.CStride:], fd.U[y*cp:y*cp+cw])
			copy(img.Cr[y*img.CStride:], fd.V[y*cp:y*cp+cw])
		}
		return img, nil
	case fourcc.YUY2:
		img := image.NewYCbCr(rect, image.YCbCrSubsampleRatio422)
		for y := range h {
			for x := 0; x < w; x += 2 {
				px := fd.Y[y*p+x*2:]
				img.Y[y*img.YStride+x] = px[0]
				if x+1 < w {
					img.Y[y*img.YStride+x+1] = px[2]
				}
				img.Cb[y*img.CStride+x/2] = px[1]
				img.Cr[y*img.CStride+x/2] = px[3]
			}
		}
		return img, nil
	case fourcc.RGB4:
		img := image.NewRGBA(rect)
		for y := range h {
			for x := range w {
				src := fd.B[y*p+x*4:]
				dst := img.Pix[y*img.Stride+x*4:]
				dst[0], dst[1], dst[2], dst[3] = src[2], src[1], src[0], src[3]
			}
		}
		return img, nil
	default:
		// BGR4 is stored as RGBA already
		img := image.NewRGBA(rect)
		for y := range h {
			copy(img.Pix[y*img.Stride:], fd.R[y*p:y*p+w*4])
		}
		return img, nil
	}
}
