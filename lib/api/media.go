package api

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"strconv"

	"github.com/fosdem/vaframes/lib/allocator"
	"github.com/fosdem/vaframes/lib/frames"
	"github.com/fosdem/vaframes/lib/imgsource"
	"github.com/fosdem/vaframes/lib/surfacepool"
	"golang.org/x/image/draw"
)

type MediaResponseType string

const (
	JPEG MediaResponseType = "jpeg"
	PNG  MediaResponseType = "png"
)

// @Summary	fetch the latest frame of a surface pool
// @Router		/api/media/pool/{name} [get]
// @Router		/api/media/pool/{name}/{format} [get]
// @Tags		media
// @Param		name	path	string				true	"Name of the pool to get the still from"
// @Param		format	path	MediaResponseType	false	"The image type to return"
// @Param		width	query	int					false	"Scale the image down to this width"
// @Success	200
// @Failure	400	{string}	string	"The requested image format is not supported"
// @Failure	404	{string}	string	"The specified pool does not exist in the configuration"
// @Failure	424	{string}	string	"The pool does not have a frame ready to show"
// @Failure	500	{string}	string	"The API does not know how to convert this frame to an image"
// @Produce	jpeg
// @Produce	png
func (a *Api) handlePoolMedia(w http.ResponseWriter, req *http.Request) {
	poolName := req.PathValue("name")
	format := MediaResponseType(req.PathValue("format"))
	if format == "" {
		format = JPEG
	}
	if format != JPEG && format != PNG {
		http.Error(w, "Unsupported format", http.StatusBadRequest)
		return
	}
	width := 0
	if v := req.URL.Query().Get("width"); v != "" {
		var err error
		width, err = strconv.Atoi(v)
		if err != nil || width < 1 {
			http.Error(w, "Invalid width", http.StatusBadRequest)
			return
		}
	}

	pool := a.pools[poolName]
	if pool == nil {
		http.Error(w, "Pool does not exist", http.StatusNotFound)
		return
	}

	// the frame is copied out so it is unlocked before the client reads
	var img image.Image
	err := pool.Snapshot(func(info allocator.FrameInfo, fd *allocator.FrameData) error {
		var err error
		img, err = frames.ToImage(fd, info.FourCC, int(info.Width), int(info.Height))
		return err
	})
	switch {
	case errors.Is(err, surfacepool.ErrNoFrame), errors.Is(err, surfacepool.ErrClosed):
		http.Error(w, "No frame available", http.StatusFailedDependency)
		return
	case errors.Is(err, frames.ErrUnsupportedFormat):
		http.Error(w, "Unhandled frame format", http.StatusInternalServerError)
		return
	case err != nil:
		a.log.Error("could not snapshot pool", "pool", poolName, "err", err)
		http.Error(w, "Could not read frame", http.StatusInternalServerError)
		return
	}

	if width > 0 && width < img.Bounds().Dx() {
		img = scale(img, width)
	}

	var buf bytes.Buffer
	switch format {
	case JPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80})
		w.Header().Set("Content-Type", "image/jpeg")
	case PNG:
		err = png.Encode(&buf, img)
		w.Header().Set("Content-Type", "image/png")
	}
	if err != nil {
		w.Header().Del("Content-Type")
		http.Error(w, "Could not encode this frame", http.StatusInternalServerError)
		return
	}
	_, _ = w.Write(buf.Bytes())
}

// scale keeps the aspect ratio
func scale(img image.Image, width int) image.Image {
	b := img.Bounds()
	height := max(1, b.Dy()*width/b.Dx())
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// @Summary	replace the still image shown by an image pool
// @Router		/api/media/pool/{name} [put]
// @Tags		media
// @Param		name	path	string	true	"Name of the image pool"
// @Accept		png
// @Accept		jpeg
// @Success	200
// @Failure	400	{string}	string	"Not a valid image"
// @Failure	404	{string}	string	"The specified pool does not exist or does not show an image"
func (a *Api) handlePoolImage(w http.ResponseWriter, req *http.Request) {
	poolName := req.PathValue("name")
	var src *imgsource.ImgSource
	if a.Images != nil {
		src = a.Images[poolName]
	}
	if src == nil {
		http.Error(w, "Pool does not exist or does not show an image", http.StatusNotFound)
		return
	}

	newImage, ftype, err := image.Decode(req.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("not a valid image: %s", err), http.StatusBadRequest)
		return
	}
	a.log.Info("image pool was updated", "pool", poolName, "type", ftype,
		"width", newImage.Bounds().Dx(), "height", newImage.Bounds().Dy())
	err = src.SetImage(newImage)
	if err != nil {
		http.Error(w, fmt.Sprintf("could not update image: %s", err), http.StatusInternalServerError)
		return
	}
	_, _ = fmt.Fprintf(w, "\"ok\"\n")
}
