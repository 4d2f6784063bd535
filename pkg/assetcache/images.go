package assetcache

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	_ "golang.org/x/image/webp"
)

// maxRasterSide bounds the rasterised size of a single SVG.
const maxRasterSide = 4096

var errEmptyViewBox = errors.New("svg has no usable size")

// Decode turns asset bytes into an image plus its intrinsic width/height
// ratio. SVGs are rasterised at scale times their intrinsic size.
func Decode(data []byte, isSVG bool, scale float64) (image.Image, float64, error) {
	if !isSVG {
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, 0, fmt.Errorf("decode image: %w", err)
		}
		b := img.Bounds()
		return img, naturalRatio(float64(b.Dx()), float64(b.Dy())), nil
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, 0, fmt.Errorf("parse svg: %w", err)
	}
	iw, ih := icon.ViewBox.W, icon.ViewBox.H
	if iw <= 0 || ih <= 0 {
		return nil, 0, errEmptyViewBox
	}

	if scale <= 0 {
		scale = 1
	}
	if longest := math.Max(iw, ih) * scale; longest > maxRasterSide {
		scale *= maxRasterSide / longest
	}
	w := int(math.Ceil(iw * scale))
	h := int(math.Ceil(ih * scale))

	icon.SetTarget(0, 0, float64(w), float64(h))
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)

	return rgba, naturalRatio(iw, ih), nil
}

func naturalRatio(w, h float64) float64 {
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	return w / h
}
