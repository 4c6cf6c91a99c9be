// Package imaging renders UI thumbnails and the downscaled copies of rasters
// that are sent to providers for analysis.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"

	"stock-metadata-generator/internal/domain"
	"stock-metadata-generator/internal/domain/model"
	"stock-metadata-generator/internal/domain/ports/adapter"
)

const (
	DefaultThumbnailEdge = 256
	DefaultAnalysisEdge  = 1024
	jpegQuality          = 85
)

var (
	_ adapter.Thumbnailer = (*Thumbnailer)(nil)

	placeholderFill = color.RGBA{R: 0xd9, G: 0xdd, B: 0xe3, A: 0xff}
)

// Thumbnailer renders JPEG thumbnails bounded by MaxEdge. Files without a
// decodable raster (vectors without preview, video) get a flat placeholder.
type Thumbnailer struct {
	MaxEdge int
}

func NewThumbnailer(maxEdge int) *Thumbnailer {
	if maxEdge <= 0 {
		maxEdge = DefaultThumbnailEdge
	}
	return &Thumbnailer{MaxEdge: maxEdge}
}

func (t *Thumbnailer) Thumbnail(f model.File) ([]byte, error) {
	if !f.IsRaster() {
		return placeholder(t.MaxEdge)
	}
	img, err := decode(f)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flatten(fit(img, t.MaxEdge)), &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// Preparer downscales rasters whose longest edge exceeds MaxEdge. Anything it
// cannot decode is passed through untouched.
type Preparer struct {
	MaxEdge int
}

func NewPreparer(maxEdge int) *Preparer {
	if maxEdge <= 0 {
		maxEdge = DefaultAnalysisEdge
	}
	return &Preparer{MaxEdge: maxEdge}
}

func (p *Preparer) PrepareForAnalysis(f model.File) model.File {
	if !f.IsRaster() {
		return f
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(f.Data))
	if err != nil || longest(cfg.Width, cfg.Height) <= p.MaxEdge {
		return f
	}
	img, err := decode(f)
	if err != nil {
		return f
	}
	scaled := fit(img, p.MaxEdge)

	var buf bytes.Buffer
	out := f
	if format == "png" {
		// keep alpha so transparent backgrounds stay detectable
		err = png.Encode(&buf, scaled)
		out.MIMEType = "image/png"
	} else {
		err = jpeg.Encode(&buf, flatten(scaled), &jpeg.Options{Quality: jpegQuality})
		out.MIMEType = "image/jpeg"
	}
	if err != nil {
		return f
	}
	out.Data = buf.Bytes()
	return out
}

func decode(f model.File) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrUnsupportedMedia, f.Name, err)
	}
	return img, nil
}

// fit scales img so its longest edge is at most maxEdge, preserving aspect.
func fit(img image.Image, maxEdge int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if longest(w, h) <= maxEdge || w == 0 || h == 0 {
		return img
	}
	nw, nh := maxEdge, maxEdge
	if w >= h {
		nh = max(1, h*maxEdge/w)
	} else {
		nw = max(1, w*maxEdge/h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// flatten composites img over white; JPEG has no alpha channel.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

func placeholder(edge int) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, edge, edge))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: placeholderFill}, image.Point{}, draw.Src)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func longest(w, h int) int {
	if w > h {
		return w
	}
	return h
}
