// Copyright (c) 2022 Hirotsuna Mizuno. All rights reserved.
// Use of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package main

import (
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
)

// swatchSize is the width and height of a swatch in pixels.
const swatchSize = 64

// format is an image format served by the server.
type format struct {
	contentType string
	encode      func(io.Writer, image.Image) error
}

// formats maps the file extension to the image format. Requests for other
// extensions are not served.
var formats = map[string]format{
	"png": {"image/png", png.Encode},
	"gif": {"image/gif", func(w io.Writer, img image.Image) error { return gif.Encode(w, img, nil) }},
	"jpg": {"image/jpeg", func(w io.Writer, img image.Image) error { return jpeg.Encode(w, img, nil) }},
}

// createSwatch draws a two-color striped swatch derived from the identifier,
// and writes it to w encoded in the format f. The same identifier always gives
// the same image.
func createSwatch(id string, f format, w io.Writer) error {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	sum := h.Sum32()

	fg := color.RGBA{R: byte(sum >> 24), G: byte(sum >> 16), B: byte(sum >> 8), A: 0xff}
	bg := color.RGBA{R: ^fg.R, G: ^fg.G, B: ^fg.B, A: 0xff}
	stripe := int(sum&7) + 4

	img := image.NewPaletted(image.Rect(0, 0, swatchSize, swatchSize), color.Palette{bg, fg})
	for y := 0; y < swatchSize; y++ {
		for x := 0; x < swatchSize; x++ {
			if (x+y)/stripe%2 == 1 {
				img.SetColorIndex(x, y, 1)
			}
		}
	}

	if err := f.encode(w, img); err != nil {
		return fmt.Errorf("failed to encode %s: %w", f.contentType, err)
	}

	return nil
}
