package stego

import (
	"crypto/rand"
	"image"
)

// GenerateCarrier builds a synthetic carrier of crypto-random RGB noise.
// Random base colors keep the embedded LSBs statistically unremarkable,
// unlike a flat-color image where modified bits would stand out.
func GenerateCarrier(width, height int) *image.RGBA {
	if width < 1 {
		width = minCarrierWidth
	}
	if height < 1 {
		height = minCarrierHeight
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	noise := make([]byte, width*height*channelsPerPixel)
	_, _ = rand.Read(noise)

	n := 0
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = noise[n]
		img.Pix[i+1] = noise[n+1]
		img.Pix[i+2] = noise[n+2]
		img.Pix[i+3] = 0xFF
		n += channelsPerPixel
	}
	return img
}
