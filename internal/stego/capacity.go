package stego

import "math"

const (
	channelsPerPixel = 3 // R, G, B; alpha is never touched

	// The header (magic + payload length) is always embedded at one bit
	// per channel so extraction can read it before knowing the density.
	headerBytes    = 8
	headerChannels = headerBytes * 8

	// MinBitsPerChannel and MaxBitsPerChannel bound the payload bit
	// density. Higher densities trade stealth for capacity.
	MinBitsPerChannel = 1
	MaxBitsPerChannel = 4

	// Headroom added when sizing an auto-generated carrier, so small
	// metadata changes do not force a resize.
	dimensionHeadroomBytes = 100

	minCarrierWidth  = 16
	minCarrierHeight = 12
)

// Capacity returns the number of payload bytes an image of the given
// dimensions can carry at the given density, after header overhead.
func Capacity(width, height, bitsPerChannel int) int {
	if width <= 0 || height <= 0 {
		return 0
	}
	if bitsPerChannel < MinBitsPerChannel || bitsPerChannel > MaxBitsPerChannel {
		return 0
	}
	usable := width*height*channelsPerPixel - headerChannels
	if usable <= 0 {
		return 0
	}
	return usable * bitsPerChannel / 8
}

// Fit is the result of a capacity validation.
type Fit struct {
	Valid    bool `json:"valid"`
	Capacity int  `json:"capacity"`
	Required int  `json:"required"`
}

// Validate reports whether a payload of the given size fits an image of
// the given dimensions. Pure; used both to reject oversized payloads
// before any codec work and for utilization reporting.
func Validate(width, height, payloadBytes, bitsPerChannel int) Fit {
	capacity := Capacity(width, height, bitsPerChannel)
	return Fit{
		Valid:    payloadBytes >= 0 && payloadBytes <= capacity,
		Capacity: capacity,
		Required: payloadBytes,
	}
}

// ChooseDimensions sizes an auto-generated carrier for the given payload,
// targeting a 4:3 aspect ratio with headroom.
func ChooseDimensions(payloadBytes, bitsPerChannel int) (width, height int) {
	if bitsPerChannel < MinBitsPerChannel || bitsPerChannel > MaxBitsPerChannel {
		bitsPerChannel = MinBitsPerChannel
	}
	if payloadBytes < 0 {
		payloadBytes = 0
	}

	bits := (payloadBytes + dimensionHeadroomBytes) * 8
	payloadChannels := (bits + bitsPerChannel - 1) / bitsPerChannel
	pixels := (headerChannels + payloadChannels + channelsPerPixel - 1) / channelsPerPixel

	width = int(math.Ceil(math.Sqrt(float64(pixels) * 4.0 / 3.0)))
	if width < minCarrierWidth {
		width = minCarrierWidth
	}
	height = (pixels + width - 1) / width
	if height < minCarrierHeight {
		height = minCarrierHeight
	}

	// Guard against rounding shaving off the headroom.
	for Capacity(width, height, bitsPerChannel) < payloadBytes {
		height++
	}
	return width, height
}

// Utilization returns payload size as a fraction of capacity, in percent.
func Utilization(payloadBytes, capacity int) float64 {
	if capacity <= 0 {
		return 0
	}
	return float64(payloadBytes) * 100 / float64(capacity)
}
