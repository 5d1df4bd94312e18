package stego

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/draw"
	"image/png"
)

var (
	// ErrCapacityExceeded means header+payload bits exceed the carrier's
	// channel-bit budget at the requested density.
	ErrCapacityExceeded = errors.New("stego: payload exceeds carrier capacity")

	// ErrUnsupportedCarrier means the supplied carrier is not a lossless
	// raster image. Lossy re-encoding would destroy the LSBs, so the
	// format check runs before any bit manipulation.
	ErrUnsupportedCarrier = errors.New("stego: carrier must be a lossless PNG image")

	// ErrInvalidBitDepth means bitsPerChannel is outside [1,4].
	ErrInvalidBitDepth = errors.New("stego: bits per channel must be between 1 and 4")

	// ErrNoPayload means the image does not start with a valid embedded
	// header, or the header declares an impossible payload length.
	ErrNoPayload = errors.New("stego: no embedded payload found")
)

// headerMagic spells "DROP". Extraction checks it before trusting the
// declared payload length.
const headerMagic uint32 = 0x44524F50

// Embed hides payload inside a copy of carrier. The 8-byte header (magic
// plus big-endian payload length) is written at one bit per channel;
// payload bits follow at bitsPerChannel, R/G/B channels in raster order.
// The carrier itself is not modified.
func Embed(carrier *image.RGBA, payload []byte, bitsPerChannel int) (*image.RGBA, error) {
	if bitsPerChannel < MinBitsPerChannel || bitsPerChannel > MaxBitsPerChannel {
		return nil, ErrInvalidBitDepth
	}
	bounds := carrier.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if len(payload) > Capacity(width, height, bitsPerChannel) {
		return nil, ErrCapacityExceeded
	}

	out := cloneRGBA(carrier)

	var header [headerBytes]byte
	binary.BigEndian.PutUint32(header[0:4], headerMagic)
	binary.BigEndian.PutUint32(header[4:8], uint32(len(payload)))

	for i := 0; i < headerChannels; i++ {
		bit := (header[i/8] >> (7 - i%8)) & 1
		writeChannel(out, i, 1, bit)
	}

	reader := bitReader{data: payload}
	channel := headerChannels
	for reader.remaining() > 0 {
		writeChannel(out, channel, bitsPerChannel, reader.next(bitsPerChannel))
		channel++
	}

	return out, nil
}

// Extract reads the embedded payload back out of a stego image. The
// density must match the one used at embed time; it is recorded alongside
// each drop so extraction never guesses.
func Extract(img image.Image, bitsPerChannel int) ([]byte, error) {
	if bitsPerChannel < MinBitsPerChannel || bitsPerChannel > MaxBitsPerChannel {
		return nil, ErrInvalidBitDepth
	}
	rgba := toRGBA(img)
	bounds := rgba.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width*height*channelsPerPixel < headerChannels {
		return nil, ErrNoPayload
	}

	var header [headerBytes]byte
	for i := 0; i < headerChannels; i++ {
		bit := readChannel(rgba, i, 1)
		header[i/8] |= bit << (7 - i%8)
	}
	if binary.BigEndian.Uint32(header[0:4]) != headerMagic {
		return nil, ErrNoPayload
	}
	length := binary.BigEndian.Uint32(header[4:8])
	if int64(length) > int64(Capacity(width, height, bitsPerChannel)) {
		return nil, ErrNoPayload
	}

	payload := make([]byte, length)
	needed := int(length) * 8
	channel := headerChannels
	for collected := 0; collected < needed; channel++ {
		group := readChannel(rgba, channel, bitsPerChannel)
		for i := bitsPerChannel - 1; i >= 0 && collected < needed; i-- {
			bit := (group >> i) & 1
			payload[collected/8] |= bit << (7 - collected%8)
			collected++
		}
	}

	return payload, nil
}

// DecodeCarrier sniffs the image format before any pixel work. Only PNG
// is accepted; JPEG, GIF and WebP are rejected because their encoders do
// not preserve per-channel LSBs.
func DecodeCarrier(data []byte) (*image.RGBA, error) {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, ErrUnsupportedCarrier
		}
		return toRGBA(img), nil
	default:
		return nil, ErrUnsupportedCarrier
	}
}

// EncodePNG serializes a stego image for storage.
func EncodePNG(img *image.RGBA) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeChannel overwrites the low nbits of one color channel. Channels
// are numbered in raster order, three per pixel, alpha skipped.
func writeChannel(img *image.RGBA, channel, nbits int, value byte) {
	off := channelOffset(img, channel)
	mask := byte(1<<nbits - 1)
	img.Pix[off] = img.Pix[off]&^mask | value&mask
}

func readChannel(img *image.RGBA, channel, nbits int) byte {
	off := channelOffset(img, channel)
	return img.Pix[off] & (1<<nbits - 1)
}

func channelOffset(img *image.RGBA, channel int) int {
	bounds := img.Bounds()
	width := bounds.Dx()
	pixel := channel / channelsPerPixel
	x := bounds.Min.X + pixel%width
	y := bounds.Min.Y + pixel/width
	return img.PixOffset(x, y) + channel%channelsPerPixel
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	out := image.NewRGBA(src.Bounds())
	copy(out.Pix, src.Pix)
	return out
}

// toRGBA normalizes any decoded image to RGBA. Carriers are fully opaque,
// so the alpha-premultiplied conversion is byte-exact for the color
// channels.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}

// bitReader yields MSB-first bit groups from a byte slice, zero-padding
// the final group.
type bitReader struct {
	data []byte
	pos  int
}

func (r *bitReader) remaining() int {
	return len(r.data)*8 - r.pos
}

func (r *bitReader) next(n int) byte {
	var v byte
	for i := 0; i < n; i++ {
		v <<= 1
		if r.pos < len(r.data)*8 {
			v |= (r.data[r.pos/8] >> (7 - r.pos%8)) & 1
			r.pos++
		}
	}
	return v
}
