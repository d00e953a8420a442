// Package imagecodec converts raw clipboard pixels into a transport-safe
// string: a PNG, base64-encoded with the standard padded alphabet and no line
// wrapping. Decode reverses the process losslessly.
//
// A 0×0 image encodes to the empty string, and the empty string decodes to
// 0×0. PNG cannot express a zero dimension, so an image with exactly one
// zero side fails with ErrEncodeFailure rather than losing its shape.
package imagecodec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"

	"go.klb.dev/clipwatch/internal/clip"
)

var (
	// ErrDimensionMismatch means the pixel buffer length is not Width*Height*4.
	ErrDimensionMismatch = errors.New("imagecodec: pixel buffer does not match dimensions")
	// ErrEncodeFailure wraps any failure of the PNG or base64 step.
	ErrEncodeFailure = errors.New("imagecodec: encode failed")
)

// Codec encodes and decodes clipboard images. The zero value uses PNG
// default compression. A Codec is safe for concurrent use.
type Codec struct {
	Compression png.CompressionLevel

	once sync.Once
	enc  *png.Encoder
}

var defaultCodec Codec

// Encode encodes img with the default codec.
func Encode(img clip.RawImage) (string, error) { return defaultCodec.Encode(img) }

// Decode decodes s with the default codec.
func Decode(s string) (clip.RawImage, error) { return defaultCodec.Decode(s) }

// Encode validates img, compresses it to PNG and returns the base64 text.
func (c *Codec) Encode(img clip.RawImage) (string, error) {
	want := uint64(img.Width) * uint64(img.Height) * 4
	if uint64(len(img.Pix)) != want {
		return "", fmt.Errorf("%w: %dx%d needs %d bytes, got %d",
			ErrDimensionMismatch, img.Width, img.Height, want, len(img.Pix))
	}
	if want == 0 {
		if img.Width != 0 || img.Height != 0 {
			return "", fmt.Errorf("%w: %dx%d has no PNG form", ErrEncodeFailure, img.Width, img.Height)
		}
		return "", nil
	}

	grid := &image.NRGBA{
		Pix:    img.Pix,
		Stride: int(img.Width) * 4,
		Rect:   image.Rect(0, 0, int(img.Width), int(img.Height)),
	}

	var buf bytes.Buffer
	if err := c.encoder().Encode(&buf, grid); err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncodeFailure, err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode parses base64 PNG text produced by Encode back into raw pixels.
func (c *Codec) Decode(s string) (clip.RawImage, error) {
	if s == "" {
		return clip.RawImage{}, nil
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return clip.RawImage{}, fmt.Errorf("imagecodec: base64 decode: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return clip.RawImage{}, fmt.Errorf("imagecodec: png decode: %w", err)
	}
	return clip.FromImage(img), nil
}

// DecodePNG returns the PNG bytes carried by s without decoding the pixels.
func DecodePNG(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("imagecodec: base64 decode: %w", err)
	}
	return data, nil
}

func (c *Codec) encoder() *png.Encoder {
	c.once.Do(func() {
		c.enc = &png.Encoder{
			CompressionLevel: c.Compression,
			BufferPool:       &bufferPool{},
		}
	})
	return c.enc
}

// bufferPool recycles PNG encoder scratch buffers between clipboard images.
type bufferPool struct{ p sync.Pool }

func (b *bufferPool) Get() *png.EncoderBuffer {
	buf, _ := b.p.Get().(*png.EncoderBuffer)
	return buf
}

func (b *bufferPool) Put(buf *png.EncoderBuffer) { b.p.Put(buf) }
