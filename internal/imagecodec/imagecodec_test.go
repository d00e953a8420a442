package imagecodec

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipwatch/internal/clip"
)

// gradient returns a w×h image whose alpha channel sweeps 0..255.
func gradient(w, h uint32) clip.RawImage {
	pix := make([]byte, int(w*h*4))
	for i := 0; i < len(pix); i += 4 {
		p := i / 4
		pix[i] = byte(p * 7)
		pix[i+1] = byte(p * 13)
		pix[i+2] = byte(255 - p)
		pix[i+3] = byte(p)
	}
	return clip.RawImage{Width: w, Height: h, Pix: pix}
}

func TestRoundTrip(t *testing.T) {
	cases := map[string]clip.RawImage{
		"0x0":   {},
		"1x1":   {Width: 1, Height: 1, Pix: []byte{10, 20, 30, 40}},
		"16x16": gradient(16, 16),
		"3x7":   gradient(3, 7),
	}
	for name, img := range cases {
		t.Run(name, func(t *testing.T) {
			s, err := Encode(img)
			require.NoError(t, err)

			got, err := Decode(s)
			require.NoError(t, err)
			assert.Equal(t, img.Width, got.Width)
			assert.Equal(t, img.Height, got.Height)
			assert.Equal(t, len(img.Pix), len(got.Pix))
			if len(img.Pix) > 0 {
				assert.Equal(t, img.Pix, got.Pix)
			}
		})
	}
}

func TestRoundTripOpaque(t *testing.T) {
	img := gradient(8, 8)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	s, err := Encode(img)
	require.NoError(t, err)
	got, err := Decode(s)
	require.NoError(t, err)
	assert.Equal(t, img.Pix, got.Pix)
}

func TestEncodeIsStandardBase64PNG(t *testing.T) {
	s, err := Encode(gradient(16, 16))
	require.NoError(t, err)
	assert.NotContains(t, s, "\n")

	raw, err := base64.StdEncoding.DecodeString(s)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("\x89PNG\r\n\x1a\n")))

	cfg, err := png.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Width)
	assert.Equal(t, 16, cfg.Height)
}

func TestEncodeDeterministic(t *testing.T) {
	a, err := Encode(gradient(16, 16))
	require.NoError(t, err)
	b, err := Encode(gradient(16, 16))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncodeDimensionMismatch(t *testing.T) {
	for _, img := range []clip.RawImage{
		{Width: 2, Height: 2, Pix: make([]byte, 15)},
		{Width: 2, Height: 2, Pix: make([]byte, 17)},
		{Width: 0, Height: 0, Pix: []byte{1, 2, 3, 4}},
	} {
		_, err := Encode(img)
		require.ErrorIs(t, err, ErrDimensionMismatch)
	}
}

func TestEncodeOneZeroSide(t *testing.T) {
	for _, img := range []clip.RawImage{{Width: 0, Height: 5}, {Width: 7, Height: 0}} {
		s, err := Encode(img)
		require.ErrorIs(t, err, ErrEncodeFailure)
		assert.NotErrorIs(t, err, ErrDimensionMismatch)
		assert.Empty(t, s)
	}

	s, err := Encode(clip.RawImage{})
	require.NoError(t, err)
	got, err := Decode(s)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), got.Width)
	assert.Equal(t, uint32(0), got.Height)
}

func TestCodecCompressionLevels(t *testing.T) {
	img := gradient(16, 16)
	for _, lvl := range []png.CompressionLevel{png.NoCompression, png.BestSpeed, png.BestCompression} {
		c := &Codec{Compression: lvl}
		s, err := c.Encode(img)
		require.NoError(t, err)
		got, err := c.Decode(s)
		require.NoError(t, err)
		assert.Equal(t, img.Pix, got.Pix)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode("!!!not base64")
	require.Error(t, err)

	_, err = Decode(base64.StdEncoding.EncodeToString([]byte("not a png")))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "png decode"))
}

func TestDecodePNG(t *testing.T) {
	s, err := Encode(gradient(2, 2))
	require.NoError(t, err)
	raw, err := DecodePNG(s)
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
}
