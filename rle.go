package cvatyolo

// Decoding of the CVAT mask run-length encoding.

import (
	"image"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// MaskForeground is the gray value of foreground pixels in decoded masks. Background is 0.
const MaskForeground = 255

// Errors returned by DecodeRLE.
var (
	ErrRLEToken   = errors.New("invalid RLE value")
	ErrRLEOverrun = errors.New("RLE runs overrun the mask region")
)

// parseRLE splits the comma-separated RLE string into its values. An empty string has no values.
func parseRLE(rle string) ([]int, error) {
	if strings.TrimSpace(rle) == "" {
		return nil, nil
	}

	tokens := strings.Split(rle, ",")
	values := make([]int, len(tokens))
	for i, tok := range tokens {
		v, err := strconv.Atoi(strings.TrimSpace(tok))
		if err != nil {
			return nil, errors.Wrapf(ErrRLEToken, "token %d (%q): %v", i, tok, err)
		}
		if v < 0 {
			return nil, errors.Wrapf(ErrRLEToken, "token %d is negative (%d)", i, v)
		}
		values[i] = v
	}

	return values, nil
}

// DecodeRLE decodes a CVAT mask RLE string into a height x width bitmap.
//
// The values alternate between background and foreground run lengths, starting with background,
// and walk the region in row-major order. A trailing unpaired value is ignored. Runs that would
// reach past the end of the region are reported as ErrRLEOverrun.
func DecodeRLE(rle string, height, width int) (*image.Gray, error) {
	if height < 0 || width < 0 {
		return nil, errors.Errorf("invalid mask region %dx%d", width, height)
	}

	values, err := parseRLE(rle)
	if err != nil {
		return nil, err
	}
	if len(values)%2 != 0 {
		values = values[:len(values)-1]
	}

	bitmap := image.NewGray(image.Rect(0, 0, width, height))
	total := width * height
	cursor := 0
	for i := 0; i < len(values); i += 2 {
		gap, fill := values[i], values[i+1]

		cursor += gap
		if cursor > total || fill > total-cursor {
			return nil, errors.Wrapf(ErrRLEOverrun, "run %d ends at pixel %d of %dx%d",
				i/2, cursor+fill, width, height)
		}

		// Pix is row-major with Stride == width, so runs wrap from row to row naturally.
		for j := cursor; j < cursor+fill; j++ {
			bitmap.Pix[j] = MaskForeground
		}
		cursor += fill
	}

	return bitmap, nil
}
