package analyzer

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"
)

// ErrDecode marks a frame payload that cannot be decoded into a bitmap.
var ErrDecode = errors.New("failed to decode frame")

// DecodeFrame turns the client's base64 data-URL payload into a decoded
// image. The raw bytes are returned as well so a triggering frame can be
// stored as evidence without re-encoding.
func DecodeFrame(data string) (image.Image, []byte, error) {
	// Strip the "data:image/jpeg;base64," header if present.
	if idx := strings.IndexByte(data, ','); idx >= 0 {
		data = data[idx+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return img, raw, nil
}
