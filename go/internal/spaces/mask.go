package spaces

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMalformedMask = errors.New("malformed action mask")

// DecodeActionMask decodes the action-mask field of an observation into a
// vector of exactly length small integers. A value of 1 at index i means the
// discrete action i is currently legal.
func DecodeActionMask(raw json.RawMessage, length int) ([]uint8, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: missing", ErrMalformedMask)
	}
	var values []int
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMask, err)
	}
	if len(values) != length {
		return nil, fmt.Errorf("%w: expected length %d, got %d", ErrMalformedMask, length, len(values))
	}
	mask := make([]uint8, length)
	for i, v := range values {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("%w: value %d at index %d is not an 8-bit integer", ErrMalformedMask, v, i)
		}
		mask[i] = uint8(v)
	}
	return mask, nil
}

// EncodeActionMask encodes a mask vector into its observation wire form.
func EncodeActionMask(mask []uint8) (json.RawMessage, error) {
	values := make([]int, len(mask))
	for i, v := range mask {
		values[i] = int(v)
	}
	return json.Marshal(values)
}
