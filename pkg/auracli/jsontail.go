package auracli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// ExtractJSON decodes the JSON object or array at the end of output.
// aura-cli may print banners or warnings ahead of the payload, and those can
// contain brackets themselves, so decoding is attempted at each '{' or '['
// and the first value that runs to the end of the output wins. When no value
// reaches the end (trailing text after the payload) the first complete value
// is returned. Empty or whitespace-only output decodes to an empty object.
func ExtractJSON(output []byte) (interface{}, error) {
	trimmed := bytes.TrimSpace(output)
	if len(trimmed) == 0 {
		return map[string]interface{}{}, nil
	}

	var (
		first   interface{}
		found   bool
		lastErr error
	)
	for start := 0; start < len(trimmed); {
		i := bytes.IndexAny(trimmed[start:], "{[")
		if i < 0 {
			break
		}
		offset := start + i
		start = offset + 1

		v, n, err := decodeFirst(trimmed[offset:])
		if err != nil {
			lastErr = err
			continue
		}
		if len(bytes.TrimSpace(trimmed[offset+n:])) == 0 {
			return v, nil
		}
		if !found {
			first, found = v, true
		}
	}

	if found {
		return first, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no JSON value found in output")
	}
	return nil, lastErr
}

// decodeFirst decodes the value at the start of data and reports how many
// bytes it consumed.
func decodeFirst(data []byte) (interface{}, int, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		if err == io.EOF {
			return nil, 0, io.ErrUnexpectedEOF
		}
		return nil, 0, err
	}
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		return v, int(dec.InputOffset()), nil
	default:
		return nil, 0, fmt.Errorf("expected JSON object or array, got %T", v)
	}
}
