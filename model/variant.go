package model

import "encoding/json"

// marshalFlat encodes common and variant as a single JSON object. Variant
// payloads never share keys with the common part of their entity.
func marshalFlat(common, variant any) ([]byte, error) {
	base, err := json.Marshal(common)
	if err != nil {
		return nil, err
	}
	if variant == nil {
		return base, nil
	}
	extra, err := json.Marshal(variant)
	if err != nil {
		return nil, err
	}
	if len(extra) <= 2 || string(extra) == "null" {
		return base, nil
	}
	if len(base) <= 2 {
		return extra, nil
	}
	out := make([]byte, 0, len(base)+len(extra))
	out = append(out, base[:len(base)-1]...)
	out = append(out, ',')
	out = append(out, extra[1:]...)
	return out, nil
}
