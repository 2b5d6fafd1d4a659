package store

import (
	"fmt"

	"github.com/roach88/adl/internal/ir"
)

// marshalPayload converts a payload to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON so stored hashes can be recomputed.
func marshalPayload(payload ir.IRObject) (string, error) {
	if payload == nil {
		payload = ir.IRObject{}
	}
	data, err := ir.MarshalCanonical(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// unmarshalPayload parses canonical JSON TEXT back into a payload.
// Large integers survive: decoding goes through json.Number, never float64.
func unmarshalPayload(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	obj, err := ir.ParseObject([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return obj, nil
}
