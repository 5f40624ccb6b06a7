package types

import (
	"encoding/json"
	"errors"

	"google.golang.org/protobuf/types/known/structpb"
)

// FromStruct decodes a gRPC Struct payload into a request type using the
// same JSON field names as the HTTP API.
func FromStruct(in *structpb.Struct, out interface{}) error {
	if in == nil {
		return errors.New("empty request")
	}
	raw, err := in.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// ToStruct encodes a response body as a gRPC Struct.
func ToStruct(in interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(raw); err != nil {
		return nil, err
	}
	return out, nil
}
