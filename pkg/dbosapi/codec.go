package dbosapi

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName is negotiated over the grpc-encoding content-subtype. Neither
// side runs protoc, so messages are plain structs marshaled as JSON instead
// of wire-format protobuf.
const codecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
