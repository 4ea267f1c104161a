package connect

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// codecName replaces connect's protojson codec for the "json" content type.
const codecName = "json"

// jsonCodec carries plain Go structs as JSON.
type jsonCodec struct{}

var _ connect.Codec = jsonCodec{}

func (jsonCodec) Name() string {
	return codecName
}

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}
