package proto

import (
	"github.com/goccy/go-json"
	"google.golang.org/grpc/encoding"
)

// The track service carries plain Go structs, so messages go over the wire as JSON
// (content-type application/grpc+json) instead of protobuf.
const codecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return codecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
