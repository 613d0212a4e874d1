package accel

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName selects this package's codec via grpc.CallContentSubtype /
// grpc.ForceServerCodec. Accelerator drivers are third-party binaries
// (spec §4.D "Dynamic accelerator list"); a plain JSON wire format keeps
// the contract readable and implementable without a protoc toolchain,
// the way grpc-go's own examples/go-encoding sample wires a non-protobuf
// codec.
const codecName = "plotaccel+json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return codecName }

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
