package dtype

import (
	"encoding/binary"

	"github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"
)

// Half-precision host codecs. Device kernels consume float16/bfloat16
// buffers natively; host-side code widens to float32 through these.

// DecodeFloat16 widens little-endian float16 bytes to float32 values.
func DecodeFloat16(raw []byte) []float32 {
	out := make([]float32, len(raw)/2)
	for i := range out {
		out[i] = float16.Frombits(binary.LittleEndian.Uint16(raw[i*2:])).Float32()
	}
	return out
}

// EncodeFloat16 narrows float32 values to little-endian float16 bytes.
func EncodeFloat16(vals []float32) []byte {
	out := make([]byte, len(vals)*2)
	for i, v := range vals {
		binary.LittleEndian.PutUint16(out[i*2:], float16.Fromfloat32(v).Bits())
	}
	return out
}

// DecodeBFloat16 widens bfloat16 bytes to float32 values.
func DecodeBFloat16(raw []byte) []float32 {
	return bfloat16.DecodeFloat32(raw)
}

// EncodeBFloat16 narrows float32 values to bfloat16 bytes.
func EncodeBFloat16(vals []float32) []byte {
	return bfloat16.EncodeFloat32(vals)
}
