package store

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/rushteam/petmatch/core"
)

// EncodeVector 把向量编码为小端 IEEE-754 float64 字节序列，解码后逐位一致
func EncodeVector(vec []float64) []byte {
	buf := make([]byte, 8*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// DecodeVector 解码 EncodeVector 的输出，长度不是 8 的倍数时返回 corrupt 错误
func DecodeVector(buf []byte) ([]float64, error) {
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("vector payload of %d bytes: %w", len(buf), core.ErrFeatureStoreCorrupt)
	}
	vec := make([]float64, len(buf)/8)
	for i := range vec {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return vec, nil
}
