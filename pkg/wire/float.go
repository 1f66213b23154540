package wire

import (
	"encoding/binary"
	"math"
)

func readF32(b []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off : off+4]))
}

func writeF32(b []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(b[off:off+4], math.Float32bits(v))
}

func writeVec3(b []byte, off int, v Vec3) {
	writeF32(b, off, v.X)
	writeF32(b, off+4, v.Y)
	writeF32(b, off+8, v.Z)
}

func writeQuat(b []byte, off int, v Quaternion) {
	writeF32(b, off, v.X)
	writeF32(b, off+4, v.Y)
	writeF32(b, off+8, v.Z)
	writeF32(b, off+12, v.W)
}
