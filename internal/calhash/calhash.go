// Package calhash — односторонняя функция сжатия для проверки целостности калибровки.
//
// Сообщение обрабатывается блоками по 32 байта. Состояние 4x4 слова:
// [0:4] — цепочка (первые четыре слова дайджеста), [4:7] — константа,
// [7] — смещение блока в словах, [8:16] — блок сообщения. После 20 раундов
// перестановки ChaCha состояние XOR-ится в дайджест.
package calhash

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
)

// BlockSize — размер блока сообщения в байтах
const BlockSize = 32

// Size — размер дайджеста в байтах
const Size = 64

const rounds = 20

// ErrLength — длина сообщения не кратна BlockSize
var ErrLength = errors.New("calhash: message length is not a multiple of 32 bytes")

// constant — собственная константа вместо "expand 32-byte k"
var constant = [4]uint32{0x381377d5, 0x4b62bff4, 0x349dcc7b, 0x845b865f}

// Digest — 512-битный дайджест
type Digest [16]uint32

// Sum вычисляет дайджест сообщения. Слова сообщения — little-endian.
func Sum(msg []byte) (Digest, error) {
	var d Digest
	if len(msg)%BlockSize != 0 {
		return d, fmt.Errorf("%w: %d", ErrLength, len(msg))
	}
	var x [16]uint32
	for off := 0; off < len(msg); off += BlockSize {
		copy(x[0:4], d[0:4])
		copy(x[4:7], constant[0:3])
		x[7] = uint32(off / 4)
		for j := 0; j < 8; j++ {
			x[8+j] = binary.LittleEndian.Uint32(msg[off+4*j:])
		}
		permute(&x)
		for j := range d {
			d[j] ^= x[j]
		}
	}
	return d, nil
}

// Bytes — дайджест в little-endian
func (d Digest) Bytes() []byte {
	b := make([]byte, 0, Size)
	for _, w := range d {
		b = binary.LittleEndian.AppendUint32(b, w)
	}
	return b
}

// Equal сравнивает дайджесты без раннего выхода.
func (d Digest) Equal(o Digest) bool {
	var v uint32
	for i := range d {
		v |= d[i] ^ o[i]
	}
	return v == 0
}

// FromBytes восстанавливает дайджест из Size байт little-endian.
func FromBytes(b []byte) (Digest, error) {
	var d Digest
	if len(b) != Size {
		return d, fmt.Errorf("calhash: digest length %d, want %d", len(b), Size)
	}
	for i := range d {
		d[i] = binary.LittleEndian.Uint32(b[4*i:])
	}
	return d, nil
}

func permute(x *[16]uint32) {
	for i := 0; i < rounds/2; i++ {
		// столбцы
		quarter(x, 0, 4, 8, 12)
		quarter(x, 1, 5, 9, 13)
		quarter(x, 2, 6, 10, 14)
		quarter(x, 3, 7, 11, 15)
		// диагонали
		quarter(x, 0, 5, 10, 15)
		quarter(x, 1, 6, 11, 12)
		quarter(x, 2, 7, 8, 13)
		quarter(x, 3, 4, 9, 14)
	}
}

func quarter(x *[16]uint32, a, b, c, d int) {
	x[a] += x[b]
	x[d] = bits.RotateLeft32(x[d]^x[a], 16)
	x[c] += x[d]
	x[b] = bits.RotateLeft32(x[b]^x[c], 12)
	x[a] += x[b]
	x[d] = bits.RotateLeft32(x[d]^x[a], 8)
	x[c] += x[d]
	x[b] = bits.RotateLeft32(x[b]^x[c], 7)
}
