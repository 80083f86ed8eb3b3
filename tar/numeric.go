package tar

import (
	"strconv"

	"github.com/jmgilman/go/archive/errors"
)

// numericEncoding tags how a fixed-width numeric field was stored.
type numericEncoding uint8

const (
	encodingOctal numericEncoding = iota
	encodingBinary
)

// numeric is a decoded numeric field together with its encoding.
type numeric struct {
	Encoding numericEncoding
	Value    int64
}

// decodeNumeric decodes a fixed-width numeric field.
//
// A field whose first byte has the top bit set holds a big-endian binary
// value; bit 6 of that byte is the sign. Any other field is octal ASCII,
// optionally space-padded on the left and ended by a space or NUL.
func decodeNumeric(field string, b []byte) (numeric, error) {
	if len(b) > 0 && b[0]&0x80 != 0 {
		v, err := decodeBinary(b)
		if err != nil {
			return numeric{}, errors.WithContext(err, "field", field)
		}
		return numeric{Encoding: encodingBinary, Value: v}, nil
	}

	v, err := decodeOctal(b)
	if err != nil {
		return numeric{}, errors.WithContext(err, "field", field)
	}
	return numeric{Encoding: encodingOctal, Value: v}, nil
}

func decodeBinary(b []byte) (int64, error) {
	var inv byte
	if b[0]&0x40 != 0 {
		inv = 0xff
	}

	var x uint64
	for i, c := range b {
		c ^= inv
		if i == 0 {
			c &= 0x7f
		}
		if x>>56 != 0 {
			return 0, errors.New(errors.CodeMalformedHeader, "binary numeric field overflows int64")
		}
		x = x<<8 | uint64(c)
	}
	if x>>63 != 0 {
		return 0, errors.New(errors.CodeMalformedHeader, "binary numeric field overflows int64")
	}
	if inv == 0xff {
		return ^int64(x), nil
	}
	return int64(x), nil
}

func decodeOctal(b []byte) (int64, error) {
	i := 0
	for i < len(b) && b[i] == ' ' {
		i++
	}
	j := i
	for j < len(b) && b[j] != ' ' && b[j] != 0 {
		j++
	}
	if i == j {
		return 0, nil
	}

	v, err := strconv.ParseUint(string(b[i:j]), 8, 63)
	if err != nil {
		return 0, errors.Wrapf(err, errors.CodeMalformedHeader, "invalid octal digits %q", b[i:j])
	}
	return int64(v), nil
}

// fitsOctal reports whether x fits an n-byte octal field, which holds
// n-1 digits and a terminating NUL.
func fitsOctal(n int, x int64) bool {
	octBits := uint(n-1) * 3
	return x >= 0 && (n >= 22 || x < 1<<octBits)
}

// fitsBinary reports whether x fits an n-byte binary field.
func fitsBinary(n int, x int64) bool {
	binBits := uint(n-1) * 8
	return n >= 9 || (x >= -1<<binBits && x < 1<<binBits)
}

// encodeNumeric writes x into b as octal when it fits and as binary
// otherwise. It reports false when neither encoding can hold x.
func encodeNumeric(b []byte, x int64) (numericEncoding, bool) {
	switch {
	case fitsOctal(len(b), x):
		encodeOctal(b, x)
		return encodingOctal, true
	case fitsBinary(len(b), x):
		encodeBinary(b, x)
		return encodingBinary, true
	}
	return encodingOctal, false
}

func encodeOctal(b []byte, x int64) {
	s := strconv.FormatInt(x, 8)
	for len(s) < len(b)-1 {
		s = "0" + s
	}
	copy(b, s)
	b[len(b)-1] = 0
}

func encodeBinary(b []byte, x int64) {
	for i := len(b) - 1; i >= 0; i-- {
		b[i] = byte(x)
		x >>= 8
	}
	b[0] |= 0x80
}
