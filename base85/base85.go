// Package base85 implements a base85 text encoding restricted to an
// alphabet safe for embedding in quoted source code: no backslash,
// double quote, hash or brace characters appear in the output.
//
// The stream layout is:
//
//   - a header of two characters: a space, then the alphabet character
//     whose digit value is the byte count of the final partial group
//     (0 means the input length is a multiple of four)
//   - one five-character big-endian base-85 group per four input bytes,
//     the last group zero-padded
//   - a newline and a space after every 14 groups
//
// Decoding ignores any character outside the alphabet, so encoded text
// survives rewrapping and indentation.
package base85

import (
	"errors"
	"fmt"
	"strings"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"abcdefghijklmnopqrstuvwxyz" +
	"0123456789" +
	"!$%&()*-./" +
	":;<=>?@[]^" +
	",_|"

// groupsPerLine is the number of five-character groups emitted between
// line breaks.
const groupsPerLine = 14

var pow85 = [5]uint32{52200625, 614125, 7225, 85, 1}

var charToVal [128]int8

func init() {
	for i := range charToVal {
		charToVal[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		c := alphabet[i]
		if charToVal[c] != -1 {
			panic(fmt.Sprintf("base85: duplicate alphabet character %q", c))
		}
		charToVal[c] = int8(i)
	}
	if len(alphabet) != 85 {
		panic("base85: alphabet must hold 85 characters")
	}
}

// ErrCorrupt is wrapped by every decoding error.
var ErrCorrupt = errors.New("corrupt base85 input")

// Encode renders data as base85 text.
func Encode(data []byte) string {
	var b strings.Builder
	b.Grow(2 + (len(data)+3)/4*5 + (len(data)/(4*groupsPerLine)+1)*2)

	b.WriteByte(' ')
	b.WriteByte(alphabet[len(data)%4])

	for pos := 0; pos < len(data); {
		var val uint32
		for i := 24; i >= 0; i -= 8 {
			if pos < len(data) {
				val |= uint32(data[pos]) << i
				pos++
			}
		}
		for i := 0; i < 5; i++ {
			b.WriteByte(alphabet[(val/pow85[i])%85])
		}
		if pos%(4*groupsPerLine) == 0 {
			b.WriteString("\n ")
		}
	}
	return b.String()
}

// Decode parses base85 text back into bytes. Characters outside the
// alphabet are skipped; anything else malformed returns an error
// wrapping ErrCorrupt.
func Decode(s string) ([]byte, error) {
	if len(s) < 6 && len(s) != 2 {
		return nil, fmt.Errorf("base85: input of %d bytes is too short: %w", len(s), ErrCorrupt)
	}

	out := make([]byte, 0, len(s)/5*4)
	tail := -1
	shift := 0
	var val uint32
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 128 {
			continue
		}
		digit := charToVal[c]
		if digit == -1 {
			continue
		}
		if tail == -1 {
			tail = int(digit)
			if tail > 4 {
				return nil, fmt.Errorf("base85: tail length %d exceeds group size: %w", tail, ErrCorrupt)
			}
			continue
		}
		val += uint32(digit) * pow85[shift]
		shift++
		if shift == 5 {
			out = append(out, byte(val>>24), byte(val>>16), byte(val>>8), byte(val))
			shift = 0
			val = 0
		}
	}
	if shift != 0 {
		return nil, fmt.Errorf("base85: %d stray digits after last group: %w", shift, ErrCorrupt)
	}
	if tail == -1 {
		return nil, fmt.Errorf("base85: no header found: %w", ErrCorrupt)
	}
	if tail != 0 {
		drop := 4 - tail
		if drop > len(out) {
			return nil, fmt.Errorf("base85: tail length %d inconsistent with %d decoded bytes: %w", tail, len(out), ErrCorrupt)
		}
		out = out[:len(out)-drop]
	}
	return out, nil
}
