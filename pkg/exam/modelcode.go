package exam

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidLetter   = errors.New("incorrect model letter")
	ErrModelOutOfRange = errors.New("model is currently limited to A - H")
	ErrModelTooBig     = errors.New("model number too big given the number of answers")
	ErrBadCodeSize     = errors.New("code size must be positive")
)

// ModelZero is returned by DecodeModel for a blank model code when the caller accepts it.
const ModelZero byte = '0'

const (
	maxModelLetter = 'H'
	seedLength     = 4
)

// EncodeModel returns the bit pattern printed on the sheet for the given model letter.
//
// Position 0 is the column of the left-most answer table. The result has
// numTables*numAnswers bits: the 4-bit seed (three information bits, least
// significant first, plus a check bit) repeated and truncated to that length.
func EncodeModel(model string, numTables, numAnswers int) ([]bool, error) {
	if len(model) != 1 || model[0] < 'A' || model[0] > 'Z' {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLetter, model)
	}
	if model[0] > maxModelLetter {
		return nil, fmt.Errorf("%w: %q", ErrModelOutOfRange, model)
	}
	if numTables <= 0 || numAnswers <= 0 {
		return nil, fmt.Errorf("%w: %d tables, %d answers", ErrBadCodeSize, numTables, numAnswers)
	}
	modelNum := int(model[0] - 'A')
	numBits := numTables * numAnswers
	if numBits < 31 && modelNum >= 1<<uint(numBits) {
		return nil, fmt.Errorf("%w: model %s needs more than %d bits", ErrModelTooBig, model, numBits)
	}

	seed := intToBits(modelNum, 3)
	seed[2] = !seed[2]
	seed = append(seed, seed[0] != seed[1] != seed[2])
	seed[2] = !seed[2]

	bits := make([]bool, 0, seedLength*(1+(numBits-1)/seedLength))
	for i := 0; i < 1+(numBits-1)/seedLength; i++ {
		bits = append(bits, seed...)
	}
	return bits[:numBits], nil
}

// DecodeModel returns the model letter encoded by bits.
//
// Every 4-bit block must equal the first one and the first block must
// satisfy b3 = b0 ^ b1 ^ !b2. Codes of 2 or 3 bits carry no check bit and
// are always valid. A code that fails the check decodes to ModelZero when
// acceptModelZero is set and all bits are false; otherwise ok is false.
func DecodeModel(bits []bool, acceptModelZero bool) (letter byte, ok bool) {
	valid := false
	switch {
	case len(bits) == 2 || len(bits) == 3:
		valid = true
	case len(bits) >= seedLength:
		if bits[3] == (bits[0] != bits[1] != !bits[2]) {
			valid = true
			for i := seedLength; i < len(bits); i++ {
				if bits[i] != bits[i-seedLength] {
					valid = false
					break
				}
			}
		}
	}
	if valid {
		num := 0
		for i := 0; i < len(bits) && i < 3; i++ {
			if bits[i] {
				num |= 1 << uint(i)
			}
		}
		return byte('A' + num), true
	}
	if acceptModelZero && allFalse(bits) {
		return ModelZero, true
	}
	return 0, false
}

// intToBits returns n as numDigits bits, least significant first.
func intToBits(n, numDigits int) []bool {
	bits := make([]bool, 0, numDigits)
	for ; n > 0; n /= 2 {
		bits = append(bits, n%2 == 1)
	}
	for len(bits) < numDigits {
		bits = append(bits, false)
	}
	return bits
}

func allFalse(bits []bool) bool {
	if len(bits) == 0 {
		return false
	}
	for _, b := range bits {
		if b {
			return false
		}
	}
	return true
}
