package exam

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

var (
	ErrBadDimensions       = errors.New("dimensions must be a ';' separated list of 'choices,questions' tables")
	ErrDifferentNumChoices = errors.New("there are questions with a different number of choices")
)

// Dimension is the geometry of one answer table of the sheet.
type Dimension struct {
	Choices   int
	Questions int
}

// ParseDimensions parses an exam geometry such as "4,10;4,9": two tables, the
// left-most with 10 questions and the right-most with 9, both with 4 choices.
// It also returns the number of choices of every question in sheet order.
func ParseDimensions(text string, checkEqualNumChoices bool) ([]Dimension, []int, error) {
	var dimensions []Dimension
	var numChoices []int
	for _, table := range strings.Split(text, ";") {
		fields := strings.Split(table, ",")
		if len(fields) != 2 {
			return nil, nil, fmt.Errorf("%w: table %q", ErrBadDimensions, table)
		}
		choices, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrBadDimensions, err)
		}
		questions, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrBadDimensions, err)
		}
		if choices <= 0 || questions <= 0 {
			return nil, nil, fmt.Errorf("%w: table %q", ErrBadDimensions, table)
		}
		dimensions = append(dimensions, Dimension{Choices: choices, Questions: questions})
		for i := 0; i < questions; i++ {
			numChoices = append(numChoices, choices)
		}
	}
	if checkEqualNumChoices {
		for _, d := range dimensions[1:] {
			if d.Choices != dimensions[0].Choices {
				return nil, nil, ErrDifferentNumChoices
			}
		}
	}
	return dimensions, numChoices, nil
}

// CheckModelLetter validates a model letter typed by a user and returns it
// in upper case. "0" denotes a sheet without model; "?" is accepted as an
// unknown model only when allowQuestionMark is set.
func CheckModelLetter(model string, allowQuestionMark bool) (string, error) {
	if len(model) == 1 {
		c := rune(model[0])
		if c == rune(ModelZero) || (c < unicode.MaxASCII && unicode.IsLetter(c)) {
			return strings.ToUpper(model), nil
		}
		if allowQuestionMark && c == '?' {
			return model, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidLetter, model)
}
