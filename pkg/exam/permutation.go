package exam

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrBadPermutation = errors.New("malformed answer permutation")

const (
	// Blank marks a question with no option selected.
	Blank = 0
	// Invalid marks a question with an unreadable or multiple selection.
	Invalid = -1
)

// PermutationEntry describes where a question of a shuffled model goes in the
// canonical numbering and how its options map back.
type PermutationEntry struct {
	// Target is the 1-based canonical question position
	Target int

	// Options maps a 1-based shuffled option to its canonical option number
	Options []int
}

// PermuteAnswers maps the answers detected on a sheet of a shuffled model
// back to the canonical question and option numbering of the answer key.
// Blank and Invalid answers are moved but never remapped.
//
// It panics when answers and permutation have different lengths.
func PermuteAnswers(answers []int, permutation []PermutationEntry) []int {
	if len(answers) != len(permutation) {
		panic(fmt.Sprintf("permutation has %d entries for %d answers", len(permutation), len(answers)))
	}
	permuted := make([]int, len(answers))
	for i, option := range answers {
		resolved := option
		if option != Blank && option != Invalid {
			resolved = permutation[i].Options[option-1]
		}
		permuted[permutation[i].Target-1] = resolved
	}
	return permuted
}

// IdentityPermutation returns the permutation that leaves numQuestions
// questions of numChoices options untouched.
func IdentityPermutation(numQuestions, numChoices int) []PermutationEntry {
	options := make([]int, numChoices)
	for i := range options {
		options[i] = i + 1
	}
	permutation := make([]PermutationEntry, numQuestions)
	for i := range permutation {
		permutation[i] = PermutationEntry{Target: i + 1, Options: options}
	}
	return permutation
}

// IncrementAll returns a new slice with every value increased by one.
func IncrementAll(values []int) []int {
	result := make([]int, len(values))
	for i, v := range values {
		result[i] = v + 1
	}
	return result
}

// ParsePermutation parses a permutation written as ';' separated
// "question/options" entries, such as "1/2,0,1;0/0,1,2". Question and option
// numbers in the text start at 0; the returned entries start at 1.
func ParsePermutation(text string) ([]PermutationEntry, error) {
	var permutation []PermutationEntry
	for _, entry := range strings.Split(text, ";") {
		fields := strings.Split(entry, "/")
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: entry %q", ErrBadPermutation, entry)
		}
		target, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil || target < 0 {
			return nil, fmt.Errorf("%w: question in entry %q", ErrBadPermutation, entry)
		}
		optionFields := strings.Split(fields[1], ",")
		options := make([]int, len(optionFields))
		for i, field := range optionFields {
			if options[i], err = strconv.Atoi(strings.TrimSpace(field)); err != nil || options[i] < 0 {
				return nil, fmt.Errorf("%w: options in entry %q", ErrBadPermutation, entry)
			}
		}
		permutation = append(permutation, PermutationEntry{Target: target + 1, Options: IncrementAll(options)})
	}
	return permutation, nil
}

// CheckPermutation verifies that permutation can be applied to answers: the
// targets cover every question once and every answer names an existing option.
func CheckPermutation(answers []int, permutation []PermutationEntry) error {
	if len(answers) != len(permutation) {
		return fmt.Errorf("%w: %d entries for %d answers", ErrBadPermutation, len(permutation), len(answers))
	}
	seen := make([]bool, len(permutation))
	for i, entry := range permutation {
		if entry.Target < 1 || entry.Target > len(permutation) || seen[entry.Target-1] {
			return fmt.Errorf("%w: question %d is not a valid target", ErrBadPermutation, entry.Target-1)
		}
		seen[entry.Target-1] = true
		if answers[i] < Invalid || answers[i] > len(entry.Options) {
			return fmt.Errorf("%w: answer %d of question %d has no option", ErrBadPermutation, answers[i], i+1)
		}
	}
	return nil
}
