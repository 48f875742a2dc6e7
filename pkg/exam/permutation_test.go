package exam

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPermuteAnswers(t *testing.T) {
	answers := []int{0, -1, 2}
	permutation := []PermutationEntry{
		{Target: 1, Options: []int{1, 2}},
		{Target: 2, Options: []int{1, 2}},
		{Target: 3, Options: []int{2, 1}},
	}
	require.Equal(t, []int{0, -1, 1}, PermuteAnswers(answers, permutation))
}

func TestPermuteAnswersIdentity(t *testing.T) {
	answers := []int{1, 4, 0, 3, -1, 2}
	require.Equal(t, answers, PermuteAnswers(answers, IdentityPermutation(len(answers), 4)))
}

func TestPermuteAnswersReordersQuestions(t *testing.T) {
	answers := []int{1, 2, 3}
	permutation := []PermutationEntry{
		{Target: 3, Options: []int{3, 1, 2}},
		{Target: 1, Options: []int{2, 3, 1}},
		{Target: 2, Options: []int{3, 1, 2}},
	}
	require.Equal(t, []int{3, 2, 3}, PermuteAnswers(answers, permutation))
}

func TestPermuteAnswersLengthMismatch(t *testing.T) {
	require.Panics(t, func() {
		PermuteAnswers([]int{1, 2}, IdentityPermutation(3, 2))
	})
}

func TestIncrementAll(t *testing.T) {
	require.Equal(t, []int{1, 2, 0}, IncrementAll([]int{0, 1, -1}))
}

func TestParsePermutation(t *testing.T) {
	permutation, err := ParsePermutation("2/2,0,1; 0/0,1,2;1/1,2,0")
	require.NoError(t, err)
	require.Equal(t, []PermutationEntry{
		{Target: 3, Options: []int{3, 1, 2}},
		{Target: 1, Options: []int{1, 2, 3}},
		{Target: 2, Options: []int{2, 3, 1}},
	}, permutation)
	require.NoError(t, CheckPermutation([]int{1, 0, -1}, permutation))
	require.Equal(t, []int{0, -1, 3}, PermuteAnswers([]int{1, 0, -1}, permutation))

	for _, text := range []string{"", "1", "a/1,2", "1/1,x", "-1/0,1", "0/0,-2"} {
		_, err := ParsePermutation(text)
		require.ErrorIs(t, err, ErrBadPermutation, text)
	}
}

func TestCheckPermutation(t *testing.T) {
	identity := IdentityPermutation(3, 4)
	require.NoError(t, CheckPermutation([]int{4, 0, -1}, identity))
	require.ErrorIs(t, CheckPermutation([]int{1, 2}, identity), ErrBadPermutation)
	require.ErrorIs(t, CheckPermutation([]int{5, 0, 0}, identity), ErrBadPermutation)
	require.ErrorIs(t, CheckPermutation([]int{-2, 0, 0}, identity), ErrBadPermutation)

	repeated := []PermutationEntry{{Target: 1, Options: []int{1}}, {Target: 1, Options: []int{1}}}
	require.ErrorIs(t, CheckPermutation([]int{1, 1}, repeated), ErrBadPermutation)
}
