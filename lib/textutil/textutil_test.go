package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDigits(t *testing.T) {
	cases := []struct {
		in     string
		expect int
	}{
		{"1,004,920点", 1004920},
		{"  12回 ", 12},
		{"", 0},
		{"---", 0},
		{"7", 7},
	}
	for _, c := range cases {
		require.Equal(t, c.expect, Digits(c.in), c.in)
	}
}

func TestMatchTitles(t *testing.T) {
	titles := []string{"夏祭り", "紅蓮華", "Hello Don", "ドンだー広場"}

	matches := MatchTitles("hello don", titles, 0.9)
	require.NotEmpty(t, matches)
	require.Equal(t, 2, matches[0].Index)

	matches = MatchTitles("広場", titles, 0.9)
	require.Len(t, matches, 1)
	require.Equal(t, 3, matches[0].Index)

	require.Empty(t, MatchTitles("zzzzzz", titles, 0.9))
}
