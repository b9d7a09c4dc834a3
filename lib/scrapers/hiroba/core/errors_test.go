package core

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorIs(t *testing.T) {
	res := &Response{Status: 302}
	err := NewError(KindNotLogined, res, errors.New("redirected"))
	wrapped := fmt.Errorf("clear data: %w", err)

	require.ErrorIs(t, wrapped, ErrNotLogined)
	require.NotErrorIs(t, wrapped, ErrCannotConnect)
	require.Equal(t, KindNotLogined, KindOf(wrapped))
	require.True(t, IsLoginError(wrapped))
	require.False(t, IsLoginError(ErrNoMatchedCard))
	require.Equal(t, KindUnknown, KindOf(errors.New("other")))

	var herr *Error
	require.True(t, errors.As(wrapped, &herr))
	require.Same(t, res, herr.Response)
	require.Equal(t, "hiroba: NOT_LOGINED: redirected", err.Error())
	require.Equal(t, "hiroba: NO_MATCHED_CARD", ErrNoMatchedCard.Error())
}

func TestCheckPortalResponse(t *testing.T) {
	endpoints := DefaultEndpoints()
	portal, err := url.Parse("https://donderhiroba.jp/score_list.php?genre=1")
	require.NoError(t, err)
	elsewhere, err := url.Parse("https://account.bandainamcoid.com/login.html")
	require.NoError(t, err)

	require.NoError(t, CheckPortalResponse(&Response{Status: 200, FinalURL: portal}, endpoints))

	cases := []*Response{
		{Status: 302, FinalURL: portal, Header: http.Header{}},
		{Status: 500, FinalURL: portal},
		{Status: 200, FinalURL: elsewhere},
	}
	for _, res := range cases {
		err := CheckPortalResponse(res, endpoints)
		require.ErrorIs(t, err, ErrNotLogined)
		var herr *Error
		require.True(t, errors.As(err, &herr))
		require.Same(t, res, herr.Response)
	}
}

func TestGenreDifficulty(t *testing.T) {
	genre, err := ParseGenre("vocaloid")
	require.NoError(t, err)
	require.Equal(t, 4, genre.ID())
	require.Len(t, Genres, 8)

	_, err = ParseGenre("jazz")
	require.Error(t, err)

	d, err := ParseDifficulty("oni_ura")
	require.NoError(t, err)
	require.Equal(t, DifficultyUra, d)
	require.Equal(t, 5, d.Level())

	fromLevel, ok := DifficultyFromLevel(3)
	require.True(t, ok)
	require.Equal(t, DifficultyHard, fromLevel)
	_, ok = DifficultyFromLevel(6)
	require.False(t, ok)
}

func TestPortal(t *testing.T) {
	endpoints := DefaultEndpoints()
	require.Equal(t, "https://donderhiroba.jp/score_list.php?genre=2", endpoints.Portal("score_list.php", url.Values{"genre": {"2"}}))
	require.Equal(t, "https://donderhiroba.jp/", endpoints.Portal("/", nil))

	header := BrowserHeaders("")
	require.Empty(t, header.Get("Cookie"))
	header = BrowserHeaders("abc")
	require.Equal(t, "_token_v2=abc", header.Get("Cookie"))
}
