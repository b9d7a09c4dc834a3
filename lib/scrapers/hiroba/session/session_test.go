package session

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"hiroba-client/lib/chrono"
	"hiroba-client/lib/scrapers/hiroba/core"
	"hiroba-client/lib/scrapers/hiroba/parse"
	"hiroba-client/lib/testutil"

	"github.com/google/go-cmp/cmp"
	"github.com/mazen160/go-random"
	"github.com/stretchr/testify/require"
)

func cardListPage(cards ...parse.Card) []byte {
	var out strings.Builder
	out.WriteString("<html><body>")
	for _, card := range cards {
		fmt.Fprintf(&out, `<div class="cardSelect"><div id="mydon_area">
	<div class="mydon_image"><img src="%s"></div>
	<div><p>太鼓番: %s</p></div>
	<div>%s</div>
</div></div>`, card.MyDon, card.TaikoNumber, card.Nickname)
	}
	out.WriteString("</body></html>")
	return []byte(out.String())
}

const mypagePage = `<html><body>
<header><h1>マイページ</h1></header>
<div id="mydon_area">
	<div class="status_bar"></div>
	<div id="mydon_name">どんちゃん</div>
	<div class="user_area">
		<div class="mydon_image"><img src="mydon_1.png"></div>
		<div class="detail"><p>段位: 十段</p><p>太鼓番：111111111111</p></div>
	</div>
</div>
<input type="hidden" id="_tckt" value="mypage-ticket">
</body></html>`

func clearPage(songNo, title, crownButton, ticket string) []byte {
	return []byte(fmt.Sprintf(`<html><body><ul class="songList">
<li class="contentBox">
	<div class="songNameArea"><a href="score_detail.php?song_no=%s&amp;level=4"><span>%s</span></a></div>
	<div class="buttonList"><img class="crown button_oni" src="image/sp/640/crown_button_%s_640.png"></div>
</li>
</ul><input type="hidden" id="_tckt" value="%s"></body></html>`, songNo, title, crownButton, ticket))
}

var (
	donchan  = parse.Card{TaikoNumber: "111111111111", Nickname: "どんちゃん", MyDon: "mydon_1.png"}
	katchan  = parse.Card{TaikoNumber: "222222222222", Nickname: "かっちゃん", MyDon: "mydon_2.png"}
	selected = "https://donderhiroba.jp/mypage_top.php"
)

func setup(t testing.TB) (*Session, *testutil.FakeTransport) {
	token, err := random.String(24)
	if err != nil {
		t.Fatal(err)
	}
	transport := testutil.NewFakeTransport()
	s := New(Options{
		Transport: transport,
		Time:      chrono.FixedTime{At: time.Date(2024, time.June, 1, 12, 0, 0, 0, chrono.JST())},
	}, token)
	return s, transport
}

func TestLogin(t *testing.T) {
	transport := testutil.NewFakeTransport()

	transport.On("POST", "v3/login/idpw", testutil.Page([]byte(`{"redirect":"https://www.bandainamcoid.com/v2/oauth2/auth"}`)))
	transport.On("GET", "v2/oauth2/auth", testutil.Redirect("https://donderhiroba.jp/login_process.php"))
	loginProcess := testutil.Redirect("https://donderhiroba.jp/login_done.php")
	loginProcess.Header.Add("Set-Cookie", "a=1; Path=/")
	loginProcess.Header.Add("Set-Cookie", "b=2; Path=/")
	loginProcess.Header.Add("Set-Cookie", "c=3; Path=/; HttpOnly")
	transport.On("GET", "login_process.php", loginProcess)
	done := testutil.Page(nil)
	done.Header = http.Header{}
	done.Header.Add("Set-Cookie", "_token_v2=t0k3n; Path=/")
	transport.On("GET", "login_done.php", done)

	transport.On("GET", "login_select.php", testutil.Page(cardListPage(donchan, katchan)))
	transport.On("POST", "login_select.php", testutil.Redirect(selected))
	transport.On("GET", "mypage_top.php", testutil.Page([]byte(mypagePage)))

	s, err := Login(context.Background(), Options{Transport: transport}, "don@example.com", "katsu", katchan.TaikoNumber)
	require.NoError(t, err)
	require.Equal(t, "t0k3n", s.Token())
	require.True(t, s.NamcoLogined())
	require.True(t, s.CardLogined())
	require.Equal(t, &katchan, s.CurrentLogin())

	require.Equal(t, "", transport.Calls[2].Header.Get("Cookie"))
	require.Equal(t, "c=3", transport.Calls[3].Header.Get("Cookie"))

	var selection core.Request
	for _, call := range transport.Calls {
		if call.Method == http.MethodPost && strings.HasSuffix(call.URL, "login_select.php") {
			selection = call
		}
	}
	require.Equal(t, "2", selection.Form.Get("id_pos"))
	require.Equal(t, "_token_v2=t0k3n", selection.Header.Get("Cookie"))
}

func TestLoginInvalidPassword(t *testing.T) {
	transport := testutil.NewFakeTransport()
	transport.On("POST", "v3/login/idpw", testutil.Page([]byte(`{"error":{"code":"E0001"}}`)))

	_, err := Login(context.Background(), Options{Transport: transport}, "don@example.com", "wrong", "")
	require.ErrorIs(t, err, core.ErrInvalidIdPassword)
}

func TestCheckNamcoLogined(t *testing.T) {
	s, transport := setup(t)
	transport.On("GET", "login_select.php", testutil.Page(cardListPage(donchan)), testutil.Offsite(), testutil.Failure())

	ok, err := s.CheckNamcoLogined(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, s.NamcoLogined())
	require.False(t, s.CardLogined())
	require.Equal(t, []parse.Card{donchan}, s.CardList())

	ok, err = s.CheckNamcoLogined(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
	require.False(t, s.NamcoLogined())
	require.Nil(t, s.CardList())

	_, err = s.CheckNamcoLogined(context.Background())
	require.ErrorIs(t, err, core.ErrCannotConnect)
}

func TestCardLoginRetry(t *testing.T) {
	s, transport := setup(t)
	transport.On("GET", "login_select.php",
		testutil.Page(cardListPage(donchan)),
		testutil.Page(cardListPage(donchan, katchan)),
	)
	transport.On("POST", "login_select.php", testutil.Redirect(selected))
	transport.On("GET", "mypage_top.php", testutil.Page([]byte(mypagePage)))

	_, err := s.ReloadCardList(context.Background())
	require.NoError(t, err)

	card, err := s.CardLogin(context.Background(), katchan.TaikoNumber)
	require.NoError(t, err)
	require.Equal(t, katchan, card)
	require.Equal(t, 2, transport.Count("GET", "login_select.php"))
	require.Equal(t, 1, transport.Count("POST", "login_select.php"))
	require.True(t, s.CardLogined())
	require.Equal(t, []parse.Card{donchan, katchan}, s.CardList())
}

func TestCardLoginNoMatch(t *testing.T) {
	s, transport := setup(t)
	transport.On("GET", "login_select.php", testutil.Page(cardListPage(donchan)))

	// the first list is fetched fresh, no retry
	_, err := s.CardLogin(context.Background(), katchan.TaikoNumber)
	require.ErrorIs(t, err, core.ErrNoMatchedCard)
	require.Equal(t, 1, transport.Count("GET", "login_select.php"))

	// a cached list is reloaded exactly once
	_, err = s.CardLogin(context.Background(), katchan.TaikoNumber)
	require.ErrorIs(t, err, core.ErrNoMatchedCard)
	require.Equal(t, 2, transport.Count("GET", "login_select.php"))
	require.Equal(t, 0, transport.Count("POST", "login_select.php"))

	require.True(t, s.NamcoLogined())
	require.False(t, s.CardLogined())
}

func TestInvalidation(t *testing.T) {
	s, transport := setup(t)
	transport.On("GET", "login_select.php", testutil.Page(cardListPage(donchan)))
	transport.On("GET", "/", testutil.Page([]byte(mypagePage)))
	transport.On("GET", "score_list.php?genre=1", testutil.Offsite())

	_, err := s.ReloadCardList(context.Background())
	require.NoError(t, err)
	ok, err := s.CheckCardLogined(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, s.NamcoLogined())
	require.Equal(t, &donchan, s.CurrentLogin())

	_, err = s.UpdateClearData(context.Background())
	require.ErrorIs(t, err, core.ErrNotLogined)

	require.False(t, s.NamcoLogined())
	require.False(t, s.CardLogined())
	require.Nil(t, s.CurrentLogin())
	require.Nil(t, s.CardList())
	// no genre past the rejected one is requested
	require.Equal(t, 0, transport.Count("GET", "score_list.php?genre=2"))
}

func TestInvalidationKeepsOtherErrors(t *testing.T) {
	s, transport := setup(t)
	transport.On("GET", "/", testutil.Page([]byte(mypagePage)))
	transport.On("GET", "score_list.php?genre=3", testutil.Failure())

	_, err := s.CheckCardLogined(context.Background())
	require.NoError(t, err)

	_, err = s.UpdateClearDataGenre(context.Background(), core.GenreKids)
	require.ErrorIs(t, err, core.ErrCannotConnect)
	require.True(t, s.CardLogined())
}

func TestUpdateClearData(t *testing.T) {
	s, transport := setup(t)
	for _, genre := range core.Genres {
		transport.On("GET", "score_list.php?genre="+strconv.Itoa(genre.ID()), testutil.Page(nil))
	}
	transport.On("GET", "score_list.php?genre=1", testutil.Page(clearPage("1001", "夏祭り", "silver_3", "t1")))
	transport.On("GET", "score_list.php?genre=7", testutil.Page(clearPage("1001", "夏祭り", "gold_5", "t7")))
	transport.On("GET", "score_list.php?genre=8", testutil.Page(clearPage("3001", "天国と地獄", "played_2", "t8")))

	records, err := s.UpdateClearData(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "t8", s.Ticket())

	record, ok := s.ClearRecord("1001")
	require.True(t, ok)
	diff := cmp.Diff(map[core.Difficulty]parse.Clear{
		core.DifficultyOni: {Crown: parse.CrownGold, Badge: parse.BadgeGold},
	}, record.Difficulty)
	if diff != "" {
		t.Fatal(diff)
	}

	// a later single genre fetch merges into the cache
	transport.On("GET", "score_list.php?genre=2", testutil.Page(clearPage("2001", "紅蓮華", "donderfull_8", "t2")))
	_, err = s.UpdateClearDataGenre(context.Background(), core.GenreAnime)
	require.NoError(t, err)
	require.Equal(t, "t2", s.Ticket())

	// a page without a ticket drops the held one
	_, err = s.UpdateClearDataGenre(context.Background(), core.GenreKids)
	require.NoError(t, err)
	require.Equal(t, "", s.Ticket())

	snapshot := s.Snapshot()
	require.Len(t, snapshot.ClearData, 3)
	require.Equal(t, time.Date(2024, time.June, 1, 12, 0, 0, 0, chrono.JST()), snapshot.TakenAt)

	// snapshots do not alias the cache
	snapshot.ClearData["1001"].Difficulty[core.DifficultyEasy] = parse.Clear{Crown: parse.CrownPlayed}
	record, _ = s.ClearRecord("1001")
	require.NotContains(t, record.Difficulty, core.DifficultyEasy)

	found := s.FindSongs("夏祭", 0.8)
	require.NotEmpty(t, found)
	require.Equal(t, "1001", found[0].SongNo)
	require.Empty(t, s.FindSongs("zzzzzzzz", 0.95))
}

func TestUpdateScoreDataMissing(t *testing.T) {
	s, transport := setup(t)
	for level := 1; level <= 5; level++ {
		transport.On("GET", fmt.Sprintf("score_detail.php?level=%d&song_no=9999", level), testutil.Page([]byte(
			`<html><body><header><h1>エラー</h1></header></body></html>`,
		)))
	}

	record, err := s.UpdateScoreData(context.Background(), "9999")
	require.NoError(t, err)
	require.Nil(t, record)
	_, ok := s.ScoreRecord("9999")
	require.False(t, ok)
	require.Equal(t, 5, len(transport.Calls))
}

func TestChangeName(t *testing.T) {
	s, transport := setup(t)
	transport.On("GET", "mypage_top.php", testutil.Page([]byte(mypagePage)))
	transport.On("GET", "/", testutil.Page([]byte(mypagePage)))
	transport.On("POST", "ajax/change_mydon_profile.php",
		testutil.Page([]byte(`{"result":0}`)),
		testutil.Page([]byte(`{"result":3}`)),
	)

	err := s.ChangeName(context.Background(), "かつ")
	require.NoError(t, err)
	require.Equal(t, "", s.Ticket())
	require.True(t, s.CardLogined())
	require.Equal(t, 1, transport.Count("GET", "/"))

	var rename core.Request
	for _, call := range transport.Calls {
		if call.Method == http.MethodPost {
			rename = call
		}
	}
	require.Equal(t, "mypage-ticket", rename.Form.Get(core.TicketFieldName))
	require.Equal(t, "かつ", rename.Form.Get("newName"))

	// a held ticket is used without fetching another, and consumed even on failure
	s.ticket = "held"
	err = s.ChangeName(context.Background(), "どん")
	require.ErrorIs(t, err, core.ErrUnknownError)
	require.Equal(t, "", s.Ticket())
	require.Equal(t, 1, transport.Count("GET", "mypage_top.php"))
	require.Equal(t, "held", transport.Calls[len(transport.Calls)-1].Form.Get(core.TicketFieldName))
}

func TestChangeNameWithoutTicket(t *testing.T) {
	s, transport := setup(t)
	transport.On("GET", "mypage_top.php", testutil.Page([]byte("<html><body></body></html>")))
	transport.On("POST", "ajax/change_mydon_profile.php", testutil.Page([]byte(`{"result":0}`)))

	err := s.ChangeName(context.Background(), "かつ")
	require.ErrorIs(t, err, core.ErrUnknownError)
	require.Equal(t, 0, transport.Count("POST", "ajax/change_mydon_profile.php"))
	require.Equal(t, "", s.Ticket())
}

func TestGetTicket(t *testing.T) {
	s, transport := setup(t)
	transport.On("GET", "/", testutil.Page([]byte(mypagePage)))
	transport.On("GET", "mypage_top.php", testutil.Page([]byte(mypagePage)), testutil.Offsite())

	_, err := s.CheckCardLogined(context.Background())
	require.NoError(t, err)
	require.True(t, s.CardLogined())

	ticket, err := s.GetTicket(context.Background())
	require.NoError(t, err)
	require.Equal(t, "mypage-ticket", ticket)
	require.Equal(t, "mypage-ticket", s.Ticket())
	require.True(t, s.NamcoLogined())
	require.False(t, s.CardLogined())

	_, err = s.GetTicket(context.Background())
	require.ErrorIs(t, err, core.ErrNotLogined)
	require.False(t, s.NamcoLogined())
	require.False(t, s.CardLogined())
}

func TestUpdateRecord(t *testing.T) {
	s, transport := setup(t)
	transport.On("GET", "/", testutil.Page([]byte(mypagePage)))
	transport.On("POST", "ajax/update_score.php", testutil.Page([]byte(`{"result":0}`)), testutil.Offsite())

	_, err := s.CheckCardLogined(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.UpdateRecord(context.Background()))
	// an offsite answer to a mutation is not a 200 json body
	err = s.UpdateRecord(context.Background())
	require.ErrorIs(t, err, core.ErrUnknownError)
	require.True(t, s.CardLogined())
}
