package request

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"hiroba-client/lib/scrapers/hiroba/core"

	"go.opentelemetry.io/otel/codes"
)

// CardList fetches the account's card selection page. Loading it drops any
// active card on the portal side.
func (c *Client) CardList(ctx context.Context, token string) ([]byte, error) {
	return c.page(ctx, token, pathCardList, nil)
}

// ClearDataGenre fetches the score list of one genre.
func (c *Client) ClearDataGenre(ctx context.Context, token string, genre core.Genre) ([]byte, error) {
	return c.page(ctx, token, pathScoreList, url.Values{
		"genre": {strconv.Itoa(genre.ID())},
	})
}

// ClearDataAllGenres fetches every genre's score list one after another, in
// core.Genres order.
func (c *Client) ClearDataAllGenres(ctx context.Context, token string) ([][]byte, error) {
	pages := make([][]byte, 0, len(core.Genres))
	for _, genre := range core.Genres {
		page, err := c.ClearDataGenre(ctx, token, genre)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// ScoreDetail fetches the score detail of one song at one difficulty.
func (c *Client) ScoreDetail(ctx context.Context, token, songNo string, difficulty core.Difficulty) ([]byte, error) {
	if difficulty.Level() == 0 {
		return nil, fmt.Errorf("unknown difficulty %q", difficulty)
	}
	return c.page(ctx, token, pathScoreDetail, url.Values{
		"song_no": {songNo},
		"level":   {strconv.Itoa(difficulty.Level())},
	})
}

// ScoreDetailAllDifficulties fetches every difficulty of a song in level order.
func (c *Client) ScoreDetailAllDifficulties(ctx context.Context, token, songNo string) ([][]byte, error) {
	pages := make([][]byte, 0, len(core.Difficulties))
	for _, difficulty := range core.Difficulties {
		page, err := c.ScoreDetail(ctx, token, songNo, difficulty)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// DanExam fetches the detail of dan exam danNo (1..core.DanExamCount).
func (c *Client) DanExam(ctx context.Context, token string, danNo int) ([]byte, error) {
	if danNo < 1 || danNo > core.DanExamCount {
		return nil, fmt.Errorf("dan exam %d out of range 1..%d", danNo, core.DanExamCount)
	}
	return c.page(ctx, token, pathDanDetail, url.Values{
		"dan": {strconv.Itoa(danNo)},
	})
}

// DanExamAll fetches every dan exam in order, page i is exam i+1.
func (c *Client) DanExamAll(ctx context.Context, token string) ([][]byte, error) {
	pages := make([][]byte, 0, core.DanExamCount)
	for danNo := 1; danNo <= core.DanExamCount; danNo++ {
		page, err := c.DanExam(ctx, token, danNo)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	return pages, nil
}

func (c *Client) CompeDetail(ctx context.Context, token, compeID string) ([]byte, error) {
	return c.page(ctx, token, pathCompeDetail, url.Values{"compeid": {compeID}})
}

func (c *Client) CompeRanking(ctx context.Context, token, compeID string) ([]byte, error) {
	return c.page(ctx, token, pathCompeRanking, url.Values{"compeid": {compeID}})
}

// CurrentLogin fetches the portal top page, which shows the active card.
func (c *Client) CurrentLogin(ctx context.Context, token string) ([]byte, error) {
	return c.page(ctx, token, "/", nil)
}

// Ticket fetches the my page, which carries the form ticket.
func (c *Client) Ticket(ctx context.Context, token string) ([]byte, error) {
	return c.page(ctx, token, pathMypage, nil)
}

// SelectCard makes the card at the 1-based position of the card list the active
// one. The portal answers with a redirect that has to be followed once.
func (c *Client) SelectCard(ctx context.Context, token string, position int) error {
	ctx, span := tracer.Start(ctx, "SelectCard")
	defer span.End()

	res, err := c.transport.Exchange(ctx, core.Request{
		Method: http.MethodPost,
		URL:    c.endpoints.Portal(pathCardList, nil),
		Header: core.BrowserHeaders(token),
		Form: url.Values{
			"id_pos": {strconv.Itoa(position)},
			"mode":   {"exec"},
		},
	})
	if err != nil {
		span.SetStatus(codes.Error, "failed to post card selection")
		c.tel.ReportBroken(report_client_fetch, fmt.Errorf("select card: %w", err))
		return core.CannotConnect(nil, fmt.Errorf("select card: %w", err))
	}
	if res.Status != http.StatusFound {
		span.SetStatus(codes.Error, "card selection did not redirect")
		return core.CannotConnect(res, fmt.Errorf("select card: status %d", res.Status))
	}
	location, err := res.Location()
	if err != nil {
		span.SetStatus(codes.Error, "card selection redirect has no location")
		return core.CannotConnect(res, fmt.Errorf("select card: %w", err))
	}

	res, err = c.transport.Exchange(ctx, core.Request{
		Method:          http.MethodGet,
		URL:             location.String(),
		Header:          core.BrowserHeaders(token),
		FollowRedirects: true,
	})
	if err != nil {
		span.SetStatus(codes.Error, "failed to follow card selection")
		return core.CannotConnect(nil, fmt.Errorf("select card: follow: %w", err))
	}
	if res.Status != http.StatusOK {
		span.SetStatus(codes.Error, "card selection landed on an error")
		return core.CannotConnect(res, fmt.Errorf("select card: follow: status %d", res.Status))
	}
	return nil
}
