package request

import (
	"context"

	"hiroba-client/lib/scrapers/hiroba/core"
	"hiroba-client/lib/scrapers/hiroba/parse"
)

// The helpers below pair an endpoint with its parser.

func (c *Client) Cards(ctx context.Context, token string) ([]parse.Card, error) {
	page, err := c.CardList(ctx, token)
	if err != nil {
		return nil, err
	}
	return parse.CardList(page), nil
}

// ActiveCard is nil when no card is logged in.
func (c *Client) ActiveCard(ctx context.Context, token string) (*parse.Card, error) {
	page, err := c.CurrentLogin(ctx, token)
	if err != nil {
		return nil, err
	}
	return parse.CurrentLogin(page), nil
}

func (c *Client) FormTicket(ctx context.Context, token string) (string, error) {
	page, err := c.Ticket(ctx, token)
	if err != nil {
		return "", err
	}
	return parse.Ticket(page), nil
}

func (c *Client) ClearRecordsGenre(ctx context.Context, token string, genre core.Genre) ([]parse.ClearRecord, error) {
	page, err := c.ClearDataGenre(ctx, token, genre)
	if err != nil {
		return nil, err
	}
	return parse.ClearData(page), nil
}

func (c *Client) ClearRecords(ctx context.Context, token string) ([]parse.ClearRecord, error) {
	pages, err := c.ClearDataAllGenres(ctx, token)
	if err != nil {
		return nil, err
	}
	return parse.ClearDataPages(pages), nil
}

func (c *Client) ScoreRecordDifficulty(ctx context.Context, token, songNo string, difficulty core.Difficulty) (*parse.ScoreRecord, error) {
	page, err := c.ScoreDetail(ctx, token, songNo, difficulty)
	if err != nil {
		return nil, err
	}
	return parse.ScoreData(songNo, page), nil
}

func (c *Client) ScoreRecord(ctx context.Context, token, songNo string) (*parse.ScoreRecord, error) {
	pages, err := c.ScoreDetailAllDifficulties(ctx, token, songNo)
	if err != nil {
		return nil, err
	}
	return parse.ScoreDataPages(songNo, pages), nil
}

// DanExamRecord is nil when the portal shows its error page for danNo.
func (c *Client) DanExamRecord(ctx context.Context, token string, danNo int) (*parse.DanExam, error) {
	page, err := c.DanExam(ctx, token, danNo)
	if err != nil {
		return nil, err
	}
	return parse.DanExamPage(page, danNo), nil
}

func (c *Client) DanExamRecords(ctx context.Context, token string) ([]parse.DanExam, error) {
	pages, err := c.DanExamAll(ctx, token)
	if err != nil {
		return nil, err
	}
	return parse.DanExams(pages), nil
}

// Competition fetches the detail and then the ranking, nil when the competition
// does not exist. The ranking is not requested when the detail is missing.
func (c *Client) Competition(ctx context.Context, token, compeID string) (*parse.Competition, error) {
	detailPage, err := c.CompeDetail(ctx, token, compeID)
	if err != nil {
		return nil, err
	}
	detail := parse.CompeDetailPage(detailPage, c.time.Now())
	if detail == nil {
		return nil, nil
	}

	rankingPage, err := c.CompeRanking(ctx, token, compeID)
	if err != nil {
		return nil, err
	}
	ranking, ok := parse.CompeRanking(rankingPage)
	if !ok {
		return nil, nil
	}
	return &parse.Competition{Detail: *detail, Ranking: ranking}, nil
}
