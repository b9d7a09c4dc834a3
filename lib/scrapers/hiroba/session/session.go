// Package session holds the stateful view of one portal account: login flags,
// the cached card list, and the clear and score caches built up by the fetches.
//
// A Session is not safe for concurrent use.
package session

import (
	"context"
	"errors"
	"sort"

	"hiroba-client/lib/chrono"
	"hiroba-client/lib/scrapers/hiroba/auth"
	"hiroba-client/lib/scrapers/hiroba/core"
	"hiroba-client/lib/scrapers/hiroba/parse"
	"hiroba-client/lib/scrapers/hiroba/request"
	"hiroba-client/lib/telemetry"
	"hiroba-client/lib/textutil"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("hiroba/session")

const (
	report_session_card_login = "session.card-login"
	report_session_clear_data = "session.clear-data"
	report_session_score_data = "session.score-data"
)

type Options struct {
	// defaults to a RestyTransport with default options
	Transport core.Transport
	Endpoints core.Endpoints
	Time      chrono.TimeAPI
	Telemetry telemetry.API
}

type Session struct {
	client *request.Client
	auth   *auth.Authenticator
	tel    telemetry.API

	token        string
	namcoLogined bool
	cardLogined  bool
	currentLogin *parse.Card
	cardList     []parse.Card
	clearData    map[string]parse.ClearRecord
	scoreData    map[string]parse.ScoreRecord
	// single use, consumed by ChangeName
	ticket string
}

// New resumes a session from a token obtained earlier. Nothing is requested, the
// flags stay false until a probe succeeds.
func New(opts Options, token string) *Session {
	tel := telemetry.OrDefault(opts.Telemetry)
	transport := opts.Transport
	if transport == nil {
		transport = core.NewRestyTransport(core.TransportOptions{Telemetry: tel})
	}
	client := request.NewClient(transport, request.Options{
		Endpoints: opts.Endpoints,
		Time:      opts.Time,
		Telemetry: tel,
	})
	return &Session{
		client:    client,
		auth:      auth.NewAuthenticator(client, tel),
		tel:       telemetry.NewScopedAPI("hiroba_session", tel),
		token:     token,
		clearData: map[string]parse.ClearRecord{},
		scoreData: map[string]parse.ScoreRecord{},
	}
}

// Login obtains a session token with the account credentials and, when
// taikoNumber is not empty, makes that card active.
func Login(ctx context.Context, opts Options, email, password, taikoNumber string) (*Session, error) {
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	s := New(opts, "")
	token, err := s.auth.SessionToken(ctx, email, password)
	if err != nil {
		span.SetStatus(codes.Error, "failed to obtain session token")
		return nil, err
	}
	s.token = token
	s.namcoLogined = true

	if taikoNumber == "" {
		return s, nil
	}
	_, err = s.CardLogin(ctx, taikoNumber)
	if err != nil {
		span.SetStatus(codes.Error, "failed to login card")
		return nil, err
	}
	return s, nil
}

// invalidate resets every login derived field, the caches of records are kept.
func (s *Session) invalidate() {
	s.namcoLogined = false
	s.cardLogined = false
	s.currentLogin = nil
	s.cardList = nil
}

// check applies the invalidation rule to err and returns it unchanged.
func (s *Session) check(err error) error {
	if core.IsLoginError(err) {
		s.tel.ReportDebug("login rejected, session invalidated", err)
		s.invalidate()
	}
	return err
}

func (s *Session) rememberTicket(pages [][]byte) {
	if len(pages) == 0 {
		return
	}
	s.ticket = parse.Ticket(pages[len(pages)-1])
}

// CheckNamcoLogined probes the card list. A rejected probe invalidates the
// session and reports false without an error, other failures are returned.
func (s *Session) CheckNamcoLogined(ctx context.Context) (bool, error) {
	s.namcoLogined = false
	s.cardLogined = false

	cards, err := s.client.Cards(ctx, s.token)
	if err != nil {
		if core.IsLoginError(err) {
			s.check(err)
			return false, nil
		}
		return false, err
	}
	s.setCardList(cards)
	return true, nil
}

// CheckCardLogined probes the portal top page for the active card.
func (s *Session) CheckCardLogined(ctx context.Context) (bool, error) {
	s.namcoLogined = false
	s.cardLogined = false

	card, err := s.client.ActiveCard(ctx, s.token)
	if err != nil {
		if core.IsLoginError(err) {
			s.check(err)
			return false, nil
		}
		return false, err
	}
	s.namcoLogined = true
	s.cardLogined = card != nil
	s.currentLogin = card
	return s.cardLogined, nil
}

func (s *Session) setCardList(cards []parse.Card) {
	s.namcoLogined = true
	s.cardLogined = false
	s.currentLogin = nil
	s.cardList = cards
}

// ReloadCardList refetches the card list. The active card is forgotten, as
// with any card list probe.
func (s *Session) ReloadCardList(ctx context.Context) ([]parse.Card, error) {
	cards, err := s.client.Cards(ctx, s.token)
	if err != nil {
		return nil, s.check(err)
	}
	s.setCardList(cards)
	return s.CardList(), nil
}

// CardLogin makes the card with taikoNumber active. A card missing from a
// cached list causes one reload and one retry.
func (s *Session) CardLogin(ctx context.Context, taikoNumber string) (parse.Card, error) {
	ctx, span := tracer.Start(ctx, "CardLogin")
	defer span.End()
	span.SetAttributes(attribute.String("taiko_number", taikoNumber))

	cached := len(s.cardList) > 0
	if !cached {
		_, err := s.ReloadCardList(ctx)
		if err != nil {
			span.SetStatus(codes.Error, "failed to load card list")
			return parse.Card{}, err
		}
	}

	card, err := s.auth.CardLogin(ctx, s.token, taikoNumber, s.cardList)
	if cached && errors.Is(err, core.ErrNoMatchedCard) {
		s.tel.ReportDebug("card not in cached list, reloading", taikoNumber)
		_, err = s.ReloadCardList(ctx)
		if err != nil {
			span.SetStatus(codes.Error, "failed to reload card list")
			return parse.Card{}, err
		}
		card, err = s.auth.CardLogin(ctx, s.token, taikoNumber, s.cardList)
	}
	if err != nil {
		span.SetStatus(codes.Error, "card login failed")
		s.tel.ReportWarning(report_session_card_login, err)
		return parse.Card{}, s.check(err)
	}

	s.namcoLogined = true
	s.cardLogined = true
	s.currentLogin = &card
	return card, nil
}

// UpdateClearData fetches every genre page and merges them into the clear cache.
func (s *Session) UpdateClearData(ctx context.Context) ([]parse.ClearRecord, error) {
	pages, err := s.client.ClearDataAllGenres(ctx, s.token)
	if err != nil {
		return nil, s.check(err)
	}
	return s.mergeClear(pages), nil
}

func (s *Session) UpdateClearDataGenre(ctx context.Context, genre core.Genre) ([]parse.ClearRecord, error) {
	page, err := s.client.ClearDataGenre(ctx, s.token, genre)
	if err != nil {
		return nil, s.check(err)
	}
	return s.mergeClear([][]byte{page}), nil
}

func (s *Session) mergeClear(pages [][]byte) []parse.ClearRecord {
	records := parse.ClearDataPages(pages)
	parse.MergeClear(s.clearData, records...)
	s.rememberTicket(pages)
	s.tel.ReportCount(report_session_clear_data, int64(len(s.clearData)))
	return records
}

// UpdateScoreData fetches every difficulty of songNo and merges the result into
// the score cache. The record is nil when the song does not exist.
func (s *Session) UpdateScoreData(ctx context.Context, songNo string) (*parse.ScoreRecord, error) {
	pages, err := s.client.ScoreDetailAllDifficulties(ctx, s.token, songNo)
	if err != nil {
		return nil, s.check(err)
	}
	return s.mergeScore(songNo, pages), nil
}

func (s *Session) UpdateScoreDataDifficulty(ctx context.Context, songNo string, difficulty core.Difficulty) (*parse.ScoreRecord, error) {
	page, err := s.client.ScoreDetail(ctx, s.token, songNo, difficulty)
	if err != nil {
		return nil, s.check(err)
	}
	return s.mergeScore(songNo, [][]byte{page}), nil
}

func (s *Session) mergeScore(songNo string, pages [][]byte) *parse.ScoreRecord {
	record := parse.ScoreDataPages(songNo, pages)
	s.rememberTicket(pages)
	if record == nil {
		return nil
	}
	parse.MergeScore(s.scoreData, *record)
	s.tel.ReportCount(report_session_score_data, int64(len(s.scoreData)))
	return record
}

func (s *Session) DanExams(ctx context.Context) ([]parse.DanExam, error) {
	exams, err := s.client.DanExamRecords(ctx, s.token)
	if err != nil {
		return nil, s.check(err)
	}
	return exams, nil
}

// DanExam is nil when the exam is not available to the active card.
func (s *Session) DanExam(ctx context.Context, danNo int) (*parse.DanExam, error) {
	exam, err := s.client.DanExamRecord(ctx, s.token, danNo)
	if err != nil {
		return nil, s.check(err)
	}
	return exam, nil
}

// Competition is nil when compeID does not exist.
func (s *Session) Competition(ctx context.Context, compeID string) (*parse.Competition, error) {
	compe, err := s.client.Competition(ctx, s.token, compeID)
	if err != nil {
		return nil, s.check(err)
	}
	return compe, nil
}

// UpdateRecord asks the portal to refresh the active card's scores from the
// game servers. Cached records are not refetched.
func (s *Session) UpdateRecord(ctx context.Context) error {
	return s.check(s.client.UpdateScore(ctx, s.token))
}

// GetTicket fetches a fresh form ticket and keeps it for the next mutation. The
// ticket lives on the account profile, a successful fetch leaves the session at
// namco logined with no active card.
func (s *Session) GetTicket(ctx context.Context) (string, error) {
	ticket, err := s.client.FormTicket(ctx, s.token)
	if err != nil {
		return "", s.check(err)
	}
	s.namcoLogined = true
	s.cardLogined = false
	s.ticket = ticket
	return ticket, nil
}

// ChangeName renames the active card. The ticket is consumed whether or not the
// portal accepts the new name, the active card is probed again on success.
func (s *Session) ChangeName(ctx context.Context, newName string) error {
	ctx, span := tracer.Start(ctx, "ChangeName")
	defer span.End()

	if s.ticket == "" {
		_, err := s.GetTicket(ctx)
		if err != nil {
			span.SetStatus(codes.Error, "failed to get ticket")
			return err
		}
	}
	ticket := s.ticket
	s.ticket = ""
	if ticket == "" {
		span.SetStatus(codes.Error, "no ticket on page")
		return core.NewError(core.KindUnknownError, nil, errors.New("mypage has no ticket"))
	}

	err := s.client.ChangeName(ctx, s.token, ticket, newName)
	if err != nil {
		span.SetStatus(codes.Error, "failed to change name")
		return s.check(err)
	}
	_, err = s.CheckCardLogined(ctx)
	return err
}

// FindSongs looks up cached clear records by title, best match first.
func (s *Session) FindSongs(title string, threshold float64) []parse.ClearRecord {
	songNos := make([]string, 0, len(s.clearData))
	for songNo := range s.clearData {
		songNos = append(songNos, songNo)
	}
	sort.Strings(songNos)

	titles := make([]string, len(songNos))
	for i, songNo := range songNos {
		titles[i] = s.clearData[songNo].Title
	}

	matches := textutil.MatchTitles(title, titles, threshold)
	out := make([]parse.ClearRecord, len(matches))
	for i, m := range matches {
		out[i] = cloneClear(s.clearData[songNos[m.Index]])
	}
	return out
}
