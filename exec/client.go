package exec

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/bsbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// GAME PLATFORM CLIENT
// ═══════════════════════════════════════════════════════════════════════════════
//
// JSON-over-POST API. Every body carries language, a random nonce, an MD5
// signature over the sorted body (minus signature and timestamp) and a unix
// timestamp. Requests after login carry the bearer token.
//
//   WINGO / WINGO_30S  → GetGameIssue, GameBetting, GetNoaverageEmerdList
//   TRX                → GetTrxGameIssue (also carries the last settlement), GameTrxBetting
//
// ═══════════════════════════════════════════════════════════════════════════════

const (
	language         = 7
	settlementPage   = 10
	defaultUserAgent = "Mozilla/5.0 (Linux; Android 6.0; Nexus 5 Build/MRA58N) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/141.0.0.0 Mobile Safari/537.36"
)

// selectType codes for the two sides
var selectType = map[types.Side]int{types.Big: 13, types.Small: 14}

var ErrNotLoggedIn = errors.New("platform session not logged in")

// APIError is a well-formed response with a non-zero code
type APIError struct {
	Endpoint string
	Code     int
	Msg      string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: code %d: %s", e.Endpoint, e.Code, e.Msg)
}

// ClientConfig tunes the HTTP transport
type ClientConfig struct {
	BaseURL     string
	PhonePrefix string // country code prepended to the login phone
	Timeout     time.Duration
	Retries     int
	RetryWait   time.Duration
}

// Client talks to the game platform for one logged-in account
type Client struct {
	http        *resty.Client
	phonePrefix string

	tokenHeader string
	token       string
	account     string
}

// NewClient creates an unauthenticated client
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 2 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}

	// fixed backoff: min and max wait are equal
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/") + "/").
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(cfg.RetryWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json; charset=UTF-8").
		SetHeader("User-Agent", defaultUserAgent)

	return &Client{http: httpClient, phonePrefix: cfg.PhonePrefix}
}

// ═══════════════════════════════════════════════════════════════════════════════
// SIGNING
// ═══════════════════════════════════════════════════════════════════════════════

// Sign returns the upper-case MD5 of the compact JSON of body's sorted keys,
// ignoring signature and timestamp.
func Sign(body map[string]any) (string, error) {
	filtered := make(map[string]any, len(body))
	for k, v := range body {
		if k == "signature" || k == "timestamp" {
			continue
		}
		filtered[k] = v
	}
	// encoding/json writes map keys in sorted order
	raw, err := json.Marshal(filtered)
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, string(raw))
	sum := md5.Sum([]byte(compact))
	return strings.ToUpper(hex.EncodeToString(sum[:])), nil
}

func nonce() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (c *Client) signed(body map[string]any) (map[string]any, error) {
	body["language"] = language
	body["random"] = nonce()
	sig, err := Sign(body)
	if err != nil {
		return nil, err
	}
	body["signature"] = sig
	body["timestamp"] = time.Now().Unix()
	return body, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// TRANSPORT
// ═══════════════════════════════════════════════════════════════════════════════

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (c *Client) post(ctx context.Context, endpoint string, body map[string]any, out any) error {
	body, err := c.signed(body)
	if err != nil {
		return err
	}

	req := c.http.R().SetContext(ctx).SetBody(body)
	if c.token != "" {
		req.SetHeader("Authorization", c.tokenHeader+c.token)
	}

	resp, err := req.Post(endpoint)
	if err != nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%s: http %d", endpoint, resp.StatusCode())
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("%s: malformed response: %w", endpoint, err)
	}
	if env.Code != 0 {
		return &APIError{Endpoint: endpoint, Code: env.Code, Msg: env.Msg}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s: malformed data: %w", endpoint, err)
	}
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// ACCOUNT
// ═══════════════════════════════════════════════════════════════════════════════

// Login authenticates and stores the bearer token on the client
func (c *Client) Login(ctx context.Context, phone, password string) error {
	var data struct {
		TokenHeader string `json:"tokenHeader"`
		Token       string `json:"token"`
	}
	account := c.phonePrefix + strings.TrimSpace(phone)
	err := c.post(ctx, "Login", map[string]any{
		"phonetype": 1,
		"logintype": "mobile",
		"username":  account,
		"pwd":       password,
	}, &data)
	if err != nil {
		return err
	}
	if data.Token == "" {
		return fmt.Errorf("Login: empty token")
	}

	c.tokenHeader = data.TokenHeader
	if c.tokenHeader == "" {
		c.tokenHeader = "Bearer "
	}
	c.token = data.Token
	c.account = account

	log.Info().Str("account", maskAccount(account)).Msg("🔑 Platform login ok")
	return nil
}

// Account returns the logged-in username
func (c *Client) Account() string { return c.account }

func maskAccount(a string) string {
	if len(a) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(a)-4) + a[len(a)-4:]
}

// Balance implements types.Platform
func (c *Client) Balance(ctx context.Context) (decimal.Decimal, error) {
	if c.token == "" {
		return decimal.Zero, ErrNotLoggedIn
	}
	var data struct {
		Amount  *decimal.Decimal `json:"amount"`
		Amount2 *decimal.Decimal `json:"Amount"`
		Balance *decimal.Decimal `json:"balance"`
	}
	if err := c.post(ctx, "GetBalance", map[string]any{}, &data); err != nil {
		return decimal.Zero, err
	}
	for _, v := range []*decimal.Decimal{data.Amount, data.Amount2, data.Balance} {
		if v != nil {
			return *v, nil
		}
	}
	return decimal.Zero, fmt.Errorf("GetBalance: no amount in response")
}

// ═══════════════════════════════════════════════════════════════════════════════
// ROUNDS
// ═══════════════════════════════════════════════════════════════════════════════

// digit accepts the draw number as a JSON number or string
type digit int

func (d *digit) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = -1
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("draw number %q: %w", s, err)
	}
	*d = digit(n % 10)
	return nil
}

type drawnRound struct {
	IssueNumber string `json:"issueNumber"`
	Number      digit  `json:"number"`
}

func (r drawnRound) settlement() (types.Settlement, bool) {
	if r.IssueNumber == "" || r.Number < 0 {
		return types.Settlement{}, false
	}
	return types.Settlement{RoundID: r.IssueNumber, Digit: int(r.Number)}, true
}

type issueData struct {
	IssueNumber string     `json:"issueNumber"`
	Predraw     drawnRound `json:"predraw"`
	Settled     drawnRound `json:"settled"`
}

func issueEndpoint(game types.GameKind) string {
	if game == types.TRX {
		return "GetTrxGameIssue"
	}
	return "GetGameIssue"
}

func betEndpoint(game types.GameKind) string {
	if game == types.TRX {
		return "GameTrxBetting"
	}
	return "GameBetting"
}

func (c *Client) issue(ctx context.Context, game types.GameKind) (issueData, error) {
	var data issueData
	if c.token == "" {
		return data, ErrNotLoggedIn
	}
	err := c.post(ctx, issueEndpoint(game), map[string]any{"typeId": game.TypeID()}, &data)
	return data, err
}

// OpenRound implements types.Platform
func (c *Client) OpenRound(ctx context.Context, game types.GameKind) (string, error) {
	data, err := c.issue(ctx, game)
	if err != nil {
		return "", err
	}
	id := data.IssueNumber
	if game == types.TRX {
		id = data.Predraw.IssueNumber
	}
	if id == "" {
		return "", fmt.Errorf("%s: no open round", issueEndpoint(game))
	}
	return id, nil
}

// RecentSettlements implements types.Platform. TRX only exposes the latest
// settled round; the history list serves the WINGO games.
func (c *Client) RecentSettlements(ctx context.Context, game types.GameKind) ([]types.Settlement, error) {
	if game == types.TRX {
		data, err := c.issue(ctx, game)
		if err != nil {
			return nil, err
		}
		if s, ok := data.Settled.settlement(); ok {
			return []types.Settlement{s}, nil
		}
		return nil, nil
	}

	if c.token == "" {
		return nil, ErrNotLoggedIn
	}
	var data struct {
		List []drawnRound `json:"list"`
	}
	err := c.post(ctx, "GetNoaverageEmerdList", map[string]any{
		"pageSize": settlementPage,
		"pageNo":   1,
		"typeId":   game.TypeID(),
	}, &data)
	if err != nil {
		return nil, err
	}

	out := make([]types.Settlement, 0, len(data.List))
	for _, r := range data.List {
		if s, ok := r.settlement(); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// PlaceBet implements types.Platform
func (c *Client) PlaceBet(ctx context.Context, order types.BetOrder) error {
	if c.token == "" {
		return ErrNotLoggedIn
	}
	code, ok := selectType[order.Side]
	if !ok {
		return fmt.Errorf("invalid side %q", order.Side)
	}
	if order.UnitCount < 1 || !order.UnitAmount.IsPositive() {
		return fmt.Errorf("invalid stake %s × %d", order.UnitAmount, order.UnitCount)
	}

	err := c.post(ctx, betEndpoint(order.Game), map[string]any{
		"typeId":      order.Game.TypeID(),
		"issuenumber": order.RoundID,
		"gameType":    2,
		"amount":      order.UnitAmount.IntPart(),
		"betCount":    order.UnitCount,
		"selectType":  code,
	}, nil)
	if err != nil {
		return err
	}

	log.Info().
		Str("game", string(order.Game)).
		Str("round", order.RoundID).
		Str("side", order.Side.Label()).
		Str("amount", order.Total().String()).
		Msg("📤 Bet submitted")
	return nil
}
