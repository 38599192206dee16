package captcha

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Variant selects the puzzle rendering style. Verification never depends on
// the variant.
type Variant string

const (
	VariantRetroGrid   Variant = "retro-grid"
	VariantSignalNoise Variant = "signal-noise"
	VariantWarp        Variant = "warp"
	VariantMatrix      Variant = "matrix"
)

// ParseVariant falls back to retro-grid for anything unknown.
func ParseVariant(s string) Variant {
	switch Variant(s) {
	case VariantRetroGrid, VariantSignalNoise, VariantWarp, VariantMatrix:
		return Variant(s)
	default:
		return VariantRetroGrid
	}
}

// Reason is a stable machine-readable verification failure code.
type Reason string

const (
	ReasonInvalidToken        Reason = "invalid_token"
	ReasonMismatchedChallenge Reason = "mismatched_challenge"
	ReasonExpired             Reason = "expired"
	ReasonIncorrect           Reason = "incorrect"
)

type Difficulty string

const (
	DifficultyCasual  Difficulty = "casual"
	DifficultySkilled Difficulty = "skilled"
	DifficultyElite   Difficulty = "elite"
)

// Reward is the per-variant payout metadata attached to an issued challenge.
type Reward struct {
	Points     int        `json:"points"`
	Tokens     int        `json:"tokens"`
	Difficulty Difficulty `json:"difficulty"`
}

// Challenge is issued to the client whole; the server keeps nothing. The
// token is the only thing that comes back at verify time, and it carries the
// answer's HMAC fingerprint rather than the answer itself.
type Challenge struct {
	ID        string  `json:"id"`
	Variant   Variant `json:"variant"`
	Prompt    string  `json:"prompt"`
	Image     string  `json:"image"`
	Token     string  `json:"token"`
	ExpiresAt int64   `json:"expiresAt"`
	Reward    Reward  `json:"reward"`
}

const (
	// answerAlphabet excludes visually ambiguous characters (0/O, 1/I).
	answerAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	answerLength   = 6

	DefaultTTL = 5 * time.Minute

	prompt = "Type the warped letters to prove you're human."
)

// Engine issues and verifies stateless HMAC-signed challenges.
type Engine struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewEngine(secret string, ttl time.Duration) *Engine {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Engine{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithNow overrides the clock. Tests only.
func (e *Engine) WithNow(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Issue creates a challenge with a fresh random answer and a token binding
// (id, expiry, normalized answer) under the engine secret.
func (e *Engine) Issue(variant Variant) (*Challenge, error) {
	idBytes := make([]byte, 8)
	if _, err := rand.Read(idBytes); err != nil {
		return nil, fmt.Errorf("generating challenge id: %w", err)
	}
	id := hex.EncodeToString(idBytes)

	answer, err := randomAnswer(answerLength)
	if err != nil {
		return nil, err
	}

	expiresAt := e.now().Add(e.ttl).UnixMilli()

	return &Challenge{
		ID:        id,
		Variant:   variant,
		Prompt:    prompt,
		Image:     renderImage(answer, variant),
		Token:     e.sign(id, answer, expiresAt),
		ExpiresAt: expiresAt,
		Reward:    rewardFor(variant),
	}, nil
}

// Verify checks a claimed answer against a previously issued token. All
// failures map to one of the four stable reasons; a malformed token never
// surfaces as anything but invalid_token.
func (e *Engine) Verify(id, token, answer string) (bool, Reason) {
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return false, ReasonInvalidToken
	}

	parts := strings.Split(string(decoded), ":")
	if len(parts) != 3 {
		return false, ReasonInvalidToken
	}

	tokenID, expiresAtRaw, signature := parts[0], parts[1], parts[2]
	expiresAt, err := strconv.ParseInt(expiresAtRaw, 10, 64)
	if err != nil || tokenID == "" || signature == "" {
		return false, ReasonInvalidToken
	}

	if tokenID != id {
		return false, ReasonMismatchedChallenge
	}

	if e.now().UnixMilli() > expiresAt {
		return false, ReasonExpired
	}

	expected := e.digest(tokenID, answer, expiresAt)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) != 1 {
		return false, ReasonIncorrect
	}

	return true, ""
}

// Normalize makes answer comparison case- and whitespace-insensitive. Issue
// and verify both go through it, so the two sides can never disagree.
func Normalize(answer string) string {
	return strings.ToUpper(strings.TrimSpace(answer))
}

func (e *Engine) sign(id, answer string, expiresAt int64) string {
	payload := fmt.Sprintf("%s:%d:%s", id, expiresAt, e.digest(id, answer, expiresAt))
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

func (e *Engine) digest(id, answer string, expiresAt int64) string {
	mac := hmac.New(sha256.New, e.secret)
	fmt.Fprintf(mac, "%s:%d:%s", id, expiresAt, Normalize(answer))
	return hex.EncodeToString(mac.Sum(nil))
}

func randomAnswer(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}
	out := make([]byte, length)
	for i, b := range buf {
		out[i] = answerAlphabet[int(b)%len(answerAlphabet)]
	}
	return string(out), nil
}

func rewardFor(variant Variant) Reward {
	switch variant {
	case VariantRetroGrid:
		return Reward{Points: 80, Tokens: 3, Difficulty: DifficultyCasual}
	case VariantSignalNoise:
		return Reward{Points: 110, Tokens: 5, Difficulty: DifficultySkilled}
	case VariantWarp:
		return Reward{Points: 140, Tokens: 8, Difficulty: DifficultyElite}
	case VariantMatrix:
		return Reward{Points: 120, Tokens: 6, Difficulty: DifficultySkilled}
	default:
		return Reward{Points: 60, Tokens: 2, Difficulty: DifficultyCasual}
	}
}
