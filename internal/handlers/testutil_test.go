package handlers

import (
	"bytes"
	"context"
	"database/sql/driver"
	"encoding/base64"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Sukanto01899/captcha-backend/internal/airdrop"
	"github.com/Sukanto01899/captcha-backend/internal/captcha"
	"github.com/Sukanto01899/captcha-backend/internal/claims"
	"github.com/Sukanto01899/captcha-backend/internal/config"
	"github.com/Sukanto01899/captcha-backend/internal/middleware"
	"github.com/Sukanto01899/captcha-backend/internal/models"
	"github.com/Sukanto01899/captcha-backend/internal/signer"
	"github.com/Sukanto01899/captcha-backend/pkg/logger"
	"github.com/Sukanto01899/captcha-backend/pkg/utils"
	"github.com/ethereum/go-ethereum/common"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

const (
	testSignerKey   = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAdminFid    = uint64(1)
	testUserAddress = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

var (
	testAirdropContract = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testPointsToken     = common.HexToAddress("0x1000000000000000000000000000000000000002")
	testHumanID         = common.HexToAddress("0x1000000000000000000000000000000000000003")
	testPointsContract  = common.HexToAddress("0x1000000000000000000000000000000000000004")
)

// fakeChainReader satisfies chain.Reader with canned values. Setting fail
// makes every view error.
type fakeChainReader struct {
	nativeBalance *big.Int
	tokenBalance  *big.Int
	claimed       bool
	claimAmount   *big.Int
	minPoints     *big.Int
	lastClaimAt   *big.Int
	cooldown      *big.Int
	humanID       string
	blockTime     uint64
	fail          error
}

func (f *fakeChainReader) intOrZero(v *big.Int) (*big.Int, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	if v == nil {
		return big.NewInt(0), nil
	}
	return v, nil
}

func (f *fakeChainReader) NativeBalance(context.Context, common.Address) (*big.Int, error) {
	return f.intOrZero(f.nativeBalance)
}

func (f *fakeChainReader) TokenBalance(context.Context, common.Address, common.Address) (*big.Int, error) {
	return f.intOrZero(f.tokenBalance)
}

func (f *fakeChainReader) IsClaimed(context.Context, common.Address, uint64) (bool, error) {
	if f.fail != nil {
		return false, f.fail
	}
	return f.claimed, nil
}

func (f *fakeChainReader) ClaimAmount(context.Context, common.Address) (*big.Int, error) {
	return f.intOrZero(f.claimAmount)
}

func (f *fakeChainReader) MinPointsRequired(context.Context, common.Address) (*big.Int, error) {
	return f.intOrZero(f.minPoints)
}

func (f *fakeChainReader) LastClaimAt(context.Context, common.Address, uint64) (*big.Int, error) {
	return f.intOrZero(f.lastClaimAt)
}

func (f *fakeChainReader) ClaimCooldown(context.Context, common.Address) (*big.Int, error) {
	return f.intOrZero(f.cooldown)
}

func (f *fakeChainReader) HumanIDOf(context.Context, common.Address, uint64) (string, error) {
	if f.fail != nil {
		return "", f.fail
	}
	return f.humanID, nil
}

func (f *fakeChainReader) LatestBlockTime(context.Context) (uint64, error) {
	if f.fail != nil {
		return 0, f.fail
	}
	return f.blockTime, nil
}

// fakeProvider satisfies reputation.Provider.
type fakeProvider struct {
	raw map[string]interface{}
	err error
}

func (f *fakeProvider) Lookup(context.Context, uint64) (map[string]interface{}, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.raw, nil
}

type testEnv struct {
	app      *fiber.App
	db       *gorm.DB
	markers  *claims.MemoryStore
	engine   *captcha.Engine
	chain    *fakeChainReader
	provider *fakeProvider
}

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		gosqlite.MustRegisterScalarFunction("NOW", 0, func(ctx *gosqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			return time.Now().UTC(), nil
		})
		logger.Init()
		utils.ConfigureJWT("test-secret", 24)
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := db.AutoMigrate(&models.User{}, &models.AirdropConfig{}); err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	markers := claims.NewMemoryStore()
	engine := captcha.NewEngine("test-captcha-secret", captcha.DefaultTTL)
	chainReader := &fakeChainReader{}
	provider := &fakeProvider{}

	vaultSigner, err := signer.New(testSignerKey, 8453)
	if err != nil {
		t.Fatalf("failed creating signer: %v", err)
	}

	checker := airdrop.NewChecker(chainReader, vaultSigner, airdrop.Contracts{
		AirdropClaim: testAirdropContract,
		PointsToken:  testPointsToken,
		HumanID:      testHumanID,
	})

	captchaHandler := NewCaptchaHandler(db, engine, markers)
	scoreHandler := NewScoreHandler(db, provider, chainReader, time.Second)
	usersHandler := NewUsersHandler(db)
	signatureHandler := NewSignatureHandler(markers, chainReader, vaultSigner, testPointsContract, "")
	airdropHandler := NewAirdropHandler(db, checker, config.AirdropConfig{})

	authMiddleware := middleware.NewAuthMiddleware(testAdminFid, false)

	app := fiber.New()
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS())
	app.Use(middleware.RequestLogger())

	api := app.Group("/api")

	captchaRoutes := api.Group("/captcha")
	captchaRoutes.Get("/", captchaHandler.Issue)
	captchaRoutes.Post("/verify", authMiddleware.OptionalIdentity, captchaHandler.Verify)

	api.Get("/user", usersHandler.Get)
	api.Post("/user/score", authMiddleware.OptionalIdentity, scoreHandler.Refresh)

	api.Post("/signature/points-claim", authMiddleware.RequireIdentity, signatureHandler.PointsClaim)

	airdropRoutes := api.Group("/airdrop")
	airdropRoutes.Post("/eligibility", authMiddleware.RequireIdentity, airdropHandler.Eligibility)
	airdropRoutes.Get("/config", airdropHandler.GetConfig)
	airdropRoutes.Post("/config", authMiddleware.RequireIdentity, authMiddleware.AdminOnly, airdropHandler.UpdateConfig)

	return &testEnv{
		app:      app,
		db:       db,
		markers:  markers,
		engine:   engine,
		chain:    chainReader,
		provider: provider,
	}
}

// newHandlerApp mounts a single handler behind a fixed authenticated fid,
// for cases that need a differently wired handler than the shared env.
func newHandlerApp(t *testing.T, method, path string, handler fiber.Handler, fid uint64) *fiber.App {
	t.Helper()

	app := fiber.New()
	app.Add(method, path, func(c *fiber.Ctx) error {
		c.Locals("fid", fid)
		return c.Next()
	}, handler)
	return app
}

func authHeaders(t *testing.T, fid uint64) map[string]string {
	t.Helper()
	token, err := utils.GenerateToken(fid)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertEnvelopeError(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if success, _ := body["success"].(bool); success {
		t.Fatalf("expected success=false, got %+v", body)
	}
	if got, _ := body["error"].(string); got != expected {
		t.Fatalf("expected error %q, got %q", expected, got)
	}
}

var svgAnswerPattern = regexp.MustCompile(`font-size="44"[^>]*>([^<]+)</text>`)

// answerFromImage recovers the challenge answer from the rendered SVG the
// same way a person reading the image would.
func answerFromImage(t *testing.T, dataURI string) string {
	t.Helper()

	encoded := strings.TrimPrefix(dataURI, "data:image/svg+xml;base64,")
	svg, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("failed decoding challenge image: %v", err)
	}

	match := svgAnswerPattern.FindSubmatch(svg)
	if match == nil {
		t.Fatalf("challenge image has no answer text: %s", svg)
	}
	return strings.ReplaceAll(string(match[1]), " ", "")
}

// issueChallenge drives the issue endpoint and returns the challenge fields
// plus the recovered answer.
func issueChallenge(t *testing.T, env *testEnv, variant string) (map[string]any, string) {
	t.Helper()

	path := "/api/captcha/"
	if variant != "" {
		path += "?variant=" + variant
	}
	resp := performRequest(t, env.app, http.MethodGet, path, nil, nil)
	assertStatus(t, resp, http.StatusOK)

	body := decodeJSONMap(t, resp)
	data, _ := body["data"].(map[string]any)
	challenge, _ := data["challenge"].(map[string]any)
	if challenge == nil {
		t.Fatalf("expected challenge in response, got %+v", body)
	}

	image, _ := challenge["image"].(string)
	return challenge, answerFromImage(t, image)
}
