package handlers

import (
	"net/http"
	"testing"

	"github.com/Sukanto01899/captcha-backend/internal/models"
)

func TestUserGetMissingFid(t *testing.T) {
	env := setupTestEnv(t)

	for _, path := range []string{"/api/user", "/api/user?fid=abc", "/api/user?fid=0"} {
		resp := performRequest(t, env.app, http.MethodGet, path, nil, nil)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, decodeJSONMap(t, resp), "missing fid")
	}
}

func TestUserGetUnknownFidReturnsZeroState(t *testing.T) {
	env := setupTestEnv(t)

	resp := performRequest(t, env.app, http.MethodGet, "/api/user?fid=4821", nil, nil)
	assertStatus(t, resp, http.StatusOK)

	body := decodeJSONMap(t, resp)
	data, _ := body["data"].(map[string]any)
	if data["fid"] != float64(4821) || data["onboarded"] != false {
		t.Fatalf("expected zero state for unknown fid, got %+v", data)
	}
	if data["humanId"] != nil {
		t.Errorf("expected nil humanId, got %v", data["humanId"])
	}
	if data["points"] != float64(0) || data["humanScore"] != float64(0) {
		t.Errorf("expected zero points and score, got %+v", data)
	}
}

func TestUserGetExistingSnapshot(t *testing.T) {
	env := setupTestEnv(t)

	humanID := "HUM-A1B2-123456"
	if err := env.db.Create(&models.User{
		Fid:        4821,
		Onboarded:  true,
		HumanID:    &humanID,
		Points:     750,
		HumanScore: 64,
	}).Error; err != nil {
		t.Fatalf("failed seeding user: %v", err)
	}

	resp := performRequest(t, env.app, http.MethodGet, "/api/user?fid=4821", nil, nil)
	assertStatus(t, resp, http.StatusOK)

	body := decodeJSONMap(t, resp)
	data, _ := body["data"].(map[string]any)
	if data["onboarded"] != true || data["humanId"] != humanID {
		t.Errorf("unexpected snapshot fields: %+v", data)
	}
	if data["points"] != float64(750) || data["humanScore"] != float64(64) {
		t.Errorf("unexpected score fields: %+v", data)
	}
}
