package reputation

import (
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func TestFromRawNil(t *testing.T) {
	p := FromRaw(nil, testNow)
	if p != (Profile{}) {
		t.Fatalf("expected zero profile, got %+v", p)
	}
}

func TestFromRawCanonicalFields(t *testing.T) {
	raw := map[string]interface{}{
		"follower_count":  float64(420),
		"following_count": float64(99),
		"casts_count":     float64(37),
		"likes_count":     float64(128),
		"replies_count":   float64(16),
		"neynar_score":    0.87,
		"spam_label":      float64(1),
		"power_badge":     true,
		"registered_at":   "2025-03-01T00:00:00Z",
	}

	p := FromRaw(raw, testNow)

	if p.Followers != 420 || p.Following != 99 || p.Posts != 37 {
		t.Errorf("count fields wrong: %+v", p)
	}
	if p.Engagement != 128 || p.Comments != 16 {
		t.Errorf("engagement fields wrong: %+v", p)
	}
	if p.PlatformTrust != 0.87 {
		t.Errorf("expected trust 0.87, got %v", p.PlatformTrust)
	}
	if p.SpamLabel != SpamSuspect {
		t.Errorf("expected suspect spam label, got %v", p.SpamLabel)
	}
	if !p.HasEliteBadge {
		t.Error("expected elite badge")
	}
	if p.AccountAgeDays != 365 {
		t.Errorf("expected 365 age days, got %d", p.AccountAgeDays)
	}
	if p.WalletBalance != 0 {
		t.Errorf("wallet balance is not a provider signal, got %v", p.WalletBalance)
	}
}

func TestFromRawAliasFallbacks(t *testing.T) {
	tests := []struct {
		name  string
		raw   map[string]interface{}
		check func(t *testing.T, p Profile)
	}{
		{
			"followers_count alias",
			map[string]interface{}{"followers_count": float64(7)},
			func(t *testing.T, p Profile) {
				if p.Followers != 7 {
					t.Errorf("expected 7 followers, got %d", p.Followers)
				}
			},
		},
		{
			"bare followers alias",
			map[string]interface{}{"followers": float64(3)},
			func(t *testing.T, p Profile) {
				if p.Followers != 3 {
					t.Errorf("expected 3 followers, got %d", p.Followers)
				}
			},
		},
		{
			"preferred alias wins over fallback",
			map[string]interface{}{"follower_count": float64(10), "followers": float64(99)},
			func(t *testing.T, p Profile) {
				if p.Followers != 10 {
					t.Errorf("expected preferred alias value 10, got %d", p.Followers)
				}
			},
		},
		{
			"nil value falls through to next alias",
			map[string]interface{}{"follower_count": nil, "followers": float64(5)},
			func(t *testing.T, p Profile) {
				if p.Followers != 5 {
					t.Errorf("expected fallback value 5, got %d", p.Followers)
				}
			},
		},
		{
			"created_at for registration",
			map[string]interface{}{"created_at": "2026-02-01T00:00:00Z"},
			func(t *testing.T, p Profile) {
				if p.AccountAgeDays != 28 {
					t.Errorf("expected 28 age days, got %d", p.AccountAgeDays)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, FromRaw(tt.raw, testNow))
		})
	}
}

func TestFromRawCoercions(t *testing.T) {
	raw := map[string]interface{}{
		"follower_count": "250",  // numeric string
		"casts_count":    -12.0,  // negative count floors to 0
		"neynar_score":   "0.42", // string float
	}
	p := FromRaw(raw, testNow)
	if p.Followers != 250 {
		t.Errorf("expected string count coerced to 250, got %d", p.Followers)
	}
	if p.Posts != 0 {
		t.Errorf("expected negative count floored to 0, got %d", p.Posts)
	}
	if p.PlatformTrust != 0.42 {
		t.Errorf("expected trust 0.42, got %v", p.PlatformTrust)
	}
}

func TestToSpamLabel(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want SpamLabel
	}{
		{"nil", nil, SpamClean},
		{"bool true", true, SpamConfirmed},
		{"bool false", false, SpamClean},
		{"numeric 0", float64(0), SpamClean},
		{"numeric 1", float64(1), SpamSuspect},
		{"numeric 2", float64(2), SpamConfirmed},
		{"numeric above range", float64(9), SpamConfirmed},
		{"numeric negative", float64(-3), SpamClean},
		{"string spam", "spam", SpamConfirmed},
		{"string suspicious", "Suspicious", SpamSuspect},
		{"string clean", "clean", SpamClean},
		{"string unknown", "whatever", SpamClean},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := toSpamLabel(tt.in); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestAgeDays(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want int64
	}{
		{"rfc3339", "2026-02-01T00:00:00Z", 28},
		{"unix seconds", float64(testNow.AddDate(0, 0, -10).Unix()), 10},
		{"future registration floors to zero", "2027-01-01T00:00:00Z", 0},
		{"garbage string", "last tuesday", 0},
		{"missing", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ageDays(tt.in, testNow); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}
