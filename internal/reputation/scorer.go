package reputation

import "math"

// Each raw signal ramps linearly to a shared per-category cap, so no single
// dimension can be gamed past its slice of the total. The caps sum to
// exactly 100 (8 ramped categories + badge + spam bonus), which keeps the
// final clamp a safety net rather than a working code path.
const (
	maxCategoryScore = 10.0

	followersUnit  = 100.0
	followingUnit  = 200.0
	postsUnit      = 10.0
	engagementUnit = 20.0
	commentsUnit   = 10.0
	ageUnit        = 30.0 // month-units
	balanceUnit    = 0.0005
	trustScale     = 10.0

	eliteBadgeBonus = 10.0

	spamCleanBonus   = 10.0
	spamSuspectBonus = 5.0
)

// Breakdown itemizes every sub-score that went into the total.
type Breakdown struct {
	Followers     float64 `json:"followers"`
	Following     float64 `json:"following"`
	Posts         float64 `json:"posts"`
	Engagement    float64 `json:"engagement"`
	Comments      float64 `json:"comments"`
	AccountAge    float64 `json:"accountAge"`
	PlatformTrust float64 `json:"platformTrust"`
	WalletBalance float64 `json:"walletBalance"`
	EliteBadge    float64 `json:"eliteBadge"`
	SpamBonus     float64 `json:"spamBonus"`
}

// Score computes the deterministic 0-100 trust score for a profile. Same
// input, same output, always.
func Score(p Profile) (int, Breakdown) {
	b := Breakdown{
		Followers:     ramp(float64(p.Followers), followersUnit),
		Following:     ramp(float64(p.Following), followingUnit),
		Posts:         ramp(float64(p.Posts), postsUnit),
		Engagement:    ramp(float64(p.Engagement), engagementUnit),
		Comments:      ramp(float64(p.Comments), commentsUnit),
		AccountAge:    ramp(float64(p.AccountAgeDays), ageUnit),
		PlatformTrust: capped(p.PlatformTrust * trustScale),
		WalletBalance: ramp(p.WalletBalance, balanceUnit),
		SpamBonus:     spamBonus(p.SpamLabel),
	}
	if p.HasEliteBadge {
		b.EliteBadge = eliteBadgeBonus
	}

	total := b.Followers + b.Following + b.Posts + b.Engagement + b.Comments +
		b.AccountAge + b.PlatformTrust + b.WalletBalance + b.EliteBadge + b.SpamBonus

	return clamp(int(math.Round(total))), b
}

func ramp(value, unit float64) float64 {
	if value <= 0 {
		return 0
	}
	return capped(value / unit)
}

func capped(v float64) float64 {
	if v < 0 {
		return 0
	}
	return math.Min(maxCategoryScore, v)
}

// spamBonus is the only category that suppresses rather than adds: a clean
// account earns the full bonus, a suspect one half, confirmed spam nothing.
func spamBonus(label SpamLabel) float64 {
	switch label {
	case SpamConfirmed:
		return 0
	case SpamSuspect:
		return spamSuspectBonus
	default:
		return spamCleanBonus
	}
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
