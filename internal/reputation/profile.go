package reputation

import (
	"strconv"
	"strings"
	"time"
)

// SpamLabel is the provider's spam classification collapsed to a tri-state
// severity.
type SpamLabel int

const (
	SpamClean     SpamLabel = 0
	SpamSuspect   SpamLabel = 1
	SpamConfirmed SpamLabel = 2
)

// Profile is the canonical scoring input. Every field defaults to its zero
// value when the provider omits the underlying signal.
type Profile struct {
	Followers      int64     `json:"followers"`
	Following      int64     `json:"following"`
	Posts          int64     `json:"posts"`
	Engagement     int64     `json:"engagement"`
	Comments       int64     `json:"comments"`
	AccountAgeDays int64     `json:"accountAgeDays"`
	PlatformTrust  float64   `json:"platformTrust"`
	WalletBalance  float64   `json:"walletBalance"`
	SpamLabel      SpamLabel `json:"spamLabel"`
	HasEliteBadge  bool      `json:"hasEliteBadge"`
}

// signalAliases maps each canonical signal to the historical field names the
// provider has used for it, in preference order. Keeping this as one table
// (rather than optional-chaining at each use site) makes the mapping
// testable on its own.
var signalAliases = map[string][]string{
	"followers":  {"follower_count", "followers_count", "followers"},
	"following":  {"following_count", "followings_count", "following"},
	"posts":      {"casts_count", "casts", "post_count", "posts"},
	"engagement": {"likes_count", "likes", "reactions_count", "engagement_count"},
	"comments":   {"replies_count", "replies", "comment_count", "comments"},
	"trust":      {"neynar_score", "trust_score", "score"},
	"spam":       {"spam_label", "spam", "is_spam"},
	"badge":      {"power_badge", "elite_badge", "verified_badge"},
	"registered": {"registered_at", "created_at", "signup_date"},
}

// FromRaw normalizes a heterogeneous provider payload into a Profile.
// Wallet balance is not a provider signal; the caller fills it in from a
// chain read.
func FromRaw(raw map[string]interface{}, now time.Time) Profile {
	if raw == nil {
		return Profile{}
	}

	return Profile{
		Followers:      toInt64(lookup(raw, "followers")),
		Following:      toInt64(lookup(raw, "following")),
		Posts:          toInt64(lookup(raw, "posts")),
		Engagement:     toInt64(lookup(raw, "engagement")),
		Comments:       toInt64(lookup(raw, "comments")),
		AccountAgeDays: ageDays(lookup(raw, "registered"), now),
		PlatformTrust:  toFloat(lookup(raw, "trust")),
		SpamLabel:      toSpamLabel(lookup(raw, "spam")),
		HasEliteBadge:  toBool(lookup(raw, "badge")),
	}
}

func lookup(raw map[string]interface{}, signal string) interface{} {
	for _, alias := range signalAliases[signal] {
		if v, ok := raw[alias]; ok && v != nil {
			return v
		}
	}
	return nil
}

func toFloat(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f
		}
	}
	return 0
}

func toInt64(v interface{}) int64 {
	f := toFloat(v)
	if f < 0 {
		return 0
	}
	return int64(f)
}

func toBool(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes":
			return true
		}
	}
	return false
}

// toSpamLabel coerces the provider representations seen in the wild:
// booleans (spam yes/no), numeric severities, and named labels.
func toSpamLabel(v interface{}) SpamLabel {
	switch t := v.(type) {
	case bool:
		if t {
			return SpamConfirmed
		}
		return SpamClean
	case float64:
		return clampLabel(int(t))
	case int:
		return clampLabel(t)
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "spam", "confirmed", "2", "true":
			return SpamConfirmed
		case "suspicious", "suspect", "1":
			return SpamSuspect
		}
		return SpamClean
	}
	return SpamClean
}

func clampLabel(n int) SpamLabel {
	switch {
	case n >= 2:
		return SpamConfirmed
	case n == 1:
		return SpamSuspect
	default:
		return SpamClean
	}
}

func ageDays(v interface{}, now time.Time) int64 {
	var registered time.Time

	switch t := v.(type) {
	case string:
		parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(t))
		if err != nil {
			return 0
		}
		registered = parsed
	case float64:
		// Unix seconds; the provider has never sent millis here.
		registered = time.Unix(int64(t), 0)
	case int64:
		registered = time.Unix(t, 0)
	default:
		return 0
	}

	days := int64(now.Sub(registered).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
