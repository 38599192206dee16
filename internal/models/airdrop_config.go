package models

// AirdropConfigKey is the singleton row key. Only one config is ever active.
const AirdropConfigKey = "active"

// AirdropConfig is the externally-owned configuration snapshot for the
// airdrop flow. It is fetched fresh per request and passed into the
// eligibility check as a plain value; nothing caches it in-process.
type AirdropConfig struct {
	BaseModel
	Key              string  `json:"key" gorm:"type:varchar(20);uniqueIndex;not null;default:'active'"`
	TokenName        string  `json:"tokenName" gorm:"type:varchar(100);not null;default:''"`
	PoolAmount       string  `json:"poolAmount" gorm:"type:varchar(80);not null;default:'0'"`
	ClaimAmount      string  `json:"claimAmount" gorm:"type:varchar(80);not null;default:'0'"`
	MinPoints        int64   `json:"minPoints" gorm:"not null;default:0"`
	MinScore         int     `json:"minScore" gorm:"not null;default:0"`
	MaxClaimsPerUser int     `json:"maxClaimsPerUser" gorm:"not null;default:1"`
	RequireHumanID   bool    `json:"requireHumanId" gorm:"not null;default:false"`
	Paused           bool    `json:"paused" gorm:"not null;default:false"`
	UpdatedBy        *uint64 `json:"updatedBy,omitempty"`
}

func (AirdropConfig) TableName() string {
	return "airdrop_configs"
}
