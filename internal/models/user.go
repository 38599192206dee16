package models

// User is the per-fid reputation snapshot plus the HumanID mint state.
// Raw signals are persisted alongside the derived score so that fairness
// disputes can be replayed against the exact provider snapshot.
type User struct {
	BaseModel
	Fid       uint64  `json:"fid" gorm:"uniqueIndex;not null"`
	Onboarded bool    `json:"onboarded" gorm:"not null;default:false"`
	HumanID   *string `json:"humanId" gorm:"type:varchar(32)"`
	Points    int64   `json:"points" gorm:"not null;default:0"`

	HumanScore     int     `json:"humanScore" gorm:"not null;default:0"`
	Followers      int64   `json:"followers" gorm:"not null;default:0"`
	Following      int64   `json:"following" gorm:"not null;default:0"`
	Posts          int64   `json:"posts" gorm:"not null;default:0"`
	Engagement     int64   `json:"engagement" gorm:"not null;default:0"`
	Comments       int64   `json:"comments" gorm:"not null;default:0"`
	AccountAgeDays int64   `json:"accountAgeDays" gorm:"not null;default:0"`
	PlatformTrust  float64 `json:"platformTrust" gorm:"not null;default:0"`
	WalletBalance  float64 `json:"walletBalance" gorm:"not null;default:0"`
	SpamLabel      int     `json:"spamLabel" gorm:"not null;default:0"`
	HasEliteBadge  bool    `json:"hasEliteBadge" gorm:"not null;default:false"`
}

func (User) TableName() string {
	return "users"
}
