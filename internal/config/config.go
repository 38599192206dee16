package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// DevCaptchaSecret is the development-only fallback HMAC secret. Startup
// refuses it outside development.
const DevCaptchaSecret = "dev-captcha-secret"

type Config struct {
	Environment string
	Server      ServerConfig
	DB          DBConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Captcha     CaptchaConfig
	Neynar      NeynarConfig
	Chain       ChainConfig
	Signer      SignerConfig
	Airdrop     AirdropConfig
}

type ServerConfig struct {
	Port     string
	AdminFid uint64
	// AllowHeaderIdentity accepts a bare X-Fid header instead of a bearer
	// token. Development only.
	AllowHeaderIdentity bool
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	URL string
}

type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

type CaptchaConfig struct {
	Secret string
	TTL    time.Duration
}

type NeynarConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type ChainConfig struct {
	RPCURL               string
	ChainID              int64
	PointsClaimContract  string
	AirdropClaimContract string
	PointsTokenContract  string
	HumanIDContract      string
	ReadTimeout          time.Duration
}

type SignerConfig struct {
	PrivateKey string
}

type AirdropConfig struct {
	RewardAmount string
	MinPoints    int64
	MinScore     int
	PointsAmount string
}

func Load() *Config {
	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:                getEnv("PORT", "8080"),
			AdminFid:            getEnvAsUint64("ADMIN_FID", 0),
			AllowHeaderIdentity: getEnvAsBool("ALLOW_HEADER_IDENTITY", true),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "captcha"),
			Password: getEnv("DB_PASSWORD", "captcha_secret"),
			Name:     getEnv("DB_NAME", "captcha"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "localhost:6379"),
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET", "change-me-in-production"),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		},
		Captcha: CaptchaConfig{
			Secret: getEnv("CAPTCHA_SECRET", getEnv("SERVER_PRIVATE_KEY", DevCaptchaSecret)),
			TTL:    getEnvAsDuration("CAPTCHA_TTL", 5*time.Minute),
		},
		Neynar: NeynarConfig{
			BaseURL: getEnv("NEYNAR_BASE_URL", "https://api.neynar.com"),
			APIKey:  getEnv("NEYNAR_API_KEY", ""),
			Timeout: getEnvAsDuration("NEYNAR_TIMEOUT", 10*time.Second),
		},
		Chain: ChainConfig{
			RPCURL:               getEnv("ALCHEMY_RPC_URL", "https://mainnet.base.org"),
			ChainID:              getEnvAsInt64("CHAIN_ID", 8453),
			PointsClaimContract:  getEnv("POINTS_CLAIM_CONTRACT", ""),
			AirdropClaimContract: getEnv("AIRDROP_CLAIM_CONTRACT", ""),
			PointsTokenContract:  getEnv("POINTS_TOKEN_CONTRACT", ""),
			HumanIDContract:      getEnv("HUMANID_CONTRACT", ""),
			ReadTimeout:          getEnvAsDuration("CHAIN_READ_TIMEOUT", 15*time.Second),
		},
		Signer: SignerConfig{
			PrivateKey: getEnv("SERVER_PRIVATE_KEY", ""),
		},
		Airdrop: AirdropConfig{
			RewardAmount: getEnv("AIRDROP_REWARD_AMOUNT", ""),
			MinPoints:    getEnvAsInt64("AIRDROP_MIN_POINTS", 0),
			MinScore:     getEnvAsInt("AIRDROP_MIN_SCORE", 0),
			PointsAmount: getEnv("POINTS_AMOUNT", ""),
		},
	}
}

// Validate enforces the production secret policy: deployed instances must
// never run on the development fallbacks.
func (c *Config) Validate() error {
	if c.Environment != "production" {
		return nil
	}
	if c.Captcha.Secret == DevCaptchaSecret || c.Captcha.Secret == "" {
		return errors.New("CAPTCHA_SECRET must be set in production")
	}
	if c.Signer.PrivateKey == "" {
		return errors.New("SERVER_PRIVATE_KEY must be set in production")
	}
	if c.JWT.Secret == "change-me-in-production" {
		return errors.New("JWT_SECRET must be set in production")
	}
	if c.Server.AllowHeaderIdentity {
		return errors.New("ALLOW_HEADER_IDENTITY must be disabled in production")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsUint64(key string, fallback uint64) uint64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseUint(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
