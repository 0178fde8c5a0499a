package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found: %v", err)
	}
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetDecimalEnv returns a decimal environment variable or a default value.
func GetDecimalEnv(key, defaultVal string) decimal.Decimal {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		if d, err := decimal.NewFromString(val); err == nil {
			return d
		}
	}
	return decimal.RequireFromString(defaultVal)
}

// GetDurationEnv returns a duration environment variable or a default value.
func GetDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// IsProduction checks if the app runs in production mode.
func IsProduction() bool {
	return GetEnv("ENV", "development") == "production"
}

// DefaultLimits are the fallback limits applied when neither a card override
// nor a product-code limit is configured.
type DefaultLimits struct {
	TransactionLimit decimal.Decimal
	DailyLimit       decimal.Decimal
	MonthlyLimit     decimal.Decimal
	AtmDailyLimit    decimal.Decimal
	ContactlessLimit decimal.Decimal
	OnlineLimit      decimal.Decimal
}

// ChannelMultipliers scale the effective transaction/daily limit per channel.
type ChannelMultipliers struct {
	ATM       decimal.Decimal
	ECommerce decimal.Decimal
	POS       decimal.Decimal
}

// ExternalService holds the call budget for one upstream dependency.
type ExternalService struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration
}

// AuthorizationConfig collects every tunable of the authorization core.
type AuthorizationConfig struct {
	HoldExpiry         time.Duration
	ChallengeThreshold int
	DeclineThreshold   int
	ChallengeTTL       time.Duration
	DecisionTTL        time.Duration

	Defaults           DefaultLimits
	ProductLimits      map[string]DefaultLimits
	ChannelMultipliers ChannelMultipliers
	HighRiskMCCs       []string
	HighRiskCountries  []string

	SweepInterval   time.Duration
	RequestDeadline time.Duration

	CardService  ExternalService
	Ledger       ExternalService
	Notification ExternalService
}

// LoadAuthorizationConfig reads the authorization settings from the
// environment, falling back to the documented defaults.
func LoadAuthorizationConfig() AuthorizationConfig {
	return AuthorizationConfig{
		HoldExpiry:         time.Duration(GetIntEnv("AUTH_HOLD_EXPIRY_HOURS", 168)) * time.Hour,
		ChallengeThreshold: GetIntEnv("AUTH_RISK_CHALLENGE_THRESHOLD", 70),
		DeclineThreshold:   GetIntEnv("AUTH_RISK_DECLINE_THRESHOLD", 90),
		ChallengeTTL:       GetDurationEnv("AUTH_CHALLENGE_TTL", 15*time.Minute),
		DecisionTTL:        GetDurationEnv("AUTH_DECISION_TTL", 7*24*time.Hour),
		Defaults: DefaultLimits{
			TransactionLimit: GetDecimalEnv("AUTH_LIMIT_TRANSACTION", "2000.00"),
			DailyLimit:       GetDecimalEnv("AUTH_LIMIT_DAILY", "5000.00"),
			MonthlyLimit:     GetDecimalEnv("AUTH_LIMIT_MONTHLY", "20000.00"),
			AtmDailyLimit:    GetDecimalEnv("AUTH_LIMIT_ATM_DAILY", "1000.00"),
			ContactlessLimit: GetDecimalEnv("AUTH_LIMIT_CONTACTLESS", "100.00"),
			OnlineLimit:      GetDecimalEnv("AUTH_LIMIT_ONLINE", "3000.00"),
		},
		ChannelMultipliers: ChannelMultipliers{
			ATM:       GetDecimalEnv("AUTH_CHANNEL_MULTIPLIER_ATM", "0.5"),
			ECommerce: GetDecimalEnv("AUTH_CHANNEL_MULTIPLIER_ECOMMERCE", "0.75"),
			POS:       GetDecimalEnv("AUTH_CHANNEL_MULTIPLIER_POS", "1.0"),
		},
		HighRiskMCCs: splitList(GetEnv("AUTH_HIGH_RISK_MCCS",
			"7995,5993,5921,7273,7994,5816,5967")),
		HighRiskCountries: splitList(GetEnv("AUTH_HIGH_RISK_COUNTRIES", "")),
		SweepInterval:     time.Duration(GetIntEnv("AUTH_SWEEP_INTERVAL_SECONDS", 3600)) * time.Second,
		RequestDeadline:   GetDurationEnv("AUTH_REQUEST_DEADLINE", 10*time.Second),
		CardService:       loadExternal("CARD_SERVICE", "http://localhost:8081"),
		Ledger:            loadExternal("LEDGER", "http://localhost:8082"),
		Notification:      loadExternal("NOTIFICATION", "http://localhost:8083"),
	}
}

func loadExternal(prefix, defaultURL string) ExternalService {
	return ExternalService{
		BaseURL:     GetEnv(prefix+"_BASE_URL", defaultURL),
		Timeout:     time.Duration(GetIntEnv(prefix+"_TIMEOUT_SECONDS", 5)) * time.Second,
		MaxAttempts: GetIntEnv(prefix+"_RETRY_MAX_ATTEMPTS", 3),
		Backoff:     time.Duration(GetIntEnv(prefix+"_RETRY_BACKOFF_MS", 500)) * time.Millisecond,
	}
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
