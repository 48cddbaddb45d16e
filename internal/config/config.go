package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/John09278606492/pos-inventory-system-sub000/internal/domain"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	AuthSecret            string
	AccessTokenTTLMinutes int
	SummaryTTLSeconds     int
	DefaultTerminalID     string
	StoreProfilePath      string
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}
	summaryTTL, err := strconv.Atoi(getEnv("SUMMARY_TTL_SECONDS", "60"))
	if err != nil || summaryTTL < 1 {
		summaryTTL = 60
	}

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
		SummaryTTLSeconds:     summaryTTL,
		DefaultTerminalID:     getEnv("DEFAULT_TERMINAL_ID", "terminal-1"),
		StoreProfilePath:      os.Getenv("STORE_PROFILE_PATH"),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

// StoreProfile is the per-store commercial profile: the tax regime, the
// markup applied to store-credit sales, and the credit terms the register
// offers. It is deployment data rather than code, so it loads from YAML.
type StoreProfile struct {
	StoreName    string `yaml:"store_name"`
	CurrencyCode string `yaml:"currency_code"`
	Tax          struct {
		Name        string  `yaml:"name"`
		RatePercent float64 `yaml:"rate_percent"`
		Type        string  `yaml:"type"`
	} `yaml:"tax"`
	FallbackCreditMarkupPercent float64             `yaml:"fallback_credit_markup_percent"`
	CreditTerms                 []domain.CreditTerm `yaml:"credit_terms"`
}

// DefaultStoreProfile is used when no profile file is configured.
func DefaultStoreProfile() StoreProfile {
	profile := StoreProfile{
		StoreName:                   "Toko Sembako",
		CurrencyCode:                "IDR",
		FallbackCreditMarkupPercent: 2,
		CreditTerms: []domain.CreditTerm{
			{ID: "net7", Name: "Net 7", Days: 7, RatePercent: 1},
			{ID: "net30", Name: "Net 30", Days: 30, RatePercent: 5},
		},
	}
	profile.Tax.Name = "PPN"
	profile.Tax.RatePercent = 11
	profile.Tax.Type = domain.TaxExclusive
	return profile
}

// LoadStoreProfile reads the profile from path, or returns the default when
// path is empty. An unreadable or invalid file is an error; silently pricing
// with the wrong tax regime is worse than refusing to start.
func LoadStoreProfile(path string) (StoreProfile, error) {
	if path == "" {
		return DefaultStoreProfile(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return StoreProfile{}, fmt.Errorf("read store profile: %w", err)
	}
	profile := DefaultStoreProfile()
	if err := yaml.Unmarshal(raw, &profile); err != nil {
		return StoreProfile{}, fmt.Errorf("parse store profile: %w", err)
	}
	if err := profile.Validate(); err != nil {
		return StoreProfile{}, err
	}
	return profile, nil
}

func (p StoreProfile) Validate() error {
	if p.Tax.RatePercent < 0 || p.Tax.RatePercent > 100 {
		return fmt.Errorf("store profile: tax rate %v out of range", p.Tax.RatePercent)
	}
	if p.Tax.Type != domain.TaxExclusive && p.Tax.Type != domain.TaxInclusive {
		return fmt.Errorf("store profile: unknown tax type %q", p.Tax.Type)
	}
	if p.FallbackCreditMarkupPercent < 0 {
		return fmt.Errorf("store profile: fallback markup must not be negative")
	}
	seen := make(map[string]bool, len(p.CreditTerms))
	for _, term := range p.CreditTerms {
		if term.ID == "" || term.Days < 0 || term.RatePercent < 0 {
			return fmt.Errorf("store profile: invalid credit term %q", term.ID)
		}
		if seen[term.ID] {
			return fmt.Errorf("store profile: duplicate credit term %q", term.ID)
		}
		seen[term.ID] = true
	}
	return nil
}
