package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	AutoMigrate        bool
	DefaultLocale      string
	GeoIPDBPath        string
	CORSAllowedOrigins []string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool

	CatalogPath     string
	DonationAddress common.Address
	ConfirmationURL string

	NotionToken             string
	NotionBaseURL           string
	NotionVersion           string
	NotionDonorsDatabaseID  string
	NotionContactDatabaseID string
	ContentDatabases        map[string]string
	ContentRevalidate       time.Duration
	WebhookURL              string
	RPCURLs                 map[string]string
	ReceiptPollInterval     time.Duration
}

// Content kinds served from the CMS.
const (
	ContentPublications = "publications"
	ContentNews         = "news"
	ContentMembers      = "members"
	ContentProjects     = "projects"
)

// ContentKinds lists every content kind in display order.
var ContentKinds = []string{ContentPublications, ContentNews, ContentMembers, ContentProjects}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		AutoMigrate:        strings.EqualFold(os.Getenv("DB_AUTO_MIGRATE"), "true"),
		DefaultLocale:      strings.ToLower(getEnv("DEFAULT_LOCALE", "ja")),
		GeoIPDBPath:        os.Getenv("GEOIP_DB_PATH"),
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		TrustProxyHeaders:  strings.EqualFold(os.Getenv("TRUST_PROXY_HEADERS"), "true"),

		CatalogPath:     os.Getenv("CATALOG_PATH"),
		ConfirmationURL: getEnv("CONFIRMATION_URL", "/donation/confirmation"),

		NotionToken:             os.Getenv("NOTION_TOKEN"),
		NotionBaseURL:           getEnv("NOTION_BASE_URL", "https://api.notion.com/v1"),
		NotionVersion:           getEnv("NOTION_VERSION", "2022-06-28"),
		NotionDonorsDatabaseID:  os.Getenv("NOTION_DONORS_DATABASE_ID"),
		NotionContactDatabaseID: os.Getenv("NOTION_CONTACT_DATABASE_ID"),
		ContentDatabases:        map[string]string{},
		ContentRevalidate:       time.Second * time.Duration(getEnvInt("CONTENT_REVALIDATE_SECONDS", 3600)),
		WebhookURL:              os.Getenv("WEBHOOK_URL"),
		ReceiptPollInterval:     time.Second * time.Duration(getEnvInt("RECEIPT_POLL_SECONDS", 2)),
	}
	for _, kind := range ContentKinds {
		if id := strings.TrimSpace(os.Getenv("NOTION_" + strings.ToUpper(kind) + "_DATABASE_ID")); id != "" {
			cfg.ContentDatabases[kind] = id
		}
	}
	cfg.RPCURLs = loadRPCURLs()

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	addr, err := donationAddress()
	if err != nil {
		return nil, err
	}
	cfg.DonationAddress = addr

	if err := checkLocale(cfg.DefaultLocale); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DonorConfig is the configuration of the command-line donor, which needs
// no database.
type DonorConfig struct {
	AppEnv              string
	DefaultLocale       string
	CatalogPath         string
	DonationAddress     common.Address
	ConfirmationURL     string
	RPCURLs             map[string]string
	ReceiptPollInterval time.Duration
	PrivateKey          string
}

// LoadDonorConfig reads DONATION_ADDRESS, RPC_URL_<CHAIN>, DONOR_PRIVATE_KEY
// and the shared catalog and locale settings.
func LoadDonorConfig() (*DonorConfig, error) {
	cfg := &DonorConfig{
		AppEnv:              getEnv("APP_ENV", "development"),
		DefaultLocale:       strings.ToLower(getEnv("DEFAULT_LOCALE", "ja")),
		CatalogPath:         os.Getenv("CATALOG_PATH"),
		ConfirmationURL:     getEnv("CONFIRMATION_URL", "/donation/confirmation"),
		RPCURLs:             loadRPCURLs(),
		ReceiptPollInterval: time.Second * time.Duration(getEnvInt("RECEIPT_POLL_SECONDS", 2)),
		PrivateKey:          strings.TrimPrefix(strings.TrimSpace(os.Getenv("DONOR_PRIVATE_KEY")), "0x"),
	}
	addr, err := donationAddress()
	if err != nil {
		return nil, err
	}
	cfg.DonationAddress = addr
	if len(cfg.RPCURLs) == 0 {
		return nil, fmt.Errorf("at least one RPC_URL_<CHAIN> is required")
	}
	if err := checkLocale(cfg.DefaultLocale); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadRPCURLs() map[string]string {
	urls := map[string]string{}
	for _, chain := range []string{"ethereum", "optimism", "arbitrum", "base"} {
		if u := strings.TrimSpace(os.Getenv("RPC_URL_" + strings.ToUpper(chain))); u != "" {
			urls[chain] = u
		}
	}
	return urls
}

func donationAddress() (common.Address, error) {
	addr := strings.TrimSpace(os.Getenv("DONATION_ADDRESS"))
	if addr == "" {
		return common.Address{}, fmt.Errorf("DONATION_ADDRESS is required")
	}
	if !common.IsHexAddress(addr) {
		return common.Address{}, fmt.Errorf("DONATION_ADDRESS %q is not a valid address", addr)
	}
	return common.HexToAddress(addr), nil
}

func checkLocale(locale string) error {
	switch locale {
	case "ja", "en":
		return nil
	default:
		return fmt.Errorf("DEFAULT_LOCALE must be ja or en, got %q", locale)
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
