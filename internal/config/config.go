package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

func init() {
	// Auto-load .env file if present (don't override existing env vars)
	loadDotEnv(".env")
}

func loadDotEnv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		// Remove surrounding quotes
		if len(val) >= 2 && ((val[0] == '"' && val[len(val)-1] == '"') || (val[0] == '\'' && val[len(val)-1] == '\'')) {
			val = val[1 : len(val)-1]
		}
		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}

const (
	defaultPort           = "8000"
	defaultEnvironment    = "development"
	defaultJagritiBaseURL = "https://e-jagriti.gov.in"
	defaultJagritiTimeout = 30 * time.Second
	defaultJagritiRetries = 3

	defaultStatesTTL      = 24 * time.Hour
	defaultCommissionsTTL = 24 * time.Hour

	defaultPageSize = 20
	maxPageSizeCap  = 100
)

// defaultCaptchaMarkers are the body substrings that identify an upstream
// anti-automation page. Overridable via CAPTCHA_MARKERS because the portal
// changes its challenge pages without notice.
var defaultCaptchaMarkers = []string{
	"captcha",
	"verify you are human",
	"security check",
	"recaptcha",
	"cloudflare",
}

type JagritiConfig struct {
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	CaptchaMarkers []string
}

type CacheConfig struct {
	StatesTTL      time.Duration
	CommissionsTTL time.Duration
}

type RefreshConfig struct {
	Enabled  bool
	CronExpr string
}

type Config struct {
	Port            string
	DatabaseURL     string
	Environment     string
	Jagriti         JagritiConfig
	Cache           CacheConfig
	Refresh         RefreshConfig
	DefaultPageSize int
	MaxPageSize     int
}

func Load() (Config, error) {
	cfg := Config{
		Port:        firstNonEmpty(strings.TrimSpace(os.Getenv("PORT")), defaultPort),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		Environment: resolveEnvironment(),
		Jagriti: JagritiConfig{
			BaseURL: firstNonEmpty(
				strings.TrimSpace(os.Getenv("JAGRITI_BASE_URL")),
				defaultJagritiBaseURL,
			),
			CaptchaMarkers: resolveCaptchaMarkers(),
		},
	}

	timeout, err := parseDuration("JAGRITI_TIMEOUT", defaultJagritiTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.Jagriti.Timeout = timeout

	maxRetries, err := parseInt("JAGRITI_MAX_RETRIES", defaultJagritiRetries)
	if err != nil {
		return Config{}, err
	}
	cfg.Jagriti.MaxRetries = maxRetries

	statesTTL, err := parseDuration("CACHE_TTL_STATES", defaultStatesTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.Cache.StatesTTL = statesTTL

	commissionsTTL, err := parseDuration("CACHE_TTL_COMMISSIONS", defaultCommissionsTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.Cache.CommissionsTTL = commissionsTTL

	defaultSize, err := parseInt("DEFAULT_PAGE_SIZE", defaultPageSize)
	if err != nil {
		return Config{}, err
	}
	cfg.DefaultPageSize = defaultSize

	maxSize, err := parseInt("MAX_PAGE_SIZE", maxPageSizeCap)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxPageSize = maxSize

	cronExpr := strings.TrimSpace(os.Getenv("REFDATA_REFRESH_CRON"))
	cfg.Refresh = RefreshConfig{
		Enabled:  cronExpr != "",
		CronExpr: cronExpr,
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if !strings.HasPrefix(c.Jagriti.BaseURL, "http://") && !strings.HasPrefix(c.Jagriti.BaseURL, "https://") {
		return fmt.Errorf("JAGRITI_BASE_URL must include a scheme")
	}
	if c.Jagriti.Timeout <= 0 {
		return fmt.Errorf("JAGRITI_TIMEOUT must be greater than zero")
	}
	if c.Jagriti.MaxRetries < 0 {
		return fmt.Errorf("JAGRITI_MAX_RETRIES must be greater than or equal to zero")
	}
	if len(c.Jagriti.CaptchaMarkers) == 0 {
		return fmt.Errorf("CAPTCHA_MARKERS must not be empty")
	}
	if c.Cache.StatesTTL <= 0 {
		return fmt.Errorf("CACHE_TTL_STATES must be greater than zero")
	}
	if c.Cache.CommissionsTTL <= 0 {
		return fmt.Errorf("CACHE_TTL_COMMISSIONS must be greater than zero")
	}
	if c.DefaultPageSize <= 0 {
		return fmt.Errorf("DEFAULT_PAGE_SIZE must be greater than zero")
	}
	if c.MaxPageSize <= 0 {
		return fmt.Errorf("MAX_PAGE_SIZE must be greater than zero")
	}
	if c.DefaultPageSize > c.MaxPageSize {
		return fmt.Errorf("DEFAULT_PAGE_SIZE must not exceed MAX_PAGE_SIZE")
	}
	return nil
}

func resolveCaptchaMarkers() []string {
	raw := strings.TrimSpace(os.Getenv("CAPTCHA_MARKERS"))
	if raw == "" {
		markers := make([]string, len(defaultCaptchaMarkers))
		copy(markers, defaultCaptchaMarkers)
		return markers
	}

	var markers []string
	for _, part := range strings.Split(raw, ",") {
		marker := strings.ToLower(strings.TrimSpace(part))
		if marker == "" {
			continue
		}
		markers = append(markers, marker)
	}
	return markers
}

func resolveEnvironment() string {
	return strings.ToLower(firstNonEmpty(
		strings.TrimSpace(os.Getenv("APP_ENV")),
		strings.TrimSpace(os.Getenv("ENVIRONMENT")),
		strings.TrimSpace(os.Getenv("GO_ENV")),
		defaultEnvironment,
	))
}

func parseDuration(name string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return defaultValue, nil
	}

	// Bare integers are treated as seconds for compatibility with older deployments.
	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds <= 0 {
			return 0, fmt.Errorf("%s must be greater than zero", name)
		}
		return time.Duration(seconds) * time.Second, nil
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", name, err)
	}

	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than zero", name)
	}

	return parsed, nil
}

func parseInt(name string, defaultValue int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", name, err)
	}
	return parsed, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
