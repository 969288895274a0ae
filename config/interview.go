package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

const defaultInterviewAPIURL = "http://localhost:5000/api"

type InterviewConfig struct {
	Port string

	APIURL         string
	RequestTimeout time.Duration
	AnswerTimeout  time.Duration
	ReportCacheTTL time.Duration // 0 keeps cached reports forever
}

// LoadInterview reads the gateway settings from the environment.
func LoadInterview() (InterviewConfig, error) {
	cfg := InterviewConfig{
		Port:   envOrDefault("PORT", "8080"),
		APIURL: strings.TrimRight(envOrDefault("INTERVIEW_API_URL", defaultInterviewAPIURL), "/"),
	}

	u, err := url.Parse(cfg.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return InterviewConfig{}, fmt.Errorf("INTERVIEW_API_URL is not an absolute URL: %q", cfg.APIURL)
	}

	if cfg.RequestTimeout, err = envDuration("REQUEST_TIMEOUT", 15*time.Second); err != nil {
		return InterviewConfig{}, err
	}
	if cfg.AnswerTimeout, err = envDuration("ANSWER_TIMEOUT", 60*time.Second); err != nil {
		return InterviewConfig{}, err
	}
	if cfg.ReportCacheTTL, err = envDuration("REPORT_CACHE_TTL", 24*time.Hour); err != nil {
		return InterviewConfig{}, err
	}
	if cfg.RequestTimeout <= 0 || cfg.AnswerTimeout <= 0 {
		return InterviewConfig{}, fmt.Errorf("REQUEST_TIMEOUT and ANSWER_TIMEOUT must be positive")
	}
	if cfg.ReportCacheTTL < 0 {
		return InterviewConfig{}, fmt.Errorf("REPORT_CACHE_TTL must not be negative")
	}
	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
