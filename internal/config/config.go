// Package config provides functionality for managing configuration options
// for the application using command-line flags and environment variables.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Options holds the configuration values for the application.
// It is constructed once at process start and passed by reference into the
// components that need it; values are treated as immutable afterwards.
type Options struct {
	// Addr defines the server's listening address (ip:port).
	Addr string

	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN string

	// Config is the path to the Config file.
	Config string

	// VaultKey is the hex-encoded 32-byte key used to encrypt stored
	// course credentials.
	VaultKey string

	// JWTSecret signs and verifies bearer tokens.
	JWTSecret string

	// ProviderBaseURL is the transcription provider endpoint.
	ProviderBaseURL string
	// ProviderAppKey is the provider application key sent in task requests.
	ProviderAppKey string
	// ProviderAccessKeyID and ProviderAccessKeySecret authenticate provider calls.
	ProviderAccessKeyID     string
	ProviderAccessKeySecret string
	// ProviderFallback enables the placeholder-result fallback when the
	// provider is unconfigured or failing. Production deployments may want
	// this off so provider errors surface as failed analyses.
	ProviderFallback bool

	// YtDlpPath is the path to the yt-dlp binary used for video downloads.
	YtDlpPath string
	// TempDir is where downloaded media is staged before analysis.
	TempDir string
}

// options holds the current configuration values.
var options = &Options{ProviderFallback: true}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.Addr, "a", "localhost:8080", "run on ip:port server")
	flag.StringVar(&options.DatabaseDSN, "d", "", "db address")
	flag.StringVar(&options.Config, "config", "config.json", "path to config file")
	flag.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
	flag.StringVar(&options.YtDlpPath, "ytdlp", "yt-dlp", "path to the yt-dlp binary")
	flag.StringVar(&options.TempDir, "tempdir", os.TempDir(), "staging directory for downloaded media")
}

// Parse parses the command-line flags and environment variables to set
// configuration values. It returns a pointer to the Options struct containing
// the parsed configuration values.
func Parse() *Options {
	flag.Parse()

	// A .env file is optional; ignore the error when it is absent.
	_ = godotenv.Load()

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	if serverAddress := os.Getenv("SERVER_ADDRESS"); serverAddress != "" {
		options.Addr = serverAddress
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		options.DatabaseDSN = dsn
	}
	if key := os.Getenv("VAULT_KEY"); key != "" {
		options.VaultKey = key
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		options.JWTSecret = secret
	}
	if url := os.Getenv("AI_API_URL"); url != "" {
		options.ProviderBaseURL = url
	}
	if key := os.Getenv("AI_APP_KEY"); key != "" {
		options.ProviderAppKey = key
	}
	if id := os.Getenv("AI_ACCESS_KEY_ID"); id != "" {
		options.ProviderAccessKeyID = id
	}
	if secret := os.Getenv("AI_ACCESS_KEY_SECRET"); secret != "" {
		options.ProviderAccessKeySecret = secret
	}
	if fallback := os.Getenv("AI_FALLBACK"); fallback != "" {
		if v, err := strconv.ParseBool(fallback); err == nil {
			options.ProviderFallback = v
		}
	}
	if path := os.Getenv("YTDLP_PATH"); path != "" {
		options.YtDlpPath = path
	}
	if dir := os.Getenv("TEMP_DIR"); dir != "" {
		options.TempDir = dir
	}

	return options
}
