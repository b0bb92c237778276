package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        App        `mapstructure:"app"`
	Server     Server     `mapstructure:"server"`
	Auth       Auth       `mapstructure:"auth"`
	Extractor  Extractor  `mapstructure:"extractor"`
	Completion Completion `mapstructure:"completion"`
}

// App holds general application configuration
type App struct {
	Debug      bool   `mapstructure:"debug"`
	LogLevel   string `mapstructure:"log_level"`
	ConfigFile string `mapstructure:"config_file"`
}

// Server holds HTTP server configuration
type Server struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	TemplateDir     string        `mapstructure:"template_dir"`
	CORS            CORS          `mapstructure:"cors"`
}

// CORS holds CORS middleware configuration
type CORS struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Auth holds the basic-auth gate credentials. When either value is empty the
// gate rejects every request, which effectively disables the service.
type Auth struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Realm    string `mapstructure:"realm"`
}

// Extractor holds configuration for the article extraction service
type Extractor struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Port    int           `mapstructure:"port"` // port for the built-in extract-server
}

// Completion holds configuration for the LLM completion API
type Completion struct {
	APIKey      string        `mapstructure:"api_key"`
	URL         string        `mapstructure:"url"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	RandomSeed  int           `mapstructure:"random_seed"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	// Configure viper
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".timescope")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// Reset clears the cached global configuration. Used by tests.
func Reset() {
	globalConfig = nil
	viper.Reset()
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.log_level", "info")

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "120s")
	viper.SetDefault("server.shutdown_timeout", "10s")
	viper.SetDefault("server.template_dir", "web/templates")
	viper.SetDefault("server.cors.enabled", true)
	viper.SetDefault("server.cors.allowed_origins", []string{"*"})

	// Auth defaults
	viper.SetDefault("auth.realm", "Timescope Private Access")

	// Extractor defaults
	viper.SetDefault("extractor.url", "http://localhost:8000/extract")
	viper.SetDefault("extractor.timeout", "30s")
	viper.SetDefault("extractor.port", 8000)

	// Completion defaults
	viper.SetDefault("completion.url", "https://api.perplexity.ai/chat/completions")
	viper.SetDefault("completion.model", "sonar-pro")
	viper.SetDefault("completion.max_tokens", 2048)
	viper.SetDefault("completion.temperature", 0.2)
	viper.SetDefault("completion.random_seed", 42)
	viper.SetDefault("completion.timeout", "90s")
}

// bindEnvironmentVariables binds environment variables to config keys
func bindEnvironmentVariables() {
	// Secrets come from the environment, never from the config file
	_ = viper.BindEnv("completion.api_key", "TIMESCOPE_API_KEY", "PERPLEXITY_API_KEY")
	_ = viper.BindEnv("auth.username", "AUTH_USERNAME")
	_ = viper.BindEnv("auth.password", "AUTH_PASSWORD")
	_ = viper.BindEnv("extractor.url", "EXTRACTOR_URL")
	_ = viper.BindEnv("server.port", "PORT")
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Extractor.URL == "" {
		return fmt.Errorf("extractor.url must not be empty")
	}
	if config.Completion.URL == "" {
		return fmt.Errorf("completion.url must not be empty")
	}
	if config.Completion.MaxTokens <= 0 {
		return fmt.Errorf("completion.max_tokens must be positive")
	}
	// A missing completion API key is not a load error: the analyze endpoint
	// reports it per request as a server configuration failure.
	return nil
}
