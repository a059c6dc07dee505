package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Solver   SolverConfig
	Exports  ExportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SolverConfig carries engine defaults applied when a stored optimization
// config leaves a field unset. Per-run values always win.
type SolverConfig struct {
	PopulationSize  int
	MaxGenerations  int
	MutationRate    float64
	CrossoverRate   float64
	EliteSize       int
	TournamentSize  int
	MaxRuntime      time.Duration
	StagnationLimit int
	ThreadCount     int
	RepairBudget    int
	LogFrequency    int
	QueueWorkers    int
	ResultCacheTTL  time.Duration
}

// ExportsConfig governs master-schedule export endpoints.
type ExportsConfig struct {
	Enabled    bool
	SchoolName string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Solver = SolverConfig{
		PopulationSize:  v.GetInt("SOLVER_POPULATION_SIZE"),
		MaxGenerations:  v.GetInt("SOLVER_MAX_GENERATIONS"),
		MutationRate:    v.GetFloat64("SOLVER_MUTATION_RATE"),
		CrossoverRate:   v.GetFloat64("SOLVER_CROSSOVER_RATE"),
		EliteSize:       v.GetInt("SOLVER_ELITE_SIZE"),
		TournamentSize:  v.GetInt("SOLVER_TOURNAMENT_SIZE"),
		MaxRuntime:      parseDuration(v.GetString("SOLVER_MAX_RUNTIME"), 5*time.Minute),
		StagnationLimit: v.GetInt("SOLVER_STAGNATION_LIMIT"),
		ThreadCount:     v.GetInt("SOLVER_THREAD_COUNT"),
		RepairBudget:    v.GetInt("SOLVER_REPAIR_BUDGET"),
		LogFrequency:    v.GetInt("SOLVER_LOG_FREQUENCY"),
		QueueWorkers:    v.GetInt("SOLVER_QUEUE_WORKERS"),
		ResultCacheTTL:  parseDuration(v.GetString("SOLVER_RESULT_CACHE_TTL"), 15*time.Minute),
	}

	cfg.Exports = ExportsConfig{
		Enabled:    v.GetBool("ENABLE_EXPORTS"),
		SchoolName: v.GetString("EXPORTS_SCHOOL_NAME"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SOLVER_POPULATION_SIZE", 100)
	v.SetDefault("SOLVER_MAX_GENERATIONS", 1000)
	v.SetDefault("SOLVER_MUTATION_RATE", 0.1)
	v.SetDefault("SOLVER_CROSSOVER_RATE", 0.8)
	v.SetDefault("SOLVER_ELITE_SIZE", 5)
	v.SetDefault("SOLVER_TOURNAMENT_SIZE", 5)
	v.SetDefault("SOLVER_MAX_RUNTIME", "5m")
	v.SetDefault("SOLVER_STAGNATION_LIMIT", 100)
	v.SetDefault("SOLVER_THREAD_COUNT", 4)
	v.SetDefault("SOLVER_REPAIR_BUDGET", 8)
	v.SetDefault("SOLVER_LOG_FREQUENCY", 10)
	v.SetDefault("SOLVER_QUEUE_WORKERS", 1)
	v.SetDefault("SOLVER_RESULT_CACHE_TTL", "15m")

	v.SetDefault("ENABLE_EXPORTS", true)
	v.SetDefault("EXPORTS_SCHOOL_NAME", "Harborview School District")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
