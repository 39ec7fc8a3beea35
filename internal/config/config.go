package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all Skimmer configuration.
type Config struct {
	Data     DataConfig
	Features FeaturesConfig
	Train    TrainConfig
	Model    ModelConfig
	Encoder  EncoderConfig
	Source   SourceConfig
	Output   OutputConfig
	Server   ServerConfig
	Log      LogConfig
}

// DataConfig controls corpus location and batching.
type DataConfig struct {
	Dir       string
	BatchSize int
	Prefetch  int
	Shuffle   bool
	Seed      int64
}

// FeaturesConfig controls feature derivation.
type FeaturesConfig struct {
	LineNumberDepth int
	TotalLinesDepth int
	PositionPolicy  string // "reject", "clip", "zero"
	MaxTokens       int
}

// TrainConfig controls the training loop and its callbacks.
type TrainConfig struct {
	Epochs          int
	LearningRate    float64
	Variant         string
	CheckpointPath  string
	PlateauFactor   float64
	PlateauPatience int
	PlateauMinDelta float64
	MinLearningRate float64
}

// ModelConfig locates trained artifacts.
type ModelConfig struct {
	Dir      string // explicit artifact dir; empty picks the latest under Root
	Root     string
	S3Bucket string
	S3Prefix string
	S3Region string
}

// EncoderConfig locates the frozen sentence encoder.
type EncoderConfig struct {
	ModelPath      string
	VocabPath      string
	ProjectionPath string
	LibraryPath    string
	MaxSeqLen      int
}

// SourceConfig selects where batch classification reads abstracts from.
type SourceConfig struct {
	Provider string // "file", "pubmed"
	Path     string
	Endpoint string
	APIKey   string
	IDs      []string
}

// OutputConfig holds output destination settings.
type OutputConfig struct {
	Format      string // "stdout" or "file"
	Verbosity   string // "minimal" or "full"
	Pretty      bool
	FilePath    string // may contain {source}
	FileMaxSize int64
	FileBackups int
	WebhookURL  string // optional, in addition to Format
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr        string
	Release     bool
	ReadTimeout time.Duration
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string
}

var (
	validPolicies  = map[string]bool{"reject": true, "clip": true, "zero": true}
	validVariants  = map[string]bool{"tribrid": true, "tribranch": true, "token": true, "token_only": true, "token_char": true, "token_and_chars": true}
	validProviders = map[string]bool{"file": true, "pubmed": true}
	validVerbosity = map[string]bool{"minimal": true, "full": true}
	validLevels    = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
)

// Load reads configuration from environment variables with sensible
// defaults. A .env file in the working directory is loaded first when
// present; variables already set in the environment win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Data: DataConfig{
			Dir:       getenv("SKIMMER_DATA_DIR", "pubmed-rct/PubMed_20k_RCT_numbers_replaced_with_at_sign"),
			BatchSize: getenvInt("SKIMMER_BATCH_SIZE", 32),
			Prefetch:  getenvInt("SKIMMER_PREFETCH", 2),
			Shuffle:   getenvBool("SKIMMER_SHUFFLE", false),
			Seed:      int64(getenvInt("SKIMMER_SEED", 42)),
		},
		Features: FeaturesConfig{
			LineNumberDepth: getenvInt("SKIMMER_LINE_NUMBER_DEPTH", 15),
			TotalLinesDepth: getenvInt("SKIMMER_TOTAL_LINES_DEPTH", 20),
			PositionPolicy:  getenv("SKIMMER_POSITION_POLICY", "clip"),
			MaxTokens:       getenvInt("SKIMMER_MAX_TOKENS", 68000),
		},
		Train: TrainConfig{
			Epochs:          getenvInt("SKIMMER_EPOCHS", 50),
			LearningRate:    getenvFloat("SKIMMER_LEARNING_RATE", 1e-3),
			Variant:         getenv("SKIMMER_VARIANT", "tribrid"),
			CheckpointPath:  getenv("SKIMMER_CHECKPOINT_PATH", "checkpoints/checkpoints.db"),
			PlateauFactor:   getenvFloat("SKIMMER_PLATEAU_FACTOR", 0.1),
			PlateauPatience: getenvInt("SKIMMER_PLATEAU_PATIENCE", 3),
			PlateauMinDelta: getenvFloat("SKIMMER_PLATEAU_MIN_DELTA", 1e-4),
			MinLearningRate: getenvFloat("SKIMMER_MIN_LEARNING_RATE", 1e-5),
		},
		Model: ModelConfig{
			Dir:      os.Getenv("SKIMMER_MODEL_DIR"),
			Root:     getenv("SKIMMER_MODELS_ROOT", "models"),
			S3Bucket: os.Getenv("SKIMMER_S3_BUCKET"),
			S3Prefix: os.Getenv("SKIMMER_S3_PREFIX"),
			S3Region: getenv("SKIMMER_S3_REGION", "us-east-1"),
		},
		Encoder: EncoderConfig{
			ModelPath:      os.Getenv("SKIMMER_ENCODER_MODEL"),
			VocabPath:      os.Getenv("SKIMMER_ENCODER_VOCAB"),
			ProjectionPath: os.Getenv("SKIMMER_ENCODER_PROJECTION"),
			LibraryPath:    os.Getenv("SKIMMER_ONNX_LIBRARY"),
			MaxSeqLen:      getenvInt("SKIMMER_ENCODER_MAX_SEQ_LEN", 128),
		},
		Source: SourceConfig{
			Provider: getenv("SKIMMER_SOURCE", "file"),
			Path:     os.Getenv("SKIMMER_SOURCE_PATH"),
			Endpoint: os.Getenv("SKIMMER_PUBMED_ENDPOINT"),
			APIKey:   os.Getenv("SKIMMER_PUBMED_API_KEY"),
			IDs:      SplitList(os.Getenv("SKIMMER_PUBMED_IDS")),
		},
		Output: OutputConfig{
			Format:      getenv("SKIMMER_OUTPUT", "stdout"),
			Verbosity:   getenv("SKIMMER_VERBOSITY", "minimal"),
			Pretty:      getenvBool("SKIMMER_OUTPUT_PRETTY", false),
			FilePath:    os.Getenv("SKIMMER_OUTPUT_FILE"),
			FileMaxSize: int64(getenvInt("SKIMMER_OUTPUT_FILE_MAX_SIZE", 0)),
			FileBackups: getenvInt("SKIMMER_OUTPUT_FILE_BACKUPS", 5),
			WebhookURL:  os.Getenv("SKIMMER_WEBHOOK_URL"),
		},
		Server: ServerConfig{
			Addr:        getenv("SKIMMER_ADDR", ":8080"),
			Release:     getenvBool("SKIMMER_RELEASE", true),
			ReadTimeout: getenvDuration("SKIMMER_READ_TIMEOUT", 30*time.Second),
		},
		Log: LogConfig{
			Level: getenv("SKIMMER_LOG_LEVEL", "info"),
		},
	}
}

// Validate checks the configuration for errors. It returns all problems
// joined together.
func (c Config) Validate() error {
	var errs []error

	if c.Data.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("batch size must be >= 1, got %d", c.Data.BatchSize))
	}
	if c.Data.Prefetch < 0 {
		errs = append(errs, fmt.Errorf("prefetch must be >= 0, got %d", c.Data.Prefetch))
	}
	if c.Features.LineNumberDepth < 1 || c.Features.TotalLinesDepth < 1 {
		errs = append(errs, fmt.Errorf("positional depths must be >= 1, got %d/%d",
			c.Features.LineNumberDepth, c.Features.TotalLinesDepth))
	}
	if !validPolicies[strings.ToLower(c.Features.PositionPolicy)] {
		errs = append(errs, fmt.Errorf("position policy must be reject, clip, or zero, got %q", c.Features.PositionPolicy))
	}
	if c.Train.Epochs < 1 {
		errs = append(errs, fmt.Errorf("epochs must be >= 1, got %d", c.Train.Epochs))
	}
	if c.Train.LearningRate <= 0 {
		errs = append(errs, fmt.Errorf("learning rate must be > 0, got %g", c.Train.LearningRate))
	}
	if c.Train.PlateauFactor <= 0 || c.Train.PlateauFactor >= 1 {
		errs = append(errs, fmt.Errorf("plateau factor must be in (0, 1), got %g", c.Train.PlateauFactor))
	}
	if !validVariants[strings.ToLower(c.Train.Variant)] {
		errs = append(errs, fmt.Errorf("unknown model variant %q", c.Train.Variant))
	}
	if c.Encoder.ModelPath != "" {
		if _, err := os.Stat(c.Encoder.ModelPath); err != nil {
			errs = append(errs, fmt.Errorf("encoder model not found: %s", c.Encoder.ModelPath))
		}
		if c.Encoder.VocabPath == "" {
			errs = append(errs, errors.New("encoder vocab path is required with an encoder model"))
		}
	}
	if !validProviders[c.Source.Provider] {
		errs = append(errs, fmt.Errorf("unknown source %q", c.Source.Provider))
	}
	switch c.Output.Format {
	case "stdout":
	case "file":
		if c.Output.FilePath == "" {
			errs = append(errs, errors.New("output file path is required for file output"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown output %q", c.Output.Format))
	}
	if !validVerbosity[strings.ToLower(c.Output.Verbosity)] {
		errs = append(errs, fmt.Errorf("verbosity must be minimal or full, got %q", c.Output.Verbosity))
	}
	if c.Output.FileMaxSize < 0 {
		errs = append(errs, fmt.Errorf("output file max size must be >= 0, got %d", c.Output.FileMaxSize))
	}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Errorf("log level must be debug, info, warn, or error, got %q", c.Log.Level))
	}

	return errors.Join(errs...)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// getenvBool accepts the strconv forms plus "yes"/"no".
func getenvBool(key string, fallback bool) bool {
	v := strings.ToLower(os.Getenv(key))
	switch v {
	case "":
		return fallback
	case "yes", "y":
		return true
	case "no", "n":
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// SplitList splits a comma-separated list, dropping empty entries.
func SplitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
