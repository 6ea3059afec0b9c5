// Package config reads pipeline settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joelkehle/esg-scorecard/internal/extract"
	"github.com/joelkehle/esg-scorecard/internal/ingest"
	"github.com/joelkehle/esg-scorecard/internal/retrieve"
	"github.com/joelkehle/esg-scorecard/internal/scorecard"
	"github.com/joho/godotenv"
)

const DefaultPacketLimit = 25

type Config struct {
	DBPath        string
	RawDir        string
	TopicsPath    string
	SignalsDir    string
	ScorecardCSV  string
	ScorecardXLSX string

	LLMProvider    string
	LLMModel       string
	OllamaURL      string
	LLMTemperature float64
	LLMTimeout     time.Duration
	AnthropicKey   string
	OpenAIKey      string

	TopChunks    int
	ChunkCharCap int
	PacketLimit  int
	ChunkSize    int
	ChunkOverlap int
	MinPageChars int

	PDFPaper       string
	PDFOrientation string
	PDFTimeout     time.Duration

	OTLPEndpoint string
	HTTPAddr     string
}

// Load reads .env files (missing files are ignored) and then the process
// environment. Malformed numbers fall back to their defaults.
func Load(envFiles ...string) Config {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("config env_file_ignored path=%s err=%q", f, err.Error())
		}
	}

	return Config{
		DBPath:        getEnv("ESG_DB_PATH", "data/processed/esg.db"),
		RawDir:        getEnv("ESG_RAW_DIR", "data/raw"),
		TopicsPath:    getEnv("ESG_TOPICS_PATH", "configs/esg_topics.yaml"),
		SignalsDir:    getEnv("ESG_SIGNALS_DIR", "outputs/signals"),
		ScorecardCSV:  getEnv("ESG_SCORECARD_CSV", "outputs/scorecards/esg_scorecard.csv"),
		ScorecardXLSX: getEnv("ESG_SCORECARD_XLSX", ""),

		LLMProvider:    strings.ToLower(getEnv("ESG_LLM_PROVIDER", extract.ProviderOllama)),
		LLMModel:       getEnv("ESG_LLM_MODEL", extract.DefaultModel),
		OllamaURL:      getEnv("OLLAMA_URL", extract.DefaultOllamaURL),
		LLMTemperature: getEnvFloat("ESG_LLM_TEMPERATURE", extract.DefaultTemperature),
		LLMTimeout:     time.Duration(getEnvInt("ESG_LLM_TIMEOUT_SEC", int(extract.DefaultTimeout/time.Second))) * time.Second,
		AnthropicKey:   getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIKey:      getEnv("OPENAI_API_KEY", ""),

		TopChunks:    getEnvInt("ESG_TOP_CHUNKS", extract.DefaultTopChunks),
		ChunkCharCap: getEnvInt("ESG_CHUNK_CHAR_CAP", extract.DefaultChunkCharCap),
		PacketLimit:  getEnvInt("ESG_PACKET_LIMIT", DefaultPacketLimit),
		ChunkSize:    getEnvInt("ESG_CHUNK_SIZE", ingest.DefaultChunkSize),
		ChunkOverlap: getEnvInt("ESG_CHUNK_OVERLAP", ingest.DefaultChunkOverlap),
		MinPageChars: getEnvInt("ESG_MIN_PAGE_CHARS", ingest.DefaultMinPageChars),

		PDFPaper:       strings.ToLower(getEnv("ESG_PDF_PAPER", scorecard.DefaultPDFPaper)),
		PDFOrientation: strings.ToLower(getEnv("ESG_PDF_ORIENTATION", "landscape")),
		PDFTimeout:     time.Duration(getEnvInt("ESG_PDF_TIMEOUT_SEC", int(scorecard.DefaultPDFTimeout/time.Second))) * time.Second,

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		HTTPAddr:     getEnv("ESG_HTTP_ADDR", ":8090"),
	}
}

func (c Config) Validate() error {
	var errs []error
	positive := []struct {
		name string
		v    int
	}{
		{"ESG_TOP_CHUNKS", c.TopChunks},
		{"ESG_CHUNK_CHAR_CAP", c.ChunkCharCap},
		{"ESG_PACKET_LIMIT", c.PacketLimit},
		{"ESG_CHUNK_SIZE", c.ChunkSize},
		{"ESG_LLM_TIMEOUT_SEC", int(c.LLMTimeout / time.Second)},
		{"ESG_PDF_TIMEOUT_SEC", int(c.PDFTimeout / time.Second)},
	}
	for _, p := range positive {
		if p.v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", p.name, p.v))
		}
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		errs = append(errs, fmt.Errorf("ESG_CHUNK_OVERLAP must be in [0, ESG_CHUNK_SIZE), got %d", c.ChunkOverlap))
	}
	switch c.LLMProvider {
	case extract.ProviderOllama, extract.ProviderAnthropic, extract.ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("unknown ESG_LLM_PROVIDER %q", c.LLMProvider))
	}
	if _, ok := scorecard.PaperSizes[c.PDFPaper]; !ok {
		errs = append(errs, fmt.Errorf("unknown ESG_PDF_PAPER %q", c.PDFPaper))
	}
	if c.PDFOrientation != "landscape" && c.PDFOrientation != "portrait" {
		errs = append(errs, fmt.Errorf("ESG_PDF_ORIENTATION must be landscape or portrait, got %q", c.PDFOrientation))
	}
	return errors.Join(errs...)
}

// ModelConfig selects the completion service for extraction.
func (c Config) ModelConfig() extract.ModelConfig {
	mc := extract.ModelConfig{
		Provider:    c.LLMProvider,
		Model:       c.LLMModel,
		Temperature: c.LLMTemperature,
		Timeout:     c.LLMTimeout,
	}
	switch c.LLMProvider {
	case extract.ProviderOllama:
		mc.BaseURL = c.OllamaURL
	case extract.ProviderAnthropic:
		mc.APIKey = c.AnthropicKey
	case extract.ProviderOpenAI:
		mc.APIKey = c.OpenAIKey
	}
	return mc
}

// PDFOptions lays out rendered reports. CHROME_PATH is resolved by the
// renderer.
func (c Config) PDFOptions() scorecard.PDFOptions {
	return scorecard.PDFOptions{
		Paper:    c.PDFPaper,
		Portrait: c.PDFOrientation == "portrait",
		Timeout:  c.PDFTimeout,
	}
}

func (c Config) RunConfig() extract.RunConfig {
	return extract.RunConfig{
		Keywords:     retrieve.ESGKeywords,
		TopChunks:    c.TopChunks,
		ChunkCharCap: c.ChunkCharCap,
		Provider:     c.LLMProvider,
	}
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config invalid_int key=%s value=%q default=%d", key, v, def)
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("config invalid_float key=%s value=%q default=%v", key, v, def)
		return def
	}
	return f
}
