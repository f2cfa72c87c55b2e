package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr  string   `env:"LISTEN_ADDR"  envDefault:":8080"`
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"https://videosplicesite.onrender.com" envSeparator:","`

	UploadDir string `env:"UPLOAD_DIR" envDefault:"data/uploads"`
	RunsDir   string `env:"RUNS_DIR"   envDefault:"data/runs"`
	OutputDir string `env:"OUTPUT_DIR" envDefault:"data/outputs"`

	SampleRateHz   float64 `env:"SAMPLE_RATE_HZ"   envDefault:"0.5"`
	MaxClipSeconds float64 `env:"MAX_CLIP_SECONDS" envDefault:"120"`
	FrameFormat    string  `env:"FRAME_FORMAT"     envDefault:"jpg"`
	BatchSize      int     `env:"BATCH_SIZE"       envDefault:"3"`

	MaxUploadSizeMB      int64 `env:"MAX_UPLOAD_SIZE_MB"      envDefault:"50"`
	MemoryHardLimitMB    int64 `env:"MEMORY_HARD_LIMIT_MB"    envDefault:"450"`
	MemorySafetyBufferMB int64 `env:"MEMORY_SAFETY_BUFFER_MB" envDefault:"62"`

	LabelEndpoint     string        `env:"LABEL_ENDPOINT"`
	LabelToken        string        `env:"LABEL_TOKEN"`
	LabelModel        string        `env:"LABEL_MODEL"          envDefault:"openai/clip-vit-base-patch32"`
	LabelTimeout      time.Duration `env:"LABEL_TIMEOUT"        envDefault:"20s"`
	LabelMaxImageEdge int           `env:"LABEL_MAX_IMAGE_EDGE" envDefault:"224"`
	LabelMaxFailures  int           `env:"LABEL_MAX_FAILURES"   envDefault:"5"`

	SegmentSeconds float64 `env:"REPRESENTATIVE_SEGMENT_SECONDS" envDefault:"30"`

	WorkerCount   int    `env:"WORKER_COUNT"      envDefault:"1"`
	QueueCapacity int    `env:"QUEUE_CAPACITY"    envDefault:"32"`
	RetentionMins int    `env:"RETENTION_MINUTES" envDefault:"60"`
	JanitorCron   string `env:"JANITOR_CRON"      envDefault:"@every 10m"`

	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort int    `env:"SMTP_PORT" envDefault:"25"`
	SMTPFrom string `env:"SMTP_FROM" envDefault:"noreply@videosplice.local"`
	SMTPTo   string `env:"SMTP_TO"`

	MetricsPort  int    `env:"METRICS_PORT"  envDefault:"9091"`
	OTLPEndpoint string `env:"OTLP_ENDPOINT"`
	Environment  string `env:"ENVIRONMENT"   envDefault:"production"`
	LogLevel     string `env:"LOG_LEVEL"     envDefault:"info"`
}

func Load() (*Config, error) {
	// Optional .env, same convention as the original deployment.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate runs once at process start; the pipeline trusts these values
// afterwards.
func (c *Config) Validate() error {
	if c.SampleRateHz <= 0 {
		return fmt.Errorf("SAMPLE_RATE_HZ must be positive, got %v", c.SampleRateHz)
	}
	if c.MaxClipSeconds <= 0 {
		return fmt.Errorf("MAX_CLIP_SECONDS must be positive, got %v", c.MaxClipSeconds)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	if c.MaxUploadSizeMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE_MB must be positive, got %d", c.MaxUploadSizeMB)
	}
	if c.MemoryHardLimitMB <= 0 {
		return fmt.Errorf("MEMORY_HARD_LIMIT_MB must be positive, got %d", c.MemoryHardLimitMB)
	}
	if c.MemorySafetyBufferMB < 0 {
		return fmt.Errorf("MEMORY_SAFETY_BUFFER_MB must not be negative, got %d", c.MemorySafetyBufferMB)
	}
	if c.MemorySafetyBufferMB >= c.MemoryHardLimitMB {
		return fmt.Errorf("MEMORY_SAFETY_BUFFER_MB (%d) must be below MEMORY_HARD_LIMIT_MB (%d)",
			c.MemorySafetyBufferMB, c.MemoryHardLimitMB)
	}
	if c.SegmentSeconds <= 0 {
		return fmt.Errorf("REPRESENTATIVE_SEGMENT_SECONDS must be positive, got %v", c.SegmentSeconds)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("WORKER_COUNT must be positive, got %d", c.WorkerCount)
	}
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("QUEUE_CAPACITY must be positive, got %d", c.QueueCapacity)
	}
	return nil
}

func (c *Config) MaxUploadSizeBytes() int64 {
	return c.MaxUploadSizeMB * 1024 * 1024
}

func (c *Config) MemoryHardLimitBytes() uint64 {
	return uint64(c.MemoryHardLimitMB) * 1024 * 1024
}

func (c *Config) MemorySafetyBufferBytes() uint64 {
	return uint64(c.MemorySafetyBufferMB) * 1024 * 1024
}
