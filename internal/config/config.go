package config

import (
	"os"
	"strconv"
	"strings"

	"pdf-page-server/internal/domain"

	"github.com/docker/go-units"
)

const (
	defaultMaxFileSize     int64 = 50 * 1024 * 1024
	defaultReaderProcesses       = "sumatrapdf,acrobat,acrord32,evince,okular,zathura"
)

// Page sizes in points (1/72 inch), portrait.
var pageSizes = map[string]domain.PageSize{
	"a3":     {Name: "A3", Width: 841.89, Height: 1190.55},
	"a4":     {Name: "A4", Width: 595.28, Height: 841.89},
	"a5":     {Name: "A5", Width: 420.94, Height: 595.28},
	"letter": {Name: "Letter", Width: 612, Height: 792},
	"legal":  {Name: "Legal", Width: 612, Height: 1008},
}

// AppConfig implements the domain.Config interface
type AppConfig struct {
	ServerPort      string
	UploadPath      string
	MaxFileSize     int64
	LogLevel        string
	MetadataBackend string
	RedisURL        string
	SupabaseURL     string
	SupabaseKey     string
	SupabaseTable   string
	PageSize        domain.PageSize
	BackupSuffix    string
	KeepBackup      bool
	ReaderProcesses []string
	APIKey          string
	AllowedOrigins  []string
}

// NewConfig creates a new configuration instance with default values
func NewConfig() domain.Config {
	pageSize, ok := ParsePageSize(getEnvOrDefault("PAGE_SIZE", "A4"))
	if !ok {
		pageSize = pageSizes["a4"]
	}

	return &AppConfig{
		// PORT is what most PaaS hosts inject; SERVER_PORT is kept for local runs.
		ServerPort:      getEnvOrDefault("PORT", getEnvOrDefault("SERVER_PORT", "8080")),
		UploadPath:      getEnvOrDefault("UPLOAD_PATH", "./uploads"),
		MaxFileSize:     getEnvSizeOrDefault("MAX_FILE_SIZE", defaultMaxFileSize),
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "info"),
		MetadataBackend: strings.ToLower(getEnvOrDefault("METADATA_BACKEND", "redis")),
		RedisURL:        getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		SupabaseURL:     getEnvOrDefault("SUPABASE_URL", ""),
		SupabaseKey:     getEnvOrDefault("SUPABASE_ANON_KEY", ""),
		SupabaseTable:   getEnvOrDefault("SUPABASE_TABLE", "documents"),
		PageSize:        pageSize,
		BackupSuffix:    getEnvOrDefault("BACKUP_SUFFIX", ".backup"),
		KeepBackup:      getEnvBoolOrDefault("KEEP_BACKUP", false),
		ReaderProcesses: getEnvListOrDefault("READER_PROCESSES", defaultReaderProcesses),
		APIKey:          getEnvOrDefault("API_KEY", ""),
		AllowedOrigins:  getEnvListOrDefault("CORS_ALLOWED_ORIGINS", "*"),
	}
}

// ParsePageSize looks up a named page size, case-insensitively.
func ParsePageSize(name string) (domain.PageSize, bool) {
	size, ok := pageSizes[strings.ToLower(strings.TrimSpace(name))]
	return size, ok
}

// GetServerPort returns the server port
func (c *AppConfig) GetServerPort() string {
	return c.ServerPort
}

// GetUploadPath returns the directory holding document bytes
func (c *AppConfig) GetUploadPath() string {
	return c.UploadPath
}

// GetMaxFileSize returns the maximum allowed upload size in bytes
func (c *AppConfig) GetMaxFileSize() int64 {
	return c.MaxFileSize
}

// GetLogLevel returns the logging level
func (c *AppConfig) GetLogLevel() string {
	return c.LogLevel
}

// GetMetadataBackend returns redis, supabase or memory
func (c *AppConfig) GetMetadataBackend() string {
	return c.MetadataBackend
}

// GetRedisURL returns the redis connection URL
func (c *AppConfig) GetRedisURL() string {
	return c.RedisURL
}

// GetSupabaseURL returns the Supabase URL
func (c *AppConfig) GetSupabaseURL() string {
	return c.SupabaseURL
}

// GetSupabaseKey returns the Supabase anon key
func (c *AppConfig) GetSupabaseKey() string {
	return c.SupabaseKey
}

// GetSupabaseTable returns the table holding document metadata
func (c *AppConfig) GetSupabaseTable() string {
	return c.SupabaseTable
}

// GetPageSize returns the canvas used for new pages
func (c *AppConfig) GetPageSize() domain.PageSize {
	return c.PageSize
}

// GetBackupSuffix returns the suffix appended to the target path for backups
func (c *AppConfig) GetBackupSuffix() string {
	return c.BackupSuffix
}

// GetKeepBackup reports whether backups survive a successful replace
func (c *AppConfig) GetKeepBackup() bool {
	return c.KeepBackup
}

// GetReaderProcesses returns the process names inspected for open documents
func (c *AppConfig) GetReaderProcesses() []string {
	return c.ReaderProcesses
}

// GetAPIKey returns the bearer key protecting the API, empty when disabled
func (c *AppConfig) GetAPIKey() string {
	return c.APIKey
}

// GetAllowedOrigins returns the CORS origins
func (c *AppConfig) GetAllowedOrigins() []string {
	return c.AllowedOrigins
}

// Helper functions for environment variable handling
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvSizeOrDefault accepts plain byte counts or human sizes such as "50MB".
func getEnvSizeOrDefault(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil && n > 0 {
		return n
	}
	if n, err := units.RAMInBytes(value); err == nil && n > 0 {
		return n
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvListOrDefault(key, defaultValue string) []string {
	raw := getEnvOrDefault(key, defaultValue)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
