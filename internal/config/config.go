package config

import "time"

// Config 服务完整配置
type Config struct {
	App         AppConfig         `mapstructure:"app" validate:"required"`
	Server      ServerConfig      `mapstructure:"server" validate:"required"`
	Log         LogConfig         `mapstructure:"log" validate:"required"`
	Classifier  ClassifierConfig  `mapstructure:"classifier" validate:"required"`
	LLM         LLMConfig         `mapstructure:"llm" validate:"required"`
	Knowledge   KnowledgeConfig   `mapstructure:"knowledge" validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Audit       AuditConfig       `mapstructure:"audit"`
	Concurrency ConcurrencyConfig `mapstructure:"concurrency"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `mapstructure:"name" validate:"required"`
	Version string `mapstructure:"version" validate:"required"`
	Env     string `mapstructure:"env" validate:"required,oneof=development staging production"`
}

// ServerConfig HTTP服务配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port" validate:"required,gt=0,lte=65535"`

	// AllowedOrigins 为空时不限制跨域来源
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json console"`
}

// ClassifierConfig 意图分类配置
type ClassifierConfig struct {
	Policy           PolicyConfig   `mapstructure:"policy" validate:"required"`
	KeywordRulesFile string         `mapstructure:"keyword_rules_file"`
	ModelSource      string         `mapstructure:"model_source"`
	Semantic         SemanticConfig `mapstructure:"semantic" validate:"required"`
}

// PolicyConfig 融合阈值
type PolicyConfig struct {
	AmbiguityThreshold   float64 `mapstructure:"ambiguity_threshold" validate:"gte=0,lte=1"`
	MultiIntentThreshold float64 `mapstructure:"multi_intent_threshold" validate:"gte=0,lte=1"`
	TrustThreshold       float64 `mapstructure:"trust_threshold" validate:"gte=0,lte=1"`
}

// SemanticConfig 语义仲裁配置
type SemanticConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"gt=0"`
	DefaultConfidence float64       `mapstructure:"default_confidence" validate:"gt=0,lte=1"`
	BreakerThreshold  int           `mapstructure:"breaker_threshold" validate:"gte=0"`
	BreakerCooldown   time.Duration `mapstructure:"breaker_cooldown"`
}

// LLMConfig 生成模型配置，语义仲裁和兜底回复共用
type LLMConfig struct {
	Provider        string        `mapstructure:"provider" validate:"required,oneof=openai anthropic none"`
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	Model           string        `mapstructure:"model"`
	MaxTokens       int           `mapstructure:"max_tokens" validate:"gte=0"`
	FallbackTimeout time.Duration `mapstructure:"fallback_timeout"`
}

// KnowledgeConfig 检索配置
type KnowledgeConfig struct {
	Enabled     bool              `mapstructure:"enabled"`
	Embedding   EmbeddingConfig   `mapstructure:"embedding"`
	VectorStore VectorStoreConfig `mapstructure:"vector_store"`
	ChunkStore  ChunkStoreConfig  `mapstructure:"chunk_store"`
	Retrieval   RetrievalConfig   `mapstructure:"retrieval"`
}

// EmbeddingConfig 查询嵌入配置，必须与建库时的模型一致
type EmbeddingConfig struct {
	Provider   string        `mapstructure:"provider" validate:"oneof=openai none"`
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Model      string        `mapstructure:"model"`
	Dimensions int           `mapstructure:"dimensions" validate:"gte=0"`
	CacheSize  int           `mapstructure:"cache_size" validate:"gte=0"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
}

// VectorStoreConfig 向量索引配置
type VectorStoreConfig struct {
	Provider      string              `mapstructure:"provider" validate:"oneof=memory milvus elasticsearch"`
	SnapshotPath  string              `mapstructure:"snapshot_path"`
	Milvus        MilvusConfig        `mapstructure:"milvus"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

// MilvusConfig Milvus连接配置
type MilvusConfig struct {
	Address    string `mapstructure:"address"`
	DBName     string `mapstructure:"db_name"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	Collection string `mapstructure:"collection"`
	Metric     string `mapstructure:"metric" validate:"omitempty,oneof=COSINE IP L2"`
	EnableTLS  bool   `mapstructure:"enable_tls"`
}

// ElasticsearchConfig Elasticsearch连接配置
type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	APIKey    string   `mapstructure:"api_key"`
	Index     string   `mapstructure:"index"`
	Field     string   `mapstructure:"field"`
}

// ChunkStoreConfig 分块内容存储配置
type ChunkStoreConfig struct {
	Provider  string `mapstructure:"provider" validate:"oneof=memory redis"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// RetrievalConfig 检索默认参数
type RetrievalConfig struct {
	TopK                int     `mapstructure:"top_k" validate:"gte=1"`
	MinScore            float64 `mapstructure:"min_score" validate:"gte=0,lte=1"`
	CandidateMultiplier int     `mapstructure:"candidate_multiplier" validate:"gte=1"`
	MaxPassageChars     int     `mapstructure:"max_passage_chars" validate:"gte=0"`
}

// DatabaseConfig 校园目录数据库配置
type DatabaseConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	URL          string `mapstructure:"url"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StorageConfig MinIO对象存储配置，用于拉取分类模型
type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// AuditConfig 分类审计事件配置
type AuditConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// ConcurrencyConfig 并发配置，0 表示按 GOMAXPROCS
type ConcurrencyConfig struct {
	MaxInFlight int `mapstructure:"max_in_flight" validate:"gte=0"`
}
