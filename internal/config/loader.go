package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 CAMPUS_CLASSIFIER_POLICY_TRUST_THRESHOLD
const EnvPrefix = "CAMPUS"

// ConfigLoader 配置加载器
type ConfigLoader struct {
	viper     *viper.Viper
	validator *validator.Validate
	file      string
}

// NewConfigLoader 创建配置加载器
func NewConfigLoader() *ConfigLoader {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &ConfigLoader{
		viper:     v,
		validator: validator.New(),
	}
}

// WithFile 指定配置文件，优先级高于 CONFIG_FILE
func (cl *ConfigLoader) WithFile(path string) *ConfigLoader {
	cl.file = path
	return cl
}

// Load 从默认值、配置文件和环境变量加载配置
func (cl *ConfigLoader) Load() (*Config, error) {
	cl.setDefaults()
	cl.loadFromEnv()

	configFile := cl.file
	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
	}
	if configFile != "" {
		cl.viper.SetConfigFile(configFile)
		if err := cl.viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := cl.viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cl.validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// validateConfig 结构体校验加跨字段校验
func (cl *ConfigLoader) validateConfig(cfg *Config) error {
	if err := cl.validator.Struct(cfg); err != nil {
		return err
	}

	if cfg.Classifier.Semantic.Enabled && cfg.LLM.Provider == "none" {
		return fmt.Errorf("classifier.semantic.enabled requires llm.provider")
	}
	if strings.HasPrefix(cfg.Classifier.ModelSource, "minio://") && cfg.Storage.Endpoint == "" {
		return fmt.Errorf("classifier.model_source %q requires storage.endpoint", cfg.Classifier.ModelSource)
	}
	if cfg.Database.Enabled && cfg.Database.URL == "" {
		return fmt.Errorf("database.url is required when database is enabled")
	}
	if cfg.Audit.Enabled && len(cfg.Audit.Brokers) == 0 {
		return fmt.Errorf("audit.brokers is required when audit is enabled")
	}

	if !cfg.Knowledge.Enabled {
		return nil
	}
	k := cfg.Knowledge
	if k.Embedding.Provider == "none" {
		return fmt.Errorf("knowledge.embedding.provider is required when knowledge is enabled")
	}
	switch k.VectorStore.Provider {
	case "memory":
		if k.VectorStore.SnapshotPath == "" {
			return fmt.Errorf("knowledge.vector_store.snapshot_path is required for the memory index")
		}
	case "milvus":
		if k.VectorStore.Milvus.Address == "" || k.VectorStore.Milvus.Collection == "" {
			return fmt.Errorf("knowledge.vector_store.milvus.address and collection are required")
		}
	case "elasticsearch":
		if len(k.VectorStore.Elasticsearch.Addresses) == 0 || k.VectorStore.Elasticsearch.Index == "" {
			return fmt.Errorf("knowledge.vector_store.elasticsearch.addresses and index are required")
		}
	}
	if k.ChunkStore.Provider == "memory" && k.VectorStore.SnapshotPath == "" {
		return fmt.Errorf("memory chunk store needs knowledge.vector_store.snapshot_path")
	}
	if k.ChunkStore.Provider == "redis" && cfg.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required for the redis chunk store")
	}
	return nil
}

// setDefaults 设置默认值
func (cl *ConfigLoader) setDefaults() {
	v := cl.viper

	// 应用配置
	v.SetDefault("app.name", "campus-companion")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.env", "development")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// 分类阈值
	v.SetDefault("classifier.policy.ambiguity_threshold", 0.7)
	v.SetDefault("classifier.policy.multi_intent_threshold", 0.25)
	v.SetDefault("classifier.policy.trust_threshold", 0.6)
	v.SetDefault("classifier.keyword_rules_file", "")
	v.SetDefault("classifier.model_source", "")
	v.SetDefault("classifier.semantic.enabled", false)
	v.SetDefault("classifier.semantic.timeout", "3s")
	v.SetDefault("classifier.semantic.default_confidence", 0.9)
	v.SetDefault("classifier.semantic.breaker_threshold", 5)
	v.SetDefault("classifier.semantic.breaker_cooldown", "30s")

	v.SetDefault("llm.provider", "none")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.max_tokens", 256)
	v.SetDefault("llm.fallback_timeout", "5s")

	// 检索配置
	v.SetDefault("knowledge.enabled", false)
	v.SetDefault("knowledge.embedding.provider", "none")
	v.SetDefault("knowledge.embedding.api_key", "")
	v.SetDefault("knowledge.embedding.base_url", "")
	v.SetDefault("knowledge.embedding.model", "all-MiniLM-L6-v2")
	v.SetDefault("knowledge.embedding.dimensions", 384)
	v.SetDefault("knowledge.embedding.cache_size", 1024)
	v.SetDefault("knowledge.embedding.cache_ttl", "10m")
	v.SetDefault("knowledge.vector_store.provider", "memory")
	v.SetDefault("knowledge.vector_store.snapshot_path", "")
	v.SetDefault("knowledge.vector_store.milvus.address", "")
	v.SetDefault("knowledge.vector_store.milvus.db_name", "")
	v.SetDefault("knowledge.vector_store.milvus.username", "")
	v.SetDefault("knowledge.vector_store.milvus.password", "")
	v.SetDefault("knowledge.vector_store.milvus.collection", "campus_chunks")
	v.SetDefault("knowledge.vector_store.milvus.metric", "COSINE")
	v.SetDefault("knowledge.vector_store.milvus.enable_tls", false)
	v.SetDefault("knowledge.vector_store.elasticsearch.addresses", []string{})
	v.SetDefault("knowledge.vector_store.elasticsearch.username", "")
	v.SetDefault("knowledge.vector_store.elasticsearch.password", "")
	v.SetDefault("knowledge.vector_store.elasticsearch.api_key", "")
	v.SetDefault("knowledge.vector_store.elasticsearch.index", "campus_chunks")
	v.SetDefault("knowledge.vector_store.elasticsearch.field", "embedding")
	v.SetDefault("knowledge.chunk_store.provider", "memory")
	v.SetDefault("knowledge.chunk_store.key_prefix", "campus:chunk:")
	v.SetDefault("knowledge.retrieval.top_k", 3)
	v.SetDefault("knowledge.retrieval.min_score", 0.3)
	v.SetDefault("knowledge.retrieval.candidate_multiplier", 4)
	v.SetDefault("knowledge.retrieval.max_passage_chars", 500)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.use_ssl", false)

	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.brokers", []string{})
	v.SetDefault("audit.topic", "campus-classifications")

	v.SetDefault("concurrency.max_in_flight", 0)
}

// loadFromEnv 兼容部署环境里常见的无前缀变量
func (cl *ConfigLoader) loadFromEnv() {
	cl.setFromEnv("server.port", "PORT")
	cl.setFromEnv("database.url", "DATABASE_URL")
	cl.setFromEnv("redis.addr", "REDIS_ADDR")
	cl.setFromEnv("llm.api_key", "OPENAI_API_KEY")
	cl.setFromEnv("storage.endpoint", "MINIO_ENDPOINT")
	cl.setFromEnv("storage.access_key", "MINIO_ACCESS_KEY")
	cl.setFromEnv("storage.secret_key", "MINIO_SECRET_KEY")

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cl.viper.Set("audit.brokers", splitList(brokers))
	}
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cl.viper.Set("server.allowed_origins", splitList(origins))
	}
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// setFromEnv 辅助函数：从环境变量设置配置
func (cl *ConfigLoader) setFromEnv(configKey, envKey string) {
	if value := os.Getenv(envKey); value != "" {
		cl.viper.Set(configKey, value)
	}
}
