package opensearch

// Config holds OpenSearch client settings.
type Config struct {
	Addresses  []string `env:"OPENSEARCH_ADDRESSES" envSeparator:","`
	Username   string   `env:"OPENSEARCH_USERNAME"`
	Password   string   `env:"OPENSEARCH_PASSWORD"`
	MaxRetries int      `env:"OPENSEARCH_MAX_RETRIES" envDefault:"3"`
	AuditIndex string   `env:"OPENSEARCH_AUDIT_INDEX" envDefault:"kanbax-audit"`
}
