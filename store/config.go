package store

// Config holds configuration for the Store.
type Config struct {
	// TablePrefix is prepended to every record type's table name.
	// Default: "" (no prefix)
	TablePrefix string

	// TTLAttribute names the DynamoDB TTL attribute used for soft deletes.
	// Items whose TTL is at or before now are treated as deleted.
	// Default: "ttl"
	TTLAttribute string

	// VersionAttribute names the optimistic lock counter.
	// Default: "version"
	VersionAttribute string

	// CreatedAtAttribute and UpdatedAtAttribute name the RFC 3339 timestamps.
	// Defaults: "created_at", "updated_at"
	CreatedAtAttribute string
	UpdatedAtAttribute string

	// Timestamps stamps created/updated times on save.
	Timestamps bool

	// Versioning enables optimistic locking on the version attribute.
	Versioning bool

	// GenerateIDs assigns a UUID partition key to new records saved without one.
	GenerateIDs bool

	// SoftDelete marks deleted items with a TTL instead of removing them.
	SoftDelete bool

	// ConsistentRead requests strongly consistent reads from Find.
	ConsistentRead bool
}

// DefaultConfig returns the settings used by most applications.
func DefaultConfig() Config {
	return Config{
		TTLAttribute:       "ttl",
		VersionAttribute:   "version",
		CreatedAtAttribute: "created_at",
		UpdatedAtAttribute: "updated_at",
		Timestamps:         true,
		Versioning:         true,
		GenerateIDs:        true,
		SoftDelete:         true,
	}
}

// validate fills in attribute names left empty.
func (c *Config) validate() {
	if c.TTLAttribute == "" {
		c.TTLAttribute = "ttl"
	}
	if c.VersionAttribute == "" {
		c.VersionAttribute = "version"
	}
	if c.CreatedAtAttribute == "" {
		c.CreatedAtAttribute = "created_at"
	}
	if c.UpdatedAtAttribute == "" {
		c.UpdatedAtAttribute = "updated_at"
	}
}
