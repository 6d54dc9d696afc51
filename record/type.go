package record

// Type describes one entity type stored in the backing table.
type Type interface {
	// TableName returns the table holding records of this type.
	TableName() string

	// PartitionKey returns the attribute name used as the partition key.
	PartitionKey() string
}

type descriptor struct {
	table string
	key   string
}

func (d descriptor) TableName() string    { return d.table }
func (d descriptor) PartitionKey() string { return d.key }

// NewType returns a Type for table keyed by the partitionKey attribute.
func NewType(table, partitionKey string) Type {
	return descriptor{table: table, key: partitionKey}
}
