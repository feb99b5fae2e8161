package storage

// Snapshot file names inside the data directory
const (
	DataFileName = "data.json"
	MetaFileName = "meta.json"
	WALFileName  = "salaries.wal"
)

// TableMeta is the snapshot's description of the salaries table
type TableMeta struct {
	Name     string   `json:"name"`
	Version  int      `json:"version"`
	RowCount int64    `json:"row_count"`
	Columns  []string `json:"columns"`
	SavedAt  int64    `json:"saved_at"` // Unix timestamp of the snapshot
}

// MetaVersion is the current snapshot format version
const MetaVersion = 1
