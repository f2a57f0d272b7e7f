package repository

// DatasetKind selects which training table an export produces.
type DatasetKind string

const (
	DatasetSplit  DatasetKind = "split"
	DatasetDaily  DatasetKind = "daily"
	DatasetHourly DatasetKind = "hourly"
)

// IsValidDatasetKind returns true if k is a supported export.
func IsValidDatasetKind(k DatasetKind) bool {
	switch k {
	case DatasetSplit, DatasetDaily, DatasetHourly:
		return true
	default:
		return false
	}
}

// DefaultDatasetKind returns the default export.
func DefaultDatasetKind() DatasetKind { return DatasetSplit }

// NormalizeDatasetKind converts raw string to a valid kind (or default).
func NormalizeDatasetKind(s string) DatasetKind {
	if s == "" {
		return DefaultDatasetKind()
	}
	k := DatasetKind(s)
	if IsValidDatasetKind(k) {
		return k
	}
	return DefaultDatasetKind()
}
