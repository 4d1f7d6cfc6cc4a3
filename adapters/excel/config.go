package excel

// ColumnMapping names the spreadsheet columns that feed each record field.
// Capacity candidates are tried in order; the others are optional.
type ColumnMapping struct {
	SiteID    string   `json:"site_id"`
	Capacity  []string `json:"capacity"`
	Eastings  string   `json:"eastings"`
	Northings string   `json:"northings"`
	Latitude  string   `json:"latitude"`
	Longitude string   `json:"longitude"`
}

// SiteListConfig holds configuration for site list ingestion
type SiteListConfig struct {
	FilePath string        `json:"file_path"`
	Sheet    string        `json:"sheet"`     // empty selects the first sheet
	RowLimit int           `json:"row_limit"` // 0 reads every row
	CutoffMW float64       `json:"cutoff_mw"`
	Columns  ColumnMapping `json:"columns"`
}

// DefaultColumnMapping matches the column names of the published site lists
func DefaultColumnMapping() ColumnMapping {
	return ColumnMapping{
		SiteID:    "site_id",
		Capacity:  []string{"capacity", "Capacity", "capacity_mw", "installedcapacity"},
		Eastings:  "eastings",
		Northings: "northings",
		Latitude:  "latitude",
		Longitude: "longitude",
	}
}

// DefaultSiteListConfig returns sensible defaults for site list ingestion
func DefaultSiteListConfig() SiteListConfig {
	return SiteListConfig{
		CutoffMW: 10,
		Columns:  DefaultColumnMapping(),
	}
}
