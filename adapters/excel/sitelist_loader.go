package excel

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"pvcapacity/domain/core"
	"pvcapacity/domain/sitelist"
	"pvcapacity/internal"
	"pvcapacity/internal/cache"
)

// loaderVersion is part of every cache key; bump it when mapping changes
const loaderVersion = "sitelist-loader/1"

// SiteListLoader builds the classified base site list from a CSV or XLSX file
type SiteListLoader struct {
	cfg    SiteListConfig
	cache  *cache.Store
	logger *internal.Logger
}

// NewSiteListLoader creates a loader. store may be nil to disable caching.
func NewSiteListLoader(cfg SiteListConfig, store *cache.Store) *SiteListLoader {
	if len(cfg.Columns.Capacity) == 0 {
		cfg.Columns = DefaultColumnMapping()
	}
	return &SiteListLoader{cfg: cfg, cache: store, logger: internal.DefaultLogger.With("sitelist")}
}

// LoadSiteList reads path (or the configured file when path is empty),
// maps it to records and classifies them by the configured cutoff.
func (l *SiteListLoader) LoadSiteList(path string) (*sitelist.SiteList, error) {
	if path == "" {
		path = l.cfg.FilePath
	}
	if path == "" {
		return nil, core.NewConfigurationError("no site list file given")
	}

	var key core.Hash
	if l.cache.Enabled() {
		columns, err := json.Marshal(l.cfg.Columns)
		if err != nil {
			return nil, err
		}
		key, err = cache.FileKey(path,
			loaderVersion,
			l.cfg.Sheet,
			strconv.Itoa(l.cfg.RowLimit),
			strconv.FormatFloat(l.cfg.CutoffMW, 'g', -1, 64),
			string(columns),
		)
		if err != nil {
			return nil, err
		}
		var cached sitelist.SiteList
		hit, err := l.cache.Get(key, &cached)
		if err != nil {
			l.logger.Warn("ignoring unreadable cache entry: %v", err)
		} else if hit {
			l.logger.Info("site list %s loaded from cache %s (%d records)", path, key.Short(), cached.Len())
			return &cached, nil
		}
	}

	data, err := NewDataReader(path, l.cfg.Sheet, l.cfg.RowLimit).ReadData()
	if err != nil {
		return nil, core.NewConfigurationError("site list %s: %v", path, err)
	}
	sl, err := l.Map(data)
	if err != nil {
		return nil, err
	}

	if l.cache.Enabled() {
		if err := l.cache.Put(key, sl); err != nil {
			l.logger.Warn("could not cache site list: %v", err)
		}
	}
	counts := sl.CountBy()
	l.logger.Info("site list %s: %d records (%d domestic, %d non-domestic), %.3f MW",
		path, sl.Len(), counts[sitelist.Domestic], counts[sitelist.NonDomestic], sl.TotalCapacity())
	return sl, nil
}

// Map converts rows to a validated, classified site list. A missing
// capacity column or an unparseable value is a configuration error.
func (l *SiteListLoader) Map(data *SheetData) (*sitelist.SiteList, error) {
	capacityCol := ""
	for _, c := range l.cfg.Columns.Capacity {
		if data.HasColumn(c) {
			capacityCol = c
			break
		}
	}
	if capacityCol == "" {
		return nil, core.NewConfigurationError("site list has no capacity column (looked for %s)",
			strings.Join(l.cfg.Columns.Capacity, ", "))
	}

	optional := func(name string) string {
		if name != "" && data.HasColumn(name) {
			return name
		}
		return ""
	}
	idCol := optional(l.cfg.Columns.SiteID)
	eCol, nCol := optional(l.cfg.Columns.Eastings), optional(l.cfg.Columns.Northings)
	latCol, lonCol := optional(l.cfg.Columns.Latitude), optional(l.cfg.Columns.Longitude)

	records := make([]sitelist.Record, 0, len(data.Rows))
	for i, row := range data.Rows {
		line := i + 2 // header is line 1

		capacity, err := strconv.ParseFloat(row[capacityCol], 64)
		if err != nil || math.IsNaN(capacity) || math.IsInf(capacity, 0) {
			return nil, core.NewConfigurationError("line %d: capacity %q is not a number", line, row[capacityCol])
		}

		id := fmt.Sprintf("row-%d", line)
		if idCol != "" && row[idCol] != "" {
			id = row[idCol]
		}

		rec := sitelist.Record{SiteID: id, Capacity: capacity}
		for _, f := range []struct {
			col string
			dst **float64
		}{
			{eCol, &rec.Location.Eastings},
			{nCol, &rec.Location.Northings},
			{latCol, &rec.Location.Latitude},
			{lonCol, &rec.Location.Longitude},
		} {
			if f.col == "" || row[f.col] == "" {
				continue
			}
			v, err := strconv.ParseFloat(row[f.col], 64)
			if err != nil {
				return nil, core.NewConfigurationError("line %d: %s %q is not a number", line, f.col, row[f.col])
			}
			*f.dst = &v
		}
		records = append(records, rec)
	}

	sl := sitelist.New(records)
	if err := sl.Validate(); err != nil {
		return nil, err
	}
	sl.Classify(l.cfg.CutoffMW)
	return sl, nil
}
