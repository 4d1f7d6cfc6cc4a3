package csvsink

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"pvcapacity/domain/core"
	"pvcapacity/domain/montecarlo"
	"pvcapacity/domain/run"
	"pvcapacity/domain/sitelist"
	"pvcapacity/internal"
)

// Header is the first line of every sample file
var Header = []string{"seed", "national_capacity_mw"}

const (
	samplesExt  = ".csv"
	manifestExt = ".manifest.json"
)

// claimed tracks output names created by this process, so a name cannot be
// reused even after its files were removed.
var (
	claimedMu sync.Mutex
	claimed   = map[string]bool{}
)

// Sink writes Monte Carlo samples to <dir>/<name>.csv and the manifest to
// <dir>/<name>.manifest.json. Files are created exclusively; rows are only
// ever appended.
type Sink struct {
	dir    string
	name   string
	file   *os.File
	writer *csv.Writer
	logger *internal.Logger
}

// New creates a sink writing under dir
func New(dir string) *Sink {
	return &Sink{dir: dir, logger: internal.DefaultLogger.With("csvsink")}
}

// SamplesPath returns the sample file of name under dir
func SamplesPath(dir, name string) string {
	return filepath.Join(dir, name+samplesExt)
}

// ManifestPath returns the manifest file of name under dir
func ManifestPath(dir, name string) string {
	return filepath.Join(dir, name+manifestExt)
}

func validName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return core.NewConfigurationError("invalid output name %q", name)
	}
	return nil
}

// sampleWriter wraps the sample file; tests swap it to fail writes
var sampleWriter = func(f *os.File) io.Writer { return f }

// Create claims name and writes the header. Any existing file for name is a
// collision.
func (s *Sink) Create(name string) error {
	if err := validName(name); err != nil {
		return err
	}
	if s.file != nil {
		return fmt.Errorf("sink already open for %s", s.name)
	}
	key := filepath.Join(s.dir, name)

	claimedMu.Lock()
	defer claimedMu.Unlock()
	if claimed[key] {
		return core.NewOutputCollisionError(name)
	}
	if _, err := os.Stat(ManifestPath(s.dir, name)); err == nil {
		return core.NewOutputCollisionError(name)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.OpenFile(SamplesPath(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return core.NewOutputCollisionError(name)
	}
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	w := csv.NewWriter(sampleWriter(f))
	err = w.Write(Header)
	if err == nil {
		w.Flush()
		err = w.Error()
	}
	if err != nil {
		// nothing was recorded under name, so release it
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("write header of %s: %w", name, err)
	}
	claimed[key] = true

	s.name = name
	s.file = f
	s.writer = w
	return nil
}

// WriteManifest writes the manifest once; it never overwrites
func (s *Sink) WriteManifest(m *run.Manifest) error {
	if s.file == nil {
		return fmt.Errorf("sink is not open")
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	f, err := os.OpenFile(ManifestPath(s.dir, s.name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return core.NewOutputCollisionError(s.name)
	}
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("write manifest: %w", err)
	}
	return f.Close()
}

// Append writes one batch and syncs it to disk
func (s *Sink) Append(samples []montecarlo.Sample) error {
	if s.file == nil {
		return fmt.Errorf("sink is not open")
	}
	for _, smp := range samples {
		row := []string{
			strconv.FormatInt(smp.Seed, 10),
			strconv.FormatFloat(smp.NationalCapacityMW, 'f', -1, 64),
		}
		if err := s.writer.Write(row); err != nil {
			return fmt.Errorf("write sample %d: %w", smp.Index, err)
		}
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", s.name, err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", s.name, err)
	}
	s.logger.Debug("%s: flushed %d samples", s.name, len(samples))
	return nil
}

// Close flushes and closes the sample file. Safe to call more than once.
func (s *Sink) Close() error {
	if s.file == nil {
		return nil
	}
	s.writer.Flush()
	werr := s.writer.Error()
	cerr := s.file.Close()
	s.file = nil
	s.writer = nil
	if werr != nil {
		return werr
	}
	return cerr
}

// Reader reads completed outputs back from a directory
type Reader struct {
	dir string
}

// NewReader creates a reader over dir
func NewReader(dir string) *Reader {
	return &Reader{dir: dir}
}

// ReadSamples parses <name>.csv; the index of each sample is its row order
func (r *Reader) ReadSamples(name string) ([]montecarlo.Sample, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	f, err := os.Open(SamplesPath(r.dir, name))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseSamples(f)
}

// ParseSamples reads a sample stream written by Sink
func ParseSamples(rd io.Reader) ([]montecarlo.Sample, error) {
	cr := csv.NewReader(rd)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) != len(Header) || header[0] != Header[0] || header[1] != Header[1] {
		return nil, core.NewConfigurationError("unexpected sample header %v", header)
	}

	var samples []montecarlo.Sample
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		seed, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: seed: %w", len(samples)+2, err)
		}
		capacity, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: capacity: %w", len(samples)+2, err)
		}
		samples = append(samples, montecarlo.Sample{Index: len(samples), Seed: seed, NationalCapacityMW: capacity})
	}
	return samples, nil
}

// ReadManifest decodes <name>.manifest.json
func (r *Reader) ReadManifest(name string) (*run.Manifest, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(ManifestPath(r.dir, name))
	if err != nil {
		return nil, err
	}
	var m run.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", name, err)
	}
	return &m, nil
}

// List returns the output names in the directory, sorted
func (r *Reader) List() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), manifestExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), manifestExt))
	}
	sort.Strings(names)
	return names, nil
}

// WriteSiteList exports a realized site list to path, failing if it exists
func WriteSiteList(path string, sl *sitelist.SiteList) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return core.NewOutputCollisionError(filepath.Base(path))
	}
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"site_id", "capacity", "system_type", "unreported", "decommissioned", "latitude", "longitude"}); err != nil {
		return err
	}
	opt := func(p *float64) string {
		if p == nil {
			return ""
		}
		return strconv.FormatFloat(*p, 'f', -1, 64)
	}
	for _, rec := range sl.Records {
		if err := w.Write([]string{
			rec.SiteID,
			strconv.FormatFloat(rec.Capacity, 'f', -1, 64),
			string(rec.SystemType),
			string(rec.Unreported),
			strconv.FormatBool(rec.Decommissioned),
			opt(rec.Location.Latitude),
			opt(rec.Location.Longitude),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
