package stations

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/encoding"

	"github.com/sharksmhi/ctdstations/internal/errors"
	"github.com/sharksmhi/ctdstations/internal/logger"
	"github.com/sharksmhi/ctdstations/internal/observability/metrics"
)

// SourceKind identifies where a Store's table came from.
type SourceKind string

const (
	SourcePrimary SourceKind = "primary"
	SourceBackup  SourceKind = "backup"
)

// Sentinel errors. Match with errors.Is; any error of the same category matches.
var (
	ErrSourceUnavailable = errors.Newf("no station reference source is available").
				Component("stations").
				Category(errors.CategorySourceUnavailable).
				Build()
	ErrFetchFailed = errors.Newf("failed to fetch primary station source").
			Component("stations").
			Category(errors.CategoryNetwork).
			Build()
)

// SourceConfig describes where the reference table is read from.
type SourceConfig struct {
	// PrimaryURL is the published station file. Empty disables the primary source.
	PrimaryURL string
	// PrimaryCachePath is where the downloaded primary copy is kept.
	// Defaults to DefaultCacheDir()/<basename of PrimaryURL>.
	PrimaryCachePath string
	// PrimaryEncoding is used both to decode the download and to write the cache.
	PrimaryEncoding string

	BackupPath     string
	BackupEncoding string

	// RefreshPrimary downloads PrimaryURL into the cache before reading.
	RefreshPrimary bool

	Columns Columns
}

// DefaultCacheDir returns the directory for downloaded station files.
func DefaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "ctdstations")
}

// withDefaults fills in encodings, columns and the cache path.
func (c SourceConfig) withDefaults() SourceConfig {
	if c.PrimaryEncoding == "" {
		c.PrimaryEncoding = DefaultEncoding
	}
	if c.BackupEncoding == "" {
		c.BackupEncoding = DefaultEncoding
	}
	if c.PrimaryCachePath == "" && c.PrimaryURL != "" {
		if name := urlBaseName(c.PrimaryURL); name != "" {
			c.PrimaryCachePath = filepath.Join(DefaultCacheDir(), name)
		}
	}
	c.Columns = c.Columns.withDefaults()
	return c
}

func urlBaseName(raw string) string {
	p := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		p = u.Path
	}
	base := path.Base(p)
	if base == "." || base == "/" {
		return ""
	}
	return base
}

// Option configures Load.
type Option func(*loadOptions)

type loadOptions struct {
	fetcher Fetcher
	log     logger.Logger
	metrics *metrics.StationMetrics
}

// WithFetcher sets the fetcher used when refreshing the primary source.
func WithFetcher(f Fetcher) Option {
	return func(o *loadOptions) {
		o.fetcher = f
	}
}

// WithLogger sets the logger for load diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(o *loadOptions) {
		o.log = l
	}
}

// WithMetrics records load and fetch metrics.
func WithMetrics(m *metrics.StationMetrics) Option {
	return func(o *loadOptions) {
		o.metrics = m
	}
}

// Store is a loaded, immutable reference table with its synonym index.
type Store struct {
	records  []Record
	byName   map[string]int // canonical name -> index of the last row with that name
	index    *SynonymIndex
	source   SourceKind
	path     string
	encoding string
	loadedAt time.Time
	log      logger.Logger
}

// Load reads the reference table described by cfg.
//
// With RefreshPrimary set and a PrimaryURL configured, the primary source is
// downloaded and written to PrimaryCachePath first; a failed download is
// returned as ErrFetchFailed and nothing is read. Otherwise the primary cache
// is used when present, then the backup. With neither readable Load returns
// ErrSourceUnavailable.
func Load(ctx context.Context, cfg SourceConfig, opts ...Option) (*Store, error) {
	o := loadOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Global().Module("stations")
	}

	cfg = cfg.withDefaults()
	start := time.Now()

	if cfg.RefreshPrimary && cfg.PrimaryURL != "" {
		if o.fetcher == nil {
			o.fetcher = NewHTTPFetcher(nil)
		}
		if err := refreshPrimary(ctx, &cfg, &o); err != nil {
			o.recordLoad("none", metrics.StatusError, start, nil, err)
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	kind, filePath, encName, err := selectSource(&cfg)
	if err != nil {
		o.log.Error("No station file found",
			logger.String("primary", cfg.PrimaryCachePath),
			logger.String("backup", cfg.BackupPath))
		o.recordLoad("none", metrics.StatusError, start, nil, err)
		return nil, err
	}
	o.log.Info("Using station file",
		logger.String("source", string(kind)),
		logger.String("path", filePath),
		logger.String("encoding", encName))

	store, err := readStore(filePath, encName, cfg.Columns)
	if err != nil {
		o.recordLoad(string(kind), metrics.StatusError, start, nil, err)
		return nil, err
	}
	store.source = kind
	store.log = o.log

	for _, c := range store.index.Conflicts() {
		o.log.Warn("Synonym claimed by more than one station, keeping first",
			logger.String("synonym", c.Key),
			logger.String("kept", c.Kept),
			logger.String("ignored", c.Ignored))
	}

	o.recordLoad(string(kind), metrics.StatusSuccess, start, store, nil)
	o.log.Debug("Station table loaded",
		logger.Int("rows", len(store.records)),
		logger.Int("stations", len(store.byName)),
		logger.Int("index_keys", store.index.Len()),
		logger.Duration("elapsed", time.Since(start)))

	return store, nil
}

func (o *loadOptions) recordLoad(source, status string, start time.Time, s *Store, err error) {
	if o.metrics == nil {
		return
	}
	rows, keys := 0, 0
	if s != nil {
		rows, keys = len(s.records), s.index.Len()
	}
	o.metrics.RecordLoad(source, status, time.Since(start).Seconds(), rows, keys)
	if err != nil {
		o.metrics.RecordError(metrics.OpLoad, errorType(err))
	}
}

// refreshPrimary downloads the primary source and rewrites the cache file in
// the primary encoding.
func refreshPrimary(ctx context.Context, cfg *SourceConfig, o *loadOptions) error {
	if cfg.PrimaryCachePath == "" {
		return errors.Newf("no cache path for primary source %s", cfg.PrimaryURL).
			Component("stations").
			Category(errors.CategoryConfiguration).
			Build()
	}
	enc, err := LookupEncoding(cfg.PrimaryEncoding)
	if err != nil {
		return err
	}

	start := time.Now()
	data, err := o.fetcher.Fetch(ctx, cfg.PrimaryURL)
	if o.metrics != nil {
		status := metrics.StatusSuccess
		if err != nil {
			status = metrics.StatusError
		}
		o.metrics.RecordFetch(status, time.Since(start).Seconds(), len(data))
	}
	if err != nil {
		o.log.Error("Primary station file download failed",
			logger.String("url", cfg.PrimaryURL),
			logger.Error(err))
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	o.log.Debug("Setting response encoding", logger.String("encoding", cfg.PrimaryEncoding))

	text, err := decodeText(data, enc)
	if err != nil {
		return err
	}
	encoded, err := encodeText(text, enc)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(cfg.PrimaryCachePath, encoded); err != nil {
		return err
	}

	o.log.Info("Primary station file updated",
		logger.String("path", cfg.PrimaryCachePath),
		logger.Int("bytes", len(encoded)))
	return nil
}

// selectSource prefers the primary cache over the backup.
func selectSource(cfg *SourceConfig) (SourceKind, string, string, error) {
	if cfg.PrimaryCachePath != "" && fileExists(cfg.PrimaryCachePath) {
		return SourcePrimary, cfg.PrimaryCachePath, cfg.PrimaryEncoding, nil
	}
	if cfg.BackupPath != "" && fileExists(cfg.BackupPath) {
		return SourceBackup, cfg.BackupPath, cfg.BackupEncoding, nil
	}
	return "", "", "", fmt.Errorf("%w: primary %q and backup %q do not exist",
		ErrSourceUnavailable, cfg.PrimaryCachePath, cfg.BackupPath)
}

// errorType returns the error category used as a metric label.
func errorType(err error) string {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return ee.GetCategory()
	}
	return string(errors.CategoryGeneric)
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

// readStore reads, decodes, parses and indexes one source file.
func readStore(filePath, encName string, cols Columns) (*Store, error) {
	enc, err := LookupEncoding(encName)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.FileError(err, filePath)
	}
	records, err := decodeAndParse(data, enc, cols)
	if err != nil {
		return nil, err
	}

	s := &Store{
		records:  records,
		byName:   make(map[string]int, len(records)),
		index:    BuildSynonymIndex(records),
		path:     filePath,
		encoding: encName,
		loadedAt: time.Now(),
	}
	for i := range records {
		s.byName[records[i].Name] = i
	}
	return s, nil
}

func decodeAndParse(data []byte, enc encoding.Encoding, cols Columns) ([]Record, error) {
	text, err := decodeText(data, enc)
	if err != nil {
		return nil, err
	}
	return ParseTable(strings.NewReader(text), cols)
}

// writeFileAtomic writes data to a temp file in the target directory and renames it into place.
func writeFileAtomic(target string, data []byte) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.FileError(err, dir)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return errors.FileError(err, target)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return errors.FileError(err, target)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return errors.FileError(err, target)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return errors.FileError(err, target)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return errors.FileError(err, target)
	}
	if err := os.Rename(tmpName, target); err != nil {
		cleanup()
		return errors.FileError(err, target)
	}
	return nil
}

// Source reports which source the table was read from.
func (s *Store) Source() SourceKind { return s.source }

// Path returns the file the table was read from.
func (s *Store) Path() string { return s.path }

// Encoding returns the encoding the table was decoded with.
func (s *Store) Encoding() string { return s.encoding }

// LoadedAt returns when the table was read.
func (s *Store) LoadedAt() time.Time { return s.loadedAt }

// Len returns the number of rows, duplicates included.
func (s *Store) Len() int { return len(s.records) }

// Index returns the synonym index.
func (s *Store) Index() *SynonymIndex { return s.index }

// Records returns a copy of the rows in table order.
func (s *Store) Records() []Record {
	return slices.Clone(s.records)
}

// Names returns the canonical names, sorted and without duplicates.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ProperName resolves a name or synonym to its canonical name.
func (s *Store) ProperName(nameOrSynonym string) (string, bool) {
	return s.index.Resolve(nameOrSynonym)
}

// lookup returns the record for a name or synonym. For a duplicated
// canonical name the last row in the table wins.
func (s *Store) lookup(nameOrSynonym string) (*Record, bool) {
	name, ok := s.index.Resolve(nameOrSynonym)
	if !ok {
		return nil, false
	}
	i, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return &s.records[i], true
}
