package stations

import (
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/sharksmhi/ctdstations/internal/geo"
	"github.com/sharksmhi/ctdstations/internal/logger"
	"github.com/sharksmhi/ctdstations/internal/observability/metrics"
)

// Resolver answers station queries against a loaded Store.
// It never modifies the store and is safe for concurrent use.
type Resolver struct {
	store         *Store
	allowlist     []string
	hasAllowlist  bool
	queryEncoding geo.Encoding
	cache         *cache.Cache
	cacheWrites   atomic.Uint64
	recorder      metrics.Recorder
	log           logger.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithAllowlist restricts StationList to the resolvable names in names.
func WithAllowlist(names []string) ResolverOption {
	return func(r *Resolver) {
		r.allowlist = slices.Compact(r.store.FilterByAllowlist(names))
		r.hasAllowlist = true
	}
}

// WithQueryEncoding sets how query coordinates are encoded. The default is
// DDMM.mmm, matching the table.
func WithQueryEncoding(enc geo.Encoding) ResolverOption {
	return func(r *Resolver) {
		r.queryEncoding = enc
	}
}

// cachePruneInterval is how many cache writes pass between sweeps of expired entries.
const cachePruneInterval = 256

// WithQueryCache memoizes nearest-station results for ttl. Zero or negative disables it.
// The cache runs no janitor goroutine; expired entries are swept on writes.
func WithQueryCache(ttl time.Duration) ResolverOption {
	return func(r *Resolver) {
		if ttl <= 0 {
			r.cache = nil
			return
		}
		r.cache = cache.New(ttl, 0)
	}
}

// WithRecorder records query metrics.
func WithRecorder(rec metrics.Recorder) ResolverOption {
	return func(r *Resolver) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// WithResolverLogger sets the logger.
func WithResolverLogger(l logger.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// NewResolver creates a resolver over store.
func NewResolver(store *Store, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:    store,
		recorder: metrics.NewNoOpRecorder(),
		log:      store.log,
	}
	if r.log == nil {
		r.log = logger.Global().Module("stations")
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the underlying store.
func (r *Resolver) Store() *Store { return r.store }

// QueryEncoding returns the encoding expected for query coordinates.
func (r *Resolver) QueryEncoding() geo.Encoding { return r.queryEncoding }

// NearestStation returns the station closest to (lat, lon), annotated with
// the distance and whether it is within the station's radius. It returns
// false when either coordinate is absent or not finite, or the table is empty.
// Exact distance ties go to the first row in table order.
func (r *Resolver) NearestStation(lat, lon *float64) (StationInfo, bool) {
	if lat == nil || lon == nil {
		r.recorder.RecordOperation(metrics.OpNearest, metrics.ResultInvalid)
		return StationInfo{}, false
	}
	return r.NearestStationAt(*lat, *lon)
}

// NearestStationAt is NearestStation for callers that always have a position.
func (r *Resolver) NearestStationAt(lat, lon float64) (StationInfo, bool) {
	start := time.Now()
	defer func() { r.recorder.RecordDuration(metrics.OpNearest, time.Since(start).Seconds()) }()

	if !geo.IsFinite(lat) || !geo.IsFinite(lon) {
		r.recorder.RecordOperation(metrics.OpNearest, metrics.ResultInvalid)
		return StationInfo{}, false
	}

	key := ""
	if r.cache != nil {
		key = strconv.FormatFloat(lat, 'g', -1, 64) + "," + strconv.FormatFloat(lon, 'g', -1, 64)
		if v, found := r.cache.Get(key); found {
			r.recordCache(true)
			r.recorder.RecordOperation(metrics.OpNearest, metrics.ResultFound)
			return v.(StationInfo).clone(), true
		}
		r.recordCache(false)
	}

	query := geo.Position{Lat: lat, Lon: lon, Encoding: r.queryEncoding}
	best, bestDist := -1, 0
	for i := range r.store.records {
		d := geo.DistanceMeters(query, r.store.records[i].Position())
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		r.recorder.RecordOperation(metrics.OpNearest, metrics.ResultNotFound)
		return StationInfo{}, false
	}

	rec := &r.store.records[best]
	info := newStationInfo(rec)
	info.HasDistance = true
	info.Distance = bestDist
	info.Acceptable = rec.HasRadius && float64(bestDist) <= rec.Radius

	if r.cache != nil {
		r.storeCached(key, info.clone())
	}
	r.recorder.RecordOperation(metrics.OpNearest, metrics.ResultFound)
	return info, true
}

// StationInfo returns the station for a name or synonym.
func (r *Resolver) StationInfo(nameOrSynonym string) (StationInfo, bool) {
	rec, ok := r.store.lookup(nameOrSynonym)
	r.recordLookup(metrics.OpInfo, ok)
	if !ok {
		return StationInfo{}, false
	}
	return newStationInfo(rec), true
}

// DistanceToStation returns the distance in meters from (lat, lon) to the
// named station, or false if the name does not resolve.
func (r *Resolver) DistanceToStation(lat, lon float64, nameOrSynonym string) (int, bool) {
	rec, ok := r.store.lookup(nameOrSynonym)
	if ok && (!geo.IsFinite(lat) || !geo.IsFinite(lon)) {
		r.recorder.RecordOperation(metrics.OpDistance, metrics.ResultInvalid)
		return 0, false
	}
	r.recordLookup(metrics.OpDistance, ok)
	if !ok {
		return 0, false
	}
	query := geo.Position{Lat: lat, Lon: lon, Encoding: r.queryEncoding}
	return geo.DistanceMeters(query, rec.Position()), true
}

// StationList returns canonical station names in ascending order without
// duplicates. With an allowlist attached it returns the filtered allowlist.
func (r *Resolver) StationList() []string {
	r.recorder.RecordOperation(metrics.OpList, metrics.ResultFound)
	if r.hasAllowlist {
		return slices.Clone(r.allowlist)
	}
	return r.store.Names()
}

// ProperName resolves a name or synonym to the canonical station name.
func (r *Resolver) ProperName(nameOrSynonym string) (string, bool) {
	name, ok := r.store.ProperName(nameOrSynonym)
	r.recordLookup(metrics.OpProperName, ok)
	return name, ok
}

// Position returns the station's position cells as written in the table.
func (r *Resolver) Position(nameOrSynonym string) (lat, lon string, ok bool) {
	rec, ok := r.store.lookup(nameOrSynonym)
	if !ok {
		return "", "", false
	}
	return rec.LatitudeDM, rec.LongitudeDM, true
}

func (r *Resolver) storeCached(key string, info StationInfo) {
	if r.cacheWrites.Add(1)%cachePruneInterval == 0 {
		r.cache.DeleteExpired()
	}
	r.cache.Set(key, info, cache.DefaultExpiration)
}

// Close drops cached query results.
func (r *Resolver) Close() {
	if r.cache != nil {
		r.cache.Flush()
	}
}

func (r *Resolver) recordLookup(op string, found bool) {
	if found {
		r.recorder.RecordOperation(op, metrics.ResultFound)
		return
	}
	r.recorder.RecordOperation(op, metrics.ResultNotFound)
}

// cacheRecorder is implemented by recorders that track result cache lookups.
type cacheRecorder interface {
	RecordQueryCache(hit bool)
}

func (r *Resolver) recordCache(hit bool) {
	if cr, ok := r.recorder.(cacheRecorder); ok {
		cr.RecordQueryCache(hit)
	}
}
