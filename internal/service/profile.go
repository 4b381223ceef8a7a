package service

import (
	"log"
	"sort"
	"strconv"
	"time"

	"exoplanet-backend/internal/models"
	"exoplanet-backend/internal/state"

	"github.com/patrickmn/go-cache"
)

// ColumnProfiler computes per-column statistics of a dataset snapshot.
type ColumnProfiler struct{}

// NewColumnProfiler creates a new profiler
func NewColumnProfiler() *ColumnProfiler {
	return &ColumnProfiler{}
}

// ProfileColumn summarises a single column
func (cp *ColumnProfiler) ProfileColumn(ds *state.Dataset, colIdx int) models.ColumnProfile {
	names := ds.Schema.Names()
	profile := models.ColumnProfile{
		Name:      names[colIdx],
		Type:      models.ColumnTypeText,
		IsNumeric: ds.Numeric[colIdx],
	}
	if profile.IsNumeric {
		profile.Type = models.ColumnTypeNumeric
	}

	var nums []float64
	for _, rec := range ds.Records {
		v := rec.At(colIdx)
		if v.IsNull() {
			profile.NullCount++
			continue
		}
		profile.NonNullCount++
		if profile.IsNumeric && v.Kind == models.KindNumber {
			nums = append(nums, v.Num)
		}
	}

	if profile.IsNumeric && len(nums) > 0 {
		sort.Float64s(nums)
		lo, hi := nums[0], nums[len(nums)-1]
		sum := 0.0
		for _, n := range nums {
			sum += n
		}
		mean := sum / float64(len(nums))
		median := nums[len(nums)/2]
		if len(nums)%2 == 0 {
			median = (nums[len(nums)/2-1] + nums[len(nums)/2]) / 2
		}
		profile.Min = &lo
		profile.Max = &hi
		profile.Mean = &mean
		profile.Median = &median
	}
	return profile
}

// ProfileAllColumns profiles every column in schema order
func (cp *ColumnProfiler) ProfileAllColumns(ds *state.Dataset) []models.ColumnProfile {
	if ds == nil || ds.Schema == nil {
		return []models.ColumnProfile{}
	}
	profiles := make([]models.ColumnProfile, ds.Schema.Len())
	for i := range profiles {
		profiles[i] = cp.ProfileColumn(ds, i)
	}
	return profiles
}

// ProfileSet is the cached profile list of one dataset version.
type ProfileSet struct {
	Version  uint64
	Profiles []models.ColumnProfile
	byName   map[string]int
}

// Lookup returns the profile of a column.
func (ps *ProfileSet) Lookup(name string) (models.ColumnProfile, bool) {
	i, ok := ps.byName[name]
	if !ok {
		return models.ColumnProfile{}, false
	}
	return ps.Profiles[i], true
}

// ProfileStore caches column profiles per dataset version. Entries expire
// after the TTL and the whole cache is flushed when a new snapshot is
// published.
type ProfileStore struct {
	profiler *ColumnProfiler
	cache    *cache.Cache
}

func NewProfileStore(ttl time.Duration) *ProfileStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ProfileStore{
		profiler: NewColumnProfiler(),
		cache:    cache.New(ttl, 2*ttl),
	}
}

func profileKey(version uint64) string {
	return "profiles:v" + strconv.FormatUint(version, 10)
}

// Get returns the profiles of ds, computing them on a cache miss.
func (s *ProfileStore) Get(ds *state.Dataset) *ProfileSet {
	if ds == nil {
		return &ProfileSet{Profiles: []models.ColumnProfile{}, byName: map[string]int{}}
	}

	key := profileKey(ds.Version)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*ProfileSet)
	}

	profiles := s.profiler.ProfileAllColumns(ds)
	set := &ProfileSet{
		Version:  ds.Version,
		Profiles: profiles,
		byName:   make(map[string]int, len(profiles)),
	}
	for i, p := range profiles {
		set.byName[p.Name] = i
	}
	s.cache.SetDefault(key, set)
	return set
}

// Invalidate drops every cached profile.
func (s *ProfileStore) Invalidate() {
	s.cache.Flush()
}

// OnReload is a state.Listener: it flushes stale profiles and warms the
// cache for the new snapshot.
func (s *ProfileStore) OnReload(prev, next *state.Dataset) {
	s.Invalidate()
	set := s.Get(next)
	log.Printf("[Profiles] Rebuilt %d column profiles for version %d", len(set.Profiles), set.Version)
}
