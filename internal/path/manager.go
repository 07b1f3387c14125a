package path

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"deepwarren/server/internal/grid"
)

const (
	cacheHitMetricKey       = "path_cache_hit_total"
	cacheMissMetricKey      = "path_cache_miss_total"
	searchesMetricKey       = "path_searches_total"
	regionSkipMetricKey     = "path_region_skip_total"
	requestsDoneMetricKey   = "path_requests_processed_total"
	requestsDropMetricKey   = "path_requests_rejected_total"
	cacheMaxCost            = 1 << 20
	cacheCounters           = 10_000
	cacheBufferItems        = 64
	defaultCacheTTL         = 2 * time.Second
	defaultRequestsPerTick  = 8
	defaultRequestsCapacity = 256
)

// ManagerConfig tunes the request queue and result cache around one
// finder configuration.
type ManagerConfig struct {
	Finder             Config
	CacheTTL           time.Duration
	MaxRequestsPerTick int
	QueueCapacity      int
	SmoothResults      bool
}

// DefaultManagerConfig returns the tuning the hub starts with.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Finder:             DefaultConfig(),
		CacheTTL:           defaultCacheTTL,
		MaxRequestsPerTick: defaultRequestsPerTick,
		QueueCapacity:      defaultRequestsCapacity,
	}
}

func (c ManagerConfig) normalized() ManagerConfig {
	c.Finder = c.Finder.normalized()
	if c.CacheTTL <= 0 {
		c.CacheTTL = defaultCacheTTL
	}
	if c.MaxRequestsPerTick <= 0 {
		c.MaxRequestsPerTick = defaultRequestsPerTick
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = defaultRequestsCapacity
	}
	return c
}

// floorNav is the per-floor acceleration state: the dense cost grid and
// the region graph built over it.
type floorNav struct {
	grid    *CostGrid
	regions *RegionGraph
}

// Manager owns one finder bound to the active map, a TTL result cache,
// and the bounded FIFO request queue drained once per tick. All state is
// touched from the single update goroutine; the ring is the one
// concurrency-safe edge.
type Manager struct {
	cfg       ManagerConfig
	m         *grid.Map
	blockers  BlockerProbe
	costScale CostScaleFunc
	finder    *Finder
	floors    map[int]*floorNav
	cache     *ristretto.Cache[string, PathResult]
	queue     *requestQueue
	metrics   telemetryMetrics
}

// NewManager constructs an unbound manager. Initialize must run before
// any query; using the manager unbound is a programmer error.
func NewManager(cfg ManagerConfig, metrics telemetryMetrics) *Manager {
	normalized := cfg.normalized()
	cache, err := ristretto.NewCache[string, PathResult](&ristretto.Config[string, PathResult]{
		NumCounters: cacheCounters,
		MaxCost:     cacheMaxCost,
		BufferItems: cacheBufferItems,
	})
	if err != nil {
		panic(fmt.Sprintf("path: result cache: %v", err))
	}
	return &Manager{
		cfg:     normalized,
		floors:  make(map[int]*floorNav),
		cache:   cache,
		queue:   newRequestQueue(normalized.QueueCapacity, metrics),
		metrics: metrics,
	}
}

// Initialize binds the manager to a map, an entity occupancy probe, and a
// per-tile cost scale. Rebinding clears every cache and all per-floor
// acceleration state.
func (mgr *Manager) Initialize(m *grid.Map, blockers BlockerProbe, costScale CostScaleFunc) {
	if m == nil {
		panic("path: Initialize requires a map")
	}
	mgr.m = m
	mgr.blockers = blockers
	mgr.costScale = costScale
	mgr.finder = NewFinder(m, blockers, costScale, mgr.cfg.Finder)
	mgr.floors = make(map[int]*floorNav)
	mgr.cache.Clear()
}

// UpdateMap rebinds the manager to a new map. Same contract as
// Initialize.
func (mgr *Manager) UpdateMap(m *grid.Map) {
	mgr.Initialize(m, mgr.blockers, mgr.costScale)
}

func (mgr *Manager) mustBeBound() {
	if mgr.m == nil || mgr.finder == nil {
		panic("path: manager used before Initialize")
	}
}

// nav returns the lazily built per-floor cost grid and region graph.
func (mgr *Manager) nav(floor int) *floorNav {
	if nav, ok := mgr.floors[floor]; ok {
		return nav
	}
	cost := NewCostGrid(mgr.m.WidthTiles(), mgr.m.HeightTiles(), floor)
	cost.SyncFromMap(mgr.m, mgr.blockers)
	nav := &floorNav{grid: cost, regions: NewRegionGraph(cost)}
	cost.OnChange(func(int, int) { nav.regions.MarkDirty() })
	mgr.floors[floor] = nav
	return nav
}

// CostGridFor exposes the per-floor cost grid, mainly for the snapshot
// endpoint and tests.
func (mgr *Manager) CostGridFor(floor int) *CostGrid {
	mgr.mustBeBound()
	return mgr.nav(floor).grid
}

// RegionsFor exposes the per-floor region graph after ensuring it is
// rebuilt.
func (mgr *Manager) RegionsFor(floor int) *RegionGraph {
	mgr.mustBeBound()
	nav := mgr.nav(floor)
	nav.regions.RebuildAll()
	return nav.regions
}

// IsWalkable answers the public occupancy query for one cell.
func (mgr *Manager) IsWalkable(coord grid.TileCoord) bool {
	mgr.mustBeBound()
	return mgr.finder.IsWalkable(coord)
}

// HasLineOfSight answers the public raster visibility query.
func (mgr *Manager) HasLineOfSight(a, b grid.TileCoord) bool {
	mgr.mustBeBound()
	return mgr.finder.HasLineOfSight(a, b)
}

// IsReachable consults the region graph only: a cheap advisory pre-check
// that never runs a search.
func (mgr *Manager) IsReachable(a, b grid.TileCoord) bool {
	mgr.mustBeBound()
	if a.Floor != b.Floor {
		return false
	}
	nav := mgr.nav(a.Floor)
	nav.regions.RebuildAll()
	return nav.regions.IsConnected(a.X, a.Y, b.X, b.Y)
}

func cacheKey(start, goal grid.TileCoord) string {
	return fmt.Sprintf("%d,%d,%d>%d,%d,%d", start.X, start.Y, start.Floor, goal.X, goal.Y, goal.Floor)
}

// FindPath runs a synchronous search: cache first, then the region
// pre-check, then A*. Successful results are cached for the configured
// TTL. Stale or missing cache entries silently fall through to a fresh
// computation.
func (mgr *Manager) FindPath(start, goal grid.TileCoord) PathResult {
	mgr.mustBeBound()

	key := cacheKey(start, goal)
	mgr.cache.Wait()
	if cached, ok := mgr.cache.Get(key); ok {
		mgr.count(cacheHitMetricKey)
		cached.Cached = true
		cached.Path = append([]grid.TileCoord(nil), cached.Path...)
		return cached
	}
	mgr.count(cacheMissMetricKey)

	if start.Floor != goal.Floor {
		return failure(ReasonFloorMismatch, 0)
	}

	// The region graph is 4-connected, so the advisory skip is only
	// sound when the search cannot slip through a diagonal gap the
	// fill treats as a cut.
	if !mgr.cfg.Finder.AllowDiagonal || mgr.cfg.Finder.DiagonalRequiresBothSides {
		nav := mgr.nav(start.Floor)
		nav.regions.RebuildAll()
		if nav.grid.IsWalkable(start.X, start.Y) && nav.grid.IsWalkable(goal.X, goal.Y) &&
			!nav.regions.IsConnected(start.X, start.Y, goal.X, goal.Y) {
			mgr.count(regionSkipMetricKey)
			return failure(ReasonRegionCut, 0)
		}
	}

	mgr.count(searchesMetricKey)
	result := mgr.finder.FindPath(start, goal)
	if result.Success && mgr.cfg.SmoothResults {
		result.Path = mgr.finder.SmoothPath(result.Path)
	}
	if result.Success {
		cost := int64(len(result.Path)) + 1
		mgr.cache.SetWithTTL(key, result, cost, mgr.cfg.CacheTTL)
		mgr.cache.Wait()
	}
	return result
}

// Request enqueues an asynchronous search. The callback runs during a
// later ProcessRequests drain, FIFO within the queue. Returns false when
// the queue is full and the request was dropped.
func (mgr *Manager) Request(start, goal grid.TileCoord, fn Callback) bool {
	mgr.mustBeBound()
	ok := mgr.queue.Push(Request{Start: start, Goal: goal, Callback: fn})
	if !ok {
		mgr.count(requestsDropMetricKey)
	}
	return ok
}

// PendingRequests reports the queue occupancy.
func (mgr *Manager) PendingRequests() int { return mgr.queue.Len() }

// ProcessRequests drains at most MaxRequestsPerTick queued requests,
// invoking each callback before returning. The hub calls it once per
// tick.
func (mgr *Manager) ProcessRequests() int {
	mgr.mustBeBound()
	batch := mgr.queue.PopUpTo(mgr.cfg.MaxRequestsPerTick)
	for _, req := range batch {
		result := mgr.FindPath(req.Start, req.Goal)
		if req.Callback != nil {
			req.Callback(result)
		}
		mgr.count(requestsDoneMetricKey)
	}
	return len(batch)
}

// ClearCache drops every cached result. Callers that mutate map topology
// or entity blocking state must invoke OnMapChanged, which includes this;
// nothing invalidates reactively.
func (mgr *Manager) ClearCache() {
	mgr.cache.Clear()
}

// OnMapChanged is the single invalidation entry point paired with every
// mutation site: it drops cached results and all per-floor cost grids and
// region graphs, which rebuild lazily.
func (mgr *Manager) OnMapChanged() {
	mgr.mustBeBound()
	mgr.ClearCache()
	mgr.floors = make(map[int]*floorNav)
}

// GetNearestWalkable searches outward from target along expanding square
// ring boundaries and returns the first walkable cell found on the
// smallest ring, or false once maxRadius is exhausted.
func (mgr *Manager) GetNearestWalkable(target grid.TileCoord, maxRadius int) (grid.TileCoord, bool) {
	mgr.mustBeBound()
	if maxRadius < 0 {
		maxRadius = 0
	}
	for radius := 0; radius <= maxRadius; radius++ {
		if coord, ok := mgr.firstWalkableOnRing(target, radius); ok {
			return coord, true
		}
	}
	return grid.TileCoord{}, false
}

// firstWalkableOnRing scans one square ring boundary in a fixed order
// (top row, bottom row, then the side columns) so results are
// deterministic.
func (mgr *Manager) firstWalkableOnRing(center grid.TileCoord, radius int) (grid.TileCoord, bool) {
	if radius == 0 {
		if mgr.finder.IsWalkable(center) {
			return center, true
		}
		return grid.TileCoord{}, false
	}
	for x := center.X - radius; x <= center.X+radius; x++ {
		for _, y := range [2]int{center.Y - radius, center.Y + radius} {
			coord := grid.TileCoord{X: x, Y: y, Floor: center.Floor}
			if mgr.finder.IsWalkable(coord) {
				return coord, true
			}
		}
	}
	for y := center.Y - radius + 1; y <= center.Y+radius-1; y++ {
		for _, x := range [2]int{center.X - radius, center.X + radius} {
			coord := grid.TileCoord{X: x, Y: y, Floor: center.Floor}
			if mgr.finder.IsWalkable(coord) {
				return coord, true
			}
		}
	}
	return grid.TileCoord{}, false
}

func (mgr *Manager) count(key string) {
	if mgr.metrics != nil {
		mgr.metrics.Add(key, 1)
	}
}
