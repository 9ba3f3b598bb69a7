package commands

import (
	"fmt"

	"github.com/marmos91/chunkcache/internal/logger"
	"github.com/marmos91/chunkcache/pkg/chunkcache"
	"github.com/marmos91/chunkcache/pkg/config"
	"github.com/marmos91/chunkcache/pkg/metrics"
	"github.com/spf13/cobra"
)

var (
	cacheObjects   int
	cacheLookups   int
	cacheQuerySize uint64
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Exercise the chunk cache against a synthetic backing store",
	Long: `cache configures a chunk cache from the loaded configuration and
drives lookup_or_reserve/publish against a deterministic fake backing store
across a set of synthetic objects, printing final stats.`,
	RunE: runCache,
}

func init() {
	cacheCmd.Flags().IntVar(&cacheObjects, "objects", 8, "number of synthetic objects to cache")
	cacheCmd.Flags().IntVar(&cacheLookups, "lookups", 10000, "number of lookup_or_reserve calls to perform")
	cacheCmd.Flags().Uint64Var(&cacheQuerySize, "query-size", 64, "bytes requested per lookup")
}

func runCache(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.Init(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	startMetricsServer(cfg)

	if !cfg.ChunkCache.Enabled {
		return fmt.Errorf("chunk_cache.enabled is false in the loaded configuration")
	}

	backing := chunkcache.BackingDRAM
	if cfg.ChunkCache.Type == "file" {
		backing = chunkcache.BackingPersistentMem
	}

	cache := chunkcache.New()
	if cm := metrics.NewCacheMetrics(); cm != nil {
		cache.SetMetrics(cm)
	}

	if err := cache.Configure(chunkcache.ChunkCacheConfig{
		CapacityBytes:    uint64(cfg.ChunkCache.Size),
		BucketCount:      cfg.ChunkCache.HashSize,
		Backing:          backing,
		PersistentMemDir: cfg.ChunkCache.DirectoryPath,
		DefaultChunkSize: uint64(cfg.ChunkCache.DefaultChunkSize),
	}); err != nil {
		return fmt.Errorf("failed to configure chunk cache: %w", err)
	}
	defer cache.Close()

	objectIDs := make([]uint64, cacheObjects)
	for i := range objectIDs {
		objectIDs[i] = newSyntheticObjectID()
	}
	store := &fakeBackingStore{}

	buf := make([]byte, cacheQuerySize)
	for i := 0; i < cacheLookups; i++ {
		objectID := objectIDs[i%len(objectIDs)]
		offset := uint64(i%1024) * cacheQuerySize

		result, err := cache.LookupOrReserve("chunkbench-object", objectID, offset, cacheQuerySize, buf)
		if err != nil {
			return fmt.Errorf("lookup_or_reserve failed: %w", err)
		}
		if result.Outcome != chunkcache.MissReservation {
			continue
		}

		fillBuf := make([]byte, result.Reservation.Size())
		store.read(objectID, result.Reservation.Offset(), fillBuf)
		if err := cache.Publish(result.Reservation, fillBuf); err != nil {
			return fmt.Errorf("publish failed: %w", err)
		}
	}

	stats := cache.Stats()
	fmt.Printf("hits=%d misses=%d allocations=%d removals=%d bytes_used=%d\n",
		stats.Hits, stats.Misses, stats.Allocations, stats.Removals, stats.BytesUsed)
	return nil
}
