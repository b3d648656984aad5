package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/agrisync/backend/internal/cache"
	"github.com/onnwee/agrisync/backend/internal/config"
	"github.com/onnwee/agrisync/backend/internal/logger"
	"github.com/onnwee/agrisync/backend/internal/store"
)

func main() {
	statsCmd := flag.NewFlagSet("stats", flag.ExitOnError)
	keysCmd := flag.NewFlagSet("keys", flag.ExitOnError)
	purgeCmd := flag.NewFlagSet("purge", flag.ExitOnError)
	invalidateCmd := flag.NewFlagSet("invalidate", flag.ExitOnError)
	clearCmd := flag.NewFlagSet("clear", flag.ExitOnError)

	keysPrefix := keysCmd.String("prefix", "", "Only list keys starting with this prefix (without the store namespace)")
	invPattern := invalidateCmd.String("pattern", "", "Key pattern, '*' matches any run of characters")
	invTags := invalidateCmd.String("tags", "", "Comma-separated tags; entries carrying any of them match")
	invBefore := invalidateCmd.Duration("older-than", 0, "Only entries written more than this long ago")
	clearYes := clearCmd.Bool("yes", false, "Confirm removing every cache entry")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	_ = godotenv.Load()
	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	st, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open cache store: %v", err)
	}
	if c, ok := st.(store.Closer); ok {
		defer c.Close()
	}

	e := cache.New(st, cache.Config{
		MaxMemoryEntries: cfg.CacheMaxMemoryEntries,
		EnableMetrics:    cfg.CacheEnableMetrics,
		KeyPrefix:        cfg.CacheKeyPrefix,
		MetricsKey:       cfg.CacheMetricsKey,
	})

	switch os.Args[1] {
	case "stats":
		statsCmd.Parse(os.Args[2:])
		runStats(ctx, e, st, cfg.CacheKeyPrefix)
	case "keys":
		keysCmd.Parse(os.Args[2:])
		runKeys(ctx, st, cfg.CacheKeyPrefix, *keysPrefix)
	case "purge":
		purgeCmd.Parse(os.Args[2:])
		fmt.Printf("Removed %d expired entries\n", e.PurgeExpired(ctx))
	case "invalidate":
		invalidateCmd.Parse(os.Args[2:])
		opts := cache.InvalidateOptions{Pattern: *invPattern}
		if *invTags != "" {
			for _, t := range strings.Split(*invTags, ",") {
				if t = strings.TrimSpace(t); t != "" {
					opts.Tags = append(opts.Tags, t)
				}
			}
		}
		if *invBefore > 0 {
			opts.Before = time.Now().Add(-*invBefore)
		}
		if opts.IsZero() {
			log.Fatal("invalidate needs -pattern, -tags or -older-than")
		}
		fmt.Printf("Removed %d entries\n", e.Invalidate(ctx, opts))
	case "clear":
		clearCmd.Parse(os.Args[2:])
		if !*clearYes {
			log.Fatal("clear removes every cache entry; pass -yes to confirm")
		}
		e.Clear(ctx)
		fmt.Println("Cache cleared")
	default:
		printUsage()
		os.Exit(1)
	}

	if err := e.Close(ctx); err != nil {
		logger.Warn("Failed to save cache metrics", "error", err)
	}
}

func printUsage() {
	fmt.Println("AgriSync - Cache Maintenance Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  cachectl <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  stats        Show persisted metrics and store size")
	fmt.Println("  keys         List persisted cache keys")
	fmt.Println("  purge        Remove expired and unreadable entries")
	fmt.Println("  invalidate   Remove entries by pattern, tags or age")
	fmt.Println("  clear        Remove every cache entry and reset metrics")
	fmt.Println()
	fmt.Println("The store is selected with CACHE_STORE (memory, postgres, redis).")
}

func runStats(ctx context.Context, e *cache.Engine, st store.Store, prefix string) {
	e.Initialize(ctx)
	keys, err := st.Keys(ctx)
	if err != nil {
		log.Fatalf("Failed to list store keys: %v", err)
	}
	persisted := 0
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			persisted++
		}
	}
	out := struct {
		PersistedKeys int           `json:"persistedKeys"`
		Metrics       cache.Metrics `json:"metrics"`
	}{persisted, e.Metrics()}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("Failed to encode stats: %v", err)
	}
}

func runKeys(ctx context.Context, st store.Store, namespace, prefix string) {
	keys, err := st.Keys(ctx)
	if err != nil {
		log.Fatalf("Failed to list store keys: %v", err)
	}
	var out []string
	for _, k := range keys {
		key, ok := strings.CutPrefix(k, namespace)
		if ok && strings.HasPrefix(key, prefix) {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	for _, k := range out {
		fmt.Println(k)
	}
	fmt.Printf("%d keys\n", len(out))
}
