package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/flowscope/pkg/cache"
	"github.com/matzehuels/flowscope/pkg/hgraph"
	"github.com/matzehuels/flowscope/pkg/layout"
	"github.com/matzehuels/flowscope/pkg/session"
)

// Store backends.
const (
	storeMemory = "memory"
	storeFile   = "file"
	storeRedis  = "redis"
	storeMongo  = "mongo"
)

// Config is the contents of config.toml. Command-line flags override it.
type Config struct {
	Layout    LayoutConfig     `toml:"layout"`
	Constants hgraph.Constants `toml:"constants"`
	Server    ServerConfig     `toml:"server"`
	Store     StoreConfig      `toml:"store"`
	Cache     CacheConfig      `toml:"cache"`
}

// LayoutConfig selects the engine and the debounce window.
type LayoutConfig struct {
	Engine    string   `toml:"engine"`
	Direction string   `toml:"direction"`
	Debounce  duration `toml:"debounce"`

	// Budget is the viewport area for smart collapse. Zero disables it.
	Budget float64 `toml:"budget"`
}

type ServerConfig struct {
	Addr    string `toml:"addr"`
	Metrics bool   `toml:"metrics"`
}

// StoreConfig selects where sessions are persisted.
type StoreConfig struct {
	Backend  string   `toml:"backend"`
	Dir      string   `toml:"dir"`
	TTL      duration `toml:"ttl"`
	RedisURL string   `toml:"redis_addr"`
	Prefix   string   `toml:"key_prefix"`
	MongoURI string   `toml:"mongo_uri"`
	Database string   `toml:"database"`
}

type CacheConfig struct {
	Disabled bool `toml:"disabled"`
	// Memory keeps layouts in an in-process LRU instead of on disk.
	Memory bool `toml:"memory"`
	Size   int  `toml:"size"`
}

// duration decodes TOML strings such as "150ms".
type duration struct{ time.Duration }

func (d *duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// defaultConfig returns the configuration used when no file exists.
func defaultConfig() Config {
	return Config{
		Layout: LayoutConfig{
			Engine:    layout.EngineLayered,
			Direction: layout.DirectionDown,
			Debounce:  duration{session.DefaultDebounce},
			Budget:    layout.DefaultViewportBudget,
		},
		Constants: hgraph.DefaultConstants(),
		Server:    ServerConfig{Addr: "localhost:8080", Metrics: true},
		Store:     StoreConfig{Backend: storeFile, TTL: duration{session.DefaultTTL}},
		Cache:     CacheConfig{Size: 256},
	}
}

// loadConfig reads path over the defaults. An empty path reads the default
// location; a missing default file is not an error.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	explicit := path != ""
	if !explicit {
		dir, err := configDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(dir, "config.toml")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// engine builds the configured layout engine behind the layout cache.
func (cfg Config) engine(noCache bool) (layout.Engine, error) {
	e, err := layout.NewEngine(cfg.Layout.Engine, cfg.Layout.Direction)
	if err != nil {
		return nil, err
	}
	c, err := cfg.newCache(noCache)
	if err != nil {
		return nil, err
	}
	return layout.NewCachedEngine(e, c, cache.NewDefaultKeyer()), nil
}

func (cfg Config) newCache(noCache bool) (cache.Cache, error) {
	switch {
	case noCache || cfg.Cache.Disabled:
		return cache.NewNullCache(), nil
	case cfg.Cache.Memory:
		return cache.NewMemoryCache(cfg.Cache.Size)
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(filepath.Join(dir, "layouts"))
}

// policy returns the smart collapse policy, or nil when the budget is zero.
func (cfg Config) policy() layout.CollapsePolicy {
	if cfg.Layout.Budget <= 0 {
		return nil
	}
	return layout.SmartCollapse{Budget: cfg.Layout.Budget}
}

// openStore connects the configured session store.
func (cfg Config) openStore(ctx context.Context) (session.Store, error) {
	ttl := cfg.Store.TTL.Duration
	switch cfg.Store.Backend {
	case storeMemory:
		return session.NewMemoryStore(ttl), nil
	case storeFile, "":
		return session.NewFileStore(cfg.Store.Dir, ttl)
	case storeRedis:
		rc := session.RedisConfig{Addr: cfg.Store.RedisURL, TTL: ttl}
		if cfg.Store.Prefix != "" {
			rc.Keyer = cache.NewScopedKeyer(nil, cfg.Store.Prefix)
		}
		return session.NewRedisStore(ctx, rc)
	case storeMongo:
		return session.NewMongoStore(ctx, session.MongoConfig{URI: cfg.Store.MongoURI, Database: cfg.Store.Database, TTL: ttl})
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}
