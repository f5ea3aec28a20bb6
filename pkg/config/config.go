package config

import (
	"errors"
	"fmt"
	"gopkg.in/yaml.v3"
	"os"
	"path/filepath"
	"time"
)

const (
	Prod = "prod"
	Dev  = "dev"
	Test = "test"
)

var ErrInvalid = errors.New("invalid feed config")

type Feed struct {
	Feed FeedBox `yaml:"feed"`
}

type FeedBox struct {
	Env     string  `yaml:"env"`
	Logs    Logs    `yaml:"logs"`
	Buffer  Buffer  `yaml:"buffer"`
	Window  Window  `yaml:"window"`
	Physics Physics `yaml:"physics"`
	Load    Load    `yaml:"load"`
	Lock    Lock    `yaml:"lock"`
	Polling Polling `yaml:"polling"`
	Source  Source  `yaml:"source"`
	Assets  Assets  `yaml:"assets"`
}

type Logs struct {
	Level   string `yaml:"level"`   // debug|info|warn|error
	Console bool   `yaml:"console"` // human readable output instead of json
	File    string `yaml:"file"`    // used by the terminal view only
}

type Buffer struct {
	MaxItems int `yaml:"max_items"`
	Seed     int `yaml:"seed"` // number of items the buffer starts with
}

type Window struct {
	ItemHeight     float64 `yaml:"item_height"`
	ViewportHeight float64 `yaml:"viewport_height"` // used until a mount reports the real one
	Overscan       int     `yaml:"overscan"`        // extra items kept mounted on each side
}

type Physics struct {
	Frame           time.Duration `yaml:"frame"`
	WheelMultiplier float64       `yaml:"wheel_multiplier"`
	Friction        float64       `yaml:"friction"` // 0 < friction < 1
	MinVelocity     float64       `yaml:"min_velocity"`
	MaxVelocity     float64       `yaml:"max_velocity"`
	ArrowBoost      float64       `yaml:"arrow_boost"`
	PageBoost       float64       `yaml:"page_boost"`
}

type Load struct {
	ItemsPerLoad    int           `yaml:"items_per_load"`
	MinScrollOffset float64       `yaml:"min_scroll_offset"`
	TopThreshold    float64       `yaml:"top_threshold"`
	BottomThreshold float64       `yaml:"bottom_threshold"`
	Settle          time.Duration `yaml:"settle"`
	RestoreAttempts int           `yaml:"restore_attempts"`
	RestoreBackoff  time.Duration `yaml:"restore_backoff"`
}

type Lock struct {
	Tolerance float64       `yaml:"tolerance"`
	Linger    time.Duration `yaml:"linger"`
}

type Polling struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

type Source struct {
	Latency  time.Duration `yaml:"latency"`   // simulated fetch delay
	ImageDir string        `yaml:"image_dir"` // images referenced by synthetic items
}

type Assets struct {
	Scheme      string        `yaml:"scheme"`
	AllowedDirs []string      `yaml:"allowed_dirs"`
	Extensions  []string      `yaml:"extensions"`
	CacheSize   int64         `yaml:"cache_size"` // bytes
	CacheTTL    time.Duration `yaml:"cache_ttl"`
	ReadRate    float64       `yaml:"read_rate"` // disk reads per second
	ReadBurst   int           `yaml:"read_burst"`
}

func (c *Feed) IsProd() bool { return c.Feed.Env == Prod }
func (c *Feed) IsDev() bool  { return c.Feed.Env == Dev }
func (c *Feed) IsTest() bool { return c.Feed.Env == Test }

// Default returns a fully populated config with the stock tuning values.
func Default() *Feed {
	cfg := &Feed{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads the yaml file by path, fills omitted values with defaults and validates the result.
func LoadConfig(path string) (*Feed, error) {
	path, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute config filepath: %w", err)
	}

	if _, err = os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config yaml file %s: %w", path, err)
	}

	cfg := &Feed{}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml from %s: %w", path, err)
	}

	if cfg.Feed.Env == "" {
		cfg.Feed.Env = os.Getenv("APP_ENV")
	}

	cfg.applyDefaults()

	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Feed) applyDefaults() {
	f := &c.Feed
	if f.Env == "" {
		f.Env = Dev
	}
	if f.Logs.Level == "" {
		f.Logs.Level = "info"
	}
	if f.Logs.File == "" {
		f.Logs.File = "feedview.log"
	}
	if f.Buffer.MaxItems == 0 {
		f.Buffer.MaxItems = 500
	}
	if f.Buffer.Seed == 0 {
		f.Buffer.Seed = 5
	}
	if f.Window.ItemHeight == 0 {
		f.Window.ItemHeight = 110
	}
	if f.Window.ViewportHeight == 0 {
		f.Window.ViewportHeight = 300
	}
	if f.Window.Overscan == 0 {
		f.Window.Overscan = 2
	}
	if f.Physics.Frame == 0 {
		f.Physics.Frame = 16 * time.Millisecond
	}
	if f.Physics.WheelMultiplier == 0 {
		f.Physics.WheelMultiplier = 0.25
	}
	if f.Physics.Friction == 0 {
		f.Physics.Friction = 0.92
	}
	if f.Physics.MinVelocity == 0 {
		f.Physics.MinVelocity = 0.5
	}
	if f.Physics.MaxVelocity == 0 {
		f.Physics.MaxVelocity = 60
	}
	if f.Physics.ArrowBoost == 0 {
		f.Physics.ArrowBoost = 10
	}
	if f.Physics.PageBoost == 0 {
		f.Physics.PageBoost = 40
	}
	if f.Load.ItemsPerLoad == 0 {
		f.Load.ItemsPerLoad = 3
	}
	if f.Load.MinScrollOffset == 0 {
		f.Load.MinScrollOffset = 50
	}
	if f.Load.BottomThreshold == 0 {
		f.Load.BottomThreshold = 200
	}
	if f.Load.Settle == 0 {
		f.Load.Settle = 100 * time.Millisecond
	}
	if f.Load.RestoreAttempts == 0 {
		f.Load.RestoreAttempts = 3
	}
	if f.Load.RestoreBackoff == 0 {
		f.Load.RestoreBackoff = 16 * time.Millisecond
	}
	if f.Lock.Tolerance == 0 {
		f.Lock.Tolerance = 1
	}
	if f.Lock.Linger == 0 {
		f.Lock.Linger = 200 * time.Millisecond
	}
	if f.Polling.Interval == 0 {
		f.Polling.Interval = 3 * time.Second
	}
	if f.Source.ImageDir == "" {
		f.Source.ImageDir = "assets"
	}
	if f.Assets.Scheme == "" {
		f.Assets.Scheme = "myprotocol"
	}
	if len(f.Assets.AllowedDirs) == 0 {
		f.Assets.AllowedDirs = []string{f.Source.ImageDir}
	}
	if len(f.Assets.Extensions) == 0 {
		f.Assets.Extensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".svg"}
	}
	if f.Assets.CacheSize == 0 {
		f.Assets.CacheSize = 64 << 20
	}
	if f.Assets.CacheTTL == 0 {
		f.Assets.CacheTTL = time.Minute
	}
	if f.Assets.ReadRate == 0 {
		f.Assets.ReadRate = 200
	}
	if f.Assets.ReadBurst == 0 {
		f.Assets.ReadBurst = 20
	}
}

// Validate rejects combinations the engine cannot run with.
func (c *Feed) Validate() error {
	f := c.Feed
	switch {
	case f.Window.ItemHeight <= 0:
		return fmt.Errorf("%w: window.item_height must be positive", ErrInvalid)
	case f.Window.ViewportHeight < 0:
		return fmt.Errorf("%w: window.viewport_height must not be negative", ErrInvalid)
	case f.Window.Overscan < 0:
		return fmt.Errorf("%w: window.overscan must not be negative", ErrInvalid)
	case f.Buffer.MaxItems <= 0:
		return fmt.Errorf("%w: buffer.max_items must be positive", ErrInvalid)
	case f.Buffer.Seed < 0:
		return fmt.Errorf("%w: buffer.seed must not be negative", ErrInvalid)
	case f.Load.ItemsPerLoad <= 0:
		return fmt.Errorf("%w: load.items_per_load must be positive", ErrInvalid)
	case f.Buffer.MaxItems < f.Load.ItemsPerLoad:
		return fmt.Errorf("%w: buffer.max_items (%d) is smaller than load.items_per_load (%d)",
			ErrInvalid, f.Buffer.MaxItems, f.Load.ItemsPerLoad)
	case f.Physics.Friction <= 0 || f.Physics.Friction >= 1:
		return fmt.Errorf("%w: physics.friction must be within (0, 1)", ErrInvalid)
	case f.Physics.MinVelocity <= 0 || f.Physics.MinVelocity >= f.Physics.MaxVelocity:
		return fmt.Errorf("%w: physics.min_velocity must be within (0, max_velocity)", ErrInvalid)
	case f.Physics.Frame <= 0:
		return fmt.Errorf("%w: physics.frame must be positive", ErrInvalid)
	case f.Load.RestoreAttempts <= 0:
		return fmt.Errorf("%w: load.restore_attempts must be positive", ErrInvalid)
	case f.Lock.Tolerance < 0:
		return fmt.Errorf("%w: lock.tolerance must not be negative", ErrInvalid)
	case f.Polling.Interval <= 0:
		return fmt.Errorf("%w: polling.interval must be positive", ErrInvalid)
	}
	return nil
}
