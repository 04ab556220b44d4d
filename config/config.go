/*
Package config loads the TOML configuration of a segmentation session.

	[logging]
	logfile = "segedit.log"
	max_log_size = 500  # MB
	max_log_age = 30    # days

	[volume]
	cube_edge = 128
	mag = 1
	scale = [8.0, 8.0, 8.0]
	background = 0
	region_min = [0, 0, 0]
	region_max = [1023, 1023, 1023]

	[store]
	path = "cubes"        # relative to this file
	in_memory = false
	compression = "zstd"  # none, snappy or zstd
	cache_mb = 64
	load_workers = 8

	[brush]
	shape = "round"
	mode = "3d"
	radius = 40.0
	view = "xy"

	[mutations]
	logfile = "mutations.log"

	[kafka]
	servers = ["localhost:9092"]
	topic = "segedit-mutations"
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/janelia-flyem/segedit/cubestore"
	"github.com/janelia-flyem/segedit/editor"
	"github.com/janelia-flyem/segedit/notify"
	"github.com/janelia-flyem/segedit/vol"
)

// Config is the parsed TOML configuration.
type Config struct {
	Logging   vol.LogConfig
	Volume    VolumeConfig
	Store     StoreConfig
	Brush     BrushConfig
	Mutations MutationsConfig
	Kafka     notify.KafkaConfig

	location string
}

// VolumeConfig describes the label volume and the editable region.
type VolumeConfig struct {
	CubeEdge   int32      `toml:"cube_edge"`
	Mag        int32      `toml:"mag"`
	Scale      [3]float64 `toml:"scale"`
	Background uint64     `toml:"background"`
	RegionMin  [3]int32   `toml:"region_min"`
	RegionMax  [3]int32   `toml:"region_max"`
}

// StoreConfig describes the persistent cube store.  An empty Path without
// InMemory disables persistence.
type StoreConfig struct {
	Path        string
	InMemory    bool   `toml:"in_memory"`
	Compression string `toml:"compression"`
	CacheMB     int    `toml:"cache_mb"`
	LoadWorkers int    `toml:"load_workers"`
}

// BrushConfig is the initial brush of a session.
type BrushConfig struct {
	Shape  string
	Mode   string
	Radius float64
	View   string
}

// MutationsConfig describes where mutation records are logged besides kafka.
type MutationsConfig struct {
	Logfile string
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Volume: VolumeConfig{
			CubeEdge:  cubestore.DefaultGeometry.CubeEdge,
			Mag:       1,
			Scale:     [3]float64{1, 1, 1},
			RegionMax: [3]int32{1023, 1023, 1023},
		},
		Store: StoreConfig{
			Compression: "snappy",
			LoadWorkers: cubestore.DefaultLoadWorkers,
		},
		Brush: BrushConfig{Shape: "round", Mode: "3d", Radius: 10, View: "xy"},
	}
}

// Load reads a TOML file over the defaults.  Relative paths in the file are
// interpreted relative to the file's directory.
func Load(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("no TOML configuration file provided")
	}
	c := Default()
	if _, err := toml.DecodeFile(filename, c); err != nil {
		return nil, fmt.Errorf("could not decode TOML config: %v", err)
	}
	c.location = filename
	if err := c.convertPathsToAbsolute(filename); err != nil {
		return nil, fmt.Errorf("could not convert relative paths to absolute paths in TOML config: %v", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	vol.Debugf("config from %s: %+v\n", filename, *c)
	return c, nil
}

// Location returns the file the configuration was loaded from, if any.
func (c *Config) Location() string {
	return c.location
}

func convertToAbsolute(path, dir string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	return filepath.Abs(filepath.Join(dir, path))
}

// Some settings can be given as paths relative to the TOML file's own directory.
func (c *Config) convertPathsToAbsolute(configPath string) error {
	var err error
	configDir := filepath.Dir(configPath)

	// [logging].logfile
	if c.Logging.Logfile != "" {
		if c.Logging.Logfile, err = convertToAbsolute(c.Logging.Logfile, configDir); err != nil {
			return fmt.Errorf("error converting logfile setting to absolute path")
		}
	}

	// [store].path
	if c.Store.Path != "" {
		if c.Store.Path, err = convertToAbsolute(c.Store.Path, configDir); err != nil {
			return fmt.Errorf("error converting store path %q to absolute path", c.Store.Path)
		}
	}

	// [mutations].logfile
	if c.Mutations.Logfile != "" {
		if c.Mutations.Logfile, err = convertToAbsolute(c.Mutations.Logfile, configDir); err != nil {
			return fmt.Errorf("error converting mutations logfile setting to absolute path")
		}
	}
	return nil
}

// Validate checks settings that can't be fixed up with defaults.
func (c *Config) Validate() error {
	if c.Volume.CubeEdge <= 0 {
		return fmt.Errorf("[volume] cube_edge must be positive, got %d", c.Volume.CubeEdge)
	}
	if c.Volume.Mag <= 0 {
		return fmt.Errorf("[volume] mag must be positive, got %d", c.Volume.Mag)
	}
	for i, s := range c.Volume.Scale {
		if s <= 0 {
			return fmt.Errorf("[volume] scale along axis %d must be positive, got %g", i, s)
		}
	}
	if c.Region().Empty() {
		return fmt.Errorf("[volume] editable region %s is empty", c.Region())
	}
	if _, err := cubestore.ParseCompression(c.Store.Compression); err != nil {
		return fmt.Errorf("[store] %v", err)
	}
	if _, err := c.NewBrush(); err != nil {
		return fmt.Errorf("[brush] %v", err)
	}
	return nil
}

// Geometry returns the cube geometry of the volume.
func (c *Config) Geometry() cubestore.Geometry {
	s := c.Volume.Scale
	return cubestore.Geometry{
		CubeEdge: c.Volume.CubeEdge,
		Mag:      c.Volume.Mag,
		Scale:    r3.Vec{X: s[0], Y: s[1], Z: s[2]},
	}
}

// Region returns the editable region.
func (c *Config) Region() vol.Bounds {
	return vol.Bounds{Min: vol.Point3d(c.Volume.RegionMin), Max: vol.Point3d(c.Volume.RegionMax)}
}

// Persistent is true if cubes are kept in a backing store.
func (c *Config) Persistent() bool {
	return c.Store.Path != "" || c.Store.InMemory
}

// BackingConfig returns the settings of the backing store.
func (c *Config) BackingConfig() (cubestore.BackingConfig, error) {
	compression, err := cubestore.ParseCompression(c.Store.Compression)
	if err != nil {
		return cubestore.BackingConfig{}, err
	}
	if c.Store.Path != "" && !c.Store.InMemory {
		if err := os.MkdirAll(c.Store.Path, 0755); err != nil {
			return cubestore.BackingConfig{}, fmt.Errorf("can't create store directory %q: %v", c.Store.Path, err)
		}
	}
	return cubestore.BackingConfig{
		Path:        c.Store.Path,
		InMemory:    c.Store.InMemory,
		Compression: compression,
		CacheBytes:  c.Store.CacheMB << 20,
	}, nil
}

// NewBrush returns the configured initial brush.
func (c *Config) NewBrush() (editor.Brush, error) {
	shape, err := editor.ParseShape(c.Brush.Shape)
	if err != nil {
		return editor.Brush{}, err
	}
	mode, err := editor.ParseMode(c.Brush.Mode)
	if err != nil {
		return editor.Brush{}, err
	}
	view, err := editor.ParseAxis(c.Brush.View)
	if err != nil {
		return editor.Brush{}, err
	}
	if c.Brush.Radius <= 0 {
		return editor.Brush{}, fmt.Errorf("radius must be positive, got %g", c.Brush.Radius)
	}
	return editor.NewBrush(shape, mode, c.Brush.Radius, view), nil
}

// NewSink returns the mutation sink described by [mutations] and [kafka], or nil
// if neither is configured.  Records kafka rejects go to the mutation log file.
func (c *Config) NewSink() (notify.Sink, error) {
	var fileSink notify.Sink
	if c.Mutations.Logfile != "" {
		fileSink = notify.NewFileSink(c.Mutations.Logfile, c.Logging.MaxSize, c.Logging.MaxAge)
	}
	if !c.Kafka.Enabled() {
		return fileSink, nil
	}
	kafka, err := notify.NewKafkaSink(c.Kafka, fileSink)
	if err != nil {
		return nil, err
	}
	if fileSink == nil {
		return kafka, nil
	}
	return notify.Multi{kafka, fileSink}, nil
}
