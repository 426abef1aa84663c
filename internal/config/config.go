package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/mule-ai/inkdash/pkg/preset"
)

const (
	ConfigPath = ".config/inkdash/config.yaml"
	EnvPrefix  = "INKDASH"

	DefaultWidth  = 800
	DefaultHeight = 480
	DefaultAddr   = ":8080"
)

// Instance is a configured plugin run on a schedule.
type Instance struct {
	Name     string         `mapstructure:"name" json:"name"`
	Plugin   string         `mapstructure:"plugin" json:"plugin"`
	Schedule string         `mapstructure:"schedule" json:"schedule"`
	Settings map[string]any `mapstructure:"settings" json:"settings,omitempty"`
}

// Store is the device configuration backed by a config file and the
// environment. It implements render.Device.
type Store struct {
	mu        sync.RWMutex
	v         *viper.Viper
	presets   *preset.Registry
	instances []Instance
	getenv    func(string) string
	watcher   *fsnotify.Watcher
	logger    logr.Logger
}

// DefaultPath returns the config file location in the user's home directory.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Base(ConfigPath)
	}
	return filepath.Join(home, ConfigPath)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("device.resolution", []int{DefaultWidth, DefaultHeight})
	v.SetDefault("device.orientation", "horizontal")
	v.SetDefault("device.timezone", "Europe/Berlin")
	v.SetDefault("device.language", "de")
	v.SetDefault("server.addr", DefaultAddr)
}

// Load reads the config file at path. A missing file is created with the
// default settings. An empty path uses defaults and the environment only.
func Load(path string, l logr.Logger) (*Store, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	}
	return New(v, l)
}

// New builds a store on top of v, which may already carry bound flags.
func New(v *viper.Viper, l logr.Logger) (*Store, error) {
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	s := &Store{
		v:      v,
		getenv: os.Getenv,
		logger: l.WithName("config"),
	}

	if path := v.ConfigFileUsed(); path != "" {
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
			s.logger.Info("Config file not found, writing defaults", "path", path)
			if err := s.Save(path); err != nil {
				return nil, err
			}
		}
	}

	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Save writes the current configuration to path.
func (s *Store) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

func (s *Store) reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadLocked()
}

// reloadLocked decodes presets and instances from viper. s.mu must be held
// for writing.
func (s *Store) reloadLocked() error {
	presets, err := decodePresets(s.v.GetStringMap("presets"))
	if err != nil {
		return err
	}
	instances, err := decodeInstances(s.v.Get("instances"))
	if err != nil {
		return err
	}
	s.presets = preset.Builtin().With(presets...)
	s.instances = instances
	return nil
}

func decodePresets(raw map[string]any) ([]preset.Preset, error) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]preset.Preset, 0, len(names))
	for _, name := range names {
		p, err := preset.Decode(name, raw[name])
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func decodeInstances(raw any) ([]Instance, error) {
	if raw == nil {
		return nil, nil
	}
	var instances []Instance
	if err := mapstructure.Decode(raw, &instances); err != nil {
		return nil, fmt.Errorf("decode instances: %w", err)
	}
	seen := make(map[string]bool, len(instances))
	for i, inst := range instances {
		if inst.Name == "" || inst.Plugin == "" {
			return nil, fmt.Errorf("instance %d: name and plugin are required", i)
		}
		if seen[inst.Name] {
			return nil, fmt.Errorf("instance %q is defined twice", inst.Name)
		}
		seen[inst.Name] = true
		if instances[i].Settings == nil {
			instances[i].Settings = map[string]any{}
		}
	}
	return instances, nil
}

// Watch reloads the store whenever the config file changes and then calls
// onChange. A reload error keeps the previous presets and instances. The file
// is re-read under the store lock so readers never see a half-applied config.
// Watching a store without a config file is a no-op.
func (s *Store) Watch(onChange func()) error {
	path := s.v.ConfigFileUsed()
	if path == "" {
		return nil
	}
	path = filepath.Clean(path)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		return errors.New("config is already watched")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	// Editors often replace the file, so the directory is watched.
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	s.watcher = w

	go func() {
		for {
			select {
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(e.Name) != path || e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := s.readAndReload(); err != nil {
					s.logger.Error(err, "Failed to reload config", "file", e.Name)
					continue
				}
				s.logger.Info("Config reloaded", "file", e.Name, "op", e.Op.String())
				if onChange != nil {
					onChange()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Error(err, "Config watcher error")
			}
		}
	}()
	return nil
}

func (s *Store) readAndReload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	return s.reloadLocked()
}

// Close stops watching the config file.
func (s *Store) Close() error {
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.Close()
}

func deviceKey(key string) string {
	if strings.Contains(key, ".") {
		return key
	}
	return "device." + key
}

// GetConfig returns a device setting. Bare keys such as "orientation" are
// looked up under "device.".
func (s *Store) GetConfig(key string, def any) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k := deviceKey(key)
	if !s.v.IsSet(k) {
		return def
	}
	return s.v.Get(k)
}

// LoadEnvKey returns a secret from the process environment.
func (s *Store) LoadEnvKey(name string) string {
	return strings.TrimSpace(s.getenv(name))
}

func (s *Store) GetResolution() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := s.v.GetIntSlice("device.resolution")
	if len(res) != 2 || res[0] <= 0 || res[1] <= 0 {
		return DefaultWidth, DefaultHeight
	}
	return res[0], res[1]
}

func (s *Store) ServerAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetString("server.addr")
}

func (s *Store) Presets() *preset.Registry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.presets
}

func (s *Store) Instances() []Instance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Instance(nil), s.instances...)
}

func (s *Store) Instance(name string) (Instance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, inst := range s.instances {
		if inst.Name == name {
			return inst, true
		}
	}
	return Instance{}, false
}
