// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvVar names the configuration file for [Load].
const EnvVar = "TSYNE_CONFIG"

// Environment selects which override section applies.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// Config is a complete Tsyne configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	Bridge  BridgeConfig  `yaml:"bridge"`
	Scene   SceneConfig   `yaml:"scene"`
	Sandbox SandboxConfig `yaml:"sandbox"`

	Development *Overrides `yaml:"development,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides holds the per-environment sections. Only non-zero fields
// override.
type Overrides struct {
	Bridge  *BridgeConfig  `yaml:"bridge,omitempty"`
	Scene   *SceneConfig   `yaml:"scene,omitempty"`
	Sandbox *SandboxConfig `yaml:"sandbox,omitempty"`
}

// BridgeConfig configures the channel between an app and its renderer.
type BridgeConfig struct {
	// Encoding is json, cbor or msgpack. Default: json.
	Encoding string `yaml:"encoding"`

	// Compression is none, lz4 or zstd. Default: none.
	Compression string `yaml:"compression"`

	// CompressThreshold is the smallest body worth compressing.
	CompressThreshold int `yaml:"compress_threshold"`

	// MaxFrameBytes rejects larger frames in both directions.
	MaxFrameBytes int `yaml:"max_frame_bytes"`

	// Renderer is the renderer binary spawned when Endpoint is empty.
	Renderer string `yaml:"renderer"`

	// RendererArgs are passed to Renderer.
	RendererArgs []string `yaml:"renderer_args"`

	// SocketPair connects a spawned renderer through fd 3 instead of
	// its stdin and stdout.
	SocketPair bool `yaml:"socket_pair"`

	// Endpoint dials an already running renderer: unix:<path> or
	// tcp:<host:port>.
	Endpoint string `yaml:"endpoint"`

	// TokenFile holds the shared token proven to Endpoint. Only
	// meaningful with an endpoint.
	TokenFile string `yaml:"token_file"`

	// FlushWindow coalesces writes issued within the window, as a Go
	// duration string. Empty disables coalescing.
	FlushWindow string `yaml:"flush_window"`

	// EventBacklogWarning logs when undelivered events pile up past
	// multiples of this count.
	EventBacklogWarning int `yaml:"event_backlog_warning"`
}

// SceneConfig configures scene animation.
type SceneConfig struct {
	// FPS is the animator's frame rate. Default: 60.
	FPS int `yaml:"fps"`
}

// SandboxConfig configures where page code runs.
type SandboxConfig struct {
	// Runtime is fast or isolated. Default: fast (development),
	// isolated (production).
	Runtime string `yaml:"runtime"`

	// MemoryLimitMB caps the isolated runtime's heap.
	MemoryLimitMB int `yaml:"memory_limit_mb"`

	// TimeoutMs bounds one execution.
	TimeoutMs int `yaml:"timeout_ms"`

	// AllowedModules are the host modules page code may require.
	AllowedModules []string `yaml:"allowed_modules"`

	// RunnerPath is the tsyne-sandbox-runner binary.
	RunnerPath string `yaml:"runner_path"`

	// BwrapPath overrides the bubblewrap lookup.
	BwrapPath string `yaml:"bwrap_path"`

	// AcceptWeaker lets an isolated request run on the fast runtime
	// when isolation is unavailable.
	AcceptWeaker *bool `yaml:"accept_weaker"`
}

var (
	encodings    = []string{"json", "cbor", "msgpack"}
	compressions = []string{"none", "lz4", "zstd"}
	runtimes     = []string{"fast", "isolated"}
)

// Default returns the configuration used for anything a file leaves
// unset.
func Default() *Config {
	acceptWeaker := false
	return &Config{
		Environment: Development,
		Bridge: BridgeConfig{
			Encoding:          "json",
			Compression:       "none",
			CompressThreshold: 4096,
			MaxFrameBytes:     10 * 1024 * 1024,
			Renderer:          "tsyne-headless",
		},
		Scene: SceneConfig{FPS: 60},
		Sandbox: SandboxConfig{
			Runtime:        "fast",
			MemoryLimitMB:  64,
			TimeoutMs:      5000,
			AllowedModules: []string{"tsyne/describe"},
			RunnerPath:     "tsyne-sandbox-runner",
			AcceptWeaker:   &acceptWeaker,
		},
	}
}

// Load reads the file named by TSYNE_CONFIG.
func Load() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; point it at a tsyne.yaml or pass --config", EnvVar)
	}
	return LoadFile(path)
}

// Resolve is what binaries call with their --config flag: path when
// set, else the file named by TSYNE_CONFIG, else Default(). The result
// is validated.
func Resolve(path string) (*Config, error) {
	var (
		config *Config
		err    error
	)
	switch {
	case path != "":
		config, err = LoadFile(path)
	case os.Getenv(EnvVar) != "":
		config, err = Load()
	default:
		config = Default()
	}
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFile reads path over the defaults, applies the environment's
// overrides and expands path variables. It does not validate.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	config, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

// Parse decodes a configuration document. ext selects the dialect:
// ".json" and ".jsonc" strip comments first.
func Parse(data []byte, ext string) (*Config, error) {
	if ext == ".json" || ext == ".jsonc" {
		data = jsonc.ToJSON(data)
	}
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	config.applyOverrides()
	config.expandVariables()
	return config, nil
}

func (c *Config) applyOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
		if overrides == nil {
			acceptWeaker := false
			overrides = &Overrides{Sandbox: &SandboxConfig{Runtime: "isolated", AcceptWeaker: &acceptWeaker}}
		}
	}
	if overrides == nil {
		return
	}
	if overrides.Bridge != nil {
		c.Bridge.merge(overrides.Bridge)
	}
	if overrides.Scene != nil && overrides.Scene.FPS != 0 {
		c.Scene.FPS = overrides.Scene.FPS
	}
	if overrides.Sandbox != nil {
		c.Sandbox.merge(overrides.Sandbox)
	}
}

func (b *BridgeConfig) merge(o *BridgeConfig) {
	setString(&b.Encoding, o.Encoding)
	setString(&b.Compression, o.Compression)
	setString(&b.Renderer, o.Renderer)
	setString(&b.Endpoint, o.Endpoint)
	setString(&b.TokenFile, o.TokenFile)
	setString(&b.FlushWindow, o.FlushWindow)
	setInt(&b.CompressThreshold, o.CompressThreshold)
	setInt(&b.MaxFrameBytes, o.MaxFrameBytes)
	setInt(&b.EventBacklogWarning, o.EventBacklogWarning)
	if o.RendererArgs != nil {
		b.RendererArgs = o.RendererArgs
	}
	if o.SocketPair {
		b.SocketPair = true
	}
}

func (s *SandboxConfig) merge(o *SandboxConfig) {
	setString(&s.Runtime, o.Runtime)
	setString(&s.RunnerPath, o.RunnerPath)
	setString(&s.BwrapPath, o.BwrapPath)
	setInt(&s.MemoryLimitMB, o.MemoryLimitMB)
	setInt(&s.TimeoutMs, o.TimeoutMs)
	if o.AllowedModules != nil {
		s.AllowedModules = o.AllowedModules
	}
	if o.AcceptWeaker != nil {
		s.AcceptWeaker = o.AcceptWeaker
	}
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func setInt(dst *int, value int) {
	if value != 0 {
		*dst = value
	}
}

var variablePattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expand(s string) string {
	return variablePattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := variablePattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

func (c *Config) expandVariables() {
	c.Bridge.Renderer = expand(c.Bridge.Renderer)
	c.Bridge.Endpoint = expand(c.Bridge.Endpoint)
	c.Bridge.TokenFile = expand(c.Bridge.TokenFile)
	c.Sandbox.RunnerPath = expand(c.Sandbox.RunnerPath)
	c.Sandbox.BwrapPath = expand(c.Sandbox.BwrapPath)
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("environment %q must be development or production", c.Environment))
	}
	errs = appendEnum(errs, "bridge.encoding", c.Bridge.Encoding, encodings)
	errs = appendEnum(errs, "bridge.compression", c.Bridge.Compression, compressions)
	errs = appendEnum(errs, "sandbox.runtime", c.Sandbox.Runtime, runtimes)
	if c.Bridge.MaxFrameBytes <= 0 || c.Bridge.MaxFrameBytes >= 1<<24 {
		errs = append(errs, fmt.Errorf("bridge.max_frame_bytes %d must be in (0, 16777216)", c.Bridge.MaxFrameBytes))
	}
	if c.Bridge.CompressThreshold < 0 {
		errs = append(errs, errors.New("bridge.compress_threshold must not be negative"))
	}
	if _, err := c.Bridge.FlushWindowDuration(); err != nil {
		errs = append(errs, err)
	}
	if c.Bridge.Endpoint == "" && c.Bridge.Renderer == "" {
		errs = append(errs, errors.New("bridge needs a renderer command or an endpoint"))
	}
	if c.Bridge.TokenFile != "" && c.Bridge.Endpoint == "" {
		errs = append(errs, errors.New("bridge.token_file needs bridge.endpoint"))
	}
	if c.Scene.FPS <= 0 || c.Scene.FPS > 240 {
		errs = append(errs, fmt.Errorf("scene.fps %d must be in [1, 240]", c.Scene.FPS))
	}
	if c.Sandbox.TimeoutMs <= 0 {
		errs = append(errs, errors.New("sandbox.timeout_ms must be positive"))
	}
	if c.Sandbox.MemoryLimitMB <= 0 {
		errs = append(errs, errors.New("sandbox.memory_limit_mb must be positive"))
	}
	for _, module := range c.Sandbox.AllowedModules {
		if strings.TrimSpace(module) == "" {
			errs = append(errs, errors.New("sandbox.allowed_modules contains an empty name"))
			break
		}
	}
	return errors.Join(errs...)
}

func appendEnum(errs []error, field, value string, allowed []string) []error {
	if slices.Contains(allowed, value) {
		return errs
	}
	return append(errs, fmt.Errorf("%s %q must be one of %s", field, value, strings.Join(allowed, ", ")))
}

// FlushWindowDuration parses FlushWindow. Empty means zero.
func (b BridgeConfig) FlushWindowDuration() (time.Duration, error) {
	if b.FlushWindow == "" {
		return 0, nil
	}
	window, err := time.ParseDuration(b.FlushWindow)
	if err != nil {
		return 0, fmt.Errorf("bridge.flush_window: %w", err)
	}
	if window < 0 {
		return 0, fmt.Errorf("bridge.flush_window %s must not be negative", b.FlushWindow)
	}
	return window, nil
}

// FrameInterval is the animator period for FPS.
func (s SceneConfig) FrameInterval() time.Duration {
	if s.FPS <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(s.FPS)
}

// Timeout is TimeoutMs as a duration.
func (s SandboxConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// WeakerAccepted reports whether AcceptWeaker is set and true.
func (s SandboxConfig) WeakerAccepted() bool {
	return s.AcceptWeaker != nil && *s.AcceptWeaker
}
