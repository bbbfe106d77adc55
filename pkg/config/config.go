// Package config loads the optional nativeui.yaml or nativeui.toml project
// file and resolves defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"gopkg.in/yaml.v3"
)

// Project file names, in lookup order.
const (
	YAMLFile = "nativeui.yaml"
	TOMLFile = "nativeui.toml"
)

// EnvDebugPort overrides debug.port when set.
const EnvDebugPort = "NATIVEUI_DEBUG_PORT"

// Defaults.
const (
	DefaultPageRoot      = "LocalFiles"
	DefaultEntry         = "index.js"
	DefaultCodec         = "json"
	DefaultRemoteTimeout = 10 * time.Second
)

// Config represents the optional project file.
type Config struct {
	App       AppConfig       `yaml:"app" toml:"app"`
	Page      PageConfig      `yaml:"page" toml:"page"`
	Bridge    BridgeConfig    `yaml:"bridge" toml:"bridge"`
	Resources ResourcesConfig `yaml:"resources" toml:"resources"`
	Debug     DebugConfig     `yaml:"debug" toml:"debug"`
}

// AppConfig contains application metadata.
type AppConfig struct {
	Name string `yaml:"name,omitempty" toml:"name,omitempty"`
	ID   string `yaml:"id,omitempty" toml:"id,omitempty"`
}

// PageConfig locates the application's scripts and assets.
type PageConfig struct {
	Root  string `yaml:"root,omitempty" toml:"root,omitempty"`
	Entry string `yaml:"entry,omitempty" toml:"entry,omitempty"`
}

// BridgeConfig tunes the message bridge.
type BridgeConfig struct {
	// EchoPropertyName makes property reads reply with the property name
	// instead of its value.
	EchoPropertyName bool   `yaml:"echoPropertyName,omitempty" toml:"echoPropertyName,omitempty"`
	Codec            string `yaml:"codec,omitempty" toml:"codec,omitempty"`
}

// ResourcesConfig tunes image loading.
type ResourcesConfig struct {
	RemoteTimeout time.Duration `yaml:"remoteTimeout,omitempty" toml:"remoteTimeout,omitempty"`
}

// DebugConfig controls the debug HTTP server and log verbosity.
type DebugConfig struct {
	Port    int  `yaml:"port,omitempty" toml:"port,omitempty"`
	Verbose bool `yaml:"verbose,omitempty" toml:"verbose,omitempty"`
}

// Resolved contains resolved configuration values.
type Resolved struct {
	Root             string
	Source           string
	ModulePath       string
	AppName          string
	AppID            string
	PageRoot         string
	Entry            string
	EchoPropertyName bool
	Codec            string
	RemoteTimeout    time.Duration
	DebugPort        int
	Verbose          bool
}

// LoadOptional reads the project file if present. It returns the parsed
// config and the path it was read from ("" when there is none).
func LoadOptional(dir string) (*Config, string, error) {
	yamlPath := filepath.Join(dir, YAMLFile)
	tomlPath := filepath.Join(dir, TOMLFile)

	yamlData, yamlErr := readOptional(yamlPath)
	if yamlErr != nil {
		return nil, "", yamlErr
	}
	tomlData, tomlErr := readOptional(tomlPath)
	if tomlErr != nil {
		return nil, "", tomlErr
	}

	var cfg Config
	switch {
	case yamlData != nil && tomlData != nil:
		return nil, "", fmt.Errorf("both %s and %s exist; keep one", YAMLFile, TOMLFile)
	case yamlData != nil:
		if err := yaml.Unmarshal(yamlData, &cfg); err != nil {
			return nil, "", fmt.Errorf("failed to parse %s: %w", YAMLFile, err)
		}
		return &cfg, yamlPath, nil
	case tomlData != nil:
		md, err := toml.Decode(string(tomlData), &cfg)
		if err != nil {
			return nil, "", fmt.Errorf("failed to parse %s: %w", TOMLFile, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, "", fmt.Errorf("unknown keys in %s: %v", TOMLFile, undecoded)
		}
		return &cfg, tomlPath, nil
	}
	return &cfg, "", nil
}

func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	return data, nil
}

// Resolve loads the project file (if present) and resolves defaults.
func Resolve(dir string) (*Resolved, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	cfg, source, err := LoadOptional(abs)
	if err != nil {
		return nil, err
	}

	modPath := modulePath(abs)

	appName := strings.TrimSpace(cfg.App.Name)
	if appName == "" {
		appName = defaultAppName(modPath, abs)
	}

	appID := strings.TrimSpace(cfg.App.ID)
	if appID == "" {
		appID = defaultAppID(modPath, appName)
	}
	if err := validateAppID(appID); err != nil {
		return nil, err
	}

	pageRoot := strings.TrimSpace(cfg.Page.Root)
	if pageRoot == "" {
		pageRoot = DefaultPageRoot
	}
	if filepath.IsAbs(pageRoot) || !filepath.IsLocal(pageRoot) {
		return nil, fmt.Errorf("page.root must be a relative path inside the project (got %q)", pageRoot)
	}

	entry := strings.TrimSpace(cfg.Page.Entry)
	if entry == "" {
		entry = DefaultEntry
	}
	if !filepath.IsLocal(entry) {
		return nil, fmt.Errorf("page.entry must be a relative path inside page.root (got %q)", entry)
	}

	codec := strings.ToLower(strings.TrimSpace(cfg.Bridge.Codec))
	if codec == "" {
		codec = DefaultCodec
	}
	if codec != "json" && codec != "cbor" {
		return nil, fmt.Errorf("bridge.codec must be json or cbor (got %q)", cfg.Bridge.Codec)
	}

	timeout := cfg.Resources.RemoteTimeout
	if timeout < 0 {
		return nil, fmt.Errorf("resources.remoteTimeout cannot be negative (got %s)", timeout)
	}
	if timeout == 0 {
		timeout = DefaultRemoteTimeout
	}

	port := cfg.Debug.Port
	if env := strings.TrimSpace(os.Getenv(EnvDebugPort)); env != "" {
		port, err = strconv.Atoi(env)
		if err != nil {
			return nil, fmt.Errorf("%s must be a number (got %q)", EnvDebugPort, env)
		}
	}
	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("debug.port out of range (got %d)", port)
	}

	return &Resolved{
		Root:             abs,
		Source:           source,
		ModulePath:       modPath,
		AppName:          appName,
		AppID:            appID,
		PageRoot:         filepath.Join(abs, pageRoot),
		Entry:            filepath.ToSlash(entry),
		EchoPropertyName: cfg.Bridge.EchoPropertyName,
		Codec:            codec,
		RemoteTimeout:    timeout,
		DebugPort:        port,
		Verbose:          cfg.Debug.Verbose,
	}, nil
}

// modulePath returns the module path from dir's go.mod, or "" when the
// project is not a Go module.
func modulePath(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return ""
	}
	return modfile.ModulePath(data)
}

func defaultAppName(modulePath, dir string) string {
	base := filepath.Base(dir)
	if modulePath != "" {
		modName, _, ok := module.SplitPathVersion(modulePath)
		if ok {
			parts := strings.Split(modName, "/")
			base = parts[len(parts)-1]
		}
	}
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "nativeui_app"
	}
	return base
}

func defaultAppID(modulePath, appName string) string {
	parts := strings.Split(modulePath, "/")
	if len(parts) < 2 || !strings.Contains(parts[0], ".") {
		return fmt.Sprintf("com.example.%s", sanitizeSegment(appName, false))
	}

	host := strings.Split(parts[0], ".")
	for i, j := 0, len(host)-1; i < j; i, j = i+1, j-1 {
		host[i], host[j] = host[j], host[i]
	}

	var pathParts []string
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		pathParts = append(pathParts, p)
	}

	segments := append(host, pathParts...)
	for i, segment := range segments {
		segments[i] = sanitizeSegment(segment, false)
	}

	return strings.Join(segments, ".")
}

// sanitizeSegment lowercases segment and drops characters an app id cannot
// hold.
func sanitizeSegment(segment string, allowLeadingDigit bool) string {
	segment = strings.TrimSpace(segment)

	var out []rune
	for _, r := range segment {
		switch {
		case r >= 'a' && r <= 'z':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case r >= '0' && r <= '9':
			out = append(out, r)
		case r == '_':
			if len(out) > 0 {
				out = append(out, r)
			}
		}
	}

	if len(out) == 0 {
		out = []rune("app")
	}
	if !allowLeadingDigit && out[0] >= '0' && out[0] <= '9' {
		out = append([]rune{'a'}, out...)
	}
	return string(out)
}

func validateAppID(appID string) error {
	if !strings.Contains(appID, ".") {
		return fmt.Errorf("app.id must contain at least one '.' (got %q)", appID)
	}
	for _, segment := range strings.Split(appID, ".") {
		if segment == "" {
			return fmt.Errorf("app.id contains an empty segment (%q)", appID)
		}
		if segment[0] >= '0' && segment[0] <= '9' {
			return fmt.Errorf("app.id segments cannot start with a digit (%q)", appID)
		}
		if segment[0] == '_' {
			return fmt.Errorf("app.id segments cannot start with '_' (%q)", appID)
		}
		for _, r := range segment {
			if !(r == '_' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
				return fmt.Errorf("app.id contains invalid character %q in %q", r, appID)
			}
		}
	}
	return nil
}

// FindProjectRoot walks up from the current directory to the first
// directory holding a project file or a go.mod.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		for _, name := range []string{YAMLFile, TOMLFile, "go.mod"} {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s, %s or go.mod found", YAMLFile, TOMLFile)
		}
		dir = parent
	}
}
