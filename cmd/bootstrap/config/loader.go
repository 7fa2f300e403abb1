// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/deps"
	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/scaffold"
	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/toolchain"
)

// ErrInvalidConfig wraps every problem with the config file itself.
var ErrInvalidConfig = errors.New("invalid config")

// configValidate is shared by every Validate call.
var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	configValidate.RegisterTagNameFunc(yamlName)
	_ = configValidate.RegisterValidation("relpath", validateRelPath)
}

// yamlName reports fields by their yaml key so messages match the file.
func yamlName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// validateRelPath accepts clean slash-separated paths inside the root.
func validateRelPath(fl validator.FieldLevel) bool {
	p := fl.Field().String()
	if p == "" || strings.HasPrefix(p, "/") {
		return false
	}
	clean := path.Clean(p)
	return clean != "." && clean != ".." && !strings.HasPrefix(clean, "../")
}

// Load reads the config file at configPath over the defaults.
//
// # Inputs
//
//   - configPath: The config file.
//   - required: When false a missing file yields DefaultConfig(). When true,
//     as for an explicit --config flag, a missing file is an error.
//
// # Outputs
//
//   - BootstrapConfig: Defaults with every key from the file applied.
//   - error: Wraps ErrInvalidConfig for unreadable, malformed or invalid
//     files.
func Load(configPath string, required bool) (BootstrapConfig, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) && !required {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := Parse(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", configPath, err)
	}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.Secrets.KeyFile = expandHome(cfg.Secrets.KeyFile, home)
		cfg.Toolchain.VersionManagerRoot = expandHome(cfg.Toolchain.VersionManagerRoot, home)
	}
	return cfg, nil
}

// Parse decodes data over cfg and validates the result. Unknown keys are
// rejected so typos do not silently fall back to defaults.
func Parse(data []byte, cfg *BootstrapConfig) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	// The group is implied by the yaml key, not stored per entry.
	cfg.Dependencies.Runtime = withGroup(cfg.Dependencies.Runtime, deps.GroupMain)
	cfg.Dependencies.Dev = withGroup(cfg.Dependencies.Dev, deps.GroupDev)
	return Validate(*cfg)
}

// Validate checks field constraints and the scaffold manifest.
func Validate(cfg BootstrapConfig) error {
	if err := configValidate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q", fieldPath(fe.Namespace()), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if v := cfg.Toolchain.MinRuntimeVersion; v != "" && toolchain.Canonical(v) == "" {
		return fmt.Errorf("%w: toolchain.min_runtime_version %q is not a version", ErrInvalidConfig, v)
	}
	if err := validateDeclarations("runtime", cfg.Dependencies.Runtime); err != nil {
		return err
	}
	if err := validateDeclarations("dev", cfg.Dependencies.Dev); err != nil {
		return err
	}
	m := scaffold.Manifest{Dirs: cfg.Scaffold.Dirs, Files: cfg.Scaffold.Files}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func validateDeclarations(key string, decls []deps.Declaration) error {
	for i, d := range decls {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("%w: dependencies.%s[%d]: %v", ErrInvalidConfig, key, i, err)
		}
	}
	return nil
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// Marshal renders cfg as it would appear in a config file.
func Marshal(cfg BootstrapConfig) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteDefault writes the default config to configPath, creating parent
// directories. An existing file is left alone.
func WriteDefault(configPath string) (created bool, err error) {
	if _, err := os.Stat(configPath); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return false, fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := Marshal(DefaultConfig())
	if err != nil {
		return false, err
	}
	f, err := os.OpenFile(configPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return false, err
	}
	return true, f.Close()
}

func expandHome(p, home string) string {
	if p == "~" {
		return home
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(home, p[2:])
	}
	return p
}
