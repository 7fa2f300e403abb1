// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package secrets

import (
	"path/filepath"
	"strings"

	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/util"
)

const (
	// DecryptToolName is the executable that opens the envelope.
	DecryptToolName = "sops"

	// KeyFileEnv names the variable that points the decryption tool at the age key.
	KeyFileEnv = "SOPS_AGE_KEY_FILE"

	// DefaultEnvelopeName is the encrypted secrets file committed to the repo.
	DefaultEnvelopeName = ".env.enc"

	// DefaultPlaintextName is the decrypted local secrets file, never committed.
	DefaultPlaintextName = ".env"
)

// Paths locates the three files the provisioner reasons about.
type Paths struct {
	// Envelope is the encrypted secrets file inside the project root.
	Envelope string `json:"envelope"`

	// Plaintext is the local secrets file inside the project root.
	Plaintext string `json:"plaintext"`

	// KeyFile is the decryption key, outside the project root.
	KeyFile string `json:"key_file"`
}

// ProjectPaths returns the envelope and plaintext locations under root
// together with keyFile.
func ProjectPaths(root, envelopeName, plaintextName, keyFile string) Paths {
	if envelopeName == "" {
		envelopeName = DefaultEnvelopeName
	}
	if plaintextName == "" {
		plaintextName = DefaultPlaintextName
	}
	return Paths{
		Envelope:  filepath.Join(root, envelopeName),
		Plaintext: filepath.Join(root, plaintextName),
		KeyFile:   keyFile,
	}
}

// RequiredIgnores returns the .gitignore entries that keep the plaintext
// file out of version control, including the temporary sibling it is
// written through while being replaced.
func RequiredIgnores(plaintextName string) []string {
	if plaintextName == "" {
		plaintextName = DefaultPlaintextName
	}
	return []string{plaintextName, plaintextName + util.TempSuffix + "*"}
}

// InsideRoot reports whether path lies at or below root. A key file there
// can end up committed next to the envelope it opens.
func InsideRoot(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// UserConfigDir resolves the per-user configuration directory:
// ~/Library/Application Support on macOS, otherwise $XDG_CONFIG_HOME or
// ~/.config. getenv must return "" for unset variables.
func UserConfigDir(getenv func(string) string, home, goos string) string {
	if goos == "darwin" {
		return filepath.Join(home, "Library", "Application Support")
	}
	if v := getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	return filepath.Join(home, ".config")
}

// DefaultKeyFile returns $SOPS_AGE_KEY_FILE when set, otherwise
// <user config dir>/sops/age/keys.txt.
func DefaultKeyFile(getenv func(string) string, home, goos string) string {
	if v := getenv(KeyFileEnv); v != "" {
		return v
	}
	return filepath.Join(UserConfigDir(getenv, home, goos), "sops", "age", "keys.txt")
}
