// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package secrets provisions the local secrets file from an encrypted envelope.

# State Machine

Three files are inspected: the envelope E (committed, encrypted), the key
file K (per user, outside the project) and the plaintext P (local,
ignored). Only E and K decide the action:

	E    K    action
	yes  yes  decrypt E and replace P atomically
	yes  no   leave P; create it empty if absent
	no   -    leave P; create it empty if absent

The missing-key row is not reported as a problem. A developer without a key
still gets an (empty) P and can fill it by hand.

# Plaintext Handling

Decrypted bytes are held in a memguard buffer where the memlock limit
allows it, written to a temporary sibling of P with mode 0600, synced and
renamed over P. A failure at any point before the rename leaves P exactly as
it was.
*/
package secrets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/util"
)

// PlaintextMode is the permission of the local secrets file.
const PlaintextMode fs.FileMode = 0600

// Action is the row of the state machine that applied.
type Action string

const (
	ActionDecrypted  Action = "decrypted"
	ActionKeyMissing Action = "key-missing"
	ActionNoEnvelope Action = "no-envelope"
)

// State records which of the three files exist.
type State struct {
	Envelope  bool `json:"envelope"`
	Key       bool `json:"key"`
	Plaintext bool `json:"plaintext"`
}

// Decide maps a state to its action.
func Decide(s State) Action {
	switch {
	case s.Envelope && s.Key:
		return ActionDecrypted
	case s.Envelope:
		return ActionKeyMissing
	default:
		return ActionNoEnvelope
	}
}

// Outcome reports what Provision did.
type Outcome struct {
	Action           Action `json:"action"`
	State            State  `json:"state"`
	PlaintextPath    string `json:"plaintext_path"`
	PlaintextCreated bool   `json:"plaintext_created"`
}

// Provisioner applies the state machine to a set of paths.
type Provisioner struct {
	paths     Paths
	decrypter Decrypter
	logger    *slog.Logger

	// writeFile replaces P. Tests swap it to inject failures.
	writeFile func(path string, data []byte, perm os.FileMode) error
}

// NewProvisioner creates a provisioner. A nil logger uses slog.Default().
func NewProvisioner(paths Paths, decrypter Decrypter, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioner{
		paths:     paths,
		decrypter: decrypter,
		logger:    logger.With("component", "secrets"),
		writeFile: util.WriteFileAtomic,
	}
}

// Paths returns the paths this provisioner works on.
func (p *Provisioner) Paths() Paths {
	return p.paths
}

// Inspect reports which files exist without changing anything.
func (p *Provisioner) Inspect() (State, error) {
	var s State
	var err error
	if s.Envelope, err = regularFileExists(p.paths.Envelope); err != nil {
		return s, err
	}
	if s.Key, err = regularFileExists(p.paths.KeyFile); err != nil {
		return s, err
	}
	if s.Plaintext, err = regularFileExists(p.paths.Plaintext); err != nil {
		return s, err
	}
	return s, nil
}

// Provision brings P into the state the envelope and key call for.
//
// # Outputs
//
//   - *Outcome: The applied row and whether P was created.
//   - error: *DecryptError when decryption fails with both E and K present,
//     or a filesystem error. P is unchanged on error.
func (p *Provisioner) Provision(ctx context.Context) (*Outcome, error) {
	state, err := p.Inspect()
	if err != nil {
		return nil, err
	}
	out := &Outcome{Action: Decide(state), State: state, PlaintextPath: p.paths.Plaintext}

	switch out.Action {
	case ActionDecrypted:
		if err := p.decrypt(ctx); err != nil {
			return nil, err
		}
		out.PlaintextCreated = !state.Plaintext
		p.logger.Info("Local secrets decrypted", "path", p.paths.Plaintext)
		return out, nil
	case ActionKeyMissing:
		p.logger.Debug("Decryption key not found, local secrets left as is", "key_file", p.paths.KeyFile)
	default:
		p.logger.Debug("No secrets envelope, local secrets left as is")
	}

	if !state.Plaintext {
		if err := createEmpty(p.paths.Plaintext); err != nil {
			return nil, err
		}
		out.PlaintextCreated = true
	}
	return out, nil
}

func (p *Provisioner) decrypt(ctx context.Context) error {
	data, err := p.decrypter.Decrypt(ctx, p.paths.Envelope, p.paths.KeyFile)
	if err != nil {
		wipe(data)
		return err
	}
	view, release := holdPlaintext(data, p.logger)
	defer release()

	if err := p.writeFile(p.paths.Plaintext, view, PlaintextMode); err != nil {
		return fmt.Errorf("writing local secrets: %w", err)
	}
	return nil
}

func regularFileExists(path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", path, err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("%s is a directory", path)
	}
	return true, nil
}

func createEmpty(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, PlaintextMode)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	return f.Close()
}
