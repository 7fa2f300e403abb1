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
	"context"
	"errors"
	"fmt"

	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/process"
	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/toolchain"
)

// ErrNoDependencyManager indicates the decryption tool cannot be reached
// because the toolchain has no dependency manager.
var ErrNoDependencyManager = errors.New("dependency manager not resolved")

// Decrypter turns an envelope into plaintext using a key file.
type Decrypter interface {
	// Decrypt returns the plaintext of envelope. The caller owns the
	// returned slice and is responsible for wiping it.
	Decrypt(ctx context.Context, envelope, keyFile string) ([]byte, error)
}

// DecryptError reports a failed decryption. Stderr holds the tool's own
// diagnostic, verbatim.
type DecryptError struct {
	Envelope string
	Stderr   string
	Err      error
}

// Error implements the error interface.
func (e *DecryptError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("decrypting %s: %s", e.Envelope, e.Stderr)
	}
	return fmt.Sprintf("decrypting %s: %v", e.Envelope, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecryptError) Unwrap() error {
	return e.Err
}

// SopsDecrypter runs sops from the project environment with the age key
// supplied through SOPS_AGE_KEY_FILE.
type SopsDecrypter struct {
	pm  process.ProcessManager
	tc  *toolchain.Toolchain
	dir string
}

// NewSopsDecrypter creates a decrypter that runs in dir.
func NewSopsDecrypter(pm process.ProcessManager, tc *toolchain.Toolchain, dir string) *SopsDecrypter {
	return &SopsDecrypter{pm: pm, tc: tc, dir: dir}
}

// Decrypt implements Decrypter.
func (d *SopsDecrypter) Decrypt(ctx context.Context, envelope, keyFile string) ([]byte, error) {
	if d.tc == nil || !d.tc.DependencyManager.Found() {
		return nil, &DecryptError{Envelope: envelope, Err: ErrNoDependencyManager}
	}
	env := d.tc.Env()
	env[KeyFileEnv] = keyFile

	res, err := d.pm.Run(ctx, d.tc.DependencyManager.Path, []string{
		"run", DecryptToolName, "--decrypt",
		"--input-type", "dotenv",
		"--output-type", "dotenv",
		envelope,
	}, process.RunOptions{Dir: d.dir, Env: env})
	if err != nil {
		// Whatever reached stdout may be plaintext; keep it out of messages.
		var cmdErr *process.CommandError
		if errors.As(err, &cmdErr) {
			cmdErr.Stdout = ""
		}
		if res != nil {
			wipe(res.Stdout)
		}
		return nil, &DecryptError{Envelope: envelope, Stderr: process.ExtractStderr(err), Err: err}
	}
	return res.Stdout, nil
}

var _ Decrypter = (*SopsDecrypter)(nil)
