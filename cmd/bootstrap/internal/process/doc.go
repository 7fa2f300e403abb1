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
Package process provides the abstraction every bootstrap step uses to run
external tools.

# Overview

Every step of a bootstrap run ends in a subprocess: pyenv, pip, poetry, sops,
pre-commit. All of them go through ProcessManager so that tests can replace
real installs with a MockProcessManager.

	pm := process.NewDefaultProcessManager()
	res, err := pm.Run(ctx, "/usr/bin/python3", []string{"--version"}, process.RunOptions{})
	if err != nil {
	    return fmt.Errorf("probing python: %w", err)
	}

# Search Path

The bootstrap never mutates the PATH of its own process. Callers pass the
search path they resolved in RunOptions.Env["PATH"]; bare command names are
resolved against that value with LookPath before the process starts.

# Errors

A process that starts but exits non-zero yields a *CommandError carrying the
exit code and the trimmed stderr of the tool, so the diagnostic the operator
sees is the tool's own text.

# Thread Safety

DefaultProcessManager and MockProcessManager are safe for concurrent use,
although the bootstrap itself only ever runs one command at a time.
*/
package process
