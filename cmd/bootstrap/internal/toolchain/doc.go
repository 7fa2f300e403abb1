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
Package toolchain locates and, when necessary, installs the language runtime
and dependency manager a bootstrapped project needs.

# Resolution

Each tool goes through the same cycle:

	probe search path ──found──▶ done
	      │
	   absent
	      ▼
	run installer ──▶ extend search path ──▶ probe again ──absent──▶ ToolError

The runtime is installed through a version manager (pyenv by default) and the
dependency manager through the runtime's own package installer. A runtime
older than the configured minimum is treated as absent.

# Search Path

The resolver never calls os.Setenv. It starts from the process PATH, appends
the directories each installer populates, and hands the result back as
Toolchain.SearchPath. Later steps pass Toolchain.Env() as the environment
overlay of every subprocess they start, so a tool installed mid-run is
visible to them without touching global state.

# Errors

A failed installer or a tool that is still missing after its installer ran
is returned as *ToolError. Use errors.Is with ErrToolNotFound or
ErrVersionTooOld to tell the cases apart. Nothing is retried.
*/
package toolchain
