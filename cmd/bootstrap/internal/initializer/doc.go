// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package initializer runs the bootstrap steps against a project root.
//
// This package implements the core logic of the `bootstrap` command, which
// brings a freshly cloned project to a working development state:
//
//	┌───────────┐   ┌──────────┐   ┌──────────────┐   ┌───────┐   ┌─────────┐
//	│ toolchain │──▶│ scaffold │──▶│ dependencies │──▶│ hooks │──▶│ secrets │
//	└───────────┘   └──────────┘   └──────────────┘   └───────┘   └─────────┘
//
// Steps run strictly in order and each one depends on the environment the
// previous ones established. The first failure aborts the run as a
// *StepError; nothing is retried. Every step is idempotent, so the recovery
// for any failure is to fix the cause and run again.
//
// # Environment
//
// The toolchain step returns an explicit search path. Later steps pass it to
// every subprocess instead of modifying the process environment.
//
// # Thread Safety
//
// An Initializer holds no per-run state and may be reused, but a project
// root must not be bootstrapped by two runs at once.
package initializer
