// Copyright (c) 2025, the apigate authors.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package errors provides structured error types for apigate.
//
// Errors carry a machine-readable code, a human-readable message, an
// optional cause, and optional context. Codes map onto the failure
// taxonomy of the system: build failures are fatal, pull failures are
// retryable, routing misses surface as NOT_FOUND.
//
// Usage:
//
//	if err := resolve(deps); err != nil {
//	    return errors.Wrap(errors.ErrCodeBuildFailed, "dependency resolution failed", err)
//	}
//
// Errors support errors.Is/errors.As through Unwrap.
package errors
