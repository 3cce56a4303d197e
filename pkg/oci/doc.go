// Package oci packages directory trees as OCI images and pushes them to
// OCI-compliant registries using ORAS.
//
// The package provides two main operations:
//   - Package: creates a local image in OCI Image Layout format from one or
//     more layer directories plus an image config
//   - PushFromStore: pushes a previously packaged image to a remote registry
//
// These can be combined for a package-then-push workflow, or used
// independently. ParseOutputTarget decides between the two: an "oci://"
// target addresses a registry, anything else is a local directory.
//
// # Reproducibility
//
// Layer tars are always created deterministically (fixed file ordering and
// timestamps), so packaging the same input twice yields the same digest.
// Callers that need a stable manifest digest across machines should also set
// PackageOptions.CreatedAt.
//
// # Authentication
//
// Pushes use Docker credential helpers. Credentials are loaded from the
// standard Docker configuration (~/.docker/config.json) via the ORAS
// credentials package.
package oci
