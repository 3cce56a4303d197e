// Package build implements the two-stage image build pipeline for the
// apiserver workload.
//
// Stage 1 (builder) resolves the declared dependency manifest into an
// isolated environment directory. A dependency that cannot be resolved is
// fatal: no artifact is produced.
//
// Stage 2 (runtime) assembles a minimal runtime tree from the populated
// dependency environment plus exactly the listed application files. Build
// tooling never reaches the runtime image. The image config carries the
// runtime environment (unbuffered interpreter output), the declared exposed
// port, and the startup entrypoint.
//
// The result is packaged as an OCI image through pkg/oci and optionally
// pushed to a registry. Packaging is deterministic: the same dependency
// closure and application files yield the same layer digests.
package build
