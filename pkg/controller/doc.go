// Package controller implements the workload controller: a reconciliation
// loop that converges the set of labeled pods toward the desired replica
// count of the current deployment spec.
//
// Identity is the selector label, nothing else. Pods carrying the selector
// are managed; pods without it are invisible to the controller regardless of
// name or image.
//
// Reconciliation is serialized: one goroutine observes, compares, and
// corrects. The desired state is read from a manifest.Document, so a
// whole-document replacement takes effect atomically at the next pass.
//
// Failure handling follows the resource envelope semantics: pods killed for
// exceeding the memory limit (OOMKilled) are deleted and recreated; CPU over
// the limit only throttles and is observed, never acted on. Image pull
// failures keep the pod pending and are retried with exponential backoff;
// they never crash the controller.
package controller
