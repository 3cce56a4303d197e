// Package apply creates or updates the rendered cluster objects for a
// deployment stack: the workload Deployment, its fronting Service, and the
// Ingress route.
//
// Apply is idempotent: existing objects are updated in place, missing ones
// are created. Delete is equally idempotent; objects that are already gone
// are not an error.
package apply
