// Package daemon wires the long-running apigate components into one
// process: the ingress router and the workload controller run under a
// single errgroup, so either one failing stops the other and the process
// exits nonzero.
//
// The daemon reads its stack spec from the file named by APIGATE_SPEC,
// falling back to the built-in apiserver stack. The controller is only
// started when a cluster client can be built (KUBECONFIG, ~/.kube/config,
// or in-cluster); without one the daemon serves routing alone.
//
// # Usage
//
//	package main
//
//	import (
//	    "log"
//	    "github.com/apigate/apigate/pkg/daemon"
//	)
//
//	func main() {
//	    if err := daemon.Serve(); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Environment Variables
//
//   - APIGATE_SPEC: path to a stack spec file (yaml or json)
//   - BACKEND_OVERRIDE: base URL overriding all route backends
//   - PORT: router listen port
//   - LOG_LEVEL: debug, info, warn, error
package daemon
