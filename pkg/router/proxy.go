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

package router

import (
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sync"

	"github.com/apigate/apigate/pkg/defaults"
	apperrors "github.com/apigate/apigate/pkg/errors"
)

// upstreamTransport is shared by all backend proxies. Its timeouts nest
// inside the server write timeout so upstream slowness surfaces as a 502
// instead of a dropped client connection.
var upstreamTransport = &http.Transport{
	DialContext: (&net.Dialer{
		Timeout: defaults.ProxyDialTimeout,
	}).DialContext,
	ResponseHeaderTimeout: defaults.ProxyResponseHeaderTimeout,
	IdleConnTimeout:       defaults.ProxyIdleConnTimeout,
	MaxIdleConnsPerHost:   16,
}

// proxyPool lazily builds one ReverseProxy per backend URL.
type proxyPool struct {
	mu      sync.Mutex
	proxies map[string]*httputil.ReverseProxy
}

func newProxyPool() *proxyPool {
	return &proxyPool{proxies: map[string]*httputil.ReverseProxy{}}
}

// get returns the proxy for the given backend base URL, creating it on
// first use.
func (p *proxyPool) get(backend string) (*httputil.ReverseProxy, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if proxy, ok := p.proxies[backend]; ok {
		return proxy, nil
	}

	target, err := url.Parse(backend)
	if err != nil {
		return nil, err
	}

	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			// Only scheme/host move to the backend. The path was already
			// rewritten by the matched rule, and the original Host header
			// is preserved so the backend sees the external authority.
			pr.Out.URL.Scheme = target.Scheme
			pr.Out.URL.Host = target.Host
			pr.Out.Host = pr.In.Host
			pr.SetXForwarded()
		},
		Transport: upstreamTransport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			// Backends may legitimately not be ready yet; the router does
			// not synchronize with workload lifecycle.
			upstreamErrors.WithLabelValues(backend).Inc()
			slog.Warn("upstream request failed",
				"backend", backend,
				"path", r.URL.Path,
				"error", err,
			)
			WriteStructuredError(w, r, http.StatusBadGateway,
				apperrors.Wrap(apperrors.ErrCodeUnavailable, "Backend unavailable", err), nil)
		},
	}

	p.proxies[backend] = proxy
	return proxy, nil
}
