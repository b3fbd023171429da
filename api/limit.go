// Copyright 2026 Blink Labs Software
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

package api

import (
	"net"
	"net/http"
	"sync"
)

// DefaultMaxRequestsPerIP bounds in-flight POST requests from one source
const DefaultMaxRequestsPerIP = 4

// ipLimiter counts in-flight requests per source address
type ipLimiter struct {
	max   int
	mu    sync.Mutex
	conns map[string]int
}

func newIPLimiter(limit int) *ipLimiter {
	return &ipLimiter{
		max:   limit,
		conns: make(map[string]int),
	}
}

// ipKey extracts a rate-limit key from a request's remote address. IPv4
// addresses key on the bare IP. IPv6 addresses key on the /64 prefix so a
// client rotating within one subnet counts as one source. Addresses that
// do not parse return an empty key and are exempt.
func ipKey(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return ""
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return ""
	}
	if ip4 := ip.To4(); ip4 != nil {
		return ip4.String()
	}
	mask := net.CIDRMask(64, 128)
	return ip.Mask(mask).String() + "/64"
}

func (l *ipLimiter) acquire(key string) bool {
	if key == "" {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conns[key] >= l.max {
		return false
	}
	l.conns[key]++
	return true
}

func (l *ipLimiter) release(key string) {
	if key == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.conns[key]--
	if l.conns[key] <= 0 {
		delete(l.conns, key)
	}
}

func (l *ipLimiter) count(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conns[key]
}

// limit wraps h so each source holds at most max requests in flight
func (l *ipLimiter) limit(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := ipKey(r.RemoteAddr)
		if !l.acquire(key) {
			writeError(
				w,
				http.StatusTooManyRequests,
				"too many concurrent requests",
				"",
			)
			return
		}
		defer l.release(key)
		h(w, r)
	}
}
