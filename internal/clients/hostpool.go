// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package clients

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrPoolExhausted is returned by [HostPool.Acquire] when every host is
// currently unhealthy.
var ErrPoolExhausted = errors.New("clients: host pool has no healthy hosts")

type poolHost struct {
	addr             string
	limiter          *rate.Limiter
	consecutiveFails int
	unhealthyUntil   time.Time
}

// HostPool load-balances requests to a source's scraper across multiple
// backing hosts with round-robin selection and per-host health tracking.
//
// A host that fails maxFailures consecutive times is marked unhealthy and
// skipped for cooldown; if every host is unhealthy the pool resets all of
// them rather than permanently wedging.
type HostPool struct {
	mu          sync.Mutex
	hosts       []*poolHost
	next        int
	maxFailures int
	cooldown    time.Duration
}

// NewHostPool constructs a [HostPool] fronting addrs, each rate-limited to
// rps requests/sec with the given burst.
func NewHostPool(addrs []string, rps float64, burst, maxFailures int, cooldown time.Duration) *HostPool {
	hosts := make([]*poolHost, len(addrs))
	for i, addr := range addrs {
		hosts[i] = &poolHost{addr: addr, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
	}
	return &HostPool{hosts: hosts, maxFailures: maxFailures, cooldown: cooldown}
}

// Acquire returns the next healthy, rate-bucket-available host in
// round-robin order. If every host is currently unhealthy, the pool resets
// every host's health state and retries once before giving up.
func (p *HostPool) Acquire() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.hosts) == 0 {
		return "", ErrPoolExhausted
	}

	if addr, ok := p.tryAcquireLocked(); ok {
		return addr, nil
	}

	// Every host looked unhealthy; reset and give it one more pass.
	now := time.Now()
	for _, h := range p.hosts {
		h.consecutiveFails = 0
		h.unhealthyUntil = now
	}

	if addr, ok := p.tryAcquireLocked(); ok {
		return addr, nil
	}
	return "", ErrPoolExhausted
}

func (p *HostPool) tryAcquireLocked() (string, bool) {
	now := time.Now()
	for range p.hosts {
		h := p.hosts[p.next]
		p.next = (p.next + 1) % len(p.hosts)

		if now.Before(h.unhealthyUntil) {
			continue
		}
		if !h.limiter.Allow() {
			continue
		}
		return h.addr, true
	}
	return "", false
}

// ReportSuccess clears a host's consecutive failure counter.
func (p *HostPool) ReportSuccess(addr string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h := p.findLocked(addr); h != nil {
		h.consecutiveFails = 0
	}
}

// ReportFailure bumps a host's failure counter, marking it unhealthy for
// the cooldown window once maxFailures is reached.
func (p *HostPool) ReportFailure(addr string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	h := p.findLocked(addr)
	if h == nil {
		return
	}
	h.consecutiveFails++
	if h.consecutiveFails >= p.maxFailures {
		h.unhealthyUntil = time.Now().Add(p.cooldown)
	}
}

func (p *HostPool) findLocked(addr string) *poolHost {
	for _, h := range p.hosts {
		if h.addr == addr {
			return h
		}
	}
	return nil
}
