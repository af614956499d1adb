// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package metrics holds the service's Prometheus counters.
//
// Counts are kept in atomics as well so they can be read without a
// registry. All methods are safe on a nil *Metrics.
package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "votertag"

// Login results used as the result label
const (
	LoginSuccess = "success"
	LoginFailure = "failure"
)

type Metrics struct {
	LoginSuccesses  atomic.Uint64
	LoginFailures   atomic.Uint64
	TagUpdates      atomic.Uint64
	Denials         atomic.Uint64
	ExpiredSessions atomic.Uint64

	// nil until Register is called
	logins     *prometheus.CounterVec
	tagUpdates prometheus.Counter
	denials    prometheus.Counter
	expired    prometheus.Counter

	registerOnce sync.Once
}

func New() *Metrics {
	return &Metrics{}
}

// Register registers the counters with registry. A nil registry is a
// no-op and repeated calls do nothing.
func (m *Metrics) Register(registry prometheus.Registerer) {
	if m == nil || registry == nil {
		return
	}

	m.registerOnce.Do(func() {
		factory := promauto.With(registry)

		m.logins = factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Total number of login attempts by result",
		}, []string{"result"})

		m.tagUpdates = factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tag_updates_total",
			Help:      "Total number of committed voter tag changes",
		})

		m.denials = factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authorization_denials_total",
			Help:      "Total number of requests denied by the access policy",
		})

		m.expired = factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_expired_total",
			Help:      "Total number of sessions rejected as expired",
		})
	})
}

// IncLogin counts one login attempt
func (m *Metrics) IncLogin(ok bool) {
	if m == nil {
		return
	}
	result := LoginFailure
	if ok {
		result = LoginSuccess
		m.LoginSuccesses.Add(1)
	} else {
		m.LoginFailures.Add(1)
	}
	if m.logins != nil {
		m.logins.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncTagUpdate() {
	if m == nil {
		return
	}
	m.TagUpdates.Add(1)
	if m.tagUpdates != nil {
		m.tagUpdates.Inc()
	}
}

func (m *Metrics) IncDenied() {
	if m == nil {
		return
	}
	m.Denials.Add(1)
	if m.denials != nil {
		m.denials.Inc()
	}
}

func (m *Metrics) IncSessionExpired() {
	if m == nil {
		return
	}
	m.ExpiredSessions.Add(1)
	if m.expired != nil {
		m.expired.Inc()
	}
}
