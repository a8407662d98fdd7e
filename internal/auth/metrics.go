// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Status label values for operation metrics.
const (
	StatusSuccess  = "success"
	StatusNotFound = "not_found"
	StatusExists   = "exists"
	StatusInvalid  = "invalid"
	StatusError    = "error"
)

// Operation label values for operation metrics.
const (
	OpRegister       = "register"
	OpLogin          = "login"
	OpCreateSession  = "create_session"
	OpGetSession     = "get_session"
	OpDestroySession = "destroy_session"
	OpResetToken     = "reset_token"
	OpUpdatePassword = "update_password"
)

// Operations counts service operations by outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var Operations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "userauth_operations_total",
		Help: "Total number of auth service operations by outcome",
	},
	[]string{"operation", "status"},
)

// RegisterMetrics registers auth metrics with the given Prometheus registry.
// Registering again with the same registry is a no-op. Any other failure
// panics (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	if err := reg.Register(Operations); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return
		}
		panic(err)
	}
}

func recordOperation(operation, status string) {
	Operations.WithLabelValues(operation, status).Inc()
}
