// Pipewatch - CI/CD Pipeline Monitoring and Deployment Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pipewatch

package github

import (
	"context"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/pipewatch/internal/config"
	"github.com/tomtom215/pipewatch/internal/logging"
	"github.com/tomtom215/pipewatch/internal/metrics"
	"github.com/tomtom215/pipewatch/internal/models"
)

// CircuitBreakerClient wraps Client with a circuit breaker so a
// degraded GitHub API does not tie up dashboard request handlers.
//
// The breaker uses real time for its interval and timeout bookkeeping.
// Tests exercise the wrapped client directly or mock ClientInterface
// rather than manipulating breaker timing.
type CircuitBreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[interface{}]
}

// NewCircuitBreakerClient creates a GitHub client protected by a
// circuit breaker. The breaker opens at a 60% failure rate over a
// one-minute window with at least 10 requests, allows 3 probes in
// half-open state, and waits 2 minutes before probing an open circuit.
func NewCircuitBreakerClient(cfg *config.GitHubConfig) *CircuitBreakerClient {
	metrics.SetCircuitBreakerState(0) // closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        "github-api",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("[CIRCUIT BREAKER] State transition")
			metrics.SetCircuitBreakerState(stateToFloat(to))
		},
	})

	return &CircuitBreakerClient{
		client: NewClient(cfg),
		cb:     cb,
	}
}

func (cbc *CircuitBreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	return cbc.cb.Execute(fn)
}

// castResult type-casts a breaker result with error checking.
func castResult[T any](result interface{}, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	typed, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Ping verifies connectivity with circuit breaker protection.
func (cbc *CircuitBreakerClient) Ping(ctx context.Context) error {
	_, err := cbc.execute(func() (interface{}, error) {
		return nil, cbc.client.Ping(ctx)
	})
	return err
}

// ListWorkflowRuns lists runs with circuit breaker protection.
func (cbc *CircuitBreakerClient) ListWorkflowRuns(ctx context.Context, page, perPage int) (*models.WorkflowRunList, error) {
	return castResult[models.WorkflowRunList](cbc.execute(func() (interface{}, error) {
		return cbc.client.ListWorkflowRuns(ctx, page, perPage)
	}))
}

// ListRunJobs lists a run's jobs with circuit breaker protection.
func (cbc *CircuitBreakerClient) ListRunJobs(ctx context.Context, runID int64) (*models.WorkflowJobList, error) {
	return castResult[models.WorkflowJobList](cbc.execute(func() (interface{}, error) {
		return cbc.client.ListRunJobs(ctx, runID)
	}))
}

// GetJobLogs fetches job logs with circuit breaker protection.
func (cbc *CircuitBreakerClient) GetJobLogs(ctx context.Context, jobID int64) (string, error) {
	result, err := cbc.execute(func() (interface{}, error) {
		return cbc.client.GetJobLogs(ctx, jobID)
	})
	if err != nil {
		return "", err
	}
	logs, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return logs, nil
}

// GetAuthenticatedUser resolves a token's user with circuit breaker
// protection.
func (cbc *CircuitBreakerClient) GetAuthenticatedUser(ctx context.Context, token string) (*models.GitHubUser, error) {
	return castResult[models.GitHubUser](cbc.execute(func() (interface{}, error) {
		return cbc.client.GetAuthenticatedUser(ctx, token)
	}))
}

// ExchangeCode trades an OAuth code for a token with circuit breaker
// protection.
func (cbc *CircuitBreakerClient) ExchangeCode(ctx context.Context, code string) (string, error) {
	result, err := cbc.execute(func() (interface{}, error) {
		return cbc.client.ExchangeCode(ctx, code)
	})
	if err != nil {
		return "", err
	}
	token, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return token, nil
}
