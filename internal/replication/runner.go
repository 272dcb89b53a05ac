package replication

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"balancer-gateway/internal/metricsrepo"
	"balancer-gateway/pkg/apperror"
)

// Command is the outbound call every replica task replays verbatim against
// its own target host:port.
type Command struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// Target is one ranked candidate with the launch delay its strategy
// assigned.
type Target struct {
	NodeID string
	Host   string
	Port   uint16
	Delay  time.Duration
}

// ExecutionResult is the winning reply the orchestrator forwards to the
// client verbatim.
type ExecutionResult struct {
	Status       int
	Body         []byte
	Header       http.Header
	WinnerNodeID string
}

// Runner drives a concurrent replication pass: it launches one task per
// target, feeds replies to a CompletionPolicy as they arrive, and cancels
// the rest once the policy is satisfied.
type Runner struct {
	client *http.Client
	repo   metricsrepo.Repository
	log    *slog.Logger
}

// NewRunner creates a Runner. client may be nil to use a default
// http.Client; repo is used for the best-effort latency write-back.
func NewRunner(client *http.Client, repo metricsrepo.Repository, log *slog.Logger) *Runner {
	if client == nil {
		client = &http.Client{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runner{client: client, repo: repo, log: log}
}

// Execute runs the replication pass described by cmd/targets against
// policy, returning the winning reply or a "no satisfying reply" error if
// every task completed without satisfying it. ctx cancellation (deadline
// exceeded, client gone) aborts all outstanding tasks.
func (r *Runner) Execute(ctx context.Context, cmd Command, targets []Target, policy CompletionPolicy) (ExecutionResult, error) {
	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	replies := make(chan ReplicaReply, len(targets))
	var wg sync.WaitGroup
	for _, target := range targets {
		wg.Add(1)
		go func(target Target) {
			defer wg.Done()
			reply := r.runTask(taskCtx, cmd, target)
			select {
			case replies <- reply:
			case <-taskCtx.Done():
			}
		}(target)
	}

	go func() {
		wg.Wait()
		close(replies)
	}()

	var winner *ReplicaReply
	for reply := range replies {
		policy.Push(reply)
		if policy.IsDone() {
			w, err := policy.Choose()
			if err == nil {
				winner = &w
			}
			cancel()
			break
		}
	}
	wg.Wait()

	if winner == nil {
		return ExecutionResult{}, apperror.New(apperror.CodeNoSatisfyingReply, "replication fan-out completed with no reply satisfying the completion policy")
	}

	if r.repo != nil {
		if err := r.repo.AddLatency(context.Background(), winner.NodeID, winner.LatencyMS); err != nil {
			r.log.Warn("best-effort latency write-back failed", "node_id", winner.NodeID, "error", err)
		}
	}

	return ExecutionResult{
		Status:       winner.Status,
		Body:         winner.Body,
		Header:       winner.Headers,
		WinnerNodeID: winner.NodeID,
	}, nil
}

// runTask sleeps the target's launch delay (cancel-safe), then issues the
// outbound call. On any network error or non-2xx, it returns a synthetic
// failure reply instead of propagating an error.
func (r *Runner) runTask(ctx context.Context, cmd Command, target Target) ReplicaReply {
	if target.Delay > 0 {
		timer := time.NewTimer(target.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ReplicaReply{NodeID: target.NodeID, OK: false, Status: 599}
		}
	}

	start := time.Now()
	reply := r.call(ctx, cmd, target)
	reply.LatencyMS = float64(time.Since(start).Microseconds()) / 1000.0
	return reply
}

func (r *Runner) call(ctx context.Context, cmd Command, target Target) ReplicaReply {
	url := fmt.Sprintf("http://%s:%d%s", target.Host, target.Port, cmd.Path)
	if cmd.Query != "" {
		url += "?" + cmd.Query
	}

	req, err := http.NewRequestWithContext(ctx, cmd.Method, url, bytes.NewReader(cmd.Body))
	if err != nil {
		return ReplicaReply{NodeID: target.NodeID, OK: false, Status: 599}
	}
	req.Header = cmd.Header.Clone()

	resp, err := r.client.Do(req)
	if err != nil {
		return ReplicaReply{NodeID: target.NodeID, OK: false, Status: 599}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ReplicaReply{NodeID: target.NodeID, OK: false, Status: 599}
	}

	digest := sha256.Sum256(body)
	return ReplicaReply{
		NodeID:  target.NodeID,
		OK:      resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status:  resp.StatusCode,
		Value:   hex.EncodeToString(digest[:]),
		Body:    body,
		Headers: resp.Header,
	}
}
