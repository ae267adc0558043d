package perf

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/redis/go-redis/v9"

	"github.com/clubroster/roster/internal/auth"
	jobmetrics "github.com/clubroster/roster/internal/jobs"
	"github.com/clubroster/roster/internal/platform/ratelimit"
	"github.com/clubroster/roster/internal/rbac"
	"github.com/clubroster/roster/jobs"
)

type flakyPurger struct {
	calls     int
	failEvery int
}

func (p *flakyPurger) DeleteExpired(context.Context) (int64, error) {
	p.calls++
	if p.failEvery > 0 && p.calls%p.failEvery == 0 {
		return 0, errors.New("statement timeout")
	}
	return 5, nil
}

func TestRefreshTokenSweepThroughputAndReliability(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	purger := &flakyPurger{failEvery: 20}
	job := jobs.NewRefreshTokenSweepJob(purger, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics)

	task, err := jobs.NewRefreshTokenSweepTask("perf")
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	for i := 0; i < 60; i++ {
		_ = job.Handle(context.Background(), task)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	success := metricValue(t, families, "roster_jobs_total", map[string]string{"job": jobs.TaskRefreshTokenSweep, "status": "success"})
	failure := metricValue(t, families, "roster_jobs_total", map[string]string{"job": jobs.TaskRefreshTokenSweep, "status": "failure"})
	if success+failure != 60 {
		t.Fatalf("expected 60 sweep executions, got %v", success+failure)
	}
	ratio := success / (success + failure)
	if ratio < 0.9 {
		t.Fatalf("sweep success ratio too low: %f", ratio)
	}

	purged := metricValue(t, families, "roster_jobs_purged_total", map[string]string{"resource": "refresh_tokens"})
	if purged != success*5 {
		t.Fatalf("purged count mismatch: got %v want %v", purged, success*5)
	}

	mean := histogramMean(t, families, "roster_job_duration_seconds", map[string]string{"job": jobs.TaskRefreshTokenSweep})
	if mean > 0.5 {
		t.Fatalf("sweep duration above budget: %f", mean)
	}
}

func TestAccessTokenLatencyTargets(t *testing.T) {
	issuer, err := auth.NewTokenIssuer(auth.TokenConfig{
		AccessSecret:  []byte("perf-access-secret"),
		RefreshSecret: []byte("perf-refresh-secret"),
	})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	user := &auth.User{ID: "a1b2", Username: "perf", Role: rbac.RoleManager}

	samples := make([]time.Duration, 0, 200)
	for i := 0; i < 200; i++ {
		start := time.Now()
		token, _, err := issuer.IssueAccessToken(user)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		if _, err := issuer.ParseAccessToken(token); err != nil {
			t.Fatalf("parse: %v", err)
		}
		samples = append(samples, time.Since(start))
	}
	if p95 := percentile95(samples); p95 > 50*time.Millisecond {
		t.Fatalf("token round trip regression: p95=%s", p95)
	}
}

func BenchmarkAccessTokenRoundTrip(b *testing.B) {
	issuer, err := auth.NewTokenIssuer(auth.TokenConfig{
		AccessSecret:  []byte("perf-access-secret"),
		RefreshSecret: []byte("perf-refresh-secret"),
	})
	if err != nil {
		b.Fatal(err)
	}
	user := &auth.User{ID: "a1b2", Username: "perf", Role: rbac.RoleViewer}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		token, _, err := issuer.IssueAccessToken(user)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := issuer.ParseAccessToken(token); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRedisLimiterAllow(b *testing.B) {
	mr := miniredis.RunT(b)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b.Cleanup(func() { _ = client.Close() })
	limiter := ratelimit.NewRedisLimiter(client, ratelimit.Config{Limit: b.N + 1, Window: time.Minute})

	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := limiter.Allow(ctx, "203.0.113.7"); err != nil {
			b.Fatal(err)
		}
	}
}

func percentile95(samples []time.Duration) time.Duration {
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted))*0.95+0.5) - 1
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				if fam.GetType() == dto.MetricType_COUNTER {
					return metric.GetCounter().GetValue()
				}
				if fam.GetType() == dto.MetricType_GAUGE {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func histogramMean(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				hist := metric.GetHistogram()
				if hist == nil || hist.GetSampleCount() == 0 {
					t.Fatalf("histogram %s missing samples", name)
				}
				return hist.GetSampleSum() / float64(hist.GetSampleCount())
			}
		}
	}
	t.Fatalf("histogram %s with labels %v not found", name, labels)
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	for _, lp := range metric.GetLabel() {
		if val, ok := labels[lp.GetName()]; ok {
			if lp.GetValue() != val {
				return false
			}
		}
	}
	for key := range labels {
		found := false
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == key {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
