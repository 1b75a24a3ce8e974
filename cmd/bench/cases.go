// README: Bench cases: environment checks, contention on direct accept and offers, lifecycle and throughput.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	statusPass = "PASS"
	statusFail = "FAIL"
	statusSkip = "SKIP"

	pendingGeoKey = "matching:pending_requests"
)

var (
	miraflores = map[string]any{"name": "Miraflores", "lat": -12.1203, "lng": -77.0282}
	sanIsidro  = map[string]any{"name": "San Isidro", "lat": -12.1040, "lng": -77.0348}
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client

	// state shared by the cases, filled in order
	riderToken   string
	driverTokens []string
	requestID    int64
	winner       int
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:    cfg,
		httpc:  &http.Client{Timeout: 10 * time.Second},
		winner: -1,
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))
	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	return []TestCase{
		{Name: "Env: Postgres connect", Run: checkPostgres},
		{Name: "Env: Redis connect", Run: checkRedis},
		{Name: "Migration: apply (optional)", Run: applyMigration},
		{Name: "Migration: tables exist", Run: checkTables},
		{Name: "API: healthz", Run: checkHealth},
		{Name: "Auth: register rider and drivers", Run: registerUsers},
		{Name: "Route: quote Miraflores -> San Isidro", Run: quote},
		{Name: "Request: invalid body -> 400", Run: invalidRequest},
		{Name: "Request: rider creates request", Run: createRequest},
		{Name: "Redis: request indexed while pending", Run: indexedWhilePending},
		{Name: "Concurrency: drivers race direct accept", Run: raceDirectAccept},
		{Name: "Redis: request removed after accept", Run: removedAfterAccept},
		{Name: "Lifecycle: confirm, start, complete", Run: lifecycle},
		{Name: "Concurrency: offers settle on accept", Run: offersSettle},
		{Name: "Postgres: collections persisted", Run: checkCollections},
		{Name: "Perf: quote throughput", Run: quoteThroughput},
	}
}

func checkPostgres(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: statusSkip, Note: "dsn not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.db.Ping(ctx); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	return Result{Status: statusPass}
}

func checkRedis(ctx context.Context, r *Runner) Result {
	if r.redis == nil {
		return Result{Status: statusSkip, Note: "redis not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	return Result{Status: statusPass}
}

func applyMigration(ctx context.Context, r *Runner) Result {
	if !r.cfg.ApplyMigration {
		return Result{Status: statusSkip, Note: "apply-migration=false"}
	}
	if r.db == nil {
		return Result{Status: statusFail, Note: "db not configured"}
	}
	sql, err := os.ReadFile(r.cfg.MigrationPath)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	for _, s := range splitSQL(string(sql)) {
		if _, err := r.db.Exec(ctx, s); err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
	}
	return Result{Status: statusPass}
}

func checkTables(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: statusSkip, Note: "db not configured"}
	}
	tables, err := extractTables(r.cfg.MigrationPath)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	for _, t := range tables {
		var exists bool
		err := r.db.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
			t,
		).Scan(&exists)
		if err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
		if !exists {
			return Result{Status: statusFail, Note: "missing table: " + t}
		}
	}
	return Result{Status: statusPass, Note: fmt.Sprintf("%d tables", len(tables))}
}

func checkHealth(ctx context.Context, r *Runner) Result {
	start := time.Now()
	code, err := r.call(ctx, http.MethodGet, "/healthz", "", nil, nil)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	return expect(code, time.Since(start), http.StatusOK)
}

func registerUsers(ctx context.Context, r *Runner) Result {
	suffix := time.Now().UnixNano()
	token, err := r.register(ctx, "rider", fmt.Sprintf("bench-rider-%d@example.com", suffix))
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	r.riderToken = token
	r.driverTokens = r.driverTokens[:0]
	for i := 0; i < r.cfg.Drivers; i++ {
		token, err := r.register(ctx, "driver", fmt.Sprintf("bench-driver-%d-%d@example.com", suffix, i))
		if err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
		r.driverTokens = append(r.driverTokens, token)
	}
	return Result{Status: statusPass, Note: fmt.Sprintf("drivers=%d", len(r.driverTokens))}
}

func quote(ctx context.Context, r *Runner) Result {
	var out struct {
		Quote struct {
			Fare float64 `json:"fare"`
		} `json:"quote"`
	}
	start := time.Now()
	code, err := r.call(ctx, http.MethodPost, "/api/routes/quote", "", map[string]any{"origin": miraflores, "destination": sanIsidro}, &out)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	res := expect(code, time.Since(start), http.StatusOK)
	res.Note += fmt.Sprintf(" fare=%.2f", out.Quote.Fare)
	return res
}

func invalidRequest(ctx context.Context, r *Runner) Result {
	if r.riderToken == "" {
		return Result{Status: statusSkip, Note: "no rider"}
	}
	code, err := r.call(ctx, http.MethodPost, "/api/requests", r.riderToken, map[string]any{}, nil)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	return expect(code, 0, http.StatusBadRequest)
}

func createRequest(ctx context.Context, r *Runner) Result {
	if r.riderToken == "" {
		return Result{Status: statusSkip, Note: "no rider"}
	}
	id, code, err := r.newRequest(ctx)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	r.requestID = id
	res := expect(code, 0, http.StatusCreated)
	res.Note += fmt.Sprintf(" id=%d", id)
	return res
}

func indexedWhilePending(ctx context.Context, r *Runner) Result {
	if r.redis == nil || r.requestID == 0 {
		return Result{Status: statusSkip, Note: "redis or request missing"}
	}
	err := r.redis.ZScore(ctx, pendingGeoKey, fmt.Sprint(r.requestID)).Err()
	if err == redis.Nil {
		return Result{Status: statusFail, Note: "request not in pending index (is the API using redis?)"}
	}
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	return Result{Status: statusPass}
}

// raceDirectAccept fires every driver at the same request behind a start barrier.
// Exactly one accept may win; every other driver must get 409.
func raceDirectAccept(ctx context.Context, r *Runner) Result {
	if r.requestID == 0 || len(r.driverTokens) == 0 {
		return Result{Status: statusSkip, Note: "no request or drivers"}
	}
	path := fmt.Sprintf("/api/driver/requests/%d/accept", r.requestID)
	codes := make([]int, len(r.driverTokens))
	var wg sync.WaitGroup
	startGate := make(chan struct{})
	for i, token := range r.driverTokens {
		wg.Add(1)
		go func(i int, token string) {
			defer wg.Done()
			<-startGate
			code, err := r.call(ctx, http.MethodPost, path, token, nil, nil)
			if err != nil {
				code = -1
			}
			codes[i] = code
		}(i, token)
	}
	start := time.Now()
	close(startGate)
	wg.Wait()
	latency := time.Since(start)

	success, conflict, other := 0, 0, 0
	for i, code := range codes {
		switch code {
		case http.StatusOK:
			success++
			r.winner = i
		case http.StatusConflict:
			conflict++
		default:
			other++
		}
	}
	note := fmt.Sprintf("success=%d conflict=%d other=%d", success, conflict, other)
	if success != 1 || other != 0 {
		return Result{Status: statusFail, Latency: latency, Note: note}
	}
	return Result{Status: statusPass, Latency: latency, Note: note}
}

func removedAfterAccept(ctx context.Context, r *Runner) Result {
	if r.redis == nil || r.winner < 0 {
		return Result{Status: statusSkip, Note: "redis or winner missing"}
	}
	err := r.redis.ZScore(ctx, pendingGeoKey, fmt.Sprint(r.requestID)).Err()
	if err == redis.Nil {
		return Result{Status: statusPass}
	}
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	return Result{Status: statusFail, Note: "accepted request still indexed"}
}

func lifecycle(ctx context.Context, r *Runner) Result {
	if r.winner < 0 {
		return Result{Status: statusSkip, Note: "no winning driver"}
	}
	path := fmt.Sprintf("/api/requests/%d/transition", r.requestID)
	steps := []struct {
		token string
		state string
	}{
		{r.riderToken, "confirmed"},
		{r.driverTokens[r.winner], "in_progress"},
		{r.driverTokens[r.winner], "completed"},
	}
	start := time.Now()
	for _, s := range steps {
		code, err := r.call(ctx, http.MethodPost, path, s.token, map[string]any{"state": s.state}, nil)
		if err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
		if code != http.StatusOK {
			return Result{Status: statusFail, Note: fmt.Sprintf("%s: status=%d", s.state, code)}
		}
	}
	var history struct {
		Count int `json:"count"`
	}
	if _, err := r.call(ctx, http.MethodGet, "/api/me/history", r.riderToken, nil, &history); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if history.Count < 1 {
		return Result{Status: statusFail, Note: "completed trip missing from history"}
	}
	return Result{Status: statusPass, Latency: time.Since(start)}
}

// offersSettle has every driver bid concurrently, then the rider takes the cheapest.
// Afterwards no offer on the request may remain pending.
func offersSettle(ctx context.Context, r *Runner) Result {
	if r.riderToken == "" || len(r.driverTokens) == 0 {
		return Result{Status: statusSkip, Note: "no users"}
	}
	id, code, err := r.newRequest(ctx)
	if err != nil || code != http.StatusCreated {
		return Result{Status: statusFail, Note: fmt.Sprintf("create: status=%d err=%v", code, err)}
	}

	path := fmt.Sprintf("/api/driver/requests/%d/offers", id)
	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i, token := range r.driverTokens {
		wg.Add(1)
		go func(i int, token string) {
			defer wg.Done()
			code, err := r.call(ctx, http.MethodPost, path, token, map[string]any{"price": 10 + float64(i)}, nil)
			if err == nil && code == http.StatusCreated {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}(i, token)
	}
	wg.Wait()
	if created != len(r.driverTokens) {
		return Result{Status: statusFail, Note: fmt.Sprintf("offers created=%d of %d", created, len(r.driverTokens))}
	}

	var offers struct {
		Offers []struct {
			ID int64 `json:"id"`
		} `json:"offers"`
	}
	offersPath := fmt.Sprintf("/api/requests/%d/offers", id)
	if _, err := r.call(ctx, http.MethodGet, offersPath, r.riderToken, nil, &offers); err != nil || len(offers.Offers) == 0 {
		return Result{Status: statusFail, Note: fmt.Sprintf("list offers: %v", err)}
	}
	code, err = r.call(ctx, http.MethodPost, fmt.Sprintf("/api/offers/%d/accept", offers.Offers[0].ID), r.riderToken, nil, nil)
	if err != nil || code != http.StatusOK {
		return Result{Status: statusFail, Note: fmt.Sprintf("accept: status=%d err=%v", code, err)}
	}
	offers.Offers = nil
	if _, err := r.call(ctx, http.MethodGet, offersPath, r.riderToken, nil, &offers); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if len(offers.Offers) != 0 {
		return Result{Status: statusFail, Note: fmt.Sprintf("%d offers still pending", len(offers.Offers))}
	}
	return Result{Status: statusPass, Note: fmt.Sprintf("offers=%d", created)}
}

func checkCollections(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: statusSkip, Note: "db not configured"}
	}
	var n int
	err := r.db.QueryRow(ctx,
		"SELECT COALESCE(jsonb_array_length(records), 0) FROM collections WHERE name = 'trip_requests'",
	).Scan(&n)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if n < 1 {
		return Result{Status: statusFail, Note: "no trip requests stored"}
	}
	return Result{Status: statusPass, Note: fmt.Sprintf("trip_requests=%d", n)}
}

func quoteThroughput(ctx context.Context, r *Runner) Result {
	body := map[string]any{"origin": miraflores, "destination": sanIsidro}
	end := time.Now().Add(r.cfg.Duration)
	var (
		mu       sync.Mutex
		count    int64
		errCount int64
		wg       sync.WaitGroup
	)
	for i := 0; i < r.cfg.Drivers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				code, err := r.call(ctx, http.MethodPost, "/api/routes/quote", "", body, nil)
				mu.Lock()
				if err != nil || code != http.StatusOK {
					errCount++
				} else {
					count++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: statusFail, Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: statusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

func (r *Runner) register(ctx context.Context, role, email string) (string, error) {
	body := map[string]any{"role": role, "name": email, "email": email, "password": "bench-secret"}
	if role == "driver" {
		body["vehicle"] = map[string]any{"plate": fmt.Sprintf("B%07d", time.Now().UnixNano()%10_000_000)}
	}
	var out struct {
		Token string `json:"token"`
	}
	code, err := r.call(ctx, http.MethodPost, "/api/auth/register", "", body, &out)
	if err != nil {
		return "", err
	}
	if code != http.StatusCreated {
		return "", fmt.Errorf("register %s: status=%d", email, code)
	}
	return out.Token, nil
}

func (r *Runner) newRequest(ctx context.Context) (int64, int, error) {
	var out struct {
		ID int64 `json:"id"`
	}
	code, err := r.call(ctx, http.MethodPost, "/api/requests", r.riderToken, map[string]any{
		"origin":      miraflores,
		"destination": sanIsidro,
	}, &out)
	return out.ID, code, err
}

// call sends a JSON request and decodes 2xx bodies into out.
func (r *Runner) call(ctx context.Context, method, path, token string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
		return resp.StatusCode, nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func expect(code int, latency time.Duration, want int) Result {
	note := fmt.Sprintf("status=%d", code)
	if code != want {
		return Result{Status: statusFail, Latency: latency, Note: note}
	}
	return Result{Status: statusPass, Latency: latency, Note: note}
}

func extractTables(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	re := regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)
	matches := re.FindAllStringSubmatch(string(b), -1)
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		tables = append(tables, m[1])
	}
	return tables, nil
}

func splitSQL(sql string) []string {
	lines := strings.Split(sql, "\n")
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		l := strings.TrimSpace(line)
		if strings.HasPrefix(l, "--") || l == "" {
			continue
		}
		filtered = append(filtered, line)
	}
	parts := strings.Split(strings.Join(filtered, "\n"), ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
