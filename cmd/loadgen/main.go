// loadgen drives the order-placement stack under concurrent load and
// reports latency percentiles and outcome counts. The oversell scenario
// doubles as a correctness probe: it fires N quantity-1 orders at a product
// seeded with stock S and reports how many were approved — more than S
// approvals means the inventory invariant broke.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type runResult struct {
	Timestamp          string         `json:"timestamp"`
	BaseURL            string         `json:"base_url"`
	Scenario           string         `json:"scenario"`
	Requests           int            `json:"requests"`
	Concurrency        int            `json:"concurrency"`
	SuccessfulRequests int            `json:"successful_requests"`
	ErrorRequests      int            `json:"error_requests"`
	DurationSeconds    float64        `json:"duration_seconds"`
	AvgLatencyMs       float64        `json:"avg_latency_ms"`
	MinLatencyMs       float64        `json:"min_latency_ms"`
	MaxLatencyMs       float64        `json:"max_latency_ms"`
	P50LatencyMs       float64        `json:"p50_latency_ms"`
	P90LatencyMs       float64        `json:"p90_latency_ms"`
	P95LatencyMs       float64        `json:"p95_latency_ms"`
	P99LatencyMs       float64        `json:"p99_latency_ms"`
	ThroughputRPS      float64        `json:"throughput_rps"`
	StatusCounts       map[string]int `json:"status_counts"`
	FirstError         string         `json:"first_error"`

	SeededStock  int  `json:"seeded_stock,omitempty"`
	Approvals    int  `json:"approvals,omitempty"`
	OversoldBy   int  `json:"oversold_by,omitempty"`
	InvariantOK  bool `json:"invariant_ok"`
	FinalStock   int  `json:"final_stock,omitempty"`
	StockFetched bool `json:"stock_fetched,omitempty"`
}

type collector struct {
	mu           sync.Mutex
	success      int
	errors       int
	approvals    int
	total        time.Duration
	minLatency   time.Duration
	maxLatency   time.Duration
	latenciesMs  []float64
	statusCounts map[string]int
	firstError   string
}

func newCollector() *collector {
	return &collector{statusCounts: make(map[string]int)}
}

func (c *collector) record(latency time.Duration, status int, approved bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statusCounts[fmt.Sprintf("%d", status)]++
	if err != nil {
		c.errors++
		if c.firstError == "" {
			c.firstError = err.Error()
		}
		return
	}
	c.success++
	if approved {
		c.approvals++
	}
	c.total += latency
	if c.minLatency == 0 || latency < c.minLatency {
		c.minLatency = latency
	}
	if latency > c.maxLatency {
		c.maxLatency = latency
	}
	c.latenciesMs = append(c.latenciesMs, float64(latency.Milliseconds()))
}

func main() {
	baseURL := flag.String("base-url", getenv("ORDER_BASE_URL", "http://localhost:14010"), "order-service base URL")
	productURL := flag.String("product-url", getenv("PRODUCT_BASE_URL", ""), "product-service base URL (required for seeding and the oversell probe)")
	userURL := flag.String("user-url", getenv("USER_BASE_URL", ""), "user-service base URL (required for seeding)")
	scenario := flag.String("scenario", "mixed", "scenario to run: mixed|oversell")
	total := flag.Int("total", 1000, "total number of requests")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	users := flag.Int("users", 50, "users to seed for the mixed scenario")
	products := flag.Int("products", 20, "products to seed for the mixed scenario")
	stock := flag.Int("stock", 100, "stock per seeded product (oversell: total stock S)")
	timeout := flag.Duration("timeout", 10*time.Second, "per-request timeout")
	output := flag.String("output", "", "optional output path for JSON result")
	flag.Parse()

	if *total <= 0 || *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "total and concurrency must be > 0")
		os.Exit(1)
	}

	client := &http.Client{}
	if err := seed(client, *scenario, *userURL, *productURL, *users, *products, *stock, *timeout); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	col := newCollector()
	tasks := make(chan struct{})
	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rng := rand.New(rand.NewSource(time.Now().UnixNano() ^ int64(uuid.New().ID())))
			for range tasks {
				userID, productID, qty := pickOrder(*scenario, rng, *users, *products)
				latency, status, approved, err := placeOrder(client, *baseURL, userID, productID, qty, *timeout)
				col.record(latency, status, approved, err)
			}
		}()
	}
	for i := 0; i < *total; i++ {
		tasks <- struct{}{}
	}
	close(tasks)
	wg.Wait()
	duration := time.Since(start)

	result := buildResult(col, *baseURL, *scenario, *total, *concurrency, duration)
	if *scenario == "oversell" {
		result.SeededStock = *stock
		result.Approvals = col.approvals
		if col.approvals > *stock {
			result.OversoldBy = col.approvals - *stock
			result.InvariantOK = false
		} else {
			result.InvariantOK = true
		}
		if *productURL != "" {
			if remaining, err := fetchStock(client, *productURL, oversellProductID, *timeout); err == nil {
				result.FinalStock = remaining
				result.StockFetched = true
				if remaining < 0 {
					result.InvariantOK = false
				}
			}
		}
	} else {
		result.InvariantOK = true
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode result: %v\n", err)
		os.Exit(1)
	}
	if *output != "" {
		data, _ := json.MarshalIndent(result, "", "  ")
		if err := os.WriteFile(*output, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write output: %v\n", err)
			os.Exit(1)
		}
	}
}

// The oversell probe always targets one well-known product id.
const oversellProductID = 999001

func pickOrder(scenario string, rng *rand.Rand, users, products int) (userID, productID, qty int) {
	if scenario == "oversell" {
		return 1, oversellProductID, 1
	}
	return 1 + rng.Intn(users), 1 + rng.Intn(products), 1 + rng.Intn(3)
}

func seed(client *http.Client, scenario, userURL, productURL string, users, products, stock int, timeout time.Duration) error {
	if userURL == "" || productURL == "" {
		return fmt.Errorf("user-url and product-url are required to seed the %s scenario", scenario)
	}
	userCount, productCount := users, products
	if scenario == "oversell" {
		userCount, productCount = 1, 0
	}
	for id := 1; id <= userCount; id++ {
		payload := map[string]any{
			"command":  "create",
			"id":       id,
			"username": fmt.Sprintf("loadgen-%d", id),
			"email":    fmt.Sprintf("loadgen-%d@example.com", id),
			"password": "loadgen",
		}
		// 409 means an earlier run already seeded this id.
		if status, err := postJSON(client, strings.TrimRight(userURL, "/")+"/user", payload, timeout); err != nil {
			return fmt.Errorf("seed user %d: %w", id, err)
		} else if status != http.StatusOK && status != http.StatusConflict {
			return fmt.Errorf("seed user %d: status %d", id, status)
		}
	}
	type productSeed struct{ id, quantity int }
	var seeds []productSeed
	for id := 1; id <= productCount; id++ {
		seeds = append(seeds, productSeed{id: id, quantity: stock})
	}
	if scenario == "oversell" {
		seeds = append(seeds, productSeed{id: oversellProductID, quantity: stock})
	}
	for _, s := range seeds {
		payload := map[string]any{
			"command":     "create",
			"id":          s.id,
			"name":        fmt.Sprintf("loadgen product %d", s.id),
			"description": "seeded by loadgen",
			"price":       9.99,
			"quantity":    s.quantity,
		}
		status, err := postJSON(client, strings.TrimRight(productURL, "/")+"/product", payload, timeout)
		if err != nil {
			return fmt.Errorf("seed product %d: %w", s.id, err)
		}
		if status == http.StatusConflict {
			// Reset stock for a repeat run so the probe stays meaningful.
			reset := map[string]any{"command": "update", "id": s.id, "quantity": s.quantity}
			if status, err = postJSON(client, strings.TrimRight(productURL, "/")+"/product", reset, timeout); err != nil || status != http.StatusOK {
				return fmt.Errorf("reset product %d stock: status %d err %v", s.id, status, err)
			}
		} else if status != http.StatusOK {
			return fmt.Errorf("seed product %d: status %d", s.id, status)
		}
	}
	return nil
}

func placeOrder(client *http.Client, baseURL string, userID, productID, qty int, timeout time.Duration) (time.Duration, int, bool, error) {
	payload := map[string]any{
		"command":    "place order",
		"user_id":    userID,
		"product_id": productID,
		"quantity":   qty,
	}
	start := time.Now()
	status, err := postJSON(client, strings.TrimRight(baseURL, "/")+"/order", payload, timeout)
	latency := time.Since(start)
	if err != nil {
		return latency, 0, false, err
	}
	// Business rejections (404/409) count as successful requests; only
	// transport faults and 5xx are errors.
	if status >= 500 {
		return latency, status, false, fmt.Errorf("status %d", status)
	}
	return latency, status, status == http.StatusOK, nil
}

func fetchStock(client *http.Client, productURL string, productID int, timeout time.Duration) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	url := fmt.Sprintf("%s/product/%d", strings.TrimRight(productURL, "/"), productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("status %d", resp.StatusCode)
	}
	var payload struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, err
	}
	return payload.Quantity, nil
}

func postJSON(client *http.Client, url string, payload any, timeout time.Duration) (int, error) {
	data, _ := json.Marshal(payload)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func buildResult(col *collector, baseURL, scenario string, total, concurrency int, duration time.Duration) runResult {
	avgLatency, minLatency, maxLatency := 0.0, 0.0, 0.0
	if col.success > 0 {
		avgLatency = float64(col.total.Milliseconds()) / float64(col.success)
		minLatency = float64(col.minLatency.Milliseconds())
		maxLatency = float64(col.maxLatency.Milliseconds())
	}
	p50, p90, p95, p99 := calcPercentiles(col.latenciesMs)
	return runResult{
		Timestamp:          time.Now().UTC().Format(time.RFC3339),
		BaseURL:            baseURL,
		Scenario:           scenario,
		Requests:           total,
		Concurrency:        concurrency,
		SuccessfulRequests: col.success,
		ErrorRequests:      col.errors,
		DurationSeconds:    duration.Seconds(),
		AvgLatencyMs:       avgLatency,
		MinLatencyMs:       minLatency,
		MaxLatencyMs:       maxLatency,
		P50LatencyMs:       p50,
		P90LatencyMs:       p90,
		P95LatencyMs:       p95,
		P99LatencyMs:       p99,
		ThroughputRPS:      float64(col.success) / duration.Seconds(),
		StatusCounts:       col.statusCounts,
		FirstError:         col.firstError,
	}
}

func calcPercentiles(values []float64) (float64, float64, float64, float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}
	sort.Float64s(values)
	return percentile(values, 0.50), percentile(values, 0.90), percentile(values, 0.95), percentile(values, 0.99)
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}
