package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type action struct {
	Name        string
	Description string
}

type model struct {
	actions   []action
	selected  int
	userID    int
	productID int
	quantity  int
	field     int
	status    string
	detail    string
	busy      bool
}

func initialModel() model {
	return model{
		actions: []action{
			{"seed-user", "Create the selected user"},
			{"seed-product", "Create the selected product with stock 10"},
			{"place-order", "Place an order for the selection"},
			{"purchases", "Show accumulated purchases for the user"},
			{"bench", "Hammer /order for 5 seconds"},
		},
		userID:    1,
		productID: 1,
		quantity:  1,
		status:    "Ready",
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up":
			if m.selected > 0 {
				m.selected--
			}
		case "down":
			if m.selected < len(m.actions)-1 {
				m.selected++
			}
		case "tab":
			m.field = (m.field + 1) % 3
		case "left":
			m.adjust(-1)
		case "right":
			m.adjust(1)
		case "enter":
			if m.busy {
				return m, nil
			}
			m.busy = true
			m.status = "Running..."
			return m, runActionCmd(m.actions[m.selected].Name, m.userID, m.productID, m.quantity)
		}
	case actionResult:
		m.busy = false
		m.status = msg.status
		m.detail = msg.detail
	}
	return m, nil
}

func (m *model) adjust(delta int) {
	switch m.field {
	case 0:
		m.userID = max(1, m.userID+delta)
	case 1:
		m.productID = max(1, m.productID+delta)
	case 2:
		m.quantity = max(1, m.quantity+delta)
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (m model) View() string {
	b := &strings.Builder{}
	fmt.Fprintln(b, "order-coordination CLI")
	fmt.Fprintln(b, "")
	fmt.Fprintln(b, "Actions:")
	for i, a := range m.actions {
		marker := " "
		if i == m.selected {
			marker = ">"
		}
		fmt.Fprintf(b, " %s %s - %s\n", marker, a.Name, a.Description)
	}
	fmt.Fprintln(b, "")
	fields := []string{
		fmt.Sprintf("user=%d", m.userID),
		fmt.Sprintf("product=%d", m.productID),
		fmt.Sprintf("quantity=%d", m.quantity),
	}
	fields[m.field] = "[" + fields[m.field] + "]"
	fmt.Fprintf(b, "Selection: %s\n", strings.Join(fields, " "))
	fmt.Fprintln(b, "")
	fmt.Fprintf(b, "Status: %s\n", m.status)
	if m.detail != "" {
		fmt.Fprintf(b, "Detail: %s\n", m.detail)
	}
	fmt.Fprintln(b, "\nControls: up/down select action, tab switch field, left/right adjust, enter to run, q to quit")
	return b.String()
}

type actionResult struct {
	status string
	detail string
}

func runActionCmd(name string, userID, productID, quantity int) tea.Cmd {
	return func() tea.Msg {
		orderURL := getenv("ORDER_BASE_URL", "http://localhost:14010")
		userURL := getenv("USER_BASE_URL", "http://localhost:14001")
		productURL := getenv("PRODUCT_BASE_URL", "http://localhost:15000")
		switch name {
		case "seed-user":
			body, err := post(userURL+"/user", map[string]any{
				"command":  "create",
				"id":       userID,
				"username": fmt.Sprintf("user-%d", userID),
				"email":    fmt.Sprintf("user-%d@example.com", userID),
				"password": "changeme",
			})
			if err != nil {
				return actionResult{status: fmt.Sprintf("Create user failed: %v", err)}
			}
			return actionResult{status: "User created", detail: body}
		case "seed-product":
			body, err := post(productURL+"/product", map[string]any{
				"command":     "create",
				"id":          productID,
				"name":        fmt.Sprintf("product-%d", productID),
				"description": "seeded from cli",
				"price":       9.99,
				"quantity":    10,
			})
			if err != nil {
				return actionResult{status: fmt.Sprintf("Create product failed: %v", err)}
			}
			return actionResult{status: "Product created", detail: body}
		case "purchases":
			body, err := get(fmt.Sprintf("%s/user/purchased/%d", strings.TrimRight(orderURL, "/"), userID))
			if err != nil {
				return actionResult{status: fmt.Sprintf("Purchases lookup failed: %v", err)}
			}
			return actionResult{status: "Purchases", detail: body}
		case "bench":
			detail := runBenchmark(orderURL, userID, productID)
			return actionResult{status: "Benchmark finished", detail: detail}
		default:
			body, err := placeOrder(orderURL, userID, productID, quantity)
			if err != nil {
				return actionResult{status: fmt.Sprintf("Order rejected: %v", err)}
			}
			return actionResult{status: "Order placed", detail: body}
		}
	}
}

func placeOrder(baseURL string, userID, productID, quantity int) (string, error) {
	return post(strings.TrimRight(baseURL, "/")+"/order", map[string]any{
		"command":    "place order",
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
	})
}

func post(url string, payload any) (string, error) {
	data, _ := json.Marshal(payload)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	return do(req)
}

func get(url string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	return do(req)
}

func do(req *http.Request) (string, error) {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return strings.TrimSpace(string(body)), nil
}

func runBenchmark(baseURL string, userID, productID int) string {
	duration := 5 * time.Second
	vus := 5
	var mu sync.Mutex
	var total time.Duration
	var count int
	var rejected int
	var errors int
	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < vus; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				default:
					start := time.Now()
					_, err := placeOrder(baseURL, userID, productID, 1)
					mu.Lock()
					switch {
					case err == nil:
						count++
						total += time.Since(start)
					case strings.HasPrefix(err.Error(), "status 4"):
						rejected++
					default:
						errors++
					}
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	avg := time.Duration(0)
	if count > 0 {
		avg = total / time.Duration(count)
	}
	throughput := float64(count) / duration.Seconds()
	return fmt.Sprintf("placed=%d rejected=%d errors=%d avg=%s throughput=%.2f orders/s", count, rejected, errors, avg, throughput)
}

func main() {
	runCmd := flag.String("run", "", "run action without the TUI: seed-user|seed-product|place-order|purchases|bench")
	userID := flag.Int("user", 1, "user id")
	productID := flag.Int("product", 1, "product id")
	quantity := flag.Int("quantity", 1, "order quantity")
	flag.Parse()

	if *runCmd != "" {
		res := runActionCmd(*runCmd, *userID, *productID, *quantity)().(actionResult)
		fmt.Println(res.status)
		if res.detail != "" {
			fmt.Println(res.detail)
		}
		return
	}

	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}
