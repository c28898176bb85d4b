// cbtest drives a running gate through a full open/close cycle against the
// demo upstream.
//
// Usage:
//
//	go run ./scripts/cbtest -gate http://localhost:8080
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
)

type circuit struct {
	Key        string `json:"key"`
	Rule       string `json:"rule"`
	State      string `json:"state"`
	Count      int    `json:"count"`
	RetryAfter int    `json:"retry_after"`
}

func main() {
	var (
		gateURL  = flag.String("gate", "http://localhost:8080", "Gate URL")
		path     = flag.String("path", "/api/demo", "Demo route")
		failures = flag.Int("failures", 10, "Maximum failing requests to send before giving up")
	)
	flag.Parse()

	client := &http.Client{Timeout: 5 * time.Second}

	fmt.Println(colorBlue + "━━━ PHASE 1: Closed circuit ━━━" + colorReset)
	status, _, err := get(client, *gateURL+*path+"?text=hello")
	if err != nil || status != http.StatusOK {
		fmt.Printf(colorRed+"  ✗ expected 200, got %d (%v)\n"+colorReset, status, err)
		os.Exit(1)
	}
	fmt.Println(colorGreen + "  ✓ request forwarded" + colorReset)

	fmt.Println(colorBlue + "━━━ PHASE 2: Trip the breaker ━━━" + colorReset)
	retryAfter := -1
	for i := 1; i <= *failures; i++ {
		status, header, err := get(client, *gateURL+*path+"?text=err")
		if err != nil {
			fmt.Printf(colorRed+"  Request %d: ERROR - %v\n"+colorReset, i, err)
			continue
		}
		fmt.Printf("  Request %d: status=%d\n", i, status)
		if v := header.Get("Retry-After"); v != "" {
			retryAfter, _ = strconv.Atoi(v)
			break
		}
	}
	if retryAfter < 0 {
		fmt.Println(colorRed + "  ✗ circuit never opened" + colorReset)
		os.Exit(1)
	}
	fmt.Printf(colorGreen+"  ✓ circuit open, Retry-After=%ds\n"+colorReset, retryAfter)

	fmt.Println(colorBlue + "━━━ PHASE 3: Circuit table ━━━" + colorReset)
	circuits, err := getCircuits(client, *gateURL+"/admin/circuits")
	if err != nil {
		fmt.Printf(colorYellow+"  Could not fetch circuits: %v\n"+colorReset, err)
	}
	for _, c := range circuits {
		fmt.Printf("    %s rule=%q state=%s count=%d retry_after=%d\n", c.Key, c.Rule, c.State, c.Count, c.RetryAfter)
	}

	fmt.Println(colorBlue + "━━━ PHASE 4: Recovery ━━━" + colorReset)
	fmt.Printf("  waiting %ds...\n", retryAfter)
	time.Sleep(time.Duration(retryAfter)*time.Second + 100*time.Millisecond)

	status, _, err = get(client, *gateURL+*path+"?text=hello")
	if err != nil || status != http.StatusOK {
		fmt.Printf(colorRed+"  ✗ expected 200 after cooldown, got %d (%v)\n"+colorReset, status, err)
		os.Exit(1)
	}
	fmt.Println(colorGreen + "  ✓ circuit closed again" + colorReset)
}

func get(client *http.Client, url string) (int, http.Header, error) {
	resp, err := client.Get(url)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, resp.Header, nil
}

func getCircuits(client *http.Client, url string) ([]circuit, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var circuits []circuit
	if err := json.NewDecoder(resp.Body).Decode(&circuits); err != nil {
		return nil, err
	}
	return circuits, nil
}
