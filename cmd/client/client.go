package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
)

func main() {
	// 1. CLI Parameter Parsing
	serverAddr := flag.String("server", "http://127.0.0.1:8080", "Base URL of the engine server")
	action := flag.String("action", "place", "Action to perform: ['place', 'top', 'depth', 'trades']")

	// Order parameters
	symbol := flag.String("symbol", "AAPL", "Symbol to trade or query")
	sideStr := flag.String("side", "buy", "Order side: 'buy' or 'sell'")
	price := flag.Int64("price", 100, "Limit price in ticks")
	qtyStr := flag.String("qty", "10", "Quantity or comma-separated list (e.g. 10,20,50)")
	clientOrderID := flag.String("client-order-id", "", "Client order id (server assigns one when blank)")

	// View parameters
	levels := flag.Int("levels", 0, "Depth levels (server default when 0)")
	after := flag.Uint64("after", 0, "Return trades after this trade id")
	limit := flag.Int("limit", 0, "Max trades to return (server default when 0)")

	flag.Parse()

	side := "BUY"
	if strings.EqualFold(*sideStr, "sell") {
		side = "SELL"
	}

	switch strings.ToLower(*action) {
	case "place":
		for _, qty := range parseQuantities(*qtyStr) {
			resp, err := placeOrder(*serverAddr, *symbol, side, *price, qty, *clientOrderID)
			if err != nil {
				log.Printf("Failed to place order (qty %d): %v", qty, err)
				continue
			}
			fmt.Printf("-> %s %s %d @ %d accepted seq=%d fills=%d\n",
				side, *symbol, qty, *price, resp.AcceptedSeq, len(resp.Fills))
			for _, f := range resp.Fills {
				fmt.Printf("   fill maker=%d taker=%d %d @ %d\n",
					f.MakerSeq, f.TakerSeq, f.Qty, f.Price)
			}
		}

	case "top":
		get(*serverAddr, "/v1/book/top", url.Values{"symbol": {*symbol}})

	case "depth":
		get(*serverAddr, "/v1/book/depth", url.Values{
			"symbol": {*symbol},
			"levels": {strconv.Itoa(*levels)},
		})

	case "trades":
		get(*serverAddr, "/v1/trades", url.Values{
			"symbol":         {*symbol},
			"after_trade_id": {strconv.FormatUint(*after, 10)},
			"limit":          {strconv.Itoa(*limit)},
		})

	default:
		log.Fatalf("Unknown action: %s", *action)
	}
}

type fillMessage struct {
	MakerSeq uint64 `json:"maker_seq"`
	TakerSeq uint64 `json:"taker_seq"`
	Price    int64  `json:"price"`
	Qty      int64  `json:"qty"`
}

type submitResponse struct {
	AcceptedSeq uint64        `json:"accepted_seq"`
	Fills       []fillMessage `json:"fills"`
}

func placeOrder(server, symbol, side string, price, qty int64, clientOrderID string) (*submitResponse, error) {
	body, err := json.Marshal(map[string]any{
		"symbol":          symbol,
		"side":            side,
		"price":           price,
		"qty":             qty,
		"client_order_id": clientOrderID,
	})
	if err != nil {
		return nil, err
	}

	resp, err := http.Post(server+"/v1/orders", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// get fetches a view endpoint and pretty-prints the JSON body.
func get(server, path string, params url.Values) {
	resp, err := http.Get(server + path + "?" + params.Encode())
	if err != nil {
		log.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Failed to read response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("Server returned %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		fmt.Println(string(raw))
		return
	}
	fmt.Println(pretty.String())
}

// parseQuantities splits a comma-separated string into a slice of int64
func parseQuantities(input string) []int64 {
	parts := strings.Split(input, ",")
	var result []int64
	for _, p := range parts {
		q, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || q <= 0 {
			fmt.Printf("Skipping invalid quantity %q\n", p)
			continue
		}
		result = append(result, q)
	}
	if len(result) == 0 {
		fmt.Println("Error: no valid quantities given.")
		os.Exit(1)
	}
	return result
}
