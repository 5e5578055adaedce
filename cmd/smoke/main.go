// Command smoke exercises a running meams-api end to end: sign in, issue a
// QR identity twice asserting stability, walk the supply scan challenge and
// read the authenticated stock card.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

func main() {
	base := os.Getenv("MEAMS_BASE_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	base = strings.TrimRight(base, "/")
	username := os.Getenv("MEAMS_SMOKE_USER")
	password := os.Getenv("MEAMS_SMOKE_PASSWORD")
	assetID := os.Getenv("MEAMS_SMOKE_SUPPLY")
	if assetID == "" {
		assetID = "ASSET-S1"
	}
	if username == "" || password == "" {
		log.Fatal("MEAMS_SMOKE_USER and MEAMS_SMOKE_PASSWORD are required")
	}

	client := &http.Client{Timeout: 10 * time.Second}

	var login struct {
		Token string `json:"token"`
	}
	postJSON(client, base+"/login", map[string]string{
		"username": username,
		"password": password,
	}, nil, &login)
	if login.Token == "" {
		log.Fatal("login issued no token")
	}

	var first, second struct {
		TrackingID string `json:"trackingId"`
	}
	getJSON(client, base+"/api/qr/generate/"+assetID, login.Token, &first)
	getJSON(client, base+"/api/qr/generate/"+assetID, login.Token, &second)
	if first.TrackingID == "" || first.TrackingID != second.TrackingID {
		log.Fatalf("tracking id not stable: %q vs %q", first.TrackingID, second.TrackingID)
	}

	// Unauthenticated scan must answer with the challenge page.
	challenge := getBody(client, base+"/scan/supply/"+assetID, "")
	if !strings.Contains(challenge, "Authentication Required") {
		log.Fatal("scan page did not present the login challenge")
	}

	var access struct {
		AccessToken string `json:"accessToken"`
	}
	postJSON(client, base+"/verify-scan-access", map[string]string{
		"identifier": username,
		"password":   password,
	}, nil, &access)
	if access.AccessToken == "" {
		log.Fatal("verify-scan-access issued no token")
	}

	card := getBody(client, base+"/scan/supply/"+assetID, access.AccessToken)
	if !strings.Contains(card, "Current Quantity") {
		log.Fatal("authenticated scan did not render the stock card")
	}

	fmt.Printf("✅ meams-api smoke test passed: tracking_id=%s\n", first.TrackingID)
}

func postJSON(client *http.Client, url string, body any, headers map[string]string, out any) {
	payload, err := json.Marshal(body)
	if err != nil {
		log.Fatalf("marshal %s: %v", url, err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("request %s: %v", url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	doJSON(client, req, out)
}

func getJSON(client *http.Client, url, token string, out any) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		log.Fatalf("request %s: %v", url, err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	doJSON(client, req, out)
}

func doJSON(client *http.Client, req *http.Request, out any) {
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", req.Method, req.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		log.Fatalf("%s %s: status %d: %s", req.Method, req.URL, resp.StatusCode, data)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.Fatalf("decode %s: %v", req.URL, err)
		}
	}
}

func getBody(client *http.Client, url, token string) string {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		log.Fatalf("request %s: %v", url, err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("read %s: %v", url, err)
	}
	return string(data)
}
