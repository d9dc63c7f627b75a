// Package main implements a standalone seed script that populates a running
// KampusMeal backend with realistic test data: stall owner and buyer
// accounts, stalls, and menu items. Everything goes through the public HTTP
// API so the seeded data passes the same validation as real traffic.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
)

// --------------------------------------------------------------------------
// Configuration helpers
// --------------------------------------------------------------------------

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// --------------------------------------------------------------------------
// HTTP helpers
// --------------------------------------------------------------------------

func doJSON(method, url, token string, body any) (map[string]any, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequest(method, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var result map[string]any
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return result, nil
}

func httpPost(url, token string, body any) (map[string]any, error) {
	return doJSON(http.MethodPost, url, token, body)
}

func httpPut(url, token string, body any) (map[string]any, error) {
	return doJSON(http.MethodPut, url, token, body)
}

// envelopeData extracts the "data" object from the response envelope.
func envelopeData(resp map[string]any) map[string]any {
	data, _ := resp["data"].(map[string]any)
	return data
}

// --------------------------------------------------------------------------
// Seed data definitions
// --------------------------------------------------------------------------

type ownerDef struct {
	name     string
	email    string
	password string
	token    string // populated after login
	stallID  string // populated after stall creation
}

type stallDef struct {
	ownerEmail  string
	name        string
	description string
}

type menuItemDef struct {
	stallName   string
	name        string
	description string
	price       int64 // rupiah
	category    string
}

func main() {
	log.SetFlags(log.Ltime | log.Lmsgprefix)
	log.SetPrefix("[seed] ")

	baseURL := getEnv("API_URL", "http://localhost:8080")
	apiURL := baseURL + "/api/v1"

	// ---------------------------------------------------------------
	// 1. Register and log in stall owner accounts
	// ---------------------------------------------------------------
	owners := []ownerDef{
		{name: "Bu Tini", email: "tini@kampusmeal.test", password: "SeedPass123"},
		{name: "Pak Budi", email: "budi@kampusmeal.test", password: "SeedPass123"},
		{name: "Mbak Sari", email: "sari@kampusmeal.test", password: "SeedPass123"},
	}

	log.Println("Registering stall owners...")
	for i := range owners {
		o := &owners[i]
		regBody := map[string]any{
			"name":     o.name,
			"email":    o.email,
			"password": o.password,
			"role":     "stall_owner",
		}
		if _, err := httpPost(apiURL+"/auth/register", "", regBody); err != nil {
			log.Printf("  Register %s: %v (may already exist, continuing)", o.email, err)
		}

		loginBody := map[string]any{"email": o.email, "password": o.password}
		resp, err := httpPost(apiURL+"/auth/login", "", loginBody)
		if err != nil {
			log.Fatalf("  login %s: %v", o.email, err)
		}
		if data := envelopeData(resp); data != nil {
			if tokens, ok := data["tokens"].(map[string]any); ok {
				o.token, _ = tokens["access_token"].(string)
			}
		}
		if o.token == "" {
			log.Fatalf("  no access token in login response for %s", o.email)
		}
		log.Printf("  Owner: %s", o.name)
	}

	ownerByEmail := make(map[string]*ownerDef)
	for i := range owners {
		ownerByEmail[owners[i].email] = &owners[i]
	}

	// ---------------------------------------------------------------
	// 2. Register buyer accounts
	// ---------------------------------------------------------------
	buyers := []map[string]any{
		{"name": "Dina Rahma", "email": "dina@kampusmeal.test", "password": "SeedPass123", "role": "user"},
		{"name": "Andi Pratama", "email": "andi@kampusmeal.test", "password": "SeedPass123", "role": "user"},
	}

	log.Println("Registering buyers...")
	for _, b := range buyers {
		if _, err := httpPost(apiURL+"/auth/register", "", b); err != nil {
			log.Printf("  Register %s: %v (may already exist, continuing)", b["email"], err)
			continue
		}
		log.Printf("  Buyer: %s", b["name"])
	}

	// ---------------------------------------------------------------
	// 3. Create stalls
	// ---------------------------------------------------------------
	stalls := []stallDef{
		{"tini@kampusmeal.test", "Warung Bu Tini", "Masakan rumahan: nasi goreng, ayam geprek, dan es teh manis."},
		{"budi@kampusmeal.test", "Kantin Pak Budi", "Bakso, mie ayam, dan aneka minuman dingin."},
		{"sari@kampusmeal.test", "Dapur Mbak Sari", "Soto, pecel, dan jajanan pasar setiap pagi."},
	}

	log.Println("Creating stalls...")
	stallIDByName := make(map[string]string)
	for _, s := range stalls {
		o := ownerByEmail[s.ownerEmail]
		body := map[string]any{"name": s.name, "description": s.description}
		resp, err := httpPost(apiURL+"/stalls", o.token, body)
		if err != nil {
			log.Printf("  WARNING: create stall %q: %v", s.name, err)
			continue
		}
		data := envelopeData(resp)
		id, _ := data["id"].(string)
		if id == "" {
			log.Printf("  WARNING: no stall ID in response for %q", s.name)
			continue
		}
		o.stallID = id
		stallIDByName[s.name] = id
		log.Printf("  Stall: %s (id=%s)", s.name, id)
	}

	// ---------------------------------------------------------------
	// 4. Create menu items
	// ---------------------------------------------------------------
	menuItems := []menuItemDef{
		{"Warung Bu Tini", "Nasi Goreng Ayam", "Nasi goreng dengan suwiran ayam, telur, dan kerupuk.", 15000, "makanan"},
		{"Warung Bu Tini", "Ayam Geprek", "Ayam goreng tepung digeprek dengan sambal bawang, level pedas bisa pilih.", 17000, "makanan"},
		{"Warung Bu Tini", "Es Teh Manis", "Teh melati dingin dengan gula asli.", 4000, "minuman"},
		{"Kantin Pak Budi", "Bakso Campur", "Bakso halus dan kasar dengan mie kuning dan tetelan.", 14000, "makanan"},
		{"Kantin Pak Budi", "Mie Ayam Spesial", "Mie ayam dengan pangsit goreng dan ceker.", 13000, "makanan"},
		{"Kantin Pak Budi", "Es Jeruk", "Jeruk peras segar dengan es batu.", 5000, "minuman"},
		{"Dapur Mbak Sari", "Soto Ayam Lamongan", "Soto ayam dengan koya, sambal, dan jeruk nipis.", 13000, "makanan"},
		{"Dapur Mbak Sari", "Pecel Sayur", "Sayuran rebus dengan bumbu kacang dan rempeyek.", 10000, "makanan"},
		{"Dapur Mbak Sari", "Klepon", "Jajanan pasar isi gula merah, per porsi 5 biji.", 6000, "jajanan"},
	}

	log.Printf("Creating %d menu items...", len(menuItems))
	ownerByStallName := make(map[string]*ownerDef)
	for _, s := range stalls {
		ownerByStallName[s.name] = ownerByEmail[s.ownerEmail]
	}
	for _, m := range menuItems {
		o := ownerByStallName[m.stallName]
		if o == nil || o.stallID == "" {
			log.Printf("  WARNING: no stall for menu item %q", m.name)
			continue
		}
		body := map[string]any{
			"name":         m.name,
			"description":  m.description,
			"price":        m.price,
			"category":     m.category,
			"is_available": true,
		}
		if _, err := httpPost(apiURL+"/stalls/"+o.stallID+"/menu", o.token, body); err != nil {
			log.Printf("  WARNING: create menu item %q: %v", m.name, err)
			continue
		}
		log.Printf("  Menu item: %s / %s (Rp%d)", m.stallName, m.name, m.price)
	}

	// ---------------------------------------------------------------
	// 5. Open all stalls
	// ---------------------------------------------------------------
	log.Println("Opening stalls...")
	for _, s := range stalls {
		o := ownerByEmail[s.ownerEmail]
		if o.stallID == "" {
			continue
		}
		if _, err := httpPut(apiURL+"/stalls/"+o.stallID, o.token, map[string]any{"is_open": true}); err != nil {
			log.Printf("  WARNING: open stall %q: %v", s.name, err)
		}
	}

	log.Println("Seed complete.")
}
