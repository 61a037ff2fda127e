package main

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

type definition struct {
	Code       string     `json:"code"`
	Percentage float64    `json:"percentage,omitempty"`
	Amount     float64    `json:"amount,omitempty"`
	UsageLimit int        `json:"usageLimit,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

// Writes sample promotion code files for local development, matching the
// PROMO_*_FILE settings in .env.example.
func main() {
	dataDir := "data/promo"

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	nextMonth := time.Now().AddDate(0, 1, 0)
	lastMonth := time.Now().AddDate(0, -1, 0)

	files := map[string][]definition{
		"coupons.jsonl.gz": {
			{Code: "VERAO10", Percentage: 10},
			{Code: "BEMVINDO15", Amount: 15, UsageLimit: 1000},
			{Code: "RELAMPAGO", Percentage: 25, ExpiresAt: &nextMonth},
			{Code: "ANTIGO20", Percentage: 20, ExpiresAt: &lastMonth},
		},
		"referrals.jsonl.gz": {
			{Code: "AMIGO-MARIA", Amount: 20},
			{Code: "AMIGO-JOAO", Amount: 20},
		},
		"giftcards.jsonl.gz": {
			{Code: "VALE-50", Amount: 50, UsageLimit: 1},
			{Code: "VALE-100", Amount: 100, UsageLimit: 1},
		},
	}

	for filename, defs := range files {
		filePath := filepath.Join(dataDir, filename)
		if err := writeCodeFile(filePath, defs); err != nil {
			log.Fatalf("Failed to create %s: %v", filename, err)
		}
		fmt.Printf("Created %s with %d codes\n", filePath, len(defs))
	}

	fmt.Println("\nSample promotion code files created successfully!")
}

func writeCodeFile(path string, defs []definition) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	enc := json.NewEncoder(gz)
	for _, def := range defs {
		if err := enc.Encode(def); err != nil {
			return err
		}
	}
	return gz.Close()
}
