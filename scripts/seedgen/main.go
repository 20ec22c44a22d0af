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

// voucherLine mirrors one JSON-lines entry in a seed file.
type voucherLine struct {
	Code          string  `json:"code"`
	DiscountType  string  `json:"discountType"`
	DiscountValue string  `json:"discountValue"`
	MinSpend      *string `json:"minSpend,omitempty"`
	StartAt       string  `json:"startAt"`
	EndAt         string  `json:"endAt"`
	QuotaTotal    int     `json:"quotaTotal"`
}

// generateSeedFile creates a sample voucher seed file for local development.
func main() {
	dataDir := "data/vouchers"

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Hour)
	start := now.Format(time.RFC3339)
	end := now.AddDate(0, 1, 0).Format(time.RFC3339)
	minSpend50 := "50"
	minSpend25 := "25"

	vouchers := []voucherLine{
		{Code: "DEMO10", DiscountType: "PERCENT", DiscountValue: "10", MinSpend: &minSpend50, StartAt: start, EndAt: end, QuotaTotal: 100},
		{Code: "WELCOME5", DiscountType: "FIXED", DiscountValue: "5", StartAt: start, EndAt: end, QuotaTotal: 1000},
		{Code: "SUMMER25", DiscountType: "PERCENT", DiscountValue: "25", MinSpend: &minSpend25, StartAt: start, EndAt: end, QuotaTotal: 500},
		{Code: "FLAT20", DiscountType: "FIXED", DiscountValue: "20", MinSpend: &minSpend50, StartAt: start, EndAt: end, QuotaTotal: 50},
		{Code: "LASTCHANCE", DiscountType: "PERCENT", DiscountValue: "15", StartAt: start, EndAt: now.AddDate(0, 0, 7).Format(time.RFC3339), QuotaTotal: 10},
	}

	filePath := filepath.Join(dataDir, "vouchers.json.gz")
	if err := createSeedFile(filePath, vouchers); err != nil {
		log.Fatalf("Failed to create %s: %v", filePath, err)
	}

	fmt.Printf("Created %s with %d voucher definitions\n", filePath, len(vouchers))
	for _, v := range vouchers {
		fmt.Printf("  - %-10s %s %s (quota %d)\n", v.Code, v.DiscountType, v.DiscountValue, v.QuotaTotal)
	}
}

func createSeedFile(filePath string, vouchers []voucherLine) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	encoder := json.NewEncoder(gzipWriter)
	for _, v := range vouchers {
		if err := encoder.Encode(v); err != nil {
			return fmt.Errorf("failed to encode %s: %w", v.Code, err)
		}
	}

	return nil
}
