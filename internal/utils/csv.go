package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"arbTimeline/internal/domain"
)

// opportunityHeader is the column order written by WriteOpportunitiesCSV.
var opportunityHeader = []string{
	"id", "timestamp", "direction", "uniswap_price", "binance_price",
	"price_diff_percent", "profit", "profit_rate",
}

// ReadOpportunitiesCSV reads raw opportunities from a CSV stream whose first
// row names the columns. Column order is free; unknown columns are ignored.
// Only the timestamp column is mandatory.
func ReadOpportunitiesCSV(r io.Reader) ([]domain.RawOpportunity, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["timestamp"]; !ok {
		return nil, fmt.Errorf("CSV header has no timestamp column")
	}

	var out []domain.RawOpportunity
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}
		field := func(name string) string {
			if i, ok := cols[name]; ok && i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}
		num := func(name string) (float64, error) {
			s := field(name)
			if s == "" {
				return 0, nil
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return 0, fmt.Errorf("line %d: invalid %s '%s': %w", line, name, s, err)
			}
			return v, nil
		}

		raw := domain.RawOpportunity{
			ID:        field("id"),
			Timestamp: field("timestamp"),
			Direction: field("direction"),
		}
		for _, f := range []struct {
			name string
			dst  *float64
		}{
			{"uniswap_price", &raw.DexPrice},
			{"binance_price", &raw.CexPrice},
			{"price_diff_percent", &raw.SpreadPercent},
			{"profit", &raw.Profit},
			{"profit_rate", &raw.ProfitRate},
		} {
			if *f.dst, err = num(f.name); err != nil {
				return nil, err
			}
		}
		out = append(out, raw)
	}
	return out, nil
}

// ReadOpportunitiesCSVFile is ReadOpportunitiesCSV on a file.
func ReadOpportunitiesCSVFile(filename string) ([]domain.RawOpportunity, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadOpportunitiesCSV(file)
}

// WriteOpportunitiesCSV writes opportunities with a header row.
func WriteOpportunitiesCSV(w io.Writer, opps []*domain.Opportunity) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(opportunityHeader); err != nil {
		return err
	}
	for _, o := range opps {
		raw := o.Raw()
		writer.Write([]string{
			raw.ID,
			raw.Timestamp,
			raw.Direction,
			formatFloat(raw.DexPrice),
			formatFloat(raw.CexPrice),
			formatFloat(raw.SpreadPercent),
			formatFloat(raw.Profit),
			formatFloat(raw.ProfitRate),
		})
	}
	writer.Flush()
	return writer.Error()
}

// WritePricesToCSV dumps a price series to filename.
func WritePricesToCSV(points []domain.PricePoint, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	writer.Write([]string{"source", "timestamp", "open", "high", "low", "close", "volume"})
	for _, p := range points {
		writer.Write([]string{
			string(p.Source),
			p.Timestamp.Format(time.RFC3339),
			formatFloat(p.Open),
			formatFloat(p.High),
			formatFloat(p.Low),
			formatFloat(p.Close),
			formatFloat(p.Volume),
		})
	}
	writer.Flush()
	return writer.Error()
}

// ConvertRaw turns raw records into opportunities. Records with an
// unparsable timestamp are skipped and reported in rejected. Records
// without an ID get a random one.
func ConvertRaw(raws []domain.RawOpportunity) (opps []*domain.Opportunity, rejected []error) {
	for _, raw := range raws {
		if raw.ID == "" {
			raw.ID = uuid.NewString()
		}
		o, err := raw.ToOpportunity()
		if err != nil {
			rejected = append(rejected, err)
			continue
		}
		opps = append(opps, o)
	}
	return opps, rejected
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
