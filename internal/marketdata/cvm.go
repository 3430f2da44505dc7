package marketdata

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

const cvmRegistryURL = "https://dados.cvm.gov.br/dados/FI/CAD/DADOS/cad_fi.csv"

var cnpjPattern = regexp.MustCompile(`^\d{2}\.?\d{3}\.?\d{3}/?\d{4}-?\d{2}$`)

// IsCNPJ reports whether query is a fund registry number, formatted or not.
func IsCNPJ(query string) bool {
	return cnpjPattern.MatchString(strings.TrimSpace(query))
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FundRegistry looks up investment funds in the CVM public registry, a
// semicolon-separated Latin-1 CSV.
type FundRegistry struct {
	httpClient *http.Client
	url        string // overridable for tests
}

// NewFundRegistry creates a registry client. An empty url selects the public file.
func NewFundRegistry(httpClient *http.Client, url string) *FundRegistry {
	if url == "" {
		url = cvmRegistryURL
	}
	return &FundRegistry{httpClient: httpClient, url: url}
}

// Lookup streams the registry until it finds cnpj.
func (r *FundRegistry) Lookup(ctx context.Context, cnpj string) (*SearchResult, error) {
	want := digitsOnly(cnpj)
	if len(want) != 14 {
		return nil, fmt.Errorf("cvm lookup %q: %w", cnpj, ErrNotFound)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cvm registry: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cvm registry: unexpected status %d", resp.StatusCode)
	}

	reader := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(resp.Body))
	reader.Comma = ';'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("cvm registry header: %w", err)
	}
	cnpjCol, nameCol, typeCol := column(header, "CNPJ_FUNDO", 1), column(header, "DENOM_SOCIAL", 2), column(header, "TP_FUNDO", 0)

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("cvm lookup %s: %w", want, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("cvm registry: %w", err)
		}
		if cnpjCol >= len(record) || digitsOnly(record[cnpjCol]) != want {
			continue
		}

		result := &SearchResult{Symbol: want, CNPJ: want, Type: "FUND", Name: "Fundo sem nome"}
		if nameCol < len(record) && record[nameCol] != "" {
			result.Name = record[nameCol]
		}
		if typeCol < len(record) && record[typeCol] != "" {
			result.Exchange = record[typeCol]
		}
		return result, nil
	}
}

func column(header []string, name string, fallback int) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return fallback
}
