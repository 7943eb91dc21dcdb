package transform

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseLayout is the timestamp format the sales export uses.
const PurchaseLayout = "02/01/2006, 15:04:05"

var ErrMissingColumn = errors.New("missing_column")

var requiredColumns = []string{
	"Nome",
	"Telefone",
	"Quantidade",
	"Valor",
	"Data da Compra",
	"Aprovado por",
	"Host do Pagamento",
	"Números",
}

// SaleRow is one raw row of the sales export. Unparsable fields keep their
// zero values; a row is never rejected for bad data, only for a missing
// column in the header.
type SaleRow struct {
	Name        string
	Phone       string
	Qty         int
	Total       decimal.Decimal
	PurchaseAt  *time.Time
	Approver    string
	PaymentHost string
	Numbers     string
}

// AggregatedBuyer is the per-phone rollup rendered into the report.
type AggregatedBuyer struct {
	Name    string
	Phone   string
	Numbers string
}

// Parse reads the ;-separated sales export. Required columns are resolved by
// header name because the export carries many more columns than we consume.
func Parse(r io.Reader) ([]SaleRow, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	field := func(record []string, name string) string {
		i := idx[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []SaleRow
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// malformed line, keep going
			continue
		}

		row := SaleRow{
			Name:        field(record, "Nome"),
			Phone:       field(record, "Telefone"),
			Approver:    field(record, "Aprovado por"),
			PaymentHost: field(record, "Host do Pagamento"),
			Numbers:     field(record, "Números"),
		}

		if qty, err := strconv.Atoi(field(record, "Quantidade")); err == nil {
			row.Qty = qty
		}
		row.Total = parseAmount(field(record, "Valor"))
		if ts, err := time.Parse(PurchaseLayout, field(record, "Data da Compra")); err == nil {
			row.PurchaseAt = &ts
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// parseAmount parses a pt-BR decimal ("12,34"). Bad input counts as zero.
func parseAmount(raw string) decimal.Decimal {
	raw = strings.ReplaceAll(raw, ",", ".")
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

// Aggregate groups rows by phone. The buyer name is the first occurrence in
// source order and the purchased numbers are the deduplicated union across
// the group, sorted ascending numerically. Output is ordered by buyer name.
func Aggregate(rows []SaleRow) []AggregatedBuyer {
	type group struct {
		name   string
		tokens []string
		seen   map[string]struct{}
	}

	groups := make(map[string]*group)
	var order []string

	for _, row := range rows {
		g, ok := groups[row.Phone]
		if !ok {
			g = &group{name: row.Name, seen: make(map[string]struct{})}
			groups[row.Phone] = g
			order = append(order, row.Phone)
		}
		for _, token := range strings.Split(row.Numbers, ",") {
			token = strings.TrimSpace(token)
			if token == "" {
				continue
			}
			if _, dup := g.seen[token]; dup {
				continue
			}
			g.seen[token] = struct{}{}
			g.tokens = append(g.tokens, token)
		}
	}

	buyers := make([]AggregatedBuyer, 0, len(order))
	for _, phone := range order {
		g := groups[phone]
		sort.Slice(g.tokens, func(i, j int) bool { return lessNumeric(g.tokens[i], g.tokens[j]) })
		buyers = append(buyers, AggregatedBuyer{
			Name:    g.name,
			Phone:   phone,
			Numbers: strings.Join(g.tokens, ", "),
		})
	}

	sort.SliceStable(buyers, func(i, j int) bool { return buyers[i].Name < buyers[j].Name })
	return buyers
}

func lessNumeric(a, b string) bool {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	if aerr == nil && berr == nil {
		return ai < bi
	}
	if aerr == nil {
		return true
	}
	if berr == nil {
		return false
	}
	return a < b
}

// MaskPhone obscures the middle of a full-length phone. Anything that is not
// exactly 15 characters passes through unchanged.
func MaskPhone(phone string) string {
	if len(phone) != 15 {
		return phone
	}
	return phone[:7] + "***-**" + phone[13:]
}
