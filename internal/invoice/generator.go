package invoice

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/sibrendebast/manenbrouw-website-sub000/internal/config"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/entity"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/tax"
)

// Generator renders a fixed-layout invoice document from a persisted order
// snapshot. Rendering is pure: the same snapshot produces the same bytes at
// any later time, which is what makes regeneration tooling safe.
type Generator struct {
	issuer config.Invoice
	tmpl   *template.Template
}

// NewGenerator builds the generator from issuer configuration.
func NewGenerator(cfg config.Config) (*Generator, error) {
	tmpl, err := template.New("invoice").Parse(invoiceTemplate)
	if err != nil {
		return nil, err
	}
	return &Generator{issuer: cfg.Invoice, tmpl: tmpl}, nil
}

type renderLine struct {
	Description string
	Quantity    int
	Unit        string
	Total       string
}

type renderBracket struct {
	Rate     int
	Subtotal string
	BTW      string
}

type renderData struct {
	IssuerName    string
	IssuerAddress string
	IssuerVAT     string
	IssuerIBAN    string

	Number string
	Date   string

	BillTo []string
	ShipTo []string

	Lines    []renderLine
	Brackets []renderBracket
	Total    string
}

// Render produces the invoice document for an order snapshot.
func (g *Generator) Render(order *entity.Order) ([]byte, error) {
	if order == nil {
		return nil, fmt.Errorf("nil order")
	}

	data := renderData{
		IssuerName:    g.issuer.IssuerName,
		IssuerAddress: g.issuer.IssuerAddress,
		IssuerVAT:     g.issuer.IssuerVAT,
		IssuerIBAN:    g.issuer.IssuerIBAN,
		Number:        order.Number,
		Date:          order.CreatedAt.UTC().Format("02-01-2006"),
		BillTo:        []string{order.CustomerName, order.CustomerEmail, order.CustomerPhone},
		Total:         FormatCents(order.TotalCents),
	}

	if order.ShippingMethod == entity.ShippingMethodShipment {
		data.ShipTo = []string{
			order.CustomerName,
			order.Street,
			order.Zip + " " + order.City,
			order.Country,
		}
	} else {
		data.ShipTo = []string{"Afhaling in de brouwerij"}
	}

	var taxLines []tax.Line
	var linesTotal int64

	for _, item := range order.Items {
		total := item.UnitPriceCents * int64(item.Quantity)
		linesTotal += total
		data.Lines = append(data.Lines, renderLine{
			Description: item.Name,
			Quantity:    item.Quantity,
			Unit:        FormatCents(item.UnitPriceCents),
			Total:       FormatCents(total),
		})
		taxLines = append(taxLines, tax.Line{
			PriceCents: item.UnitPriceCents,
			Quantity:   item.Quantity,
			Rate:       persistedRate(item.TaxRate),
		})
	}

	for _, ticket := range order.Tickets {
		total := ticket.UnitPriceCents * int64(ticket.Quantity)
		linesTotal += total
		data.Lines = append(data.Lines, renderLine{
			Description: fmt.Sprintf("Ticket evenement #%d", ticket.EventID),
			Quantity:    ticket.Quantity,
			Unit:        FormatCents(ticket.UnitPriceCents),
			Total:       FormatCents(total),
		})
		taxLines = append(taxLines, tax.Line{
			PriceCents: ticket.UnitPriceCents,
			Quantity:   ticket.Quantity,
			Rate:       persistedRate(ticket.TaxRate),
		})
	}

	// The shipping surcharge is re-derived from the snapshot itself so the
	// invoice never depends on current configuration.
	if shipping := order.TotalCents - linesTotal; shipping > 0 {
		data.Lines = append(data.Lines, renderLine{
			Description: "Verzending",
			Quantity:    1,
			Unit:        FormatCents(shipping),
			Total:       FormatCents(shipping),
		})
		taxLines = append(taxLines, tax.Line{PriceCents: shipping, Quantity: 1, Rate: tax.DefaultRate})
	}

	for _, bracket := range tax.Breakdown(taxLines) {
		data.Brackets = append(data.Brackets, renderBracket{
			Rate:     bracket.Rate,
			Subtotal: FormatCents(bracket.SubtotalCents),
			BTW:      FormatCents(bracket.BTWCents),
		})
	}

	var buf bytes.Buffer
	if err := g.tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Filename derives the stored document name from the order number,
// e.g. 2025/0417 -> invoice-2025-0417.txt.
func (g *Generator) Filename(order *entity.Order) string {
	return "invoice-" + strings.ReplaceAll(order.Number, "/", "-") + ".txt"
}

// persistedRate maps a stored tax category onto a tax.Line rate. Stored
// zero means the genuinely tax-free category, not "unset": the assembler
// always persists a concrete category.
func persistedRate(rate int) int {
	if rate == 0 {
		return tax.ZeroRated
	}
	return rate
}

// FormatCents renders integer euro cents in the Belgian notation used on
// the storefront, e.g. 1234 -> "€ 12,34".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s€ %d,%02d", sign, cents/100, cents%100)
}

const invoiceTemplate = `================================================================
{{.IssuerName}}
{{.IssuerAddress}}
BTW {{.IssuerVAT}} | IBAN {{.IssuerIBAN}}
================================================================

FACTUUR {{.Number}}
Datum: {{.Date}}

Facturatie:{{range .BillTo}}
  {{.}}{{end}}

Levering:{{range .ShipTo}}
  {{.}}{{end}}

----------------------------------------------------------------
{{printf "%-34s %5s %10s %10s" "Omschrijving" "Aantal" "Prijs" "Totaal"}}
----------------------------------------------------------------
{{range .Lines}}{{printf "%-34.34s %5d %10s %10s" .Description .Quantity .Unit .Total}}
{{end}}----------------------------------------------------------------

BTW overzicht:
{{range .Brackets}}{{printf "  %2d%%  basis %10s  btw %10s" .Rate .Subtotal .BTW}}
{{end}}
TOTAAL: {{.Total}}
================================================================
`
