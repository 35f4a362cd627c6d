package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"
)

//go:embed *.md
var templates embed.FS

// SaleRenderOptions holds configuration for rendering a sale report.
type SaleRenderOptions struct {
	SkipWashSales bool // Do not render the wash sale details section.
}

// RenderHarvest renders the Harvest struct to a markdown string.
func RenderHarvest(h *Harvest) string {
	partials := map[string]string{
		"harvest_summary":        "harvest_summary.md",
		"harvest_opportunities":  "harvest_opportunities.md",
		"harvest_needs_basis":    "harvest_needs_basis.md",
		"harvest_missing_prices": "harvest_missing_prices.md",
		"harvest_currencies":     "harvest_currencies.md",
	}
	return renderTemplate("harvest", "harvest.md", partials, h)
}

// RenderSale renders the Sale struct to a markdown string.
func RenderSale(s *Sale, opts SaleRenderOptions) string {
	partials := map[string]string{
		"sale_summary":      "sale_summary.md",
		"sale_dispositions": "sale_dispositions.md",
		"sale_warnings":     "sale_warnings.md",
	}
	// An empty file name results in an empty template.
	if !opts.SkipWashSales {
		partials["sale_wash_sales"] = "sale_wash_sales.md"
	} else {
		partials["sale_wash_sales"] = ""
	}
	return renderTemplate("sale", "sale.md", partials, s)
}

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		var content []byte
		// An empty file name is a valid case, resulting in an empty template.
		if file != "" {
			var readErr error
			content, readErr = fs.ReadFile(templates, file)
			if readErr != nil {
				return fmt.Sprintf("error reading partial template %q: %v", file, readErr)
			}
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
