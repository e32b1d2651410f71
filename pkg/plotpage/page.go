// Package plotpage assembles interactive ECharts charts into a single
// themed HTML page.
package plotpage

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/components"
)

// Page is an HTML page of charts rendered in insertion order.
type Page struct {
	page  *components.Page
	count int
}

// NewPage creates an empty page.
func NewPage(title string) *Page {
	page := components.NewPage()
	page.SetPageTitle(title)
	page.SetLayout(components.PageFlexLayout)

	return &Page{page: page}
}

// Add appends charts to the page.
func (p *Page) Add(charts ...components.Charter) {
	p.page.AddCharts(charts...)
	p.count += len(charts)
}

// Len returns the number of charts on the page.
func (p *Page) Len() int {
	return p.count
}

// Render writes the page as HTML.
func (p *Page) Render(w io.Writer) error {
	err := p.page.Render(w)
	if err != nil {
		return fmt.Errorf("render page: %w", err)
	}

	return nil
}
