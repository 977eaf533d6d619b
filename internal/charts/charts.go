// Package charts renders PNG summaries of per-category spending totals.
package charts

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"

	"kassa/internal/core"
)

type Generator struct {
	width  int
	height int
}

func NewGenerator() *Generator {
	return &Generator{width: 1000, height: 500}
}

// CategoryBars renders a bar chart of spending per category. Amounts are
// stored negative for outflows, so bars show the absolute spent value.
// Returns nil bytes when there is nothing to plot.
func (g *Generator) CategoryBars(title string, totals []core.CategoryTotal) ([]byte, error) {
	bars := make([]chart.Value, 0, len(totals))
	for _, t := range totals {
		spent := t.Total
		if spent < 0 {
			spent = -spent
		}
		if spent == 0 {
			continue
		}
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("%s (%d)", core.Capitalize(t.Name), spent),
			Value: float64(spent),
		})
	}
	if len(bars) == 0 {
		return nil, nil
	}

	graph := chart.BarChart{
		Title:    title,
		Width:    g.width,
		Height:   g.height,
		BarWidth: 60,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    40,
				Left:   20,
				Right:  20,
				Bottom: 20,
			},
			FillColor: chart.ColorWhite,
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("render category chart: %w", err)
	}
	return buffer.Bytes(), nil
}
