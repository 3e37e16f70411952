// Package charts renders optimization results as PNG images.
package charts

import (
	"fmt"

	"github.com/rs/zerolog"
	charts "github.com/vicanso/go-charts/v2"

	"github.com/gahoccode/frontier/internal/modules/optimization"
)

// Service renders efficient-frontier charts.
type Service struct {
	width  int
	height int
	log    zerolog.Logger
}

// NewService creates a chart service with the given canvas size. Zero or
// negative dimensions fall back to 800x600.
func NewService(width, height int, log zerolog.Logger) *Service {
	if width <= 0 {
		width = 800
	}
	if height <= 0 {
		height = 600
	}
	return &Service{
		width:  width,
		height: height,
		log:    log.With().Str("service", "charts").Logger(),
	}
}

// RenderFrontier draws the efficient frontier as a PNG: annualized return
// (%) against annualized volatility (%), with the key portfolio stats in
// the subtitle. Fails if the result carries no frontier.
func (s *Service) RenderFrontier(res *optimization.Result) ([]byte, error) {
	if len(res.Frontier) == 0 {
		if res.FrontierErr != nil {
			return nil, fmt.Errorf("no frontier to render: %w", res.FrontierErr)
		}
		return nil, fmt.Errorf("no frontier to render")
	}

	returns := make([]float64, len(res.Frontier))
	xLabels := make([]string, len(res.Frontier))
	for i, p := range res.Frontier {
		returns[i] = p.Return * 100
		xLabels[i] = fmt.Sprintf("%.1f", p.Volatility*100)
	}

	splitNum := 6
	if len(xLabels) <= 30 {
		splitNum = len(xLabels) / 3
		if splitNum < 3 {
			splitNum = 3
		}
	}

	p, err := charts.LineRender(
		[][]float64{returns},
		charts.WidthOptionFunc(s.width),
		charts.HeightOptionFunc(s.height),
		charts.TitleTextOptionFunc("Efficient Frontier", s.subtitle(res)),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			SplitNumber: splitNum,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.LegendLabelsOptionFunc([]string{"Return % by volatility %"}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render frontier chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to encode frontier chart: %w", err)
	}

	s.log.Debug().
		Int("points", len(res.Frontier)).
		Int("bytes", len(buf)).
		Msg("Rendered frontier chart")

	return buf, nil
}

// subtitle summarizes the strategy outcomes that can be read off the chart.
func (s *Service) subtitle(res *optimization.Result) string {
	line := ""
	if sr, ok := res.Allocations[optimization.StrategyMaxSharpe]; ok && sr.Err == nil && sr.Allocation != nil {
		perf := sr.Allocation.Performance
		line += fmt.Sprintf("Max Sharpe %.2f (%.1f%% @ %.1f%% vol)", perf.Sharpe, perf.Return*100, perf.Volatility*100)
	}
	if sr, ok := res.Allocations[optimization.StrategyMinVolatility]; ok && sr.Err == nil && sr.Allocation != nil {
		perf := sr.Allocation.Performance
		if line != "" {
			line += "  |  "
		}
		line += fmt.Sprintf("Min vol %.1f%% @ %.1f%% vol", perf.Return*100, perf.Volatility*100)
	}
	if len(res.Cloud) > 0 {
		if line != "" {
			line += "  |  "
		}
		line += fmt.Sprintf("%d random portfolios sampled", len(res.Cloud))
	}
	return line
}
