package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/verte-zerg/suitepractice/internal/model"
)

const (
	defaultTrendHeight  = 8
	minTrendWidth       = 10
	trendAxisWidth      = 4
	trendAxisSeparator  = " │ "
	terminalWidthBackup = 80
)

var (
	barLevels   = []rune(" ▁▂▃▄▅▆▇█")
	trendStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	defaultSeps = strings.Repeat(" ", trendAxisWidth)
)

// SuitePercentages returns suite scores oldest first from records stored
// newest first.
func SuitePercentages(records []model.PracticeRecord) []float64 {
	out := make([]float64, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		if !records[i].MultiSuite {
			continue
		}
		out = append(out, float64(records[i].ScoreInfo.Percentage))
	}
	return out
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		den := float64(i + 1)
		if i >= window {
			sum -= values[i-window]
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// PlotTrend draws percentages (0-100) as a bar chart. A non-positive width
// fits the chart to the terminal.
func PlotTrend(w io.Writer, title string, values []float64, width, height int) error {
	if len(values) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultTrendHeight
	}
	if width <= 0 {
		width = TrendWidthFor(terminalWidth())
	}
	if width < minTrendWidth {
		width = minTrendWidth
	}
	color := shouldUseColor(w)

	columns := resample(values, width)
	lines := make([]string, 0, height+2)
	if title != "" {
		lines = append(lines, title)
	}
	for row := 0; row < height; row++ {
		var b strings.Builder
		for _, v := range columns {
			b.WriteRune(barCell(v, row, height))
		}
		bars := strings.TrimRight(b.String(), " ")
		if color {
			bars = trendStyle.Render(bars)
		}
		lines = append(lines, axisLabel(row, height)+trendAxisSeparator+bars)
	}
	last := values[len(values)-1]
	footer := fmt.Sprintf("%d suites, latest %.0f%%, best %.0f%%", len(values), last, maxValue(values))
	if color {
		footer = mutedStyle.Render(footer)
	}
	lines = append(lines, footer)
	return writeLines(w, lines)
}

// TrendWidthFor computes a chart width that fits within totalWidth.
func TrendWidthFor(totalWidth int) int {
	width := totalWidth - trendAxisWidth - len([]rune(trendAxisSeparator))
	if width < minTrendWidth {
		return minTrendWidth
	}
	return width
}

// barCell returns the glyph of row (0 = top) for a value in [0,100].
func barCell(value float64, row, height int) rune {
	value = math.Max(0, math.Min(100, value))
	filled := value / 100 * float64(height)
	fromBottom := float64(height - row - 1)
	switch {
	case filled >= fromBottom+1:
		return barLevels[len(barLevels)-1]
	case filled <= fromBottom:
		return barLevels[0]
	default:
		frac := filled - fromBottom
		return barLevels[int(math.Round(frac*float64(len(barLevels)-1)))]
	}
}

func axisLabel(row, height int) string {
	switch {
	case row == 0:
		return fmt.Sprintf("%*s", trendAxisWidth, "100%")
	case row == height-1:
		return fmt.Sprintf("%*s", trendAxisWidth, "0%")
	case height > 2 && row == height/2:
		return fmt.Sprintf("%*s", trendAxisWidth, "50%")
	default:
		return defaultSeps
	}
}

// resample stretches or averages values to exactly width points.
func resample(values []float64, width int) []float64 {
	out := make([]float64, width)
	if len(values) >= width {
		for i := 0; i < width; i++ {
			start := i * len(values) / width
			end := (i + 1) * len(values) / width
			if end <= start {
				end = start + 1
			}
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
		return out
	}
	for i := range out {
		out[i] = values[i*len(values)/width]
	}
	return out
}

func maxValue(values []float64) float64 {
	best := math.Inf(-1)
	for _, v := range values {
		best = math.Max(best, v)
	}
	return best
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
