package ui

import (
	"fmt"
	"strconv"
	"time"

	"geoselector/pkg/crawler"
	"geoselector/pkg/store"
)

// ProgressPrinter prints the visited-node counter on one line while a
// crawl runs. It satisfies crawler.Observer.
type ProgressPrinter struct {
	term          *Terminal
	startTime     time.Time
	visited       int
	stations      int
	sublocalities int
	lastName      string
}

// NewProgressPrinter creates a printer writing through term
func NewProgressPrinter(term *Terminal) *ProgressPrinter {
	return &ProgressPrinter{term: term, startTime: time.Now()}
}

// NodeVisited updates the counters and redraws the progress line
func (p *ProgressPrinter) NodeVisited(visited int, region store.Region, stations, sublocalities int) {
	p.visited = visited
	p.stations += stations
	p.sublocalities += sublocalities
	p.lastName = region.Name
	if p.term.Quiet() {
		return
	}
	fmt.Fprintf(p.term.Out(), "\r%s %s | %s",
		p.term.paint(Green)("[CRAWLING]"),
		p.Line(),
		p.term.paint(Dim)(p.lastName))
}

// Line renders the counter part of the progress line
func (p *ProgressPrinter) Line() string {
	return fmt.Sprintf("Counter: %d | stations: %d | sub-localities: %d | %.1f/min",
		p.visited, p.stations, p.sublocalities, p.Rate())
}

// Rate returns visited nodes per minute
func (p *ProgressPrinter) Rate() float64 {
	elapsed := time.Since(p.startTime).Minutes()
	if elapsed == 0 {
		return 0
	}
	return float64(p.visited) / elapsed
}

// Visited returns the last reported counter
func (p *ProgressPrinter) Visited() int {
	return p.visited
}

// Finish ends the progress line
func (p *ProgressPrinter) Finish() {
	if p.term.Quiet() || p.visited == 0 {
		return
	}
	fmt.Fprintln(p.term.Out())
}

// PrintSummary prints the totals of a finished run
func (t *Terminal) PrintSummary(res crawler.Result) {
	t.PrintHighlight("[COMPLETE]")
	t.PrintInfo("Regions", strconv.Itoa(res.Regions))
	t.PrintInfo("Stations", strconv.Itoa(res.Stations))
	t.PrintInfo("Sub-localities", strconv.Itoa(res.Sublocalities))
	t.PrintInfo("Duration", res.Duration.Round(time.Millisecond).String())
}
