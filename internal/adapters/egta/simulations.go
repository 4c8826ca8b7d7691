package egta

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/egta-tools/egta-cli/internal/domain"
)

// simulationSortColumns maps the caller-facing sort names to the column
// names the listing page sorts by. Unknown names pass through untouched.
var simulationSortColumns = map[string]string{
	"state":     "state",
	"profile":   "profiles.assignment",
	"simulator": "simulator_fullname",
	"folder":    "id",
	"job":       "job_id",
}

// Simulation is one row of the simulations listing. Job is NaN when the
// page shows "N/A".
type Simulation struct {
	State     string
	Profile   string
	Simulator string
	Folder    int
	Job       float64
}

// SimulationDetail is the parsed detail page of a single simulation.
type SimulationDetail struct {
	State             string
	Profile           string
	SimulatorFullname string
	Size              int
	FolderNumber      int
	Job               string
	ErrorMessage      string
}

// SimulationsOptions controls the listing order and the starting page.
type SimulationsOptions struct {
	// PageStart is 1-based; zero means the first page.
	PageStart int
	Ascending bool
	// SortColumn is "state", "profile", "simulator", "folder", or "job";
	// empty sorts by job.
	SortColumn string
}

// Simulations returns a lazy iterator over the simulations listing. Each
// call starts a fresh page sequence; the iterator stops at the first empty
// page. The iterator is not safe for concurrent use.
func (c *Client) Simulations(opts SimulationsOptions) *SimulationIterator {
	column := opts.SortColumn
	if column == "" {
		column = "job"
	}
	if mapped, ok := simulationSortColumns[column]; ok {
		column = mapped
	}
	direction := "DESC"
	if opts.Ascending {
		direction = "ASC"
	}
	page := opts.PageStart
	if page < 1 {
		page = 1
	}
	return &SimulationIterator{
		client:    c,
		direction: direction,
		column:    column,
		page:      page,
		index:     -1,
	}
}

// SimulationIterator pages through simulation rows one page at a time.
type SimulationIterator struct {
	client    *Client
	direction string
	column    string
	page      int
	rows      []Simulation
	index     int
	done      bool
	err       error
}

// Next advances to the next row, fetching the next page when the current one
// is exhausted. It returns false at the end of the listing or on error;
// check Err afterwards.
func (it *SimulationIterator) Next(ctx context.Context) bool {
	if it.err != nil || it.done {
		return false
	}
	it.index++
	if it.index < len(it.rows) {
		return true
	}
	rows, err := it.client.simulationsPage(ctx, it.direction, it.column, it.page)
	if err != nil {
		it.err = err
		return false
	}
	if len(rows) == 0 {
		it.done = true
		return false
	}
	it.rows = rows
	it.index = 0
	it.page++
	return true
}

// Simulation returns the current row. Only valid after Next reports true.
func (it *SimulationIterator) Simulation() Simulation {
	return it.rows[it.index]
}

func (it *SimulationIterator) Err() error {
	return it.err
}

func (c *Client) simulationsPage(ctx context.Context, direction, column string, page int) ([]Simulation, error) {
	params := map[string]any{
		"direction": direction,
		"sort":      column,
		"page":      page,
	}
	resp, err := c.do(ctx, http.MethodGet, c.siteURL("simulations"), params)
	if err != nil {
		return nil, fmt.Errorf("list simulations page %d: %w", page, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("list simulations page %d: %w", page, err)
	}
	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse simulations page %d: %w", page, err)
	}

	var rows []Simulation
	walkElements(doc, func(n *html.Node) {
		if n.Data != "tbody" {
			return
		}
		for _, tr := range childElements(n) {
			if tr.Data != "tr" {
				continue
			}
			rows = append(rows, simulationFromRow(tr))
		}
	})
	return rows, nil
}

// simulationFromRow types the row's cells in listing column order: state,
// profile, simulator, folder, job.
func simulationFromRow(tr *html.Node) Simulation {
	var sim Simulation
	for i, cell := range childElements(tr) {
		text := strings.TrimSpace(htmlText(cell))
		switch i {
		case 0:
			sim.State = text
		case 1:
			sim.Profile = text
		case 2:
			sim.Simulator = text
		case 3:
			sim.Folder = parseCellInt(text)
		case 4:
			sim.Job = parseCellNumber(text)
		}
	}
	return sim
}

// Simulation fetches the detail page for a simulation folder.
func (c *Client) Simulation(ctx context.Context, folder int) (*SimulationDetail, error) {
	resp, err := c.do(ctx, http.MethodGet, c.siteURL("simulations/"+strconv.Itoa(folder)), nil)
	if err != nil {
		return nil, fmt.Errorf("get simulation %d: %w", folder, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		if IsNotFoundStatus(err) {
			return nil, &domain.NotFoundError{Kind: "Simulation", Name: strconv.Itoa(folder)}
		}
		return nil, fmt.Errorf("get simulation %d: %w", folder, err)
	}
	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse simulation %d: %w", folder, err)
	}

	detail := &SimulationDetail{}
	walkElements(doc, func(n *html.Node) {
		if n.Data != "div" || htmlAttr(n, "class") != "show_for simulation" {
			return
		}
		for _, p := range childElements(n) {
			if p.Data != "p" {
				continue
			}
			key, value, ok := strings.Cut(htmlText(p), ":")
			if !ok {
				continue
			}
			key = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), " ", "_")
			value = strings.TrimSpace(value)
			switch key {
			case "state":
				detail.State = value
			case "profile":
				detail.Profile = value
			case "simulator_fullname":
				detail.SimulatorFullname = value
			case "size":
				detail.Size = parseCellInt(value)
			case "folder_number":
				detail.FolderNumber = parseCellInt(value)
			case "job":
				detail.Job = value
			case "error_message":
				detail.ErrorMessage = value
			}
		}
	})
	return detail, nil
}

func parseCellInt(text string) int {
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0
	}
	return n
}

// parseCellNumber parses a numeric cell, normalizing "N/A" (and any other
// non-numeric text) to NaN.
func parseCellNumber(text string) float64 {
	if n, err := strconv.ParseFloat(text, 64); err == nil {
		return n
	}
	return math.NaN()
}
