// Package research runs the budgeted page-visit loop that turns one search
// query into claim-relevant evidence.
package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ppiankov/firecheck/internal/metrics"
	"github.com/ppiankov/firecheck/internal/model"
	"github.com/ppiankov/firecheck/internal/oracle"
	"github.com/ppiankov/firecheck/internal/web"
)

// Fixed evidence texts for runs that produced no page evidence
const (
	NoResultsText  = "No search results found."
	NoEvidenceText = "No relevant evidence found."
)

// Defaults used when the constructor receives a non-positive budget
const (
	DefaultMaxPageVisits = 3
	DefaultSearchCount   = 10
)

// StopReason records why a research run ended
type StopReason string

const (
	StopNoResults       StopReason = "no_results"       // Search returned nothing
	StopSearchFailed    StopReason = "search_failed"    // Search provider errored
	StopSelectorDone    StopReason = "selector_done"    // Oracle chose no page, or a visited one
	StopDecisiveStance  StopReason = "decisive_stance"  // A page supported or refuted the claim
	StopBudgetExhausted StopReason = "budget_exhausted" // max_page_visits reached
)

// Result is the outcome of one research run
type Result struct {
	Query      string
	Text       string // Evidence text handed back to the judge
	StopReason StopReason
	Visited    []string             // Cleaned URLs in visit order
	Pages      []model.PageEvidence // Summarized pages in visit order
}

// Agent performs one search and visits up to MaxPageVisits pages chosen by the oracle
type Agent struct {
	oracle        oracle.Oracle
	searcher      web.Searcher
	scraper       web.Scraper
	maxPageVisits int
	searchCount   int
	logger        *slog.Logger
}

// Option configures an Agent
type Option func(*Agent)

// WithLogger sets the agent's logger
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAgent creates a research agent. Non-positive budgets fall back to the defaults.
func NewAgent(o oracle.Oracle, searcher web.Searcher, scraper web.Scraper, maxPageVisits, searchCount int, opts ...Option) *Agent {
	if maxPageVisits <= 0 {
		maxPageVisits = DefaultMaxPageVisits
	}
	if searchCount <= 0 {
		searchCount = DefaultSearchCount
	}
	a := &Agent{
		oracle:        o,
		searcher:      searcher,
		scraper:       scraper,
		maxPageVisits: maxPageVisits,
		searchCount:   searchCount,
		logger:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Research gathers evidence for claim using query.
// Provider failures are folded into the evidence text; only oracle errors
// and cancellation are returned.
func (a *Agent) Research(ctx context.Context, claim, query string) (*Result, error) {
	res := &Result{Query: query, Visited: []string{}}

	results, err := a.searcher.Search(ctx, query, a.searchCount)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		a.logger.Warn("search failed", "query", query, "error", err)
		res.Text = fmt.Sprintf("[Search failed for query: %v]", err)
		return a.finish(res, StopSearchFailed), nil
	}
	if len(results) == 0 {
		res.Text = NoResultsText
		return a.finish(res, StopNoResults), nil
	}

	visited := make(map[string]struct{}, a.maxPageVisits)
	var blocks []string
	stop := StopBudgetExhausted

	for visit := 0; visit < a.maxPageVisits; visit++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		selection, err := a.oracle.SelectPage(ctx, oracle.SelectPageRequest{
			Claim:           claim,
			Results:         results,
			Visited:         append([]string(nil), res.Visited...),
			CurrentEvidence: strings.Join(blocks, "\n"),
		})
		if err != nil {
			return nil, fmt.Errorf("select page: %w", err)
		}

		target := web.CleanURL(selection.SelectedURL)
		if target == "" {
			stop = StopSelectorDone
			break
		}
		if _, seen := visited[target]; seen {
			a.logger.Debug("selector repeated a visited page", "url", target)
			stop = StopSelectorDone
			break
		}
		visited[target] = struct{}{}
		res.Visited = append(res.Visited, target)

		page, err := a.scraper.Scrape(ctx, target)
		if err != nil || page == nil || !page.Success {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			reason := scrapeFailure(page, err)
			a.logger.Info("scrape failed", "url", target, "error", reason)
			blocks = append(blocks, fmt.Sprintf("[Failed to scrape %s: %s]", target, reason))
			continue
		}

		summary, err := a.oracle.SummarizeEvidence(ctx, oracle.SummarizeRequest{
			Claim:       claim,
			PageContent: page.Text,
			SourceURL:   target,
		})
		if err != nil {
			return nil, fmt.Errorf("summarize %s: %w", target, err)
		}

		evidence := model.PageEvidence{SourceURL: target, Text: summary.Evidence, Stance: summary.Stance}
		res.Pages = append(res.Pages, evidence)
		blocks = append(blocks, evidence.Block())

		if evidence.Stance.IsDecisive() {
			stop = StopDecisiveStance
			break
		}
	}

	if len(blocks) == 0 {
		res.Text = NoEvidenceText
	} else {
		res.Text = strings.Join(blocks, "\n\n")
	}
	return a.finish(res, stop), nil
}

func (a *Agent) finish(res *Result, reason StopReason) *Result {
	res.StopReason = reason
	metrics.ResearchStops.WithLabelValues(string(reason)).Inc()
	metrics.PageVisits.Observe(float64(len(res.Visited)))
	a.logger.Debug("research finished", "query", res.Query, "stop", reason, "visited", len(res.Visited))
	return res
}

func scrapeFailure(page *model.ScrapedPage, err error) string {
	if err != nil {
		return err.Error()
	}
	if page != nil && page.Error != "" {
		return page.Error
	}
	return "unknown error"
}
