package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/firecheck/internal/model"
)

// Checker verifies a single statement
type Checker interface {
	Check(ctx context.Context, statement string) (*model.StatementResult, error)
}

// Statement is one batch input line
type Statement struct {
	ID    string `json:"id" validate:"max=200"`
	Text  string `json:"statement" validate:"required,max=10000"`
	Label string `json:"label,omitempty"` // Optional expected verdict, carried through for evaluation
}

// BaselineFunc judges a statement without research, for comparison against the full check
type BaselineFunc func(ctx context.Context, statement string) (model.OverallVerdict, error)

// StatementJob checks one statement
type StatementJob struct {
	Index     int
	Statement Statement
	Checker   Checker
	Baseline  BaselineFunc
	Timeout   time.Duration
}

// Execute runs the check. Failures still produce a result carrying the ERROR marker.
func (j *StatementJob) Execute(ctx context.Context) Result {
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	startedAt := time.Now()
	outcome := &StatementOutcome{Index: j.Index, Statement: j.Statement}
	result, err := j.Checker.Check(ctx, j.Statement.Text)
	if err == nil && result == nil {
		err = errors.New("checker returned no result")
	}
	if err != nil {
		outcome.Result = model.FailedResult(uuid.NewString(), j.Statement.Text, startedAt, err)
		outcome.Error = err
	} else {
		outcome.Result = result
	}

	if j.Baseline != nil {
		verdict, err := j.Baseline(ctx, j.Statement.Text)
		if err != nil {
			verdict = model.OverallError
			outcome.BaselineError = err
		}
		outcome.Baseline = verdict
	}
	return outcome
}

// StatementOutcome is the result of one statement job
type StatementOutcome struct {
	Index     int                    `json:"index"`
	Statement Statement              `json:"input"`
	Result    *model.StatementResult `json:"result"`
	Error     error                  `json:"-"`

	// Baseline is the knowledge-only verdict, set when the batch runs with a baseline
	Baseline      model.OverallVerdict `json:"baseline_verdict,omitempty"`
	BaselineError error                `json:"-"`
}

// GetError returns the error from the outcome
func (o *StatementOutcome) GetError() error {
	return o.Error
}

// Failed reports whether the statement or any of its claims ended in ERROR
func (o *StatementOutcome) Failed() bool {
	if o.Error != nil || o.Result == nil {
		return true
	}
	return o.Result.OverallVerdict == model.OverallError || o.Result.ErrorCount() > 0
}

// BatchProcessor checks many statements concurrently
type BatchProcessor struct {
	checker   Checker
	workers   int
	timeout   time.Duration
	logger    *slog.Logger
	onOutcome func(*StatementOutcome)
	baseline  BaselineFunc
}

// BatchOption configures a BatchProcessor
type BatchOption func(*BatchProcessor)

// WithStatementTimeout bounds each statement check
func WithStatementTimeout(d time.Duration) BatchOption {
	return func(b *BatchProcessor) { b.timeout = d }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) { b.logger = logger }
}

// WithOutcomeHook registers a callback invoked as each statement completes.
// It runs on the collecting goroutine, never concurrently with itself.
func WithOutcomeHook(fn func(*StatementOutcome)) BatchOption {
	return func(b *BatchProcessor) { b.onOutcome = fn }
}

// WithBaseline also judges every statement with fn, independently of the full check
func WithBaseline(fn BaselineFunc) BatchOption {
	return func(b *BatchProcessor) { b.baseline = fn }
}

// NewBatchProcessor creates a new batch processor with the given worker count
func NewBatchProcessor(checker Checker, workers int, opts ...BatchOption) *BatchProcessor {
	b := &BatchProcessor{
		checker: checker,
		workers: workers,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ProcessStatements checks all statements and returns one outcome per input, in input order.
// Statements that never ran because ctx ended are reported as ERROR outcomes.
func (b *BatchProcessor) ProcessStatements(ctx context.Context, statements []Statement) []*StatementOutcome {
	if len(statements) == 0 {
		return []*StatementOutcome{}
	}

	pool := NewPool(ctx, b.workers)
	pool.Start()

	go func() {
		defer pool.Close()
		for i, s := range statements {
			job := &StatementJob{
				Index:     i,
				Statement: s,
				Checker:   b.checker,
				Baseline:  b.baseline,
				Timeout:   b.timeout,
			}
			if !pool.Submit(job) {
				return
			}
		}
	}()

	outcomes := make([]*StatementOutcome, len(statements))
	for res := range pool.Results() {
		outcome := res.(*StatementOutcome)
		outcomes[outcome.Index] = outcome
		b.logOutcome(outcome)
		if b.onOutcome != nil {
			b.onOutcome(outcome)
		}
	}

	for i, o := range outcomes {
		if o != nil {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = errors.New("statement was not processed")
		}
		outcomes[i] = &StatementOutcome{
			Index:     i,
			Statement: statements[i],
			Result:    model.FailedResult(uuid.NewString(), statements[i].Text, time.Now(), err),
			Error:     err,
		}
		if b.onOutcome != nil {
			b.onOutcome(outcomes[i])
		}
	}

	sort.SliceStable(outcomes, func(i, j int) bool { return outcomes[i].Index < outcomes[j].Index })
	return outcomes
}

// ProcessFile reads statements from a file and checks them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*StatementOutcome, error) {
	statements, err := ReadStatementsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read statements: %w", err)
	}
	return b.ProcessStatements(ctx, statements), nil
}

func (b *BatchProcessor) logOutcome(o *StatementOutcome) {
	if o.BaselineError != nil {
		b.logger.Warn("baseline failed", "id", o.Statement.ID, "error", o.BaselineError)
	}
	if o.Error != nil {
		b.logger.Warn("statement failed", "id", o.Statement.ID, "error", o.Error)
		return
	}
	b.logger.Info("statement checked",
		"id", o.Statement.ID,
		"verdict", o.Result.OverallVerdict,
		"claims", len(o.Result.Claims),
		"claim_errors", o.Result.ErrorCount(),
	)
}

// BatchSummary tallies a batch run
type BatchSummary struct {
	Total     int                          `json:"total"`
	Succeeded int                          `json:"succeeded"`
	Errors    int                          `json:"errors"`
	ByVerdict map[model.OverallVerdict]int `json:"by_verdict"`
	Matched   int                          `json:"matched,omitempty"` // Outcomes whose verdict equals the input label
	Labeled   int                          `json:"labeled,omitempty"`

	BaselineMatched int `json:"baseline_matched,omitempty"`
	BaselineLabeled int `json:"baseline_labeled,omitempty"`
}

// Summarize tallies outcomes. Every outcome counts toward Total, including failures.
func Summarize(outcomes []*StatementOutcome) BatchSummary {
	s := BatchSummary{ByVerdict: make(map[model.OverallVerdict]int)}
	for _, o := range outcomes {
		s.Total++
		if o.Failed() {
			s.Errors++
		} else {
			s.Succeeded++
		}
		verdict := model.OverallError
		if o.Result != nil {
			verdict = o.Result.OverallVerdict
		}
		s.ByVerdict[verdict]++

		if o.Statement.Label == "" {
			continue
		}
		want, ok := model.ParseOverallVerdict(o.Statement.Label)
		s.Labeled++
		if ok && want == verdict {
			s.Matched++
		}
		if o.Baseline != "" {
			s.BaselineLabeled++
			if ok && want == o.Baseline {
				s.BaselineMatched++
			}
		}
	}
	return s
}

// ReadStatementsFromFile reads statements, one per line.
// Lines starting with '{' are parsed as JSON objects with "id" and "statement"
// (or "claim") fields; other lines are taken verbatim. Blank lines and '#' comments
// are skipped. Duplicates are kept so evaluation counts match the input.
func ReadStatementsFromFile(filePath string) ([]Statement, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var statements []Statement

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		s, err := parseStatementLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if s.ID == "" {
			s.ID = fmt.Sprintf("line-%d", lineNo)
		}
		statements = append(statements, s)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return statements, nil
}

func parseStatementLine(line string) (Statement, error) {
	if !strings.HasPrefix(line, "{") {
		return Statement{Text: line}, nil
	}

	var raw struct {
		ID        json.RawMessage `json:"id"`
		UID       json.RawMessage `json:"uid"`
		Statement string          `json:"statement"`
		Claim     string          `json:"claim"`
		Label     string          `json:"label"`
	}
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Statement{}, fmt.Errorf("parse JSON: %w", err)
	}

	text := strings.TrimSpace(raw.Statement)
	if text == "" {
		text = strings.TrimSpace(raw.Claim)
	}
	if text == "" {
		return Statement{}, errors.New(`missing "statement" field`)
	}

	id := rawID(raw.ID)
	if id == "" {
		id = rawID(raw.UID)
	}
	return Statement{ID: id, Text: text, Label: strings.TrimSpace(raw.Label)}, nil
}

// rawID accepts string or numeric ids
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
