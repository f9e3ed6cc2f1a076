// Package oracletest provides a scriptable Oracle for tests.
package oracletest

import (
	"context"
	"errors"
	"sync"

	"github.com/ppiankov/firecheck/internal/oracle"
)

// ErrUnscripted is returned by calls with no scripted behavior
var ErrUnscripted = errors.New("oracletest: call not scripted")

// Scripted is an Oracle whose answers come from per-call functions.
// Judge and SelectPage may alternatively be scripted as queues of responses,
// consumed in order. Every call is recorded.
type Scripted struct {
	ExtractFunc   func(oracle.ExtractRequest) (*oracle.ExtractResponse, error)
	JudgeFunc     func(oracle.JudgeRequest) (*oracle.JudgeResponse, error)
	SelectFunc    func(oracle.SelectPageRequest) (*oracle.SelectPageResponse, error)
	SummarizeFunc func(oracle.SummarizeRequest) (*oracle.SummarizeResponse, error)
	AggregateFunc func(oracle.AggregateRequest) (*oracle.AggregateResponse, error)
	BaselineFunc  func(oracle.BaselineRequest) (*oracle.BaselineResponse, error)

	JudgeQueue  []*oracle.JudgeResponse
	SelectQueue []*oracle.SelectPageResponse

	mu             sync.Mutex
	JudgeCalls     []oracle.JudgeRequest
	SelectCalls    []oracle.SelectPageRequest
	SummarizeCalls []oracle.SummarizeRequest
	AggregateCalls []oracle.AggregateRequest
	ExtractCalls   []oracle.ExtractRequest
	BaselineCalls  []oracle.BaselineRequest
}

// ExtractClaims implements oracle.Oracle
func (s *Scripted) ExtractClaims(ctx context.Context, req oracle.ExtractRequest) (*oracle.ExtractResponse, error) {
	s.mu.Lock()
	s.ExtractCalls = append(s.ExtractCalls, req)
	s.mu.Unlock()
	if s.ExtractFunc == nil {
		return nil, ErrUnscripted
	}
	return s.ExtractFunc(req)
}

// Judge implements oracle.Oracle. An exhausted queue answers with no verdict and no query.
func (s *Scripted) Judge(ctx context.Context, req oracle.JudgeRequest) (*oracle.JudgeResponse, error) {
	s.mu.Lock()
	s.JudgeCalls = append(s.JudgeCalls, req)
	if s.JudgeFunc == nil {
		defer s.mu.Unlock()
		if len(s.JudgeQueue) == 0 {
			return &oracle.JudgeResponse{}, nil
		}
		next := s.JudgeQueue[0]
		s.JudgeQueue = s.JudgeQueue[1:]
		return next, nil
	}
	s.mu.Unlock()
	return s.JudgeFunc(req)
}

// SelectPage implements oracle.Oracle. An exhausted queue selects nothing.
func (s *Scripted) SelectPage(ctx context.Context, req oracle.SelectPageRequest) (*oracle.SelectPageResponse, error) {
	s.mu.Lock()
	s.SelectCalls = append(s.SelectCalls, req)
	if s.SelectFunc == nil {
		defer s.mu.Unlock()
		if len(s.SelectQueue) == 0 {
			return &oracle.SelectPageResponse{}, nil
		}
		next := s.SelectQueue[0]
		s.SelectQueue = s.SelectQueue[1:]
		return next, nil
	}
	s.mu.Unlock()
	return s.SelectFunc(req)
}

// SummarizeEvidence implements oracle.Oracle
func (s *Scripted) SummarizeEvidence(ctx context.Context, req oracle.SummarizeRequest) (*oracle.SummarizeResponse, error) {
	s.mu.Lock()
	s.SummarizeCalls = append(s.SummarizeCalls, req)
	s.mu.Unlock()
	if s.SummarizeFunc == nil {
		return nil, ErrUnscripted
	}
	return s.SummarizeFunc(req)
}

// Aggregate implements oracle.Oracle
func (s *Scripted) Aggregate(ctx context.Context, req oracle.AggregateRequest) (*oracle.AggregateResponse, error) {
	s.mu.Lock()
	s.AggregateCalls = append(s.AggregateCalls, req)
	s.mu.Unlock()
	if s.AggregateFunc == nil {
		return nil, ErrUnscripted
	}
	return s.AggregateFunc(req)
}

// Baseline implements oracle.Baseliner
func (s *Scripted) Baseline(ctx context.Context, req oracle.BaselineRequest) (*oracle.BaselineResponse, error) {
	s.mu.Lock()
	s.BaselineCalls = append(s.BaselineCalls, req)
	s.mu.Unlock()
	if s.BaselineFunc == nil {
		return nil, ErrUnscripted
	}
	return s.BaselineFunc(req)
}

// JudgeCallCount returns the number of Judge calls so far
func (s *Scripted) JudgeCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.JudgeCalls)
}

// SelectCallCount returns the number of SelectPage calls so far
func (s *Scripted) SelectCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.SelectCalls)
}
