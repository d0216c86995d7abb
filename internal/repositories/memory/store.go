// Package memory - реализация репозиториев в памяти для тестов
// и режима database.driver=memory. Транзакция держит общий мьютекс
// и откатывается к снимку при ошибке.
package memory

import (
	"context"
	"sync"

	"verdict_backend/internal/models"
)

type txKey struct{}

type state struct {
	requests    map[string]models.Request
	verdicts    map[string]models.Verdict
	byJudge     map[string]map[string]string // request_id -> judge_id -> verdict_id
	accounts    map[string]models.CreditAccount
	ledger      []models.CreditLedgerEntry
	experts     map[string]models.Expert
	assignments map[string]models.RoutingAssignment // по request_id
}

func newState() state {
	return state{
		requests:    map[string]models.Request{},
		verdicts:    map[string]models.Verdict{},
		byJudge:     map[string]map[string]string{},
		accounts:    map[string]models.CreditAccount{},
		experts:     map[string]models.Expert{},
		assignments: map[string]models.RoutingAssignment{},
	}
}

func (s state) clone() state {
	c := state{
		requests:    make(map[string]models.Request, len(s.requests)),
		verdicts:    make(map[string]models.Verdict, len(s.verdicts)),
		byJudge:     make(map[string]map[string]string, len(s.byJudge)),
		accounts:    make(map[string]models.CreditAccount, len(s.accounts)),
		ledger:      append([]models.CreditLedgerEntry(nil), s.ledger...),
		experts:     make(map[string]models.Expert, len(s.experts)),
		assignments: make(map[string]models.RoutingAssignment, len(s.assignments)),
	}
	for k, v := range s.requests {
		c.requests[k] = v
	}
	for k, v := range s.verdicts {
		c.verdicts[k] = v
	}
	for k, judges := range s.byJudge {
		m := make(map[string]string, len(judges))
		for j, id := range judges {
			m[j] = id
		}
		c.byJudge[k] = m
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.experts {
		c.experts[k] = v
	}
	for k, v := range s.assignments {
		c.assignments[k] = v
	}
	return c
}

type Store struct {
	mu sync.Mutex
	st state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

// lock берет мьютекс, если вызов не внутри транзакции этого же Store
func (s *Store) lock(ctx context.Context) func() {
	if ctx != nil && ctx.Value(txKey{}) == s {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) == s {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) Requests() *RequestRepository { return &RequestRepository{s: s} }
func (s *Store) Verdicts() *VerdictRepository { return &VerdictRepository{s: s} }
func (s *Store) Credits() *CreditRepository   { return &CreditRepository{s: s} }
func (s *Store) Experts() *ExpertRepository   { return &ExpertRepository{s: s} }
func (s *Store) Routing() *RoutingRepository  { return &RoutingRepository{s: s} }
