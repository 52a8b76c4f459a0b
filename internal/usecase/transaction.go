package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/pkg/logger"
)

// Transaction runs a sequence of separate writes and, when one fails, runs
// the compensations registered for the steps that already succeeded in
// reverse order. The store has no cross-table transactions, so this is the
// only rollback the multi-step writes get.
type Transaction struct {
	operations    []Operation
	compensations map[int]Compensation
	log           *logger.Logger
}

type Operation struct {
	Name string
	Fn   func(context.Context) error
}

type Compensation struct {
	Name string
	Fn   func(context.Context) error
}

func NewTransaction(log *logger.Logger) *Transaction {
	if log == nil {
		log = logger.Global()
	}
	return &Transaction{
		compensations: map[int]Compensation{},
		log:           log,
	}
}

func (t *Transaction) AddOperation(name string, fn func(context.Context) error) {
	t.operations = append(t.operations, Operation{name, fn})
}

// AddCompensation binds an undo step to the most recently added operation.
func (t *Transaction) AddCompensation(name string, fn func(context.Context) error) {
	if len(t.operations) == 0 {
		return
	}
	t.compensations[len(t.operations)-1] = Compensation{name, fn}
}

func (t *Transaction) Execute(ctx context.Context) error {
	for i, op := range t.operations {
		if err := op.Fn(ctx); err != nil {
			t.rollback(ctx, i)
			return fmt.Errorf("operation '%s' failed: %w", op.Name, err)
		}
	}
	return nil
}

func (t *Transaction) rollback(ctx context.Context, failedAt int) {
	for i := failedAt - 1; i >= 0; i-- {
		comp, ok := t.compensations[i]
		if !ok {
			continue
		}
		if err := comp.Fn(ctx); err != nil {
			t.log.Error("compensação falhou, estado inconsistente",
				zap.String("compensation", comp.Name),
				zap.Error(err),
			)
		}
	}
}
