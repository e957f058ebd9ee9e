package repo

import (
	"context"
	"errors"

	"github.com/radieske/lottery-agency-poc/pkg/lottery"
)

// ErrStoreIO envolve qualquer falha de persistência. Fatal para a sessão que tentou escrever.
var ErrStoreIO = errors.New("store io")

// Store é o armazenamento append-only de apostas.
// As implementações não precisam ser seguras para uso concorrente: o coordinator serializa as chamadas.
type Store interface {
	Append(ctx context.Context, bets []lottery.Bet) error
	ScanAll(ctx context.Context) ([]lottery.Bet, error)
}
