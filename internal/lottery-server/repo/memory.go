package repo

import (
	"context"

	"github.com/radieske/lottery-agency-poc/pkg/lottery"
)

// Memory guarda as apostas em memória (testes e STORE_BACKEND=memory)
type Memory struct {
	bets []lottery.Bet
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Append(_ context.Context, bets []lottery.Bet) error {
	m.bets = append(m.bets, bets...)
	return nil
}

func (m *Memory) ScanAll(_ context.Context) ([]lottery.Bet, error) {
	out := make([]lottery.Bet, len(m.bets))
	copy(out, m.bets)
	return out, nil
}
