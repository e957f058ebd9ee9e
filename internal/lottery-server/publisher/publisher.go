package publisher

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/lottery-agency-poc/internal/lottery-server/coordinator"
	"github.com/radieske/lottery-agency-poc/pkg/contracts/events"
)

// Publisher divulga o resultado do sorteio para fora do servidor
type Publisher interface {
	Name() string
	PublishDraw(ctx context.Context, ev events.DrawCompleted) error
}

// Fanout entrega o resultado para todos os publishers configurados.
// Falhas são logadas e nunca afetam as sessões: o resultado oficial é o que vai pelo socket.
type Fanout struct {
	Log        *zap.Logger
	Timeout    time.Duration
	Agencies   int
	Publishers []Publisher

	OnError func(publisher string) // métricas, opcional

	wg sync.WaitGroup
}

// Dispatch tem a assinatura de coordinator.Hooks.OnDraw: publica em background
// para não atrasar a resposta da última agência. Wait espera as publicações pendentes.
func (f *Fanout) Dispatch(d coordinator.Draw) {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.OnDraw(d)
	}()
}

func (f *Fanout) Wait() { f.wg.Wait() }

// OnDraw publica o resultado em todos os publishers, um de cada vez, e só retorna no fim
func (f *Fanout) OnDraw(d coordinator.Draw) {
	if len(f.Publishers) == 0 {
		return
	}
	ev := ToEvent(d, f.Agencies)

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	for _, p := range f.Publishers {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		err := p.PublishDraw(ctx, ev)
		cancel()

		if err != nil {
			f.Log.Warn("draw publish failed", zap.String("publisher", p.Name()), zap.String("draw_id", ev.DrawID), zap.Error(err))
			if f.OnError != nil {
				f.OnError(p.Name())
			}
			continue
		}
		f.Log.Info("draw published", zap.String("publisher", p.Name()), zap.String("draw_id", ev.DrawID))
	}
}

// ToEvent converte o resultado interno no contrato publicado
func ToEvent(d coordinator.Draw, agencies int) events.DrawCompleted {
	winners := make(map[int][]string, len(d.Winners))
	for agency, docs := range d.Winners {
		winners[agency] = append([]string{}, docs...)
	}
	return events.DrawCompleted{
		DrawID:    d.ID,
		Agencies:  agencies,
		TotalBets: d.TotalBets,
		Winners:   winners,
		DrawnAt:   d.DrawnAt,
	}
}
