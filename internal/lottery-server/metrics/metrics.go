package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/radieske/lottery-agency-poc/internal/lottery-server/coordinator"
	"github.com/radieske/lottery-agency-poc/internal/lottery-server/session"
)

// Metrics agrupa as métricas do servidor da lotérica.
// Os hooks abaixo ligam sessões e coordinator a elas sem que esses pacotes conheçam o prometheus.
type Metrics struct {
	ConnectionsActive prometheus.Gauge
	BatchesReceived   prometheus.Counter
	BetsStored        prometheus.Counter
	AgenciesFinished  prometheus.Gauge
	Draws             prometheus.Counter
	SessionErrors     *prometheus.CounterVec
	PublishErrors     *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{Name: "lottery_connections_active", Help: "sessões de agência abertas"}),
		BatchesReceived:   prometheus.NewCounter(prometheus.CounterOpts{Name: "lottery_batches_received_total", Help: "batches de apostas recebidos"}),
		BetsStored:        prometheus.NewCounter(prometheus.CounterOpts{Name: "lottery_bets_stored_total", Help: "apostas persistidas"}),
		AgenciesFinished:  prometheus.NewGauge(prometheus.GaugeOpts{Name: "lottery_agencies_finished", Help: "agências que terminaram de enviar"}),
		Draws:             prometheus.NewCounter(prometheus.CounterOpts{Name: "lottery_draws_total", Help: "sorteios concluídos"}),
		SessionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lottery_session_errors_total",
			Help: "sessões encerradas com erro, por estágio",
		}, []string{"stage"}),
		PublishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lottery_publish_errors_total",
			Help: "falhas ao publicar o resultado do sorteio",
		}, []string{"publisher"}),
	}
	reg.MustRegister(m.ConnectionsActive, m.BatchesReceived, m.BetsStored, m.AgenciesFinished, m.Draws, m.SessionErrors, m.PublishErrors)
	return m
}

// SessionHooks conta conexões abertas, batches e erros por estágio
func (m *Metrics) SessionHooks() session.Hooks {
	return session.Hooks{
		OnBatch: func(int) { m.BatchesReceived.Inc() },
		OnState: func(s session.State) {
			switch s {
			case session.Receiving:
				m.ConnectionsActive.Inc()
			case session.Closed:
				m.ConnectionsActive.Dec()
			}
		},
		OnError: func(stage string) { m.SessionErrors.WithLabelValues(stage).Inc() },
	}
}

// CoordinatorHooks conta apostas e sorteios; onDraw (opcional) recebe o resultado depois da métrica
func (m *Metrics) CoordinatorHooks(onDraw func(coordinator.Draw)) coordinator.Hooks {
	return coordinator.Hooks{
		OnStored:   func(n int) { m.BetsStored.Add(float64(n)) },
		OnFinished: func(n int) { m.AgenciesFinished.Set(float64(n)) },
		OnDraw: func(d coordinator.Draw) {
			m.Draws.Inc()
			if onDraw != nil {
				onDraw(d)
			}
		},
	}
}

// OnPublishError tem a assinatura de publisher.Fanout.OnError
func (m *Metrics) OnPublishError(publisher string) {
	m.PublishErrors.WithLabelValues(publisher).Inc()
}
