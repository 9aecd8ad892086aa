package usecase

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rocketscienceinc/gameroom-backend/internal/apperror"
	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
)

const outcomeOK = "ok"

// Metrics counts player intents and finished sessions. A nil *Metrics records nothing.
type Metrics struct {
	intents  *prometheus.CounterVec
	finished *prometheus.CounterVec
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		intents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gameroom",
			Name:      "intents_total",
			Help:      "Player intents by game, action and outcome.",
		}, []string{"game", "action", "outcome"}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gameroom",
			Name:      "sessions_finished_total",
			Help:      "Finished sessions by game and result.",
		}, []string{"game", "result"}),
	}

	registerer.MustRegister(metrics.intents, metrics.finished)

	return metrics
}

func (that *Metrics) observe(kind entity.Kind, action string, err error) {
	if that == nil {
		return
	}

	outcome := outcomeOK
	if err != nil {
		outcome = string(apperror.KindOf(err))
	}

	that.intents.WithLabelValues(string(kind), action, outcome).Inc()
}

func (that *Metrics) finish(kind entity.Kind, winnerID string) {
	if that == nil {
		return
	}

	result := "win"
	if winnerID == "" {
		result = "draw"
	}

	that.finished.WithLabelValues(string(kind), result).Inc()
}
