package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Iterations     = prometheus.NewCounter(prometheus.CounterOpts{Name: "bot_iterations_total", Help: "Decision loop iterations completed"})
	IterationFails = prometheus.NewCounter(prometheus.CounterOpts{Name: "bot_iteration_failures_total", Help: "Decision loop iterations aborted by a collaborator failure"})
	Orders         = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bot_orders_total", Help: "Bracket orders by side and outcome"}, []string{"side", "outcome"})
	Liquidations   = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bot_liquidations_total", Help: "Full liquidations by reason"}, []string{"reason"})
	Alerts         = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bot_alerts_total", Help: "Alerts raised by level"}, []string{"level"})
	BrokerCalls    = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bot_broker_calls_total", Help: "Broker calls by operation and outcome"}, []string{"op", "outcome"})
	Cash           = prometheus.NewGauge(prometheus.GaugeOpts{Name: "bot_cash", Help: "Cash recorded in the last history sample"})
	LastPrice      = prometheus.NewGauge(prometheus.GaugeOpts{Name: "bot_last_price", Help: "Last traded price of the strategy symbol"})
	Signal         = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "bot_signal_probability", Help: "Probability of the last resolved sentiment signal"}, []string{"label"})
	Position       = prometheus.NewGauge(prometheus.GaugeOpts{Name: "bot_position_state", Help: "-1=short, 0=no position, 1=long"})
)

func init() {
	prometheus.MustRegister(
		Iterations, IterationFails, Orders, Liquidations, Alerts,
		BrokerCalls, Cash, LastPrice, Signal, Position,
	)
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
