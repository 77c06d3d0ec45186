package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jpalmerr/tinystore"
	"github.com/jpalmerr/tinystore/metrics"
)

const maxTodos = 3

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// store metrics on a dedicated registry, served on :2112
	reg := prometheus.NewRegistry()
	obs, err := metrics.NewObserver(metrics.WithRegistry(reg))
	if err != nil {
		logger.Error("failed to create metrics observer", "error", err)
		os.Exit(1)
	}

	st, err := tinystore.New(tinystore.State{
		"count": 0,
		"todos": []string{},
	},
		tinystore.WithName("demo"),
		tinystore.WithLogger(logger),
		tinystore.WithObserver(obs),
	)
	if err != nil {
		logger.Error("failed to create store", "error", err)
		os.Exit(1)
	}

	_ = st.SubscribeEffect("count", func(prev, curr tinystore.State) error {
		fmt.Printf("count: %v -> %v\n", prev["count"], curr["count"])
		return nil
	})

	// a failing effect does not roll back the update
	_ = st.SubscribeEffect("todos", func(prev, curr tinystore.State) error {
		todos, _ := curr["todos"].([]string)
		fmt.Printf("todos: %v\n", todos)
		if len(todos) > maxTodos {
			return fmt.Errorf("%d todos, limit is %d", len(todos), maxTodos)
		}
		return nil
	})

	_ = st.SubscribeEffect(tinystore.All, func(prev, curr tinystore.State) error {
		if len(prev["todos"].([]string)) != len(curr["todos"].([]string)) {
			fmt.Println("  (todo list changed)")
		}
		return nil
	})

	server := &http.Server{
		Addr:              ":2112",
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	fmt.Println()
	fmt.Println("  tinystore demo")
	fmt.Println("  metrics: http://localhost:2112/metrics")
	fmt.Println("  press Ctrl+C to stop")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	increment := tinystore.Typed(func(n int) int { return n + 1 })

	for tick := 1; ; tick++ {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)

			count, _ := tinystore.Get[int](st, "count")
			fmt.Printf("\nfinal count: %d\n", count)
			return

		case <-ticker.C:
			update := tinystore.NewUpdate().Apply("count", increment)
			if tick%3 == 0 {
				todo := fmt.Sprintf("task %d", tick/3)
				update.Apply("todos", tinystore.Typed(func(todos []string) []string {
					// copy so the previous state keeps its slice
					next := make([]string, len(todos), len(todos)+1)
					copy(next, todos)
					return append(next, todo)
				}))
			}

			if err := st.SetState(update); err != nil {
				var effectErr *tinystore.EffectError
				if errors.As(err, &effectErr) {
					logger.Warn("effect failed", "target", effectErr.Target, "error", effectErr.Err)
					continue
				}
				logger.Error("update failed", "error", err)
			}
		}
	}
}
