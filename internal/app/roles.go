package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"counter-pos/internal/common/metrics"
	"counter-pos/internal/microservices/counter"
	"counter-pos/internal/microservices/notificator"
	"counter-pos/internal/microservices/order"
	"counter-pos/internal/microservices/register"
)

const (
	ModeCounter    = "counter-api"
	ModeRegister   = "register-station"
	ModeNotifier   = "notification-subscriber"
	ModeMigrate    = "migrate"
	ModeStandalone = "standalone"
)

var Modes = []string{ModeCounter, ModeRegister, ModeNotifier, ModeMigrate, ModeStandalone}

// Run starts one role and blocks until ctx ends or the role fails.
func Run(ctx context.Context, in *Infra, mode string, port int) error {
	switch mode {
	case ModeCounter:
		return runCounter(ctx, in, port)
	case ModeRegister:
		return runRegister(ctx, in, port)
	case ModeNotifier:
		return runNotifier(ctx, in)
	case ModeMigrate:
		if in.Pool == nil {
			return errors.New("migrate needs storage.driver: postgres")
		}
		return order.Migrate(ctx, in.Pool, in.Log)
	case ModeStandalone:
		// counter and register share one queue and an in-process feed
		eg, ctx := errgroup.WithContext(ctx)
		eg.Go(func() error { return runCounter(ctx, in, port) })
		eg.Go(func() error { return runRegister(ctx, in, port+1) })
		return eg.Wait()
	}
	return fmt.Errorf("unknown mode %q", mode)
}

func runCounter(ctx context.Context, in *Infra, port int) error {
	lg := in.Log.With("role", ModeCounter)
	m := metrics.New(in.Registry, "counter")
	pub, _, err := in.Feed(ModeCounter)
	if err != nil {
		return err
	}
	store, err := in.DraftStore(ctx)
	if err != nil {
		return fmt.Errorf("draft store: %w", err)
	}
	cat, err := in.Catalog()
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	orders := in.Orders(pub, lg, m)
	return counter.Run(ctx, addr(port), store, orders, cat, lg, m, in.Registry)
}

func runRegister(ctx context.Context, in *Infra, port int) error {
	lg := in.Log.With("role", ModeRegister)
	m := metrics.New(in.Registry, "register")
	pub, sub, err := in.Feed(ModeRegister)
	if err != nil {
		return err
	}
	orders := in.Orders(pub, lg, m)
	timeline := in.Timeline(orders)
	return register.Run(ctx, addr(port), in.Cfg.Register.Station, orders, timeline, sub, lg, m, in.Registry)
}

func runNotifier(ctx context.Context, in *Infra) error {
	lg := in.Log.With("role", ModeNotifier)
	pub, sub, err := in.Feed(ModeNotifier)
	if err != nil {
		return err
	}
	orders := in.Orders(pub, lg, metrics.New(nil, "notifier"))
	return notificator.Start(ctx, sub, orders, lg)
}

func addr(port int) string { return fmt.Sprintf(":%d", port) }
