// Package app assembles the connections a process role needs from config.
package app

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"counter-pos/internal/catalog"
	"counter-pos/internal/common/config"
	"counter-pos/internal/common/logger"
	"counter-pos/internal/common/metrics"
	"counter-pos/internal/connections/cache"
	"counter-pos/internal/connections/database"
	kclient "counter-pos/internal/connections/kafka"
	"counter-pos/internal/connections/rabbitmq"
	"counter-pos/internal/domain"
	"counter-pos/internal/feed"
	"counter-pos/internal/feed/kafkafeed"
	"counter-pos/internal/feed/rabbitfeed"
	"counter-pos/internal/microservices/counter/draft"
	"counter-pos/internal/microservices/order"
	"counter-pos/internal/microservices/order/repository"
	"counter-pos/internal/microservices/order/service"
	"counter-pos/internal/microservices/tracker"
	trackerrepo "counter-pos/internal/microservices/tracker/repository"
	trackersvc "counter-pos/internal/microservices/tracker/service"
)

// Infra is opened once per process. Everything it creates is released by
// Close in reverse order.
type Infra struct {
	Cfg      config.App
	Log      *logger.Logger
	Registry *prometheus.Registry
	Pool     *pgxpool.Pool

	mu      sync.Mutex
	pub     feed.Publisher
	sub     feed.Subscriber
	repo    *repository.Repository
	orders  *service.Service
	closers []func()
}

// Open connects to postgres when the storage driver asks for it. Feed and
// draft backends are opened on first use.
func Open(ctx context.Context, cfg config.App, lg *logger.Logger) (*Infra, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	in := &Infra{Cfg: cfg, Log: lg, Registry: reg}

	if cfg.Storage.Driver == "postgres" {
		pool, err := database.Connect(ctx, cfg.Database, lg)
		if err != nil {
			return nil, err
		}
		in.Pool = pool
		in.closers = append(in.closers, pool.Close)
	}
	return in, nil
}

func (in *Infra) Close() {
	in.mu.Lock()
	defer in.mu.Unlock()
	for i := len(in.closers) - 1; i >= 0; i-- {
		in.closers[i]()
	}
	in.closers = nil
}

// Feed returns the configured transport. The memory hub only reaches
// subscribers in the same process.
func (in *Infra) Feed(source string) (feed.Publisher, feed.Subscriber, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.pub != nil {
		return in.pub, in.sub, nil
	}
	switch in.Cfg.Feed.Transport {
	case "rabbitmq":
		client, err := rabbitmq.Dial(in.Cfg.Rabbit, in.Log.With("component", "rabbitmq"))
		if err != nil {
			return nil, nil, fmt.Errorf("rabbitmq: %w", err)
		}
		in.closers = append(in.closers, client.Close)
		f, err := rabbitfeed.New(client, in.Cfg.Rabbit.Exchange, source, in.Log.With("feed", "rabbitmq"))
		if err != nil {
			return nil, nil, err
		}
		in.pub, in.sub = f, f
	case "kafka":
		f := kafkafeed.New(kclient.NewClient(in.Cfg.Kafka), in.Cfg.Kafka.GroupPrefix, in.Log.With("feed", "kafka"))
		in.closers = append(in.closers, func() { _ = f.Close() })
		in.pub, in.sub = f, f
	case "poll":
		in.pub, in.sub = feed.Nop{}, feed.NewPoller(in.Cfg.Feed.PollInterval)
	case "memory":
		hub := feed.NewHub(64)
		in.pub, in.sub = hub, hub
	default:
		return nil, nil, fmt.Errorf("unknown feed transport %q", in.Cfg.Feed.Transport)
	}
	in.Log.Info("feed_ready", map[string]any{"transport": in.Cfg.Feed.Transport})
	return in.pub, in.sub, nil
}

// Orders is shared by every role running in this process.
func (in *Infra) Orders(pub feed.Publisher, lg *logger.Logger, m *metrics.Pipeline) service.OrderServiceInterface {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.orders == nil {
		in.repo = order.NewRepository(in.Pool)
		in.orders = order.NewService(in.repo, pub, lg, m)
	}
	return in.orders.OrderService
}

// Timeline serves the status log of the queue returned by Orders.
func (in *Infra) Timeline(orders trackersvc.OrderReader) trackersvc.TrackerServiceInterface {
	in.mu.Lock()
	defer in.mu.Unlock()
	var local trackerrepo.TrackerRepoInterface
	if in.repo != nil {
		local, _ = in.repo.OrderRepo.(trackerrepo.TrackerRepoInterface)
	}
	return tracker.NewService(in.Pool, local, orders)
}

func (in *Infra) DraftStore(ctx context.Context) (draft.Store, error) {
	var kv draft.KV
	switch in.Cfg.Draft.Driver {
	case "file":
		f, err := draft.NewFileKV(in.Cfg.Draft.Dir)
		if err != nil {
			return nil, err
		}
		kv = f
	case "redis":
		rdb, err := cache.Dial(ctx, in.Cfg.Redis)
		if err != nil {
			return nil, err
		}
		in.mu.Lock()
		in.closers = append(in.closers, func() { _ = rdb.Close() })
		in.mu.Unlock()
		kv = draft.NewRedisKV(rdb, in.Cfg.Draft.Station)
	case "memory":
		kv = draft.NewMemoryKV()
	default:
		return nil, fmt.Errorf("unknown draft driver %q", in.Cfg.Draft.Driver)
	}
	return draft.NewSlotStore(kv), nil
}

// Catalog reads products from postgres, or from the configured seeds when
// running on memory storage.
func (in *Infra) Catalog() (catalog.Catalog, error) {
	if in.Pool != nil {
		return catalog.NewPostgres(in.Pool), nil
	}
	return SeedCatalog(in.Cfg.Catalog.Products)
}

var seedNamespace = uuid.MustParse("6f1c2a8e-4b0d-4a57-9a3e-2f7c1d0b5e91")

// SeedCatalog builds a static catalog. Seeds without an id get one derived
// from the name so drafts keep resolving across restarts.
func SeedCatalog(seeds []config.ProductSeed) (*catalog.Static, error) {
	products := make([]domain.Product, 0, len(seeds))
	for i, s := range seeds {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return nil, fmt.Errorf("catalog.products[%d]: name is required", i)
		}
		p := domain.Product{Name: name, Status: domain.ProductComplete}
		if s.ID != "" {
			id, err := uuid.Parse(s.ID)
			if err != nil {
				return nil, fmt.Errorf("catalog.products[%d]: %w", i, err)
			}
			p.ID = id
		} else {
			p.ID = uuid.NewSHA1(seedNamespace, []byte(strings.ToLower(name)))
		}
		for _, u := range s.Units {
			kind, err := domain.ParseUnitKind(u)
			if err != nil {
				return nil, fmt.Errorf("catalog.products[%d]: %w", i, err)
			}
			p.Units = append(p.Units, kind)
		}
		if loc := strings.TrimSpace(s.Location); loc != "" {
			p.Location = &loc
		}
		products = append(products, p)
	}
	return catalog.NewStatic(products...), nil
}
