package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmehdipour/visa-crm/internal/config"
	"github.com/jmehdipour/visa-crm/internal/db"
	"github.com/jmehdipour/visa-crm/internal/gateway"
	"github.com/jmehdipour/visa-crm/internal/kafka"
	"github.com/jmehdipour/visa-crm/internal/logger"
	"github.com/jmehdipour/visa-crm/internal/metrics"
	"github.com/jmehdipour/visa-crm/internal/notify"
	"github.com/jmehdipour/visa-crm/internal/repository"
)

const pushJobName = "visa_notify"

// notifier owns everything one or more notification runs need.
type notifier struct {
	cfg     config.Config
	log     *zap.Logger
	job     *notify.Job
	reg     *prometheus.Registry
	closers []func() error
}

func newNotifier(cmd *cobra.Command) (*notifier, error) {
	// 1) load config
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	n := &notifier{cfg: cfg, log: log, reg: prometheus.NewRegistry()}
	metrics.MustRegister(n.reg)

	// 2) DB connection (MySQL)
	dbx, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
		MaxOpenConns:    cfg.MySQL.MaxOpenConns,
		MaxIdleConns:    cfg.MySQL.MaxIdleConns,
		ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
		PingTimeout:     cfg.MySQL.PingTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("mysql connect: %w", err)
	}
	n.closers = append(n.closers, dbx.Close)

	// 3) gateway + job
	gw := gateway.NewClient(cfg.Gateway, nil, log.Named("gateway"))
	n.job = notify.NewJob(
		repository.NewCustomersRepository(dbx),
		repository.NewSendLogsRepository(dbx),
		gw,
		loc,
		cfg.Notify,
		log.Named("notify"),
	)

	// 4) optional event stream
	if len(cfg.Kafka.Brokers) > 0 {
		pub := kafka.NewPublisherFromConfig(kafka.Config{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		})
		n.job.Events = pub
		n.closers = append(n.closers, pub.Close)
	}

	return n, nil
}

// run executes one notification run and pushes metrics when a Pushgateway is configured.
func (n *notifier) run(ctx context.Context) (notify.Summary, error) {
	sum, err := n.job.Run(ctx)
	if err != nil {
		n.log.Error("notification run failed", zap.String("run_id", sum.RunID), zap.Error(err))
	}

	if url := n.cfg.Metrics.PushgatewayURL; url != "" {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if perr := metrics.Push(pctx, url, pushJobName, n.reg); perr != nil {
			n.log.Warn("push metrics failed", zap.Error(perr))
		}
	}
	return sum, err
}

func (n *notifier) Close() {
	for i := len(n.closers) - 1; i >= 0; i-- {
		_ = n.closers[i]()
	}
	_ = n.log.Sync()
}
