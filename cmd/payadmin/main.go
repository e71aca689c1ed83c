// Command payadmin is the operator console for manual payment requests.
package main

import (
	"context"
	"fmt"
	"os"

	"subscriber-payments/internal/config"
	pg "subscriber-payments/internal/infra/db/postgres"
	"subscriber-payments/internal/infra/events"
	"subscriber-payments/internal/infra/logging"
	red "subscriber-payments/internal/infra/redis"
	"subscriber-payments/internal/infra/telegram"
	"subscriber-payments/internal/usecase"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var version = "dev"

type app struct {
	cfg      *config.Config
	log      *zerolog.Logger
	pool     *pgxpool.Pool
	redis    *red.Client
	requests usecase.PaymentRequestUseCase
	subs     usecase.SubscriptionUseCase
	plans    usecase.PlanUseCase
}

// open wires the same use cases the server runs. Snapshots are published on the
// shared Redis feed so clients watching through any server instance see CLI changes.
func open(ctx context.Context, cfgPath string, dev bool) (*app, error) {
	cfg, err := config.LoadConfig(cfgPath, dev)
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.Log, dev)

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 2)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}

	tm := pg.NewTxManager(pool)
	requestRepo := pg.NewPaymentRequestRepo(pool)
	userRepo := pg.NewPostgresUserRepo(pool)
	planRepo := pg.NewPlanRepoCacheDecorator(pg.NewPlanRepo(pool), redisClient, cfg.Redis.TTL, logger)

	subUC := usecase.NewSubscriptionUseCase(userRepo, pg.NewActivationRepo(pool), requestRepo, tm, logger)
	feed := red.NewChangeFeed(redisClient, events.NewHub(), logger)
	requestUC := usecase.NewPaymentRequestUseCase(requestRepo, subUC, feed, telegram.NewNoopNotifier(logger), tm, logger, dev)

	return &app{
		cfg:      cfg,
		log:      logger,
		pool:     pool,
		redis:    redisClient,
		requests: requestUC,
		subs:     subUC,
		plans:    usecase.NewPlanUseCase(planRepo, cfg.Payments.DefaultCurrency, logger),
	}, nil
}

func (a *app) Close() {
	_ = a.redis.Close()
	a.pool.Close()
}

func main() {
	var (
		cfgPath string
		dev     bool
	)
	rootCmd := &cobra.Command{
		Use:           "payadmin",
		Short:         "Operate manual payment requests",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&dev, "dev", false, "developer mode")

	withApp := func(run func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx := logging.WithActor(cmd.Context(), "payadmin")
			a, err := open(ctx, cfgPath, dev)
			if err != nil {
				return err
			}
			defer a.Close()
			return run(ctx, a, cmd, args)
		}
	}

	rootCmd.AddCommand(getCmd(withApp))
	rootCmd.AddCommand(listCmd(withApp))
	rootCmd.AddCommand(transitionCmd(withApp))
	rootCmd.AddCommand(activateCmd(withApp))
	rootCmd.AddCommand(sweepCmd(withApp))
	rootCmd.AddCommand(plansCmd(withApp))

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type runner = func(run func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error
