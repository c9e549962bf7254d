package worker

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/caltrain-transit/railfeed/pkg/config"
	"github.com/caltrain-transit/railfeed/pkg/kvstore"
	"github.com/caltrain-transit/railfeed/pkg/secret"
)

// RegisterCLI wires the schedule and realtime jobs up as CLI subcommands.
func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "Run the schedule and realtime pipeline jobs",
		Subcommands: []*cli.Command{
			scheduleCommand(),
			realtimeCommand(),
		},
	}
}

var configFlag = &cli.StringFlag{
	Name:  "config",
	Usage: "Path to the YAML config file",
}

var loopFlag = &cli.BoolFlag{
	Name:  "loop",
	Usage: "Keep re-running on the job's configured cadence instead of exiting after one run",
}

func scheduleCommand() *cli.Command {
	return &cli.Command{
		Name:  "schedule",
		Usage: "Fetch, build and publish the static schedule",
		Flags: []cli.Flag{configFlag, loopFlag},
		Action: func(c *cli.Context) error {
			cfg, store, apiKey, err := setup(c.String("config"))
			if err != nil {
				return err
			}

			w := &ScheduleWorker{
				Store:      store,
				HTTPClient: &http.Client{},
				Sources:    cfg.Sources,
				APIKey:     apiKey,
				Schedule:   cfg.Schedule,
				Validator:  cfg.Validator,
			}

			cadence, err := config.ParseISO8601(cfg.Schedule.Cadence)
			if err != nil {
				return err
			}

			return runLoop(c.Bool("loop"), cadence, w.Run)
		},
	}
}

func realtimeCommand() *cli.Command {
	return &cli.Command{
		Name:  "realtime",
		Usage: "Fetch, merge and publish realtime status",
		Flags: []cli.Flag{configFlag, loopFlag},
		Action: func(c *cli.Context) error {
			cfg, store, apiKey, err := setup(c.String("config"))
			if err != nil {
				return err
			}

			redisClient, err := kvstore.Connect(context.Background(), cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.Database)
			if err != nil {
				return err
			}
			dedupStore := redisstore.NewRedis(redisClient)
			dedup := cache.New[string](dedupStore)

			w := &RealtimeWorker{
				Store:      store,
				HTTPClient: &http.Client{},
				Sources:    cfg.Sources,
				APIKey:     apiKey,
				Realtime:   cfg.Realtime,
				Dedup:      dedup,
			}

			cadence, err := config.ParseISO8601(cfg.Realtime.Cadence)
			if err != nil {
				return err
			}

			return runLoop(c.Bool("loop"), cadence, w.Run)
		},
	}
}

func setup(configPath string) (config.Config, kvstore.Store, string, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, nil, "", err
	}

	apiKey, err := secret.FromEnvironment("RAILFEED_API_KEY")
	if err != nil {
		return cfg, nil, "", err
	}

	client, err := kvstore.Connect(context.Background(), cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.Database)
	if err != nil {
		return cfg, nil, "", err
	}

	return cfg, kvstore.NewRedisStore(client), apiKey, nil
}

// runLoop runs fn once, or forever on cadence if loop is set, subtracting
// each run's own execution time from the wait so the cadence measures
// start-to-start, not a fixed gap on top of however long the run took.
func runLoop(loop bool, cadence time.Duration, fn func(ctx context.Context) error) error {
	if !loop {
		return fn(context.Background())
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	for {
		start := time.Now()

		if err := fn(context.Background()); err != nil {
			log.Error().Err(err).Msg("worker run failed, will retry on next cadence")
		}

		elapsed := time.Since(start)
		wait := cadence - elapsed
		if wait < 0 {
			wait = 0
		}

		select {
		case <-signals:
			return nil
		case <-time.After(wait):
		}
	}
}
