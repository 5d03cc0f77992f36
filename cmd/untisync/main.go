package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"untisync/internal/config"
	appLog "untisync/internal/log"
	"untisync/internal/syncer"
	"untisync/internal/untis"
)

type flagConfig struct {
	configPath string
	output     string
	once       bool
}

func main() {
	appLog.Info("untisync starting", "version", "0.1.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// Environment (CI secrets) wins over the config file, CLI over both.
	conf.ApplyEnv()
	if flags.output != "" {
		conf.Output = flags.output
	}

	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("effective config",
		"server", conf.Server,
		"school", conf.School,
		"class_id", conf.ClassID,
		"future_class_id", conf.FutureClassID,
		"switch_date", conf.SwitchDate,
		"timezone", conf.Timezone,
		"output", conf.Output,
		"refresh", conf.RefreshCron,
		"once", flags.once,
	)

	if err := conf.Validate(); err != nil {
		appLog.Error("configuration incomplete", err)
		os.Exit(1)
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	s := syncer.New(conf, untis.NewClient(conf))

	if flags.once {
		if err := s.Run(ctx); err != nil {
			appLog.Error("sync failed", err)
			os.Exit(1)
		}
		appLog.Info("untisync done")
		return
	}

	// Periodic mode: sync immediately, then on the configured schedule.
	if err := s.Run(ctx); err != nil {
		appLog.Error("sync failed", err)
	}

	c := cron.New()
	if _, err := c.AddFunc(conf.RefreshCron, func() {
		if err := s.Run(ctx); err != nil {
			appLog.Error("sync failed", err)
		}
	}); err != nil {
		appLog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	c.Start()

	<-ctx.Done()

	// Let an in-flight sync finish before exiting.
	<-c.Stop().Done()
	appLog.Info("untisync exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "config.yaml", "Path to config file")
	flag.StringVar(&cfg.output, "output", "", "ICS output path (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one sync and exit")

	flag.Parse()

	return cfg
}
