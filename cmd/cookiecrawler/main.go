// Command cookiecrawler crawls a ranked hostname list looking for
// cookie-consent notices, screenshotting and cataloguing whatever each
// page's detection strategies turn up.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/strobi/cookie-notice-scanner/internal/arbiter"
	"github.com/strobi/cookie-notice-scanner/internal/browser"
	"github.com/strobi/cookie-notice-scanner/internal/config"
	"github.com/strobi/cookie-notice-scanner/internal/crawler"
	"github.com/strobi/cookie-notice-scanner/internal/detector"
	"github.com/strobi/cookie-notice-scanner/internal/hostlist"
	"github.com/strobi/cookie-notice-scanner/internal/logger"
	"github.com/strobi/cookie-notice-scanner/internal/metrics"
	"github.com/strobi/cookie-notice-scanner/internal/rules"
	"github.com/strobi/cookie-notice-scanner/internal/screenshot"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("c", "config.yaml", "config file path")
	flag.Parse()

	fmt.Println("cookiecrawler starting...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, sync, err := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.FilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer sync()

	hostsFile, err := os.Open(cfg.Crawl.HostlistPath)
	if err != nil {
		log.Fatal("failed to open hostlist", zap.Error(err))
	}
	hosts, err := hostlist.Read(hostsFile)
	hostsFile.Close()
	if err != nil {
		log.Fatal("failed to parse hostlist", zap.Error(err))
	}

	rulesFile, err := os.Open(cfg.Crawl.RulesPath)
	if err != nil {
		log.Fatal("failed to open rules file", zap.Error(err))
	}
	oracle, err := rules.Load(rulesFile)
	rulesFile.Close()
	if err != nil {
		log.Fatal("failed to parse rules file", zap.Error(err))
	}
	log.Info("loaded cosmetic rules", zap.Int("count", oracle.Len()))

	pool, err := browser.NewPool(browser.Config{
		Headless:          cfg.Chrome.Headless,
		NoSandbox:         cfg.Chrome.NoSandbox,
		WarmupURL:         cfg.Chrome.WarmupURL,
		RestartAfterCount: cfg.Chrome.RestartAfterCount,
		RestartAfterTime:  cfg.Chrome.RestartAfterTime,
		ShutdownTimeout:   shutdownTimeout,
		PoolSize:          cfg.Chrome.PoolSize,
	}, log)
	if err != nil {
		log.Fatal("failed to initialize browser pool", zap.Error(err))
	}
	defer pool.Shutdown()

	sink, err := screenshot.NewDiskSink(cfg.Crawl.ScreenshotDir)
	if err != nil {
		log.Fatal("failed to initialize screenshot sink", zap.Error(err))
	}
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	sink.StartSweep(sweepCtx, screenshot.DefaultSweepInterval)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New("cookiecrawl", prometheus.DefaultRegisterer)
		m.Serve(cfg.Metrics.Addr, log)
		log.Info("metrics listening", zap.String("addr", cfg.Metrics.Addr))
	}

	viewport := &arbiter.ViewportArbiter{}
	det := detector.New(oracle, detector.NewLinguaOracle(), viewport, screenshot.NewTaker(), log)

	ctrl := &crawler.Controller{
		Pool:        pool,
		Arbiter:     viewport,
		Detector:    det,
		Sink:        sink,
		Metrics:     m,
		Logger:      log,
		WorkerCount: cfg.Crawl.WorkerCount,
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Info("shutdown signal received")
		runCancel()
	}()

	log.Info("crawl starting",
		zap.Int("hosts", len(hosts)),
		zap.Int("workers", cfg.Crawl.WorkerCount),
		zap.Int("pool_size", cfg.Chrome.PoolSize),
	)

	results := ctrl.Run(runCtx, hosts)

	log.Info("crawl complete", zap.Int("pages_processed", len(results)))

	if m != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := m.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics server shutdown error", zap.Error(err))
		}
	}
}
