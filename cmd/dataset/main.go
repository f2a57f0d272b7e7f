// Command dataset exports a training table from the transaction log as CSV.
package main

import (
	"bufio"
	"context"
	"flag"
	"log"
	"os"
	"time"

	"KiranaCash/internal/di"
	"KiranaCash/internal/domain/models"
	"KiranaCash/internal/domain/repository"
	"KiranaCash/pkg/config"
	xlogger "KiranaCash/pkg/logger"
	xutil "KiranaCash/pkg/util"

	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	kind := flag.String("kind", "split", "table to export: split, daily or hourly")
	from := flag.String("from", "", "first day, YYYY-MM-DD (default 90 days ago)")
	to := flag.String("to", "", "day after the last, YYYY-MM-DD (default today)")
	out := flag.String("out", "", "output file (default stdout)")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	logger, err := di.ProvideLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	today := xutil.StartOfDay(time.Now())
	start, end := today.AddDate(0, 0, -90), today
	if *from != "" {
		var ok bool
		if start, ok = xutil.ParseDay(*from); !ok {
			logger.Fatal("bad -from", xlogger.String("from", *from))
		}
	}
	if *to != "" {
		var ok bool
		if end, ok = xutil.ParseDay(*to); !ok {
			logger.Fatal("bad -to", xlogger.String("to", *to))
		}
	}
	k := repository.DatasetKind(*kind)
	if !repository.IsValidDatasetKind(k) {
		logger.Fatal("unknown dataset kind", xlogger.String("kind", *kind))
	}

	client, err := di.ProvideClickHouseClient(cfg)
	if err != nil {
		logger.Fatal("clickhouse", xlogger.Error(err))
	}
	txLog, err := di.ProvideTransactionLog(cfg, client, logger)
	if err != nil {
		logger.Fatal("transaction log", xlogger.Error(err))
	}
	defer txLog.Close()
	exporter := di.ProvideDatasetExporter(cfg, txLog)

	dst := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			logger.Fatal("create output", xlogger.Error(err))
		}
		defer f.Close()
		dst = f
	}
	w := bufio.NewWriter(dst)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	n, err := exporter.Export(ctx, k, start, end, w)
	if err != nil {
		logger.Fatal("export failed", xlogger.Error(err))
	}
	if err := w.Flush(); err != nil {
		logger.Fatal("flush output", xlogger.Error(err))
	}
	logger.Info("export complete",
		xlogger.String("kind", *kind),
		xlogger.String("from", start.Format(models.DateLayout)),
		xlogger.String("to", end.Format(models.DateLayout)),
		xlogger.Int("rows", n))
}
