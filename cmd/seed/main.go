// Command seed writes a synthetic transaction history so the training
// export and the forecast endpoints have something to work with.
package main

import (
	"context"
	"flag"
	"log"
	"math"
	"math/rand"
	"os"
	"time"

	"KiranaCash/internal/di"
	"KiranaCash/internal/domain/models"
	"KiranaCash/internal/domain/repository"
	"KiranaCash/internal/services/features"
	"KiranaCash/internal/usecase"
	"KiranaCash/pkg/config"
	xlogger "KiranaCash/pkg/logger"
	xutil "KiranaCash/pkg/util"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	days := flag.Int("days", 60, "days of history to generate")
	until := flag.String("until", "", "generate up to this instant (RFC3339, \"YYYY-MM-DD HH:MM:SS\" or unix seconds; default now)")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
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

	client, err := di.ProvideClickHouseClient(cfg)
	if err != nil {
		logger.Fatal("clickhouse", xlogger.Error(err))
	}
	txLog, err := di.ProvideTransactionLog(cfg, client, logger)
	if err != nil {
		logger.Fatal("transaction log", xlogger.Error(err))
	}
	defer txLog.Close()
	producer, err := di.ProvideKafkaProducer(cfg)
	if err != nil {
		logger.Fatal("kafka", xlogger.Error(err))
	}

	var pub repository.TransactionPublisher
	backend := usecase.BackendStore
	if producer != nil {
		pub = di.ProvideTransactionPublisher(producer, cfg)
		backend = usecase.BackendKafka
		defer producer.Close()
	}
	proc := usecase.NewTransactionProcessor(pub, txLog, di.ProvideMetrics(), backend)

	rng := rand.New(rand.NewSource(*seed))
	denoms := models.Denominations(cfg.Forecast.Denominations)
	end := xutil.ParseTimeDefault(*until, time.Now())
	start := xutil.StartOfDay(end).AddDate(0, 0, -*days)

	ctx := context.Background()
	total := 0
	for d := 0; d < *days; d++ {
		txs := generateDay(rng, start.AddDate(0, 0, d), denoms, cfg.Forecast.StoreType)
		if err := proc.ProcessBatch(ctx, txs); err != nil {
			logger.Error("seed day failed", xlogger.Int("day", d), xlogger.Error(err))
			os.Exit(1)
		}
		total += len(txs)
	}
	logger.Info("seed complete",
		xlogger.Int("days", *days),
		xlogger.Int("transactions", total),
		xlogger.String("backend", backend))
}

// generateDay draws 20 to 50 purchases between 09:00 and 20:59. Six in ten
// are cash, tendered in the next multiple of 50.
func generateDay(rng *rand.Rand, day time.Time, denoms models.Denominations, storeType string) []*models.Transaction {
	n := 20 + rng.Intn(31)
	out := make([]*models.Transaction, 0, n)
	for i := 0; i < n; i++ {
		at := day.Add(time.Duration(9+rng.Intn(12))*time.Hour + time.Duration(rng.Intn(3600))*time.Second)
		amount := float64(50 + rng.Intn(451))
		t := &models.Transaction{
			ID:          uuid.NewString(),
			Timestamp:   at,
			TotalAmount: amount,
			StoreType:   storeType,
		}
		switch r := rng.Float64(); {
		case r < 0.6:
			t.PaymentMethod = models.PaymentCash
			tendered := math.Ceil(amount/50) * 50
			t.TenderedAmount = &tendered
			t.ChangeGiven = tendered - amount
			t.TenderedBreakdown = breakdown(denoms, int(tendered))
			t.ChangeBreakdown = breakdown(denoms, int(t.ChangeGiven))
		case r < 0.85:
			t.PaymentMethod = models.PaymentUPI
		default:
			t.PaymentMethod = models.PaymentCard
		}
		out = append(out, t)
	}
	return out
}

func breakdown(denoms models.Denominations, amount int) string {
	inv, _, err := denoms.Greedy(amount)
	if err != nil {
		return ""
	}
	return features.Encode(features.BreakdownFromCounts(inv.Counts(), denoms))
}
