package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"KiranaCash/internal/domain/models"
	domrepo "KiranaCash/internal/domain/repository"
	domsvc "KiranaCash/internal/domain/service"
	"KiranaCash/internal/service/cache"
	xlogger "KiranaCash/pkg/logger"
	xutil "KiranaCash/pkg/util"

	"github.com/google/uuid"
)

// Predictor runs one next-day forecast.
type Predictor interface {
	RunPrediction(ctx context.Context, date time.Time, yesterdayCash float64) (*models.PredictionResult, error)
	Denominations() models.Denominations
}

// Broadcaster pushes a computed forecast to live dashboards.
type Broadcaster interface {
	Broadcast(v interface{})
}

// ForecastUseCase resolves forecast inputs, runs the pipeline and fans the
// result out to cache, stream and dashboards.
type ForecastUseCase struct {
	pipe      Predictor
	store     domrepo.TransactionStore
	cache     *cache.ForecastCache
	pub       domrepo.ForecastPublisher
	hub       Broadcaster
	metrics   domrepo.Metrics
	logger    *xlogger.Logger
	storeType string
	timeout   time.Duration
	now       func() time.Time
}

// ForecastOption configures optional collaborators.
type ForecastOption func(*ForecastUseCase)

func WithForecastCache(c *cache.ForecastCache) ForecastOption {
	return func(u *ForecastUseCase) { u.cache = c }
}

func WithForecastPublisher(p domrepo.ForecastPublisher) ForecastOption {
	return func(u *ForecastUseCase) { u.pub = p }
}

func WithBroadcaster(b Broadcaster) ForecastOption {
	return func(u *ForecastUseCase) { u.hub = b }
}

func WithClock(now func() time.Time) ForecastOption {
	return func(u *ForecastUseCase) { u.now = now }
}

func NewForecastUseCase(pipe Predictor, store domrepo.TransactionStore, metrics domrepo.Metrics, logger *xlogger.Logger, storeType string, opts ...ForecastOption) *ForecastUseCase {
	u := &ForecastUseCase{
		pipe:      pipe,
		store:     store,
		metrics:   metrics,
		logger:    logger,
		storeType: storeType,
		timeout:   10 * time.Second,
		now:       time.Now,
	}
	for _, o := range opts {
		o(u)
	}
	return u
}

// ForecastParams are the caller-supplied forecast inputs. A zero Date means
// tomorrow; a nil YesterdayCash means look it up in the transaction log.
type ForecastParams struct {
	Date          time.Time
	YesterdayCash *float64
}

// Forecast returns the prediction for p.Date.
func (u *ForecastUseCase) Forecast(ctx context.Context, p ForecastParams) (*models.PredictionResult, error) {
	start := u.now()
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	date := p.Date
	if date.IsZero() {
		date = xutil.Tomorrow(start)
	}
	date = xutil.StartOfDay(date)
	day := date.Format(models.DateLayout)

	cash, err := u.yesterdayCash(ctx, date, p.YesterdayCash)
	if err != nil {
		return nil, err
	}

	if u.cache != nil {
		if res, ok := u.cache.Get(ctx, day, cash); ok {
			return res, nil
		}
	}

	res, err := u.pipe.RunPrediction(ctx, date, cash)
	if err != nil {
		u.metrics.RecordError("forecast")
		return nil, err
	}
	u.metrics.RecordForecast(u.storeType, res.TotalChange)
	u.metrics.RecordLatency("forecast", u.now().Sub(start).Seconds())

	if u.cache != nil {
		if err := u.cache.Set(ctx, day, cash, res); err != nil {
			u.logger.Warn("forecast cache set failed", xlogger.String("date", day), xlogger.Error(err))
		}
	}
	u.announce(ctx, cash, res)
	return res, nil
}

// yesterdayCash returns the supplied value or the log's total for the day
// before date. Lookup failures degrade to 0.
func (u *ForecastUseCase) yesterdayCash(ctx context.Context, date time.Time, supplied *float64) (float64, error) {
	if supplied != nil {
		v := *supplied
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: yesterday cash must be a finite non-negative number", domsvc.ErrMalformedInput)
		}
		return v, nil
	}
	if u.store == nil {
		return 0, nil
	}
	prev := xutil.PreviousDay(date)
	v, err := u.store.DailyCashChange(ctx, prev)
	if err != nil {
		u.metrics.RecordError("yesterday_cash")
		u.logger.Warn("yesterday cash lookup failed, using 0",
			xlogger.String("day", prev.Format(models.DateLayout)), xlogger.Error(err))
		return 0, nil
	}
	return v, nil
}

func (u *ForecastUseCase) announce(ctx context.Context, cash float64, res *models.PredictionResult) {
	ev := &models.ForecastEvent{
		ID:          uuid.NewString(),
		GeneratedAt: u.now().UTC(),
		StoreType:   u.storeType,
		Yesterday:   cash,
		Result:      res,
	}
	if u.pub != nil {
		if err := u.pub.PublishForecast(ctx, ev); err != nil {
			u.metrics.RecordError("forecast_publish")
			u.logger.Warn("forecast publish failed", xlogger.String("date", res.Date), xlogger.Error(err))
		}
	}
	if u.hub != nil {
		u.hub.Broadcast(ev)
	}
}

// Checklist returns the notes/coins view of the forecast with a greedy
// split of the predicted total for comparison.
func (u *ForecastUseCase) Checklist(ctx context.Context, p ForecastParams) (*models.Checklist, error) {
	res, err := u.Forecast(ctx, p)
	if err != nil {
		return nil, err
	}
	cl := models.NewChecklist(res)
	ref, rem, err := u.Greedy(int(math.Ceil(res.TotalChange)))
	if err == nil {
		cl.GreedyReference = ref
		cl.GreedyRemainder = rem
	}
	return cl, nil
}

// Greedy splits amount largest-denomination first.
func (u *ForecastUseCase) Greedy(amount int) (models.Inventory, int, error) {
	inv, rem, err := u.pipe.Denominations().Greedy(amount)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domsvc.ErrMalformedInput, err)
	}
	return inv, rem, nil
}

// UnavailablePredictor stands in for a pipeline whose models failed to
// load; every call returns the load error.
type UnavailablePredictor struct {
	Err   error
	Denom models.Denominations
}

func (u UnavailablePredictor) RunPrediction(context.Context, time.Time, float64) (*models.PredictionResult, error) {
	return nil, u.Err
}

func (u UnavailablePredictor) Denominations() models.Denominations { return u.Denom }
