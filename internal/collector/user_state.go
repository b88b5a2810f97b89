package collector

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/tekradar/userstate/internal/userstate"
)

// StateReader is the read side of userstate.Store used by the collector.
type StateReader interface {
	GetStartDate(ctx context.Context) (time.Time, error)
	GetDaysOfUse(ctx context.Context) (int, error)
	GetLastUpdateDate(ctx context.Context, kind userstate.TermsType) (time.Time, error)
	IsAllAgreed(ctx context.Context) (bool, error)
	GetLastProcessedTimestamps(ctx context.Context) (map[string]int64, error)
}

// UserStateCollector reports usage, agreement and region checkpoint state.
type UserStateCollector struct {
	state   StateReader
	enabled bool
	mu      sync.RWMutex
	logger  *logrus.Entry

	startDate        *prometheus.Desc
	daysOfUse        *prometheus.Desc
	termsLastUpdate  *prometheus.Desc
	allAgreed        *prometheus.Desc
	regionCheckpoint *prometheus.Desc

	scrapeDuration *prometheus.Desc
	scrapeErrors   *prometheus.Desc

	observations userStateObservations
}

type userStateObservations struct {
	ready            bool
	startDate        float64
	daysOfUse        float64
	termsLastUpdate  []labeledGauge
	allAgreed        float64
	regionCheckpoint []labeledGauge
	scrapeDuration   float64
	scrapeErrors     float64
}

type labeledGauge struct {
	labels []string
	value  float64
}

// NewUserStateCollector creates a collector reading from state.
func NewUserStateCollector(state StateReader, enabled bool, logger *logrus.Entry) *UserStateCollector {
	return &UserStateCollector{
		state:   state,
		enabled: enabled,
		logger:  logger.WithField("collector", "user_state"),

		startDate: prometheus.NewDesc(
			"userstate_start_date_timestamp_seconds",
			"When the app was first used, as a Unix timestamp.",
			nil, nil,
		),
		daysOfUse: prometheus.NewDesc(
			"userstate_days_of_use",
			"Whole days since the app was first used.",
			nil, nil,
		),
		termsLastUpdate: prometheus.NewDesc(
			"userstate_terms_last_update_timestamp_seconds",
			"When the user last agreed to the document, as a Unix timestamp; 0 if never.",
			[]string{"terms_type"}, nil,
		),
		allAgreed: prometheus.NewDesc(
			"userstate_terms_all_agreed",
			"Whether an agreement is recorded for every document (1) or not (0).",
			nil, nil,
		),
		regionCheckpoint: prometheus.NewDesc(
			"userstate_region_last_processed_timestamp",
			"Timestamp of the last processed exposure key batch for the region.",
			[]string{"region"}, nil,
		),

		scrapeDuration: prometheus.NewDesc(
			"userstate_scrape_duration_seconds",
			"Time taken by the collector run.",
			[]string{"collector_type"}, nil,
		),
		scrapeErrors: prometheus.NewDesc(
			"userstate_scrape_errors_total",
			"Total number of collector run errors.",
			[]string{"collector_type"}, nil,
		),
	}
}

func (c *UserStateCollector) Name() string  { return "user_state" }
func (c *UserStateCollector) Enabled() bool { return c.enabled }

// Describe implements prometheus.Collector.
func (c *UserStateCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.startDate
	ch <- c.daysOfUse
	ch <- c.termsLastUpdate
	ch <- c.allAgreed
	ch <- c.regionCheckpoint
	ch <- c.scrapeDuration
	ch <- c.scrapeErrors
}

// Collect implements prometheus.Collector. State gauges are only sent once a
// run has succeeded.
func (c *UserStateCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	obs := c.observations
	c.mu.RUnlock()

	if obs.ready {
		ch <- prometheus.MustNewConstMetric(c.startDate, prometheus.GaugeValue, obs.startDate)
		ch <- prometheus.MustNewConstMetric(c.daysOfUse, prometheus.GaugeValue, obs.daysOfUse)
		for _, g := range obs.termsLastUpdate {
			ch <- prometheus.MustNewConstMetric(c.termsLastUpdate, prometheus.GaugeValue, g.value, g.labels...)
		}
		ch <- prometheus.MustNewConstMetric(c.allAgreed, prometheus.GaugeValue, obs.allAgreed)
		for _, g := range obs.regionCheckpoint {
			ch <- prometheus.MustNewConstMetric(c.regionCheckpoint, prometheus.GaugeValue, g.value, g.labels...)
		}
	}

	ch <- prometheus.MustNewConstMetric(c.scrapeDuration, prometheus.GaugeValue, obs.scrapeDuration, "user_state")
	ch <- prometheus.MustNewConstMetric(c.scrapeErrors, prometheus.CounterValue, obs.scrapeErrors, "user_state")
}

// Run performs one collection cycle. On error the previous observations are
// kept and the error counter is incremented.
func (c *UserStateCollector) Run(ctx context.Context) error {
	start := time.Now()

	next, err := c.observe(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.observations.scrapeErrors++
		c.observations.scrapeDuration = time.Since(start).Seconds()
		c.logger.WithError(err).Warn("failed to read user state")
		return err
	}
	next.scrapeErrors = c.observations.scrapeErrors
	next.scrapeDuration = time.Since(start).Seconds()
	c.observations = next
	return nil
}

func (c *UserStateCollector) observe(ctx context.Context) (userStateObservations, error) {
	var obs userStateObservations

	startDate, err := c.state.GetStartDate(ctx)
	if err != nil {
		return obs, err
	}
	obs.startDate = float64(startDate.Unix())

	days, err := c.state.GetDaysOfUse(ctx)
	if err != nil {
		return obs, err
	}
	obs.daysOfUse = float64(days)

	for _, kind := range userstate.TermsTypes() {
		t, err := c.state.GetLastUpdateDate(ctx, kind)
		if err != nil {
			return obs, err
		}
		var v float64
		if !t.IsZero() {
			v = float64(t.Unix())
		}
		obs.termsLastUpdate = append(obs.termsLastUpdate, labeledGauge{labels: []string{kind.String()}, value: v})
	}

	agreed, err := c.state.IsAllAgreed(ctx)
	if err != nil {
		return obs, err
	}
	if agreed {
		obs.allAgreed = 1
	}

	checkpoints, err := c.state.GetLastProcessedTimestamps(ctx)
	if err != nil {
		return obs, err
	}
	regions := make([]string, 0, len(checkpoints))
	for r := range checkpoints {
		regions = append(regions, r)
	}
	sort.Strings(regions)
	for _, r := range regions {
		obs.regionCheckpoint = append(obs.regionCheckpoint, labeledGauge{labels: []string{r}, value: float64(checkpoints[r])})
	}

	obs.ready = true
	return obs, nil
}
