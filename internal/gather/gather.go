// Package gather implements the batched, parallel metric-gather pipeline
// (C4): one pass over every known database, fanning out monitoring
// queries bounded by a worker pool of 10.
package gather

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/redislabs/cloud-autoscaler/internal/domain"
	"github.com/redislabs/cloud-autoscaler/internal/downscale"
	"github.com/redislabs/cloud-autoscaler/internal/inventory"
	"github.com/redislabs/cloud-autoscaler/internal/optin"
	"github.com/redislabs/cloud-autoscaler/internal/pricing"
	"github.com/redislabs/cloud-autoscaler/internal/provider"
	"github.com/redislabs/cloud-autoscaler/pkg/logger"
)

const maxConcurrentQueries = 10

// Gatherer owns the collaborators needed to assemble one poll's worth of
// database records.
type Gatherer struct {
	inventory  *inventory.Cache
	monitoring provider.MonitoringClient
	catalog    *pricing.Catalog
	advisor    *downscale.Advisor
	registry   *optin.Registry

	thresholds      domain.Thresholds
	displayWindow   time.Duration
	autoscaleWindow time.Duration
}

// Options configures a Gatherer.
type Options struct {
	Thresholds      domain.Thresholds
	DisplayWindow   time.Duration
	AutoscaleWindow time.Duration
}

// New constructs a Gatherer.
func New(inv *inventory.Cache, mon provider.MonitoringClient, catalog *pricing.Catalog, advisor *downscale.Advisor, registry *optin.Registry, opts Options) *Gatherer {
	return &Gatherer{
		inventory:       inv,
		monitoring:      mon,
		catalog:         catalog,
		advisor:         advisor,
		registry:        registry,
		thresholds:      opts.Thresholds,
		displayWindow:   opts.DisplayWindow,
		autoscaleWindow: opts.AutoscaleWindow,
	}
}

// Result is the output of one GatherAll pass.
type Result struct {
	Databases []domain.DatabaseRecord
}

type target struct {
	sub     domain.Subscription
	db      domain.Database
	cluster string
}

// snapshotWindow identifies which of the two parallel sub-snapshots a
// query feeds.
type snapshotWindow int

const (
	windowDisplay snapshotWindow = iota
	windowAutoscale
)

type queryJob struct {
	targetIdx int
	window    snapshotWindow
	field     string
	promql    string
}

// GatherAll implements §4.4. displayWindow overrides the configured
// display window for this pass alone (the ?period= query parameter on
// GET /api/metrics); pass nil to use the configured default.
func (g *Gatherer) GatherAll(ctx context.Context, displayWindow *time.Duration) (*Result, error) {
	window := g.displayWindow
	if displayWindow != nil {
		window = *displayWindow
	}

	subs, err := g.inventory.Subscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("gather subscriptions: %w", err)
	}

	var targets []target
	for _, sub := range subs {
		dbs, err := g.inventory.Databases(ctx, sub.ID)
		if err != nil {
			return nil, fmt.Errorf("gather databases for subscription %s: %w", sub.ID, err)
		}
		for _, db := range dbs {
			if db.ActiveActive {
				continue
			}
			targets = append(targets, target{sub: sub, db: db, cluster: db.ClusterLabel()})
		}
	}

	jobs := g.buildQueryPlan(targets, window)
	values := g.runQueryPlan(ctx, targets, jobs)
	sets := assembleMetricSets(targets, jobs, values)

	records := make([]domain.DatabaseRecord, len(targets))
	for i, t := range targets {
		records[i] = func() (rec domain.DatabaseRecord) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("record assembly failed, using skeleton record", fmt.Errorf("%v", r), map[string]interface{}{
						"database_id": t.db.ID,
					})
					rec = domain.SkeletonRecord(t.sub.ID, t.db.ID, t.db.Name)
				}
			}()
			return g.assembleRecord(ctx, t, sets[i].display, sets[i].autoscale)
		}()
	}

	return &Result{Databases: records}, nil
}

// buildQueryPlan emits, for every (database, window) pair, the four
// max_over_time queries plus the ingress/egress pair described in §4.4
// step 3 (range queries over the display window, instantaneous over the
// autoscale window).
func (g *Gatherer) buildQueryPlan(targets []target, displayWindow time.Duration) []queryJob {
	var jobs []queryJob
	for i, t := range targets {
		for _, w := range []snapshotWindow{windowDisplay, windowAutoscale} {
			d := g.windowDuration(w, displayWindow)
			jobs = append(jobs,
				queryJob{targetIdx: i, window: w, field: "throughput", promql: rangeQuery("bdb_total_req_max", t.db.ID, d)},
				queryJob{targetIdx: i, window: w, field: "memory", promql: rangeQuery("bdb_used_memory", t.db.ID, d)},
				queryJob{targetIdx: i, window: w, field: "cpu", promql: rangeQuery("bdb_shard_cpu_user_max", t.db.ID, d)},
				queryJob{targetIdx: i, window: w, field: "latency", promql: rangeQuery("bdb_avg_latency_max", t.db.ID, d)},
			)
		}
		jobs = append(jobs,
			queryJob{targetIdx: i, window: windowDisplay, field: "ingress", promql: rangeQuery("bdb_ingress_bytes_max", t.db.ID, displayWindow)},
			queryJob{targetIdx: i, window: windowDisplay, field: "egress", promql: rangeQuery("bdb_egress_bytes_max", t.db.ID, displayWindow)},
			queryJob{targetIdx: i, window: windowAutoscale, field: "ingress", promql: instantQuery("bdb_ingress_bytes_max", t.db.ID)},
			queryJob{targetIdx: i, window: windowAutoscale, field: "egress", promql: instantQuery("bdb_egress_bytes_max", t.db.ID)},
		)
	}
	return jobs
}

func (g *Gatherer) windowDuration(w snapshotWindow, displayWindow time.Duration) time.Duration {
	if w == windowDisplay {
		return displayWindow
	}
	return g.autoscaleWindow
}

func rangeQuery(metric, bdb string, window time.Duration) string {
	return fmt.Sprintf("max_over_time(%s{bdb=\"%s\"}[%s])", metric, bdb, promDuration(window))
}

func instantQuery(metric, bdb string) string {
	return fmt.Sprintf("%s{bdb=\"%s\"}", metric, bdb)
}

// runQueryPlan executes the query plan concurrently, bounded by a worker
// pool of maxConcurrentQueries, via golang.org/x/sync/errgroup. Individual
// query failures degrade to a nil value and never abort the batch.
func (g *Gatherer) runQueryPlan(ctx context.Context, targets []target, jobs []queryJob) []*float64 {
	values := make([]*float64, len(jobs))

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrentQueries)

	for i, job := range jobs {
		i, job := i, job
		group.Go(func() error {
			t := targets[job.targetIdx]
			v, err := g.monitoring.Query(gctx, job.promql, t.db.ID, t.cluster)
			if err != nil {
				logger.Warn("monitoring query failed, degrading to null", map[string]interface{}{
					"database_id": t.db.ID,
					"field":       job.field,
					"error":       err.Error(),
				})
				return nil
			}
			values[i] = v
			return nil
		})
	}
	_ = group.Wait()

	return values
}

type windowedSets struct {
	display   domain.MetricSet
	autoscale domain.MetricSet
}

func assembleMetricSets(targets []target, jobs []queryJob, values []*float64) []windowedSets {
	result := make([]windowedSets, len(targets))
	ingress := map[snapshotWindow]map[int]*float64{windowDisplay: {}, windowAutoscale: {}}
	egress := map[snapshotWindow]map[int]*float64{windowDisplay: {}, windowAutoscale: {}}

	for i, job := range jobs {
		v := values[i]
		set := &result[job.targetIdx].display
		if job.window == windowAutoscale {
			set = &result[job.targetIdx].autoscale
		}
		switch job.field {
		case "throughput":
			set.ThroughputOps = v
		case "memory":
			set.UsedMemoryBytes = v
		case "cpu":
			set.CPUPercent = v
		case "latency":
			set.LatencyMs = v
		case "ingress":
			ingress[job.window][job.targetIdx] = v
		case "egress":
			egress[job.window][job.targetIdx] = v
		}
	}

	for i := range targets {
		result[i].display.DerivePayloadSize(ingress[windowDisplay][i], egress[windowDisplay][i])
		result[i].autoscale.DerivePayloadSize(ingress[windowAutoscale][i], egress[windowAutoscale][i])
	}

	return result
}

func (g *Gatherer) assembleRecord(ctx context.Context, t target, display, autoscale domain.MetricSet) domain.DatabaseRecord {
	envelope := domain.EnvelopeFor(t.db.Shape)
	displayOk := domain.EvaluateOkFlags(display, g.thresholds, t.db.Shape)
	autoscaleOk := domain.EvaluateOkFlags(autoscale, g.thresholds, t.db.Shape)

	record := domain.DatabaseRecord{
		SubscriptionID: t.sub.ID,
		DatabaseID:     t.db.ID,
		Name:           t.db.Name,
		Region:         t.db.Region,
		Status:         t.db.Status,
		Display:        display,
		Autoscale:      autoscale,
		DisplayOk:      displayOk,
		AutoscaleOk:    autoscaleOk,
		Envelope:       envelope,
		Shape:          t.db.Shape,
		ScalingStatus:  string(g.registry.GetStatus(t.db.ID)),
		OptedIn:        g.registry.IsEnabled(t.sub.ID, t.db.ID),
	}

	record.HourlyPrice = pricing.SubscriptionHourlyPrice(t.sub.Pricing, t.db.Name, t.db.Shape.Shards)
	record.MinimumPrice = pricing.SubscriptionMinimumPrice(t.sub.Pricing)

	if displayOk.AllOk() {
		rec, err := g.advisor.Recommend(ctx, t.db, display, t.db.Shape.Replication, t.sub.CloudProvider)
		if err != nil {
			logger.Warn("downscale recommendation failed", map[string]interface{}{
				"database_id": t.db.ID,
				"error":       err.Error(),
			})
		} else {
			record.Downscale = rec
		}
	}

	return record
}

func promDuration(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%dh", int64(d/time.Hour))
	}
	if d%time.Minute == 0 {
		return fmt.Sprintf("%dm", int64(d/time.Minute))
	}
	return fmt.Sprintf("%ds", int64(d/time.Second))
}
