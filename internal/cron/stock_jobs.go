package cron

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/evacurves/store-backend/internal/inventory"
	"github.com/evacurves/store-backend/pkg/logger"
)

type txRunner interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockGauges interface {
	SetStockDrift(n int)
	SetLowStockEntries(n int)
}

type stockRecomputer interface {
	RecomputeAll(ctx context.Context, runner txRunner) ([]inventory.Drift, error)
}

type recomputeAdapter struct{ agg *inventory.Aggregator }

func (a recomputeAdapter) RecomputeAll(ctx context.Context, runner txRunner) ([]inventory.Drift, error) {
	return a.agg.RecomputeAll(ctx, runner)
}

// StockReconcileJobParams configure the stock reconcile job.
type StockReconcileJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Metrics    stockGauges
	Recomputer stockRecomputer
}

// NewStockReconcileJob builds the job that rewrites every product's aggregate
// stock from its ledger and reports the products that had drifted.
func NewStockReconcileJob(params StockReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	recomputer := params.Recomputer
	if recomputer == nil {
		recomputer = recomputeAdapter{agg: inventory.NewAggregator()}
	}
	return &stockReconcileJob{
		logg:       params.Logger,
		db:         params.DB,
		metrics:    params.Metrics,
		recomputer: recomputer,
	}, nil
}

type stockReconcileJob struct {
	logg       *logger.Logger
	db         txRunner
	metrics    stockGauges
	recomputer stockRecomputer
}

func (j *stockReconcileJob) Name() string { return "stock-reconcile" }

func (j *stockReconcileJob) Run(ctx context.Context) error {
	drifts, err := j.recomputer.RecomputeAll(ctx, j.db)
	for _, d := range drifts {
		driftCtx := j.logg.WithProductID(ctx, d.ProductID.String())
		driftCtx = j.logg.WithFields(driftCtx, map[string]any{"stored": d.Stored, "ledger": d.Ledger})
		j.logg.Warn(driftCtx, "product stock drift corrected")
	}
	if j.metrics != nil {
		j.metrics.SetStockDrift(len(drifts))
	}
	if err != nil {
		return fmt.Errorf("reconcile stock: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "drifted", len(drifts)), "stock reconcile finished")
	return nil
}

type lowStockLister interface {
	ListLowStock(ctx context.Context) ([]inventory.EntryView, error)
}

// LowStockReportJobParams configure the low-stock report job.
type LowStockReportJobParams struct {
	Logger  *logger.Logger
	Ledger  lowStockLister
	Metrics stockGauges
}

// NewLowStockReportJob builds the job that logs low-stock variants and
// publishes their count.
func NewLowStockReportJob(params LowStockReportJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	return &lowStockReportJob{logg: params.Logger, ledger: params.Ledger, metrics: params.Metrics}, nil
}

type lowStockReportJob struct {
	logg    *logger.Logger
	ledger  lowStockLister
	metrics stockGauges
}

func (j *lowStockReportJob) Name() string { return "low-stock-report" }

func (j *lowStockReportJob) Run(ctx context.Context) error {
	rows, err := j.ledger.ListLowStock(ctx)
	if err != nil {
		return fmt.Errorf("list low stock: %w", err)
	}
	for _, row := range rows {
		rowCtx := j.logg.WithProductID(ctx, row.ProductID.String())
		rowCtx = j.logg.WithFields(rowCtx, map[string]any{
			"size":      row.Size,
			"color":     row.Color,
			"quantity":  row.Quantity,
			"threshold": row.LowStockThreshold,
		})
		j.logg.Warn(rowCtx, "variant low on stock")
	}
	if j.metrics != nil {
		j.metrics.SetLowStockEntries(len(rows))
	}
	j.logg.Info(j.logg.WithField(ctx, "low_stock", len(rows)), "low stock report finished")
	return nil
}
