package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm/schema"

	"tangle/internal/core"
)

var tableCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "tangle_table_estimated_count",
	Help: "Estimated record count for a table.",
}, []string{"table"})

type Collector struct {
	Logger *slog.Logger
	DB     core.DB
}

func (c *Collector) Init(_ context.Context) error {
	c.Logger = c.Logger.With("component", "metrics.Collector")
	return nil
}

func (c *Collector) Run(ctx context.Context) error {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for _, model := range []schema.Tabler{core.User{}, core.Post{}, core.Follow{}, core.Like{}} {
				if err := c.collectEstimatedCount(model); err != nil {
					c.Logger.Error("collecting table count failed", "table", model.TableName(), "error", err)
				}
			}
		}
	}
}

func (c *Collector) collectEstimatedCount(tabler schema.Tabler) error {
	count, err := c.DB.EstimatedCount(tabler.TableName())
	if err != nil {
		return err
	}

	tableCount.WithLabelValues(tabler.TableName()).Set(float64(count))
	return nil
}
