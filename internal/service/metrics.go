package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/freeeve/race-to-moscow/internal/service"

// counters holds the session service instruments. A nil instrument is skipped.
type counters struct {
	operations metric.Int64Counter
	finished   metric.Int64Counter
	cacheMiss  metric.Int64Counter
}

// newCounters creates the instruments on mp. Instruments that fail are left
// nil and the failures are joined into the returned error.
func newCounters(mp metric.MeterProvider) (*counters, error) {
	m := mp.Meter(instrumentationName)
	c := &counters{}
	var errs []error
	var err error
	if c.operations, err = m.Int64Counter("campaign.operations",
		metric.WithDescription("Campaign operations applied, by op and outcome")); err != nil {
		errs = append(errs, fmt.Errorf("campaign.operations: %w", err))
	}
	if c.finished, err = m.Int64Counter("campaign.finished",
		metric.WithDescription("Campaigns that reached victory or defeat")); err != nil {
		errs = append(errs, fmt.Errorf("campaign.finished: %w", err))
	}
	if c.cacheMiss, err = m.Int64Counter("campaign.cache_misses",
		metric.WithDescription("State loads that fell back to the snapshot store")); err != nil {
		errs = append(errs, fmt.Errorf("campaign.cache_misses: %w", err))
	}
	return c, errors.Join(errs...)
}

func (c *counters) operation(ctx context.Context, op, outcome string) {
	if c.operations == nil {
		return
	}
	c.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	))
}

func (c *counters) campaignFinished(ctx context.Context, status string) {
	if c.finished == nil {
		return
	}
	c.finished.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func (c *counters) missedCache(ctx context.Context) {
	if c.cacheMiss == nil {
		return
	}
	c.cacheMiss.Add(ctx, 1)
}
