// Package telemetry emits usage and commerce fetch metrics to CloudWatch.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"commercekit/internal/types"
)

// CloudWatchClient abstracts the PutMetricData operation.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchMetrics records account usage and commerce cache outcomes. It
// satisfies account.UsageMetrics and cache.FetchMetrics.
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

// NewCloudWatchMetrics creates a CloudWatchMetrics. An empty namespace uses
// types.MetricNamespace.
func NewCloudWatchMetrics(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchMetrics{client: client, namespace: namespace, logger: logger}
}

func (m *CloudWatchMetrics) RecordUsageTracked(ctx context.Context, tier types.Tier) error {
	return m.put(ctx, types.MetricUsageTracked, 1, dim(types.DimTier, string(tier)))
}

func (m *CloudWatchMetrics) RecordQuotaExhausted(ctx context.Context, tier types.Tier) error {
	return m.put(ctx, types.MetricQuotaExhausted, 1, dim(types.DimTier, string(tier)))
}

// RecordUsageReset records how many counters a bulk reset touched.
func (m *CloudWatchMetrics) RecordUsageReset(ctx context.Context, users int64) error {
	return m.put(ctx, types.MetricUsageReset, float64(users))
}

func (m *CloudWatchMetrics) RecordCacheHit(ctx context.Context, key string) error {
	return m.put(ctx, types.MetricCacheHit, 1, dim(types.DimCacheKey, key))
}

func (m *CloudWatchMetrics) RecordCacheMiss(ctx context.Context, key string) error {
	return m.put(ctx, types.MetricCacheMiss, 1, dim(types.DimCacheKey, key))
}

func (m *CloudWatchMetrics) RecordFetchFailure(ctx context.Context, key, reason string) error {
	return m.put(ctx, types.MetricFetchFailure, 1,
		dim(types.DimCacheKey, key), dim(types.DimReason, reason))
}

func dim(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{Name: aws.String(name), Value: aws.String(value)}
}

func (m *CloudWatchMetrics) put(ctx context.Context, name string, value float64, dims ...cwtypes.Dimension) error {
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{{
			MetricName: aws.String(name),
			Value:      aws.Float64(value),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: dims,
		}},
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.ErrorContext(ctx, "failed to put metric",
			"metric", name, "value", strconv.FormatFloat(value, 'f', -1, 64), "error", err)
		return fmt.Errorf("put metric %s: %w", name, err)
	}
	return nil
}
