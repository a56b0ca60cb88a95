package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metrics publishes application metrics to CloudWatch. A nil client
// turns every method into a no-op for local development.
type Metrics struct {
	namespace string
	client    *cloudwatch.Client
}

// NewMetrics creates a metrics publisher
func NewMetrics(namespace string, client *cloudwatch.Client) *Metrics {
	return &Metrics{
		namespace: namespace,
		client:    client,
	}
}

// Count records a count metric with optional dimensions
func (m *Metrics) Count(ctx context.Context, name string, value float64, dimensions map[string]string) {
	m.put(ctx, name, value, cwtypes.StandardUnitCount, dimensions)
}

// Duration records an operation duration in milliseconds
func (m *Metrics) Duration(ctx context.Context, name string, d time.Duration, dimensions map[string]string) {
	m.put(ctx, name, float64(d.Milliseconds()), cwtypes.StandardUnitMilliseconds, dimensions)
}

// Gauge records a point-in-time value
func (m *Metrics) Gauge(ctx context.Context, name string, value float64, dimensions map[string]string) {
	m.put(ctx, name, value, cwtypes.StandardUnitNone, dimensions)
}

func (m *Metrics) put(ctx context.Context, name string, value float64, unit cwtypes.StandardUnit, dimensions map[string]string) {
	if m.client == nil {
		return
	}

	dims := make([]cwtypes.Dimension, 0, len(dimensions))
	for k, v := range dimensions {
		dims = append(dims, cwtypes.Dimension{
			Name:  aws.String(k),
			Value: aws.String(v),
		})
	}

	datum := cwtypes.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(time.Now()),
	}
	if len(dims) > 0 {
		datum.Dimensions = dims
	}

	// Best effort; metric loss is acceptable, request failure is not
	_, _ = m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{datum},
	})
}
