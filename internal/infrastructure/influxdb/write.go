package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteAgentMetrics writes one snapshot of agent counters to InfluxDB.
//
// The write is non-blocking; data is batched and sent asynchronously.
// The device name tags the point so a fleet shares one bucket.
//
// Parameters:
//   - device: Human-readable device name (config device.name, low cardinality)
//   - fields: Counter values (messages_sent, messages_received, ...)
//
// Example:
//
//	client.WriteAgentMetrics("kitchen-lamp", map[string]interface{}{
//	    "messages_sent":     42,
//	    "messages_received": 17,
//	})
func (c *Client) WriteAgentMetrics(device string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"agent_metrics",
		map[string]string{
			"device": device,
		},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
