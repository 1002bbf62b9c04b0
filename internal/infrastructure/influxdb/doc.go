// Package influxdb provides optional telemetry export for the touchlink agent.
//
// This package manages:
//   - Connection to an InfluxDB v2 server with token authentication
//   - Non-blocking, batched writes of agent counter snapshots
//   - Async write error reporting via callback
//   - Connection health monitoring
//
// Telemetry is strictly optional: the agent behaves identically when
// influxdb.enabled is false, falling back to periodic log lines for its
// counters. Only current counter snapshots are written; the agent keeps
// no event history.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.SetOnError(func(err error) {
//	    log.Error("influxdb write error", "error", err)
//	})
//
//	client.WriteAgentMetrics("kitchen-lamp", snapshot.Fields())
package influxdb
