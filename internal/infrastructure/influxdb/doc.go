// Package influxdb exports household energy history to InfluxDB.
//
// Every time a device session closes (ON→OFF, rerate, or deletion) a
// point is written to the "energy" measurement, tagged by user, device
// kind, and room. Alert firings go to "alerts". Writes are non-blocking
// and batched by the client library; async failures reach the callback
// set with SetOnError.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without export
//	}
//	defer client.Close()
//
// InfluxDB is an export target only. The SQLite store remains the source
// of truth for counters.
package influxdb
