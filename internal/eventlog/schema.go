package eventlog

import "fmt"

// Redis key pattern helpers
//
// Keys and channels are namespaced by instance name so several simulations
// can share one Redis server.
//
// Key pattern: vigil:{instance_name}:{entity}

// EventsKey returns the Redis list holding persisted event lines.
// Pattern: vigil:{instance_name}:events
func EventsKey(instanceName string) string {
	return fmt.Sprintf("vigil:%s:events", instanceName)
}

// EventStreamChannel returns the Pub/Sub channel each persisted line is published on.
// Pattern: vigil:{instance_name}:event_stream
func EventStreamChannel(instanceName string) string {
	return fmt.Sprintf("vigil:%s:event_stream", instanceName)
}
