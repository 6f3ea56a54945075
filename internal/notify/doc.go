// Package notify delivers user notifications without blocking the caller.
//
// The scheduler and foreground hand notifications to a Dispatcher, which
// queues them on a bounded channel drained by one worker goroutine. When
// the queue is full the notification is dropped and a warning logged, so
// a slow sink can never stall a tick.
//
//	d := notify.NewDispatcher(256, log,
//	    notify.NewLogSink(log),
//	    notify.NewMQTTSink(mqttClient),
//	    notify.NewHubSink(hub),
//	)
//	defer d.Close()
//
//	d.Notify("alice", notify.Notification{Kind: notify.KindAlert, ...})
package notify
