// Package automation is the household automation engine.
//
// A Service owns every resident household and is the only code that
// mutates one. Foreground callers (HTTP handlers, the MQTT command
// handler) and the background scheduler go through the same per-user
// lock and the same accounting path, so usage and energy counters stay
// consistent whichever side switched a device.
//
// # Tick
//
// Once per interval, for every known user:
//
//  1. load the household if it is not resident (outside any lock)
//  2. lock it
//  3. fire due ON timers, then due OFF timers, all at the tick's now
//  4. run calendar actions whose due instant is within the window of now
//     and that have not run for their occurrence; prune stale markers
//  5. evaluate active alerts against the post-timer state
//  6. snapshot if anything changed and unlock
//  7. save the snapshot, then deliver notifications, telemetry, and
//     history
//
// A failure or panic while processing one user is logged and does not
// affect other users. A failed save leaves the household dirty and the
// next tick saves it again.
//
// # Locking
//
// No lock is held across store I/O. Loads are deduplicated with
// singleflight; saves are serialised per user and a snapshot older than
// one already saved is dropped.
//
// # Usage
//
//	svc := automation.New(automation.DefaultConfig(), automation.Deps{
//	    Store:    gateway,
//	    Notifier: dispatcher,
//	    Logger:   log,
//	})
//	if err := svc.Start(ctx); err != nil {
//	    return err
//	}
//	defer svc.Shutdown()
package automation
