// Package device models household appliances and their energy accounting.
//
// A Device belongs to exactly one household and is addressed by its Key,
// the pair (kind, room). Its power state changes only through
// OnStateChange, which is shared by manual toggles, timers, and calendar
// automations so usage and energy are counted identically on every path:
//
//	OFF→ON   LastOnAt = now
//	ON→OFF   UsageMinutes += elapsed
//	         EnergyKWh    += watts/1000 × elapsed/60
//	same     no-op
//
// CurrentUsageMinutes and CurrentEnergyKWh add the running session on top
// of the stored counters without mutating the device. Alert evaluation and
// reporting use them so a device that is still on is measured correctly.
package device
