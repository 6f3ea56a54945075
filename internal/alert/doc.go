// Package alert defines household alerts and how they are evaluated.
//
// Two predicates are supported:
//
//   - TIME_BASED fires once now reaches TriggerAt.
//   - ENERGY_USAGE fires while the target device's session-inclusive energy
//     satisfies Comparator against ThresholdKWh.
//
// Alerts auto-delete after their first firing unless created with
// Options.KeepAfterTrigger. The package holds no state of its own; the
// owning household aggregate stores alerts and the scheduler drives
// Evaluate and Fire.
package alert
