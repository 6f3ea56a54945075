// Package calendar holds household calendar events and the matching rules
// for their device automations.
//
// An action is due when now lies within ±window of its occurrence start
// plus the action offset. DAILY and WEEKLY events recur from Start. The
// Ledger records executed actions per (event, occurrence start) so an
// action fires at most once per occurrence no matter how many ticks fall
// inside the window.
package calendar
