package models

import "time"

// Occurrences expands the event into the dates falling inside [from, to],
// stopping at the rule's until date and after max results. Monthly steps add
// calendar months to the first date, so the 31st rolls over in short months.
func (e *Event) Occurrences(from, to time.Time, max int) []time.Time {
	if max <= 0 {
		return nil
	}

	if !e.Recurrence.IsSet() {
		if e.Date.Before(from) || e.Date.After(to) {
			return nil
		}
		return []time.Time{e.Date.UTC()}
	}

	end := to
	if e.Recurrence.Until != nil && e.Recurrence.Until.Before(end) {
		end = *e.Recurrence.Until
	}
	// Step on the stored UTC calendar day whatever zone the driver returned.
	start := e.Date.UTC()

	interval := e.Recurrence.Interval
	if interval < 1 {
		interval = 1
	}

	var out []time.Time
	for k := e.Recurrence.firstStep(start, from, interval); len(out) < max; k++ {
		d := e.Recurrence.step(start, k*interval)
		if d.After(end) {
			break
		}
		if !d.Before(from) {
			out = append(out, d)
		}
	}
	return out
}

// OccursBetween reports whether any occurrence falls inside [from, to].
func (e *Event) OccursBetween(from, to time.Time) bool {
	return len(e.Occurrences(from, to, 1)) > 0
}

// firstStep returns the index of a step at or just before from, so
// expansion does not walk every step between the first date and from.
func (r Recurrence) firstStep(start, from time.Time, interval int) int {
	if !from.After(start) {
		return 0
	}
	var units int64
	switch r.Frequency {
	case FrequencyWeekly:
		units = (from.Unix() - start.Unix()) / (7 * 86400)
	case FrequencyMonthly:
		from = from.UTC()
		units = int64(from.Year()-start.Year())*12 + int64(from.Month()-start.Month())
	default:
		units = (from.Unix() - start.Unix()) / 86400
	}
	// One step back covers month-end rollover.
	k := units/int64(interval) - 1
	if k < 0 {
		return 0
	}
	return int(k)
}

func (r Recurrence) step(start time.Time, n int) time.Time {
	switch r.Frequency {
	case FrequencyWeekly:
		return start.AddDate(0, 0, 7*n)
	case FrequencyMonthly:
		return start.AddDate(0, n, 0)
	default:
		return start.AddDate(0, 0, n)
	}
}
