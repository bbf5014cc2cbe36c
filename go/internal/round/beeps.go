package round

import (
	"sort"
	"time"
)

// GenerateBeepTimes draws the duel beep offsets from session start.
//
// Offsets are drawn uniformly in [Margin, duration-Margin], sorted, and
// accepted only when consecutive offsets are at least MinGap apart. After
// MaxAttempts rejected draws the evenly spaced fallback is returned.
func GenerateBeepTimes(rng Rand, sched BeepSchedule, duration time.Duration) []time.Duration {
	if sched.Count <= 0 {
		return nil
	}

	lo := sched.Margin
	hi := duration - sched.Margin
	span := hi - lo
	feasible := span > 0 && time.Duration(sched.Count-1)*sched.MinGap <= span

	if feasible {
		for attempt := 0; attempt < sched.MaxAttempts; attempt++ {
			times := make([]time.Duration, sched.Count)
			for i := range times {
				times[i] = lo + time.Duration(rng.Float64()*float64(span))
			}
			sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

			if gapsAtLeast(times, sched.MinGap) {
				return times
			}
		}
	}

	return evenBeepTimes(sched.Count, duration)
}

// evenBeepTimes spaces count beeps evenly inside the session, 5/10/15/20/25s
// for five beeps in 30s.
func evenBeepTimes(count int, duration time.Duration) []time.Duration {
	times := make([]time.Duration, count)
	for i := range times {
		times[i] = duration * time.Duration(i+1) / time.Duration(count+1)
	}
	return times
}

func gapsAtLeast(sorted []time.Duration, gap time.Duration) bool {
	for i := 1; i < len(sorted); i++ {
		if sorted[i]-sorted[i-1] < gap {
			return false
		}
	}
	return true
}
