package optimizer

import "fmt"

// ThresholdSchedule splits the reduction from maxDosePercent down to
// thresholdPercent into steps thresholds. The first entry is the highest and
// the last one is thresholdPercent.
func ThresholdSchedule(maxDosePercent, thresholdPercent float64, steps int) ([]float64, error) {
	if steps < 1 {
		return nil, fmt.Errorf("number of steps must be at least 1, got %d", steps)
	}
	if maxDosePercent <= thresholdPercent {
		return nil, fmt.Errorf("maximum dose %.2f%% is not above the threshold %.2f%%", maxDosePercent, thresholdPercent)
	}

	step := (maxDosePercent - thresholdPercent) / float64(steps)
	schedule := make([]float64, steps)
	for i := range schedule {
		schedule[i] = thresholdPercent + step*float64(steps-1-i)
	}
	return schedule, nil
}
