package round

// PickSlots chooses up to count distinct slots from [0, total) that are not in
// excluded. Fewer are returned when not enough free slots remain. The result
// is in draw order; it is deterministic for a seeded rng.
func PickSlots[V any](rng Rand, total, count int, excluded map[SlotID]V) []SlotID {
	if count <= 0 || total <= 0 {
		return nil
	}

	free := make([]SlotID, 0, total)
	for i := 0; i < total; i++ {
		if _, taken := excluded[SlotID(i)]; !taken {
			free = append(free, SlotID(i))
		}
	}
	if count > len(free) {
		count = len(free)
	}

	// Partial Fisher-Yates: the first count entries become the sample.
	for i := 0; i < count; i++ {
		j := i + rng.IntN(len(free)-i)
		free[i], free[j] = free[j], free[i]
	}
	return free[:count]
}
