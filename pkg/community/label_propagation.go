package community

import "sort"

// neighbor is one adjacency entry of the citation projection, weighted by
// how many parallel edges connect the pair.
type neighbor struct {
	ID        string
	EdgeCount int
}

// labelPropagation clusters the projection with asynchronous label
// propagation: labels are updated in place, so a node sees its earlier
// neighbors' fresh labels within the same sweep. That avoids the two-node
// oscillation of the synchronous variant and, with nodes visited in id order
// and ties broken toward the smallest label, makes the result fully
// deterministic.
func labelPropagation(projection map[string][]neighbor) [][]string {
	if len(projection) == 0 {
		return nil
	}

	ids := make([]string, 0, len(projection))
	for id := range projection {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	labels := make(map[string]int, len(ids))
	for i, id := range ids {
		labels[id] = i
	}

	const maxSweeps = 100
	for sweep := 0; sweep < maxSweeps; sweep++ {
		noChange := true

		for _, id := range ids {
			current := labels[id]

			counts := make(map[int]int)
			for _, nb := range projection[id] {
				if label, ok := labels[nb.ID]; ok {
					counts[label] += nb.EdgeCount
				}
			}
			if len(counts) == 0 {
				continue
			}

			best := current
			bestCount := counts[current]
			for label, count := range counts {
				if count > bestCount || (count == bestCount && label < best) {
					best = label
					bestCount = count
				}
			}

			if best != current {
				labels[id] = best
				noChange = false
			}
		}

		if noChange {
			break
		}
	}

	grouped := make(map[int][]string)
	for _, id := range ids {
		grouped[labels[id]] = append(grouped[labels[id]], id)
	}

	labelOrder := make([]int, 0, len(grouped))
	for label := range grouped {
		labelOrder = append(labelOrder, label)
	}
	sort.Ints(labelOrder)

	var clusters [][]string
	for _, label := range labelOrder {
		cluster := grouped[label]
		// Singletons carry no community-level signal.
		if len(cluster) > 1 {
			sort.Strings(cluster)
			clusters = append(clusters, cluster)
		}
	}
	return clusters
}
