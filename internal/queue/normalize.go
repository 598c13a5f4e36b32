package queue

// Normalizer collapses the legacy/rotating content group into its
// synthetic id before counters are touched. The matcher reports the full
// member list when someone queues for the rotating bundle; counting each
// member separately would multiply one queue entry by the group size.
type Normalizer struct {
	group       map[string]struct{}
	syntheticID string
}

// NewNormalizer builds a Normalizer for the given group. An empty group
// disables normalization.
func NewNormalizer(groupIDs []string, syntheticID string) *Normalizer {
	group := make(map[string]struct{}, len(groupIDs))
	for _, id := range groupIDs {
		group[id] = struct{}{}
	}
	return &Normalizer{group: group, syntheticID: syntheticID}
}

// Normalize rewrites instances: when it contains every member of the
// group, the members are removed and the synthetic id is appended once.
// Ids outside the group pass through verbatim, in order. The function is
// pure and idempotent; inputs that are not a superset of the group are
// returned unchanged.
func (n *Normalizer) Normalize(instances []string) []string {
	if len(n.group) == 0 {
		return instances
	}

	present := make(map[string]struct{}, len(instances))
	for _, id := range instances {
		present[id] = struct{}{}
	}
	for member := range n.group {
		if _, ok := present[member]; !ok {
			return instances
		}
	}

	out := make([]string, 0, len(instances)-len(n.group)+1)
	hasSynthetic := false
	for _, id := range instances {
		if _, ok := n.group[id]; ok {
			continue
		}
		if id == n.syntheticID {
			hasSynthetic = true
		}
		out = append(out, id)
	}
	if !hasSynthetic {
		out = append(out, n.syntheticID)
	}
	return out
}
