package game

// VoteSkip is the sentinel target for a vote to eject nobody.
const VoteSkip PlayerID = "skip"

// TallyResult is the outcome of counting the votes of one voting phase.
type TallyResult struct {
	// Ejected is empty when nobody is voted out.
	Ejected PlayerID
	Reason  string
	Counts  map[PlayerID]int
}

// TallyVotes counts votes per target, skip included. A player is ejected
// only when they alone hold the highest count; any tie, a winning skip, or
// an empty ballot ejects nobody.
func TallyVotes(votes map[PlayerID]PlayerID) TallyResult {
	counts := make(map[PlayerID]int)
	for _, target := range votes {
		counts[target]++
	}

	result := TallyResult{Counts: counts}

	if len(counts) == 0 {
		result.Reason = "No votes cast."
		return result
	}

	max := 0
	for _, count := range counts {
		if count > max {
			max = count
		}
	}

	var candidates []PlayerID
	for target, count := range counts {
		if count == max {
			candidates = append(candidates, target)
		}
	}

	if len(candidates) > 1 {
		result.Reason = "No one was ejected. (Tie)"
		return result
	}

	if candidates[0] == VoteSkip {
		result.Reason = "No one was ejected. (Skipped)"
		return result
	}

	result.Ejected = candidates[0]
	return result
}
