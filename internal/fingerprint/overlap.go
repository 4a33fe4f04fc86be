package fingerprint

// Match is a test face whose photograph also appears in the train split.
type Match struct {
	TestIndex  int
	TestFace   int
	TrainIndex int
	TrainFace  int
	Distance   int // pHash Hamming distance
}

// FindOverlap returns the closest train face for every test face that has
// one within threshold. Matches are ordered by test index, then face.
func FindOverlap(train, test [][2]FaceHash, threshold int) []Match {
	var matches []Match
	for ti, pair := range test {
		for tf, h := range pair {
			best := Match{Distance: -1}
			for ri, trainPair := range train {
				for rf, candidate := range trainPair {
					if !Similar(h, candidate, threshold) {
						continue
					}
					d := HammingDistance(h.PHash, candidate.PHash)
					if best.Distance < 0 || d < best.Distance {
						best = Match{TestIndex: ti, TestFace: tf, TrainIndex: ri, TrainFace: rf, Distance: d}
					}
				}
			}
			if best.Distance >= 0 {
				matches = append(matches, best)
			}
		}
	}
	return matches
}
