package encoder

// meanPool averages hidden states over positions where mask is 1.
//
// hidden: flat [batchSize * seqLen * dim]
// mask:   flat [batchSize * seqLen]
//
// Returns flat [batchSize * dim]. A sample with no unmasked positions pools
// to zeros.
func meanPool(hidden []float32, mask []int64, batchSize, seqLen, dim int64) []float32 {
	out := make([]float32, batchSize*dim)
	for b := range batchSize {
		acc := out[b*dim : (b+1)*dim]
		var count float32
		for s := range seqLen {
			if mask[b*seqLen+s] != 1 {
				continue
			}
			count++
			tok := hidden[(b*seqLen+s)*dim : (b*seqLen+s+1)*dim]
			for d, v := range tok {
				acc[d] += v
			}
		}
		if count == 0 {
			continue
		}
		for d := range acc {
			acc[d] /= count
		}
	}
	return out
}
