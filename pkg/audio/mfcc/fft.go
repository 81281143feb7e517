package mfcc

import "math"

// fft performs an in-place iterative radix-2 FFT.
// re and im must have the same power-of-two length.
func fft(re, im []float64) {
	n := len(re)
	if n <= 1 {
		return
	}

	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			re[i], re[j] = re[j], re[i]
			im[i], im[j] = im[j], im[i]
		}
	}

	for size := 2; size <= n; size <<= 1 {
		half := size >> 1
		step := -2 * math.Pi / float64(size)
		for k := 0; k < half; k++ {
			wr, wi := math.Cos(step*float64(k)), math.Sin(step*float64(k))
			for start := 0; start < n; start += size {
				u := start + k
				v := u + half
				tr := wr*re[v] - wi*im[v]
				ti := wr*im[v] + wi*re[v]
				re[v], im[v] = re[u]-tr, im[u]-ti
				re[u] += tr
				im[u] += ti
			}
		}
	}
}
