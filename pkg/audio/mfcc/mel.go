package mfcc

import "math"

// hannWindow generates a periodic Hann window of the given length.
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// hzToMel converts frequency in Hz to the HTK mel scale.
func hzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// melToHz converts an HTK mel value back to Hz.
func melToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// melFilterBank creates the triangular mel filterbank.
// Returns [numMels][halfFFT] where halfFFT = fftSize/2 + 1.
func melFilterBank(numMels, fftSize, sampleRate int, lowFreq, highFreq float64) [][]float64 {
	halfFFT := fftSize/2 + 1
	lowMel := hzToMel(lowFreq)
	highMel := hzToMel(highFreq)

	// numMels + 2 equally spaced mel points
	step := (highMel - lowMel) / float64(numMels+1)
	bins := make([]int, numMels+2)
	for i := range bins {
		hz := melToHz(lowMel + float64(i)*step)
		bin := int(math.Floor(hz * float64(fftSize) / float64(sampleRate)))
		if bin >= halfFFT {
			bin = halfFFT - 1
		}
		bins[i] = bin
	}

	// Dense low-frequency bands collapse onto one FFT bin; give every
	// filter at least one bin of width.
	for i := 1; i < len(bins); i++ {
		if bins[i] <= bins[i-1] {
			bins[i] = bins[i-1] + 1
		}
	}

	bank := make([][]float64, numMels)
	for m := 0; m < numMels; m++ {
		filter := make([]float64, halfFFT)
		left, center, right := bins[m], bins[m+1], bins[m+2]

		for k := left; k < center && k < halfFFT; k++ {
			filter[k] = float64(k-left) / float64(center-left)
		}
		for k := center; k <= right && k < halfFFT; k++ {
			filter[k] = float64(right-k) / float64(right-center)
		}
		bank[m] = filter
	}
	return bank
}

// dctMatrix returns the first numCoeffs rows of the orthonormal DCT-II basis
// of size n.
func dctMatrix(numCoeffs, n int) [][]float64 {
	basis := make([][]float64, numCoeffs)
	scale0 := math.Sqrt(1 / float64(n))
	scale := math.Sqrt(2 / float64(n))
	for k := range basis {
		row := make([]float64, n)
		s := scale
		if k == 0 {
			s = scale0
		}
		for m := range row {
			row[m] = s * math.Cos(math.Pi*float64(k)*(2*float64(m)+1)/(2*float64(n)))
		}
		basis[k] = row
	}
	return basis
}
