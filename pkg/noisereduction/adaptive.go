package noisereduction

// AdaptiveThresholds derives the voice and noise thresholds from the average
// amplitude of a block. A higher intensity narrows the band that counts as
// voice and widens the band that counts as noise.
func AdaptiveThresholds(
	avgAmplitude float64,
	intensity float64,
) (voiceThreshold, noiseFloor float64) {
	voiceThreshold = avgAmplitude * (1.5 - intensity*0.5)
	noiseFloor = avgAmplitude * (0.3 - intensity*0.2)
	return
}
