package search

const (
	// 步行速度2.8英里/小时
	WalkFeetPerHour = 14784.0
	// 线路缺省速度，千英尺/小时
	DefaultRouteKFeetPerHour = 50.0
)

// WalkingTimeDelta is the time in hours needed to cover distance feet.
func WalkingTimeDelta(distance, walkSpeed float64) float64 {
	return distance / walkSpeed
}

// WalkableDistance is the distance in feet covered within time hours.
func WalkableDistance(time, walkSpeed float64) float64 {
	return time * walkSpeed
}

// TransitWaitDelta is the average wait for a trip, half of its headway.
// ok is false for a trip that does not operate.
func TransitWaitDelta(tripsPerHour float64) (wait float64, ok bool) {
	if tripsPerHour <= 0 {
		return 0, false
	}
	return 1 / (2 * tripsPerHour), true
}
