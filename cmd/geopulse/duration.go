package main

import "time"

func durationSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func durationMs(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
