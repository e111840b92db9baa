//go:build !linux

package hostclock

// Now — время хоста через time.Now на не-Linux.
func Now() int64 {
	return FromGoTime()
}

// GranularityNs — заглушка на не-Linux.
func GranularityNs() int64 {
	return 0
}

// Resolution — заглушка на не-Linux.
func Resolution() int64 {
	return 0
}
