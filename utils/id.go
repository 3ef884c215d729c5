package utils

import (
	"sync/atomic"
	"time"
)

var lastID atomic.Int64

// GenerateID 生成基于时间戳的单调递增ID
func GenerateID() int64 {
	for {
		now := time.Now().UnixNano()
		last := lastID.Load()
		if now <= last {
			now = last + 1
		}
		if lastID.CompareAndSwap(last, now) {
			return now
		}
	}
}
