package clock

import (
	"sync"
	"time"
)

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) *Timer {
	timer := time.AfterFunc(d, f)
	return &Timer{stopFunc: timer.Stop}
}

func (realClock) TickFunc(d time.Duration, f func()) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for TickFunc")
	}

	ticker := time.NewTicker(d)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		for {
			select {
			case <-ticker.C:
				select {
				case <-done:
					return
				default:
				}
				f()
			case <-done:
				return
			}
		}
	}()

	return &Ticker{
		stopFunc: func() {
			once.Do(func() {
				ticker.Stop()
				close(done)
			})
		},
	}
}
