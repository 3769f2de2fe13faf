package util

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

// Deadline is the subset of net.Conn and net.TCPListener needed to interrupt
// blocking I/O.
type Deadline interface {
	SetDeadline(t time.Time) error
}

// SetDeadlineWithContext expires d when ctx is canceled, unblocking any
// goroutine parked in a blocking read or write on it.
func SetDeadlineWithContext(ctx context.Context, d Deadline, tag string) {
	go func() {
		<-ctx.Done()

		log.Debugf("[util.SetDeadlineWithContext] %s expiring", tag)

		if err := d.SetDeadline(time.Now()); err != nil {
			log.Errorf("[util.SetDeadlineWithContext] %s expire failed. %+v", tag, err)
		}
	}()
}
