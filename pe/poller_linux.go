//go:build linux

package pe

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// poller is a thin epoll wrapper multiplexing exactly two descriptors:
// the native PE's notification fd and this engine's own wake-up pipe,
// grounded on the ancestor event loop's poller_linux.go. Real hardware
// notification fds are typically eventfds; the simulated backend uses a
// pipe, and epoll treats both identically as level-triggered readable
// fds.
type poller struct {
	epfd int
}

func newPoller() (*poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("pe: epoll_create1: %w", err)
	}
	return &poller{epfd: fd}, nil
}

func (p *poller) add(fd int) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("pe: epoll_ctl(add, %d): %w", fd, err)
	}
	return nil
}

func (p *poller) close() error {
	return unix.Close(p.epfd)
}

// wait blocks until at least one registered fd is readable or timeoutMS
// elapses (-1 blocks indefinitely, 0 polls without blocking). It returns
// the set of ready fds, retrying internally on EINTR exactly as the
// ancestor poller does.
func (p *poller) wait(timeoutMS int) ([]int, error) {
	var events [8]unix.EpollEvent
	for {
		n, err := unix.EpollWait(p.epfd, events[:], timeoutMS)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return nil, fmt.Errorf("pe: epoll_wait: %w", err)
		}
		ready := make([]int, 0, n)
		for i := 0; i < n; i++ {
			ready = append(ready, int(events[i].Fd))
		}
		return ready, nil
	}
}
