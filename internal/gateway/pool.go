package gateway

import (
	"net"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const taskChanSize = 256

// connWork is run once per connection task pulled off the pool.
type connWork = func(t *tomb.Tomb, conn net.Conn) error

// connPool is a fixed-size pool of goroutines reading connections handed to
// it, carrying net.Conn directly rather than an any-typed task.
type connPool struct {
	n     int
	tasks chan net.Conn
	work  connWork
}

func newConnPool(size int) *connPool {
	return &connPool{
		tasks: make(chan net.Conn, taskChanSize),
		n:     size,
	}
}

func (pool *connPool) setup(t *tomb.Tomb, work connWork) {
	pool.work = work
	log.Info().Int("workers", pool.n).Msg("starting connection pool")
	for i := 0; i < pool.n; i++ {
		t.Go(func() error {
			return pool.loop(t)
		})
	}
}

func (pool *connPool) loop(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case conn := <-pool.tasks:
			if err := pool.work(t, conn); err != nil {
				log.Error().Err(err).Msg("connection worker exiting")
			}
		}
	}
}

func (pool *connPool) addTask(conn net.Conn) {
	pool.tasks <- conn
}
