// Package gateway is the TCP order-entry front-end the matching core treats
// as an external collaborator: it decodes wire.PlaceOrderRequest/
// CancelOrderRequest frames and drives them through a worker.Client, writing
// execution or error reports back to the originating connection.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"vantage/internal/wire"
	"vantage/internal/worker"
)

const (
	maxRecvSize      = 4 * 1024
	defaultPoolSize  = 10
	defaultConnTimeout = 5 * time.Second
)

var (
	ErrUnknownInstrument = errors.New("gateway: unknown instrument")
)

// Router resolves an instrument id to the worker client that owns it.
type Router interface {
	Client(instrument uuid.UUID) (*worker.Client, bool)
}

// StaticRouter is a fixed instrument-to-client map, built once at startup
// from the set of instruments a process is configured to run.
type StaticRouter map[uuid.UUID]*worker.Client

func (r StaticRouter) Client(instrument uuid.UUID) (*worker.Client, bool) {
	c, ok := r[instrument]
	return c, ok
}

type clientSession struct {
	conn net.Conn
}

// Server is the TCP order-entry gateway. One Server fronts every configured
// instrument, routing each decoded message to the right worker via Router.
type Server struct {
	address string
	router  Router
	pool    *connPool

	sessionsLock sync.Mutex
	sessions     map[string]clientSession

	listener net.Listener
}

// New creates a gateway bound to address (host:port) that routes to router.
func New(address string, router Router) *Server {
	return &Server{
		address:  address,
		router:   router,
		pool:     newConnPool(defaultPoolSize),
		sessions: make(map[string]clientSession),
	}
}

// Run listens and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.address)
	if err != nil {
		return fmt.Errorf("gateway: listen: %w", err)
	}
	s.listener = listener
	defer listener.Close()

	t, ctx := tomb.WithContext(ctx)
	s.pool.setup(t, s.handleConnection)

	log.Info().Str("address", s.address).Msg("gateway listening")

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return t.Wait()
			default:
				log.Error().Err(err).Msg("gateway accept error")
				continue
			}
		}
		s.addSession(conn)
		s.pool.addTask(conn)
	}
}

// handleConnection reads one frame from conn, dispatches it, writes the
// response, and re-queues the connection for its next frame.
func (s *Server) handleConnection(t *tomb.Tomb, conn net.Conn) error {
	select {
	case <-t.Dying():
		return nil
	default:
	}

	conn.SetReadDeadline(time.Now().Add(defaultConnTimeout))
	buf := make([]byte, maxRecvSize)
	n, err := conn.Read(buf)
	if err != nil {
		s.removeSession(conn)
		conn.Close()
		return nil
	}

	msgType, payload, err := wire.DecodeMessageType(buf[:n])
	if err != nil {
		log.Error().Err(err).Str("address", conn.RemoteAddr().String()).Msg("malformed frame")
		s.pool.addTask(conn)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnTimeout)
	defer cancel()

	switch msgType {
	case wire.MsgNewOrder:
		s.handleNewOrder(ctx, conn, payload)
	case wire.MsgCancelOrder:
		s.handleCancelOrder(ctx, conn, payload)
	case wire.MsgHeartbeat:
	default:
		log.Error().Int("type", int(msgType)).Msg("unknown message type")
	}

	s.pool.addTask(conn)
	return nil
}

func (s *Server) handleNewOrder(ctx context.Context, conn net.Conn, payload []byte) {
	req, err := wire.DecodeNewOrder(payload)
	if err != nil {
		s.writeError(conn, uuid.Nil, err)
		return
	}
	client, ok := s.router.Client(req.Instrument)
	if !ok {
		s.writeError(conn, req.NewOrderID, ErrUnknownInstrument)
		return
	}

	result, err := client.Submit(ctx, req.ToOrder())
	if err != nil {
		s.writeError(conn, req.NewOrderID, err)
		return
	}
	if result.Rejected != nil {
		s.writeError(conn, req.NewOrderID, result.RejectReason)
		return
	}

	var filled uint64
	var lastPrice int64
	for _, tr := range result.Trades {
		filled += tr.BaseAmount
		lastPrice = tr.Price
	}
	report := wire.Report{
		Kind:       wire.ReportExecution,
		Side:       req.Side,
		Timestamp:  time.Now().UnixNano(),
		BaseAmount: filled,
		Price:      lastPrice,
		OrderID:    req.NewOrderID,
	}
	s.write(conn, report.Serialize())
}

func (s *Server) handleCancelOrder(ctx context.Context, conn net.Conn, payload []byte) {
	req, err := wire.DecodeCancelOrder(payload)
	if err != nil {
		s.writeError(conn, uuid.Nil, err)
		return
	}
	client, ok := s.router.Client(req.Instrument)
	if !ok {
		s.writeError(conn, req.OrderID, ErrUnknownInstrument)
		return
	}

	order, err := client.Cancel(ctx, req.OrderID)
	if err != nil {
		s.writeError(conn, req.OrderID, err)
		return
	}
	report := wire.Report{
		Kind:       wire.ReportExecution,
		Side:       order.Side,
		Timestamp:  time.Now().UnixNano(),
		BaseAmount: order.RemainingBase,
		OrderID:    order.ID,
	}
	s.write(conn, report.Serialize())
}

func (s *Server) writeError(conn net.Conn, orderID uuid.UUID, err error) {
	s.write(conn, wire.EncodeErrorReport(orderID, err.Error()))
}

func (s *Server) write(conn net.Conn, buf []byte) {
	if _, err := conn.Write(buf); err != nil {
		log.Error().Err(err).Str("address", conn.RemoteAddr().String()).Msg("write failed")
		s.removeSession(conn)
	}
}

func (s *Server) addSession(conn net.Conn) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	s.sessions[conn.RemoteAddr().String()] = clientSession{conn: conn}
}

func (s *Server) removeSession(conn net.Conn) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	delete(s.sessions, conn.RemoteAddr().String())
}
