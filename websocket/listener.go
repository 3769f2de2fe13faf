package websocket

import (
	"context"
	"net"
	"net/http"
	"slices"

	"github.com/Siloft/siloft-networking/conf"
	"github.com/Siloft/siloft-networking/internal"
	"github.com/Siloft/siloft-networking/internal/util"
	"github.com/Siloft/siloft-networking/websocket/wsconn"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-pantheon/fabrica-util/errors"
	"github.com/go-pantheon/fabrica-util/xsync"
	"github.com/gorilla/websocket"
)

var _ internal.Listener = (*listener)(nil)

type listener struct {
	bind string
	path string
	conf conf.Config

	ln       net.Listener
	server   *http.Server
	upgrader websocket.Upgrader

	idGener  *internal.IDGenerator
	connChan chan internal.ConnWrapper
	stopped  chan struct{}
}

func newListener(bind string, c conf.Config) *listener {
	return &listener{
		bind:     bind,
		path:     c.WebSocket.Path,
		conf:     c,
		idGener:  internal.NewIDGenerator(internal.NetTypeWebSocket),
		connChan: make(chan internal.ConnWrapper, 1024),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  c.Server.ReadBufSize,
			WriteBufferSize: c.Server.WriteBufSize,
			CheckOrigin: func(r *http.Request) bool {
				if len(c.WebSocket.AllowOrigins) == 0 {
					return true
				}

				return slices.Contains(c.WebSocket.AllowOrigins, r.Header.Get("Origin"))
			},
		},
	}
}

func (l *listener) Start(ctx context.Context) error {
	l.stopped = make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc(l.path, l.handleUpgrade)

	l.server = &http.Server{
		Addr:    l.bind,
		Handler: mux,
	}

	ln, err := net.Listen("tcp", l.bind)
	if err != nil {
		return errors.Wrapf(err, "listen failed. bind=%s", l.bind)
	}

	l.ln = ln

	xsync.Go("websocket.listener", func() error {
		return l.server.Serve(ln)
	})

	return nil
}

func (l *listener) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("[websocket] upgrade failed: %+v", err)
		return
	}

	wrapper := internal.NewConnWrapper(l.idGener.Next(), wsconn.New(conn))

	select {
	case l.connChan <- wrapper:
	case <-l.stopped:
		if err := conn.Close(); err != nil {
			log.Errorf("[websocket] close late connection: %+v", err)
		}
	default:
		log.Error("[websocket] connection channel full, dropping connection")

		if err := conn.Close(); err != nil {
			log.Errorf("[websocket] close dropped connection: %+v", err)
		}
	}
}

func (l *listener) Stop(ctx context.Context) error {
	if l.stopped != nil {
		close(l.stopped)
	}

	if l.server != nil {
		if err := l.server.Shutdown(ctx); err != nil {
			return err
		}
	}

	return nil
}

func (l *listener) Accept(ctx context.Context) (internal.ConnWrapper, error) {
	select {
	case <-ctx.Done():
		return internal.ConnWrapper{}, ctx.Err()
	case <-l.stopped:
		return internal.ConnWrapper{}, net.ErrClosed
	case wrapper := <-l.connChan:
		return wrapper, nil
	}
}

func (l *listener) Addr() net.Addr {
	if l.ln == nil {
		return nil
	}

	return l.ln.Addr()
}

func (l *listener) Endpoint() (string, error) {
	addr, err := util.Extract(l.bind, l.ln)
	if err != nil {
		return "", err
	}

	return "ws://" + addr + l.path, nil
}
