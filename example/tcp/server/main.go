package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Siloft/siloft-networking/http/health"
	"github.com/Siloft/siloft-networking/metrics"
	"github.com/Siloft/siloft-networking/server"
	"github.com/Siloft/siloft-networking/tcp"
	"github.com/Siloft/siloft-networking/xnet"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	reg := prometheus.NewRegistry()

	svr, err := tcp.NewServer("echo", "0.0.0.0:17101",
		server.WithMetrics(metrics.New(reg, "siloft")),
	)
	if err != nil {
		panic(err)
	}

	svr.AddConnectedListener(func(name string, id uint64) {
		log.Infof("[%s] peer %d connected", name, id)
	})
	svr.AddDisconnectedListener(func(name string, id uint64) {
		log.Infof("[%s] peer %d disconnected", name, id)
	})
	svr.AddReceivedListener(func(name string, id uint64, msg xnet.Message) {
		if p, ok := msg.(*xnet.Packet); ok {
			log.Infof("[%s] peer %d sent %d bytes", name, id, p.Length())
			svr.Transmit(id, p)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svr.Connect(ctx); err != nil {
		panic(err)
	}

	defer func() {
		if err := svr.Disconnect(ctx); err != nil {
			log.Errorf("stop server failed. %+v", err)
		}
	}()

	hs := health.NewServer("0.0.0.0:17102", reg)
	if err := hs.Start(ctx); err != nil {
		panic(err)
	}

	defer func() {
		if err := hs.Stop(ctx); err != nil {
			log.Errorf("stop health server failed. %+v", err)
		}
	}()

	log.Infof("echo server listening on port %d", svr.Port())

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	select {
	case <-c:
	case <-ctx.Done():
	}

	log.Infof("server stopped")
}
