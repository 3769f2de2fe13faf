package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/Siloft/siloft-networking/tls"
	"github.com/Siloft/siloft-networking/xnet"
	"github.com/go-kratos/kratos/v2/log"
)

func main() {
	certFile := flag.String("cert", "server.crt", "PEM certificate file")
	keyFile := flag.String("key", "server.key", "PEM private key file")
	flag.Parse()

	tlsConf, err := tls.LoadServerConfig(*certFile, *keyFile)
	if err != nil {
		panic(err)
	}

	svr, err := tls.NewServer("secure-echo", "0.0.0.0:17201", tlsConf)
	if err != nil {
		panic(err)
	}

	svr.AddReceivedListener(func(name string, id uint64, msg xnet.Message) {
		if p, ok := msg.(*xnet.Packet); ok {
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

	log.Infof("secure echo server listening on port %d", svr.Port())

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	select {
	case <-c:
	case <-ctx.Done():
	}
}
