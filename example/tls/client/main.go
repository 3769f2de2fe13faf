package main

import (
	"context"
	"flag"
	"time"

	"github.com/Siloft/siloft-networking/tls"
	"github.com/Siloft/siloft-networking/xnet"
	"github.com/go-kratos/kratos/v2/log"
)

func main() {
	target := flag.String("target", "127.0.0.1:17201", "server address")
	caFile := flag.String("ca", "", "PEM root certificate file, empty for system trust")
	serverName := flag.String("server-name", "", "expected server name, empty to use the target host")
	flag.Parse()

	tlsConf, err := tls.LoadClientConfig(*caFile, *serverName)
	if err != nil {
		panic(err)
	}

	cli, err := tls.NewClient("secure-client", *target, tlsConf)
	if err != nil {
		panic(err)
	}

	cli.AddReceivedListener(func(name string, msg xnet.Message) {
		if p, ok := msg.(*xnet.Packet); ok {
			log.Infof("[%s] received %q", name, p.Data())
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := cli.Connect(ctx); err != nil {
		panic(err)
	}

	defer func() {
		if err := cli.Disconnect(ctx); err != nil {
			log.Errorf("stop client failed. %+v", err)
		}
	}()

	data := []byte("over the wire, under the lock")

	p, err := xnet.NewPacket(data, len(data))
	if err != nil {
		panic(err)
	}

	cli.Transmit(p)
	time.Sleep(2 * time.Second)
}
