package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Siloft/siloft-networking/tcp"
	"github.com/Siloft/siloft-networking/xnet"
	"github.com/go-kratos/kratos/v2/log"
)

func main() {
	cli, err := tcp.NewClient("echo-client", "127.0.0.1:17101")
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

	for i := range 10 {
		data := fmt.Appendf(nil, "hello %d", i)

		p, err := xnet.NewPacket(data, len(data))
		if err != nil {
			panic(err)
		}

		cli.Transmit(p)
		log.Infof("[echo-client] sent %q", data)

		time.Sleep(time.Second)
	}
}
