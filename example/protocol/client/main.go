package main

import (
	"context"
	"time"

	"github.com/Siloft/siloft-networking/example/message"
	"github.com/Siloft/siloft-networking/tcp"
	"github.com/Siloft/siloft-networking/xnet"
	"github.com/go-kratos/kratos/v2/log"
)

func main() {
	reg, err := message.NewRegistry()
	if err != nil {
		panic(err)
	}

	cli, err := tcp.NewClient("demo-client", "127.0.0.1:17301")
	if err != nil {
		panic(err)
	}

	cli.SetProtocol(reg)

	cli.AddReceivedListener(func(name string, msg xnet.Message) {
		if m, ok := msg.(*message.Ping); ok {
			log.Infof("[%s] pong seq=%d", name, m.Seq)
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

	hello, err := reg.Encode(&message.Chat{Sender: "alice", Text: "hello there"})
	if err != nil {
		panic(err)
	}

	cli.Transmit(hello)

	for seq := int64(1); seq <= 5; seq++ {
		ping, err := reg.Encode(&message.Ping{Seq: seq})
		if err != nil {
			panic(err)
		}

		cli.Transmit(ping)
		time.Sleep(time.Second)
	}
}
