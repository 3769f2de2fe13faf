package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

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

	svr, err := tcp.NewServer("demo", "0.0.0.0:17301")
	if err != nil {
		panic(err)
	}

	svr.SetProtocol(reg)

	svr.AddReceivedListener(func(name string, id uint64, msg xnet.Message) {
		switch m := msg.(type) {
		case *message.Ping:
			log.Infof("[%s] ping seq=%d from peer %d", name, m.Seq, id)

			reply, err := reg.Encode(&message.Ping{Seq: m.Seq, Reply: true})
			if err != nil {
				log.Errorf("encode reply failed. %+v", err)
				return
			}

			svr.Transmit(id, reply)
		case *message.Chat:
			log.Infof("[%s] <%s> %s", name, m.Sender, m.Text)
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

	log.Infof("demo server listening on port %d", svr.Port())

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	select {
	case <-c:
	case <-ctx.Done():
	}
}
