package kcp

import (
	"github.com/Siloft/siloft-networking/conf"
	"github.com/go-pantheon/fabrica-util/errors"
	kcpgo "github.com/xtaci/kcp-go/v5"
)

func validate(c conf.KCP) error {
	if c.MTU < 576 || c.MTU > 1500 {
		return errors.Errorf("invalid MTU: %d, must be between 576 and 1500", c.MTU)
	}

	if c.DataShards < 0 || c.DataShards > 255 {
		return errors.Errorf("invalid DataShards: %d, must be between 0 and 255", c.DataShards)
	}

	if c.ParityShards < 0 || c.ParityShards > 255 {
		return errors.Errorf("invalid ParityShards: %d, must be between 0 and 255", c.ParityShards)
	}

	if c.WindowSize[0] <= 0 || c.WindowSize[1] <= 0 {
		return errors.Errorf("invalid WindowSize: %v, both send and receive windows must be positive", c.WindowSize)
	}

	return nil
}

func configure(conn *kcpgo.UDPSession, c conf.KCP) {
	conn.SetNoDelay(c.NoDelay[0], c.NoDelay[1], c.NoDelay[2], c.NoDelay[3])
	conn.SetWindowSize(c.WindowSize[0], c.WindowSize[1])
	conn.SetMtu(c.MTU)
	conn.SetACKNoDelay(c.ACKNoDelay)
	conn.SetWriteDelay(c.WriteDelay)
}
