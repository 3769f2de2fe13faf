// Package conf carries the engine configuration: plain structs with a
// Default() baseline, optionally overlaid from a TOML file.
package conf

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-pantheon/fabrica-util/errors"
)

// Duration wraps time.Duration so TOML files can express values as "5s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrapf(err, "parse duration %q failed", string(text))
	}

	*d = Duration(v)

	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Config struct {
	Server    Server    `toml:"server"`
	Worker    Worker    `toml:"worker"`
	Bucket    Bucket    `toml:"bucket"`
	WebSocket WebSocket `toml:"websocket"`
	KCP       KCP       `toml:"kcp"`
}

type Server struct {
	// QueueLength is the advisory depth of the listen queue. The operating
	// system owns the effective backlog; this value is surfaced through the
	// server's QueueLength accessor.
	QueueLength int `toml:"queue_length"`

	KeepAlive        bool     `toml:"keep_alive"`
	ReadBufSize      int      `toml:"read_buf_size"`
	WriteBufSize     int      `toml:"write_buf_size"`
	HandshakeTimeout Duration `toml:"handshake_timeout"`
}

type Worker struct {
	// ReadBufSize is the size of the chunk a receive worker hands to one
	// blocking read. A chunk may hold fewer or more bytes than one protocol
	// message; framing is the codec's job.
	ReadBufSize int `toml:"read_buf_size"`

	// ReadTimeout and WriteTimeout bound individual socket operations. Both
	// default to 0: an unresponsive peer occupies its worker indefinitely.
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`

	StopTimeout Duration `toml:"stop_timeout"`
}

type Bucket struct {
	BucketSize int `toml:"bucket_size"`
}

type KCP struct {
	// DataShards and ParityShards configure Reed-Solomon forward error
	// correction. Zero for both disables FEC.
	DataShards   int `toml:"data_shards"`
	ParityShards int `toml:"parity_shards"`

	MTU int `toml:"mtu"`

	// NoDelay holds the kcp tuning tuple: nodelay, interval, resend, nc.
	NoDelay [4]int `toml:"no_delay"`

	// WindowSize holds the send and receive window sizes in segments.
	WindowSize [2]int `toml:"window_size"`

	ACKNoDelay bool `toml:"ack_no_delay"`
	WriteDelay bool `toml:"write_delay"`
}

type WebSocket struct {
	Path string `toml:"path"`

	// AllowOrigins lists the Origin header values accepted on upgrade.
	// Empty allows any origin.
	AllowOrigins []string `toml:"allow_origins"`
}

func Default() Config {
	server := Server{
		QueueLength:      50,
		KeepAlive:        true,
		ReadBufSize:      30000,
		WriteBufSize:     30000,
		HandshakeTimeout: Duration(time.Second * 10),
	}

	worker := Worker{
		ReadBufSize: 8192,
		StopTimeout: Duration(time.Second * 3),
	}

	bucket := Bucket{
		BucketSize: 128,
	}

	websocket := WebSocket{
		Path: "/ws",
	}

	// kcp-go fast mode
	kcp := KCP{
		DataShards:   10,
		ParityShards: 3,
		MTU:          1400,
		NoDelay:      [4]int{1, 10, 2, 1},
		WindowSize:   [2]int{256, 256},
		ACKNoDelay:   true,
	}

	return Config{
		Server:    server,
		Worker:    worker,
		Bucket:    bucket,
		WebSocket: websocket,
		KCP:       kcp,
	}
}

// Load overlays the TOML file at path onto Default(). Keys absent from the
// file keep their default values.
func Load(path string) (Config, error) {
	c := Default()

	if _, err := toml.DecodeFile(path, &c); err != nil {
		return Config{}, errors.Wrapf(err, "decode config failed. path=%s", path)
	}

	return c, nil
}
