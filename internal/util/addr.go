package util

import (
	"net"
	"strconv"

	"github.com/go-pantheon/fabrica-util/errors"
)

// ErrInvalidBind reports a malformed bind or target address. It surfaces at
// construction time so a bad address never reaches the accept or dial path.
var ErrInvalidBind = errors.New("invalid address")

// ValidateBind checks that addr is a host:port with a port in [0, 65535].
// The host part may be empty, meaning all interfaces.
func ValidateBind(addr string) error {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return errors.Wrapf(ErrInvalidBind, "addr=%s: %v", addr, err)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return errors.Wrapf(ErrInvalidBind, "addr=%s: port is not numeric", addr)
	}

	if port < 0 || port > 65535 {
		return errors.Wrapf(ErrInvalidBind, "addr=%s: port out of range", addr)
	}

	return nil
}

// Extract resolves the advertisable host:port of a bound listener. The port
// comes from lis when the bind asked for an ephemeral one; a wildcard or
// empty host is replaced with an internal interface address.
func Extract(bind string, lis net.Listener) (string, error) {
	host, port, err := net.SplitHostPort(bind)
	if err != nil {
		return "", errors.Wrapf(err, "split bind failed. bind=%s", bind)
	}

	if lis != nil {
		if _, p, err := net.SplitHostPort(lis.Addr().String()); err == nil {
			port = p
		}
	}

	if host == "" || host == "0.0.0.0" || host == "[::]" || host == "::" {
		if ip := InternalIP(); ip != "" {
			host = ip
		}
	}

	return net.JoinHostPort(host, port), nil
}

// InternalIP returns a non-loopback IPv4 address of this host, or "" when
// none is up.
func InternalIP() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			var ip net.IP

			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}

			if ip == nil || ip.IsLoopback() {
				continue
			}

			if v4 := ip.To4(); v4 != nil {
				return v4.String()
			}
		}
	}

	return ""
}
