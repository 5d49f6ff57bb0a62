package fetch

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"golang.org/x/net/proxy"
)

// isValidProxyAddress checks if the address is in valid "host:port" format.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// parseProxyAddress splits "[socks5://][user:password@]host:port" into the
// dial address and the optional credentials.
func parseProxyAddress(address string) (string, *proxy.Auth, error) {
	for _, scheme := range []string{"socks5://", "socks5h://"} {
		if len(address) > len(scheme) && strings.EqualFold(address[:len(scheme)], scheme) {
			address = address[len(scheme):]
			break
		}
	}

	var auth *proxy.Auth
	if userinfo, hostport, found := strings.Cut(address, "@"); found {
		user, password, _ := strings.Cut(userinfo, ":")
		if user == "" {
			return "", nil, ErrInvalidProxyAddress
		}
		auth = &proxy.Auth{User: user, Password: password}
		address = hostport
	}

	if !isValidProxyAddress(address) {
		return "", nil, ErrInvalidProxyAddress
	}
	return address, auth, nil
}

// socksDialContext returns a DialContext function that routes connections
// through the SOCKS5 proxy at address, authenticating when the address
// carries credentials.
func socksDialContext(address string) (func(ctx context.Context, network, addr string) (net.Conn, error), error) {
	hostport, auth, err := parseProxyAddress(address)
	if err != nil {
		return nil, err
	}

	dialer, err := proxy.SOCKS5("tcp", hostport, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	if cd, ok := dialer.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}

	// Design decision: fall back to wrapping Dial when the dialer lacks
	// context support. If the context is cancelled the goroutine returns
	// the error but the underlying attempt may continue briefly.
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		type dialResult struct {
			conn net.Conn
			err  error
		}
		resultCh := make(chan dialResult, 1)
		go func() {
			conn, err := dialer.Dial(network, addr)
			resultCh <- dialResult{conn, err}
		}()
		select {
		case result := <-resultCh:
			return result.conn, result.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, nil
}
