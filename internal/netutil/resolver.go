// Package netutil provides target resolution helpers for the scan engine.
package netutil

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"

	"github.com/nvestad/portsleuth/internal/errors"
	"github.com/nvestad/portsleuth/internal/logging"
)

const (
	// resolveTimeout bounds a single DNS exchange.
	resolveTimeout = 5 * time.Second

	// defaultResolvConf is where the system resolver list lives.
	defaultResolvConf = "/etc/resolv.conf"
)

// Resolver resolves scan targets to IP addresses. Hostnames are looked up
// with an explicit DNS exchange so the nameserver is controllable; IP
// literals pass through untouched.
type Resolver struct {
	server string
	client *dns.Client
	logger *logging.Logger
}

// NewResolver creates a resolver using the given nameserver ("host:port").
// An empty server falls back to the first system nameserver.
func NewResolver(server string) *Resolver {
	if server == "" {
		server = systemNameserver()
	}
	return &Resolver{
		server: server,
		client: &dns.Client{Timeout: resolveTimeout},
		logger: logging.Default().WithComponent("resolver"),
	}
}

// systemNameserver reads the first nameserver from resolv.conf, defaulting to
// localhost when the file is unreadable.
func systemNameserver() string {
	conf, err := dns.ClientConfigFromFile(defaultResolvConf)
	if err != nil || len(conf.Servers) == 0 {
		return net.JoinHostPort("127.0.0.1", "53")
	}
	return net.JoinHostPort(conf.Servers[0], conf.Port)
}

// Resolve returns an IP address for the target. IP literals are returned
// as-is; hostnames are resolved via an A query, falling back to AAAA.
func (r *Resolver) Resolve(ctx context.Context, target string) (string, error) {
	if target == "" {
		return "", errors.ErrInvalidTarget(target)
	}
	if ip := net.ParseIP(target); ip != nil {
		return target, nil
	}

	if ip, err := r.query(ctx, target, dns.TypeA); err == nil {
		return ip, nil
	}
	ip, err := r.query(ctx, target, dns.TypeAAAA)
	if err != nil {
		return "", errors.WrapScanErrorWithTarget(errors.CodeResolveFailed,
			"could not resolve target", target, err)
	}
	return ip, nil
}

func (r *Resolver) query(ctx context.Context, host string, qtype uint16) (string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), qtype)
	msg.RecursionDesired = true

	reply, rtt, err := r.client.ExchangeContext(ctx, msg, r.server)
	if err != nil {
		return "", err
	}
	if reply.Rcode != dns.RcodeSuccess {
		return "", fmt.Errorf("dns query for %s returned %s", host, dns.RcodeToString[reply.Rcode])
	}

	for _, rr := range reply.Answer {
		switch record := rr.(type) {
		case *dns.A:
			r.logger.Debug("Resolved target", "host", host, "ip", record.A, "rtt", rtt)
			return record.A.String(), nil
		case *dns.AAAA:
			r.logger.Debug("Resolved target", "host", host, "ip", record.AAAA, "rtt", rtt)
			return record.AAAA.String(), nil
		}
	}
	return "", fmt.Errorf("no address records for %s", host)
}

// ValidateTarget checks that a target is a plausible hostname or IP literal
// without touching the network.
func ValidateTarget(target string) error {
	if target == "" {
		return errors.ErrInvalidTarget(target)
	}
	if net.ParseIP(target) != nil {
		return nil
	}
	if _, ok := dns.IsDomainName(target); !ok {
		return errors.ErrInvalidTarget(target)
	}
	return nil
}
