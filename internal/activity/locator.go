package activity

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/2beens/clientportal/internal/telemetry/tracing"

	"github.com/ipinfo/go/v2/ipinfo"
	"github.com/ipinfo/go/v2/ipinfo/cache"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const localhostCity = "Nairobi"

// Locator resolves the city a sign-in came from.
type Locator interface {
	City(ctx context.Context, ip string) (string, error)
}

// NoopLocator never resolves anything; used when no ipinfo token is configured.
type NoopLocator struct{}

func (NoopLocator) City(context.Context, string) (string, error) {
	return "", nil
}

type IPInfoLocator struct {
	client *ipinfo.Client
}

func NewIPInfoLocator(apiKey string, httpClient *http.Client) *IPInfoLocator {
	return &IPInfoLocator{
		client: ipinfo.NewClient(httpClient, ipinfo.NewCache(cache.NewInMemory()), apiKey),
	}
}

// NewLocator picks the ipinfo locator when an api key is set.
func NewLocator(apiKey string, httpClient *http.Client) Locator {
	if apiKey == "" {
		log.Warnln("ipinfo api key not set, sign-in locations will not be resolved")
		return NoopLocator{}
	}
	return NewIPInfoLocator(apiKey, httpClient)
}

func (l *IPInfoLocator) City(ctx context.Context, ip string) (string, error) {
	_, span := tracing.GlobalTracer.Start(ctx, "locator.city")
	defer span.End()
	span.SetAttributes(attribute.String("user.ip", ip))

	// used for development
	if ip == "localhost" {
		return localhostCity, nil
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		span.SetStatus(codes.Error, "invalid-ip")
		return "", fmt.Errorf("invalid ip address [%s]", ip)
	}

	// the ipinfo client takes no context, the lookup is abandoned on ctx done
	lookupDone := make(chan lookupResult, 1)
	go func() {
		info, err := l.client.GetIPInfo(parsed)
		lookupDone <- lookupResult{info: info, err: err}
	}()

	var res lookupResult
	select {
	case <-ctx.Done():
		span.SetStatus(codes.Error, "ipinfo-timeout")
		return "", fmt.Errorf("get ip info for [%s]: %w", ip, ctx.Err())
	case res = <-lookupDone:
	}

	if res.err != nil {
		span.SetStatus(codes.Error, "ipinfo")
		span.RecordError(res.err)
		return "", fmt.Errorf("get ip info for [%s]: %w", ip, res.err)
	}
	if res.info.Bogon {
		return "", nil
	}

	return res.info.City, nil
}

type lookupResult struct {
	info *ipinfo.Core
	err  error
}
