package enricher

import (
	"net"

	"github.com/mssola/useragent"
	"github.com/oschwald/geoip2-golang"

	"github.com/intentlens/intentlens/internal/event"
)

// Enricher fills in event context the client left blank: user agent, device
// descriptor and, when a GeoIP database is available, coarse location.
type Enricher struct {
	geoIP *geoip2.Reader
}

// New creates an enricher. A missing or unreadable GeoIP database disables
// location enrichment only.
func New(geoIPPath string) *Enricher {
	var geoIP *geoip2.Reader
	if geoIPPath != "" {
		geoIP, _ = geoip2.Open(geoIPPath)
	}
	return &Enricher{geoIP: geoIP}
}

// Enrich completes one event's context in place from transport metadata.
// Fields the client already set are left alone.
func (e *Enricher) Enrich(ev *event.TelemetryEvent, userAgentString, clientIP string) {
	if ev.Context.UserAgent == "" {
		ev.Context.UserAgent = userAgentString
	}

	if ev.Context.Device.Type == "" && ev.Context.UserAgent != "" {
		ua := useragent.New(ev.Context.UserAgent)
		ev.Context.Device.Type = deviceType(ua)
	}

	if e.geoIP != nil && clientIP != "" && ev.Context.Country == "" {
		ip := net.ParseIP(clientIP)
		if ip == nil {
			return
		}
		record, err := e.geoIP.City(ip)
		if err != nil {
			return
		}
		ev.Context.Country = record.Country.IsoCode
		if name, ok := record.City.Names["en"]; ok {
			ev.Context.City = name
		}
	}
}

func deviceType(ua *useragent.UserAgent) string {
	if ua.Mobile() {
		return "mobile"
	}
	if ua.Bot() {
		return "bot"
	}
	return "desktop"
}

// Close releases the GeoIP reader.
func (e *Enricher) Close() {
	if e.geoIP != nil {
		e.geoIP.Close()
	}
}
