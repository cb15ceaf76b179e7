package oscquery

import (
	"net"
	"sort"
	"strings"

	"github.com/bnema/gestation-osc/internal/relay"
	"github.com/miekg/dns"
)

const (
	TypeOSC      = "_osc._udp.local."
	TypeOSCQuery = "_oscjson._tcp.local."

	recordTTL = 120
)

// Service is one DNS-SD service instance seen on, or advertised to, the
// local network.
type Service struct {
	Instance string
	Type     string
	Host     string
	Addr     net.IP
	Port     uint16
}

func (s Service) FQDN() string {
	return escapeLabel(s.Instance) + "." + s.Type
}

func (s Service) Endpoint() relay.Endpoint {
	return relay.Endpoint{Host: s.Addr.String(), Port: s.Port}
}

// Kind maps the DNS-SD type onto the relay's service kinds.
func (s Service) Kind() (relay.ServiceKind, bool) {
	switch {
	case strings.EqualFold(s.Type, TypeOSC):
		return relay.ServiceOSC, true
	case strings.EqualFold(s.Type, TypeOSCQuery):
		return relay.ServiceOSCQuery, true
	default:
		return 0, false
	}
}

func knownTypes() []string {
	return []string{TypeOSC, TypeOSCQuery}
}

// BuildQuery asks for every instance of the given service types.
func BuildQuery(types ...string) *dns.Msg {
	msg := new(dns.Msg)
	msg.Id = 0
	msg.RecursionDesired = false
	for _, typ := range types {
		msg.Question = append(msg.Question, dns.Question{Name: typ, Qtype: dns.TypePTR, Qclass: dns.ClassINET})
	}
	return msg
}

// BuildAnnouncement lists every record of the advertised services, unsolicited.
func BuildAnnouncement(services []Service) *dns.Msg {
	msg := newResponse()
	for _, svc := range services {
		msg.Answer = append(msg.Answer, ptrRecord(svc), srvRecord(svc), txtRecord(svc))
		if a := aRecord(svc); a != nil {
			msg.Answer = append(msg.Answer, a)
		}
	}
	return msg
}

// BuildAnswer answers the questions in query that concern services. It
// returns nil when nothing matches.
func BuildAnswer(query *dns.Msg, services []Service) *dns.Msg {
	if query == nil || query.Response {
		return nil
	}

	msg := newResponse()
	for _, q := range query.Question {
		for _, svc := range services {
			switch {
			case (q.Qtype == dns.TypePTR || q.Qtype == dns.TypeANY) && strings.EqualFold(q.Name, svc.Type):
				msg.Answer = append(msg.Answer, ptrRecord(svc))
				msg.Extra = append(msg.Extra, srvRecord(svc), txtRecord(svc))
				if a := aRecord(svc); a != nil {
					msg.Extra = append(msg.Extra, a)
				}
			case (q.Qtype == dns.TypeSRV || q.Qtype == dns.TypeANY) && strings.EqualFold(q.Name, svc.FQDN()):
				msg.Answer = append(msg.Answer, srvRecord(svc))
				if a := aRecord(svc); a != nil {
					msg.Extra = append(msg.Extra, a)
				}
			case q.Qtype == dns.TypeTXT && strings.EqualFold(q.Name, svc.FQDN()):
				msg.Answer = append(msg.Answer, txtRecord(svc))
			case q.Qtype == dns.TypeA && strings.EqualFold(q.Name, svc.Host):
				if a := aRecord(svc); a != nil {
					msg.Answer = append(msg.Answer, a)
				}
			}
		}
	}

	if len(msg.Answer) == 0 {
		return nil
	}
	return msg
}

// ParseServices extracts complete service instances (SRV plus an address)
// from a response. from fills in the address when no A record is present.
func ParseServices(msg *dns.Msg, from net.IP) []Service {
	if msg == nil || !msg.Response {
		return nil
	}

	records := make([]dns.RR, 0, len(msg.Answer)+len(msg.Extra))
	records = append(records, msg.Answer...)
	records = append(records, msg.Extra...)

	srvs := map[string]*dns.SRV{}
	addrs := map[string]net.IP{}
	for _, rr := range records {
		switch record := rr.(type) {
		case *dns.SRV:
			srvs[strings.ToLower(record.Hdr.Name)] = record
		case *dns.A:
			addrs[strings.ToLower(record.Hdr.Name)] = record.A
		}
	}

	services := make([]Service, 0, len(srvs))
	for name, srv := range srvs {
		typ := typeOf(name)
		if typ == "" {
			continue
		}

		addr := addrs[strings.ToLower(srv.Target)]
		if addr == nil {
			addr = from
		}
		if addr == nil {
			continue
		}

		services = append(services, Service{
			Instance: unescapeLabel(srv.Hdr.Name[:len(srv.Hdr.Name)-len(typ)-1]),
			Type:     typ,
			Host:     srv.Target,
			Addr:     addr,
			Port:     srv.Port,
		})
	}

	sort.Slice(services, func(i, j int) bool {
		if services[i].Type != services[j].Type {
			return services[i].Type < services[j].Type
		}
		return services[i].Instance < services[j].Instance
	})
	return services
}

func typeOf(name string) string {
	lower := strings.ToLower(name)
	for _, typ := range knownTypes() {
		if strings.HasSuffix(lower, "."+typ) {
			return typ
		}
	}
	return ""
}

func newResponse() *dns.Msg {
	msg := new(dns.Msg)
	msg.Response = true
	msg.Authoritative = true
	return msg
}

func header(name string, rrtype uint16) dns.RR_Header {
	return dns.RR_Header{Name: name, Rrtype: rrtype, Class: dns.ClassINET, Ttl: recordTTL}
}

func ptrRecord(svc Service) dns.RR {
	return &dns.PTR{Hdr: header(svc.Type, dns.TypePTR), Ptr: svc.FQDN()}
}

func srvRecord(svc Service) dns.RR {
	return &dns.SRV{Hdr: header(svc.FQDN(), dns.TypeSRV), Port: svc.Port, Target: svc.Host}
}

func txtRecord(svc Service) dns.RR {
	return &dns.TXT{Hdr: header(svc.FQDN(), dns.TypeTXT), Txt: []string{"txtvers=1"}}
}

func aRecord(svc Service) dns.RR {
	ip := svc.Addr.To4()
	if ip == nil {
		return nil
	}
	return &dns.A{Hdr: header(svc.Host, dns.TypeA), A: ip}
}

func escapeLabel(label string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `.`, `\.`, ` `, `\ `)
	return replacer.Replace(label)
}

func unescapeLabel(label string) string {
	var b strings.Builder
	for i := 0; i < len(label); i++ {
		if label[i] == '\\' && i+1 < len(label) {
			if i+3 < len(label) && isDigit(label[i+1]) && isDigit(label[i+2]) && isDigit(label[i+3]) {
				b.WriteByte((label[i+1]-'0')*100 + (label[i+2]-'0')*10 + (label[i+3] - '0'))
				i += 3
				continue
			}
			i++
		}
		b.WriteByte(label[i])
	}
	return b.String()
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
