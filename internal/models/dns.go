package models

import (
	"fmt"
	"strings"
)

// RecordType is a DNS resource record type.
type RecordType string

const (
	RecordA     RecordType = "A"
	RecordAAAA  RecordType = "AAAA"
	RecordCNAME RecordType = "CNAME"
	RecordMX    RecordType = "MX"
	RecordTXT   RecordType = "TXT"
	RecordSRV   RecordType = "SRV"
)

// ParseRecordType parses a record type case-insensitively.
func ParseRecordType(s string) (RecordType, error) {
	switch t := RecordType(strings.ToUpper(strings.TrimSpace(s))); t {
	case RecordA, RecordAAAA, RecordCNAME, RecordMX, RecordTXT, RecordSRV:
		return t, nil
	}
	return "", fmt.Errorf("invalid DNS record type: %q", s)
}

// DNSRecord is one record of a domain. ID is empty until the provider has
// created the record remotely.
type DNSRecord struct {
	ID      string     `yaml:"id,omitempty" json:"id,omitempty"`
	Type    RecordType `yaml:"record_type" json:"record_type"`
	Name    string     `yaml:"name" json:"name"`
	Value   string     `yaml:"value" json:"value"`
	TTL     uint32     `yaml:"ttl" json:"ttl"`
	Proxied bool       `yaml:"proxied" json:"proxied"`
}

// NewDNSRecord returns an unproxied record with no provider id.
func NewDNSRecord(t RecordType, name, value string, ttl uint32) DNSRecord {
	return DNSRecord{Type: t, Name: name, Value: value, TTL: ttl}
}
