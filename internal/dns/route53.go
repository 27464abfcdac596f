package dns

import (
	"context"
	"fmt"

	"archon/internal/models"
)

var errRoute53 = fmt.Errorf("%w: route53", ErrNotImplemented)

// Route53 fails fast on every call without touching the network.
type Route53 struct{}

func (Route53) ListRecords(context.Context, string) ([]models.DNSRecord, error) {
	return nil, errRoute53
}

func (Route53) CreateRecord(context.Context, string, models.DNSRecord) (models.DNSRecord, error) {
	return models.DNSRecord{}, errRoute53
}

func (Route53) UpdateRecord(context.Context, string, models.DNSRecord) (models.DNSRecord, error) {
	return models.DNSRecord{}, errRoute53
}

func (Route53) DeleteRecord(context.Context, string, string) error {
	return errRoute53
}
