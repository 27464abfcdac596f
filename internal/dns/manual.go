package dns

import (
	"context"

	"archon/internal/models"
)

// Manual is the provider for domains whose records are edited by hand at the
// registrar. Every operation returns ErrManualDNS.
type Manual struct{}

func (Manual) ListRecords(context.Context, string) ([]models.DNSRecord, error) {
	return nil, ErrManualDNS
}

func (Manual) CreateRecord(context.Context, string, models.DNSRecord) (models.DNSRecord, error) {
	return models.DNSRecord{}, ErrManualDNS
}

func (Manual) UpdateRecord(context.Context, string, models.DNSRecord) (models.DNSRecord, error) {
	return models.DNSRecord{}, ErrManualDNS
}

func (Manual) DeleteRecord(context.Context, string, string) error {
	return ErrManualDNS
}
