package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"insurance-settlement/internal/core/domain"
	"insurance-settlement/internal/core/ports"

	"github.com/shopspring/decimal"
)

var certificateTemplate = template.Must(template.New("certificate").Funcs(template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"date":  func(t *time.Time) string { return formatDate(t) },
}).Parse(`CERTIFICATE OF INSURANCE
========================
Certificate for policy {{.Policy.ID}}

Insured:        {{.ClientName}}
Product:        {{.ProductName}}
Sold by:        {{.AgentName}}

Insured value:  KES {{money .Policy.InsuredValue}}
Premium:        KES {{money .Policy.Premium}}
Tax:            KES {{money .Policy.Tax}}
Total paid:     KES {{money .Policy.Total}}
{{- with .Policy.PaymentReceipt}}
Receipt:        {{.}}
{{- end}}

Valid from:     {{date .Policy.StartDate}}
Valid until:    {{date .Policy.ExpiryDate}}
`))

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format("2006-01-02")
}

// TextCertificateRenderer implements ports.CertificateRenderer with a plain
// text template stored through a DocumentStore.
type TextCertificateRenderer struct {
	store ports.DocumentStore
}

func NewTextCertificateRenderer(store ports.DocumentStore) *TextCertificateRenderer {
	return &TextCertificateRenderer{store: store}
}

// Render writes the certificate and returns its stored reference.
func (r *TextCertificateRenderer) Render(ctx context.Context, req domain.CertificateRequest) (string, error) {
	var buf bytes.Buffer
	if err := certificateTemplate.Execute(&buf, req); err != nil {
		return "", fmt.Errorf("render certificate: %w", err)
	}
	ref, err := r.store.Put(ctx, CertificateName(req.Policy.ID.String(), req.ClientName), buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("store certificate: %w", err)
	}
	return ref, nil
}

// CertificateName is cert_<policyID>_<client name with whitespace runs as underscores>.txt.
func CertificateName(policyID, clientName string) string {
	return fmt.Sprintf("cert_%s_%s.txt", policyID, strings.Join(strings.Fields(clientName), "_"))
}
