package domain

// CertificateRequest carries what a certificate renderer prints.
type CertificateRequest struct {
	Policy      Policy
	ClientName  string
	ProductName string
	AgentName   string
}
