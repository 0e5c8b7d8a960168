package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := CreatePolicyRequest{
		ProductID:   " 6f1c2b1e-0000-4000-8000-000000000001 ",
		ClientName:  "  Jane Doe  ",
		ClientPhone: " 0712345678",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "6f1c2b1e-0000-4000-8000-000000000001", req.ProductID)
	assert.Equal(t, "Jane Doe", req.ClientName)
	assert.Equal(t, "0712345678", req.ClientPhone)
}

func TestSanitizeStruct_EscapesHTML(t *testing.T) {
	req := CreatePolicyRequest{ClientName: "Jane <script>alert('x')</script>"}
	SanitizeStruct(&req)

	assert.Contains(t, req.ClientName, "&lt;script&gt;")
	assert.NotContains(t, req.ClientName, "<script>")
}

func TestSanitizeStruct_HandlesPointerString(t *testing.T) {
	reason := "  cancelled <b>by user</b> "
	resp := PolicyResponse{FailureReason: &reason}
	SanitizeStruct(&resp)

	assert.Equal(t, "cancelled &lt;b&gt;by user&lt;/b&gt;", *resp.FailureReason)
}

func TestSanitizeStruct_NilPointerIsNoOp(t *testing.T) {
	resp := PolicyResponse{ID: "p1"}
	SanitizeStruct(&resp)
	assert.Nil(t, resp.FailureReason)
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	s := "hello"
	SanitizeStruct(s)
}

func TestSafeID(t *testing.T) {
	valid := []string{"QGH7X1Y2Z3", "ref-001", "REF_002", "a.b.c"}
	for _, tc := range valid {
		assert.True(t, safeStringRe.MatchString(tc), "expected valid: %s", tc)
	}
	invalid := []string{"ref 001", "ref<001>", "ref;DROP", "", "ref\n001"}
	for _, tc := range invalid {
		assert.False(t, safeStringRe.MatchString(tc), "expected invalid: %s", tc)
	}
}

func TestMSISDN(t *testing.T) {
	valid := []string{"0712345678", "0112345678", "254712345678", "+254712345678"}
	for _, tc := range valid {
		assert.True(t, msisdnRe.MatchString(tc), "expected valid: %s", tc)
	}
	invalid := []string{"12345", "0812345678", "07123456789", "07-1234-5678", ""}
	for _, tc := range invalid {
		assert.False(t, msisdnRe.MatchString(tc), "expected invalid: %s", tc)
	}
}

func TestResultParameter_Text(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`"254712345678"`, "254712345678"},
		{`254712345678`, "254712345678"},
		{`1000.50`, "1000.50"},
		{`null`, ""},
	}
	for _, tt := range tests {
		p := ResultParameter{Key: "k", Value: []byte(tt.raw)}
		assert.Equal(t, tt.want, p.Text(), tt.raw)
	}
}
