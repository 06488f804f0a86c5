package types

// VerificationResult is the outcome of a single WhatsApp-existence check.
// It is immutable once produced: either freshly parsed from the upstream
// response or read back from the cache, the same normalized number under the
// same salt always yields the same result.
type VerificationResult struct {
	IsWhatsApp bool   `json:"is_whatsapp" dynamodbav:"is_whatsapp"`
	Number     string `json:"number" dynamodbav:"number"`
	Name       string `json:"name,omitempty" dynamodbav:"name"`
}
