package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/salespatriot/fscflow/internal/model"
)

// fingerprint derives the cache key from a request's identity fields:
// case-insensitive, whitespace-trimmed name/website/domain plus the sorted
// attachment refs. Attachment order does not change the identity.
func fingerprint(req model.ClassificationRequest) string {
	refs := make([]string, len(req.AttachmentRefs))
	copy(refs, req.AttachmentRefs)
	sort.Strings(refs)

	normalized, _ := json.Marshal(struct {
		Name    string   `json:"name"`
		Website string   `json:"website"`
		Domain  string   `json:"domain"`
		Refs    []string `json:"refs"`
	}{
		Name:    strings.ToLower(strings.TrimSpace(req.CompanyName)),
		Website: strings.ToLower(strings.TrimSpace(req.WebsiteURL)),
		Domain:  strings.ToLower(strings.TrimSpace(req.EmailDomain)),
		Refs:    refs,
	})

	sum := sha256.Sum256(normalized)
	return hex.EncodeToString(sum[:])
}
