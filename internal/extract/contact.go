package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/tabfind/internal/extract/adapters"
	"github.com/ppiankov/tabfind/internal/model"
	"github.com/ppiankov/tabfind/internal/search"
)

// MessagingBaseURL is the WhatsApp click-to-chat prefix
const MessagingBaseURL = "https://wa.me/"

var (
	contactHeaderRe = regexp.MustCompile(`(?i)(whatsapp|wpp|cel|m[oó]vil|tel[eé]fono|phone|contacto|correo|e-?mail|mail)`)
	phoneRe         = regexp.MustCompile(`\+?\d[\d\s\p{Z}\x{FEFF}().-]{6,}\d`)
	nonDigitRe      = regexp.MustCompile(`\D`)

	// Checked against normalized headers when no header matches contactHeaderRe
	contactKeywords = []string{"telefono", "cel", "whatsapp", "correo", "email"}
)

// DetectContactKey returns the first header that looks like a contact
// field, or "" when none does.
func DetectContactKey(headers []string) string {
	for _, h := range headers {
		if contactHeaderRe.MatchString(h) {
			return h
		}
	}
	for _, h := range headers {
		low := search.Normalize(h)
		for _, kw := range contactKeywords {
			if strings.Contains(low, kw) {
				return h
			}
		}
	}
	return ""
}

// LooksLikePhone reports whether s contains a phone-like run
func LooksLikePhone(s string) bool {
	return phoneRe.MatchString(s)
}

// Resolver extracts contact values, messaging links and summaries from
// records of one data set.
type Resolver struct {
	headers     []string
	detectedKey string
	overrideKey string
	summaryKeys []string
	maxSummary  int
	phones      adapters.Adapter
}

// ResolverConfig configures a Resolver
type ResolverConfig struct {
	Headers     []string // Selected header labels in document order
	DetectedKey string   // Result of DetectContactKey
	OverrideKey string   // Explicit contact header from configuration
	SummaryKeys []string
	MaxSummary  int
	Region      string
}

// NewResolver creates a resolver for one data set
func NewResolver(cfg ResolverConfig, registry *adapters.Registry) *Resolver {
	if registry == nil {
		registry = adapters.NewRegistry()
	}
	maxSummary := cfg.MaxSummary
	if maxSummary <= 0 {
		maxSummary = 6
	}
	return &Resolver{
		headers:     cfg.Headers,
		detectedKey: cfg.DetectedKey,
		overrideKey: cfg.OverrideKey,
		summaryKeys: cfg.SummaryKeys,
		maxSummary:  maxSummary,
		phones:      registry.FindAdapter(cfg.Region),
	}
}

// ContactValue returns the record's contact value: the configured key,
// then the detected key, then the first phone-like or e-mail-like value.
func (r *Resolver) ContactValue(rec model.Record) string {
	if r.overrideKey != "" {
		if v := rec.Get(r.overrideKey); v != "" {
			return v
		}
	}
	if r.detectedKey != "" {
		if v := rec.Get(r.detectedKey); v != "" {
			return v
		}
	}
	for _, h := range r.headers {
		v := rec.Get(h)
		if LooksLikePhone(v) || strings.Contains(v, "@") {
			return v
		}
	}
	return ""
}

// Phone extracts the first phone-like run from text and canonicalizes it.
// Returns "" when text holds no phone-like run.
func (r *Resolver) Phone(text string) string {
	m := phoneRe.FindString(text)
	if m == "" {
		return ""
	}
	return r.phones.Canonicalize(nonDigitRe.ReplaceAllString(m, ""))
}

// MessagingLink returns a click-to-chat link for the record's contact,
// or "" when the contact is not phone-like.
func (r *Resolver) MessagingLink(rec model.Record) string {
	phone := r.Phone(r.ContactValue(rec))
	if phone == "" {
		return ""
	}
	return MessagingBaseURL + phone
}

// Summary renders "Label: value" lines for the configured summary keys,
// or for the first non-empty selected fields when none are configured.
func (r *Resolver) Summary(rec model.Record) string {
	var lines []string
	if len(r.summaryKeys) > 0 {
		for _, k := range r.summaryKeys {
			if v := rec.Get(k); v != "" {
				lines = append(lines, fmt.Sprintf("%s: %s", PrettifyLabel(k), v))
			}
		}
		return strings.Join(lines, "\n")
	}

	for _, h := range r.headers {
		v := rec.Get(h)
		if v == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", PrettifyLabel(h), v))
		if len(lines) >= r.maxSummary {
			break
		}
	}
	return strings.Join(lines, "\n")
}
