package matcher

import (
	"fmt"
	"regexp"
	"strings"

	"golang-transfer-reconciler/internal/models"
	"golang-transfer-reconciler/pkg/errors"
)

// PatternDirection restricts which side of a transfer a pattern describes
type PatternDirection string

const (
	DirectionOut PatternDirection = "out"
	DirectionIn  PatternDirection = "in"
	DirectionAny PatternDirection = "any"
)

// allows reports whether a transaction's sign agrees with the direction.
// Zero amounts only satisfy DirectionAny.
func (d PatternDirection) allows(tx *models.Transaction) bool {
	switch d {
	case DirectionOut:
		return tx.IsOutgoing()
	case DirectionIn:
		return tx.IsIncoming()
	default:
		return true
	}
}

// NamePlaceholder is replaced by the configured display name
const NamePlaceholder = "{name}"

// TransferPattern is one configurable transfer-intent regular expression.
// Matching is case-insensitive.
type TransferPattern struct {
	ID        string             `json:"id" yaml:"id" mapstructure:"id"`
	Kind      models.PatternKind `json:"kind" yaml:"kind" mapstructure:"kind"`
	Direction PatternDirection   `json:"direction" yaml:"direction" mapstructure:"direction"`
	Regex     string             `json:"regex" yaml:"regex" mapstructure:"regex"`
	Banks     []models.BankTag   `json:"banks,omitempty" yaml:"banks,omitempty" mapstructure:"banks"`
}

// Validate checks the static shape of the pattern
func (p TransferPattern) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("pattern id cannot be empty")
	}
	if strings.TrimSpace(p.Regex) == "" {
		return fmt.Errorf("pattern %s has an empty regex", p.ID)
	}
	switch p.Kind {
	case models.PatternKindConversion, models.PatternKindNamed, models.PatternKindGeneric:
	default:
		return fmt.Errorf("pattern %s has invalid kind: %s", p.ID, p.Kind)
	}
	switch p.Direction {
	case DirectionOut, DirectionIn, DirectionAny:
	default:
		return fmt.Errorf("pattern %s has invalid direction: %s", p.ID, p.Direction)
	}
	if p.Kind == models.PatternKindNamed && !strings.Contains(p.Regex, NamePlaceholder) {
		return fmt.Errorf("named pattern %s must contain %s", p.ID, NamePlaceholder)
	}
	return nil
}

// DefaultTransferPatterns returns the built-in pattern list. Order matters:
// the first matching pattern wins.
func DefaultTransferPatterns() []TransferPattern {
	return []TransferPattern{
		{ID: "conversion_explicit", Kind: models.PatternKindConversion, Direction: DirectionAny,
			Regex: `converted\s+[\d.,]+\s*[a-z]{3}\s+(to|into)\s+[\d.,]+\s*[a-z]{3}`},
		{ID: "conversion_balance", Kind: models.PatternKindConversion, Direction: DirectionAny,
			Regex: `balance after converting`},
		{ID: "conversion_exchange", Kind: models.PatternKindConversion, Direction: DirectionAny,
			Regex: `exchange(d)?\s+from\s+[a-z]{3}\s+to\s+[a-z]{3}`},
		{ID: "conversion_keyword", Kind: models.PatternKindConversion, Direction: DirectionAny,
			Regex: `\bconverted\s+[a-z]{3}\b`},

		{ID: "named_sent", Kind: models.PatternKindNamed, Direction: DirectionOut,
			Regex: `sent\s+(money\s+)?to\s+{name}`},
		{ID: "named_transfer_to", Kind: models.PatternKindNamed, Direction: DirectionOut,
			Regex: `transfer\s+to\s+{name}`},
		{ID: "named_incoming", Kind: models.PatternKindNamed, Direction: DirectionIn,
			Regex: `incoming\s+fund\s+transfer\s+from\s+{name}`},
		{ID: "named_transfer_from", Kind: models.PatternKindNamed, Direction: DirectionIn,
			Regex: `(fund\s+)?transfer\s+from\s+{name}`},
		{ID: "named_received", Kind: models.PatternKindNamed, Direction: DirectionIn,
			Regex: `received\s+(money\s+)?from\s+{name}`},

		{ID: "generic_incoming", Kind: models.PatternKindGeneric, Direction: DirectionIn,
			Regex: `incoming\s+fund\s+transfer`},
		{ID: "generic_fund_transfer", Kind: models.PatternKindGeneric, Direction: DirectionIn,
			Regex: `fund\s+transfer\s+from`},
		{ID: "generic_transfer_to", Kind: models.PatternKindGeneric, Direction: DirectionOut,
			Regex: `\btransfer\s+to\b`},
		{ID: "generic_transfer_from", Kind: models.PatternKindGeneric, Direction: DirectionIn,
			Regex: `\btransfer\s+from\b`},
		{ID: "generic_sent", Kind: models.PatternKindGeneric, Direction: DirectionOut,
			Regex: `sent\s+money\s+to`},
	}
}

// DefaultConversionExtractors returns the regular expressions that pull the
// four conversion fields out of a description. Each must define the named
// groups from_amount, from_currency, to_amount and to_currency.
func DefaultConversionExtractors() []string {
	return []string{
		`(?i:converted)\s+(?P<from_amount>\d[\d.,]*)\s*(?P<from_currency>[A-Z]{3})\s+(?i:to|into|for)\s+(?P<to_amount>\d[\d.,]*)\s*(?P<to_currency>[A-Z]{3})`,
		`(?i:exchanged?)\s+(?P<from_amount>\d[\d.,]*)\s*(?P<from_currency>[A-Z]{3})\s+(?i:to|for)\s+(?P<to_amount>\d[\d.,]*)\s*(?P<to_currency>[A-Z]{3})`,
		`(?P<from_currency>[A-Z]{3})\s+(?P<from_amount>\d[\d.,]*)\s*(?:->|→)\s*(?P<to_currency>[A-Z]{3})\s+(?P<to_amount>\d[\d.,]*)`,
	}
}

// DefaultTransferKeywords returns the substrings that make a large unmatched
// transaction look like a transfer
func DefaultTransferKeywords() []string {
	return []string{
		"transfer",
		"sent money",
		"received money",
		"converted",
		"exchange",
		"remittance",
		"ibft",
		"withdrawal to",
		"top up",
	}
}

var extractorGroups = []string{"from_amount", "from_currency", "to_amount", "to_currency"}

type compiledPattern struct {
	TransferPattern
	re    *regexp.Regexp
	banks map[models.BankTag]bool
}

func (cp *compiledPattern) appliesTo(tx *models.Transaction) bool {
	if len(cp.banks) > 0 && !cp.banks[tx.BankTag] {
		return false
	}
	return cp.re.MatchString(tx.Description)
}

// PatternSet is the compiled form of the pattern-related configuration
type PatternSet struct {
	patterns   []*compiledPattern
	extractors []*regexp.Regexp
	keywords   []string
	skipped    []string
}

// CompilePatterns compiles patterns, extractors and keywords. Named patterns are
// skipped when no display name is configured. A regex that fails to compile is
// a configuration error.
func CompilePatterns(config *MatchingConfig) (*PatternSet, error) {
	ps := &PatternSet{}
	quotedName := regexp.QuoteMeta(strings.TrimSpace(config.DisplayName))

	for _, p := range config.Patterns {
		expr := p.Regex
		if strings.Contains(expr, NamePlaceholder) {
			if quotedName == "" {
				ps.skipped = append(ps.skipped, p.ID)
				continue
			}
			expr = strings.ReplaceAll(expr, NamePlaceholder, quotedName)
		}

		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidPattern, p.ID, p.Regex, err)
		}

		cp := &compiledPattern{TransferPattern: p, re: re}
		if len(p.Banks) > 0 {
			cp.banks = make(map[models.BankTag]bool, len(p.Banks))
			for _, b := range p.Banks {
				cp.banks[b] = true
			}
		}
		ps.patterns = append(ps.patterns, cp)
	}

	for i, expr := range config.ConversionExtractors {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidPattern, fmt.Sprintf("conversion_extractors[%d]", i), expr, err)
		}
		for _, group := range extractorGroups {
			if re.SubexpIndex(group) < 0 {
				return nil, errors.ConfigurationError(errors.CodeInvalidPattern, fmt.Sprintf("conversion_extractors[%d]", i), expr,
					fmt.Errorf("missing named group %q", group))
			}
		}
		ps.extractors = append(ps.extractors, re)
	}

	for _, kw := range config.TransferKeywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			ps.keywords = append(ps.keywords, kw)
		}
	}

	return ps, nil
}

// Match returns the first pattern whose direction agrees with the amount sign
// and that matches the transaction description
func (ps *PatternSet) Match(tx *models.Transaction) (TransferPattern, bool) {
	for _, cp := range ps.patterns {
		if cp.Direction.allows(tx) && cp.appliesTo(tx) {
			return cp.TransferPattern, true
		}
	}
	return TransferPattern{}, false
}

// MatchesNamed reports whether any named pattern for the given direction matches
func (ps *PatternSet) MatchesNamed(tx *models.Transaction, direction PatternDirection) bool {
	for _, cp := range ps.patterns {
		if cp.Kind != models.PatternKindNamed {
			continue
		}
		if cp.Direction != direction && cp.Direction != DirectionAny {
			continue
		}
		if cp.appliesTo(tx) {
			return true
		}
	}
	return false
}

// HasConversionKeyword reports whether any conversion pattern matches
func (ps *PatternSet) HasConversionKeyword(tx *models.Transaction) bool {
	for _, cp := range ps.patterns {
		if cp.Kind == models.PatternKindConversion && cp.appliesTo(tx) {
			return true
		}
	}
	return false
}

// HasTransferKeyword reports whether the description contains a transfer keyword
func (ps *PatternSet) HasTransferKeyword(tx *models.Transaction) bool {
	description := strings.ToLower(tx.Description)
	for _, kw := range ps.keywords {
		if strings.Contains(description, kw) {
			return true
		}
	}
	return false
}

// Patterns returns the effective patterns in evaluation order
func (ps *PatternSet) Patterns() []TransferPattern {
	out := make([]TransferPattern, 0, len(ps.patterns))
	for _, cp := range ps.patterns {
		out = append(out, cp.TransferPattern)
	}
	return out
}

// Skipped returns the ids of named patterns dropped for lack of a display name
func (ps *PatternSet) Skipped() []string {
	return append([]string(nil), ps.skipped...)
}
