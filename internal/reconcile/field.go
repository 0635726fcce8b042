package reconcile

import (
	"fmt"
	"strings"
)

// Kind selects how an attribute's values are canonicalized and compared.
type Kind string

const (
	KindGeneric    Kind = "generic"
	KindName       Kind = "name"
	KindDate       Kind = "date"
	KindIdentifier Kind = "identifier"
)

// ParseKind converts a string into a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindGeneric, KindName, KindDate, KindIdentifier:
		return k, nil
	case "":
		return KindGeneric, nil
	default:
		return "", fmt.Errorf("%w: unknown attribute kind %q", ErrInvalidPolicy, s)
	}
}

// Attribute is a semantic field name together with its comparison behavior.
// Partial marks given-name style attributes where one value may legitimately
// be a fragment of the other ("anna" vs "anna-maria").
type Attribute struct {
	Name    string
	Kind    Kind
	Partial bool
}

// Catalog resolves attribute names to Attributes. Names that were never
// registered are classified from their spelling.
type Catalog map[string]Attribute

// Lookup returns the registered attribute or a classified fallback.
func (c Catalog) Lookup(name string) Attribute {
	if attr, ok := c[name]; ok {
		return attr
	}
	return classify(name)
}

// classify keeps the legacy substring rules for attributes nobody registered.
func classify(name string) Attribute {
	attr := Attribute{Name: name, Kind: KindGeneric}
	switch {
	case strings.Contains(name, "date"):
		attr.Kind = KindDate
	case strings.Contains(name, "name"):
		attr.Kind = KindName
	}
	attr.Partial = strings.Contains(name, "first_name")
	return attr
}

// DocumentKind identifies which class of client document a value came from.
type DocumentKind string

const (
	DocumentAccountForm   DocumentKind = "account_form"
	DocumentPassportScan  DocumentKind = "passport_scan"
	DocumentClientProfile DocumentKind = "client_profile"
	DocumentDescription   DocumentKind = "description"
	DocumentUnknown       DocumentKind = "unknown"
)

// FieldKey ties an attribute to the document it was read from.
type FieldKey struct {
	Attribute string
	Source    string
}

// ParseFieldKey splits "<attribute>_<source>" at the last underscore.
// Keys without an underscore have no source.
func ParseFieldKey(s string) FieldKey {
	i := strings.LastIndex(s, "_")
	if i <= 0 || i == len(s)-1 {
		return FieldKey{Attribute: s}
	}
	return FieldKey{Attribute: s[:i], Source: s[i+1:]}
}

// MustKeys parses each string with ParseFieldKey.
func MustKeys(keys ...string) []FieldKey {
	out := make([]FieldKey, 0, len(keys))
	for _, k := range keys {
		out = append(out, ParseFieldKey(k))
	}
	return out
}

func (k FieldKey) String() string {
	if k.Source == "" {
		return k.Attribute
	}
	return k.Attribute + "_" + k.Source
}

// DocumentKind maps the source file name to a document class.
func (k FieldKey) DocumentKind() DocumentKind {
	base := strings.ToLower(k.Source)
	if dot := strings.LastIndex(base, "."); dot >= 0 {
		base = base[:dot]
	}
	switch base {
	case "account":
		return DocumentAccountForm
	case "passport":
		return DocumentPassportScan
	case "profile":
		return DocumentClientProfile
	case "description":
		return DocumentDescription
	default:
		return DocumentUnknown
	}
}
