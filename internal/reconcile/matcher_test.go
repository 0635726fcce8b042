package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCatalog = Catalog{
	"first_name":          {Name: "first_name", Kind: KindName, Partial: true},
	"account_holder_name": {Name: "account_holder_name", Kind: KindName},
	"surname":             {Name: "surname", Kind: KindName},
	"date_of_birth":       {Name: "date_of_birth", Kind: KindDate},
	"birth_date":          {Name: "birth_date", Kind: KindDate},
	"passport_number":     {Name: "passport_number", Kind: KindIdentifier},
	"city":                {Name: "city", Kind: KindGeneric},
}

func group(name string, keys ...string) MatchGroup {
	return MatchGroup{Name: name, Keys: MustKeys(keys...)}
}

func TestMatcherEvaluate(t *testing.T) {
	m := NewMatcher(testCatalog, DefaultSimilarityThreshold)

	t.Run("fewer than two present members contributes nothing", func(t *testing.T) {
		g := group("dob", "date_of_birth_profile.docx", "birth_date_passport.png")
		rec := NewClientRecord(map[string]string{"date_of_birth_profile.docx": "garbage"})

		out := m.Evaluate(g, rec)
		assert.Zero(t, out.Comparisons)
		assert.Zero(t, out.Agreements)
		assert.Empty(t, out.Inconsistencies)
	})

	t.Run("dates in different formats agree", func(t *testing.T) {
		g := group("dob", "date_of_birth_profile.docx", "birth_date_passport.png")
		rec := NewClientRecord(map[string]string{
			"date_of_birth_profile.docx": "1990-05-02",
			"birth_date_passport.png":    "02-May-1990",
		})

		out := m.Evaluate(g, rec)
		assert.Equal(t, 1, out.Comparisons)
		assert.Equal(t, 1, out.Agreements)
	})

	t.Run("unparseable date always disagrees", func(t *testing.T) {
		g := group("dob", "date_of_birth_profile.docx", "birth_date_passport.png")
		rec := NewClientRecord(map[string]string{
			"date_of_birth_profile.docx": "unknown",
			"birth_date_passport.png":    "unknown",
		})

		out := m.Evaluate(g, rec)
		assert.Equal(t, 1, out.Comparisons)
		assert.Zero(t, out.Agreements)
		require.Len(t, out.Inconsistencies, 1)
		assert.Equal(t, "unknown", out.Inconsistencies[0].Reference)
	})

	t.Run("first present member is the reference", func(t *testing.T) {
		g := group("city", "city_account.pdf", "city_profile.docx", "city_description.txt")
		rec := NewClientRecord(map[string]string{
			"city_profile.docx":    "Basel",
			"city_description.txt": "Geneva",
		})

		out := m.Evaluate(g, rec)
		require.Len(t, out.Inconsistencies, 1)
		inc := out.Inconsistencies[0]
		assert.Equal(t, "city_profile.docx", inc.ReferenceKey.String())
		assert.Equal(t, "Basel", inc.Reference)
		assert.Equal(t, "city_description.txt", inc.ComparedKey.String())
		assert.Equal(t, "Geneva", inc.Compared)
		assert.Equal(t, g.KeyStrings(), inc.Group.KeyStrings())
	})

	t.Run("given name fragment agrees through partial rule", func(t *testing.T) {
		g := group("first", "account_holder_name_account.pdf", "first_name_profile.docx")
		rec := NewClientRecord(map[string]string{
			"account_holder_name_account.pdf": "Anna",
			"first_name_profile.docx":         "Anna-Maria",
		})

		out := m.Evaluate(g, rec)
		assert.Equal(t, 1, out.Agreements)
	})

	t.Run("empty given name is a fragment of any name", func(t *testing.T) {
		g := group("first", "account_holder_name_account.pdf", "first_name_profile.docx")
		rec := NewClientRecord(map[string]string{
			"account_holder_name_account.pdf": "",
			"first_name_profile.docx":         "Anna",
		})

		out := m.Evaluate(g, rec)
		assert.Equal(t, 1, out.Comparisons)
		assert.Equal(t, 1, out.Agreements)
	})

	t.Run("fragment without partial attribute needs similarity", func(t *testing.T) {
		g := group("last", "surname_passport.png", "account_holder_name_account.pdf")
		rec := NewClientRecord(map[string]string{
			"surname_passport.png":            "Anna",
			"account_holder_name_account.pdf": "Anna-Maria",
		})

		out := m.Evaluate(g, rec)
		assert.Zero(t, out.Agreements)
	})

	t.Run("small typo passes similarity threshold", func(t *testing.T) {
		g := group("city", "city_account.pdf", "city_profile.docx")
		rec := NewClientRecord(map[string]string{
			"city_account.pdf":  "Lausanne",
			"city_profile.docx": "Lausane",
		})

		out := m.Evaluate(g, rec)
		assert.Equal(t, 1, out.Agreements)
	})

	t.Run("identifiers agree only when equal", func(t *testing.T) {
		g := group("passport", "passport_number_account.pdf", "passport_number_passport.png", "passport_number_profile.docx")
		rec := NewClientRecord(map[string]string{
			"passport_number_account.pdf":  "AB1234567",
			"passport_number_passport.png": "ab 1234567",
			"passport_number_profile.docx": "AB1234568",
		})

		out := m.Evaluate(g, rec)
		assert.Equal(t, 2, out.Comparisons)
		assert.Equal(t, 1, out.Agreements)
		require.Len(t, out.Inconsistencies, 1)
		assert.Equal(t, "AB1234568", out.Inconsistencies[0].Compared)
	})

	t.Run("disabled group is skipped", func(t *testing.T) {
		g := group("city", "city_account.pdf", "city_profile.docx")
		g.Disabled = true
		rec := NewClientRecord(map[string]string{
			"city_account.pdf":  "Bern",
			"city_profile.docx": "Oslo",
		})

		out := m.Evaluate(g, rec)
		assert.Zero(t, out.Comparisons)
	})

	t.Run("non-reference members are never compared with each other", func(t *testing.T) {
		g := group("city", "city_account.pdf", "city_profile.docx", "city_description.txt")
		rec := NewClientRecord(map[string]string{
			"city_account.pdf":     "Bern",
			"city_profile.docx":    "Oslo",
			"city_description.txt": "Oslo",
		})

		out := m.Evaluate(g, rec)
		assert.Equal(t, 2, out.Comparisons)
		assert.Zero(t, out.Agreements)
	})
}

func TestMatcherThresholdIsConfigurable(t *testing.T) {
	g := group("city", "city_account.pdf", "city_profile.docx")
	rec := NewClientRecord(map[string]string{
		"city_account.pdf":  "Lausanne",
		"city_profile.docx": "Lausane",
	})

	strict := NewMatcher(testCatalog, 0.99)
	assert.Zero(t, strict.Evaluate(g, rec).Agreements)

	lenient := NewMatcher(testCatalog, 0.5)
	assert.Equal(t, 1, lenient.Evaluate(g, rec).Agreements)
}
