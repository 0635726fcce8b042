package reconcile_test

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"clerk/internal/reconcile"
	"clerk/internal/reconcile/policy"
)

// =============================================================================
// Engine Test Suite
// =============================================================================
// Runs complete client records through the shipped default policy, covering
// the documented onboarding scenarios end to end.

type EngineSuite struct {
	suite.Suite
	engine *reconcile.Engine
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	engine, err := reconcile.New(policy.Default())
	s.Require().NoError(err)
	s.engine = engine
}

func (s *EngineSuite) evaluate(fields map[string]string) (reconcile.Report, reconcile.Decision) {
	return s.engine.Evaluate(reconcile.NewClientRecord(fields))
}

func (s *EngineSuite) TestDatesInDifferentFormatsAgree() {
	report, decision := s.evaluate(map[string]string{
		"date_of_birth_profile.docx": "1990-05-02",
		"birth_date_passport.png":    "02-May-1990",
	})

	s.Equal(100.0, report.ConsistencyPercentage)
	s.Equal(1, report.Comparisons)
	s.Empty(report.Inconsistencies)
	s.Empty(report.InvalidEntries)
	s.Equal(reconcile.Accept, decision)
}

func (s *EngineSuite) TestMalformedEmailRejects() {
	report, decision := s.evaluate(map[string]string{
		"email_account.pdf": "not-an-email",
	})

	s.Require().Len(report.InvalidEntries, 1)
	entry := report.InvalidEntries[0]
	s.Equal("email_account.pdf", entry.Key.String())
	s.Equal("not-an-email", entry.Value)
	s.Equal("Invalid email", entry.Reason)
	s.Equal(100.0, report.ConsistencyPercentage)
	s.Equal(reconcile.Reject, decision)
}

func (s *EngineSuite) TestGivenNameFragmentAgrees() {
	report, decision := s.evaluate(map[string]string{
		"account_holder_name_account.pdf": "Anna",
		"first_name_profile.docx":         "Anna-Maria",
	})

	s.Equal(1, report.Agreements)
	s.Equal(100.0, report.ConsistencyPercentage)
	s.Equal(reconcile.Accept, decision)
}

func (s *EngineSuite) TestPassportNumbersAgainstReference() {
	report, decision := s.evaluate(map[string]string{
		"passport_number_account.pdf":  "AB1234567",
		"passport_number_passport.png": "ab 1234567",
		"passport_no_profile.docx":     "AB1234568",
	})

	s.Equal(2, report.Comparisons)
	s.Equal(1, report.Agreements)
	s.Equal(50.0, report.ConsistencyPercentage)
	s.Require().Len(report.Inconsistencies, 1)
	inc := report.Inconsistencies[0]
	s.Equal("AB1234567", inc.Reference)
	s.Equal("AB1234568", inc.Compared)
	s.Equal("passport_number", inc.Group.Name)
	s.Empty(report.InvalidEntries)
	s.Equal(reconcile.Reject, decision)
}

func (s *EngineSuite) TestPassportGroupBlendsWithOtherGroups() {
	report, _ := s.evaluate(map[string]string{
		"passport_number_account.pdf":  "AB1234567",
		"passport_number_passport.png": "ab 1234567",
		"passport_no_profile.docx":     "AB1234568",
		"date_of_birth_profile.docx":   "1990-05-02",
		"birth_date_passport.png":      "02-May-1990",
		"nationality_profile.docx":     "Swiss",
		"nationality_description.txt":  "swiss",
	})

	s.Equal(4, report.Comparisons)
	s.Equal(3, report.Agreements)
	s.Equal(75.0, report.ConsistencyPercentage)
}

func (s *EngineSuite) TestEmptyRecordAccepts() {
	report, decision := s.evaluate(map[string]string{})

	s.Equal(100.0, report.ConsistencyPercentage)
	s.Empty(report.Inconsistencies)
	s.Empty(report.InvalidEntries)
	s.Equal(reconcile.Accept, decision)
}

func (s *EngineSuite) TestLoneUnparseableDateIsOnlyInvalid() {
	report, decision := s.evaluate(map[string]string{
		"id_expiry_date_profile.docx": "sometime next year",
	})

	s.Empty(report.Inconsistencies)
	s.Zero(report.Comparisons)
	s.Require().Len(report.InvalidEntries, 1)
	s.Equal("id_expiry_date_profile.docx", report.InvalidEntries[0].Key.String())
	s.Equal("Invalid date format", report.InvalidEntries[0].Reason)
	s.Equal(reconcile.Reject, decision)
}

func (s *EngineSuite) TestUnparseableDateWithCounterpartIsBothInvalidAndInconsistent() {
	report, _ := s.evaluate(map[string]string{
		"date_of_birth_profile.docx": "1990-05-02",
		"birth_date_passport.png":    "02-Mai-1990",
	})

	s.Len(report.Inconsistencies, 1)
	s.Len(report.InvalidEntries, 1)
	s.Equal(0.0, report.ConsistencyPercentage)
}

func (s *EngineSuite) TestAbsentKeysNeverReported() {
	report, _ := s.evaluate(map[string]string{
		"city_account.pdf": "Zurich",
	})

	s.Zero(report.Comparisons)
	s.Empty(report.InvalidEntries)
	s.Equal(100.0, report.ConsistencyPercentage)
}

func (s *EngineSuite) TestPhoneValidationIsOffByDefault() {
	report, _ := s.evaluate(map[string]string{"phone_number_account.pdf": "call me maybe"})
	s.Empty(report.InvalidEntries)

	engine, err := reconcile.New(policy.Default().WithRuleEnabled(policy.PhoneRule, true))
	s.Require().NoError(err)
	report, decision := engine.Evaluate(reconcile.NewClientRecord(map[string]string{"phone_number_account.pdf": "call me maybe"}))
	s.Require().Len(report.InvalidEntries, 1)
	s.Equal("Invalid phone number", report.InvalidEntries[0].Reason)
	s.Equal(reconcile.Reject, decision)
}

func (s *EngineSuite) TestReportJSONShape() {
	report, _ := s.evaluate(map[string]string{
		"passport_number_account.pdf":  "AB1234567",
		"passport_number_passport.png": "AB7654321",
		"email_account.pdf":            "not-an-email",
	})

	raw, err := json.Marshal(report)
	s.Require().NoError(err)

	var decoded struct {
		ConsistencyPercentage float64 `json:"consistency_percentage"`
		Inconsistencies       [][]any `json:"potential_inconsistencies"`
		InvalidData           [][]any `json:"invalid_data"`
	}
	s.Require().NoError(json.Unmarshal(raw, &decoded))

	s.Equal(0.0, decoded.ConsistencyPercentage)
	s.Require().Len(decoded.Inconsistencies, 1)
	s.Require().Len(decoded.Inconsistencies[0], 3)
	s.Equal([]any{"passport_number_account.pdf", "passport_number_passport.png", "passport_no_profile.docx"}, decoded.Inconsistencies[0][0])
	s.Equal("AB1234567", decoded.Inconsistencies[0][1])
	s.Equal("AB7654321", decoded.Inconsistencies[0][2])
	s.Equal([][]any{{"email_account.pdf", "not-an-email", "Invalid email"}}, decoded.InvalidData)
}

func (s *EngineSuite) TestEmptyReportSerializesEmptyArrays() {
	report, _ := s.evaluate(map[string]string{})

	raw, err := json.Marshal(report)
	s.Require().NoError(err)
	s.JSONEq(`{"consistency_percentage":100,"potential_inconsistencies":[],"invalid_data":[]}`, string(raw))
}

func (s *EngineSuite) TestConcurrentEvaluationsAreIndependent() {
	records := []map[string]string{
		{"email_account.pdf": "not-an-email"},
		{"date_of_birth_profile.docx": "1990-05-02", "birth_date_passport.png": "02-May-1990"},
		{"passport_number_account.pdf": "AB1234567", "passport_no_profile.docx": "AB1234568"},
	}
	want := []reconcile.Decision{reconcile.Reject, reconcile.Accept, reconcile.Reject}

	var wg sync.WaitGroup
	errs := make(chan string, 300)
	for i := 0; i < 100; i++ {
		for j, fields := range records {
			wg.Add(1)
			go func(j int, fields map[string]string) {
				defer wg.Done()
				_, got := s.engine.Evaluate(reconcile.NewClientRecord(fields))
				if got != want[j] {
					errs <- string(got)
				}
			}(j, fields)
		}
	}
	wg.Wait()
	close(errs)
	s.Empty(errs)
}

func (s *EngineSuite) TestGivenNamesNeedSimilarityAgainstAccountHolder() {
	report, decision := s.evaluate(map[string]string{
		"account_holder_name_account.pdf": "Anna",
		"given_names_passport.png":        "Anna Maria Luisa",
	})

	s.Equal(1, report.Comparisons)
	s.Equal(0, report.Agreements)
	s.Require().Len(report.Inconsistencies, 1)
	s.Equal("given_names_passport.png", report.Inconsistencies[0].ComparedKey.String())
	s.Equal(reconcile.Reject, decision)
}

func (s *EngineSuite) TestFirstNameFragmentStillAgrees() {
	report, decision := s.evaluate(map[string]string{
		"account_holder_name_account.pdf": "Anna",
		"first_name_profile.docx":         "Anna-Maria",
		"given_names_passport.png":        "Anna",
	})

	s.Equal(2, report.Comparisons)
	s.Equal(2, report.Agreements)
	s.Equal(reconcile.Accept, decision)
}

func (s *EngineSuite) TestPunctuatedPassportNumberAgrees() {
	report, decision := s.evaluate(map[string]string{
		"passport_number_account.pdf":  "AB1234567",
		"passport_number_passport.png": "AB-123.4567",
	})

	s.Equal(1, report.Comparisons)
	s.Equal(1, report.Agreements)
	s.Empty(report.InvalidEntries)
	s.Equal(reconcile.Accept, decision)
}
