package prescription_test

import (
	"context"
	"errors"
	"testing"

	"github.com/psychrx/go-rxguard/internal/domain/catalog"
	"github.com/psychrx/go-rxguard/internal/domain/dosage"
	"github.com/psychrx/go-rxguard/internal/domain/interaction"
	"github.com/psychrx/go-rxguard/internal/domain/policy"
	"github.com/psychrx/go-rxguard/internal/domain/prescription"
	"github.com/psychrx/go-rxguard/internal/infrastructure/memory"
)

func findMedication(t *testing.T, name string) *catalog.Medication {
	t.Helper()
	for _, m := range memory.SeedMedications() {
		if m.Name == name {
			return m
		}
	}
	t.Fatalf("medication %s not in seed data", name)
	return nil
}

func newTestSession(t *testing.T, region catalog.Region, patient *prescription.Patient) *prescription.Session {
	t.Helper()
	ctx := context.Background()

	regions := memory.NewRegionConfigStore(memory.DefaultRegionConfigs())
	pol, err := policy.ForRegion(ctx, regions, region)
	if err != nil {
		t.Fatalf("load policy: %v", err)
	}
	checker := interaction.NewChecker(memory.NewInteractionStore(memory.SeedInteractions()))

	sess, err := prescription.NewSession("sess-test", patient, pol, checker)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return sess
}

func addCompleteLine(t *testing.T, sess *prescription.Session, medName string) *prescription.Line {
	t.Helper()
	ctx := context.Background()

	line, err := sess.AddLine()
	if err != nil {
		t.Fatalf("add line: %v", err)
	}
	if err := sess.SelectMedication(ctx, line.ID, findMedication(t, medName)); err != nil {
		t.Fatalf("select %s: %v", medName, err)
	}
	if err := sess.SetFrequency(line.ID, dosage.OnceDaily); err != nil {
		t.Fatalf("set frequency: %v", err)
	}
	if err := sess.SetDuration(line.ID, 30); err != nil {
		t.Fatalf("set duration: %v", err)
	}
	return line
}

func fillUSRequirements(t *testing.T, sess *prescription.Session) {
	t.Helper()
	if err := sess.SetDiagnosis("Major depressive disorder"); err != nil {
		t.Fatalf("set diagnosis: %v", err)
	}
	if err := sess.SetIdentifier(policy.IdentifierDEA, "AB1234567"); err != nil {
		t.Fatalf("set dea: %v", err)
	}
	if err := sess.SetIdentifier(policy.IdentifierNPI, "1234567890"); err != nil {
		t.Fatalf("set npi: %v", err)
	}
}

func TestContraindicatedPairBlocksSubmission(t *testing.T) {
	ctx := context.Background()
	patient := &prescription.Patient{ID: "pat-100", Name: "Alex Rivera"}
	sess := newTestSession(t, catalog.RegionUS, patient)

	addCompleteLine(t, sess, "Sertraline")
	maoiLine := addCompleteLine(t, sess, "Tranylcypromine")
	fillUSRequirements(t, sess)

	result, err := sess.Validate(ctx)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !result.Blocked() {
		t.Fatal("expected contraindicated pair to block")
	}
	if sess.Status() != prescription.StatusBlocked {
		t.Errorf("expected blocked status, got %s", sess.Status())
	}

	var foundReason bool
	for _, r := range result.Reasons {
		if r.Code == prescription.ReasonContraindicated {
			foundReason = true
		}
	}
	if !foundReason {
		t.Errorf("expected contraindicated reason, got %v", result.Reasons)
	}

	if _, err := sess.Submit(ctx); err == nil {
		t.Fatal("expected blocked submit to fail")
	} else {
		var verr *prescription.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %T: %v", err, err)
		}
	}

	// Removing the offending line clears the hard stop.
	if err := sess.RemoveLine(ctx, maoiLine.ID); err != nil {
		t.Fatalf("remove line: %v", err)
	}
	rx, err := sess.Submit(ctx)
	if err != nil {
		t.Fatalf("submit after fix: %v", err)
	}
	if len(rx.Lines) != 1 || rx.Lines[0].MedicationName != "Sertraline" {
		t.Errorf("unexpected snapshot lines: %+v", rx.Lines)
	}
	if sess.Status() != prescription.StatusSubmitted {
		t.Errorf("expected submitted status, got %s", sess.Status())
	}

	// The session is terminal after submission.
	if _, err := sess.AddLine(); !errors.Is(err, prescription.ErrSubmitted) {
		t.Errorf("expected ErrSubmitted on post-submit edit, got %v", err)
	}
}

func TestValidationReportsAllReasonsAtOnce(t *testing.T) {
	ctx := context.Background()
	patient := &prescription.Patient{ID: "pat-101", Name: "Sam Okafor"}
	sess := newTestSession(t, catalog.RegionUS, patient)

	line, err := sess.AddLine()
	if err != nil {
		t.Fatalf("add line: %v", err)
	}
	_ = line // no medication, no diagnosis, no identifiers

	result, err := sess.Validate(ctx)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !result.Blocked() {
		t.Fatal("expected block")
	}

	codes := map[prescription.ReasonCode]bool{}
	for _, r := range result.Reasons {
		codes[r.Code] = true
	}
	for _, want := range []prescription.ReasonCode{
		prescription.ReasonMissingDiagnosis,
		prescription.ReasonMissingIdentifier,
		prescription.ReasonIncompleteLine,
	} {
		if !codes[want] {
			t.Errorf("expected reason %s in %v", want, result.Reasons)
		}
	}
	// Both US identifiers are missing and each gets its own reason.
	var identifierReasons int
	for _, r := range result.Reasons {
		if r.Code == prescription.ReasonMissingIdentifier {
			identifierReasons++
		}
	}
	if identifierReasons != 2 {
		t.Errorf("expected 2 identifier reasons, got %d", identifierReasons)
	}
}

func TestRefillsReclampOnMedicationChange(t *testing.T) {
	ctx := context.Background()
	patient := &prescription.Patient{ID: "pat-102", Name: "Dana Weiss"}
	sess := newTestSession(t, catalog.RegionUS, patient)

	line := addCompleteLine(t, sess, "Sertraline")
	if err := sess.SetRefills(line.ID, 5); err != nil {
		t.Fatalf("set refills: %v", err)
	}
	if line.Refills != 5 {
		t.Fatalf("expected 5 refills on unscheduled med, got %d", line.Refills)
	}

	// Switching to a US schedule II medication re-clamps to zero.
	if err := sess.SelectMedication(ctx, line.ID, findMedication(t, "Methylphenidate")); err != nil {
		t.Fatalf("select methylphenidate: %v", err)
	}
	if line.Refills != 0 {
		t.Errorf("expected refills re-clamped to 0, got %d", line.Refills)
	}
	if !line.PaperOnly {
		t.Error("expected paper-only flag without EPCS support")
	}
}

func TestDurationEditReplacesQuantity(t *testing.T) {
	patient := &prescription.Patient{ID: "pat-103", Name: "Kim Lee"}
	sess := newTestSession(t, catalog.RegionUS, patient)

	line := addCompleteLine(t, sess, "Sertraline")
	if err := sess.SetFrequency(line.ID, dosage.TwiceDaily); err != nil {
		t.Fatalf("set frequency: %v", err)
	}

	if err := sess.SetQuantity(line.ID, 99); err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if err := sess.SetDuration(line.ID, 10); err != nil {
		t.Fatalf("set duration: %v", err)
	}
	if line.Quantity != 20 {
		t.Errorf("duration edit must replace quantity with recommendation 20, got %d", line.Quantity)
	}

	// Any other edit leaves the entered quantity authoritative.
	if err := sess.SetQuantity(line.ID, 90); err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if err := sess.SetFrequency(line.ID, dosage.OnceDaily); err != nil {
		t.Fatalf("set frequency: %v", err)
	}
	if line.Quantity != 90 {
		t.Errorf("frequency edit must not touch quantity, got %d", line.Quantity)
	}
}

func TestActiveMedicationsJoinInteractionCheck(t *testing.T) {
	ctx := context.Background()
	patient := &prescription.Patient{
		ID:                "pat-104",
		Name:              "Noor Haddad",
		ActiveMedications: []string{"Lithium Carbonate"},
	}
	sess := newTestSession(t, catalog.RegionUS, patient)

	line, err := sess.AddLine()
	if err != nil {
		t.Fatalf("add line: %v", err)
	}
	if err := sess.SelectMedication(ctx, line.ID, findMedication(t, "Fluoxetine")); err != nil {
		t.Fatalf("select fluoxetine: %v", err)
	}

	found := sess.Interactions()
	if len(found) != 1 {
		t.Fatalf("expected 1 interaction with active medication, got %d", len(found))
	}
	if found[0].Severity != interaction.SeverityModerate {
		t.Errorf("expected moderate severity, got %s", found[0].Severity)
	}
}

func TestAllergyWarningIsAdvisoryOnly(t *testing.T) {
	ctx := context.Background()
	patient := &prescription.Patient{
		ID:        "pat-105",
		Name:      "Mia Torres",
		Allergies: []string{"sertraline"},
	}
	sess := newTestSession(t, catalog.RegionUS, patient)

	addCompleteLine(t, sess, "Sertraline")
	fillUSRequirements(t, sess)

	result, err := sess.Validate(ctx)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if result.Blocked() {
		t.Fatalf("allergy warning must not block: %v", result.Reasons)
	}
	if len(result.AllergyWarnings) != 1 {
		t.Fatalf("expected 1 allergy warning, got %d", len(result.AllergyWarnings))
	}
	if result.AllergyWarnings[0].Message != "Sertraline may contain sertraline" {
		t.Errorf("unexpected message: %q", result.AllergyWarnings[0].Message)
	}
	if sess.Status() != prescription.StatusReady {
		t.Errorf("expected ready status, got %s", sess.Status())
	}
}

func TestEditAfterValidationResetsVerdict(t *testing.T) {
	ctx := context.Background()
	patient := &prescription.Patient{ID: "pat-106", Name: "Ola Persson"}
	sess := newTestSession(t, catalog.RegionUS, patient)

	line := addCompleteLine(t, sess, "Sertraline")
	fillUSRequirements(t, sess)

	if _, err := sess.Validate(ctx); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if sess.Status() != prescription.StatusReady {
		t.Fatalf("expected ready, got %s", sess.Status())
	}

	if err := sess.SetQuantity(line.ID, 10); err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if sess.Status() != prescription.StatusDraft {
		t.Errorf("edit must reset verdict to draft, got %s", sess.Status())
	}
}

func TestSigDerivationAndOverride(t *testing.T) {
	patient := &prescription.Patient{ID: "pat-107", Name: "Ben Carter"}
	sess := newTestSession(t, catalog.RegionUS, patient)

	line := addCompleteLine(t, sess, "Sertraline")
	if err := sess.SetDosage(line.ID, "50mg"); err != nil {
		t.Fatalf("set dosage: %v", err)
	}
	if line.Sig != "Take 50mg by oral route once daily" {
		t.Errorf("unexpected derived sig: %q", line.Sig)
	}

	if err := sess.SetSig(line.ID, "Take with food at bedtime"); err != nil {
		t.Fatalf("set sig: %v", err)
	}
	if err := sess.SetFrequency(line.ID, dosage.TwiceDaily); err != nil {
		t.Fatalf("set frequency: %v", err)
	}
	if line.Sig != "Take with food at bedtime" {
		t.Errorf("override must survive later edits, got %q", line.Sig)
	}
}

func TestEURegionRequiresLicenseOnly(t *testing.T) {
	ctx := context.Background()
	patient := &prescription.Patient{ID: "pat-108", Name: "Elif Kaya"}
	sess := newTestSession(t, catalog.RegionEU, patient)

	addCompleteLine(t, sess, "Sertraline")
	if err := sess.SetDiagnosis("Generalized anxiety disorder"); err != nil {
		t.Fatalf("set diagnosis: %v", err)
	}

	result, err := sess.Validate(ctx)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !result.Blocked() {
		t.Fatal("expected missing license to block")
	}

	if err := sess.SetIdentifier(policy.IdentifierLicense, "EU-998877"); err != nil {
		t.Fatalf("set license: %v", err)
	}
	result, err = sess.Validate(ctx)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if result.Blocked() {
		t.Errorf("expected ready after license set, got %v", result.Reasons)
	}
}

func TestSnapshotCarriesWarningsAndEvents(t *testing.T) {
	ctx := context.Background()
	patient := &prescription.Patient{ID: "pat-109", Name: "Ravi Patel"}
	sess := newTestSession(t, catalog.RegionUS, patient)

	line := addCompleteLine(t, sess, "Sertraline")
	if err := sess.SetRefills(line.ID, 5); err != nil {
		t.Fatalf("set refills: %v", err)
	}
	fillUSRequirements(t, sess)

	rx, err := sess.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// 5 refills exceeds the advisory ceiling of 3 and rides along as a warning.
	if len(rx.Warnings) == 0 {
		t.Error("expected advisory warning in snapshot")
	}
	if rx.PatientID != patient.ID || rx.Region != catalog.RegionUS {
		t.Errorf("unexpected snapshot header: %+v", rx)
	}
	if rx.Identifiers[policy.IdentifierDEA] != "AB1234567" {
		t.Errorf("expected identifiers in snapshot, got %v", rx.Identifiers)
	}

	var sawSubmitted bool
	for _, ev := range sess.Changes() {
		if ev.EventType == prescription.EventPrescriptionSubmitted {
			sawSubmitted = true
		}
	}
	if !sawSubmitted {
		t.Error("expected PrescriptionSubmitted event among changes")
	}
}
