package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/cucumber/godog"
)

// RegisterSteps registers all step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Background steps
	ctx.Step(`^a ledger administered by agent "([^"]*)"$`, tc.ledgerAdministeredBy)
	ctx.Step(`^agent "([^"]*)" joins the ledger$`, tc.agentJoins)

	// Identity and issuer steps
	ctx.Step(`^"([^"]*)" registers an identity named "([^"]*)"$`, tc.registerIdentity)
	ctx.Step(`^"([^"]*)" approves "([^"]*)" as an issuer$`, tc.approveIssuer)
	ctx.Step(`^"([^"]*)" revokes issuer "([^"]*)"$`, tc.revokeIssuer)

	// Credential steps
	ctx.Step(`^"([^"]*)" requests a credential from "([^"]*)" with data:$`, tc.requestCredential)
	ctx.Step(`^"([^"]*)" approves the first pending request with credential:$`, tc.approveFirstRequest)
	ctx.Step(`^"([^"]*)" rejects the first pending request$`, tc.rejectFirstRequest)
	ctx.Step(`^"([^"]*)" issues a credential to "([^"]*)" with data:$`, tc.issueCredential)
	ctx.Step(`^"([^"]*)" revokes credential (\d+) of "([^"]*)"$`, tc.revokeCredential)
	ctx.Step(`^"([^"]*)" fetches the profile of "([^"]*)"$`, tc.fetchProfile)
	ctx.Step(`^"([^"]*)" lists the credentials of "([^"]*)"$`, tc.listCredentials)

	// Consent and disclosure steps
	ctx.Step(`^"([^"]*)" grants "([^"]*)" consent for "([^"]*)"$`, tc.grantConsent)
	ctx.Step(`^"([^"]*)" revokes consent for "([^"]*)"$`, tc.revokeConsent)
	ctx.Step(`^"([^"]*)" discloses "([^"]*)" to "([^"]*)"$`, tc.disclose)
	ctx.Step(`^"([^"]*)" verifies the last proof expecting signer "([^"]*)"$`, tc.verifyLastProof)
	ctx.Step(`^"([^"]*)" verifies the last proof with tampered data expecting signer "([^"]*)"$`, tc.verifyTamperedProof)

	// Assertion steps
	ctx.Step(`^the response status should be (\d+)$`, tc.responseStatusShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, tc.responseShouldContain)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, tc.responseFieldShouldEqual)
	ctx.Step(`^the response should list (\d+) credentials?$`, tc.responseShouldListCredentials)
	ctx.Step(`^the proof should disclose only "([^"]*)"$`, tc.proofShouldDiscloseOnly)
}

func (tc *TestContext) ledgerAdministeredBy(_ context.Context, name string) error {
	return tc.startAdmin(name)
}

func (tc *TestContext) agentJoins(_ context.Context, name string) error {
	return tc.start(name, "")
}

func (tc *TestContext) registerIdentity(_ context.Context, name, displayName string) error {
	return tc.Do(name, http.MethodPost, "/identity", map[string]string{"name": displayName})
}

func (tc *TestContext) approveIssuer(_ context.Context, admin, issuer string) error {
	addr, err := tc.address(issuer)
	if err != nil {
		return err
	}
	return tc.Do(admin, http.MethodPost, "/issuers/"+addr.String()+"/approve", nil)
}

func (tc *TestContext) revokeIssuer(_ context.Context, admin, issuer string) error {
	addr, err := tc.address(issuer)
	if err != nil {
		return err
	}
	return tc.Do(admin, http.MethodPost, "/issuers/"+addr.String()+"/revoke", nil)
}

func (tc *TestContext) requestCredential(_ context.Context, holder, issuer string, doc *godog.DocString) error {
	addr, err := tc.address(issuer)
	if err != nil {
		return err
	}
	return tc.Do(holder, http.MethodPost, "/requests", map[string]any{
		"issuer": addr.String(),
		"data":   json.RawMessage(doc.Content),
	})
}

// firstPendingRequest returns the issuer and index of the issuer's oldest
// pending request.
func (tc *TestContext) firstPendingRequest(issuer string) (string, string, error) {
	if err := tc.Do(issuer, http.MethodGet, "/requests", nil); err != nil {
		return "", "", err
	}
	var body struct {
		Requests []struct {
			Issuer string `json:"issuer"`
			Index  uint64 `json:"index"`
			Status string `json:"status"`
		} `json:"requests"`
	}
	if err := json.Unmarshal(tc.LastResponseBody, &body); err != nil {
		return "", "", fmt.Errorf("failed to parse requests: %w", err)
	}
	for _, r := range body.Requests {
		if r.Status == "pending" {
			return r.Issuer, fmt.Sprint(r.Index), nil
		}
	}
	return "", "", fmt.Errorf("no pending request for %s: %s", issuer, tc.LastResponseBody)
}

func (tc *TestContext) approveFirstRequest(_ context.Context, issuer string, doc *godog.DocString) error {
	addr, index, err := tc.firstPendingRequest(issuer)
	if err != nil {
		return err
	}
	return tc.Do(issuer, http.MethodPost, "/requests/"+addr+"/"+index+"/review", map[string]any{
		"decision":   "approve",
		"credential": json.RawMessage(doc.Content),
	})
}

func (tc *TestContext) rejectFirstRequest(_ context.Context, issuer string) error {
	addr, index, err := tc.firstPendingRequest(issuer)
	if err != nil {
		return err
	}
	return tc.Do(issuer, http.MethodPost, "/requests/"+addr+"/"+index+"/review", map[string]any{"decision": "reject"})
}

func (tc *TestContext) issueCredential(_ context.Context, issuer, holder string, doc *godog.DocString) error {
	addr, err := tc.address(holder)
	if err != nil {
		return err
	}
	return tc.Do(issuer, http.MethodPost, "/credentials", map[string]any{
		"holder": addr.String(),
		"data":   json.RawMessage(doc.Content),
	})
}

func (tc *TestContext) revokeCredential(_ context.Context, caller string, index int, holder string) error {
	addr, err := tc.address(holder)
	if err != nil {
		return err
	}
	return tc.Do(caller, http.MethodPost, fmt.Sprintf("/credentials/%s/%d/revoke", addr, index), nil)
}

func (tc *TestContext) fetchProfile(_ context.Context, caller, holder string) error {
	addr, err := tc.address(holder)
	if err != nil {
		return err
	}
	return tc.Do(caller, http.MethodGet, "/profile/"+addr.String(), nil)
}

func (tc *TestContext) listCredentials(_ context.Context, caller, holder string) error {
	addr, err := tc.address(holder)
	if err != nil {
		return err
	}
	return tc.Do(caller, http.MethodGet, "/credentials/"+addr.String(), nil)
}

func (tc *TestContext) grantConsent(_ context.Context, holder, domain, categories string) error {
	return tc.Do(holder, http.MethodPost, "/consents", map[string]any{
		"domain":     domain,
		"categories": splitList(categories),
	})
}

func (tc *TestContext) revokeConsent(_ context.Context, holder, domain string) error {
	return tc.Do(holder, http.MethodDelete, "/consents/"+domain, nil)
}

func (tc *TestContext) disclose(_ context.Context, holder, categories, domain string) error {
	if err := tc.Do(holder, http.MethodPost, "/disclosures", map[string]any{
		"domain":     domain,
		"categories": splitList(categories),
	}); err != nil {
		return err
	}
	var body struct {
		Proof json.RawMessage `json:"proof"`
	}
	if err := json.Unmarshal(tc.LastResponseBody, &body); err == nil && len(body.Proof) > 0 && string(body.Proof) != "null" {
		tc.LastProof = body.Proof
	}
	return nil
}

func (tc *TestContext) verifyLastProof(_ context.Context, verifier, expected string) error {
	return tc.verify(verifier, expected, tc.LastProof)
}

func (tc *TestContext) verifyTamperedProof(_ context.Context, verifier, expected string) error {
	var proof map[string]any
	if err := json.Unmarshal(tc.LastProof, &proof); err != nil {
		return fmt.Errorf("no proof to tamper with: %w", err)
	}
	data, ok := proof["data"].(map[string]any)
	if !ok {
		return fmt.Errorf("proof carries no data: %s", tc.LastProof)
	}
	data["name"] = "Mallory"
	raw, err := json.Marshal(proof)
	if err != nil {
		return err
	}
	return tc.verify(verifier, expected, raw)
}

func (tc *TestContext) verify(verifier, expected string, proof json.RawMessage) error {
	if len(proof) == 0 {
		return fmt.Errorf("no proof has been disclosed yet")
	}
	addr, err := tc.address(expected)
	if err != nil {
		return err
	}
	return tc.Do(verifier, http.MethodPost, "/disclosures/verify", map[string]any{
		"proof":          proof,
		"expectedSigner": addr.String(),
	})
}

func (tc *TestContext) responseStatusShouldBe(_ context.Context, expected int) error {
	if tc.LastResponse == nil {
		return fmt.Errorf("no response received")
	}
	if tc.LastResponse.StatusCode != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, tc.LastResponse.StatusCode, tc.LastResponseBody)
	}
	return nil
}

func (tc *TestContext) responseShouldContain(_ context.Context, text string) error {
	if !strings.Contains(string(tc.LastResponseBody), text) {
		return fmt.Errorf("response does not contain %q: %s", text, tc.LastResponseBody)
	}
	return nil
}

func (tc *TestContext) responseFieldShouldEqual(_ context.Context, field, expected string) error {
	value, err := tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if actual := fmt.Sprint(value); actual != expected {
		return fmt.Errorf("expected field %s to be %q, got %q", field, expected, actual)
	}
	return nil
}

func (tc *TestContext) responseShouldListCredentials(_ context.Context, count int) error {
	var body struct {
		Credentials []json.RawMessage `json:"credentials"`
	}
	if err := json.Unmarshal(tc.LastResponseBody, &body); err != nil {
		return fmt.Errorf("failed to parse credentials: %w", err)
	}
	if len(body.Credentials) != count {
		return fmt.Errorf("expected %d credentials, got %d: %s", count, len(body.Credentials), tc.LastResponseBody)
	}
	return nil
}

func (tc *TestContext) proofShouldDiscloseOnly(_ context.Context, fields string) error {
	var proof struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(tc.LastProof, &proof); err != nil {
		return fmt.Errorf("failed to parse proof: %w", err)
	}
	want := splitList(fields)
	if len(proof.Data) != len(want) {
		return fmt.Errorf("expected fields %v, proof carries %v", want, proof.Data)
	}
	for _, f := range want {
		if _, ok := proof.Data[f]; !ok {
			return fmt.Errorf("proof is missing field %q: %v", f, proof.Data)
		}
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
