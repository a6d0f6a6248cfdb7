// Package ledgerapi is the HTTP surface of a ledger node: the JSON shapes,
// the call-signing scheme and the chi handler that serves a ledger.Ledger.
package ledgerapi

import (
	"fmt"
	"net/http"
	"strconv"

	"dim/internal/ledger"
	"dim/internal/signer"
	"dim/pkg/domain"
)

// Headers carried by every mutating call.
const (
	HeaderCaller    = "X-Ledger-Caller"
	HeaderTimestamp = "X-Ledger-Timestamp"
	HeaderSignature = "X-Ledger-Signature"
)

// CallPayload is the message a caller signs to authorize a mutation.
// It binds the method, path and body digest to the caller and timestamp.
func CallPayload(method, path string, body []byte, timestampMs int64, caller domain.Address) []byte {
	return fmt.Appendf(nil, "DIM Ledger Call\nMethod: %s\nPath: %s\nBody: %s\nTimestamp: %s\nAccount: %s",
		method, path, signer.Keccak256Hex(body), strconv.FormatInt(timestampMs, 10), caller)
}

// IsMutation reports whether method changes ledger state.
func IsMutation(method string) bool {
	return method != http.MethodGet && method != http.MethodHead
}

type AdminResponse struct {
	Address domain.Address `json:"address"`
}

type IssuerResponse struct {
	Address  domain.Address `json:"address"`
	Approved bool           `json:"approved"`
}

type CredentialsResponse struct {
	Credentials []ledger.Credential `json:"credentials"`
}

type RequestsResponse struct {
	Requests []ledger.CredentialRequest `json:"requests"`
}

type RegisterIdentityRequest struct {
	MetadataLocator domain.Locator `json:"metadata_locator"`
}

type RequestCredentialRequest struct {
	Issuer      domain.Address `json:"issuer"`
	DataLocator domain.Locator `json:"data_locator"`
}

type ApproveRequestRequest struct {
	CredentialLocator domain.Locator `json:"credential_locator"`
}

type IssueCredentialRequest struct {
	Holder      domain.Address `json:"holder"`
	DataLocator domain.Locator `json:"data_locator"`
}

// Paths shared by client and server.
const (
	PathAdmin       = "/v1/admin"
	PathIdentities  = "/v1/identities"
	PathIssuers     = "/v1/issuers"
	PathCredentials = "/v1/credentials"
	PathRequests    = "/v1/requests"
)

func IdentityPath(addr domain.Address) string {
	return PathIdentities + "/" + addr.String()
}

func IssuerPath(addr domain.Address) string {
	return PathIssuers + "/" + addr.String()
}

func CredentialsPath(holder domain.Address) string {
	return PathCredentials + "/" + holder.String()
}

func CredentialPath(ref ledger.CredentialRef) string {
	return CredentialsPath(ref.Holder) + "/" + strconv.FormatUint(ref.Index, 10)
}

func RequestsPath(issuer domain.Address) string {
	return PathRequests + "/" + issuer.String()
}

func RequestPath(ref ledger.RequestRef) string {
	return RequestsPath(ref.Issuer) + "/" + strconv.FormatUint(ref.Index, 10)
}
